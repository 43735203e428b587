package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"sentinel-hq/warden/pkg/audit"
	"sentinel-hq/warden/pkg/audit/storage"
	"sentinel-hq/warden/pkg/config"
	"sentinel-hq/warden/pkg/detection"
	"sentinel-hq/warden/pkg/detection/detectors"
	"sentinel-hq/warden/pkg/gate"
	"sentinel-hq/warden/pkg/server"
	"sentinel-hq/warden/pkg/telemetry/logging"
	"sentinel-hq/warden/pkg/telemetry/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the warden engine",
	Long: `Run starts the policy-gate engine: it opens the audit log, builds the
configured detectors and their gates, applies mode overrides, and serves
the operations API until interrupted.`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	logger.Info("starting warden", "version", Version, "config", cfgFile)

	auditLog, err := openAuditLog(cfg.Audit)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer auditLog.Close()

	var (
		gateMetrics *metrics.GateMetrics
		promReg     *prometheus.Registry
	)
	if *cfg.Telemetry.Metrics.Enabled {
		promReg = prometheus.NewRegistry()
		gateMetrics = metrics.NewGateMetrics(cfg.Telemetry.Metrics, promReg)
	}

	registry := gate.NewRegistry()
	if err := registerDetectors(cfg, registry, auditLog, gateMetrics); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Overrides.Path != "" {
		overrides, err := gate.LoadOverrides(cfg.Overrides.Path)
		if err != nil {
			return fmt.Errorf("failed to load overrides: %w", err)
		}
		if err := registry.ApplyOverrides(overrides); err != nil {
			logger.Warn("some overrides failed to apply", "error", err)
		}

		if cfg.Overrides.Watch {
			watcher, err := gate.NewOverridesWatcher(registry, cfg.Overrides.Path, cfg.Overrides.Debounce.Std())
			if err != nil {
				return fmt.Errorf("failed to create overrides watcher: %w", err)
			}
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					logger.Error("overrides watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	if gateMetrics != nil {
		refresher := metrics.NewRefresher(registry, gateMetrics, cfg.Telemetry.Metrics.RefreshSchedule)
		if err := refresher.Start(ctx); err != nil {
			return fmt.Errorf("failed to start metrics refresher: %w", err)
		}
		defer refresher.Stop()
	}

	var metricsHandler http.Handler
	if promReg != nil {
		metricsHandler = metrics.Handler(promReg)
	}

	srv := server.New(cfg.Server, registry, metricsHandler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	logger.Info("warden stopped")
	return nil
}

// openAuditLog builds the configured audit log backend.
func openAuditLog(cfg config.AuditConfig) (audit.Log, error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryLog(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create audit directory %q: %w", dir, err)
			}
		}
		sqliteCfg := storage.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Path
		sqliteCfg.BusyTimeout = cfg.BusyTimeout.Std()
		if cfg.SynchronousFull != nil {
			sqliteCfg.SynchronousFull = *cfg.SynchronousFull
		}
		return storage.NewSQLiteLog(sqliteCfg)
	default:
		return nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
	}
}

// registerDetectors builds one detector and gate per config entry.
func registerDetectors(cfg *config.Config, registry *gate.Registry, auditLog audit.Log, observer *metrics.GateMetrics) error {
	gateCfg := &gate.Config{AppendTimeout: cfg.Audit.AppendTimeout.Std()}
	if observer != nil {
		gateCfg.Observer = observer
	}

	for name, detCfg := range cfg.Detectors {
		det, err := buildDetector(name, detCfg)
		if err != nil {
			return err
		}

		g := gate.New(det, auditLog, gateCfg)

		mode, err := detection.ParseMode(detCfg.Mode)
		if err != nil {
			return fmt.Errorf("detector %q: %w", name, err)
		}
		if mode != detection.ModeLive {
			if err := g.SetMode(mode); err != nil {
				return fmt.Errorf("detector %q: %w", name, err)
			}
		}

		if err := registry.Register(g); err != nil {
			return fmt.Errorf("failed to register detector %q: %w", name, err)
		}
	}
	return nil
}

func buildDetector(name string, cfg config.DetectorConfig) (detection.Detector, error) {
	switch cfg.Type {
	case "threshold":
		return detectors.NewThreshold(name, &detectors.ThresholdConfig{
			WindowSize: cfg.Threshold.WindowSize,
			MinSamples: cfg.Threshold.MinSamples,
			InfoZ:      cfg.Threshold.InfoZ,
			WarnZ:      cfg.Threshold.WarnZ,
			BlockZ:     cfg.Threshold.BlockZ,
		}, nil), nil
	default:
		return nil, fmt.Errorf("detector %q: unknown type %q", name, cfg.Type)
	}
}
