package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sentinel-hq/warden/pkg/audit"
	"sentinel-hq/warden/pkg/audit/export"
	"sentinel-hq/warden/pkg/audit/storage"
	"sentinel-hq/warden/pkg/config"
	"sentinel-hq/warden/pkg/detection"
	"sentinel-hq/warden/pkg/telemetry/logging"
)

var (
	exportDetector string
	exportEvent    string
	exportTier     string
	exportSince    string
	exportUntil    string
	exportExecuted bool
	exportLimit    int
	exportFormat   string
	exportPretty   bool
	exportOutput   string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit entries as JSON or CSV",
	Long: `Export reads the audit log configured in the config file and writes the
matching entries to stdout or to a file. Filters narrow the result by
detector, event type, tier, time range and execution.`,
	RunE: runAuditExport,
}

func init() {
	auditExportCmd.Flags().StringVar(&exportDetector, "detector", "", "filter by detector name")
	auditExportCmd.Flags().StringVar(&exportEvent, "event", "", "filter by event type (evaluation, approval, rejection)")
	auditExportCmd.Flags().StringVar(&exportTier, "tier", "", "filter by tier (info, warn, block)")
	auditExportCmd.Flags().StringVar(&exportSince, "since", "", "only entries at or after this RFC3339 timestamp")
	auditExportCmd.Flags().StringVar(&exportUntil, "until", "", "only entries before this RFC3339 timestamp")
	auditExportCmd.Flags().BoolVar(&exportExecuted, "executed-only", false, "only entries whose action executed")
	auditExportCmd.Flags().IntVar(&exportLimit, "limit", 0, "maximum entries to export (0 = all)")
	auditExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format (json or csv)")
	auditExportCmd.Flags().BoolVar(&exportPretty, "pretty", false, "pretty-print JSON output")
	auditExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")

	auditCmd.AddCommand(auditExportCmd)
	rootCmd.AddCommand(auditCmd)
}

func runAuditExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Keep informational storage logs off the export stream.
	cfg.Telemetry.Logging.Level = "error"
	if _, err := logging.Setup(cfg.Telemetry.Logging); err != nil {
		return err
	}

	if cfg.Audit.Backend != "sqlite" {
		return fmt.Errorf("audit export requires the sqlite backend, config has %q", cfg.Audit.Backend)
	}

	sqliteCfg := storage.DefaultSQLiteConfig()
	sqliteCfg.Path = cfg.Audit.Path
	sqliteCfg.BusyTimeout = cfg.Audit.BusyTimeout.Std()
	log, err := storage.NewSQLiteLog(sqliteCfg)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer log.Close()

	filter, err := buildExportFilter()
	if err != nil {
		return err
	}

	ctx := context.Background()
	entries, err := log.Scan(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to scan audit log: %w", err)
	}

	var out io.Writer = os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch exportFormat {
	case "json":
		err = export.NewJSONExporter(exportPretty).Export(ctx, entries, out)
	case "csv":
		err = export.NewCSVExporter().Export(ctx, entries, out)
	default:
		return fmt.Errorf("unknown export format %q (json or csv)", exportFormat)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "exported %d entries\n", len(entries))
	return nil
}

func buildExportFilter() (*audit.Filter, error) {
	filter := &audit.Filter{
		Detector:     exportDetector,
		Event:        audit.Event(exportEvent),
		ExecutedOnly: exportExecuted,
		Limit:        exportLimit,
	}
	if exportTier != "" {
		tier, err := detection.ParseTier(exportTier)
		if err != nil {
			return nil, fmt.Errorf("invalid --tier: %w", err)
		}
		filter.Tier = tier
	}
	if exportSince != "" {
		t, err := time.Parse(time.RFC3339, exportSince)
		if err != nil {
			return nil, fmt.Errorf("invalid --since timestamp: %w", err)
		}
		filter.Since = &t
	}
	if exportUntil != "" {
		t, err := time.Parse(time.RFC3339, exportUntil)
		if err != nil {
			return nil, fmt.Errorf("invalid --until timestamp: %w", err)
		}
		filter.Until = &t
	}
	return filter, nil
}
