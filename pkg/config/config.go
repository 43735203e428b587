package config

import (
	"fmt"
	"time"
)

// Duration wraps time.Duration so YAML values like "30s" or "1h" parse
// directly into config fields.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration for the warden engine.
type Config struct {
	// Server contains the HTTP operations API configuration.
	Server ServerConfig `yaml:"server"`

	// Audit contains audit log storage configuration.
	Audit AuditConfig `yaml:"audit"`

	// Detectors maps detector names to their configuration. Each entry
	// becomes one registered policy gate at startup.
	Detectors map[string]DetectorConfig `yaml:"detectors"`

	// Overrides contains the mode-overrides file configuration.
	Overrides OverridesConfig `yaml:"overrides"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP operations API.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8787"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout, WriteTimeout and IdleTimeout bound the HTTP server.
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS settings for the operations API.
type CORSConfig struct {
	Enabled        bool     `yaml:"enabled"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AuditConfig contains configuration for the audit log backend.
type AuditConfig struct {
	// Backend selects the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// BusyTimeout is the SQLite lock wait duration.
	BusyTimeout Duration `yaml:"busy_timeout"`

	// AppendTimeout bounds each audit append before it surfaces as a
	// retryable durability error.
	AppendTimeout Duration `yaml:"append_timeout"`

	// SynchronousFull forces an fsync per commit so acknowledged appends
	// survive a crash. Default: true.
	SynchronousFull *bool `yaml:"synchronous_full"`
}

// DetectorConfig configures one detector and its gate.
type DetectorConfig struct {
	// Type selects the detector implementation. Currently "threshold".
	Type string `yaml:"type"`

	// Mode is the initial operating mode: "live" or "disabled".
	// Default: "live"
	Mode string `yaml:"mode"`

	// Threshold configures the threshold detector.
	Threshold ThresholdConfig `yaml:"threshold"`
}

// ThresholdConfig mirrors detectors.ThresholdConfig in YAML form.
type ThresholdConfig struct {
	WindowSize int     `yaml:"window_size"`
	MinSamples int     `yaml:"min_samples"`
	InfoZ      float64 `yaml:"info_z"`
	WarnZ      float64 `yaml:"warn_z"`
	BlockZ     float64 `yaml:"block_z"`
}

// OverridesConfig configures the mode-overrides file watcher.
type OverridesConfig struct {
	// Path is the overrides YAML file. Empty disables overrides.
	Path string `yaml:"path"`

	// Watch hot-applies the file on change.
	Watch bool `yaml:"watch"`

	// Debounce is the wait after a file event before re-applying.
	Debounce Duration `yaml:"debounce"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error". Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig configures prometheus metrics.
type MetricsConfig struct {
	// Enabled exposes the /metrics endpoint. Default: true
	Enabled *bool `yaml:"enabled"`

	// Namespace and Subsystem prefix every metric name.
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`

	// RefreshSchedule is a cron expression for replaying the audit log into
	// the restart-safe gauges. Empty disables the refresher.
	RefreshSchedule string `yaml:"refresh_schedule"`
}
