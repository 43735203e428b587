package config

import (
	"fmt"

	"sentinel-hq/warden/pkg/detection"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Server.ListenAddress == "" {
		return fmt.Errorf("server.listen_address cannot be empty")
	}

	switch cfg.Audit.Backend {
	case "sqlite":
		if cfg.Audit.Path == "" {
			return fmt.Errorf("audit.path cannot be empty for the sqlite backend")
		}
	case "memory":
	default:
		return fmt.Errorf("audit.backend must be \"sqlite\" or \"memory\", got %q", cfg.Audit.Backend)
	}

	if cfg.Audit.AppendTimeout <= 0 {
		return fmt.Errorf("audit.append_timeout must be positive")
	}

	for name, det := range cfg.Detectors {
		if name == "" {
			return fmt.Errorf("detector name cannot be empty")
		}
		if det.Type != "threshold" {
			return fmt.Errorf("detector %q: unknown type %q", name, det.Type)
		}
		mode, err := detection.ParseMode(det.Mode)
		if err != nil {
			return fmt.Errorf("detector %q: %w", name, err)
		}
		if mode == detection.ModeShadow {
			return fmt.Errorf("detector %q: shadow is a runtime state, configure live or disabled", name)
		}
		if det.Threshold.WarnZ < det.Threshold.InfoZ || det.Threshold.BlockZ < det.Threshold.WarnZ {
			return fmt.Errorf("detector %q: z-score thresholds must be ordered info <= warn <= block", name)
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be debug, info, warn or error, got %q", cfg.Telemetry.Logging.Level)
	}

	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json or text, got %q", cfg.Telemetry.Logging.Format)
	}

	return nil
}
