package config

import "time"

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8787"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = Duration(120 * time.Second)
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(30 * time.Second)
	}
	if cfg.Server.CORS.Enabled && len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}

	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "sqlite"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "data/audit.db"
	}
	if cfg.Audit.BusyTimeout == 0 {
		cfg.Audit.BusyTimeout = Duration(5 * time.Second)
	}
	if cfg.Audit.AppendTimeout == 0 {
		cfg.Audit.AppendTimeout = Duration(5 * time.Second)
	}
	if cfg.Audit.SynchronousFull == nil {
		t := true
		cfg.Audit.SynchronousFull = &t
	}

	for name, det := range cfg.Detectors {
		if det.Type == "" {
			det.Type = "threshold"
		}
		if det.Mode == "" {
			det.Mode = "live"
		}
		if det.Threshold.WindowSize == 0 {
			det.Threshold.WindowSize = 100
		}
		if det.Threshold.MinSamples == 0 {
			det.Threshold.MinSamples = 10
		}
		if det.Threshold.InfoZ == 0 {
			det.Threshold.InfoZ = 2.0
		}
		if det.Threshold.WarnZ == 0 {
			det.Threshold.WarnZ = 3.0
		}
		if det.Threshold.BlockZ == 0 {
			det.Threshold.BlockZ = 4.0
		}
		cfg.Detectors[name] = det
	}

	if cfg.Overrides.Debounce == 0 {
		cfg.Overrides.Debounce = Duration(100 * time.Millisecond)
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		t := true
		cfg.Telemetry.Metrics.Enabled = &t
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "warden"
	}
}
