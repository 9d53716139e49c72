package config

import (
	"strings"
	"time"
)

// Default values for the probe target.
const (
	DefaultNFSPort       = 2049
	DefaultPortmapPort   = 111
	DefaultExport        = "/"
	DefaultTimeout       = 5 * time.Second
	DefaultMaxRecordSize = 4 << 20
	DefaultMetricsPort   = 9090
)

// ApplyDefaults fills in zero values with defaults.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTargetDefaults(&cfg.Target)
	applyMetricsDefaults(&cfg.Metrics)
	applyCaptureDefaults(&cfg.Capture)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}

	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTargetDefaults(cfg *TargetConfig) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultNFSPort
	}
	if cfg.PortmapPort == 0 {
		cfg.PortmapPort = DefaultPortmapPort
	}
	if cfg.Export == "" {
		cfg.Export = DefaultExport
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRecordSize == 0 {
		cfg.MaxRecordSize = DefaultMaxRecordSize
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}

func applyCaptureDefaults(cfg *CaptureConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if cfg.Type == "badger" {
		if _, ok := cfg.Badger["db_path"]; !ok {
			cfg.Badger["db_path"] = "/tmp/nfsprobe-capture"
		}
	}
}

// GetDefaultConfig returns a Config with every default applied.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
