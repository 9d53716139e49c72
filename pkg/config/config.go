package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the nfsprobe configuration.
//
// It is loaded from (in order of precedence):
//  1. Environment variables (NFSPROBE_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Command line flags are applied on top by the CLI.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Target is the server under test
	Target TargetConfig `mapstructure:"target"`

	// Metrics controls the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Capture controls recording of the raw RPC exchanges
	Capture CaptureConfig `mapstructure:"capture"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// TargetConfig describes the server being probed.
type TargetConfig struct {
	// Host is the server hostname or IP address
	Host string `mapstructure:"host" validate:"required,hostname_rfc1123|ip"`

	// Port is the NFS port. When UsePortmap is set it is only a fallback.
	Port uint32 `mapstructure:"port" validate:"gt=0,lte=65535"`

	// MountPort is the MOUNT port. Zero means the same as Port.
	MountPort uint32 `mapstructure:"mount_port" validate:"lte=65535"`

	// PortmapPort is where the portmapper listens
	PortmapPort uint32 `mapstructure:"portmap_port" validate:"gt=0,lte=65535"`

	// UsePortmap resolves the MOUNT and NFS ports with GETPORT before dialing
	UsePortmap bool `mapstructure:"use_portmap"`

	// Export is the path passed to MNT
	Export string `mapstructure:"export" validate:"required,startswith=/"`

	// Timeout bounds every blocking send and receive
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gt=0"`

	// MaxRecordSize is the largest reply record accepted
	MaxRecordSize uint32 `mapstructure:"max_record_size" validate:"required,gte=1024"`

	// MaxCallsPerSecond paces outgoing calls; 0 disables pacing
	MaxCallsPerSecond float64 `mapstructure:"max_calls_per_second" validate:"gte=0"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the HTTP endpoint
	Enabled bool `mapstructure:"enabled"`

	// Port is the HTTP port serving /metrics
	Port int `mapstructure:"port" validate:"omitempty,gt=0,lte=65535"`
}

// CaptureConfig controls the exchange recorder.
//
// Type specific options are kept as raw maps and decoded by the factory
// for the selected store.
type CaptureConfig struct {
	// Enabled turns on recording of every RPC exchange
	Enabled bool `mapstructure:"enabled"`

	// Type selects the store
	// Valid values: memory, badger, s3
	Type string `mapstructure:"type" validate:"required,oneof=memory badger s3"`

	// RunID names the recorded run. Empty picks a random UUID.
	RunID string `mapstructure:"run_id"`

	// Badger contains BadgerDB store options (db_path, in_memory)
	Badger map[string]any `mapstructure:"badger"`

	// S3 contains S3 store options (region, bucket, prefix, endpoint,
	// access_key_id, secret_access_key, max_retries)
	S3 map[string]any `mapstructure:"s3"`
}

// envKeys are bound explicitly so that environment overrides apply even
// when the key is absent from the configuration file.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"target.host",
	"target.port",
	"target.mount_port",
	"target.portmap_port",
	"target.use_portmap",
	"target.export",
	"target.timeout",
	"target.max_record_size",
	"target.max_calls_per_second",
	"metrics.enabled",
	"metrics.port",
	"capture.enabled",
	"capture.type",
	"capture.run_id",
}

// Load loads configuration from file and environment variables.
//
// An empty configPath searches the default location
// ($XDG_CONFIG_HOME/nfsprobe/config.yaml). A missing file is not an error;
// defaults apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setupViper(v *viper.Viper, configPath string) {
	// Environment variables: NFSPROBE_TARGET_HOST -> target.host
	v.SetEnvPrefix("NFSPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper, configPath string) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if configPath != "" && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "nfsprobe")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "nfsprobe")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists reports whether a configuration file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
