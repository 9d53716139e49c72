package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/nfsprobe/pkg/capture"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

func writeConfig(t *testing.T, doc map[string]any) string {
	t.Helper()
	data, err := yaml.Marshal(doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// ============================================================================
// Load Tests
// ============================================================================

func TestLoad(t *testing.T) {
	t.Run("NoConfigFile", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
		require.NoError(t, err)

		assert.Equal(t, "INFO", cfg.Logging.Level)
		assert.Equal(t, "text", cfg.Logging.Format)
		assert.Equal(t, "stdout", cfg.Logging.Output)
		assert.Equal(t, "localhost", cfg.Target.Host)
		assert.Equal(t, uint32(DefaultNFSPort), cfg.Target.Port)
		assert.Equal(t, uint32(DefaultPortmapPort), cfg.Target.PortmapPort)
		assert.Equal(t, "/", cfg.Target.Export)
		assert.Equal(t, DefaultTimeout, cfg.Target.Timeout)
		assert.Equal(t, uint32(DefaultMaxRecordSize), cfg.Target.MaxRecordSize)
		assert.Equal(t, "memory", cfg.Capture.Type)
	})

	t.Run("FileValues", func(t *testing.T) {
		path := writeConfig(t, map[string]any{
			"logging": map[string]any{"level": "debug"},
			"target": map[string]any{
				"host":        "192.0.2.10",
				"port":        20490,
				"use_portmap": true,
				"export":      "/export",
				"timeout":     "2s",
			},
			"capture": map[string]any{
				"enabled": true,
				"type":    "badger",
				"badger":  map[string]any{"db_path": "/var/lib/nfsprobe"},
			},
		})

		cfg, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "DEBUG", cfg.Logging.Level)
		assert.Equal(t, "192.0.2.10", cfg.Target.Host)
		assert.Equal(t, uint32(20490), cfg.Target.Port)
		assert.True(t, cfg.Target.UsePortmap)
		assert.Equal(t, "/export", cfg.Target.Export)
		assert.Equal(t, 2*time.Second, cfg.Target.Timeout)
		assert.True(t, cfg.Capture.Enabled)
		assert.Equal(t, "/var/lib/nfsprobe", cfg.Capture.Badger["db_path"])
	})

	t.Run("EnvironmentOverridesFile", func(t *testing.T) {
		path := writeConfig(t, map[string]any{
			"target": map[string]any{"host": "192.0.2.10"},
		})
		t.Setenv("NFSPROBE_TARGET_HOST", "198.51.100.7")
		t.Setenv("NFSPROBE_TARGET_TIMEOUT", "750ms")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "198.51.100.7", cfg.Target.Host)
		assert.Equal(t, 750*time.Millisecond, cfg.Target.Timeout)
	})

	t.Run("CallPacing", func(t *testing.T) {
		path := writeConfig(t, map[string]any{
			"target": map[string]any{"max_calls_per_second": 25.5},
		})

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 25.5, cfg.Target.MaxCallsPerSecond)

		path = writeConfig(t, map[string]any{
			"target": map[string]any{"max_calls_per_second": -1},
		})
		_, err = Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MaxCallsPerSecond")
	})

	t.Run("InvalidYAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("target: [unclosed"), 0644))

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config file")
	})

	t.Run("ValidationFailure", func(t *testing.T) {
		path := writeConfig(t, map[string]any{
			"target": map[string]any{"export": "relative/path"},
		})

		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
		assert.Contains(t, err.Error(), "Export")
	})
}

func TestGetConfigDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	assert.Equal(t, filepath.Join(dir, "nfsprobe"), GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "nfsprobe", "config.yaml"), GetDefaultConfigPath())
	assert.False(t, ConfigExists())

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nfsprobe"), 0755))
	require.NoError(t, os.WriteFile(GetDefaultConfigPath(), []byte("target:\n  port: 3049\n"), 0644))
	assert.True(t, ConfigExists())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(3049), cfg.Target.Port)
}

// ============================================================================
// Validation Tests
// ============================================================================

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"Defaults", func(cfg *Config) {}, ""},
		{"BadLogLevel", func(cfg *Config) { cfg.Logging.Level = "TRACE" }, "Level"},
		{"BadLogFormat", func(cfg *Config) { cfg.Logging.Format = "xml" }, "Format"},
		{"PortOutOfRange", func(cfg *Config) { cfg.Target.Port = 70000 }, "Port"},
		{"ZeroTimeout", func(cfg *Config) { cfg.Target.Timeout = 0 }, "Timeout"},
		{"TinyRecordLimit", func(cfg *Config) { cfg.Target.MaxRecordSize = 16 }, "MaxRecordSize"},
		{"UnknownCaptureType", func(cfg *Config) { cfg.Capture.Type = "ftp" }, "Type"},
		{
			"S3WithoutBucket",
			func(cfg *Config) {
				cfg.Capture.Enabled = true
				cfg.Capture.Type = "s3"
			},
			"bucket is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tc.mutate(cfg)

			err := Validate(cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

// ============================================================================
// Factory Tests
// ============================================================================

func TestCreateCaptureStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Memory", func(t *testing.T) {
		store, err := CreateCaptureStore(ctx, &CaptureConfig{Type: "memory"})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &capture.MemoryStore{}, store)
	})

	t.Run("Badger", func(t *testing.T) {
		store, err := CreateCaptureStore(ctx, &CaptureConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": t.TempDir()},
		})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &capture.BadgerStore{}, store)
	})

	t.Run("BadgerBadOptions", func(t *testing.T) {
		_, err := CreateCaptureStore(ctx, &CaptureConfig{
			Type:   "badger",
			Badger: map[string]any{"db_path": []int{1}},
		})
		assert.Error(t, err)
	})

	t.Run("S3", func(t *testing.T) {
		store, err := CreateCaptureStore(ctx, &CaptureConfig{
			Type: "s3",
			S3: map[string]any{
				"region":            "us-east-1",
				"bucket":            "captures",
				"endpoint":          "http://127.0.0.1:9000",
				"access_key_id":     "test",
				"secret_access_key": "test",
			},
		})
		require.NoError(t, err)
		assert.IsType(t, &capture.S3Store{}, store)
		assert.NoError(t, store.Close())
	})

	t.Run("S3Options", func(t *testing.T) {
		opts, err := decodeS3Options(map[string]any{
			"region":      "eu-west-1",
			"bucket":      "b",
			"max_retries": "3",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, opts.MaxRetries)

		opts, err = decodeS3Options(map[string]any{"region": "eu-west-1", "bucket": "b"})
		require.NoError(t, err)
		assert.Equal(t, 10, opts.MaxRetries)

		_, err = decodeS3Options(map[string]any{"region": "eu-west-1"})
		assert.ErrorContains(t, err, "bucket is required")

		_, err = decodeS3Options(map[string]any{"bucket": "b"})
		assert.ErrorContains(t, err, "region is required")
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := CreateCaptureStore(ctx, &CaptureConfig{Type: "tape"})
		assert.ErrorContains(t, err, "unknown capture store type")
	})
}
