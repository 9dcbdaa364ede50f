package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "json", cfg.StorageDriver)
	assert.Equal(t, "macros.json", filepath.Base(cfg.StoragePath))
	assert.Equal(t, 10*time.Second, cfg.WaitTimeout)
	assert.Equal(t, 20*time.Millisecond, cfg.TypingDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.False(t, cfg.Headless)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().WaitTimeout, cfg.WaitTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage_driver: sqlite
storage_path: /tmp/macros.db
headless: true
wait_timeout: 3s
typing_delay: 0s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.StorageDriver)
	assert.Equal(t, "/tmp/macros.db", cfg.StoragePath)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 3*time.Second, cfg.WaitTimeout)
	assert.Equal(t, time.Duration(0), cfg.TypingDelay)
	// untouched keys keep their defaults
	assert.Equal(t, 100*time.Millisecond, cfg.SettleDelay)
	assert.Equal(t, 1280, cfg.Width)
}

func TestLoadFileParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wait_timeout: [not a duration"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "parse")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage_driver: sqlite\nprovider: openai\n"), 0o644))

	t.Setenv(EnvStorageDriver, "memory")
	t.Setenv(EnvHeadless, "true")
	t.Setenv(EnvAddr, ":9000")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.StorageDriver)
	assert.True(t, cfg.Headless)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "openai", cfg.Provider)
}

func TestEnvInvalidHeadless(t *testing.T) {
	t.Setenv(EnvHeadless, "sometimes")
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	assert.ErrorContains(t, err, EnvHeadless)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"unknown driver", func(c *Config) { c.StorageDriver = "postgres" }, "storage_driver"},
		{"missing path", func(c *Config) { c.StoragePath = "" }, "storage_path"},
		{"memory needs no path", func(c *Config) { c.StorageDriver = "memory"; c.StoragePath = "" }, ""},
		{"missing browser", func(c *Config) { c.BrowserBin = "/no/such/chromium" }, EnvBrowserBin},
		{"zero wait", func(c *Config) { c.WaitTimeout = 0 }, "wait_timeout"},
		{"negative delay", func(c *Config) { c.TypingDelay = -time.Millisecond }, "negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateExistingBrowser(t *testing.T) {
	bin := filepath.Join(t.TempDir(), "chromium")
	require.NoError(t, os.WriteFile(bin, nil, 0o755))

	cfg := Defaults()
	cfg.BrowserBin = bin
	assert.NoError(t, cfg.Validate())
}
