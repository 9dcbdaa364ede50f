// Package config resolves runtime settings.
// Priority: defaults < config file < environment < flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by Load
const (
	EnvBrowserBin    = "WEBMACRO_BROWSER_BIN"
	EnvStorage       = "WEBMACRO_STORAGE"
	EnvStorageDriver = "WEBMACRO_STORAGE_DRIVER"
	EnvHeadless      = "WEBMACRO_HEADLESS"
	EnvProfileDir    = "WEBMACRO_PROFILE_DIR"
	EnvProvider      = "WEBMACRO_PROVIDER"
	EnvAddr          = "WEBMACRO_ADDR"
)

// Config holds all resolved configuration values
type Config struct {
	StorageDriver string `yaml:"storage_driver"`
	StoragePath   string `yaml:"storage_path"`

	BrowserBin string `yaml:"browser_bin"`
	ProfileDir string `yaml:"profile_dir"`
	Headless   bool   `yaml:"headless"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`

	WaitTimeout  time.Duration `yaml:"wait_timeout"`
	TypingDelay  time.Duration `yaml:"typing_delay"`
	SettleDelay  time.Duration `yaml:"settle_delay"`
	PollInterval time.Duration `yaml:"poll_interval"`

	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`

	Addr string `yaml:"addr"`
}

// Dir is where webmacro keeps its files, ~/.webmacro
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".webmacro"
	}
	return filepath.Join(home, ".webmacro")
}

// DefaultPath is the config file read when none is given
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Defaults returns the base configuration
func Defaults() Config {
	return Config{
		StorageDriver: "json",
		StoragePath:   filepath.Join(Dir(), "macros.json"),
		Width:         1280,
		Height:        720,
		WaitTimeout:   10 * time.Second,
		TypingDelay:   20 * time.Millisecond,
		SettleDelay:   100 * time.Millisecond,
		PollInterval:  500 * time.Millisecond,
		Provider:      "claude",
		Addr:          "127.0.0.1:8421",
	}
}

// Load reads path (a missing file is fine) over the defaults, then applies
// environment overrides. Flags are applied by the caller before Validate.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if err := loadFile(&cfg, path); err != nil {
		return cfg, err
	}
	if err := loadEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	// Keys absent from the file keep their current value
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadEnv(cfg *Config) error {
	if v := os.Getenv(EnvBrowserBin); v != "" {
		cfg.BrowserBin = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		cfg.StoragePath = v
	}
	if v := os.Getenv(EnvStorageDriver); v != "" {
		cfg.StorageDriver = v
	}
	if v := os.Getenv(EnvProfileDir); v != "" {
		cfg.ProfileDir = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		cfg.Provider = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv(EnvHeadless); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeadless, err)
		}
		cfg.Headless = headless
	}
	return nil
}

// Validate checks the resolved configuration
func (c Config) Validate() error {
	switch c.StorageDriver {
	case "json", "sqlite", "memory":
	default:
		return fmt.Errorf("storage_driver must be json, sqlite or memory, got %q", c.StorageDriver)
	}
	if c.StorageDriver != "memory" && c.StoragePath == "" {
		return fmt.Errorf("storage_path is required for the %s driver", c.StorageDriver)
	}

	if c.BrowserBin != "" {
		if _, err := os.Stat(c.BrowserBin); err != nil {
			return fmt.Errorf("browser binary %s not found, set %s to a valid Chromium/Chrome path", c.BrowserBin, EnvBrowserBin)
		}
	}

	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("viewport must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout must be positive, got %s", c.WaitTimeout)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.TypingDelay < 0 || c.SettleDelay < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	return nil
}
