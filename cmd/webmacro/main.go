package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/v0xg/webmacro/internal/ai"
	"github.com/v0xg/webmacro/internal/browser"
	"github.com/v0xg/webmacro/internal/config"
	"github.com/v0xg/webmacro/internal/player"
	"github.com/v0xg/webmacro/internal/recorder"
	"github.com/v0xg/webmacro/internal/storage"
	"github.com/v0xg/webmacro/internal/usecase"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath    string
	verbose       bool
	headless      bool
	storagePath   string
	storageDriver string
	browserBin    string
	profile       string
	provider      string
	model         string

	cfg    config.Config
	logger = zap.NewNop()
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "webmacro",
		Short: "Record browser interactions and replay them later",
		Long: `webmacro opens a browser, records your clicks and typing as a named macro,
and replays it on demand in a fresh browser session.

Example:
  webmacro record https://myapp.com --name login
  webmacro play login --gif login.gif`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", config.DefaultPath(), "Config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")
	flags.BoolVar(&headless, "headless", false, "Run the browser without a window")
	flags.StringVar(&storagePath, "storage", "", "Macro storage file")
	flags.StringVar(&storageDriver, "storage-driver", "", "Storage backend: json, sqlite, memory")
	flags.StringVar(&browserBin, "browser", "", "Chromium/Chrome binary (default: auto-detect)")
	flags.StringVar(&profile, "profile", "", "Chrome/Chromium profile directory for authenticated sessions (close browser first)")
	flags.StringVar(&provider, "provider", "", "AI provider for describe: claude, openai")
	flags.StringVar(&model, "model", "", "Specific model override")

	rootCmd.AddCommand(
		newRecordCmd(),
		newPlayCmd(),
		newListCmd(),
		newDeleteCmd(),
		newDescribeCmd(),
		newServeCmd(),
	)

	err := rootCmd.ExecuteContext(context.Background())
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// setup resolves the configuration: file, then environment, then flags
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	logger, err = newLogger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.Headless = headless
	}
	if flags.Changed("storage") {
		cfg.StoragePath = storagePath
	}
	if flags.Changed("storage-driver") {
		cfg.StorageDriver = storageDriver
	}
	if flags.Changed("browser") {
		cfg.BrowserBin = browserBin
	}
	if flags.Changed("profile") {
		cfg.ProfileDir = profile
	}
	if flags.Changed("provider") {
		cfg.Provider = provider
	}
	if flags.Changed("model") {
		cfg.Model = model
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logVerbose("Configuration")
	logVerbose("  Storage: %s (%s)", cfg.StoragePath, cfg.StorageDriver)
	logVerbose("  Browser: %s", valueOr(cfg.BrowserBin, "auto-detect"))
	return nil
}

// app holds the wired components for one command
type app struct {
	store    storage.Store
	recorder *recorder.Recorder
	service  *usecase.Service
}

type appOptions struct {
	playerOpts []player.Option
	describer  usecase.Describer
}

func newApp(opts appOptions) (*app, error) {
	store, err := storage.Open(cfg.StorageDriver, cfg.StoragePath, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	launcher := browser.NewLauncher(browser.Options{
		Bin:        cfg.BrowserBin,
		Headless:   cfg.Headless,
		ProfileDir: cfg.ProfileDir,
		Width:      cfg.Width,
		Height:     cfg.Height,
	})

	rec := recorder.New(launcher.Factory(),
		recorder.WithPollInterval(cfg.PollInterval),
		recorder.WithLogger(logger),
	)

	playerOpts := append([]player.Option{
		player.WithWaitTimeout(cfg.WaitTimeout),
		player.WithTypingDelay(cfg.TypingDelay),
		player.WithSettleDelay(cfg.SettleDelay),
		player.WithLogger(logger),
	}, opts.playerOpts...)
	p := player.New(launcher.Factory(), playerOpts...)

	svcOpts := []usecase.Option{usecase.WithLogger(logger)}
	if opts.describer != nil {
		svcOpts = append(svcOpts, usecase.WithDescriber(opts.describer))
	}

	return &app{
		store:    store,
		recorder: rec,
		service:  usecase.New(rec, p, store, svcOpts...),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close storage", zap.Error(err))
	}
}

// newLogger builds a development logger with --verbose and a quieter
// production one otherwise
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopmentConfig().Build()
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableStacktrace = true
	return zc.Build()
}

func newProvider() (ai.Provider, error) {
	return ai.NewProvider(cfg.Provider, cfg.Model)
}

func logVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Printf(format+"\n", args...)
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
