package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"sendbot/internal/browser"
	"sendbot/internal/config"
	"sendbot/internal/dispatch"
	"sendbot/internal/history"
	"sendbot/internal/menu"
	"sendbot/internal/notify"
	"sendbot/internal/schedule"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:     "sendbot",
		Short:   "sendbot: scheduled Discord messages through a real browser",
		Long:    "sendbot drives a visible Chrome window to post a configured schedule of messages into a Discord channel, each message on its own repeating delay.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.sendbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(loginCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(configCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config file, falling back to defaults when it
// does not exist. Credential env vars are applied either way.
func loadConfig() *config.Config {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Warn("config not found, using defaults", "path", cfgPath, "err", err)
		cfg = config.Defaults()
		config.Finalize(cfg)
	}
	return cfg
}

// applyLogLevel rebuilds the package logger with the configured level.
func applyLogLevel(cfg *config.Config) {
	var level slog.Level
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize config and data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir := config.DefaultConfigDir()
			cfgPath := config.DefaultConfigPath()
			if err := os.MkdirAll(cfgDir, 0o755); err != nil {
				return err
			}
			cfg := config.Defaults()
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Edit the schedule, then start sending until interrupted",
		RunE:  runSend,
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	applyLogLevel(cfg)

	// Checked before anything else so a misconfigured environment
	// fails before a browser ever launches.
	if err := config.RequireCredentials(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Schedule.Path), 0o755); err != nil {
		return err
	}
	store := schedule.NewStore(cfg.Schedule.Path, logger)
	store.Load()
	if store.Len() == 0 {
		fmt.Println("No saved schedule found. You'll start with an empty list.")
		fmt.Println()
	}

	// Pick up external edits to the schedule file while the menu is
	// open. Once dispatch starts, the snapshot is frozen.
	go func() {
		if err := store.Watch(ctx); err != nil {
			logger.Warn("schedule watcher unavailable", "err", err)
		}
	}()

	ctrl := menu.New(menu.Config{Store: store, Logger: logger})
	action, entries, err := ctrl.Run(ctx)
	if err != nil {
		return err
	}
	if action == menu.ActionQuit {
		logger.Info("exiting without sending")
		return nil
	}

	var recorder dispatch.Recorder
	if cfg.History.Enabled {
		histStore, err := history.NewStore(cfg.History.DBPath, logger)
		if err != nil {
			logger.Warn("send history disabled", "err", err)
		} else {
			defer histStore.Close()
			retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
			if err := histStore.Prune(ctx, retention); err != nil {
				logger.Warn("cannot prune send history", "err", err)
			}
			recorder = histStore
		}
	}

	var notifier dispatch.Notifier
	if cfg.Notify.Telegram.Enabled {
		tg, err := notify.NewTelegram(notify.TelegramConfig{
			Token:  cfg.Notify.Telegram.Token,
			ChatID: cfg.Notify.Telegram.ChatID,
			Logger: logger,
		})
		if err != nil {
			logger.Warn("telegram notifier disabled", "err", err)
		} else {
			notifier = tg
		}
	}

	selectors, err := browser.LoadSelectors(cfg.Browser.SelectorsPath, logger)
	if err != nil {
		return err
	}

	session, err := browser.NewSession(ctx, browser.SessionConfig{
		ProfileDir:        cfg.Browser.ProfileDir,
		Selectors:         selectors,
		NavigationTimeout: time.Duration(cfg.Browser.NavigationTimeoutSeconds) * time.Second,
		Logger:            logger,
	})
	if err != nil {
		return fmt.Errorf("browser session: %w", err)
	}
	defer session.Close()

	creds := browser.Credentials{
		Email:      cfg.Discord.Email,
		Password:   cfg.Discord.Password,
		ChannelURL: cfg.Discord.ChannelURL,
	}
	if err := session.EnsureLoggedIn(creds); err != nil {
		if notifier != nil {
			_ = notifier.Notify(ctx, "sendbot: session establishment failed: "+err.Error())
		}
		return fmt.Errorf("establish channel session: %w", err)
	}

	dispatcher := dispatch.New(dispatch.Config{
		Submitter: session,
		Recorder:  recorder,
		Notifier:  notifier,
		Logger:    logger,
	})

	fmt.Println("Sending messages. Press Ctrl+C to stop.")
	dispatcher.Run(ctx, entries)

	logger.Info("stopped")
	return nil
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Open the browser at the Discord login page for a manual login",
		Long:  "Opens a visible Chrome window so you can log in by hand. Cookies persist in the profile directory, so later runs skip the credential form.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			applyLogLevel(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			selectors, err := browser.LoadSelectors(cfg.Browser.SelectorsPath, logger)
			if err != nil {
				return err
			}
			session, err := browser.NewSession(ctx, browser.SessionConfig{
				ProfileDir:        cfg.Browser.ProfileDir,
				Selectors:         selectors,
				NavigationTimeout: time.Duration(cfg.Browser.NavigationTimeoutSeconds) * time.Second,
				Logger:            logger,
			})
			if err != nil {
				return fmt.Errorf("browser session: %w", err)
			}
			defer session.Close()

			if err := session.Navigate(selectors.LoginURL); err != nil {
				return err
			}

			logger.Info("browser opened. Please log in manually. Press Ctrl+C when done.")
			<-ctx.Done()
			logger.Info("login session saved", "profile", cfg.Browser.ProfileDir)
			return nil
		},
	}
}
