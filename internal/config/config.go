package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Config is the root configuration for sendbot.
type Config struct {
	General  GeneralConfig  `json:"general"`
	Discord  DiscordConfig  `json:"discord"`
	Schedule ScheduleConfig `json:"schedule"`
	Browser  BrowserConfig  `json:"browser"`
	History  HistoryConfig  `json:"history"`
	Notify   NotifyConfig   `json:"notify"`
}

type GeneralConfig struct {
	LogLevel string `json:"logLevel"`
}

// DiscordConfig holds the login credentials and the target channel.
// The DISCORD_EMAIL, DISCORD_PASSWORD, and DISCORD_CHANNEL_URL
// environment variables override whatever the file says; most setups
// leave these empty in the file and use the environment only.
type DiscordConfig struct {
	Email      string `json:"email,omitempty"`
	Password   string `json:"password,omitempty"`
	ChannelURL string `json:"channelUrl,omitempty"`
}

type ScheduleConfig struct {
	Path string `json:"path"`
}

type BrowserConfig struct {
	ProfileDir               string `json:"profileDir"`
	SelectorsPath            string `json:"selectorsPath,omitempty"`
	NavigationTimeoutSeconds int    `json:"navigationTimeoutSeconds"`
}

type HistoryConfig struct {
	Enabled       bool   `json:"enabled"`
	DBPath        string `json:"dbPath"`
	RetentionDays int    `json:"retentionDays"`
}

type NotifyConfig struct {
	Telegram TelegramNotifyConfig `json:"telegram"`
}

type TelegramNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	ChatID  int64  `json:"chatId,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.sendbot).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sendbot"
	}
	return filepath.Join(home, ".sendbot")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}

	Finalize(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Finalize expands ~ paths and applies credential environment
// overrides. Callers that skip Load (defaults path) must call it.
func Finalize(cfg *Config) {
	cfg.Schedule.Path = ExpandPath(cfg.Schedule.Path)
	cfg.Browser.ProfileDir = ExpandPath(cfg.Browser.ProfileDir)
	cfg.Browser.SelectorsPath = ExpandPath(cfg.Browser.SelectorsPath)
	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)

	if v := os.Getenv("DISCORD_EMAIL"); v != "" {
		cfg.Discord.Email = v
	}
	if v := os.Getenv("DISCORD_PASSWORD"); v != "" {
		cfg.Discord.Password = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_URL"); v != "" {
		cfg.Discord.ChannelURL = v
	}
}

// RequireCredentials reports which credential values are still
// missing. It gates every command that launches a browser.
func RequireCredentials(cfg *Config) error {
	var missing []string
	if cfg.Discord.Email == "" {
		missing = append(missing, "DISCORD_EMAIL")
	}
	if cfg.Discord.Password == "" {
		missing = append(missing, "DISCORD_PASSWORD")
	}
	if cfg.Discord.ChannelURL == "" {
		missing = append(missing, "DISCORD_CHANNEL_URL")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing credentials: set %s (environment or discord.* config keys)",
			strings.Join(missing, ", "))
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

func Save(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "", "debug", "info", "warn", "error":
		// valid
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Schedule.Path == "" {
		errs = append(errs, "schedule.path must not be empty")
	}
	if cfg.Browser.NavigationTimeoutSeconds < 1 {
		errs = append(errs, "browser.navigationTimeoutSeconds must be >= 1")
	}
	if cfg.History.Enabled {
		if cfg.History.DBPath == "" {
			errs = append(errs, "history.dbPath must not be empty when history is enabled")
		}
		if cfg.History.RetentionDays < 1 {
			errs = append(errs, "history.retentionDays must be >= 1")
		}
	}
	if cfg.Notify.Telegram.Enabled {
		if cfg.Notify.Telegram.Token == "" {
			errs = append(errs, "notify.telegram.token is required when the notifier is enabled")
		}
		if cfg.Notify.Telegram.ChatID == 0 {
			errs = append(errs, "notify.telegram.chatId is required when the notifier is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
