package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "loud"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	for _, level := range []string{"", "debug", "info", "warn", "error"} {
		cfg := Defaults()
		cfg.General.LogLevel = level
		if err := Validate(cfg); err != nil {
			t.Fatalf("log level %q should be valid: %v", level, err)
		}
	}
}

func TestValidate_EmptySchedulePath(t *testing.T) {
	cfg := Defaults()
	cfg.Schedule.Path = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for empty schedule path")
	}
}

func TestValidate_NavigationTimeout(t *testing.T) {
	cfg := Defaults()
	cfg.Browser.NavigationTimeoutSeconds = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for navigationTimeoutSeconds=0")
	}
}

func TestValidate_HistoryRetention(t *testing.T) {
	cfg := Defaults()
	cfg.History.RetentionDays = 0
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for retentionDays=0 with history enabled")
	}

	cfg = Defaults()
	cfg.History.Enabled = false
	cfg.History.RetentionDays = 0
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled history should skip retention check: %v", err)
	}
}

func TestValidate_NotifierRequiresToken(t *testing.T) {
	cfg := Defaults()
	cfg.Notify.Telegram.Enabled = true
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled notifier without token/chatId")
	}

	cfg.Notify.Telegram.Token = "123:abc"
	cfg.Notify.Telegram.ChatID = 42
	if err := Validate(cfg); err != nil {
		t.Fatalf("configured notifier should be valid: %v", err)
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.LogLevel = "debug"
	original.Schedule.Path = filepath.Join(dir, "schedule.json")

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.General.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %q", loaded.General.LogLevel)
	}
	if loaded.Schedule.Path != original.Schedule.Path {
		t.Fatalf("schedule path did not round-trip: %q", loaded.Schedule.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

// --- Env expansion / credentials ---

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("SENDBOT_TEST_VAR", "hello")
	got := ExpandEnvVars(`{"a": "${SENDBOT_TEST_VAR}"}`)
	if got != `{"a": "hello"}` {
		t.Fatalf("unexpected expansion: %s", got)
	}
}

func TestExpandEnvVars_Default(t *testing.T) {
	os.Unsetenv("SENDBOT_UNSET_VAR")
	got := ExpandEnvVars("${SENDBOT_UNSET_VAR:-fallback}")
	if got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestExpandEnvVars_UnsetNoDefault(t *testing.T) {
	os.Unsetenv("SENDBOT_UNSET_VAR")
	got := ExpandEnvVars("${SENDBOT_UNSET_VAR}")
	if got != "${SENDBOT_UNSET_VAR}" {
		t.Fatalf("expected original text kept, got %q", got)
	}
}

func TestFinalize_EnvOverridesFile(t *testing.T) {
	t.Setenv("DISCORD_EMAIL", "env@example.com")
	t.Setenv("DISCORD_PASSWORD", "env-secret")
	t.Setenv("DISCORD_CHANNEL_URL", "https://discord.com/channels/1/2")

	cfg := Defaults()
	cfg.Discord.Email = "file@example.com"
	Finalize(cfg)

	if cfg.Discord.Email != "env@example.com" {
		t.Fatalf("env should win, got %q", cfg.Discord.Email)
	}
	if err := RequireCredentials(cfg); err != nil {
		t.Fatalf("credentials should be complete: %v", err)
	}
}

func TestRequireCredentials_Missing(t *testing.T) {
	t.Setenv("DISCORD_EMAIL", "")
	t.Setenv("DISCORD_PASSWORD", "")
	t.Setenv("DISCORD_CHANNEL_URL", "")
	cfg := Defaults()
	err := RequireCredentials(cfg)
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, name := range []string{"DISCORD_EMAIL", "DISCORD_PASSWORD", "DISCORD_CHANNEL_URL"} {
		if !strings.Contains(err.Error(), name) {
			t.Fatalf("error should name %s: %v", name, err)
		}
	}
}

// --- Accessor ---

func TestGetByPath(t *testing.T) {
	cfg := Defaults()
	val, err := GetByPath(cfg, "general.logLevel")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "info" {
		t.Fatalf("expected info, got %v", val)
	}
}

func TestGetByPath_Unknown(t *testing.T) {
	if _, err := GetByPath(Defaults(), "general.nothing"); err == nil {
		t.Fatal("expected error for unknown path")
	}
}

func TestSetByPath(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "browser.navigationTimeoutSeconds", "120"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Browser.NavigationTimeoutSeconds != 120 {
		t.Fatalf("expected 120, got %d", cfg.Browser.NavigationTimeoutSeconds)
	}

	if err := SetByPath(cfg, "history.enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.History.Enabled {
		t.Fatal("expected history disabled")
	}
}

func TestListPaths(t *testing.T) {
	cfg := Defaults()
	paths := ListPaths(cfg)
	if paths == nil {
		t.Fatal("expected flattened paths")
	}

	if got := paths["general.logLevel"]; got != "info" {
		t.Fatalf("expected general.logLevel=info, got %v", got)
	}
	// JSON numbers flatten to float64.
	if got := paths["browser.navigationTimeoutSeconds"]; got != float64(60) {
		t.Fatalf("expected browser.navigationTimeoutSeconds=60, got %v", got)
	}
	if got := paths["notify.telegram.enabled"]; got != false {
		t.Fatalf("expected notify.telegram.enabled=false, got %v", got)
	}

	// Flattening must leave no nested maps behind.
	for path, val := range paths {
		if _, ok := val.(map[string]any); ok {
			t.Fatalf("path %s still holds a nested map", path)
		}
	}
}

func TestSanitize(t *testing.T) {
	cfg := Defaults()
	cfg.Discord.Password = "super-secret-password"
	cfg.Discord.Email = "someone@example.com"
	cfg.Notify.Telegram.Token = "1234567890:telegram-token"

	clean := Sanitize(cfg)
	if clean.Discord.Password != "***" {
		t.Fatalf("password not masked: %q", clean.Discord.Password)
	}
	if clean.Discord.Email == cfg.Discord.Email {
		t.Fatal("email not masked")
	}
	if clean.Notify.Telegram.Token == cfg.Notify.Telegram.Token {
		t.Fatal("token not masked")
	}
	// Original untouched.
	if cfg.Discord.Password != "super-secret-password" {
		t.Fatal("sanitize must not mutate the original")
	}
}
