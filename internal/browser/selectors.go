package browser

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// SelectorSet contains the DOM selectors used to drive the Discord
// web client. Discord changes its markup from time to time, so every
// selector can be overridden from a YAML file without rebuilding.
type SelectorSet struct {
	LoginURL      string `yaml:"loginUrl"`      // login entry point
	Textbox       string `yaml:"textbox"`       // channel message input
	EmailInput    string `yaml:"emailInput"`    // login form email field
	PasswordInput string `yaml:"passwordInput"` // login form password field
	LoginSubmit   string `yaml:"loginSubmit"`   // login form submit button
	OpenInBrowser string `yaml:"openInBrowser"` // interstitial button text, matched by substring
}

// DefaultSelectors returns the selectors for the Discord web client.
func DefaultSelectors() SelectorSet {
	return SelectorSet{
		LoginURL:      "https://discord.com/login",
		Textbox:       `div[role="textbox"]`,
		EmailInput:    `input[name="email"]`,
		PasswordInput: `input[name="password"]`,
		LoginSubmit:   `button[type="submit"]`,
		OpenInBrowser: "Open Discord in your browser",
	}
}

// LoadSelectors reads selector overrides from a YAML file and merges
// non-empty fields over the defaults. A missing file means defaults.
func LoadSelectors(path string, logger *slog.Logger) (SelectorSet, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("selectors file does not exist, using defaults", "path", path)
			return sel, nil
		}
		return sel, fmt.Errorf("read selectors file: %w", err)
	}

	var override SelectorSet
	if err := yaml.Unmarshal(data, &override); err != nil {
		return sel, fmt.Errorf("parse selectors file %s: %w", path, err)
	}

	if override.LoginURL != "" {
		sel.LoginURL = override.LoginURL
	}
	if override.Textbox != "" {
		sel.Textbox = override.Textbox
	}
	if override.EmailInput != "" {
		sel.EmailInput = override.EmailInput
	}
	if override.PasswordInput != "" {
		sel.PasswordInput = override.PasswordInput
	}
	if override.LoginSubmit != "" {
		sel.LoginSubmit = override.LoginSubmit
	}
	if override.OpenInBrowser != "" {
		sel.OpenInBrowser = override.OpenInBrowser
	}

	logger.Info("loaded selector overrides", "path", path)
	return sel, nil
}
