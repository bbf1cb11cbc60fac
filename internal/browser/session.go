package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const (
	// loginProbeWait is how long we look for the channel textbox
	// before deciding the session is not authenticated.
	loginProbeWait = 15 * time.Second

	// interstitialWait bounds the probe for the "open in your
	// browser" interstitial. Its absence is not an error.
	interstitialWait = 5 * time.Second

	submitTimeout = 30 * time.Second
)

// Credentials are the Discord login values and the target channel.
type Credentials struct {
	Email      string
	Password   string
	ChannelURL string
}

// Session owns one visible Chrome instance pointed at a Discord
// channel. The profile directory persists cookies, so a login
// survives restarts and the credential path is skipped.
type Session struct {
	selectors  SelectorSet
	navTimeout time.Duration
	logger     *slog.Logger

	taskCtx context.Context
	cancel  context.CancelFunc

	// submitMu serializes submissions: the channel textbox is a
	// single shared control and interleaved typing from two dispatch
	// loops would garble messages.
	submitMu sync.Mutex
}

type SessionConfig struct {
	ProfileDir        string // Chrome user data directory (persists cookies/sessions)
	Selectors         SelectorSet
	NavigationTimeout time.Duration
	Logger            *slog.Logger
}

// NewSession launches a visible browser. The caller must Close it.
func NewSession(parent context.Context, cfg SessionConfig) (*Session, error) {
	if cfg.ProfileDir == "" {
		home, _ := os.UserHomeDir()
		cfg.ProfileDir = filepath.Join(home, ".sendbot", "chrome-profile")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}
	if err := os.MkdirAll(cfg.ProfileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile dir %s: %w", cfg.ProfileDir, err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserDataDir(cfg.ProfileDir),
		chromedp.Flag("headless", false),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		selectors:  cfg.Selectors,
		navTimeout: cfg.NavigationTimeout,
		logger:     cfg.Logger,
		taskCtx:    taskCtx,
		cancel: func() {
			taskCancel()
			allocCancel()
		},
	}

	// First Run starts the browser process.
	if err := chromedp.Run(taskCtx); err != nil {
		s.cancel()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	cfg.Logger.Info("browser launched", "profile", cfg.ProfileDir)
	return s, nil
}

// EnsureLoggedIn walks the session to the channel view: login page,
// optional interstitial, credential form if the session is stale,
// then the channel itself. It returns only when the message textbox
// is visible; any bounded wait that expires is a fatal error.
func (s *Session) EnsureLoggedIn(creds Credentials) error {
	navCtx, cancel := context.WithTimeout(s.taskCtx, s.navTimeout)
	defer cancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(s.selectors.LoginURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("navigate to login page: %w", err)
	}
	s.dismissInterstitial()

	if err := s.waitForTextbox(loginProbeWait); err != nil {
		s.logger.Info("no active session, submitting credentials")
		if err := s.submitLoginForm(creds); err != nil {
			return err
		}
	} else {
		s.logger.Info("existing session found, skipping login form")
	}

	chanCtx, cancel := context.WithTimeout(s.taskCtx, s.navTimeout)
	defer cancel()
	err = chromedp.Run(chanCtx,
		chromedp.Navigate(creds.ChannelURL),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("navigate to channel: %w", err)
	}
	s.dismissInterstitial()

	if err := s.waitForTextbox(s.navTimeout); err != nil {
		return fmt.Errorf("channel message input never became ready: %w", err)
	}

	s.logger.Info("channel ready", "url", creds.ChannelURL)
	return nil
}

func (s *Session) submitLoginForm(creds Credentials) error {
	loginCtx, cancel := context.WithTimeout(s.taskCtx, s.navTimeout)
	defer cancel()

	err := chromedp.Run(loginCtx,
		chromedp.WaitVisible(s.selectors.EmailInput, chromedp.ByQuery),
		chromedp.SendKeys(s.selectors.EmailInput, creds.Email, chromedp.ByQuery),
		chromedp.SendKeys(s.selectors.PasswordInput, creds.Password, chromedp.ByQuery),
		chromedp.Click(s.selectors.LoginSubmit, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit login form: %w", err)
	}
	return nil
}

// dismissInterstitial clicks the "open in your browser" button if it
// shows up within the probe window. Not finding it is fine.
func (s *Session) dismissInterstitial() {
	probeCtx, cancel := context.WithTimeout(s.taskCtx, interstitialWait)
	defer cancel()

	script := fmt.Sprintf(`(function() {
		var buttons = document.querySelectorAll('button');
		for (var i = 0; i < buttons.length; i++) {
			if (buttons[i].textContent.indexOf(%q) !== -1) {
				buttons[i].click();
				return true;
			}
		}
		return false;
	})()`, s.selectors.OpenInBrowser)

	for {
		var clicked bool
		if err := chromedp.Run(probeCtx, chromedp.Evaluate(script, &clicked)); err != nil {
			return
		}
		if clicked {
			s.logger.Debug("dismissed open-in-browser interstitial")
			return
		}
		select {
		case <-probeCtx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Session) waitForTextbox(timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(s.taskCtx, timeout)
	defer cancel()
	return chromedp.Run(waitCtx, chromedp.WaitVisible(s.selectors.Textbox, chromedp.ByQuery))
}

// Submit types text into the channel textbox and presses Enter.
// Submissions are serialized across dispatch loops.
func (s *Session) Submit(ctx context.Context, text string) error {
	s.submitMu.Lock()
	defer s.submitMu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	subCtx, cancel := context.WithTimeout(s.taskCtx, submitTimeout)
	defer cancel()

	clearScript := fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		if (el) {
			el.focus();
			document.execCommand('selectAll', false, null);
			document.execCommand('delete', false, null);
		}
	})()`, s.selectors.Textbox)

	err := chromedp.Run(subCtx,
		chromedp.WaitVisible(s.selectors.Textbox, chromedp.ByQuery),
		chromedp.Click(s.selectors.Textbox, chromedp.ByQuery),
		chromedp.Evaluate(clearScript, nil),
		chromedp.SendKeys(s.selectors.Textbox, text+kb.Enter, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit message: %w", err)
	}
	return nil
}

// Navigate opens a URL in the session's page.
func (s *Session) Navigate(url string) error {
	navCtx, cancel := context.WithTimeout(s.taskCtx, s.navTimeout)
	defer cancel()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Close tears the browser down.
func (s *Session) Close() {
	s.cancel()
}
