// Package browser owns the Chrome process behind a tablewatch run: local
// launch (headless or headful under Xvfb) or a remote DevTools endpoint.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Mode controls how Chrome is displayed.
type Mode int

const (
	Headless Mode = iota
	Headful       // real window, on Xvfb when XvfbDisplay is set
)

func (m Mode) String() string {
	if m == Headful {
		return "headful"
	}
	return "headless"
}

// ParseMode maps a config string to a Mode. Unknown values are headless.
func ParseMode(s string) Mode {
	if s == "headful" {
		return Headful
	}
	return Headless
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome.
	RemoteURL string

	Mode Mode

	// XvfbDisplay starts Xvfb on this display for headful mode. Empty uses
	// the host display.
	XvfbDisplay string

	// SlowMotion delays every input action, like a human pacing clicks.
	SlowMotion time.Duration

	// ResourceBlocking lists resource types to block: CDP names ("XHR",
	// "Font") or the plurals images, fonts, stylesheets, scripts.
	ResourceBlocking []string

	// NavigationTimeout bounds the initial page load. Default: 30s.
	NavigationTimeout time.Duration

	// IdleTimeout bounds the wait for network idle after load. Default: 15s.
	IdleTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = 30 * time.Second
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 15 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages the Chrome lifecycle for one run.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	display *virtualDisplay
	blocked blockList
	closed  bool
}

// NewManager creates a browser Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	bl, unknown := newBlockList(cfg.ResourceBlocking)
	if len(unknown) > 0 {
		cfg.Logger.Warn("browser: unknown resource types ignored", "types", unknown)
	}
	return &Manager{cfg: cfg, blocked: bl}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch(ctx)
	if err != nil {
		m.cleanup()
		return nil, err
	}
	m.browser = b
	return b, nil
}

// Browser returns the current Rod browser handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanup()
	return nil
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Mode == Headful && m.cfg.XvfbDisplay != "" && m.display == nil {
		d, err := startDisplay(ctx, m.cfg.XvfbDisplay, log)
		if err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
		m.display = d
	}

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx)
		if m.cfg.Mode == Headful {
			l = l.Headless(false)
			if m.cfg.XvfbDisplay != "" {
				l = l.Env(chromeEnv(m.cfg.XvfbDisplay)...)
			}
		} else {
			l = l.Headless(true)
		}
		// Anti-detection flag.
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "mode", m.cfg.Mode)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if m.cfg.SlowMotion > 0 {
		b = b.SlowMotion(m.cfg.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) cleanup() {
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.display.stop()
	m.display = nil
}
