// Package login brings a fresh tab from the site's landing page to the
// spectator table list: tutorial dismissal, email + code sign-in, then
// menu navigation.
package login

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hazyhaar/tablewatch/tablewatch/internal/probe"
)

// ErrEmailButton means the email sign-in entry point never showed up.
// The run cannot continue without it.
var ErrEmailButton = errors.New("login: email button not found")

// ErrCodePrompt means the verification code input never showed up.
var ErrCodePrompt = errors.New("login: verification code prompt not found")

// Selectors of the sign-in screens.
type Selectors struct {
	TutorialDismiss string
	EmailButton     string
	EmailInput      string
	EmailContinue   string
	CodeInput       string
	CodeSubmit      string
}

// DefaultSelectors match app.belote-rebelote.fr.
var DefaultSelectors = Selectors{
	TutorialDismiss: `button[data-i18n="gui.quick-start.launch.no"]`,
	EmailButton:     `button[data-icon="email"]`,
	EmailInput:      `input[placeholder="Adresse électronique"]`,
	EmailContinue:   `button[data-i18n="gui.users.email-wizard.continue"]`,
	CodeInput:       `#verificationCode`,
	CodeSubmit:      `#validateBtn`,
}

// Config for a sign-in.
type Config struct {
	Email     string
	Code      string
	Selectors Selectors

	// TutorialTimeout bounds the wait for the tutorial popup. Default: 10s.
	TutorialTimeout time.Duration
	// TutorialSettle is waited after dismissing the tutorial. Default: 1s.
	TutorialSettle time.Duration
	// EmailTimeout bounds the wait for the email button. Default: 5s.
	EmailTimeout time.Duration
	// CodeTimeout bounds the wait for the code prompt. Default: 30s.
	CodeTimeout time.Duration
	// LobbySettle is waited after submitting the code. Default: 5s.
	LobbySettle time.Duration
	// ScreenshotDir receives diagnostic captures. Empty disables them.
	ScreenshotDir string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Selectors == (Selectors{}) {
		c.Selectors = DefaultSelectors
	}
	if c.TutorialTimeout <= 0 {
		c.TutorialTimeout = 10 * time.Second
	}
	if c.TutorialSettle <= 0 {
		c.TutorialSettle = time.Second
	}
	if c.EmailTimeout <= 0 {
		c.EmailTimeout = 5 * time.Second
	}
	if c.CodeTimeout <= 0 {
		c.CodeTimeout = 30 * time.Second
	}
	if c.LobbySettle <= 0 {
		c.LobbySettle = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// SignIn runs the email + fixed code sign-in on p.
func SignIn(ctx context.Context, p probe.Probe, cfg Config) error {
	cfg.defaults()
	log := cfg.Logger
	sel := cfg.Selectors

	if cfg.Email == "" || cfg.Code == "" {
		return fmt.Errorf("login: email and code are required")
	}

	if p.Visible(ctx, sel.TutorialDismiss, cfg.TutorialTimeout) {
		log.Info("login: dismissing tutorial")
		if err := p.Click(ctx, sel.TutorialDismiss); err != nil {
			log.Warn("login: tutorial dismiss failed", "error", err)
		}
		if err := probe.Wait(ctx, cfg.TutorialSettle); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	} else {
		log.Info("login: no tutorial popup")
	}

	if !p.Visible(ctx, sel.EmailButton, cfg.EmailTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		capture(ctx, p, cfg, "debug_erreur_bouton.png")
		return ErrEmailButton
	}
	if err := p.Click(ctx, sel.EmailButton); err != nil {
		capture(ctx, p, cfg, "debug_erreur_bouton.png")
		return fmt.Errorf("login: email button: %w", err)
	}

	log.Info("login: submitting email")
	if err := p.Fill(ctx, sel.EmailInput, cfg.Email); err != nil {
		return fmt.Errorf("login: email input: %w", err)
	}
	if err := p.Click(ctx, sel.EmailContinue); err != nil {
		return fmt.Errorf("login: email continue: %w", err)
	}

	if !p.Visible(ctx, sel.CodeInput, cfg.CodeTimeout) {
		if err := ctx.Err(); err != nil {
			return err
		}
		capture(ctx, p, cfg, "debug_code.png")
		return ErrCodePrompt
	}
	log.Info("login: submitting verification code")
	if err := p.Fill(ctx, sel.CodeInput, cfg.Code); err != nil {
		return fmt.Errorf("login: code input: %w", err)
	}
	if err := p.Click(ctx, sel.CodeSubmit); err != nil {
		return fmt.Errorf("login: code submit: %w", err)
	}

	if err := probe.Wait(ctx, cfg.LobbySettle); err != nil {
		return err
	}
	capture(ctx, p, cfg, "lobby_final.png")
	log.Info("login: reached lobby")
	return nil
}

// Navigate clicks through menu buttons in order, e.g. mode, online,
// spectator, variant. Each must appear within timeout; settle is waited
// after every click.
func Navigate(ctx context.Context, p probe.Probe, path []string, timeout, settle time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for i, sel := range path {
		if !p.Visible(ctx, sel, timeout) {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("login: menu step %d %s: %w", i+1, sel, probe.ErrElementNotFound)
		}
		if err := p.Click(ctx, sel); err != nil {
			return fmt.Errorf("login: menu step %d %s: %w", i+1, sel, err)
		}
		logger.Debug("login: menu step", "step", i+1, "selector", sel)
		if err := probe.Wait(ctx, settle); err != nil {
			return err
		}
	}
	return nil
}

func capture(ctx context.Context, p probe.Probe, cfg Config, name string) {
	if cfg.ScreenshotDir == "" {
		return
	}
	path := filepath.Join(cfg.ScreenshotDir, name)
	if err := p.Screenshot(ctx, path); err != nil {
		cfg.Logger.Warn("login: screenshot failed", "path", path, "error", err)
		return
	}
	cfg.Logger.Info("login: screenshot saved", "path", path)
}
