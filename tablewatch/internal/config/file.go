// Package config handles tablewatch configuration from YAML files and the
// environment.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the login credentials.
const (
	EnvEmail = "TABLEWATCH_EMAIL"
	EnvCode  = "TABLEWATCH_CODE"
)

// Config is the top-level tablewatch configuration.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser"`
	Site      SiteConfig      `yaml:"site"`
	Login     LoginConfig     `yaml:"login"`
	Lobby     LobbyConfig     `yaml:"lobby"`
	Selectors SelectorsConfig `yaml:"selectors"`
	Hunt      HuntConfig      `yaml:"hunt"`
	Observe   ObserveConfig   `yaml:"observe"`
	Status    StatusConfig    `yaml:"status"`
	Sinks     []SinkConfig    `yaml:"sinks"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	Mode              string        `yaml:"mode"` // headless | headful
	XvfbDisplay       string        `yaml:"xvfb_display"`
	SlowMotion        time.Duration `yaml:"slow_motion"`
	ResourceBlocking  []string      `yaml:"resource_blocking"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	ActionTimeout     time.Duration `yaml:"action_timeout"`
}

// SiteConfig points at the game client.
type SiteConfig struct {
	URL string `yaml:"url"`
}

// LoginConfig holds the sign-in credentials and diagnostics.
type LoginConfig struct {
	Email           string        `yaml:"email"`
	Code            string        `yaml:"code"`
	ScreenshotDir   string        `yaml:"screenshot_dir"`
	TutorialTimeout time.Duration `yaml:"tutorial_timeout"`
	TutorialSettle  time.Duration `yaml:"tutorial_settle"`
	EmailTimeout    time.Duration `yaml:"email_timeout"`
	CodeTimeout     time.Duration `yaml:"code_timeout"`
	LobbySettle     time.Duration `yaml:"lobby_settle"`
}

// LobbyConfig lists the menu buttons leading to the spectator table list.
type LobbyConfig struct {
	Path    []string      `yaml:"path"`
	Timeout time.Duration `yaml:"timeout"`
	Settle  time.Duration `yaml:"settle"`
}

// SelectorsConfig holds the table-screen selectors.
type SelectorsConfig struct {
	Target     string `yaml:"target"`      // tournament indicator
	NextTable  string `yaml:"next_table"`  // switch table control
	RoundLabel string `yaml:"round_label"` // text containing the round number
	Badge      string `yaml:"badge"`       // fmt pattern, %s = nord|sud|est|ouest
}

// HuntConfig bounds the table hunt.
type HuntConfig struct {
	MaxAttempts  int           `yaml:"max_attempts"`
	Settle       time.Duration `yaml:"settle"`
	SwitchSettle time.Duration `yaml:"switch_settle"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
}

// ObserveConfig tunes the round watch loop.
type ObserveConfig struct {
	PollInterval  time.Duration `yaml:"poll_interval"`
	RoundTimeout  time.Duration `yaml:"round_timeout"`
	PlayerTimeout time.Duration `yaml:"player_timeout"`
	Policy        string        `yaml:"policy"` // record_all | full_table
}

// StatusConfig enables the HTTP status endpoint.
type StatusConfig struct {
	Addr string `yaml:"addr"`
	MCP  bool   `yaml:"mcp"`
	// Heartbeat is the liveness row interval, written when a sqlite sink
	// is configured.
	Heartbeat time.Duration `yaml:"heartbeat"`
}

// SinkConfig defines an output backend.
type SinkConfig struct {
	Type string `yaml:"type"` // stdout | webhook | sqlite
	URL  string `yaml:"url"`  // webhook
	Path string `yaml:"path"` // sqlite

	// Webhook delivery tuning, zero for the sink defaults.
	Attempts int           `yaml:"attempts"`
	Backoff  time.Duration `yaml:"backoff"`
}

// LoadFile reads a YAML configuration file, applies the environment and
// fills defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// ApplyEnv overrides credentials from TABLEWATCH_EMAIL / TABLEWATCH_CODE.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvEmail); v != "" {
		c.Login.Email = v
	}
	if v := os.Getenv(EnvCode); v != "" {
		c.Login.Code = v
	}
}

// ApplyDefaults fills every zero value with its default.
func (c *Config) ApplyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.Browser.IdleTimeout <= 0 {
		c.Browser.IdleTimeout = 15 * time.Second
	}
	if c.Browser.ActionTimeout <= 0 {
		c.Browser.ActionTimeout = 10 * time.Second
	}
	if c.Login.TutorialTimeout <= 0 {
		c.Login.TutorialTimeout = 10 * time.Second
	}
	if c.Login.TutorialSettle <= 0 {
		c.Login.TutorialSettle = time.Second
	}
	if c.Login.EmailTimeout <= 0 {
		c.Login.EmailTimeout = 5 * time.Second
	}
	if c.Login.CodeTimeout <= 0 {
		c.Login.CodeTimeout = 30 * time.Second
	}
	if c.Login.LobbySettle <= 0 {
		c.Login.LobbySettle = 5 * time.Second
	}
	if c.Site.URL == "" {
		c.Site.URL = "https://app.belote-rebelote.fr/"
	}
	if len(c.Lobby.Path) == 0 {
		c.Lobby.Path = []string{
			`button[data-i18n="gui.lobby.mode.belote"]`,
			`button[data-i18n="gui.lobby.online"]`,
			`button[data-i18n="gui.lobby.spectator"]`,
			`button[data-i18n="gui.lobby.variant.tournament"]`,
		}
	}
	if c.Lobby.Timeout <= 0 {
		c.Lobby.Timeout = 10 * time.Second
	}
	if c.Lobby.Settle <= 0 {
		c.Lobby.Settle = time.Second
	}
	if c.Selectors.Target == "" {
		c.Selectors.Target = "#tournamentMatchInfo"
	}
	if c.Selectors.NextTable == "" {
		c.Selectors.NextTable = `button[data-i18n="gui.table.spectator.next"]`
	}
	if c.Selectors.RoundLabel == "" {
		c.Selectors.RoundLabel = "#roundNumber"
	}
	if c.Selectors.Badge == "" {
		c.Selectors.Badge = "#%s div[data-role='badge']"
	}
	if c.Hunt.MaxAttempts <= 0 {
		c.Hunt.MaxAttempts = 20
	}
	if c.Hunt.Settle <= 0 {
		c.Hunt.Settle = 2 * time.Second
	}
	if c.Hunt.SwitchSettle <= 0 {
		c.Hunt.SwitchSettle = 3 * time.Second
	}
	if c.Hunt.ProbeTimeout <= 0 {
		c.Hunt.ProbeTimeout = time.Second
	}
	if c.Observe.PollInterval <= 0 {
		c.Observe.PollInterval = time.Second
	}
	if c.Observe.RoundTimeout <= 0 {
		c.Observe.RoundTimeout = time.Second
	}
	if c.Observe.PlayerTimeout <= 0 {
		c.Observe.PlayerTimeout = 2 * time.Second
	}
	if c.Status.Heartbeat <= 0 {
		c.Status.Heartbeat = 15 * time.Second
	}
	if c.Observe.Policy == "" {
		c.Observe.Policy = "record_all"
	}
}

// Validate rejects values that defaults cannot repair. Call it after
// ApplyDefaults.
func (c *Config) Validate() error {
	if err := checkBadge(c.Selectors.Badge); err != nil {
		return err
	}
	switch c.Observe.Policy {
	case "record_all", "full_table":
	default:
		return fmt.Errorf("config: observe.policy %q: want record_all or full_table", c.Observe.Policy)
	}
	return nil
}

// checkBadge accepts a selector pattern holding exactly one %s, where the
// seat id goes. A literal percent is written %%.
func checkBadge(p string) error {
	seats := 0
	for i := 0; i < len(p); i++ {
		if p[i] != '%' {
			continue
		}
		if i+1 == len(p) {
			return fmt.Errorf("config: selectors.badge %q: trailing %%", p)
		}
		i++
		switch p[i] {
		case '%':
		case 's':
			seats++
		default:
			return fmt.Errorf("config: selectors.badge %q: verb %%%c, only %%s is allowed", p, p[i])
		}
	}
	if seats != 1 {
		return fmt.Errorf("config: selectors.badge %q: want one %%s for the seat, found %d", p, seats)
	}
	return nil
}
