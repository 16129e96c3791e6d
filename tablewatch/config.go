package tablewatch

import (
	"github.com/hazyhaar/tablewatch/tablewatch/internal/config"
)

// Config is the top-level tablewatch configuration. Re-exported from internal.
type Config = config.Config

// BrowserConfig controls Chrome.
type BrowserConfig = config.BrowserConfig

// SiteConfig points at the game client.
type SiteConfig = config.SiteConfig

// LoginConfig holds the sign-in credentials.
type LoginConfig = config.LoginConfig

// LobbyConfig lists the menu path to the spectator tables.
type LobbyConfig = config.LobbyConfig

// SelectorsConfig holds the table-screen selectors.
type SelectorsConfig = config.SelectorsConfig

// HuntConfig bounds the table hunt.
type HuntConfig = config.HuntConfig

// ObserveConfig tunes the round watch loop.
type ObserveConfig = config.ObserveConfig

// StatusConfig enables the HTTP status endpoint.
type StatusConfig = config.StatusConfig

// SinkConfig defines an output backend.
type SinkConfig = config.SinkConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns a configuration with every default filled and the
// credentials taken from the environment.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyEnv()
	cfg.ApplyDefaults()
	return cfg
}
