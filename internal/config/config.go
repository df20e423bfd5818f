// Package config handles loading and managing chatscout configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// SlackConfig holds connection settings for the chat platform API.
type SlackConfig struct {
	Token         string `toml:"token"`          // Bearer token; SLACK_TOKEN env wins
	BaseURL       string `toml:"base_url"`       // API base URL (default: https://slack.com/api)
	TimeoutSecs   int    `toml:"timeout_secs"`   // Per-request socket timeout
	MaxConcurrent int    `toml:"max_concurrent"` // Concurrent in-flight request bound
	PageSize      int    `toml:"page_size"`      // Results per search page
	PageDelayMs   int    `toml:"page_delay_ms"`  // Inter-page delay during pagination
	DefaultLimit  int    `toml:"default_limit"`  // Default search result limit
}

// CacheConfig holds TTL and capacity settings for the in-memory caches.
type CacheConfig struct {
	DirectoryTTLHours int `toml:"directory_ttl_hours"` // User/channel directory TTL
	SearchTTLMinutes  int `toml:"search_ttl_minutes"`  // Search-result memo TTL
	SearchCapacity    int `toml:"search_capacity"`     // Search-result memo entry cap
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort     int      `toml:"api_port"`     // HTTP server port (default: 8080)
	BindAddr    string   `toml:"bind_addr"`    // Bind address (default: 127.0.0.1)
	APIKey      string   `toml:"api_key"`      // API authentication key
	CORSOrigins []string `toml:"cors_origins"` // Allowed CORS origins; empty disables CORS
	MCPEnabled  bool     `toml:"mcp_enabled"`  // Enable MCP server endpoint
}

// ValidateSecure rejects configurations that expose an unauthenticated
// server on a non-loopback interface.
func (s *ServerConfig) ValidateSecure() error {
	if s.BindAddr == "" || s.BindAddr == "127.0.0.1" || s.BindAddr == "localhost" || s.BindAddr == "::1" {
		return nil
	}
	if s.APIKey == "" {
		return fmt.Errorf("refusing to bind %s without [server] api_key set", s.BindAddr)
	}
	return nil
}

// Config represents the chatscout configuration.
type Config struct {
	Slack  SlackConfig  `toml:"slack"`
	Cache  CacheConfig  `toml:"cache"`
	Server ServerConfig `toml:"server"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default chatscout home directory.
// Respects CHATSCOUT_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("CHATSCOUT_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chatscout"
	}
	return filepath.Join(home, ".chatscout")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.chatscout/config.toml).
// A non-empty home overrides CHATSCOUT_HOME.
func Load(path, home string) (*Config, error) {
	homeDir := home
	if homeDir == "" {
		homeDir = DefaultHome()
	}

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		// Defaults
		Slack: SlackConfig{
			BaseURL:       "https://slack.com/api",
			TimeoutSecs:   30,
			MaxConcurrent: 3,
			PageSize:      100,
			PageDelayMs:   100,
			DefaultLimit:  100,
		},
		Cache: CacheConfig{
			DirectoryTTLHours: 24,
			SearchTTLMinutes:  5,
			SearchCapacity:    50,
		},
		Server: ServerConfig{
			APIPort:    8080,
			MCPEnabled: false,
		},
	}

	// Config file is optional - use defaults if not present
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}

	// Environment token overrides the file so the token never has to be
	// written to disk.
	if tok := os.Getenv("SLACK_TOKEN"); tok != "" {
		cfg.Slack.Token = tok
	}

	return cfg, nil
}

// EnsureHomeDir creates the home directory if it does not exist.
func (c *Config) EnsureHomeDir() error {
	return os.MkdirAll(c.HomeDir, 0o700)
}

// ConfigFilePath returns the path of the config file in use.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.HomeDir, "config.toml")
}

// RequestTimeout returns the per-request socket timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Slack.TimeoutSecs) * time.Second
}

// PageDelay returns the fixed delay between pagination requests.
func (c *Config) PageDelay() time.Duration {
	return time.Duration(c.Slack.PageDelayMs) * time.Millisecond
}

// DirectoryTTL returns the user/channel directory cache TTL.
func (c *Config) DirectoryTTL() time.Duration {
	return time.Duration(c.Cache.DirectoryTTLHours) * time.Hour
}

// SearchTTL returns the search-result memo TTL.
func (c *Config) SearchTTL() time.Duration {
	return time.Duration(c.Cache.SearchTTLMinutes) * time.Minute
}
