// Package config provides configuration management for the moose CLI.
package config

import (
	"strconv"
	"time"

	"github.com/jlllyfish/Moose-railway/internal/credential"
)

// Default configuration values.
const (
	DefaultOutput         = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultPort           = 5000
	DefaultSessionTTL     = 30 * time.Minute
	DefaultGristBaseURL   = "https://grist.numerique.gouv.fr"
	DefaultHistoryPath    = ".moose/history.db"
	DefaultSessionSecret  = "moose-dev-secret-change-in-production" //nolint:gosec
	EnvPrefix             = "MOOSE_"
	GristAPIKeyEnv        = "GRIST_API_KEY"
	maxUpwardSearchLevels = 10
)

// Config holds all CLI configuration options.
type Config struct {
	Verbose      bool   `koanf:"verbose" yaml:"verbose"`
	OutputFormat string `koanf:"output" yaml:"output"`
	// ProxyURL is where the pipeline client sends its calls. Empty means the
	// local server at http://localhost:<server.port>.
	ProxyURL string `koanf:"proxy_url" yaml:"proxy_url"`
	// APIKey is the user's Grist token for CLI commands.
	APIKey string `koanf:"api_key" yaml:"api_key"`

	Client    ClientConfig    `koanf:"client" yaml:"client"`
	Server    ServerConfig    `koanf:"server" yaml:"server"`
	Grist     GristConfig     `koanf:"grist" yaml:"grist"`
	RateLimit RateLimitConfig `koanf:"rate_limit" yaml:"rate_limit"`
	History   HistoryConfig   `koanf:"history" yaml:"history"`

	// ProjectRoot is the directory relative paths resolve against.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// ClientConfig configures the pipeline's HTTP client.
type ClientConfig struct {
	// Timeout of zero means no client-side timeout.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

// ServerConfig configures `moose serve`.
type ServerConfig struct {
	Port          int           `koanf:"port" yaml:"port"`
	SessionSecret string        `koanf:"session_secret" yaml:"session_secret"`
	SessionTTL    time.Duration `koanf:"session_ttl" yaml:"session_ttl"`
	Watch         bool          `koanf:"watch" yaml:"watch"`
	NoBrowser     bool          `koanf:"no_browser" yaml:"no_browser"`
}

// GristConfig configures the upstream Grist API used by the proxy.
type GristConfig struct {
	BaseURL string `koanf:"base_url" yaml:"base_url"`
	APIKey  string `koanf:"api_key" yaml:"api_key"`
	// ExcludedTables is appended to the built-in exclusion list.
	ExcludedTables []string `koanf:"excluded_tables" yaml:"excluded_tables"`
}

// RateLimitConfig toggles per-IP limits on the proxy routes.
type RateLimitConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

// HistoryConfig configures the local template history.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Path    string `koanf:"path" yaml:"path"`
}

// EffectiveProxyURL returns ProxyURL or the local server address.
func (c *Config) EffectiveProxyURL() string {
	if c.ProxyURL != "" {
		return c.ProxyURL
	}
	port := c.Server.Port
	if port == 0 {
		port = DefaultPort
	}
	return "http://localhost:" + strconv.Itoa(port)
}

// Redacted returns a copy with secrets masked for display.
func (c *Config) Redacted() Config {
	out := *c
	out.APIKey = credential.Mask(out.APIKey)
	out.Grist.APIKey = credential.Mask(out.Grist.APIKey)
	out.Server.SessionSecret = credential.Mask(out.Server.SessionSecret)
	out.Grist.ExcludedTables = append([]string(nil), c.Grist.ExcludedTables...)
	return out
}
