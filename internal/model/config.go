package model

import (
	"errors"
	"fmt"
	"time"
)

// Config is the complete truescope configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Enrich    EnrichConfig    `yaml:"enrich" mapstructure:"enrich"`
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Listen          string        `yaml:"listen" mapstructure:"listen"`
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// StoreConfig configures the claim database
type StoreConfig struct {
	Path        string        `yaml:"path" mapstructure:"path"` // SQLite file, or ":memory:"
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

// AuthConfig configures bearer credential verification
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// EnrichConfig configures metadata enrichment of URL claims
type EnrichConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"` // Hard budget per claim
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots     bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	AllowPrivateHosts bool          `yaml:"allow_private_hosts" mapstructure:"allow_private_hosts"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"` // Per target host
	Burst             int           `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy        string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy           string        `yaml:"no_proxy" mapstructure:"no_proxy"`
	Cache             CacheConfig   `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig configures the enrichment result cache
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir     string        `yaml:"dir" mapstructure:"dir"` // Empty keeps the cache in memory only
}

// RateLimitConfig configures per-client API rate limiting
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or text
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:          ":4000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Store: StoreConfig{
			Path:        "truescope.db",
			BusyTimeout: 10 * time.Second,
		},
		Enrich: EnrichConfig{
			Enabled:           true,
			Timeout:           5 * time.Second,
			UserAgent:         "TrueScope/0.1 (+https://github.com/ppiankov/truescope)",
			MaxBodyBytes:      1 << 20,
			RespectRobots:     true,
			RequestsPerSecond: 1,
			Burst:             3,
			Cache: CacheConfig{
				Enabled: true,
				TTL:     6 * time.Hour,
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 2, // 120 per minute sustained
			Burst:             2,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the settings the server cannot run without
func (c *Config) Validate() error {
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required (set TRUESCOPE_AUTH_JWT_SECRET)")
	}
	if c.Enrich.Enabled && c.Enrich.Timeout <= 0 {
		return fmt.Errorf("enrich.timeout must be > 0, got %v", c.Enrich.Timeout)
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be > 0, got %v", c.RateLimit.RequestsPerSecond)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}
