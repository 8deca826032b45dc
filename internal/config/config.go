// ABOUTME: Configuration loading and parsing for trendclaw
// ABOUTME: Supports YAML or TOML files with env var expansion, env overrides, and duration parsing

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the complete trendclaw configuration
type Config struct {
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Gateway    GatewayConfig    `yaml:"gateway" toml:"gateway"`
	Webhook    WebhookConfig    `yaml:"webhook" toml:"webhook"`
	Database   DatabaseConfig   `yaml:"database" toml:"database"`
	Auth       AuthConfig       `yaml:"auth" toml:"auth"`
	Monitoring MonitoringConfig `yaml:"monitoring" toml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging" toml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds the HTTP listener and the address the gateway calls back on
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	// PublicURL is this service's externally reachable base URL; webhook
	// delivery targets are built from it.
	PublicURL string `yaml:"public_url" toml:"public_url"`
}

// GatewayConfig holds the agent gateway connection settings
type GatewayConfig struct {
	URL   string `yaml:"url" toml:"url"`
	Token string `yaml:"token" toml:"token"`
	// IdentityPath is the device identity file. Empty means the data directory.
	IdentityPath string `yaml:"identity_path" toml:"identity_path"`

	HandshakeTimeout time.Duration `yaml:"-" toml:"-"`
	RequestTimeout   time.Duration `yaml:"-" toml:"-"`
	ReconnectDelay   time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	HandshakeTimeoutRaw string `yaml:"handshake_timeout" toml:"handshake_timeout"`
	RequestTimeoutRaw   string `yaml:"request_timeout" toml:"request_timeout"`
	ReconnectDelayRaw   string `yaml:"reconnect_delay" toml:"reconnect_delay"`
}

// WebhookConfig holds the callback token policy
type WebhookConfig struct {
	Token string `yaml:"token" toml:"token"`
	// AllowUnauthenticated processes callbacks whose token does not match.
	AllowUnauthenticated bool `yaml:"allow_unauthenticated" toml:"allow_unauthenticated"`

	DedupeWindow    time.Duration `yaml:"-" toml:"-"`
	DedupeWindowRaw string        `yaml:"dedupe_window" toml:"dedupe_window"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver" toml:"driver"`
	Path     string `yaml:"path" toml:"path"`
	DSN      string `yaml:"dsn" toml:"dsn"`
	MaxConns int32  `yaml:"max_conns" toml:"max_conns"`
}

// AuthConfig holds tenant API authentication configuration
type AuthConfig struct {
	// JWTSecret verifies tenant API tokens. Empty runs the API as the default tenant.
	JWTSecret string `yaml:"jwt_secret" toml:"jwt_secret"`
}

// MonitoringConfig holds job provisioning settings
type MonitoringConfig struct {
	// MaxClientsPerTenant caps client creation. Zero means unlimited.
	MaxClientsPerTenant int `yaml:"max_clients_per_tenant" toml:"max_clients_per_tenant"`

	Interval    time.Duration `yaml:"-" toml:"-"`
	IntervalRaw string        `yaml:"interval" toml:"interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Default values
const (
	DefaultHTTPAddr     = ":4000"
	DefaultPublicURL    = "http://localhost:4000"
	DefaultGatewayURL   = "ws://localhost:18789"
	DefaultDatabasePath = "./trendclaw.db"
	DefaultMetricsPath  = "/metrics"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Defaults()
	return cfg
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded, then
// defaults and environment overrides are applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return finish(&cfg)
}

// LoadOrDefault loads path, or starts from Default when the file does not
// exist so the service can run from environment variables alone.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return finish(&Config{})
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	cfg.Defaults()
	cfg.applyEnv(os.Getenv)

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Defaults fills unset fields.
func (c *Config) Defaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = DefaultPublicURL
	}
	if c.Gateway.URL == "" {
		c.Gateway.URL = DefaultGatewayURL
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// applyEnv overlays the deployment environment variables, which win over file values.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("OPENCLAW_GATEWAY_URL"); v != "" {
		c.Gateway.URL = v
	}
	if v := getenv("OPENCLAW_GATEWAY_TOKEN"); v != "" {
		c.Gateway.Token = v
	}
	if v := getenv("OPENCLAW_WEBHOOK_TOKEN"); v != "" {
		c.Webhook.Token = v
	}
	if v := getenv("BACKEND_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.HTTPAddr = ":" + v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "postgres://") || strings.HasPrefix(v, "postgresql://") {
			c.Database.Driver = DriverPostgres
			c.Database.DSN = v
		} else {
			c.Database.Driver = DriverSQLite
			c.Database.Path = strings.TrimPrefix(v, "file:")
		}
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}

	u, err := url.Parse(c.Server.PublicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("server.public_url must be an http(s) URL, got %q", c.Server.PublicURL)
	}

	u, err = url.Parse(c.Gateway.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return fmt.Errorf("gateway.url must be a ws(s) URL, got %q", c.Gateway.URL)
	}

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	if c.Monitoring.MaxClientsPerTenant < 0 {
		return fmt.Errorf("monitoring.max_clients_per_tenant must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"gateway.handshake_timeout", cfg.Gateway.HandshakeTimeoutRaw, &cfg.Gateway.HandshakeTimeout},
		{"gateway.request_timeout", cfg.Gateway.RequestTimeoutRaw, &cfg.Gateway.RequestTimeout},
		{"gateway.reconnect_delay", cfg.Gateway.ReconnectDelayRaw, &cfg.Gateway.ReconnectDelay},
		{"webhook.dedupe_window", cfg.Webhook.DedupeWindowRaw, &cfg.Webhook.DedupeWindow},
		{"monitoring.interval", cfg.Monitoring.IntervalRaw, &cfg.Monitoring.Interval},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", f.name, f.raw)
		}
		*f.dst = d
	}

	return nil
}
