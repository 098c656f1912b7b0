// Package config loads service configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/dabbahouse/foodorder/pkg/logger"
)

// EnvConfigPath names the variable consulted when no explicit path is given.
const EnvConfigPath = "FOODORDER_CONFIG"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Database  DatabaseConfig       `yaml:"database"`
	Sessions  SessionConfig        `yaml:"sessions"`
	Admin     AdminConfig          `yaml:"admin"`
	OAuth     OAuthConfig          `yaml:"oauth"`
	Orders    OrdersConfig         `yaml:"orders"`
	RateLimit RateLimitConfig      `yaml:"rate_limit"`
	Audit     AuditConfig          `yaml:"audit"`
	Janitor   JanitorConfig        `yaml:"janitor"`
	Logging   logger.LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host" env:"SERVER_HOST"`
	Port         int           `yaml:"port" env:"PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	CORSOrigins  string        `yaml:"cors_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AllowedOrigins splits the comma separated origin list.
func (c ServerConfig) AllowedOrigins() []string {
	var out []string
	for origin := range ParseCSVSet(c.CORSOrigins) {
		out = append(out, origin)
	}
	return out
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"DATABASE_CONN_MAX_LIFETIME"`
	Migrate         bool   `yaml:"migrate" env:"DATABASE_MIGRATE"`
}

// Enabled reports whether a SQL database is configured.
func (c DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != ""
}

type SessionConfig struct {
	Secret        string        `yaml:"secret" env:"SESSION_SECRET"`
	Lifetime      time.Duration `yaml:"lifetime" env:"SESSION_LIFETIME"`
	Store         string        `yaml:"store" env:"SESSION_STORE"`
	RedisAddr     string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `yaml:"redis_db" env:"REDIS_DB"`
	CookieSecure  bool          `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE"`
}

type AdminConfig struct {
	AllowedEmails string `yaml:"allowed_emails" env:"ADMIN_EMAILS"`
}

// Allowlist returns the lower-cased admin registration allow-list.
func (c AdminConfig) Allowlist() map[string]struct{} {
	return ParseCSVSet(strings.ToLower(c.AllowedEmails))
}

type OAuthConfig struct {
	GoogleClientID     string `yaml:"google_client_id" env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `yaml:"google_client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL        string `yaml:"redirect_url" env:"GOOGLE_REDIRECT_URL"`
	UserInfoURL        string `yaml:"userinfo_url" env:"GOOGLE_USERINFO_URL"`
	SuccessRedirect    string `yaml:"success_redirect" env:"OAUTH_SUCCESS_REDIRECT"`
}

// Enabled reports whether Google sign-in is configured.
func (c OAuthConfig) Enabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

type OrdersConfig struct {
	StrictTransitions bool `yaml:"strict_transitions" env:"ORDERS_STRICT_TRANSITIONS"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

type AuditConfig struct {
	Path string `yaml:"path" env:"AUDIT_LOG_PATH"`
	Size int    `yaml:"size" env:"AUDIT_LOG_SIZE"`
}

type JanitorConfig struct {
	Schedule string `yaml:"schedule" env:"JANITOR_SCHEDULE"`
}

// Default returns a configuration suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
			CORSOrigins:  "http://localhost:3000,http://localhost:5173",
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 300,
		},
		Sessions: SessionConfig{
			Lifetime: 2 * time.Hour,
			Store:    "auto",
		},
		OAuth: OAuthConfig{
			UserInfoURL:     "https://www.googleapis.com/oauth2/v3/userinfo",
			SuccessRedirect: "/",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
		Audit: AuditConfig{
			Size: 200,
		},
		Janitor: JanitorConfig{
			Schedule: "@every 10m",
		},
		Logging: logger.LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load reads configuration from path (or FOODORDER_CONFIG when path is empty)
// and applies environment overrides. A missing file is only an error when the
// path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist) && !explicit:
		default:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface at request time.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Sessions.Lifetime <= 0 {
		return fmt.Errorf("sessions.lifetime must be positive")
	}
	switch c.Sessions.Store {
	case "auto", "memory", "postgres":
	case "redis":
		if c.Sessions.RedisAddr == "" {
			return fmt.Errorf("sessions.redis_addr is required for the redis session store")
		}
	default:
		return fmt.Errorf("unsupported sessions.store %q", c.Sessions.Store)
	}
	if c.Sessions.Store == "postgres" && !c.Database.Enabled() {
		return fmt.Errorf("sessions.store postgres requires database.dsn")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit values must not be negative")
	}
	return nil
}

// EnsureSessionSecret fills an empty session secret with random bytes and
// reports whether it did so. Sessions signed with a generated secret do not
// survive a restart.
func (c *Config) EnsureSessionSecret() (bool, error) {
	if strings.TrimSpace(c.Sessions.Secret) != "" {
		return false, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return false, fmt.Errorf("generate session secret: %w", err)
	}
	c.Sessions.Secret = hex.EncodeToString(buf)
	return true, nil
}

// ParseCSVSet splits a comma separated list into a set, dropping blanks.
func ParseCSVSet(raw string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out[trimmed] = struct{}{}
	}
	return out
}

// SplitAddr parses a host:port listen address. The host may be empty.
func SplitAddr(addr string) (string, int, error) {
	host, rawPort, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return "", 0, fmt.Errorf("port %q is not a number", rawPort)
	}
	return host, port, nil
}
