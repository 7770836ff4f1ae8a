package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Doorlatch.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
}

// ServerConfig contains HTTP API server settings.
type ServerConfig struct {
	Host     string              `yaml:"host"`
	Port     int                 `yaml:"port"`
	TLS      TLSConfig           `yaml:"tls"`
	Timeouts ServerTimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig          `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ServerTimeoutConfig contains HTTP timeout settings (seconds).
type ServerTimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains settings for the optional access-decision announcer.
// When disabled, decisions are only recorded in the audit log.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains authentication and rate limiting settings.
type SecurityConfig struct {
	Hasher    HasherConfig    `yaml:"hasher"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// HasherConfig contains Argon2id work parameters for PIN and password hashing.
type HasherConfig struct {
	Time    int `yaml:"time"`    // iterations
	Memory  int `yaml:"memory"`  // KiB
	Threads int `yaml:"threads"` // parallelism
}

// SessionConfig selects and configures the session authority.
//
// Mode "memory" keeps opaque session tokens server-side (lost on restart).
// Mode "jwt" issues self-describing signed tokens validated by signature.
type SessionConfig struct {
	Mode       string `yaml:"mode"`
	Secret     string `yaml:"secret"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// RateLimitConfig bounds admin login attempts per client identity.
type RateLimitConfig struct {
	WindowMinutes int `yaml:"window_minutes"`
	MaxAttempts   int `yaml:"max_attempts"`
}

// BootstrapConfig optionally names the first admin account, created on
// first boot when no admins exist. If empty, a random password is
// generated and logged.
type BootstrapConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Session modes.
const (
	SessionModeMemory = "memory"
	SessionModeJWT    = "jwt"
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DOORLATCH_SECTION_KEY
// For example: DOORLATCH_DATABASE_PATH, DOORLATCH_SESSION_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: ServerTimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/doorlatch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "doorlatch",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			Hasher: HasherConfig{
				Time:    3,
				Memory:  64 * 1024,
				Threads: 1,
			},
			Session: SessionConfig{
				Mode:       SessionModeMemory,
				TTLMinutes: 30,
			},
			RateLimit: RateLimitConfig{
				WindowMinutes: 15,
				MaxAttempts:   5,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DOORLATCH_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("DOORLATCH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("DOORLATCH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	// Database
	if v := os.Getenv("DOORLATCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("DOORLATCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DOORLATCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DOORLATCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Security - session secret (IMPORTANT: always override in production)
	if v := os.Getenv("DOORLATCH_SESSION_SECRET"); v != "" {
		cfg.Security.Session.Secret = v
	}

	// Bootstrap admin credentials
	if v := os.Getenv("DOORLATCH_BOOTSTRAP_USERNAME"); v != "" {
		cfg.Security.Bootstrap.Username = v
	}
	if v := os.Getenv("DOORLATCH_BOOTSTRAP_PASSWORD"); v != "" {
		cfg.Security.Bootstrap.Password = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Hasher validation
	if c.Security.Hasher.Time < 1 {
		errs = append(errs, "security.hasher.time must be at least 1")
	}
	if c.Security.Hasher.Memory < 8*1024 {
		errs = append(errs, "security.hasher.memory must be at least 8192 KiB")
	}
	if c.Security.Hasher.Threads < 1 {
		errs = append(errs, "security.hasher.threads must be at least 1")
	}

	// Session validation - the secret is REQUIRED in jwt mode.
	// Signed tokens grant access to a physical door; an empty or weak
	// secret would let an attacker forge admin credentials.
	const minSessionSecretLength = 32
	switch c.Security.Session.Mode {
	case SessionModeMemory:
		// Tokens are opaque and server-held; no secret needed.
	case SessionModeJWT:
		if c.Security.Session.Secret == "" {
			errs = append(errs, "security.session.secret is required in jwt mode (set DOORLATCH_SESSION_SECRET environment variable)")
		} else if len(c.Security.Session.Secret) < minSessionSecretLength {
			errs = append(errs, "security.session.secret must be at least 32 characters for adequate security")
		}
	default:
		errs = append(errs, "security.session.mode must be \"memory\" or \"jwt\"")
	}
	if c.Security.Session.TTLMinutes < 1 {
		errs = append(errs, "security.session.ttl_minutes must be at least 1")
	}

	// Rate limit validation
	if c.Security.RateLimit.WindowMinutes < 1 {
		errs = append(errs, "security.rate_limit.window_minutes must be at least 1")
	}
	if c.Security.RateLimit.MaxAttempts < 1 {
		errs = append(errs, "security.rate_limit.max_attempts must be at least 1")
	}

	// Bootstrap credentials are optional, but when set they must pass the
	// same length rules the API enforces.
	if c.Security.Bootstrap.Username != "" && len(c.Security.Bootstrap.Username) < 4 {
		errs = append(errs, "security.bootstrap.username must be at least 4 characters")
	}
	if c.Security.Bootstrap.Username != "" && c.Security.Bootstrap.Password != "" && len(c.Security.Bootstrap.Password) < 6 {
		errs = append(errs, "security.bootstrap.password must be at least 6 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}

// GetSessionTTL returns the session lifetime as a Duration.
func (c *Config) GetSessionTTL() time.Duration {
	return time.Duration(c.Security.Session.TTLMinutes) * time.Minute
}

// GetRateLimitWindow returns the login rate limit window as a Duration.
func (c *Config) GetRateLimitWindow() time.Duration {
	return time.Duration(c.Security.RateLimit.WindowMinutes) * time.Minute
}
