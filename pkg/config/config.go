package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvDevelopment enables the verbose error page
const EnvDevelopment = "development"

// Config represents the application configuration
type Config struct {
	Env      string `yaml:"env" envconfig:"APP_ENV"`
	Root     string `yaml:"root" envconfig:"ROOT_DIR"`
	Hostname string `yaml:"hostname" envconfig:"BIND_ADDRESS"`
	// Port is the legacy listen port, used when http.port is not set
	Port int `yaml:"port" envconfig:"PORT"`

	App           AppConfig           `yaml:"app" envconfig:"APP"`
	HTTP          HTTPConfig          `yaml:"http" envconfig:"HTTP"`
	HTTPS         HTTPSConfig         `yaml:"https" envconfig:"HTTPS"`
	SessionSecret string              `yaml:"session_secret" envconfig:"SESSION_SECRET"`
	Session       SessionConfig       `yaml:"session" envconfig:"SESSION"`
	Storage       StorageConfig       `yaml:"storage" envconfig:"STORAGE"`
	JWT           JWTConfig           `yaml:"jwt" envconfig:"JWT"`
	BodyLimit     int64               `yaml:"body_limit_bytes" envconfig:"BODY_LIMIT_BYTES"`
	CSRF          CSRFConfig          `yaml:"csrf" envconfig:"CSRF"`
	CORS          CORSConfig          `yaml:"cors" envconfig:"CORS"`
	Static        []StaticMount       `yaml:"static" ignored:"true"`
	Admin         AdminConfig         `yaml:"admin" envconfig:"ADMIN"`
	AuthRateLimit AuthRateLimitConfig `yaml:"auth_rate_limit" envconfig:"AUTH_RATE_LIMIT"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Modules       []string            `yaml:"modules" envconfig:"MODULES"`
}

// AppConfig contains application identity settings
type AppConfig struct {
	Name string `yaml:"name" envconfig:"NAME"`
}

// HTTPConfig contains plain HTTP listener configuration
type HTTPConfig struct {
	Port int `yaml:"port" envconfig:"PORT"`
}

// HTTPSConfig contains TLS listener configuration
type HTTPSConfig struct {
	Port int       `yaml:"port" envconfig:"PORT"` // 0 disables the TLS listener
	SSL  SSLConfig `yaml:"ssl" envconfig:"SSL"`
}

// SSLConfig holds key and certificate paths, relative to Root unless absolute
type SSLConfig struct {
	Key  string `yaml:"key" envconfig:"KEY"`
	Cert string `yaml:"cert" envconfig:"CERT"`
}

// SessionConfig contains session store and cookie configuration
type SessionConfig struct {
	// Type is the session store type: "memory", "redis" or "mongodb"
	Type              string        `yaml:"type" envconfig:"TYPE"`
	CookieName        string        `yaml:"cookie_name" envconfig:"COOKIE_NAME"`
	TTLHours          int           `yaml:"ttl_hours" envconfig:"TTL_HOURS"`
	Resave            bool          `yaml:"resave" envconfig:"RESAVE"`
	SaveUninitialized bool          `yaml:"save_uninitialized" envconfig:"SAVE_UNINITIALIZED"`
	SecureCookie      bool          `yaml:"secure_cookie" envconfig:"SECURE_COOKIE"`
	CleanupInterval   int           `yaml:"cleanup_interval_seconds" envconfig:"CLEANUP_INTERVAL_SECONDS"`
	Redis             RedisConfig   `yaml:"redis" envconfig:"REDIS"`
	MongoDB           MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Address   string `yaml:"address" envconfig:"ADDRESS"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
	DB        int    `yaml:"db" envconfig:"DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// StorageConfig contains user storage configuration
type StorageConfig struct {
	Type    string        `yaml:"type" envconfig:"TYPE"` // memory, mongodb
	MongoDB MongoDBConfig `yaml:"mongodb" envconfig:"MONGODB"`
}

// MongoDBConfig contains MongoDB-specific configuration
type MongoDBConfig struct {
	URI        string `yaml:"uri" envconfig:"URI"`
	Database   string `yaml:"database" envconfig:"DATABASE"`
	Collection string `yaml:"collection" envconfig:"COLLECTION"`
	Timeout    int    `yaml:"timeout" envconfig:"TIMEOUT"` // seconds
}

// JWTConfig contains bearer token configuration
type JWTConfig struct {
	Secret      string `yaml:"secret" envconfig:"SECRET"`
	ExpiryHours int    `yaml:"expiry_hours" envconfig:"EXPIRY_HOURS"`
	Issuer      string `yaml:"issuer" envconfig:"ISSUER"`
}

// CSRFConfig configures the optional CSRF protection
type CSRFConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	// Key must be 32 bytes
	Key          string   `yaml:"key" envconfig:"KEY"`
	BypassRoutes []string `yaml:"bypass_routes" envconfig:"BYPASS_ROUTES"`
}

// CORSConfig contains CORS settings
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `yaml:"allowed_methods" envconfig:"ALLOWED_METHODS"`
	AllowedHeaders   []string `yaml:"allowed_headers" envconfig:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `yaml:"exposed_headers" envconfig:"EXPOSED_HEADERS"`
	AllowCredentials bool     `yaml:"allow_credentials" envconfig:"ALLOW_CREDENTIALS"`
	MaxAge           int      `yaml:"max_age" envconfig:"MAX_AGE"` // seconds
}

// StaticMount maps a URL prefix onto a directory
type StaticMount struct {
	Prefix string `yaml:"prefix"`
	Dir    string `yaml:"dir"`
}

// AdminConfig contains the internal admin API listener configuration
type AdminConfig struct {
	Port  int    `yaml:"port" envconfig:"PORT"`   // 0 to disable
	Token string `yaml:"token" envconfig:"TOKEN"` // generated if empty
}

// AuthRateLimitConfig limits login attempts per client
type AuthRateLimitConfig struct {
	Enabled        bool `yaml:"enabled" envconfig:"ENABLED"`
	MaxAttempts    int  `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS"`
	WindowSeconds  int  `yaml:"window_seconds" envconfig:"WINDOW_SECONDS"`
	LockoutSeconds int  `yaml:"lockout_seconds" envconfig:"LOCKOUT_SECONDS"`
}

// SetDefaults fills zero values
func (c *AuthRateLimitConfig) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 60
	}
	if c.LockoutSeconds <= 0 {
		c.LockoutSeconds = 300
	}
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" envconfig:"FORMAT"` // json, text
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := defaultConfig()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			// File doesn't exist, that's ok - we'll use defaults and env vars
		} else {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Environment variables have the highest priority
	if err := envconfig.Process("MEAN", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.JWT.Secret == "" {
		cfg.JWT.Secret = cfg.SessionSecret
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible default values
// Default returns a configuration holding only the defaults
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		Env:      "production",
		Root:     ".",
		Hostname: "0.0.0.0",
		App:      AppConfig{Name: "meanhost"},
		HTTP:     HTTPConfig{Port: 3000},
		HTTPS: HTTPSConfig{
			SSL: SSLConfig{
				Key:  "config/cert/key.pem",
				Cert: "config/cert/cert.pem",
			},
		},
		Session: SessionConfig{
			Type:              "memory",
			CookieName:        "connect.sid",
			TTLHours:          24,
			Resave:            true,
			SaveUninitialized: true,
			CleanupInterval:   300,
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "sess:",
			},
			MongoDB: MongoDBConfig{
				URI:        "mongodb://localhost:27017",
				Database:   "meanhost",
				Collection: "sessions",
				Timeout:    10,
			},
		},
		Storage: StorageConfig{
			Type: "memory",
			MongoDB: MongoDBConfig{
				URI:      "mongodb://localhost:27017",
				Database: "meanhost",
				Timeout:  10,
			},
		},
		JWT: JWTConfig{
			ExpiryHours: 24,
			Issuer:      "meanhost",
		},
		BodyLimit: 1 << 20,
		CSRF: CSRFConfig{
			BypassRoutes: []string{"/apis/auth/login"},
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-HTTP-Method-Override", "X-CSRF-Token"},
			AllowCredentials: false,
			MaxAge:           12 * 60 * 60,
		},
		AuthRateLimit: AuthRateLimitConfig{
			Enabled:        true,
			MaxAttempts:    5,
			WindowSeconds:  60,
			LockoutSeconds: 300,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Modules: []string{"system", "auth", "admin"},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	port := c.HTTPListenPort()
	if port < 1 || port > 65535 {
		return fmt.Errorf("invalid http port: %d", port)
	}

	if c.HTTPS.Port < 0 || c.HTTPS.Port > 65535 {
		return fmt.Errorf("invalid https port: %d", c.HTTPS.Port)
	}

	if c.SessionSecret == "" {
		return fmt.Errorf("session_secret is required")
	}

	switch c.Session.Type {
	case "memory", "redis", "mongodb":
	default:
		return fmt.Errorf("invalid session type: %s (must be memory, redis, or mongodb)", c.Session.Type)
	}

	if c.Storage.Type != "memory" && c.Storage.Type != "mongodb" {
		return fmt.Errorf("invalid storage type: %s (must be memory or mongodb)", c.Storage.Type)
	}

	if c.Storage.Type == "mongodb" && c.Storage.MongoDB.URI == "" {
		return fmt.Errorf("mongodb uri is required when using mongodb storage")
	}

	if c.CSRF.Enabled && len(c.CSRF.Key) != 32 {
		return fmt.Errorf("csrf key must be 32 bytes, got %d", len(c.CSRF.Key))
	}

	if c.BodyLimit <= 0 {
		return fmt.Errorf("body_limit_bytes must be positive")
	}

	return nil
}

// IsDevelopment reports whether the verbose error page is enabled
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, EnvDevelopment)
}

// HTTPListenPort returns http.port, falling back to the legacy top-level port
func (c *Config) HTTPListenPort() int {
	if c.HTTP.Port != 0 {
		return c.HTTP.Port
	}
	return c.Port
}

// Address returns the HTTP listen address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.HTTPListenPort())
}

// TLSAddress returns the TLS listen address
func (c *Config) TLSAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.HTTPS.Port)
}

// AdminAddress returns the admin server address
func (c *Config) AdminAddress() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Admin.Port)
}

// ResolvePath joins a relative path onto Root
func (c *Config) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// TLSPaths returns the resolved key and certificate paths
func (c *Config) TLSPaths() (keyPath, certPath string) {
	return c.ResolvePath(c.HTTPS.SSL.Key), c.ResolvePath(c.HTTPS.SSL.Cert)
}
