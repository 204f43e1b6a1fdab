package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server" envconfig:"SERVER"`
	Site          SiteConfig          `yaml:"site" envconfig:"SITE"`
	Templates     TemplatesConfig     `yaml:"templates" envconfig:"TEMPLATES"`
	Security      SecurityConfig      `yaml:"security" envconfig:"SECURITY"`
	Toolbar       ToolbarConfig       `yaml:"toolbar" envconfig:"TOOLBAR"`
	Logging       LoggingConfig       `yaml:"logging" envconfig:"LOGGING"`
	Observability ObservabilityConfig `yaml:"observability" envconfig:"OBSERVABILITY"`
	WebSocket     WebSocketConfig     `yaml:"websocket" envconfig:"WEBSOCKET"`

	// Users seeds the in-memory user directory. File-only: there is no
	// sane env encoding for a list of users.
	Users []UserConfig `yaml:"users" ignored:"true"`
}

// UserConfig seeds one user into the in-memory directory.
type UserConfig struct {
	Username string `yaml:"username"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Admin    bool   `yaml:"admin"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"HOST"`
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// Addr returns the host:port pair the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SiteConfig describes the site being served
type SiteConfig struct {
	Name       string `yaml:"name" envconfig:"NAME"`
	BaseURL    string `yaml:"base_url" envconfig:"BASE_URL"`
	ContentDir string `yaml:"content_dir" envconfig:"CONTENT_DIR"`
	StaticDir  string `yaml:"static_dir" envconfig:"STATIC_DIR"`
}

// TemplatesConfig controls template lookup and the page fallback
type TemplatesConfig struct {
	Dir string `yaml:"dir" envconfig:"DIR"`
	// AppendSlash enables the permanent redirect to the slash-suffixed
	// form of a URL when only the directory-style template exists.
	AppendSlash bool `yaml:"append_slash" envconfig:"APPEND_SLASH"`
	// Reload watches the template directory and recompiles on change.
	// Intended for development; production should leave it off.
	Reload bool `yaml:"reload" envconfig:"RELOAD"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	// SessionSecret keys the authenticated session cookie. Must be at
	// least 16 bytes; rotating it invalidates all live sessions.
	SessionSecret  string          `yaml:"session_secret" envconfig:"SESSION_SECRET"`
	SessionCookie  string          `yaml:"session_cookie" envconfig:"SESSION_COOKIE"`
	SessionTTL     time.Duration   `yaml:"session_ttl" envconfig:"SESSION_TTL"`
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// ToolbarConfig controls the debug toolbar
type ToolbarConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`
	// PathPrefix is where the toolbar mounts its own routes.
	PathPrefix string `yaml:"path_prefix" envconfig:"PATH_PREFIX"`
	// HistorySize bounds the per-process request history ring.
	HistorySize int `yaml:"history_size" envconfig:"HISTORY_SIZE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL"`
	Format      string `yaml:"format" envconfig:"FORMAT"`
	Output      string `yaml:"output" envconfig:"OUTPUT"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// ObservabilityConfig contains metrics and tracing configuration
type ObservabilityConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED"`
	SentryDSN      string `yaml:"sentry_dsn" envconfig:"SENTRY_DSN"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE"`
	PingPeriod      time.Duration `yaml:"ping_period" envconfig:"PING_PERIOD"`
	PongWait        time.Duration `yaml:"pong_wait" envconfig:"PONG_WAIT"`
}

// Load builds the configuration from defaults, an optional YAML file,
// and SITEKIT_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Environment variables override file values. Fields carry no
	// default tags, so Process only touches variables that are set.
	if err := envconfig.Process("SITEKIT", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays configuration from a YAML file
func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if c.Templates.Dir == "" {
		return fmt.Errorf("templates directory must be specified")
	}

	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified when CORS is enabled")
	}

	if c.Security.SessionSecret != "" && len(c.Security.SessionSecret) < 16 {
		return fmt.Errorf("session secret must be at least 16 bytes")
	}

	if c.Toolbar.Enabled && c.Security.SessionSecret == "" {
		return fmt.Errorf("toolbar requires a session secret")
	}

	if c.Toolbar.HistorySize <= 0 {
		c.Toolbar.HistorySize = 100
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		c.Logging.Output = "stdout"
	}

	if c.Logging.Output != "stdout" && c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}

	return nil
}

// configFilePath returns the path of the first config file found
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Site: SiteConfig{
			Name:       "sitekit",
			BaseURL:    "http://localhost:8080",
			ContentDir: "content",
			StaticDir:  "static",
		},
		Templates: TemplatesConfig{
			Dir:         "templates",
			AppendSlash: true,
			Reload:      false,
		},
		Security: SecurityConfig{
			SessionCookie:  "sitekit_session",
			SessionTTL:     12 * time.Hour,
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     false,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Toolbar: ToolbarConfig{
			Enabled:     false,
			PathPrefix:  "/__toolbar",
			HistorySize: 100,
		},
		Logging: LoggingConfig{
			Level:       "info",
			Format:      "json",
			Output:      "stdout",
			FilePath:    "logs/app.log",
			Development: false,
		},
		Observability: ObservabilityConfig{
			ServiceName:    "sitekit",
			MetricsEnabled: true,
			TracingEnabled: false,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingPeriod:      30 * time.Second,
			PongWait:        60 * time.Second,
		},
	}
}
