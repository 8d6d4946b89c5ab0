package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Privacy   PrivacyConfig   `yaml:"privacy" mapstructure:"privacy"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
	Lifecycle LifecycleConfig `yaml:"lifecycle" mapstructure:"lifecycle"`
	Audit     AuditConfig     `yaml:"audit" mapstructure:"audit"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// PrivacyConfig describes the pattern catalog. It is read once at startup.
type PrivacyConfig struct {
	// Detectors lists the rules to enable: "default", "all" or rule names.
	Detectors     []string          `yaml:"detectors" mapstructure:"detectors"`
	ExtraPatterns []PatternConfig   `yaml:"extra_patterns" mapstructure:"extra_patterns"`
	KnownValues   KnownValuesConfig `yaml:"known_values" mapstructure:"known_values"`
	// Priorities overrides the priority of built-in rules by rule name.
	Priorities map[string]int `yaml:"priorities" mapstructure:"priorities"`
}

// PatternConfig defines an operator-supplied regex rule.
type PatternConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Kind     string `yaml:"kind" mapstructure:"kind"`
	Regex    string `yaml:"regex" mapstructure:"regex"`
	Priority int    `yaml:"priority" mapstructure:"priority"`
}

// KnownValuesConfig configures the literal lookup list (e.g. full names).
type KnownValuesConfig struct {
	Kind      string   `yaml:"kind" mapstructure:"kind"`
	Values    []string `yaml:"values" mapstructure:"values"`
	File      string   `yaml:"file" mapstructure:"file"`
	Priority  int      `yaml:"priority" mapstructure:"priority"`
	WholeWord bool     `yaml:"whole_word" mapstructure:"whole_word"`
}

// APIConfig contains settings for the HTTP API
type APIConfig struct {
	ExportEnabled bool   `yaml:"export_enabled" mapstructure:"export_enabled"`
	AdminToken    string `yaml:"admin_token" mapstructure:"admin_token"`
	RateLimit     struct {
		Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
		Burst          int  `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Path     string `yaml:"path" mapstructure:"path"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
	Events   struct {
		BroadcastRedactions  bool `yaml:"broadcast_redactions" mapstructure:"broadcast_redactions"`
		BroadcastSessions    bool `yaml:"broadcast_sessions" mapstructure:"broadcast_sessions"`
		BroadcastConnections bool `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
	} `yaml:"events" mapstructure:"events"`
}

// LifecycleConfig configures the Redis channel carrying session lifecycle signals.
type LifecycleConfig struct {
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	Channel  string `yaml:"channel" mapstructure:"channel"`
}

// AuditConfig configures the PostgreSQL teardown audit log.
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			MaxBodyBytes: 1 << 20,
		},
		Privacy: PrivacyConfig{
			Detectors: []string{"default"},
			KnownValues: KnownValuesConfig{
				Kind:     "PERSON",
				Priority: 75,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled: true,
			Path:    "/ws",
		},
		Lifecycle: LifecycleConfig{
			Enabled:  false,
			RedisURL: "redis://localhost:6379/0",
			Channel:  "sessions:lifecycle",
		},
		Audit: AuditConfig{
			Enabled:         false,
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
	}

	cfg.API.RateLimit.Enabled = true
	cfg.API.RateLimit.RequestsPerMin = 600
	cfg.API.RateLimit.Burst = 50
	cfg.Logging.File.Path = "logs/redactor.log"
	cfg.WebSocket.Events.BroadcastRedactions = true
	cfg.WebSocket.Events.BroadcastSessions = true
	cfg.WebSocket.Events.BroadcastConnections = true

	return cfg
}
