package config

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var kindNameRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Loader reads configuration from file and environment variables.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader bound to its own viper instance.
func NewLoader(configPath string) *Loader {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/llm-redactor/")
	v.AddConfigPath("$HOME/.llm-redactor/")

	// Environment variable overrides
	v.SetEnvPrefix("REDACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only sees keys viper already knows about.
	defaults := GetDefaults()
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("api.admin_token", defaults.API.AdminToken)
	v.SetDefault("lifecycle.redis_url", defaults.Lifecycle.RedisURL)
	v.SetDefault("audit.database_url", defaults.Audit.DatabaseURL)
	v.SetDefault("websocket.password", defaults.WebSocket.Password)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	return &Loader{v: v}
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	return NewLoader(configPath).Load()
}

// Load reads, unmarshals and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	config := GetDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := l.v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ConfigFile returns the file viper resolved, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if !kindNameRe.MatchString(config.Privacy.KnownValues.Kind) {
		return fmt.Errorf("invalid known_values kind: %q", config.Privacy.KnownValues.Kind)
	}

	if config.API.ExportEnabled && config.API.AdminToken == "" {
		return fmt.Errorf("api.admin_token is required when export is enabled")
	}

	if config.API.RateLimit.Enabled && config.API.RateLimit.RequestsPerMin <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute", config.API.RateLimit.RequestsPerMin)
	}

	if config.Lifecycle.Enabled && config.Lifecycle.Channel == "" {
		return fmt.Errorf("lifecycle.channel is required when lifecycle signals are enabled")
	}

	if config.Audit.Enabled && config.Audit.DatabaseURL == "" {
		return fmt.Errorf("audit.database_url is required when audit is enabled")
	}

	return nil
}

// Watch starts watching the configuration file for changes. Only valid
// configurations reach the callback.
func (l *Loader) Watch(callback func(*Config), onError func(error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := l.v.Unmarshal(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		if err := validateConfig(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("reload %s: %w", e.Name, err))
			}
			return
		}

		callback(newConfig)
	})
	l.v.WatchConfig()
}
