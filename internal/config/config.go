package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	API         APIConfig      `mapstructure:"api"`
	Logging     LoggingConfig  `mapstructure:"logging"`
	Metrics     MetricsConfig  `mapstructure:"metrics"`
	Security    SecurityConfig `mapstructure:"security"`
	Realtime    RealtimeConfig `mapstructure:"realtime"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	HTTP HTTPConfig `mapstructure:"http"`
}

// HTTPConfig contains HTTP server settings. Timeouts are in seconds.
type HTTPConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	IdleTimeout     int    `mapstructure:"idle_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int    `mapstructure:"max_header_bytes"`
}

// Addr returns the listen address
func (h HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.Host, h.Port)
}

// APIConfig points at the policy analytics backend
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"`
}

// TimeoutDuration returns the backend timeout
func (a APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig contains metrics and monitoring configuration
type MetricsConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Path            string `mapstructure:"path"`
	CollectInterval int    `mapstructure:"collect_interval"`
}

// SecurityConfig contains security configuration
type SecurityConfig struct {
	CORS         CORSConfig      `mapstructure:"cors"`
	RateLimiting RateLimitConfig `mapstructure:"rate_limiting"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	BurstSize         int  `mapstructure:"burst_size"`
}

// RealtimeConfig contains live session settings
type RealtimeConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	ReadBufferSize  int  `mapstructure:"read_buffer_size"`
	WriteBufferSize int  `mapstructure:"write_buffer_size"`
	SendBufferSize  int  `mapstructure:"send_buffer_size"`
	PingInterval    int  `mapstructure:"ping_interval"`
	MaxMessageSize  int  `mapstructure:"max_message_size"`
}

// Load loads configuration from an optional file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set environment variable prefix
	v.SetEnvPrefix("POLICY_DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.Server.HTTP.Port <= 0 || c.Server.HTTP.Port > 65535 {
		return fmt.Errorf("invalid server.http.port %d", c.Server.HTTP.Port)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid api.timeout %d", c.API.Timeout)
	}
	if c.Security.RateLimiting.Enabled && c.Security.RateLimiting.RequestsPerMinute <= 0 {
		return errors.New("security.rate_limiting.requests_per_minute must be positive")
	}
	return nil
}

// IsProduction reports whether the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.http.host", "")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", 30)
	v.SetDefault("server.http.write_timeout", 60)
	v.SetDefault("server.http.idle_timeout", 120)
	v.SetDefault("server.http.shutdown_timeout", 15)
	v.SetDefault("server.http.max_header_bytes", 1048576)

	// Backend defaults
	v.SetDefault("api.base_url", "https://policy-impact-risk-analytics-platform-api.onrender.com")
	v.SetDefault("api.timeout", 30)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.collect_interval", 30)

	// Security defaults
	v.SetDefault("security.cors.allowed_origins", []string{"*"})
	v.SetDefault("security.rate_limiting.enabled", true)
	v.SetDefault("security.rate_limiting.requests_per_minute", 600)
	v.SetDefault("security.rate_limiting.burst_size", 50)

	// Realtime defaults
	v.SetDefault("realtime.enabled", true)
	v.SetDefault("realtime.read_buffer_size", 1024)
	v.SetDefault("realtime.write_buffer_size", 1024)
	v.SetDefault("realtime.send_buffer_size", 16)
	v.SetDefault("realtime.ping_interval", 30)
	v.SetDefault("realtime.max_message_size", 4096)
}

// overrideWithEnvVars honors the conventional variables set by hosting
// platforms
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		v.Set("server.http.port", port)
	}
	if baseURL := os.Getenv("API_BASE_URL"); baseURL != "" {
		v.Set("api.base_url", baseURL)
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("security.cors.allowed_origins", strings.Split(origins, ","))
	}
}
