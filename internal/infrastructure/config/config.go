package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultSessionSecret = "bibliodesign-secret-key-change-in-production"

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Session   SessionConfig   `mapstructure:"session"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Security  SecurityConfig  `mapstructure:"security"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Templates TemplatesConfig `mapstructure:"templates"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StorageConfig holds the flat-file locations
type StorageConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	PublicDir string `mapstructure:"public_dir"`
	ImagesDir string `mapstructure:"images_dir"`
}

// SessionConfig holds admin session configuration
type SessionConfig struct {
	Secret     string        `mapstructure:"secret"`
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
	Store      string        `mapstructure:"store"`
	Secure     bool          `mapstructure:"secure"`
}

// RedisConfig holds Redis configuration for the redis session store
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds password hashing configuration
type AuthConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	TrustedProxies    []string      `mapstructure:"trusted_proxies"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TemplatesConfig points the renderer at an on-disk template directory.
// Empty means the embedded templates are used.
type TemplatesConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// Load loads configuration from .env, environment variables and defaults
func Load() (*Config, error) {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "BiblioDesign")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")

	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Storage defaults
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.public_dir", "public")
	v.SetDefault("storage.images_dir", "public/images")

	// Session defaults
	v.SetDefault("session.secret", defaultSessionSecret)
	v.SetDefault("session.cookie_name", "bibliodesign_session")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.secure", false)

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.bcrypt_cost", 10)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.filename", "")

	// Security defaults
	v.SetDefault("security.rate_limit_requests", 10)
	v.SetDefault("security.rate_limit_window", "1m")
	v.SetDefault("security.trusted_proxies", []string{})

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)

	// Templates defaults
	v.SetDefault("templates.dir", "")
	v.SetDefault("templates.watch", false)
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.environment", "APP_ENVIRONMENT")

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.read_timeout", "SERVER_READ_TIMEOUT")
	v.BindEnv("server.write_timeout", "SERVER_WRITE_TIMEOUT")
	v.BindEnv("server.idle_timeout", "SERVER_IDLE_TIMEOUT")
	v.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Storage
	v.BindEnv("storage.data_dir", "DATA_DIR")
	v.BindEnv("storage.public_dir", "PUBLIC_DIR")
	v.BindEnv("storage.images_dir", "IMAGES_DIR")

	// Session
	v.BindEnv("session.secret", "SESSION_SECRET")
	v.BindEnv("session.cookie_name", "SESSION_COOKIE")
	v.BindEnv("session.ttl", "SESSION_TTL")
	v.BindEnv("session.store", "SESSION_STORE")
	v.BindEnv("session.secure", "SESSION_SECURE")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")

	// Auth
	v.BindEnv("auth.bcrypt_cost", "BCRYPT_COST")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")
	v.BindEnv("logger.output", "LOG_OUTPUT")
	v.BindEnv("logger.filename", "LOG_FILE")

	// Security
	v.BindEnv("security.rate_limit_requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("security.rate_limit_window", "RATE_LIMIT_WINDOW")
	v.BindEnv("security.trusted_proxies", "TRUSTED_PROXIES")

	// Metrics
	v.BindEnv("metrics.enabled", "ENABLE_METRICS")

	// Templates
	v.BindEnv("templates.dir", "TEMPLATES_DIR")
	v.BindEnv("templates.watch", "TEMPLATES_WATCH")
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Storage.DataDir == "" {
		return fmt.Errorf("data directory is required")
	}

	if cfg.Storage.ImagesDir == "" {
		return fmt.Errorf("images directory is required")
	}

	if cfg.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}

	if cfg.App.IsProduction() && (cfg.Session.Secret == defaultSessionSecret || len(cfg.Session.Secret) < 32) {
		return fmt.Errorf("session secret must be set to at least 32 bytes in production")
	}

	if cfg.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	switch cfg.Session.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("session store must be memory or redis, got %q", cfg.Session.Store)
	}

	if cfg.Security.RateLimitRequests <= 0 || cfg.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}

	for _, cidr := range cfg.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("trusted proxy %q is not a CIDR range: %w", cidr, err)
		}
	}

	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 4-31)", cfg.Auth.BcryptCost)
	}

	return nil
}

// GetAddr returns the listen address
func (cfg *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// GetAddr returns the Redis address
func (cfg *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// IsDevelopment returns true if the environment is development
func (cfg *AppConfig) IsDevelopment() bool {
	return cfg.Environment == "development"
}

// IsProduction returns true if the environment is production
func (cfg *AppConfig) IsProduction() bool {
	return cfg.Environment == "production"
}
