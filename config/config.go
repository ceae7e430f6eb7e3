package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	OpenFoodFacts OpenFoodFactsConfig `mapstructure:"openfoodfacts"`
	USDA          USDAConfig          `mapstructure:"usda"`
	Estimator     EstimatorConfig     `mapstructure:"estimator"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Repository    RepositoryConfig    `mapstructure:"repository"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
	Resolver      ResolverConfig      `mapstructure:"resolver"`
	Log           LogConfig           `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// OpenFoodFactsConfig holds the structured database settings. BaseURL may
// contain {cc}, replaced by the session region.
type OpenFoodFactsConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	WorldURL  string        `mapstructure:"world_url"`
	Region    string        `mapstructure:"region"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// USDAConfig holds USDA API configuration. The USDA tier is skipped when
// APIKey is empty.
type USDAConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// EstimatorConfig holds the generative estimator settings
type EstimatorConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	VisionModel string        `mapstructure:"vision_model"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type string        `mapstructure:"type"` // "memory" or "none"
	TTL  time.Duration `mapstructure:"ttl"`
}

// RepositoryConfig selects where entries, goals and favorites are stored
type RepositoryConfig struct {
	Type string `mapstructure:"type"` // "memory" or "postgres"
	DSN  string `mapstructure:"dsn"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP         int `mapstructure:"per_ip"`        // requests per minute per client
	USDA          int `mapstructure:"usda"`          // requests per hour
	OpenFoodFacts int `mapstructure:"openfoodfacts"` // requests per minute
}

// ResolverConfig tunes the lookup chain
type ResolverConfig struct {
	LookupTimeout       time.Duration `mapstructure:"lookup_timeout"`
	MinConfidence       float64       `mapstructure:"min_confidence"`
	EnableFuzzyMatching bool          `mapstructure:"enable_fuzzy_matching"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/foodlog/")

	// Environment variable settings: FOODLOG_USDA_API_KEY -> usda.api_key
	v.SetEnvPrefix("FOODLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile reads .env from the working directory when present. Variables
// already set in the environment win.
func loadEnvFile() error {
	err := godotenv.Load(".env")
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key gets a default
// so that AutomaticEnv overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Open Food Facts defaults
	v.SetDefault("openfoodfacts.base_url", "https://{cc}.openfoodfacts.org")
	v.SetDefault("openfoodfacts.world_url", "https://world.openfoodfacts.org")
	v.SetDefault("openfoodfacts.region", "de")
	v.SetDefault("openfoodfacts.timeout", "5s")
	v.SetDefault("openfoodfacts.user_agent", "FoodLog/1.0")

	// USDA defaults
	v.SetDefault("usda.api_key", "")
	v.SetDefault("usda.base_url", "https://api.nal.usda.gov/fdc")

	// Estimator defaults
	v.SetDefault("estimator.enabled", false)
	v.SetDefault("estimator.api_key", "")
	v.SetDefault("estimator.base_url", "https://api.openai.com/v1")
	v.SetDefault("estimator.model", "gpt-4o-mini")
	v.SetDefault("estimator.vision_model", "gpt-4o-mini")
	v.SetDefault("estimator.timeout", "30s")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "720h") // 30 days

	// Repository defaults
	v.SetDefault("repository.type", "memory")
	v.SetDefault("repository.dsn", "")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.usda", 1000)
	v.SetDefault("ratelimit.openfoodfacts", 100)

	// Resolver defaults
	v.SetDefault("resolver.lookup_timeout", "5s")
	v.SetDefault("resolver.min_confidence", 60)
	v.SetDefault("resolver.enable_fuzzy_matching", true)

	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "none" {
		return fmt.Errorf("cache type must be 'memory' or 'none', got: %s", config.Cache.Type)
	}

	switch config.Repository.Type {
	case "memory":
	case "postgres":
		if config.Repository.DSN == "" {
			return fmt.Errorf("repository DSN is required when repository type is 'postgres' (set FOODLOG_REPOSITORY_DSN)")
		}
	default:
		return fmt.Errorf("repository type must be 'memory' or 'postgres', got: %s", config.Repository.Type)
	}

	if config.Estimator.Enabled && config.Estimator.APIKey == "" {
		return fmt.Errorf("estimator API key is required when the estimator is enabled (set FOODLOG_ESTIMATOR_API_KEY)")
	}

	if config.Resolver.LookupTimeout <= 0 {
		return fmt.Errorf("resolver lookup timeout must be positive, got: %s", config.Resolver.LookupTimeout)
	}

	if config.Resolver.MinConfidence < 0 || config.Resolver.MinConfidence > 100 {
		return fmt.Errorf("resolver min confidence must be within 0-100, got: %v", config.Resolver.MinConfidence)
	}

	if r := config.OpenFoodFacts.Region; r != "" && len(r) != 2 {
		return fmt.Errorf("openfoodfacts region must be a two-letter country code, got: %s", r)
	}

	switch strings.ToLower(config.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log level must be one of debug, info, warn, error, got: %s", config.Log.Level)
	}

	return nil
}
