// Package config provides Viper-based hierarchical configuration management
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Dedup policies accepted by ingest.dedup_policy.
const (
	DedupPolicyOccurrence = "occurrence"
	DedupPolicyExact      = "exact"
)

// AI providers accepted by ai.provider.
const (
	ProviderGemini = "gemini"
	ProviderGenAI  = "genai"
)

// Config represents the complete application configuration
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	CSV struct {
		DefaultDelimiter string `mapstructure:"default_delimiter" yaml:"default_delimiter"`
		ExportDelimiter  string `mapstructure:"export_delimiter" yaml:"export_delimiter"`
	} `mapstructure:"csv" yaml:"csv"`

	AI struct {
		Enabled                   bool    `mapstructure:"enabled" yaml:"enabled"`
		Provider                  string  `mapstructure:"provider" yaml:"provider"`
		Model                     string  `mapstructure:"model" yaml:"model"`
		RequestsPerMinute         int     `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
		TimeoutSeconds            int     `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
		APIKey                    string  `mapstructure:"api_key" yaml:"-"` // Never serialize API key
		BreakerMinRequests        uint32  `mapstructure:"breaker_min_requests" yaml:"breaker_min_requests"`
		BreakerFailureRatio       float64 `mapstructure:"breaker_failure_ratio" yaml:"breaker_failure_ratio"`
		BreakerOpenTimeoutSeconds int     `mapstructure:"breaker_open_timeout_seconds" yaml:"breaker_open_timeout_seconds"`
	} `mapstructure:"ai" yaml:"ai"`

	Categorization struct {
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
		CacheTTLHours       int     `mapstructure:"cache_ttl_hours" yaml:"cache_ttl_hours"`
		TrainingTTLHours    int     `mapstructure:"training_ttl_hours" yaml:"training_ttl_hours"`
		DefaultCategory     string  `mapstructure:"default_category" yaml:"default_category"`
		Workers             int     `mapstructure:"workers" yaml:"workers"`
	} `mapstructure:"categorization" yaml:"categorization"`

	Ingest struct {
		FallbackInstitution string `mapstructure:"fallback_institution" yaml:"fallback_institution"`
		DedupPolicy         string `mapstructure:"dedup_policy" yaml:"dedup_policy"`
		DeleteAfter         bool   `mapstructure:"delete_after" yaml:"delete_after"`
	} `mapstructure:"ingest" yaml:"ingest"`

	Database struct {
		DSN          string `mapstructure:"dsn" yaml:"-"`
		MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
		SeedFile     string `mapstructure:"seed_file" yaml:"seed_file"`
	} `mapstructure:"database" yaml:"database"`

	Metrics struct {
		Textfile string `mapstructure:"textfile" yaml:"textfile"`
	} `mapstructure:"metrics" yaml:"metrics"`
}

// CacheTTL returns the categorization cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Categorization.CacheTTLHours) * time.Hour
}

// TrainingTTL returns the lifetime of cached training examples.
func (c *Config) TrainingTTL() time.Duration {
	return time.Duration(c.Categorization.TrainingTTLHours) * time.Hour
}

// AITimeout returns the per-call classifier timeout.
func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// InitializeConfig initializes Viper configuration with hierarchical loading
func InitializeConfig() (*Config, error) {
	return InitializeConfigFromFile("")
}

// InitializeConfigFromFile behaves like InitializeConfig but reads the given
// file instead of searching the default locations when path is not empty.
func InitializeConfigFromFile(path string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.csv-ingest")
		v.AddConfigPath(".csv-ingest")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("CSVINGEST")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file (optional unless explicitly given)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. Unprefixed variables shared with other tools
	if err := v.BindEnv("ai.api_key", "CSVINGEST_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind GEMINI_API_KEY: %w", err)
	}
	if err := v.BindEnv("database.dsn", "CSVINGEST_DATABASE_DSN", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration built from the default values only,
// ignoring files and the environment.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("csv.default_delimiter", ",")
	v.SetDefault("csv.export_delimiter", ",")

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", ProviderGemini)
	v.SetDefault("ai.model", "gemini-1.5-flash")
	v.SetDefault("ai.requests_per_minute", 10)
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.breaker_min_requests", 3)
	v.SetDefault("ai.breaker_failure_ratio", 0.6)
	v.SetDefault("ai.breaker_open_timeout_seconds", 30)

	v.SetDefault("categorization.confidence_threshold", 0.3)
	v.SetDefault("categorization.cache_ttl_hours", 720)
	v.SetDefault("categorization.training_ttl_hours", 168)
	v.SetDefault("categorization.default_category", "Outros")
	v.SetDefault("categorization.workers", 1)

	v.SetDefault("ingest.fallback_institution", "Nubank")
	v.SetDefault("ingest.dedup_policy", DedupPolicyOccurrence)
	v.SetDefault("ingest.delete_after", false)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.seed_file", "")

	v.SetDefault("metrics.textfile", "")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if len([]rune(config.CSV.DefaultDelimiter)) != 1 {
		return fmt.Errorf("csv.default_delimiter must be a single character, got: %s", config.CSV.DefaultDelimiter)
	}
	if len([]rune(config.CSV.ExportDelimiter)) != 1 {
		return fmt.Errorf("csv.export_delimiter must be a single character, got: %s", config.CSV.ExportDelimiter)
	}

	if config.AI.Provider != ProviderGemini && config.AI.Provider != ProviderGenAI {
		return fmt.Errorf("invalid ai.provider: %s (must be '%s' or '%s')", config.AI.Provider, ProviderGemini, ProviderGenAI)
	}

	if config.AI.Enabled {
		if config.AI.RequestsPerMinute < 1 || config.AI.RequestsPerMinute > 1000 {
			return fmt.Errorf("ai.requests_per_minute must be between 1 and 1000, got: %d", config.AI.RequestsPerMinute)
		}

		if config.AI.TimeoutSeconds < 1 || config.AI.TimeoutSeconds > 300 {
			return fmt.Errorf("ai.timeout_seconds must be between 1 and 300, got: %d", config.AI.TimeoutSeconds)
		}

		if config.AI.BreakerFailureRatio <= 0 || config.AI.BreakerFailureRatio > 1 {
			return fmt.Errorf("ai.breaker_failure_ratio must be in (0, 1], got: %f", config.AI.BreakerFailureRatio)
		}
	}

	if config.Categorization.ConfidenceThreshold < 0.0 || config.Categorization.ConfidenceThreshold > 1.0 {
		return fmt.Errorf("categorization.confidence_threshold must be between 0.0 and 1.0, got: %f", config.Categorization.ConfidenceThreshold)
	}

	if config.Categorization.CacheTTLHours < 1 {
		return fmt.Errorf("categorization.cache_ttl_hours must be positive, got: %d", config.Categorization.CacheTTLHours)
	}

	if config.Categorization.TrainingTTLHours < 1 {
		return fmt.Errorf("categorization.training_ttl_hours must be positive, got: %d", config.Categorization.TrainingTTLHours)
	}

	if strings.TrimSpace(config.Categorization.DefaultCategory) == "" {
		return fmt.Errorf("categorization.default_category must not be empty")
	}

	if config.Categorization.Workers < 1 || config.Categorization.Workers > 64 {
		return fmt.Errorf("categorization.workers must be between 1 and 64, got: %d", config.Categorization.Workers)
	}

	if strings.TrimSpace(config.Ingest.FallbackInstitution) == "" {
		return fmt.Errorf("ingest.fallback_institution must not be empty")
	}

	if config.Ingest.DedupPolicy != DedupPolicyOccurrence && config.Ingest.DedupPolicy != DedupPolicyExact {
		return fmt.Errorf("invalid ingest.dedup_policy: %s (must be '%s' or '%s')", config.Ingest.DedupPolicy, DedupPolicyOccurrence, DedupPolicyExact)
	}

	if config.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be positive, got: %d", config.Database.MaxOpenConns)
	}

	return nil
}

// ConfigureLoggingFromConfig configures logging based on the Config struct
func ConfigureLoggingFromConfig(config *Config) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(strings.ToLower(config.Log.Level))
	if err != nil {
		logger.Warnf("Invalid log level '%s', using 'info'", config.Log.Level)
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if strings.ToLower(config.Log.Format) == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
