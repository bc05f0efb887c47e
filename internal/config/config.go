package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration, loaded from the environment or an
// optional .env file.
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`
	ServerPort  string `mapstructure:"PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`

	// 32-byte keys, base64 or raw; validated by the encryption service.
	EncryptionKey string `mapstructure:"ENCRYPTION_KEY"`
	BlindIndexKey string `mapstructure:"BLIND_INDEX_KEY"`

	LogFile string `mapstructure:"LOG_FILE"`

	// Inference collaborator (openai-compatible endpoint).
	LLMAPIKey      string `mapstructure:"LLM_API_KEY"`
	LLMAPIEndpoint string `mapstructure:"LLM_API_ENDPOINT"`
	LLMModel       string `mapstructure:"LLM_MODEL"`
	LLMTimeoutSec  int    `mapstructure:"LLM_TIMEOUT_SEC"`

	// Optional redis-backed rate limit store for multi-instance deployments.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// Engine tuning.
	ReferenceTimezone string `mapstructure:"REFERENCE_TIMEZONE"`
	MaxContextChars   int    `mapstructure:"MAX_CONTEXT_CHARS"`
	AnalysisWorkers   int    `mapstructure:"ANALYSIS_WORKERS"`
	AnalysisQueueSize int    `mapstructure:"ANALYSIS_QUEUE_SIZE"`
}

// Load reads configuration from path (an optional .env file) and the process
// environment. Missing file is not an error; env vars always win.
func Load(path string) (Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LLM_MODEL", "gpt-4o-mini")
	viper.SetDefault("LLM_TIMEOUT_SEC", 20)
	viper.SetDefault("REFERENCE_TIMEZONE", "America/New_York")
	viper.SetDefault("MAX_CONTEXT_CHARS", 1500)
	viper.SetDefault("ANALYSIS_WORKERS", 2)
	viper.SetDefault("ANALYSIS_QUEUE_SIZE", 64)
}

// LLMTimeout returns the collaborator call timeout as a duration.
func (c Config) LLMTimeout() time.Duration {
	if c.LLMTimeoutSec <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.LLMTimeoutSec) * time.Second
}
