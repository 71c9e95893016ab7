package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"chatstore/internal/validation"
)

// Storage backends selectable with STORAGE_BACKEND.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	AppPort            int           `mapstructure:"APP_PORT" validate:"min=1,max=65535"`
	StorageBackend     string        `mapstructure:"STORAGE_BACKEND" validate:"oneof=file sqlite memory"`
	DataDir            string        `mapstructure:"DATA_DIR" validate:"required_if=StorageBackend file"`
	DatabasePath       string        `mapstructure:"DATABASE_PATH" validate:"required_if=StorageBackend sqlite"`
	LockTimeout        time.Duration `mapstructure:"LOCK_TIMEOUT" validate:"gt=0"`
	CatalogConcurrency int           `mapstructure:"CATALOG_CONCURRENCY" validate:"min=1,max=256"`
	OllamaURL          string        `mapstructure:"OLLAMA_URL" validate:"required,url"`
	DefaultModel       string        `mapstructure:"DEFAULT_MODEL" validate:"required"`
	SystemPrompt       string        `mapstructure:"SYSTEM_PROMPT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`

	// ConfigFileUsed is the .env file that was read, if any.
	ConfigFileUsed string `mapstructure:"-"`
}

// LoadConfig reads defaults, an optional .env file from configPaths (the
// working directory when none are given) and the environment, in increasing
// order of precedence.
func LoadConfig(configPaths ...string) (*Config, error) {
	v := viper.New()

	v.SetDefault("APP_PORT", 8000)
	v.SetDefault("STORAGE_BACKEND", BackendFile)
	v.SetDefault("DATA_DIR", ".data")
	v.SetDefault("DATABASE_PATH", "/data/chatstore.db")
	v.SetDefault("LOCK_TIMEOUT", "10s")
	v.SetDefault("CATALOG_CONCURRENCY", 8)
	v.SetDefault("OLLAMA_URL", "http://ollama:11434")
	v.SetDefault("DEFAULT_MODEL", "llama3.2")
	v.SetDefault("SYSTEM_PROMPT", "You are a helpful assistant.")
	v.SetDefault("LOG_LEVEL", "INFO")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	if len(configPaths) == 0 {
		configPaths = []string{"."}
	}
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.StorageBackend = strings.ToLower(cfg.StorageBackend)
	cfg.ConfigFileUsed = v.ConfigFileUsed()

	if err := validation.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
