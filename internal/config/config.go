// Package config loads server configuration from config.yaml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the server. Mapstructure tags name both
// the environment variable and the config file key.
type Config struct {
	ServerAddress string `mapstructure:"SERVER_ADDRESS"`

	// StoreDriver selects the document store: "file", "sqlite" or "memory".
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	// StoreURL is the afs base URL of the file store, e.g. file://./data.
	StoreURL  string `mapstructure:"STORE_URL"`
	SQLiteDSN string `mapstructure:"SQLITE_DSN"`

	OpenAIKey   string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel string `mapstructure:"OPENAI_MODEL"`

	PreviewIdleTimeout time.Duration `mapstructure:"PREVIEW_IDLE_TIMEOUT"`
	PreviewMaxAge      time.Duration `mapstructure:"PREVIEW_MAX_AGE"`

	// VerifySyntax parses generated page code before returning it.
	VerifySyntax bool `mapstructure:"VERIFY_SYNTAX"`
}

var defaults = map[string]any{
	"SERVER_ADDRESS":       ":8080",
	"STORE_DRIVER":         "file",
	"STORE_URL":            "file://./data",
	"SQLITE_DSN":           "file:uibuilder.db",
	"OPENAI_API_KEY":       "",
	"OPENAI_MODEL":         "gpt-4o-mini",
	"PREVIEW_IDLE_TIMEOUT": "30m",
	"PREVIEW_MAX_AGE":      "24h",
	"VERIFY_SYNTAX":        true,
}

// Load reads config.yaml from path, if present, then overlays environment
// variables. A missing config file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	} else {
		log.Printf("config: using %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values Load cannot default.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.PreviewIdleTimeout <= 0 || c.PreviewMaxAge <= 0 {
		return errors.New("config: preview timeouts must be positive")
	}
	if c.OpenAIKey == "" {
		log.Println("config: OPENAI_API_KEY is not set, AI component generation is disabled")
	}
	return nil
}
