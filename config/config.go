package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port          string `mapstructure:"PORT"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// WebhookSecret is the billing provider's signing secret
	// (whsec_ prefix).
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET"`

	// OperatorToken authorizes manual webhook replays. Empty disables
	// the replay path entirely.
	OperatorToken string `mapstructure:"OPERATOR_TOKEN"`

	PoliciesFile          string `mapstructure:"POLICIES_FILE"`
	HandlerTimeoutSeconds int    `mapstructure:"HANDLER_TIMEOUT_SECONDS"`
}

// GetConfig loads configuration from .env and the environment.
// Environment variables win; a missing .env file is not an error.
func GetConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("toml")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("POLICIES_FILE", "policies.yaml")
	viper.SetDefault("HANDLER_TIMEOUT_SECONDS", 30)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("parsing config data: %w", err)
	}
	return &config, nil
}
