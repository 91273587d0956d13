package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env                string `mapstructure:"ENV"`
	BackendURL         string `mapstructure:"BACKEND_URL"`
	AuthSigningKey     string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer         string `mapstructure:"AUTH_ISSUER"`
	PollIntervalMS     int    `mapstructure:"POLL_INTERVAL_MS"`
	PollTimeoutMS      int    `mapstructure:"POLL_TIMEOUT_MS"`
	ResultsDatabaseURL string `mapstructure:"RESULTS_DATABASE_URL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ENV", "development")
	v.SetDefault("BACKEND_URL", "http://127.0.0.1:9090")
	v.SetDefault("AUTH_ISSUER", "erx-harness")
	v.SetDefault("POLL_INTERVAL_MS", 500)
	v.SetDefault("POLL_TIMEOUT_MS", 10000)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("ENV")
	v.BindEnv("BACKEND_URL")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("POLL_INTERVAL_MS")
	v.BindEnv("POLL_TIMEOUT_MS")
	v.BindEnv("RESULTS_DATABASE_URL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}
	if cfg.AuthSigningKey == "" {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY is required")
	}
	if cfg.PollIntervalMS <= 0 || cfg.PollTimeoutMS <= 0 {
		return nil, fmt.Errorf("poll interval and timeout must be positive")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// PollInterval returns the communication polling interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// PollTimeout returns the bounded wait applied to asynchronous
// expectations; elapsing it is a negative result, not an error.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutMS) * time.Millisecond
}
