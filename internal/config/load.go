package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and, when present,
// a config.yaml file in the working directory. Environment variables use
// the CARDFORGE_ prefix with underscores for nesting (for example
// CARDFORGE_SERVER_PORT) and take precedence over file values. Returns a
// populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CARDFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; the environment can supply
		// everything.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// AutomaticEnv only resolves keys viper already knows about, so bind
	// every key we read explicitly.
	bindEnvKeys(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults establishes the defaults the distilled deployment relies on.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.env", EnvProduction)
	v.SetDefault("server.log_level", "")

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.timeout_ms", 30000)

	v.SetDefault("rate_limit.capacity", 10)
	v.SetDefault("rate_limit.refill_rate", 1)
	v.SetDefault("rate_limit.refill_interval_ms", 6000)
	v.SetDefault("rate_limit.max_wait_time_ms", 30000)
}

// bindEnvKeys binds each configuration key to its CARDFORGE_ variable.
func bindEnvKeys(v *viper.Viper) {
	keys := []string{
		"server.port",
		"server.env",
		"server.log_level",
		"database.url",
		"auth.jwt_secret",
		"llm.provider",
		"llm.api_key",
		"llm.model_name",
		"llm.endpoint",
		"llm.timeout_ms",
		"rate_limit.capacity",
		"rate_limit.refill_rate",
		"rate_limit.refill_interval_ms",
		"rate_limit.max_wait_time_ms",
	}
	for _, key := range keys {
		// BindEnv only errors on an empty key.
		_ = v.BindEnv(key)
	}
}

// validate runs struct validation over the unmarshalled configuration and
// converts the first failure into a readable error.
func validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			first := validationErrors[0]
			return fmt.Errorf("invalid configuration: field %s failed on the %q rule",
				first.Namespace(), first.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}
