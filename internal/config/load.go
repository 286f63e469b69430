package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and an optional
// config file. Environment variables take precedence over file values.
// Returns a populated Config struct or an error if loading/validation fails.
//
// Environment variables use the ENGRAM_ prefix with underscores for
// nesting, e.g. ENGRAM_DATABASE_URL, ENGRAM_SERVER_LOG_LEVEL.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Optional config file in the working directory or /etc/engram.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/engram")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults carry the load.
	}

	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for all settings that have
// sensible ones. Secrets (database URL, JWT secret) have no defaults
// and must be provided explicitly.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	// Empty defaults register the secret keys with viper; AutomaticEnv only
	// surfaces env values for keys it already knows about. Validation still
	// rejects them when left empty.
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_lifetime_minutes", 10080)
	v.SetDefault("auth.bcrypt_cost", 0) // 0 selects the bcrypt default cost

	v.SetDefault("scheduler.desired_retention", 0.9)
	v.SetDefault("scheduler.new_count", 10)
	v.SetDefault("scheduler.max_due", 50)
	v.SetDefault("scheduler.min_due", 10)
	v.SetDefault("scheduler.max_review_retries", 3)
	v.SetDefault("scheduler.min_reviews_for_optimization", 400)
	v.SetDefault("scheduler.candidate_retrievability_threshold", 0.8)
	v.SetDefault("scheduler.candidate_confident_due_days", 7)
	v.SetDefault("scheduler.candidate_cap", 20)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.stuck_task_age_minutes", 30)
	v.SetDefault("task.stuck_task_check_interval_min", 5)
}
