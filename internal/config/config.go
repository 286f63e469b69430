package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"    validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"  validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"      validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Task      TaskConfig      `mapstructure:"task"      validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url"            validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret               string `mapstructure:"jwt_secret"                 validate:"required,min=32"`
	TokenLifetimeMinutes    int    `mapstructure:"token_lifetime_minutes"     validate:"required,gt=0"`
	RefreshLifetimeMinutes  int    `mapstructure:"refresh_lifetime_minutes"   validate:"required,gt=0"`
	BcryptCost              int    `mapstructure:"bcrypt_cost"                validate:"gte=0,lte=31"`
}

// SchedulerConfig contains the review scheduling settings consumed by the
// scheduler service.
type SchedulerConfig struct {
	// DesiredRetention is the recall probability the scheduler targets
	// when converting memory stability into review intervals.
	DesiredRetention float64 `mapstructure:"desired_retention" validate:"required,gt=0,lt=1"`

	// Queue assembly defaults.
	NewCount int `mapstructure:"new_count" validate:"required,gt=0"`
	MaxDue   int `mapstructure:"max_due"   validate:"required,gt=0"`
	MinDue   int `mapstructure:"min_due"   validate:"required,gt=0"`

	// MaxReviewRetries bounds the retry loop for review transactions that
	// hit lock contention before the conflict surfaces to the caller.
	MaxReviewRetries int `mapstructure:"max_review_retries" validate:"gte=0"`

	// MinReviewsForOptimization is the review-count floor below which a
	// parameter optimization run reports "skipped".
	MinReviewsForOptimization int `mapstructure:"min_reviews_for_optimization" validate:"required,gt=0"`

	// Candidate selection settings.
	CandidateRetrievabilityThreshold float64 `mapstructure:"candidate_retrievability_threshold" validate:"required,gt=0,lt=1"`
	CandidateConfidentDueDays        int     `mapstructure:"candidate_confident_due_days"       validate:"required,gt=0"`
	CandidateCap                     int     `mapstructure:"candidate_cap"                      validate:"required,gt=0"`
}

// TaskConfig contains background task runner settings.
type TaskConfig struct {
	WorkerCount               int `mapstructure:"worker_count"                 validate:"required,gt=0"`
	QueueSize                 int `mapstructure:"queue_size"                   validate:"required,gt=0"`
	StuckTaskAgeMinutes       int `mapstructure:"stuck_task_age_minutes"       validate:"required,gt=0"`
	StuckTaskCheckIntervalMin int `mapstructure:"stuck_task_check_interval_min" validate:"required,gt=0"`
}

// StuckTaskAge returns the configured stuck-task age as a duration.
func (c TaskConfig) StuckTaskAge() time.Duration {
	return time.Duration(c.StuckTaskAgeMinutes) * time.Minute
}

// StuckTaskCheckInterval returns the configured check interval as a duration.
func (c TaskConfig) StuckTaskCheckInterval() time.Duration {
	return time.Duration(c.StuckTaskCheckIntervalMin) * time.Minute
}

// TokenLifetime returns the access token lifetime as a duration.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// RefreshLifetime returns the refresh token lifetime as a duration.
func (c AuthConfig) RefreshLifetime() time.Duration {
	return time.Duration(c.RefreshLifetimeMinutes) * time.Minute
}
