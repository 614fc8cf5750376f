package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Health   HealthConfig   `mapstructure:"health"   validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// RedisConfig configures the broker, lock and heartbeat backing store.
type RedisConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
	// QueueKey prefixes every queue key (ready list, delayed set, processing lists).
	QueueKey string `mapstructure:"queue_key" validate:"required"`
	// Consumer names this worker's processing list. Two live workers must not share it.
	Consumer string `mapstructure:"consumer" validate:"required"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey      string  `mapstructure:"gemini_api_key"      validate:"required"`
	EmbeddingModel    string  `mapstructure:"embedding_model"     validate:"required"`
	VisionModel       string  `mapstructure:"vision_model"        validate:"required"`
	NamingModel       string  `mapstructure:"naming_model"        validate:"required"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	ImageMaxBytes     int64   `mapstructure:"image_max_bytes"     validate:"gt=0"`
}

// WorkerConfig tunes the worker pool, its supervisor and the job handlers.
type WorkerConfig struct {
	Concurrency           int           `mapstructure:"concurrency"             validate:"required,gt=0"`
	PollTimeout           time.Duration `mapstructure:"poll_timeout"            validate:"gt=0"`
	JobTimeout            time.Duration `mapstructure:"job_timeout"             validate:"gt=0"`
	ShutdownTimeout       time.Duration `mapstructure:"shutdown_timeout"        validate:"gte=0"`
	PromoteInterval       time.Duration `mapstructure:"promote_interval"        validate:"gt=0"`
	HeartbeatSchedule     string        `mapstructure:"heartbeat_schedule"      validate:"required"`
	HeartbeatTTL          time.Duration `mapstructure:"heartbeat_ttl"           validate:"gt=0"`
	ClusterLockTTL        time.Duration `mapstructure:"cluster_lock_ttl"        validate:"gt=0"`
	LockReleaseGrace      time.Duration `mapstructure:"lock_release_grace"      validate:"gte=0"`
	ImageMaxRetries       int           `mapstructure:"image_max_retries"       validate:"gt=0"`
	ImageBackoffCap       time.Duration `mapstructure:"image_backoff_cap"       validate:"gt=0"`
	RestartInitialBackoff time.Duration `mapstructure:"restart_initial_backoff" validate:"gt=0"`
	RestartMaxBackoff     time.Duration `mapstructure:"restart_max_backoff"     validate:"gtefield=RestartInitialBackoff"`
}

// HealthConfig configures liveness reporting and the out-of-band restart hook.
type HealthConfig struct {
	// RestartURL is the infrastructure endpoint that restarts the worker process.
	// When empty, stale heartbeats are only logged.
	RestartURL          string        `mapstructure:"restart_url"           validate:"omitempty,url"`
	RestartToken        string        `mapstructure:"restart_token"`
	ProcessLabel        string        `mapstructure:"process_label"         validate:"required"`
	HeartbeatStaleAfter time.Duration `mapstructure:"heartbeat_stale_after" validate:"gt=0"`
	ReconnectMaxBackoff time.Duration `mapstructure:"reconnect_max_backoff" validate:"gt=0"`
}
