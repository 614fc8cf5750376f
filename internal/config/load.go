package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment variable, e.g. MOODBOARD_DATABASE_URL.
const envPrefix = "MOODBOARD"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so keys without
	// defaults have to be bound explicitly.
	for _, key := range []string{
		"database.url",
		"redis.url",
		"llm.gemini_api_key",
		"health.restart_url",
		"health.restart_token",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("redis.queue_key", "moodboard:jobs")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("llm.embedding_model", "text-embedding-004")
	v.SetDefault("llm.vision_model", "gemini-2.0-flash")
	v.SetDefault("llm.naming_model", "gemini-2.0-flash")
	v.SetDefault("llm.requests_per_second", 5.0)
	v.SetDefault("llm.image_max_bytes", 10<<20)

	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.poll_timeout", 5*time.Second)
	v.SetDefault("worker.job_timeout", 5*time.Minute)
	v.SetDefault("worker.shutdown_timeout", 30*time.Second)
	v.SetDefault("worker.promote_interval", time.Second)
	v.SetDefault("worker.heartbeat_schedule", "* * * * *")
	v.SetDefault("worker.heartbeat_ttl", 150*time.Second)
	v.SetDefault("worker.cluster_lock_ttl", 300*time.Second)
	v.SetDefault("worker.lock_release_grace", 100*time.Millisecond)
	v.SetDefault("worker.image_max_retries", 5)
	v.SetDefault("worker.image_backoff_cap", 30*time.Second)
	v.SetDefault("worker.restart_initial_backoff", time.Second)
	v.SetDefault("worker.restart_max_backoff", 60*time.Second)

	v.SetDefault("health.process_label", "worker")
	v.SetDefault("health.heartbeat_stale_after", 150*time.Second)
	v.SetDefault("health.reconnect_max_backoff", 30*time.Second)
}
