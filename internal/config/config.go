package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" validate:"required"`
	Cache   CacheConfig   `mapstructure:"cache" validate:"required"`
	Task    TaskConfig    `mapstructure:"task" validate:"required"`
	LLM     LLMConfig     `mapstructure:"llm" validate:"required"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	Host            string        `mapstructure:"host"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// CacheConfig controls the file-backed response cache.
type CacheConfig struct {
	Dir string        `mapstructure:"dir" validate:"required"`
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"`
	// NamespaceTTLs overrides TTL for individual namespaces (e.g. "pdfs": 168h).
	NamespaceTTLs map[string]time.Duration `mapstructure:"namespace_ttls"`
	Compress      bool                     `mapstructure:"compress"`
}

// TaskConfig controls the background task runner.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0,lte=64"`
	// QueueSize bounds the number of pending tasks. Zero means unbounded.
	QueueSize int `mapstructure:"queue_size" validate:"gte=0"`
	// Retention is how long terminal tasks are kept before cleanup removes them.
	Retention       time.Duration `mapstructure:"retention" validate:"gt=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	// GeminiAPIKey is optional; without it the skills extraction endpoint is disabled.
	GeminiAPIKey      string        `mapstructure:"gemini_api_key"`
	ModelName         string        `mapstructure:"model_name" validate:"required"`
	MaxRetries        int           `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" validate:"gt=0"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gt=0"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	SkillCap          int           `mapstructure:"skill_cap" validate:"gt=0,lte=50"`
}

// MetricsConfig controls the performance snapshot history.
type MetricsConfig struct {
	SampleInterval time.Duration `mapstructure:"sample_interval" validate:"gt=0"`
	HistorySize    int           `mapstructure:"history_size" validate:"gt=0,lte=100000"`
}
