package config

import "time"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Speech   SpeechConfig   `mapstructure:"speech" validate:"required"`
	Study    StudyConfig    `mapstructure:"study" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port                   int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	AllowedOrigins         []string `mapstructure:"allowed_origins"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// Speech providers.
const (
	ProviderGemini = "gemini"
	ProviderHTTP   = "http"
	ProviderNone   = "none"
)

// SpeechConfig contains audio synthesis settings. A missing Gemini key is
// not a validation error: synthesis fails at speak time and the local voice
// takes over.
type SpeechConfig struct {
	Provider              string `mapstructure:"provider" validate:"required,oneof=gemini http none"`
	GeminiAPIKey          string `mapstructure:"gemini_api_key"`
	ModelName             string `mapstructure:"model_name" validate:"required"`
	Voice                 string `mapstructure:"voice" validate:"required"`
	ProxyURL              string `mapstructure:"proxy_url" validate:"required_if=Provider http"`
	ProxyToken            string `mapstructure:"proxy_token"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gt=0"`
	MaxRetries            int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	FallbackLanguage      string `mapstructure:"fallback_language" validate:"required"`
	FallbackCommand       string `mapstructure:"fallback_command"`
	PlayerCommand         string `mapstructure:"player_command"`
	CoalesceRequests      bool   `mapstructure:"coalesce_requests"`
	BreakerMaxFailures    int    `mapstructure:"breaker_max_failures" validate:"gt=0"`
	BreakerResetSeconds   int    `mapstructure:"breaker_reset_seconds" validate:"gt=0"`
}

// RequestTimeout returns the remote synthesis timeout.
func (c SpeechConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// BreakerReset returns how long the breaker stays open.
func (c SpeechConfig) BreakerReset() time.Duration {
	return time.Duration(c.BreakerResetSeconds) * time.Second
}

// StudyConfig contains the tunables of the study modes.
type StudyConfig struct {
	MemoryPairs         int `mapstructure:"memory_pairs" validate:"gte=1,lte=50"`
	RequeueOffset       int `mapstructure:"requeue_offset" validate:"gte=1"`
	TransitionMillis    int `mapstructure:"transition_millis" validate:"gte=0"`
	MatchDelayMillis    int `mapstructure:"match_delay_millis" validate:"gte=0"`
	MismatchDelayMillis int `mapstructure:"mismatch_delay_millis" validate:"gte=0"`
	FeedbackDelayMillis int `mapstructure:"feedback_delay_millis" validate:"gte=0"`

	// FinishedTTLSeconds is how long a finished session stays readable
	// without requests before it is dropped.
	FinishedTTLSeconds int `mapstructure:"finished_ttl_seconds" validate:"gte=1"`
}

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Transition returns the flip-card transition delay.
func (c StudyConfig) Transition() time.Duration { return millis(c.TransitionMillis) }

// MatchDelay returns how long a matched pair stays face up before settling.
func (c StudyConfig) MatchDelay() time.Duration { return millis(c.MatchDelayMillis) }

// MismatchDelay returns how long a mismatched pair stays face up.
func (c StudyConfig) MismatchDelay() time.Duration { return millis(c.MismatchDelayMillis) }

// FeedbackDelay returns how long listening feedback is shown.
func (c StudyConfig) FeedbackDelay() time.Duration { return millis(c.FeedbackDelayMillis) }

// FinishedTTL returns the idle lifetime of a finished session.
func (c StudyConfig) FinishedTTL() time.Duration {
	return time.Duration(c.FinishedTTLSeconds) * time.Second
}

// TaskConfig contains background worker settings.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
}
