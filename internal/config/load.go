package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// keys without a default still have to be bound so that AutomaticEnv values
// reach Unmarshal.
var boundKeys = []string{
	"database.url",
	"speech.gemini_api_key",
	"speech.proxy_url",
	"speech.proxy_token",
	"speech.fallback_command",
	"speech.player_command",
	"server.allowed_origins",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("speech.provider", ProviderGemini)
	v.SetDefault("speech.model_name", "gemini-2.5-flash-preview-tts")
	v.SetDefault("speech.voice", "Kore")
	v.SetDefault("speech.request_timeout_seconds", 15)
	v.SetDefault("speech.max_retries", 2)
	v.SetDefault("speech.fallback_language", "en")
	v.SetDefault("speech.coalesce_requests", true)
	v.SetDefault("speech.breaker_max_failures", 5)
	v.SetDefault("speech.breaker_reset_seconds", 30)

	v.SetDefault("study.memory_pairs", 6)
	v.SetDefault("study.requeue_offset", 3)
	v.SetDefault("study.transition_millis", 300)
	v.SetDefault("study.match_delay_millis", 500)
	v.SetDefault("study.mismatch_delay_millis", 1000)
	v.SetDefault("study.feedback_delay_millis", 1500)
	v.SetDefault("study.finished_ttl_seconds", 900)

	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
}

// Load reads configuration from ./config.yaml if present and from SCRY_
// environment variables, which take precedence.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit config file. An empty path looks for an
// optional config.yaml in the working directory; a non-empty path must exist.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("SCRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
