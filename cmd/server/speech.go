package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/observe"
	"github.com/phrazzld/scry-study/internal/platform/gemini"
	"github.com/phrazzld/scry-study/internal/platform/localaudio"
	"github.com/phrazzld/scry-study/internal/platform/speechhttp"
	"github.com/phrazzld/scry-study/internal/resilience"
	"github.com/phrazzld/scry-study/internal/speech"
)

// discardPlayer selects the silent output, for hosts without a sound device.
const discardPlayer = "none"

// newSpeechService builds the audio pipeline for cfg. A synthesizer that
// cannot be configured is logged and skipped; the local voice then serves
// every request.
func newSpeechService(ctx context.Context, cfg config.SpeechConfig, metrics *observe.Metrics, logger *slog.Logger) *speech.Service {
	opts := []speech.Option{
		speech.WithLogger(logger),
		speech.WithMetrics(metrics),
		speech.WithBreaker(resilience.New(resilience.Config{
			Name:         "speech_synthesis",
			MaxFailures:  cfg.BreakerMaxFailures,
			ResetTimeout: cfg.BreakerReset(),
			Logger:       logger,
		})),
	}

	if synth, err := newSynthesizer(ctx, cfg, logger); err != nil {
		logger.Warn("remote speech synthesis disabled", "provider", cfg.Provider, "error", err)
	} else if synth != nil {
		opts = append(opts, speech.WithSynthesizer(synth))
	}

	if cfg.PlayerCommand == discardPlayer {
		opts = append(opts, speech.WithOutput(localaudio.DiscardFactory()))
	} else {
		opts = append(opts, speech.WithOutput(localaudio.PlayerFactory(cfg.PlayerCommand)))
	}

	voice, err := localaudio.NewVoice(cfg.FallbackCommand)
	switch {
	case err == nil:
		opts = append(opts, speech.WithLocalVoice(voice))
	case errors.Is(err, localaudio.ErrUnavailable):
		logger.Warn("no local voice installed; fallback speech is silent")
	default:
		logger.Warn("local voice disabled", "error", err)
	}

	return speech.New(speech.Config{
		Voice:            cfg.Voice,
		FallbackLanguage: cfg.FallbackLanguage,
		RequestTimeout:   cfg.RequestTimeout(),
		Coalesce:         cfg.CoalesceRequests,
	}, opts...)
}

// newSynthesizer returns nil, nil for the "none" provider.
func newSynthesizer(ctx context.Context, cfg config.SpeechConfig, logger *slog.Logger) (speech.Synthesizer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return gemini.New(ctx, logger, gemini.Config{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.ModelName,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: 500 * time.Millisecond,
		})
	case config.ProviderHTTP:
		return speechhttp.New(cfg.ProxyURL,
			speechhttp.WithTimeout(cfg.RequestTimeout()),
			speechhttp.WithBearerToken(cfg.ProxyToken))
	default:
		return nil, nil
	}
}
