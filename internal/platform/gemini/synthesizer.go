package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/phrazzld/scry-study/internal/speech"
)

// Defaults used when the configuration leaves a field empty.
const (
	DefaultModel = "gemini-2.5-flash-preview-tts"
	DefaultVoice = "Kore"
)

// Config holds the Gemini TTS settings.
type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
	RetryDelay time.Duration
}

// contentGenerator is the subset of genai.Models the synthesizer uses.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Synthesizer implements speech.Synthesizer with Gemini's TTS models.
type Synthesizer struct {
	logger     *slog.Logger
	models     contentGenerator
	model      string
	maxRetries int
	retryDelay time.Duration
	sleep      func(context.Context, time.Duration) error
}

var _ speech.Synthesizer = (*Synthesizer)(nil)

// New creates a Synthesizer. A missing API key is reported as
// speech.ErrConfiguration so the caller can run without remote synthesis.
func New(ctx context.Context, logger *slog.Logger, cfg Config) (*Synthesizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key is empty", speech.ErrConfiguration)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", speech.ErrConfiguration, err)
	}
	return newSynthesizer(logger, client.Models, cfg), nil
}

func newSynthesizer(logger *slog.Logger, models contentGenerator, cfg Config) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}
	return &Synthesizer{
		logger:     logger.With("component", "gemini_tts", "model", cfg.Model),
		models:     models,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		sleep:      sleepContext,
	}
}

// Synthesize requests spoken audio for text. Transient failures are retried
// with exponential backoff and jitter; a rejected key or request is not.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) (speech.Audio, error) {
	if voice == "" {
		voice = DefaultVoice
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff(attempt)
			s.logger.DebugContext(ctx, "retrying speech synthesis",
				"attempt", attempt+1,
				"delay", delay)
			if err := s.sleep(ctx, delay); err != nil {
				return speech.Audio{}, fmt.Errorf("%w: %v", speech.ErrTransport, err)
			}
		}

		resp, err := s.models.GenerateContent(ctx, s.model, genai.Text(text), config)
		if err != nil {
			lastErr = classify(err)
			if !retryable(err) {
				return speech.Audio{}, lastErr
			}
			s.logger.WarnContext(ctx, "speech synthesis attempt failed",
				"attempt", attempt+1,
				"error", lastErr)
			continue
		}
		return extractAudio(resp)
	}
	return speech.Audio{}, lastErr
}

// backoff returns base·2^(attempt-1) scaled by a jitter factor in [0.5, 1).
func (s *Synthesizer) backoff(attempt int) time.Duration {
	base := float64(s.retryDelay) * math.Pow(2, float64(attempt-1))
	return time.Duration(base * (0.5 + rand.Float64()*0.5))
}

func extractAudio(resp *genai.GenerateContentResponse) (speech.Audio, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return speech.Audio{}, fmt.Errorf("%w: no candidates", speech.ErrEmptyPayload)
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return speech.Audio{}, fmt.Errorf("%w: blocked by safety filters", speech.ErrEmptyPayload)
	}

	audio := speech.Audio{SampleRate: speech.SampleRate}
	for _, part := range cand.Content.Parts {
		if part == nil || part.InlineData == nil {
			continue
		}
		audio.PCM = append(audio.PCM, part.InlineData.Data...)
		if rate := sampleRate(part.InlineData.MIMEType); rate > 0 {
			audio.SampleRate = rate
		}
	}
	if len(audio.PCM) == 0 {
		return speech.Audio{}, fmt.Errorf("%w: no inline audio", speech.ErrEmptyPayload)
	}
	return audio, nil
}

// sampleRate reads the rate parameter of a MIME type such as
// "audio/L16;codec=pcm;rate=24000".
func sampleRate(mime string) int {
	for _, param := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(k, "rate") {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: gemini rejected credentials (%d)", speech.ErrConfiguration, apiErr.Code)
		default:
			return fmt.Errorf("%w: gemini status %d", speech.ErrTransport, apiErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", speech.ErrTransport, err)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
