// Package speech turns text into audible output for study sessions.
//
// Service runs a best-effort pipeline: play from the cache when the exact
// text has been heard before, otherwise synthesize remotely, decode, cache
// and play. Any failure along the way degrades to a local platform voice, or
// to silence when none exists. Callers never see an error.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/phrazzld/scry-study/internal/observe"
	"github.com/phrazzld/scry-study/internal/redact"
	"github.com/phrazzld/scry-study/internal/resilience"
)

// Source identifies which path served a request.
type Source string

// Possible sources
const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
	SourceSilent   Source = "silent"
)

// Config holds the pipeline settings.
type Config struct {
	// Voice is the remote voice selector.
	Voice string

	// FallbackLanguage is the language tag handed to the local voice.
	FallbackLanguage string

	// RequestTimeout bounds a single remote synthesis call.
	RequestTimeout time.Duration

	// Coalesce shares one remote call among concurrent requests for the
	// same uncached text.
	Coalesce bool
}

// Option configures a Service.
type Option func(*Service)

// WithSynthesizer sets the remote synthesizer. Without one every request
// goes to the fallback.
func WithSynthesizer(s Synthesizer) Option {
	return func(svc *Service) { svc.synth = s }
}

// WithOutput sets how the playback output is acquired.
func WithOutput(f OutputFactory) Option {
	return func(svc *Service) { svc.outputs = f }
}

// WithLocalVoice sets the fallback voice.
func WithLocalVoice(v LocalVoice) Option {
	return func(svc *Service) { svc.local = v }
}

// WithBreaker guards the synthesizer with a circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(svc *Service) { svc.breaker = cb }
}

// WithMetrics records request and error counters.
func WithMetrics(m *observe.Metrics) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// Service owns an audio cache and a playback output. Create one with New and
// release it with Dispose.
type Service struct {
	cfg     Config
	synth   Synthesizer
	outputs OutputFactory
	local   LocalVoice
	breaker *resilience.CircuitBreaker
	metrics *observe.Metrics
	logger  *slog.Logger

	cache *Cache
	group singleflight.Group

	outMu  sync.Mutex
	output Output

	lifeMu   sync.Mutex
	disposed bool
	inflight sync.WaitGroup
}

// New creates a Service.
func New(cfg Config, opts ...Option) *Service {
	if cfg.FallbackLanguage == "" {
		cfg.FallbackLanguage = "en"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}

	s := &Service{cfg: cfg, cache: NewCache()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "speech")
	return s
}

// Speak plays text in the background and returns immediately. Cancelling
// ctx drops the result: a late buffer is still cached but not played.
func (s *Service) Speak(ctx context.Context, text string) {
	if !s.begin() {
		return
	}
	go func() {
		defer s.inflight.Done()
		s.run(ctx, text)
	}()
}

// SpeakSync runs the pipeline on the calling goroutine and reports which
// path served it.
func (s *Service) SpeakSync(ctx context.Context, text string) Source {
	if !s.begin() {
		return SourceSilent
	}
	defer s.inflight.Done()
	return s.run(ctx, text)
}

// Cached reports whether text is in the cache.
func (s *Service) Cached(text string) bool {
	_, ok := s.cache.Get(text)
	return ok
}

// Dispose waits for in-flight requests, then closes the output. Requests
// made after Dispose are silent.
func (s *Service) Dispose() error {
	s.lifeMu.Lock()
	if s.disposed {
		s.lifeMu.Unlock()
		return nil
	}
	s.disposed = true
	s.lifeMu.Unlock()

	s.inflight.Wait()

	s.outMu.Lock()
	defer s.outMu.Unlock()
	if s.output == nil {
		return nil
	}
	err := s.output.Close()
	s.output = nil
	return err
}

func (s *Service) begin() bool {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.disposed {
		return false
	}
	s.inflight.Add(1)
	return true
}

func (s *Service) run(ctx context.Context, text string) Source {
	src := s.serve(ctx, text)
	if s.metrics != nil {
		s.metrics.RecordSpeech(ctx, string(src))
	}
	s.logger.DebugContext(ctx, "speech served",
		slog.String("source", string(src)),
		slog.Int("text_length", len(text)))
	return src
}

func (s *Service) serve(ctx context.Context, text string) Source {
	if strings.TrimSpace(text) == "" {
		return SourceSilent
	}

	out, err := s.acquireOutput(ctx)
	if err != nil {
		return s.fallback(ctx, text, err)
	}

	if buf, ok := s.cache.Get(text); ok {
		if err := s.play(ctx, out, buf); err != nil {
			return s.fallback(ctx, text, err)
		}
		return SourceCache
	}

	buf, err := s.fetch(ctx, text)
	if err != nil {
		return s.fallback(ctx, text, err)
	}
	if ctx.Err() != nil {
		return SourceSilent
	}
	if err := s.play(ctx, out, buf); err != nil {
		return s.fallback(ctx, text, err)
	}
	return SourceRemote
}

func (s *Service) acquireOutput(ctx context.Context) (Output, error) {
	if s.outputs == nil {
		return nil, fmt.Errorf("%w: no output device", ErrPlayback)
	}

	s.outMu.Lock()
	defer s.outMu.Unlock()

	if s.output == nil || s.output.State() == OutputClosed {
		out, err := s.outputs(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: acquire output: %v", ErrPlayback, err)
		}
		s.output = out
	}
	if s.output.State() == OutputSuspended {
		if err := s.output.Resume(ctx); err != nil {
			return nil, fmt.Errorf("%w: resume output: %v", ErrPlayback, err)
		}
	}
	return s.output, nil
}

func (s *Service) play(ctx context.Context, out Output, buf Buffer) error {
	if err := out.Play(ctx, buf); err != nil {
		if errors.Is(err, ErrPlayback) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPlayback, err)
	}
	return nil
}

// fetch synthesizes, decodes and caches text. The remote call is detached
// from ctx and bounded by RequestTimeout, so a stale request still fills the
// cache for the next one.
func (s *Service) fetch(ctx context.Context, text string) (Buffer, error) {
	if s.synth == nil {
		return Buffer{}, fmt.Errorf("%w: no synthesizer", ErrConfiguration)
	}
	if !s.cfg.Coalesce {
		return s.synthesize(ctx, text)
	}

	v, err, _ := s.group.Do(text, func() (any, error) {
		return s.synthesize(ctx, text)
	})
	if err != nil {
		return Buffer{}, err
	}
	return v.(Buffer), nil
}

func (s *Service) synthesize(ctx context.Context, text string) (Buffer, error) {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	var audio Audio
	call := func() error {
		var err error
		audio, err = s.synth.Synthesize(callCtx, text, s.cfg.Voice)
		return err
	}

	var err error
	if s.breaker != nil {
		var callErr error
		err = s.breaker.Execute(func() error {
			callErr = call()
			if tripsBreaker(callErr) {
				return callErr
			}
			return nil
		})
		if err == nil {
			err = callErr
		}
	} else {
		err = call()
	}
	if s.metrics != nil {
		s.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		return Buffer{}, err
	}

	samples := DecodePCM16(audio.PCM)
	if len(samples) == 0 {
		return Buffer{}, ErrEmptyPayload
	}
	rate := audio.SampleRate
	if rate <= 0 {
		rate = SampleRate
	}

	buf := Buffer{Samples: samples, SampleRate: rate}
	s.cache.Put(text, buf)
	return buf, nil
}

func (s *Service) fallback(ctx context.Context, text string, cause error) Source {
	kind := errorKind(cause)
	if s.metrics != nil {
		s.metrics.RecordSpeechError(ctx, kind)
	}
	s.logger.WarnContext(ctx, "speech synthesis degraded to fallback",
		slog.String("kind", kind),
		slog.String("error", redact.Error(cause)))

	if ctx.Err() != nil || s.local == nil {
		return SourceSilent
	}
	if err := s.local.Speak(ctx, text, s.cfg.FallbackLanguage); err != nil {
		s.logger.WarnContext(ctx, "local voice failed",
			slog.String("error", redact.Error(err)))
		return SourceSilent
	}
	return SourceFallback
}
