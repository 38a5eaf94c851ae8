package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/phrazzld/scry-study/internal/clock"
	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/events"
	"github.com/phrazzld/scry-study/internal/observe"
	"github.com/phrazzld/scry-study/internal/store"
)

// Config holds the timings and sizes of the study modes.
type Config struct {
	// Transition is the pause between a flip-card grade and the next card.
	Transition time.Duration

	RequeueOffset int
	MemoryPairs   int
	MatchDelay    time.Duration
	MismatchDelay time.Duration
	FeedbackDelay time.Duration

	// LeaderboardTimeout bounds the history load at memory-mode completion.
	LeaderboardTimeout time.Duration

	// FinishedTTL is how long a finished session may go without requests
	// before the manager drops it.
	FinishedTTL time.Duration
}

// DefaultConfig returns the standard study timings.
func DefaultConfig() Config {
	return Config{
		Transition:         300 * time.Millisecond,
		RequeueOffset:      3,
		MemoryPairs:        6,
		MatchDelay:         500 * time.Millisecond,
		MismatchDelay:      1000 * time.Millisecond,
		FeedbackDelay:      1500 * time.Millisecond,
		LeaderboardTimeout: 10 * time.Second,
		FinishedTTL:        15 * time.Minute,
	}
}

// ConfigFromStudy converts the study section of the application config.
func ConfigFromStudy(c config.StudyConfig) Config {
	cfg := DefaultConfig()
	cfg.Transition = c.Transition()
	cfg.RequeueOffset = c.RequeueOffset
	cfg.MemoryPairs = c.MemoryPairs
	cfg.MatchDelay = c.MatchDelay()
	cfg.MismatchDelay = c.MismatchDelay()
	cfg.FeedbackDelay = c.FeedbackDelay()
	if ttl := c.FinishedTTL(); ttl > 0 {
		cfg.FinishedTTL = ttl
	}
	return cfg
}

// Speaker plays text aloud without blocking. speech.Service implements it.
type Speaker interface {
	Speak(ctx context.Context, text string)
}

// HistorySource loads the persisted session records used for leaderboards.
type HistorySource interface {
	FetchAll(ctx context.Context) (*store.Snapshot, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for timers and session times.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithSpeaker sets where prompts are spoken.
func WithSpeaker(s Speaker) Option {
	return func(m *Manager) { m.speaker = s }
}

// WithHistory sets the source of past records for memory-mode leaderboards.
func WithHistory(h HistorySource) Option {
	return func(m *Manager) { m.history = h }
}

// WithEmitter sets where session.completed events are published.
func WithEmitter(e events.EventEmitter) Option {
	return func(m *Manager) { m.emitter = e }
}

// WithMetrics records session gauges and counters.
func WithMetrics(metrics *observe.Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// Manager creates sessions and tracks the live ones by ID.
type Manager struct {
	cfg     Config
	clock   clock.Clock
	speaker Speaker
	history HistorySource
	emitter events.EventEmitter
	metrics *observe.Metrics

	// base is the caller's logger; sessions scope their own from it.
	base   *slog.Logger
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool

	// background tracks leaderboard loads so Close can wait for them.
	background sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(cfg Config, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.RequeueOffset <= 0 {
		cfg.RequeueOffset = def.RequeueOffset
	}
	if cfg.MemoryPairs <= 0 {
		cfg.MemoryPairs = def.MemoryPairs
	}
	if cfg.FeedbackDelay <= 0 {
		cfg.FeedbackDelay = def.FeedbackDelay
	}
	if cfg.LeaderboardTimeout <= 0 {
		cfg.LeaderboardTimeout = def.LeaderboardTimeout
	}
	if cfg.FinishedTTL <= 0 {
		cfg.FinishedTTL = def.FinishedTTL
	}

	m := &Manager{
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = clock.Real()
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.base = m.logger
	m.logger = m.logger.With("component", "session_manager")
	return m
}

// StartParams describes a new session.
type StartParams struct {
	Username string
	Deck     *domain.Deck
	Mode     domain.Mode

	// Seed fixes the shuffle. Nil picks a random seed.
	Seed *uint64
}

// Start validates p, builds the engine for its mode and starts the session
// loop. The deck is not modified; the session studies a working copy.
func (m *Manager) Start(ctx context.Context, p StartParams) (*Session, error) {
	username := strings.TrimSpace(p.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", domain.ErrValidation)
	}
	if p.Deck == nil {
		return nil, fmt.Errorf("%w: deck is required", domain.ErrValidation)
	}
	mode, err := domain.ParseMode(string(p.Mode))
	if err != nil {
		return nil, err
	}
	if err := p.Deck.Validate(); err != nil {
		return nil, err
	}
	if p.Deck.Len() < mode.MinCards() {
		return nil, fmt.Errorf("%w: %s mode needs at least %d cards, deck has %d",
			domain.ErrDeckTooSmall, mode, mode.MinCards(), p.Deck.Len())
	}

	seed := rand.Uint64()
	if p.Seed != nil {
		seed = *p.Seed
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	s, err := newSession(m, id, username, p.Deck, mode, seed)
	if err != nil {
		return nil, err
	}

	if err := m.register(s); err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.ActiveSessions.Add(ctx, 1, metric.WithAttributes(attribute.String("mode", string(mode))))
	}

	go s.run()
	if err := s.do(ctx, s.begin); err != nil {
		_ = s.Abandon(context.Background())
		return nil, err
	}

	m.logger.InfoContext(ctx, "session started",
		"session_id", id,
		"username", username,
		"deck_id", p.Deck.ID,
		"mode", mode,
		"seed", seed)
	return s, nil
}

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Abandon ends the session with id, cancelling its timers and speech.
func (m *Manager) Abandon(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Abandon(ctx)
}

// Close abandons every live session, refuses new ones and waits for pending
// leaderboard loads. It returns ctx's error if ctx ends first.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		live = append(live, s)
	}
	m.mu.Unlock()

	for _, s := range live {
		if err := s.Abandon(ctx); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		m.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		m.logger.Info("session manager closed", "abandoned", len(live))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// register makes s reachable by ID. A session refused because the manager is
// closed has its context cancelled.
func (m *Manager) register(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		s.cancel()
		return ErrManagerClosed
	}
	m.sessions[s.id] = s
	return nil
}

func (m *Manager) remove(s *Session) {
	m.mu.Lock()
	current, ok := m.sessions[s.id]
	if ok && current == s {
		delete(m.sessions, s.id)
	}
	m.mu.Unlock()

	if ok && current == s && m.metrics != nil {
		m.metrics.ActiveSessions.Add(context.Background(), -1,
			metric.WithAttributes(attribute.String("mode", string(s.mode))))
	}
}
