package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/clock"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/events"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/redact"
	"github.com/phrazzld/scry-study/internal/study/flipcard"
	"github.com/phrazzld/scry-study/internal/study/listening"
	"github.com/phrazzld/scry-study/internal/study/match"
	"github.com/phrazzld/scry-study/internal/study/stats"
)

// Session is one learner studying one deck in one mode.
type Session struct {
	id        string
	username  string
	deckID    uuid.UUID
	deckName  string
	mode      domain.Mode
	startedAt time.Time

	mgr    *Manager
	logger *slog.Logger

	inbox   chan func()
	stopped chan struct{}

	// Everything below is owned by the loop goroutine.

	flip  *flipcard.Scheduler
	board *match.Engine
	quiz  *listening.Engine

	timers    map[uint64]clock.Timer
	nextTimer uint64

	// ctx lives as long as the session; turnCtx as long as the current
	// prompt.
	ctx        context.Context
	cancel     context.CancelFunc
	turnCtx    context.Context
	cancelTurn context.CancelFunc

	closing            bool
	record             *domain.SessionRecord
	reaper             uint64
	leaderboard        *stats.Leaderboard
	leaderboardPending bool
}

func newSession(m *Manager, id, username string, deck *domain.Deck, mode domain.Mode, seed uint64) (*Session, error) {
	s := &Session{
		id:        id,
		username:  username,
		deckID:    deck.ID,
		deckName:  deck.Name,
		mode:      mode,
		startedAt: m.clock.Now().UTC(),
		mgr:       m,
		inbox:     make(chan func()),
		stopped:   make(chan struct{}),
		timers:    make(map[uint64]clock.Timer),
	}
	s.logger = m.base.With(
		"component", "session",
		"session_id", id,
		"mode", string(mode),
	)
	s.ctx, s.cancel = context.WithCancel(logger.WithLogger(context.Background(), s.logger))

	rng := domain.NewRand(seed)
	var err error
	switch mode {
	case domain.ModeFlipCard:
		s.flip = flipcard.New(deck, rng, flipcard.Options{RequeueOffset: m.cfg.RequeueOffset})
	case domain.ModeMemory:
		s.board, err = match.New(deck, rng, m.clock.Now, match.Options{
			Pairs:         m.cfg.MemoryPairs,
			MatchDelay:    m.cfg.MatchDelay,
			MismatchDelay: m.cfg.MismatchDelay,
		})
	case domain.ModeListening:
		s.quiz, err = listening.New(deck, rng, listening.Options{FeedbackDelay: m.cfg.FeedbackDelay})
	default:
		err = domain.ErrInvalidMode
	}
	if err != nil {
		s.cancel()
		return nil, err
	}
	return s, nil
}

// ID returns the session handle.
func (s *Session) ID() string { return s.id }

// Mode returns the study mode.
func (s *Session) Mode() domain.Mode { return s.mode }

// Username returns the learner's name.
func (s *Session) Username() string { return s.username }

// DeckID returns the studied deck.
func (s *Session) DeckID() uuid.UUID { return s.deckID }

// Outcome is the result of one learner action.
type Outcome struct {
	// Accepted is false when the action was ignored: wrong mode, a pending
	// transition, a locked turn or a finished session.
	Accepted bool `json:"accepted"`

	// Match is set by the second click of a memory-mode pair.
	Match *bool `json:"match,omitempty"`

	// Feedback is set by an accepted listening answer.
	Feedback listening.Feedback `json:"feedback,omitempty"`

	Session View `json:"session"`
}

// Grade applies a flip-card grade to the current card. The next card is
// selected after the configured transition; grades during it are ignored.
func (s *Session) Grade(ctx context.Context, r flipcard.Result) (Outcome, error) {
	var out Outcome
	err := s.do(ctx, func() {
		if s.flip != nil && s.flip.Grade(r) {
			out.Accepted = true
			s.schedule(s.mgr.cfg.Transition, s.settleFlip)
		}
		out.Session = s.view()
	})
	return out, err
}

// Click turns over memory tile i. The second tile of a pair resolves after
// the match or mismatch delay.
func (s *Session) Click(ctx context.Context, i int) (Outcome, error) {
	var out Outcome
	err := s.do(ctx, func() {
		if s.board != nil {
			if res, ok := s.board.Click(i); ok {
				out.Accepted = true
				if res.Resolving {
					matched := res.Match
					out.Match = &matched
					s.schedule(res.Delay, s.resolveBoard)
				}
			}
		}
		out.Session = s.view()
	})
	return out, err
}

// Answer picks option i of the current listening turn. The quiz moves on
// after the feedback delay.
func (s *Session) Answer(ctx context.Context, i int) (Outcome, error) {
	var out Outcome
	err := s.do(ctx, func() {
		if s.quiz != nil {
			if fb, ok := s.quiz.Answer(i); ok {
				out.Accepted = true
				out.Feedback = fb
				s.schedule(s.quiz.FeedbackDelay(), s.advanceQuiz)
			}
		}
		out.Session = s.view()
	})
	return out, err
}

// Replay speaks the current prompt again. Memory mode has no prompt.
func (s *Session) Replay(ctx context.Context) (Outcome, error) {
	var out Outcome
	err := s.do(ctx, func() {
		if text, ok := s.prompt(); ok {
			out.Accepted = true
			s.say(text)
		}
		out.Session = s.view()
	})
	return out, err
}

// View returns a snapshot of the session.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func() { v = s.view() })
	return v, err
}

// Abandon stops the session: pending timers are cancelled, in-flight speech
// and leaderboard loads are dropped and the manager forgets it. Abandoning a
// closed session is a no-op.
func (s *Session) Abandon(ctx context.Context) error {
	var finished bool
	err := s.do(ctx, func() {
		finished = s.record != nil
		s.closing = true
		s.cancelTimers()
		s.cancel()
	})
	if err != nil && !errors.Is(err, ErrSessionClosed) {
		return err
	}
	s.mgr.remove(s)
	if err == nil {
		s.logger.Info("session abandoned", "finished", finished)
	}
	return nil
}

func (s *Session) run() {
	defer close(s.stopped)
	for fn := range s.inbox {
		fn()
		if s.closing {
			return
		}
	}
}

// do runs fn on the loop and waits for it.
func (s *Session) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.inbox <- func() {
		defer close(done)
		fn()
		s.touch()
	}:
	case <-s.stopped:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// post queues fn on the loop without waiting. It is dropped if the session
// has stopped.
func (s *Session) post(fn func()) {
	select {
	case s.inbox <- fn:
	case <-s.stopped:
	}
}

// schedule runs fn on the loop after d unless the session is abandoned first.
func (s *Session) schedule(d time.Duration, fn func()) {
	s.nextTimer++
	id := s.nextTimer
	s.timers[id] = s.mgr.clock.AfterFunc(d, func() {
		s.post(func() {
			if _, live := s.timers[id]; !live {
				return
			}
			delete(s.timers, id)
			fn()
		})
	})
}

// touch restarts the idle countdown of a finished session.
func (s *Session) touch() {
	if s.record == nil || s.closing {
		return
	}
	if t, ok := s.timers[s.reaper]; ok {
		t.Stop()
		delete(s.timers, s.reaper)
	}
	s.schedule(s.mgr.cfg.FinishedTTL, s.reap)
	s.reaper = s.nextTimer
}

// reap drops a finished session nobody has asked about for FinishedTTL.
func (s *Session) reap() {
	s.closing = true
	s.cancelTimers()
	s.cancel()
	s.mgr.remove(s)
	s.logger.Info("finished session expired", "idle", s.mgr.cfg.FinishedTTL)
}

func (s *Session) cancelTimers() {
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// begin opens the first turn.
func (s *Session) begin() {
	s.newTurn()
	if s.quiz != nil {
		if turn, ok := s.quiz.Turn(); ok {
			s.say(turn.Prompt)
		}
	}
}

// newTurn cancels speech for the previous prompt.
func (s *Session) newTurn() {
	if s.cancelTurn != nil {
		s.cancelTurn()
	}
	s.turnCtx, s.cancelTurn = context.WithCancel(s.ctx)
}

func (s *Session) say(text string) {
	if s.mgr.speaker == nil || s.turnCtx == nil {
		return
	}
	s.mgr.speaker.Speak(s.turnCtx, text)
}

func (s *Session) prompt() (string, bool) {
	if s.record != nil {
		return "", false
	}
	switch {
	case s.flip != nil:
		if card, ok := s.flip.Current(); ok {
			return card.Front, true
		}
	case s.quiz != nil:
		if turn, ok := s.quiz.Turn(); ok {
			return turn.Prompt, true
		}
	}
	return "", false
}

func (s *Session) settleFlip() {
	if !s.flip.Settle() {
		return
	}
	if s.flip.Finished() {
		s.complete()
		return
	}
	s.newTurn()
}

func (s *Session) resolveBoard() {
	if s.board.Resolve() && s.board.Finished() {
		s.complete()
	}
}

func (s *Session) advanceQuiz() {
	if !s.quiz.Advance() {
		return
	}
	if s.quiz.Finished() {
		s.complete()
		return
	}
	s.newTurn()
	if turn, ok := s.quiz.Turn(); ok {
		s.say(turn.Prompt)
	}
}

// complete builds the session record exactly once and publishes it.
func (s *Session) complete() {
	if s.record != nil {
		return
	}
	if s.cancelTurn != nil {
		s.cancelTurn()
	}

	rec := s.buildRecord()
	s.record = &rec
	s.touch()

	m := s.mgr
	if m.metrics != nil {
		m.metrics.RecordSessionCompleted(s.ctx, string(s.mode))
	}
	s.logger.Info("session completed",
		"record_id", rec.ID,
		"progress", rec.Progress,
		"cards_mastered", rec.CardsMastered,
		"total_cards", rec.TotalCards,
		"clicks", rec.Clicks)

	if m.emitter != nil {
		event, err := events.NewSessionCompleted(s.id, rec)
		if err == nil {
			err = m.emitter.EmitEvent(s.ctx, event)
		}
		if err != nil {
			s.logger.Error("failed to publish session completion",
				"error", redact.Error(err),
				"record_id", rec.ID)
		}
	}

	if s.mode != domain.ModeMemory {
		return
	}
	if m.history == nil {
		lb := stats.BuildLeaderboard(nil, s.deckID, s.username, &rec)
		s.leaderboard = &lb
		return
	}
	s.loadLeaderboard(rec)
}

func (s *Session) buildRecord() domain.SessionRecord {
	rec := domain.SessionRecord{
		ID:        uuid.New(),
		Username:  s.username,
		DeckID:    s.deckID,
		DeckName:  s.deckName,
		Mode:      s.mode,
		CreatedAt: s.mgr.clock.Now().UTC(),
	}

	switch {
	case s.flip != nil:
		sum := stats.Summarize(s.flip.Cards())
		rec.Progress, rec.CardsMastered, rec.TotalCards = sum.Progress, sum.CardsMastered, sum.TotalCards
	case s.quiz != nil:
		sum := stats.Summarize(s.quiz.Cards())
		rec.Progress, rec.CardsMastered, rec.TotalCards = sum.Progress, sum.CardsMastered, sum.TotalCards
	case s.board != nil:
		// Stored history keeps milliseconds; compare on the same footing.
		elapsed := s.board.Elapsed().Truncate(time.Millisecond)
		rec.Elapsed = &elapsed
		rec.Clicks = s.board.Clicks()
		rec.Progress = s.board.Efficiency()
		rec.CardsMastered = s.board.Matched()
		rec.TotalCards = s.board.Pairs()
	}
	return rec
}

// loadLeaderboard fetches history off the loop and posts the ranking back.
// The result is dropped if the session is abandoned meanwhile.
func (s *Session) loadLeaderboard(rec domain.SessionRecord) {
	s.leaderboardPending = true
	m := s.mgr

	m.background.Add(1)
	go func() {
		defer m.background.Done()

		ctx, cancel := context.WithTimeout(s.ctx, m.cfg.LeaderboardTimeout)
		defer cancel()
		snap, err := m.history.FetchAll(ctx)

		s.post(func() {
			s.leaderboardPending = false
			if err != nil {
				s.logger.Warn("failed to load leaderboard history", "error", redact.Error(err))
				return
			}
			history := withoutRecord(snap.Progress, rec.ID)
			lb := stats.BuildLeaderboard(history, s.deckID, s.username, &rec)
			s.leaderboard = &lb
		})
	}()
}

// withoutRecord drops id from records. The save task for the current run
// may already have landed in the store.
func withoutRecord(records []domain.SessionRecord, id uuid.UUID) []domain.SessionRecord {
	out := make([]domain.SessionRecord, 0, len(records))
	for _, r := range records {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
