// Package flipcard implements the flip-card drill: a mastery state machine
// over a session working set and the policy that picks the next card.
//
// Grading happens in two steps. Grade applies the mastery change and opens a
// transition; Settle closes it and moves the cursor. While a transition is
// open further grades are rejected, so a double submit can never advance
// twice.
package flipcard

import (
	"errors"
	"math/rand/v2"

	"github.com/phrazzld/scry-study/internal/domain"
)

// ErrInvalidResult is returned when a grade result string is not recognised.
var ErrInvalidResult = errors.New("invalid grade result")

// Result is the learner's self-assessment for the current card.
type Result int

// Possible grade results
const (
	Incorrect Result = iota
	Correct
	Mastered
)

// String returns the wire name of the result.
func (r Result) String() string {
	switch r {
	case Incorrect:
		return "incorrect"
	case Correct:
		return "correct"
	case Mastered:
		return "mastered"
	default:
		return "unknown"
	}
}

// ParseResult converts a wire name into a Result.
func ParseResult(s string) (Result, error) {
	switch s {
	case "incorrect":
		return Incorrect, nil
	case "correct":
		return Correct, nil
	case "mastered":
		return Mastered, nil
	default:
		return 0, ErrInvalidResult
	}
}

// Options tunes the scheduler.
type Options struct {
	// RequeueOffset is how many slots ahead a missed card is reinserted.
	RequeueOffset int
}

// DefaultOptions returns the standard scheduler settings.
func DefaultOptions() Options {
	return Options{RequeueOffset: 3}
}

// Scheduler owns the working set of a flip-card session.
// It is not safe for concurrent use; callers serialise access.
type Scheduler struct {
	cards    []domain.Card
	cursor   int
	pending  bool
	missed   bool
	finished bool
	grades   int
	opts     Options
}

// New creates a Scheduler for a shuffled, mastery-reset copy of deck.
func New(deck *domain.Deck, rng *rand.Rand, opts Options) *Scheduler {
	return NewWithCards(deck.WorkingCopy(rng), opts)
}

// NewWithCards creates a Scheduler over cards as given, in order. The slice
// is used directly and mutated by grading.
func NewWithCards(cards []domain.Card, opts Options) *Scheduler {
	if opts.RequeueOffset < 1 {
		opts.RequeueOffset = DefaultOptions().RequeueOffset
	}

	s := &Scheduler{cards: cards, opts: opts}
	if idx, ok := s.nextUnmastered(0); ok {
		s.cursor = idx
	} else {
		s.finished = true
	}
	return s
}

// Current returns the card being shown. ok is false once the session has
// finished.
func (s *Scheduler) Current() (card domain.Card, ok bool) {
	if s.finished || len(s.cards) == 0 {
		return domain.Card{}, false
	}
	return s.cards[s.cursor], true
}

// Grade applies r to the current card and opens a transition. It returns
// false, and changes nothing, when there is no current card or a previous
// transition has not settled.
func (s *Scheduler) Grade(r Result) bool {
	if s.pending || s.finished || len(s.cards) == 0 {
		return false
	}

	card := &s.cards[s.cursor]
	switch r {
	case Incorrect:
		card.AdjustMastery(-1)
	case Correct:
		card.AdjustMastery(1)
	case Mastered:
		card.SetMastery(domain.MaxMastery)
	default:
		return false
	}

	s.grades++
	s.pending = true
	s.missed = r == Incorrect
	return true
}

// Pending reports whether a graded transition is waiting to settle.
func (s *Scheduler) Pending() bool {
	return s.pending
}

// Settle closes the open transition and selects the next card. It returns
// false when nothing was pending.
func (s *Scheduler) Settle() bool {
	if !s.pending {
		return false
	}
	s.pending = false

	var (
		idx int
		ok  bool
	)
	if s.missed {
		s.requeueCurrent()
		idx, ok = s.nextUnmastered(s.cursor)
	} else {
		idx, ok = s.nextUnmastered(s.cursor + 1)
	}

	if !ok {
		s.finished = true
		return true
	}
	s.cursor = idx
	return true
}

// Finished reports whether every card has reached MaxMastery.
func (s *Scheduler) Finished() bool {
	return s.finished
}

// Grades returns how many grades have been accepted.
func (s *Scheduler) Grades() int {
	return s.grades
}

// Cursor returns the index of the current card in the working set.
func (s *Scheduler) Cursor() int {
	return s.cursor
}

// Cards returns a copy of the working set in its current order.
func (s *Scheduler) Cards() []domain.Card {
	out := make([]domain.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

// requeueCurrent moves the card at the cursor RequeueOffset slots ahead,
// clamped to the end of the working set, keeping everything else in order.
func (s *Scheduler) requeueCurrent() {
	target := s.cursor + s.opts.RequeueOffset
	if target > len(s.cards)-1 {
		target = len(s.cards) - 1
	}
	if target == s.cursor {
		return
	}

	card := s.cards[s.cursor]
	copy(s.cards[s.cursor:target], s.cards[s.cursor+1:target+1])
	s.cards[target] = card
}

// nextUnmastered scans forward from start, wrapping once around the working
// set, for a card below MaxMastery.
func (s *Scheduler) nextUnmastered(start int) (int, bool) {
	n := len(s.cards)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if !s.cards[idx].Mastered() {
			return idx, true
		}
	}
	return 0, false
}
