// Package listening implements the listening quiz: the front of a card is
// spoken and the learner picks its back from four options.
package listening

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/domain"
)

// OptionCount is the size of every option set: one answer, three distractors.
const OptionCount = 4

// Feedback is the verdict on an answered turn.
type Feedback string

// Possible feedback values
const (
	FeedbackNone    Feedback = ""
	FeedbackCorrect Feedback = "correct"
	FeedbackWrong   Feedback = "wrong"
)

// Options tunes the quiz.
type Options struct {
	// FeedbackDelay is how long feedback is shown before Advance.
	FeedbackDelay time.Duration
}

// DefaultOptions returns the standard quiz settings.
func DefaultOptions() Options {
	return Options{FeedbackDelay: 1500 * time.Millisecond}
}

// Turn is one question of the quiz.
type Turn struct {
	Index    int       `json:"index"`
	CardID   uuid.UUID `json:"card_id"`
	Prompt   string    `json:"prompt"`
	Options  []string  `json:"options"`
	Feedback Feedback  `json:"feedback,omitempty"`
	Selected int       `json:"selected"`
}

// Answered reports whether feedback has been given, which locks the turn.
func (t Turn) Answered() bool {
	return t.Feedback != FeedbackNone
}

// Engine runs a listening quiz over a session working set.
// It is not safe for concurrent use.
type Engine struct {
	cards    []domain.Card
	rng      *rand.Rand
	opts     Options
	index    int
	turn     Turn
	finished bool
}

// New starts a quiz over a shuffled, mastery-reset copy of deck.
func New(deck *domain.Deck, rng *rand.Rand, opts Options) (*Engine, error) {
	return NewWithCards(deck.WorkingCopy(rng), rng, opts)
}

// NewWithCards starts a quiz over cards in the given order.
func NewWithCards(cards []domain.Card, rng *rand.Rand, opts Options) (*Engine, error) {
	if len(cards) < domain.MinListeningCards {
		return nil, fmt.Errorf("%w: listening mode needs at least %d cards, deck has %d",
			domain.ErrDeckTooSmall, domain.MinListeningCards, len(cards))
	}
	if opts.FeedbackDelay <= 0 {
		opts.FeedbackDelay = DefaultOptions().FeedbackDelay
	}

	e := &Engine{cards: cards, rng: rng, opts: opts}
	e.turn = e.buildTurn(0)
	return e, nil
}

// Turn returns the current question. ok is false once the quiz has finished.
func (e *Engine) Turn() (turn Turn, ok bool) {
	if e.finished {
		return Turn{}, false
	}
	t := e.turn
	t.Options = append([]string(nil), e.turn.Options...)
	return t, true
}

// Answer grades option i of the current turn. A correct answer masters the
// card, a wrong one resets it to zero. ok is false, and nothing changes, when
// the turn is already answered, the quiz is over, or i is out of range.
func (e *Engine) Answer(i int) (fb Feedback, ok bool) {
	if e.finished || e.turn.Answered() {
		return FeedbackNone, false
	}
	if i < 0 || i >= len(e.turn.Options) {
		return FeedbackNone, false
	}

	card := &e.cards[e.index]
	e.turn.Selected = i
	if e.turn.Options[i] == card.Back {
		e.turn.Feedback = FeedbackCorrect
		card.SetMastery(domain.MaxMastery)
	} else {
		e.turn.Feedback = FeedbackWrong
		card.SetMastery(0)
	}
	return e.turn.Feedback, true
}

// Advance moves past an answered turn to the next card, finishing the quiz
// after the last one. It returns false if the current turn is unanswered.
func (e *Engine) Advance() bool {
	if e.finished || !e.turn.Answered() {
		return false
	}
	if e.index+1 >= len(e.cards) {
		e.finished = true
		return true
	}
	e.index++
	e.turn = e.buildTurn(e.index)
	return true
}

// Finished reports whether every card has been asked.
func (e *Engine) Finished() bool {
	return e.finished
}

// FeedbackDelay returns how long feedback should be shown before Advance.
func (e *Engine) FeedbackDelay() time.Duration {
	return e.opts.FeedbackDelay
}

// Cards returns a copy of the working set.
func (e *Engine) Cards() []domain.Card {
	out := make([]domain.Card, len(e.cards))
	copy(out, e.cards)
	return out
}

func (e *Engine) buildTurn(index int) Turn {
	correct := e.cards[index]
	distractors := e.distractors(index)

	options := make([]string, 0, OptionCount)
	options = append(options, correct.Back)
	for _, d := range distractors {
		options = append(options, d.Back)
	}
	domain.Shuffle(e.rng, options)

	return Turn{
		Index:    index,
		CardID:   correct.ID,
		Prompt:   correct.Front,
		Options:  options,
		Selected: -1,
	}
}

// distractors samples OptionCount-1 other cards. Cards whose back differs
// from the answer and from each other are preferred so the options stay
// distinguishable; the rest of the deck fills any shortfall.
func (e *Engine) distractors(index int) []domain.Card {
	correct := e.cards[index]
	want := OptionCount - 1

	var distinct, rest []domain.Card
	seen := map[string]bool{correct.Back: true}
	for i, c := range e.cards {
		if i == index {
			continue
		}
		if seen[c.Back] {
			rest = append(rest, c)
			continue
		}
		seen[c.Back] = true
		distinct = append(distinct, c)
	}

	picked := domain.Sample(e.rng, distinct, want)
	if len(picked) < want {
		picked = append(picked, domain.Sample(e.rng, rest, want-len(picked))...)
	}
	return picked
}
