// Package match implements memory mode: a board of face-down tiles, two per
// sampled card, which the learner turns over in pairs.
//
// The engine is a three-state machine. Idle has no tile face up; OneSelected
// has one; Resolving has two and ignores further clicks until Resolve is
// called. The caller owns the delay between the second click and Resolve.
package match

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/study/stats"
)

// State is the board's selection state.
type State int

// Possible board states
const (
	Idle State = iota
	OneSelected
	Resolving
)

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case OneSelected:
		return "one_selected"
	case Resolving:
		return "resolving"
	default:
		return "unknown"
	}
}

// Options tunes the board.
type Options struct {
	// Pairs is how many cards are sampled. Capped at the deck size.
	Pairs int

	// MatchDelay is how long a matched pair stays face up before it is
	// removed from play.
	MatchDelay time.Duration

	// MismatchDelay is how long a mismatched pair stays face up before it is
	// turned back down. Longer than MatchDelay so the learner can read it.
	MismatchDelay time.Duration
}

// DefaultOptions returns the standard board settings.
func DefaultOptions() Options {
	return Options{
		Pairs:         6,
		MatchDelay:    500 * time.Millisecond,
		MismatchDelay: 1000 * time.Millisecond,
	}
}

// ClickResult describes the effect of an accepted click.
type ClickResult struct {
	// Resolving is true when the click turned over the second tile.
	Resolving bool

	// Match reports whether the two face-up tiles pair. Only meaningful when
	// Resolving is true.
	Match bool

	// Delay is how long the caller should wait before calling Resolve.
	Delay time.Duration
}

// Engine is a memory-mode board. It is not safe for concurrent use.
type Engine struct {
	tiles   []domain.MemoryTile
	pairs   int
	matched int
	opts    Options
	now     func() time.Time

	state  State
	first  int
	second int
	clicks int

	startedAt time.Time
	stoppedAt time.Time
	started   bool
	finished  bool
}

// New samples opts.Pairs cards from deck without replacement and lays out
// their tiles in shuffled order. now supplies the game clock.
func New(deck *domain.Deck, rng *rand.Rand, now func() time.Time, opts Options) (*Engine, error) {
	if deck.Len() < domain.MinMemoryCards {
		return nil, fmt.Errorf("%w: memory mode needs at least %d cards, deck has %d",
			domain.ErrDeckTooSmall, domain.MinMemoryCards, deck.Len())
	}
	if opts.Pairs <= 0 {
		opts.Pairs = DefaultOptions().Pairs
	}

	cards := domain.Sample(rng, deck.Cards, opts.Pairs)
	tiles := domain.TilesFor(cards)
	domain.Shuffle(rng, tiles)
	return NewWithTiles(tiles, now, opts), nil
}

// NewWithTiles creates an engine over tiles laid out as given.
func NewWithTiles(tiles []domain.MemoryTile, now func() time.Time, opts Options) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{
		tiles:  tiles,
		pairs:  len(tiles) / 2,
		opts:   opts,
		now:    now,
		first:  -1,
		second: -1,
	}
}

// Click turns over tile i. ok is false, and nothing changes, when the board
// is resolving or finished, i is out of range, or the tile is already face up
// or matched.
func (e *Engine) Click(i int) (res ClickResult, ok bool) {
	if e.finished || e.state == Resolving {
		return ClickResult{}, false
	}
	if i < 0 || i >= len(e.tiles) {
		return ClickResult{}, false
	}
	tile := &e.tiles[i]
	if tile.Flipped || tile.Matched {
		return ClickResult{}, false
	}

	if !e.started {
		e.started = true
		e.startedAt = e.now()
	}
	e.clicks++
	tile.Flipped = true

	if e.state == Idle {
		e.first = i
		e.state = OneSelected
		return ClickResult{}, true
	}

	e.second = i
	e.state = Resolving
	match := e.tiles[e.first].Pairs(e.tiles[e.second])
	delay := e.opts.MismatchDelay
	if match {
		delay = e.opts.MatchDelay
	}
	return ClickResult{Resolving: true, Match: match, Delay: delay}, true
}

// Resolve settles the two face-up tiles: a pair is marked matched, anything
// else is turned back down. It returns false when the board is not resolving.
func (e *Engine) Resolve() bool {
	if e.state != Resolving {
		return false
	}

	a, b := &e.tiles[e.first], &e.tiles[e.second]
	if a.Pairs(*b) {
		a.Matched, b.Matched = true, true
		e.matched++
		if e.matched == e.pairs {
			e.finished = true
			e.stoppedAt = e.now()
		}
	} else {
		a.Flipped, b.Flipped = false, false
	}

	e.first, e.second = -1, -1
	e.state = Idle
	return true
}

// State returns the current selection state.
func (e *Engine) State() State {
	return e.state
}

// Tiles returns a copy of the board.
func (e *Engine) Tiles() []domain.MemoryTile {
	out := make([]domain.MemoryTile, len(e.tiles))
	copy(out, e.tiles)
	return out
}

// Pairs returns the number of pairs on the board.
func (e *Engine) Pairs() int {
	return e.pairs
}

// Matched returns the number of pairs matched so far.
func (e *Engine) Matched() int {
	return e.matched
}

// Clicks returns the number of accepted tile clicks.
func (e *Engine) Clicks() int {
	return e.clicks
}

// Finished reports whether every tile is matched.
func (e *Engine) Finished() bool {
	return e.finished
}

// Elapsed returns the game time: zero before the first click, running until
// the last pair is matched, then frozen.
func (e *Engine) Elapsed() time.Duration {
	switch {
	case !e.started:
		return 0
	case e.finished:
		return e.stoppedAt.Sub(e.startedAt)
	default:
		if d := e.now().Sub(e.startedAt); d > 0 {
			return d
		}
		return 0
	}
}

// Efficiency returns the click efficiency score for the board so far.
func (e *Engine) Efficiency() int {
	return stats.Efficiency(e.pairs, e.clicks)
}
