package domain

import (
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Deck validation errors
var (
	// ErrDeckIDEmpty is returned when a deck ID is empty or nil.
	ErrDeckIDEmpty = errors.New("deck ID cannot be empty")

	// ErrDeckNameEmpty is returned when a deck has no name.
	ErrDeckNameEmpty = errors.New("deck name cannot be empty")

	// ErrDeckEmpty is returned when a deck contains no cards.
	ErrDeckEmpty = errors.New("deck must contain at least one card")
)

// Deck is a named, ordered collection of cards. Decks are treated as
// immutable input; sessions study a working copy (see WorkingCopy).
type Deck struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Cards     []Card    `json:"cards"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDeck creates a new Deck with a generated ID.
// Returns an error if the deck or any of its cards fails validation.
func NewDeck(name string, cards []Card) (*Deck, error) {
	deck := &Deck{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(name),
		Cards:     cards,
		CreatedAt: time.Now().UTC(),
	}

	if err := deck.Validate(); err != nil {
		return nil, err
	}

	return deck, nil
}

// Validate checks the deck and every card it contains.
func (d *Deck) Validate() error {
	if d.ID == uuid.Nil {
		return ErrDeckIDEmpty
	}

	if d.Name == "" {
		return ErrDeckNameEmpty
	}

	if len(d.Cards) == 0 {
		return ErrDeckEmpty
	}

	for i := range d.Cards {
		if err := d.Cards[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of cards in the deck.
func (d *Deck) Len() int {
	return len(d.Cards)
}

// WorkingCopy returns a copy of the deck's cards with every mastery score
// reset to 0, in an order shuffled by rng. The deck itself is not modified.
func (d *Deck) WorkingCopy(rng *rand.Rand) []Card {
	cards := make([]Card, len(d.Cards))
	copy(cards, d.Cards)
	for i := range cards {
		cards[i].MasteryScore = 0
	}
	Shuffle(rng, cards)
	return cards
}

// NewRand returns a deterministic random source for the given seed. Sessions
// created with the same seed shuffle and sample identically.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Shuffle permutes s in place with a uniform Fisher–Yates shuffle.
func Shuffle[T any](rng *rand.Rand, s []T) {
	rng.Shuffle(len(s), func(i, j int) {
		s[i], s[j] = s[j], s[i]
	})
}

// Sample returns n distinct elements of s chosen uniformly without
// replacement. If n >= len(s) every element is returned, in random order.
// s is not modified.
func Sample[T any](rng *rand.Rand, s []T, n int) []T {
	pool := make([]T, len(s))
	copy(pool, s)
	if n > len(pool) {
		n = len(pool)
	}
	// partial Fisher–Yates: only the first n positions need to be settled
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
