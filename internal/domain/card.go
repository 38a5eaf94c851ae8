package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// MaxMastery is the mastery score at which a card counts as known.
const MaxMastery = 5

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardFrontEmpty is returned when a card has no front text.
	ErrCardFrontEmpty = errors.New("card front cannot be empty")

	// ErrCardBackEmpty is returned when a card has no back text.
	ErrCardBackEmpty = errors.New("card back cannot be empty")

	// ErrCardMasteryOutOfRange is returned when a mastery score is outside [0, MaxMastery].
	ErrCardMasteryOutOfRange = fmt.Errorf("card mastery must be between 0 and %d", MaxMastery)
)

// Card is a single term pair. Front is the prompt side (usually the term in
// the language being learned) and Back is the answer side.
type Card struct {
	ID           uuid.UUID `json:"id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	Note         string    `json:"note,omitempty"`
	MasteryScore int       `json:"mastery_score"`
}

// NewCard creates a new Card with a generated ID and zero mastery.
// Returns an error if validation fails.
func NewCard(front, back, note string) (*Card, error) {
	card := &Card{
		ID:    uuid.New(),
		Front: front,
		Back:  back,
		Note:  note,
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.Front == "" {
		return ErrCardFrontEmpty
	}

	if c.Back == "" {
		return ErrCardBackEmpty
	}

	if c.MasteryScore < 0 || c.MasteryScore > MaxMastery {
		return ErrCardMasteryOutOfRange
	}

	return nil
}

// Mastered reports whether the card has reached MaxMastery.
func (c *Card) Mastered() bool {
	return c.MasteryScore >= MaxMastery
}

// AdjustMastery adds delta to the mastery score and clamps the result to
// [0, MaxMastery]. It returns the new score.
func (c *Card) AdjustMastery(delta int) int {
	c.MasteryScore = ClampMastery(c.MasteryScore + delta)
	return c.MasteryScore
}

// SetMastery replaces the mastery score, clamped to [0, MaxMastery].
func (c *Card) SetMastery(score int) {
	c.MasteryScore = ClampMastery(score)
}

// ClampMastery limits score to the valid mastery range.
func ClampMastery(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxMastery {
		return MaxMastery
	}
	return score
}
