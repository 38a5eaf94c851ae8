package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Mode identifies which study mode a session runs.
type Mode string

// Possible study modes
const (
	ModeFlipCard  Mode = "flipcard"
	ModeMemory    Mode = "memory"
	ModeListening Mode = "listening"
)

// Minimum deck sizes per mode.
const (
	// MinListeningCards is one correct answer plus three distractors.
	MinListeningCards = 4

	// MinMemoryCards is the smallest deck that still forms a matching game.
	MinMemoryCards = 2
)

// ParseMode converts a string into a Mode, returning ErrInvalidMode for
// unknown values.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFlipCard, ModeMemory, ModeListening:
		return Mode(s), nil
	default:
		return "", ErrInvalidMode
	}
}

// MinCards returns the smallest deck the mode accepts.
func (m Mode) MinCards() int {
	switch m {
	case ModeListening:
		return MinListeningCards
	case ModeMemory:
		return MinMemoryCards
	default:
		return 1
	}
}

// SessionRecord validation errors
var (
	ErrRecordUsernameEmpty = errors.New("session record username cannot be empty")
	ErrRecordDeckIDEmpty   = errors.New("session record deck ID cannot be empty")
	ErrRecordTotalInvalid  = errors.New("session record total cards must be positive")
)

// SessionRecord is the immutable summary emitted once per completed session
// and handed to the progress store.
type SessionRecord struct {
	ID            uuid.UUID      `json:"id"`
	Username      string         `json:"username"`
	DeckID        uuid.UUID      `json:"deck_id"`
	DeckName      string         `json:"deck_name"`
	Mode          Mode           `json:"mode"`
	Progress      int            `json:"progress"`
	CardsMastered int            `json:"cards_mastered"`
	TotalCards    int            `json:"total_cards"`
	Elapsed       *time.Duration `json:"elapsed,omitempty"`
	Clicks        int            `json:"clicks,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Validate checks if the SessionRecord has valid data.
func (r *SessionRecord) Validate() error {
	if r.Username == "" {
		return ErrRecordUsernameEmpty
	}

	if r.DeckID == uuid.Nil {
		return ErrRecordDeckIDEmpty
	}

	if r.TotalCards <= 0 {
		return ErrRecordTotalInvalid
	}

	if _, err := ParseMode(string(r.Mode)); err != nil {
		return err
	}

	return nil
}

// HasElapsed reports whether the record carries a timed result.
func (r *SessionRecord) HasElapsed() bool {
	return r.Elapsed != nil
}
