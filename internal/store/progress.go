package store

import (
	"context"

	"github.com/phrazzld/scry-study/internal/domain"
)

// Snapshot is everything the study screens need on load: the available
// decks and the history of completed sessions.
type Snapshot struct {
	Decks    []domain.Deck          `json:"decks"`
	Progress []domain.SessionRecord `json:"progress"`
}

// ProgressStore records completed sessions.
type ProgressStore interface {
	// FetchAll loads every deck and every session record.
	FetchAll(ctx context.Context) (*Snapshot, error)

	// SaveProgress appends record to the history. Records are immutable.
	SaveProgress(ctx context.Context, record *domain.SessionRecord) error
}
