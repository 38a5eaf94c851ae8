package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/domain"
)

// DeckStore persists decks and their cards. Stored mastery scores are not
// meaningful: sessions always study a fresh working copy.
type DeckStore interface {
	// CreateDeck saves deck and all of its cards atomically. Returns
	// ErrDeckNameExists when a deck with the same name exists.
	CreateDeck(ctx context.Context, deck *domain.Deck) error

	// GetDeck returns the deck with its cards in insertion order, or
	// ErrDeckNotFound.
	GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error)

	// ListDecks returns every deck with its cards, ordered by name.
	ListDecks(ctx context.Context) ([]domain.Deck, error)
}
