package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/session"
	"github.com/phrazzld/scry-study/internal/store"
	"github.com/phrazzld/scry-study/internal/study/stats"
)

// SessionStarter starts live sessions. session.Manager implements it.
type SessionStarter interface {
	Start(ctx context.Context, p session.StartParams) (*session.Session, error)
}

// DeckSummary is a deck without its cards.
type DeckSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CardCount int       `json:"card_count"`
	CreatedAt time.Time `json:"created_at"`
}

// CardInput is one card of a new deck.
type CardInput struct {
	Front string
	Back  string
	Note  string
}

// StartSessionParams names the deck and mode of a new session.
type StartSessionParams struct {
	Username string
	DeckID   uuid.UUID
	Mode     domain.Mode
	Seed     *uint64
}

// StudyService is the use-case surface of the study server.
type StudyService interface {
	// ListDecks returns every deck ordered by name.
	ListDecks(ctx context.Context) ([]DeckSummary, error)

	// GetDeck returns a deck with its cards.
	GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error)

	// CreateDeck validates and stores a new deck.
	CreateDeck(ctx context.Context, name string, cards []CardInput) (*domain.Deck, error)

	// StartSession loads the deck and starts a live session on it.
	StartSession(ctx context.Context, p StartSessionParams) (*session.Session, error)

	// Leaderboard ranks memory-mode personal bests for a deck and reports
	// username's own best.
	Leaderboard(ctx context.Context, deckID uuid.UUID, username string) (*stats.Leaderboard, error)
}

type studyServiceImpl struct {
	decks    store.DeckStore
	progress store.ProgressStore
	sessions SessionStarter
	logger   *slog.Logger
}

// NewStudyService creates a StudyService.
func NewStudyService(
	decks store.DeckStore,
	progress store.ProgressStore,
	sessions SessionStarter,
	logger *slog.Logger,
) (StudyService, error) {
	if decks == nil {
		return nil, errors.New("deck store cannot be nil")
	}
	if progress == nil {
		return nil, errors.New("progress store cannot be nil")
	}
	if sessions == nil {
		return nil, errors.New("session starter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &studyServiceImpl{
		decks:    decks,
		progress: progress,
		sessions: sessions,
		logger:   logger.With("component", "study_service"),
	}, nil
}

// ListDecks implements StudyService.
func (s *studyServiceImpl) ListDecks(ctx context.Context) ([]DeckSummary, error) {
	decks, err := s.decks.ListDecks(ctx)
	if err != nil {
		return nil, NewServiceError("study", "list_decks", err)
	}
	out := make([]DeckSummary, 0, len(decks))
	for _, d := range decks {
		out = append(out, DeckSummary{
			ID:        d.ID,
			Name:      d.Name,
			CardCount: len(d.Cards),
			CreatedAt: d.CreatedAt,
		})
	}
	return out, nil
}

// GetDeck implements StudyService.
func (s *studyServiceImpl) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	deck, err := s.decks.GetDeck(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewServiceError("study", "get_deck", err)
	}
	return deck, nil
}

// CreateDeck implements StudyService.
func (s *studyServiceImpl) CreateDeck(ctx context.Context, name string, inputs []CardInput) (*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	cards := make([]domain.Card, 0, len(inputs))
	for i, in := range inputs {
		c, err := domain.NewCard(strings.TrimSpace(in.Front), strings.TrimSpace(in.Back), strings.TrimSpace(in.Note))
		if err != nil {
			return nil, fmt.Errorf("%w: card %d: %w", domain.ErrValidation, i, err)
		}
		cards = append(cards, *c)
	}

	deck, err := domain.NewDeck(name, cards)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}

	if err := s.decks.CreateDeck(ctx, deck); err != nil {
		if store.IsDuplicateError(err) || errors.Is(err, store.ErrInvalidEntity) {
			return nil, err
		}
		return nil, NewServiceError("study", "create_deck", err)
	}

	log.Info("deck created", "deck_id", deck.ID, "cards", len(deck.Cards))
	return deck, nil
}

// StartSession implements StudyService.
func (s *studyServiceImpl) StartSession(ctx context.Context, p StartSessionParams) (*session.Session, error) {
	if strings.TrimSpace(p.Username) == "" {
		return nil, ErrUsernameRequired
	}
	if _, err := domain.ParseMode(string(p.Mode)); err != nil {
		return nil, err
	}

	deck, err := s.GetDeck(ctx, p.DeckID)
	if err != nil {
		return nil, err
	}

	return s.sessions.Start(ctx, session.StartParams{
		Username: p.Username,
		Deck:     deck,
		Mode:     p.Mode,
		Seed:     p.Seed,
	})
}

// Leaderboard implements StudyService.
func (s *studyServiceImpl) Leaderboard(ctx context.Context, deckID uuid.UUID, username string) (*stats.Leaderboard, error) {
	snap, err := s.progress.FetchAll(ctx)
	if err != nil {
		return nil, NewServiceError("study", "leaderboard", err)
	}

	known := false
	for _, d := range snap.Decks {
		if d.ID == deckID {
			known = true
			break
		}
	}
	if !known {
		return nil, store.ErrDeckNotFound
	}

	lb := stats.BuildLeaderboard(snap.Progress, deckID, strings.TrimSpace(username), nil)
	return &lb, nil
}
