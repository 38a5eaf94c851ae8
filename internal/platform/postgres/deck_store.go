package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/redact"
	"github.com/phrazzld/scry-study/internal/store"
)

// PostgresDeckStore implements store.DeckStore.
type PostgresDeckStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.DeckStore = (*PostgresDeckStore)(nil)

// NewPostgresDeckStore creates a deck store on db. If logger is nil the
// default logger is used.
func NewPostgresDeckStore(db *sql.DB, logger *slog.Logger) *PostgresDeckStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresDeckStore{
		db:     db,
		logger: logger.With(slog.String("component", "deck_store")),
	}
}

// CreateDeck implements store.DeckStore.
func (s *PostgresDeckStore) CreateDeck(ctx context.Context, deck *domain.Deck) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := deck.Validate(); err != nil {
		log.Warn("deck validation failed during create",
			slog.String("error", err.Error()),
			slog.String("deck_id", deck.ID.String()))
		return err
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO decks (id, name, created_at) VALUES ($1, $2, $3)`,
			deck.ID, deck.Name, deck.CreatedAt,
		); err != nil {
			return MapError(err)
		}

		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO cards (id, deck_id, position, front, back, note) VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return MapError(err)
		}
		defer func() { _ = stmt.Close() }()

		for i, c := range deck.Cards {
			if _, err := stmt.ExecContext(ctx, c.ID, deck.ID, i, c.Front, c.Back, c.Note); err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		if store.IsDuplicateError(err) {
			log.Warn("deck name already exists", slog.String("name", deck.Name))
		} else {
			log.Error("failed to create deck",
				slog.String("error", redact.Error(err)),
				slog.String("deck_id", deck.ID.String()))
		}
		return store.NewStoreError("deck", "create", deck.Name, err)
	}

	log.Info("deck created",
		slog.String("deck_id", deck.ID.String()),
		slog.Int("cards", len(deck.Cards)))
	return nil
}

// GetDeck implements store.DeckStore.
func (s *PostgresDeckStore) GetDeck(ctx context.Context, id uuid.UUID) (*domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deck domain.Deck
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM decks WHERE id = $1`, id,
	).Scan(&deck.ID, &deck.Name, &deck.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("deck not found", slog.String("deck_id", id.String()))
			return nil, store.ErrDeckNotFound
		}
		log.Error("failed to get deck",
			slog.String("error", redact.Error(err)),
			slog.String("deck_id", id.String()))
		return nil, store.NewStoreError("deck", "get", id.String(), MapError(err))
	}

	cards, err := s.cardsByDeck(ctx, s.db, `WHERE deck_id = $1`, id)
	if err != nil {
		log.Error("failed to load deck cards",
			slog.String("error", redact.Error(err)),
			slog.String("deck_id", id.String()))
		return nil, store.NewStoreError("card", "list", id.String(), err)
	}
	deck.Cards = cards[deck.ID]
	return &deck, nil
}

// ListDecks implements store.DeckStore.
func (s *PostgresDeckStore) ListDecks(ctx context.Context) ([]domain.Deck, error) {
	decks, err := s.listDecks(ctx, s.db)
	if err != nil {
		return nil, store.NewStoreError("deck", "list", "all decks", err)
	}
	return decks, nil
}

func (s *PostgresDeckStore) listDecks(ctx context.Context, db store.DBTX) ([]domain.Deck, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM decks ORDER BY name`)
	if err != nil {
		log.Error("failed to list decks", slog.String("error", redact.Error(err)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var decks []domain.Deck
	for rows.Next() {
		var d domain.Deck
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deck: %w", err)
		}
		decks = append(decks, d)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	cards, err := s.cardsByDeck(ctx, db, "")
	if err != nil {
		log.Error("failed to list cards", slog.String("error", redact.Error(err)))
		return nil, err
	}
	for i := range decks {
		decks[i].Cards = cards[decks[i].ID]
	}
	return decks, nil
}

// cardsByDeck loads cards matching where, grouped by deck in position order.
func (s *PostgresDeckStore) cardsByDeck(
	ctx context.Context,
	db store.DBTX,
	where string,
	args ...any,
) (map[uuid.UUID][]domain.Card, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT deck_id, id, front, back, note FROM cards `+where+` ORDER BY deck_id, position`,
		args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	byDeck := make(map[uuid.UUID][]domain.Card)
	for rows.Next() {
		var deckID uuid.UUID
		var c domain.Card
		if err := rows.Scan(&deckID, &c.ID, &c.Front, &c.Back, &c.Note); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		byDeck[deckID] = append(byDeck[deckID], c)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return byDeck, nil
}
