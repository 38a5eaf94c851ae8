package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/redact"
	"github.com/phrazzld/scry-study/internal/store"
)

// PostgresProgressStore implements store.ProgressStore.
type PostgresProgressStore struct {
	db     *sql.DB
	decks  *PostgresDeckStore
	logger *slog.Logger
}

var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// NewPostgresProgressStore creates a progress store on db. If logger is nil
// the default logger is used.
func NewPostgresProgressStore(db *sql.DB, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProgressStore{
		db:     db,
		decks:  NewPostgresDeckStore(db, logger),
		logger: logger.With(slog.String("component", "progress_store")),
	}
}

// FetchAll implements store.ProgressStore. Decks and records are read in one
// repeatable-read transaction so the snapshot is consistent.
func (s *PostgresProgressStore) FetchAll(ctx context.Context) (*store.Snapshot, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		log.Error("failed to begin snapshot", slog.String("error", redact.Error(err)))
		return nil, fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
	}
	defer func() { _ = tx.Rollback() }()

	decks, err := s.decks.listDecks(ctx, tx)
	if err != nil {
		return nil, store.NewStoreError("deck", "snapshot", "all decks", err)
	}

	records, err := s.records(ctx, tx)
	if err != nil {
		log.Error("failed to load session records", slog.String("error", redact.Error(err)))
		return nil, store.NewStoreError("session_record", "snapshot", "all records", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrTransactionFailed, err)
	}

	log.Debug("snapshot loaded",
		slog.Int("decks", len(decks)),
		slog.Int("records", len(records)))
	return &store.Snapshot{Decks: decks, Progress: records}, nil
}

// SaveProgress implements store.ProgressStore.
func (s *PostgresProgressStore) SaveProgress(ctx context.Context, record *domain.SessionRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("session record validation failed",
			slog.String("error", err.Error()),
			slog.String("record_id", record.ID.String()))
		return err
	}

	var elapsed sql.NullInt64
	if record.Elapsed != nil {
		elapsed = sql.NullInt64{Int64: record.Elapsed.Milliseconds(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_records (
			id, username, deck_id, deck_name, mode, progress,
			cards_mastered, total_cards, elapsed_ms, clicks, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.Username, record.DeckID, record.DeckName, string(record.Mode),
		record.Progress, record.CardsMastered, record.TotalCards, elapsed, record.Clicks,
		record.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save session record",
			slog.String("error", redact.Error(err)),
			slog.String("record_id", record.ID.String()),
			slog.String("deck_id", record.DeckID.String()))
		return store.NewStoreError("session_record", "save", record.ID.String(), MapError(err))
	}

	log.Info("session record saved",
		slog.String("record_id", record.ID.String()),
		slog.String("mode", string(record.Mode)),
		slog.Int("progress", record.Progress))
	return nil
}

func (s *PostgresProgressStore) records(ctx context.Context, db store.DBTX) ([]domain.SessionRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, username, deck_id, deck_name, mode, progress,
		       cards_mastered, total_cards, elapsed_ms, clicks, created_at
		FROM session_records
		ORDER BY created_at, id`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []domain.SessionRecord
	for rows.Next() {
		var (
			r       domain.SessionRecord
			mode    string
			elapsed sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID, &r.Username, &r.DeckID, &r.DeckName, &mode, &r.Progress,
			&r.CardsMastered, &r.TotalCards, &elapsed, &r.Clicks, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		r.Mode = domain.Mode(mode)
		if elapsed.Valid {
			d := time.Duration(elapsed.Int64) * time.Millisecond
			r.Elapsed = &d
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}
