package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/store"
)

// SaveProgressTask writes one finished session record to the progress store.
type SaveProgressTask struct {
	id     uuid.UUID
	record domain.SessionRecord
	store  store.ProgressStore
	logger *slog.Logger
}

var _ Task = (*SaveProgressTask)(nil)

// NewSaveProgressTask creates a task for record.
func NewSaveProgressTask(record domain.SessionRecord, progress store.ProgressStore, logger *slog.Logger) *SaveProgressTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &SaveProgressTask{
		id:     uuid.New(),
		record: record,
		store:  progress,
		logger: logger,
	}
}

// ID implements Task.
func (t *SaveProgressTask) ID() uuid.UUID { return t.id }

// Type implements Task.
func (t *SaveProgressTask) Type() string { return TaskTypeSaveProgress }

// Record returns the record this task persists.
func (t *SaveProgressTask) Record() domain.SessionRecord { return t.record }

// Execute implements Task.
func (t *SaveProgressTask) Execute(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, t.logger).With(
		"task_id", t.id,
		"record_id", t.record.ID,
		"username", t.record.Username,
	)

	if err := t.store.SaveProgress(ctx, &t.record); err != nil {
		log.Error("failed to save session record", "error", err)
		return fmt.Errorf("save progress for record %s: %w", t.record.ID, err)
	}

	log.Debug("session record persisted")
	return nil
}
