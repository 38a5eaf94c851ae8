package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/events"
	"github.com/phrazzld/scry-study/internal/observe"
	"github.com/phrazzld/scry-study/internal/platform/postgres"
	"github.com/phrazzld/scry-study/internal/service"
	"github.com/phrazzld/scry-study/internal/session"
	"github.com/phrazzld/scry-study/internal/speech"
	"github.com/phrazzld/scry-study/internal/store"
	"github.com/phrazzld/scry-study/internal/task"
)

// application holds the shared dependencies so they can be released in
// order on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	deckStore     store.DeckStore
	progressStore store.ProgressStore

	metrics         *observe.Metrics
	shutdownMetrics func(context.Context) error

	speech       *speech.Service
	eventEmitter events.EventEmitter
	taskRunner   *task.TaskRunner
	sessions     *session.Manager
	studyService service.StudyService
}

// newApplication wires every component. It takes ownership of db.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.metrics, app.shutdownMetrics, err = observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "scry-study",
		ServiceVersion: version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app.deckStore = postgres.NewPostgresDeckStore(db, logger)
	app.progressStore = postgres.NewPostgresProgressStore(db, logger)

	app.speech = newSpeechService(ctx, cfg.Speech, app.metrics, logger)

	app.taskRunner = task.NewTaskRunner(task.TaskRunnerConfig{
		WorkerCount: cfg.Task.WorkerCount,
		QueueSize:   cfg.Task.QueueSize,
		TaskTimeout: task.DefaultTaskRunnerConfig().TaskTimeout,
	}, logger)
	app.taskRunner.Start()

	emitter := events.NewInMemoryEventEmitter(logger)
	emitter.Subscribe(events.TypeSessionCompleted,
		task.NewProgressEventHandler(app.taskRunner, app.progressStore, logger))
	app.eventEmitter = emitter

	app.sessions = session.NewManager(session.ConfigFromStudy(cfg.Study),
		session.WithSpeaker(app.speech),
		session.WithHistory(app.progressStore),
		session.WithEmitter(app.eventEmitter),
		session.WithMetrics(app.metrics),
		session.WithLogger(logger),
	)

	app.studyService, err = service.NewStudyService(app.deckStore, app.progressStore, app.sessions, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create study service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// Run serves HTTP until ctx ends, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops components in dependency order: live sessions first so
// their final records reach the task queue, then speech, the task runner,
// metrics and the database.
func (app *application) cleanup(ctx context.Context) error {
	var errs []error

	if app.sessions != nil {
		if err := app.sessions.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sessions: %w", err))
		}
	}
	if app.speech != nil {
		if err := app.speech.Dispose(); err != nil {
			errs = append(errs, fmt.Errorf("dispose speech: %w", err))
		}
	}
	if app.taskRunner != nil {
		if err := app.taskRunner.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop task runner: %w", err))
		}
		stats := app.taskRunner.Stats()
		app.logger.Info("task runner stopped",
			"completed", stats.Completed,
			"failed", stats.Failed)
	}
	if app.shutdownMetrics != nil {
		if err := app.shutdownMetrics(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		app.logger.Error("application shutdown completed with errors", "error", err)
	} else {
		app.logger.Info("application shutdown completed")
	}
	return err
}
