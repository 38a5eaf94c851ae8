// Package main implements the entry point for the Scry study server, which
// serves vocabulary decks and runs flip-card, memory and listening sessions
// with synthesized pronunciation.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/platform/logger"
	"github.com/phrazzld/scry-study/internal/platform/postgres"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath string
	migrate    string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fset := flag.NewFlagSet("server", flag.ContinueOnError)
	fset.StringVar(&opts.configPath, "config", "", "path to a config file (default ./config.yaml if present)")
	fset.StringVar(&opts.migrate, "migrate", "", "run a migration command and exit (up, down, reset, status, version)")
	if err := fset.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("warning: could not load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// run loads configuration and either runs a migration or serves until ctx
// ends.
func run(ctx context.Context, opts options) error {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	l.Info("server configuration loaded",
		"version", version,
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"speech_provider", cfg.Speech.Provider)

	db, err := postgres.Open(ctx, cfg.Database.URL, postgres.DefaultPoolConfig())
	if err != nil {
		return err
	}
	l.Info("database connection established")

	if opts.migrate != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, opts.migrate, l)
	}

	app, err := newApplication(ctx, cfg, l, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
