//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/scry-study/internal/platform/postgres"
)

// tables lists every application table, children first.
var tables = []string{"session_records", "cards", "decks"}

// GetTestDBWithT opens the test database, applies migrations and registers
// cleanup. The test is skipped when no database is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	if ShouldSkipDatabaseTest() {
		t.Skip("SCRY_TEST_DB_URL or DATABASE_URL not set - skipping integration test")
	}
	dbURL := GetTestDatabaseURL()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, dbURL, postgres.DefaultPoolConfig())
	if err != nil {
		t.Fatalf("failed to connect to test database %s: %v", maskDatabaseURL(dbURL), err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := postgres.Migrate(ctx, db, "up", quiet); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return db
}

// Truncate empties every application table.
func Truncate(t *testing.T, db *sql.DB) {
	t.Helper()

	for _, table := range tables {
		if _, err := db.ExecContext(context.Background(), "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("failed to truncate %s: %v", table, err)
		}
	}
}
