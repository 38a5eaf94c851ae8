//go:build integration

// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests skip unless a database URL is set in SCRY_TEST_DB_URL or
// DATABASE_URL. The schema is brought up with the embedded goose migrations,
// and tables are truncated between tests because the stores manage their own
// transactions.
//
//	func TestDeckRoundTrip(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.Truncate(t, db)
//	    decks := postgres.NewPostgresDeckStore(db, nil)
//	    ...
//	}
package testdb
