//go:build integration

package testdb

import (
	"net/url"
	"os"
)

// Environment variables checked for the test database, in order.
const (
	EnvScryTestDBURL = "SCRY_TEST_DB_URL"
	EnvDatabaseURL   = "DATABASE_URL"
)

// GetTestDatabaseURL returns the first database URL found in the
// environment, or "".
func GetTestDatabaseURL() string {
	for _, name := range []string{EnvScryTestDBURL, EnvDatabaseURL} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether no test database is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// maskDatabaseURL hides the password so the URL can appear in test output.
func maskDatabaseURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "<unparseable database URL>"
	}
	return u.Redacted()
}
