package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-study/internal/config"
	"github.com/phrazzld/scry-study/internal/platform/logger"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func restoreDefault(t *testing.T) {
	orig := slog.Default()
	t.Cleanup(func() { slog.SetDefault(orig) })
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"fatal", slog.LevelInfo, true},
	}

	for _, tc := range tests {
		got, err := logger.ParseLevel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestSetupWritesJSONAtLevel(t *testing.T) {
	t.Setenv("CI", "")
	restoreDefault(t)

	var buf bytes.Buffer
	l, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "warn"}, &buf)
	require.NoError(t, err)
	require.NotNil(t, l)

	slog.Info("hidden")
	slog.Warn("shown", "deck_id", "d1")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "WARN", entries[0]["level"])
	assert.Equal(t, "d1", entries[0]["deck_id"])
}

func TestSetupRejectsInvalidLevel(t *testing.T) {
	restoreDefault(t)

	_, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "loud"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestSetupUsesCIHandlerInCI(t *testing.T) {
	t.Setenv("CI", "true")
	t.Setenv("GITHUB_SHA", "abc123")
	restoreDefault(t)

	var buf bytes.Buffer
	_, err := logger.SetupWithWriter(config.ServerConfig{LogLevel: "info"}, &buf)
	require.NoError(t, err)

	slog.Info("in ci")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc123", entries[0]["ci_commit"])
	assert.Contains(t, entries[0], "timestamp_nano")
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := context.Background()
	fallback := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	assert.Same(t, fallback, logger.FromContextOrDefault(ctx, fallback))
	assert.Same(t, slog.Default(), logger.FromContext(ctx))

	ctx = logger.WithLogger(ctx, base)
	ctx = logger.WithRequestID(ctx, "req-42")
	assert.Equal(t, "req-42", logger.RequestID(ctx))

	logger.FromContextOrDefault(ctx, fallback).Info("handled")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "req-42", entries[0]["request_id"])
}

func TestRequestIDWithoutLogger(t *testing.T) {
	t.Parallel()

	ctx := logger.WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", logger.RequestID(ctx))
	fallback := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	assert.Same(t, fallback, logger.FromContextOrDefault(ctx, fallback))
}
