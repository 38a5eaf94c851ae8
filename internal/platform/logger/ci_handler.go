package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"
)

// ciEnvVars maps CI provider variables to the attribute they are logged as.
var ciEnvVars = map[string]string{
	"GITHUB_RUN_ID":      "ci_run_id",
	"GITHUB_SHA":         "ci_commit",
	"GITHUB_REF_NAME":    "ci_branch",
	"GITHUB_WORKFLOW":    "ci_workflow",
	"CI_PIPELINE_ID":     "ci_run_id",
	"CI_COMMIT_SHA":      "ci_commit",
	"CI_COMMIT_REF_NAME": "ci_branch",
}

func isInCIEnvironment() bool {
	return os.Getenv("CI") != ""
}

func getCIMetadata() map[string]string {
	md := make(map[string]string)
	for env, attr := range ciEnvVars {
		if v := os.Getenv(env); v != "" {
			md[attr] = v
		}
	}
	return md
}

// CIHandler is a slog.Handler that adds CI environment metadata and, when
// AddSource is set, the caller's location to every record.
type CIHandler struct {
	handler   slog.Handler
	metadata  map[string]string
	addSource bool
}

// NewCIHandler creates a CIHandler writing JSON to out.
func NewCIHandler(out io.Writer, opts *slog.HandlerOptions) *CIHandler {
	var handlerOpts slog.HandlerOptions
	if opts != nil {
		handlerOpts = *opts
	}
	addSource := handlerOpts.AddSource
	// Source is added as flat attributes by Handle.
	handlerOpts.AddSource = false

	return &CIHandler{
		handler:   slog.NewJSONHandler(out, &handlerOpts),
		metadata:  getCIMetadata(),
		addSource: addSource,
	}
}

// Enabled implements slog.Handler.
func (h *CIHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// WithAttrs implements slog.Handler.
func (h *CIHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CIHandler{handler: h.handler.WithAttrs(attrs), metadata: h.metadata, addSource: h.addSource}
}

// WithGroup implements slog.Handler.
func (h *CIHandler) WithGroup(name string) slog.Handler {
	return &CIHandler{handler: h.handler.WithGroup(name), metadata: h.metadata, addSource: h.addSource}
}

// Handle implements slog.Handler.
func (h *CIHandler) Handle(ctx context.Context, record slog.Record) error {
	enhanced := record.Clone()

	if h.addSource && record.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{record.PC})
		f, _ := frames.Next()
		enhanced.AddAttrs(
			slog.String("source_file", f.File),
			slog.Int("source_line", f.Line),
			slog.String("source_func", f.Function),
		)
	}

	for key, value := range h.metadata {
		enhanced.AddAttrs(slog.String(key, value))
	}

	enhanced.AddAttrs(slog.Int64("timestamp_nano", enhanced.Time.UnixNano()%int64(time.Second)))

	return h.handler.Handle(ctx, enhanced)
}
