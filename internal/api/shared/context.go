package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"

	"github.com/google/uuid"
)

// ContextKey is the type of request-scoped values set by this package.
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context.
	TraceIDKey ContextKey = "traceID"

	// TraceIDHeader carries the trace ID in and out of the service.
	TraceIDHeader = "X-Trace-ID"

	// TraceIDLength is the number of random bytes in a generated trace ID.
	TraceIDLength = 16
)

// Incoming trace IDs are accepted only in this shape so they are safe to log.
var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9-]{8,64}$`)

// SetTraceID adds a freshly generated trace ID to ctx.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, generateTraceID())
}

// WithTraceID adds id to ctx, replacing it with a generated one if it is not
// a well-formed trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	if !traceIDPattern.MatchString(id) {
		id = generateTraceID()
	}
	return context.WithValue(ctx, TraceIDKey, id)
}

// GetTraceID returns the trace ID in ctx, or "" if there is none.
func GetTraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(TraceIDKey).(string)
	return traceID
}

// generateTraceID returns 32 hex characters. A failing random source falls
// back to a random UUID rather than a fixed value.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	if _, err := rand.Read(b); err != nil {
		u := uuid.New()
		return hex.EncodeToString(u[:])
	}
	return hex.EncodeToString(b)
}
