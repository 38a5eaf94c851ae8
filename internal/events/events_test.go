package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-study/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSessionCompletedRoundTrip(t *testing.T) {
	t.Parallel()

	elapsed := 42 * time.Second
	rec := domain.SessionRecord{
		ID:       uuid.New(),
		Username: "ana",
		DeckID:   uuid.New(),
		Mode:     domain.ModeMemory,
		Progress: 80,
		Elapsed:  &elapsed,
	}

	ev, err := NewSessionCompleted("s-1", rec)
	require.NoError(t, err)
	assert.Equal(t, TypeSessionCompleted, ev.Type)
	assert.NotEqual(t, uuid.Nil, ev.ID)

	var got SessionCompleted
	require.NoError(t, ev.UnmarshalPayload(&got))
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, rec.ID, got.Record.ID)
	require.NotNil(t, got.Record.Elapsed)
	assert.Equal(t, elapsed, *got.Record.Elapsed)
}

func TestNewEventRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := NewEvent("bad", make(chan int))
	assert.Error(t, err)
}

func TestEmitterDispatchesByType(t *testing.T) {
	t.Parallel()

	em := NewInMemoryEventEmitter(quietLogger())
	var order []string
	em.Subscribe(TypeSessionCompleted, HandlerFunc(func(context.Context, *Event) error {
		order = append(order, "first")
		return nil
	}))
	em.Subscribe(TypeSessionCompleted, HandlerFunc(func(context.Context, *Event) error {
		order = append(order, "second")
		return nil
	}))
	em.Subscribe("other", HandlerFunc(func(context.Context, *Event) error {
		order = append(order, "other")
		return nil
	}))

	ev, err := NewEvent(TypeSessionCompleted, map[string]int{"n": 1})
	require.NoError(t, err)
	require.NoError(t, em.EmitEvent(context.Background(), ev))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestEmitterRunsAllHandlersAndJoinsErrors(t *testing.T) {
	t.Parallel()

	em := NewInMemoryEventEmitter(quietLogger())
	errA, errB := errors.New("a failed"), errors.New("b failed")
	calls := 0
	for _, e := range []error{errA, nil, errB} {
		e := e
		em.Subscribe(TypeSessionCompleted, HandlerFunc(func(context.Context, *Event) error {
			calls++
			return e
		}))
	}

	ev, err := NewEvent(TypeSessionCompleted, nil)
	require.NoError(t, err)
	err = em.EmitEvent(context.Background(), ev)
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
}

func TestEmitterWithoutHandlers(t *testing.T) {
	t.Parallel()

	ev, err := NewEvent("nobody.listens", nil)
	require.NoError(t, err)
	assert.NoError(t, NewInMemoryEventEmitter(nil).EmitEvent(context.Background(), ev))
}
