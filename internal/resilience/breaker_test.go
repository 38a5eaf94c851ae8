package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

type manualTime struct {
	mu  sync.Mutex
	now time.Time
}

func (m *manualTime) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualTime) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func newBreaker(maxFailures int) (*CircuitBreaker, *manualTime) {
	mt := &manualTime{now: time.Unix(1_700_000_000, 0)}
	cb := New(Config{
		Name:         "test",
		MaxFailures:  maxFailures,
		ResetTimeout: 10 * time.Second,
		Now:          mt.Now,
	})
	return cb, mt
}

func fail() error { return errBoom }
func pass() error { return nil }

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	cb := New(Config{})
	assert.Equal(t, 5, cb.maxFailures)
	assert.Equal(t, 30*time.Second, cb.resetTimeout)
	assert.Equal(t, 1, cb.halfOpenMax)
	assert.Equal(t, StateClosed, cb.State())
}

func TestClosedPassesErrorsThrough(t *testing.T) {
	t.Parallel()

	cb, _ := newBreaker(3)
	assert.ErrorIs(t, cb.Execute(fail), errBoom)
	assert.NoError(t, cb.Execute(pass))
	assert.Equal(t, StateClosed, cb.State())
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	cb, _ := newBreaker(3)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(fail)
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	cb, _ := newBreaker(3)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	_ = cb.Execute(pass)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenProbe(t *testing.T) {
	t.Parallel()

	t.Run("success closes", func(t *testing.T) {
		t.Parallel()
		cb, mt := newBreaker(1)
		_ = cb.Execute(fail)
		require.Equal(t, StateOpen, cb.State())

		mt.Advance(10 * time.Second)
		assert.Equal(t, StateHalfOpen, cb.State())
		require.NoError(t, cb.Execute(pass))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("failure reopens", func(t *testing.T) {
		t.Parallel()
		cb, mt := newBreaker(1)
		_ = cb.Execute(fail)
		mt.Advance(11 * time.Second)

		assert.ErrorIs(t, cb.Execute(fail), errBoom)
		assert.Equal(t, StateOpen, cb.State())
		assert.ErrorIs(t, cb.Execute(pass), ErrCircuitOpen)
	})
}

func TestReset(t *testing.T) {
	t.Parallel()

	cb, _ := newBreaker(1)
	_ = cb.Execute(fail)
	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(pass))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
