package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ServiceError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      NewServiceError("study", "list_decks", errors.New("connection refused")),
			expected: "study service list_decks operation failed: connection refused",
		},
		{
			name:     "without underlying error",
			err:      NewServiceError("study", "leaderboard", nil),
			expected: "study service leaderboard operation failed",
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.err.Error(), tt.name)
	}
}

func TestServiceErrorUnwraps(t *testing.T) {
	t.Parallel()

	inner := NewServiceError("study", "start_session", ErrUsernameRequired)
	outer := NewServiceError("api", "wrap", inner)

	assert.ErrorIs(t, outer, ErrUsernameRequired)

	var target *ServiceError
	assert.True(t, errors.As(outer, &target))
	assert.Equal(t, "api", target.Service)
	assert.Nil(t, NewServiceError("study", "x", nil).Unwrap())
}
