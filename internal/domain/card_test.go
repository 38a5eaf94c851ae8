package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCard(t *testing.T) {
	t.Parallel()

	card, err := NewCard("hola", "hello", "greeting")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, card.ID)
	assert.Equal(t, "hola", card.Front)
	assert.Equal(t, "hello", card.Back)
	assert.Equal(t, "greeting", card.Note)
	assert.Zero(t, card.MasteryScore)

	_, err = NewCard("", "hello", "")
	assert.ErrorIs(t, err, ErrCardFrontEmpty)

	_, err = NewCard("hola", "", "")
	assert.ErrorIs(t, err, ErrCardBackEmpty)
}

func TestCardValidateMasteryRange(t *testing.T) {
	t.Parallel()

	card := Card{ID: uuid.New(), Front: "a", Back: "b", MasteryScore: MaxMastery + 1}
	assert.ErrorIs(t, card.Validate(), ErrCardMasteryOutOfRange)

	card.MasteryScore = -1
	assert.ErrorIs(t, card.Validate(), ErrCardMasteryOutOfRange)

	card.MasteryScore = MaxMastery
	assert.NoError(t, card.Validate())
}

func TestAdjustMasteryClamps(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		start   int
		delta   int
		want    int
		mastery bool
	}{
		{name: "increment", start: 0, delta: 1, want: 1},
		{name: "decrement at zero stays zero", start: 0, delta: -1, want: 0},
		{name: "increment at max stays max", start: MaxMastery, delta: 1, want: MaxMastery, mastery: true},
		{name: "large jump clamps", start: 2, delta: 100, want: MaxMastery, mastery: true},
		{name: "large drop clamps", start: 3, delta: -100, want: 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			card := Card{ID: uuid.New(), Front: "a", Back: "b", MasteryScore: tc.start}
			got := card.AdjustMastery(tc.delta)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.mastery, card.Mastered())
		})
	}
}

func TestSetMasteryClamps(t *testing.T) {
	t.Parallel()

	card := Card{ID: uuid.New(), Front: "a", Back: "b"}
	card.SetMastery(42)
	assert.Equal(t, MaxMastery, card.MasteryScore)
	card.SetMastery(-3)
	assert.Equal(t, 0, card.MasteryScore)
}
