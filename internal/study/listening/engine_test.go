package listening

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/study/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeDeck(t *testing.T, n int) *domain.Deck {
	t.Helper()
	cards := make([]domain.Card, n)
	for i := range cards {
		cards[i] = domain.Card{
			ID:    uuid.New(),
			Front: fmt.Sprintf("front-%d", i),
			Back:  fmt.Sprintf("back-%d", i),
		}
	}
	deck, err := domain.NewDeck("listening deck", cards)
	require.NoError(t, err)
	return deck
}

func backOf(e *Engine, id uuid.UUID) string {
	for _, c := range e.Cards() {
		if c.ID == id {
			return c.Back
		}
	}
	return ""
}

func indexOf(options []string, s string) int {
	for i, o := range options {
		if o == s {
			return i
		}
	}
	return -1
}

func TestNewRequiresFourCards(t *testing.T) {
	t.Parallel()

	for n := 0; n < domain.MinListeningCards; n++ {
		_, err := NewWithCards(makeDeck(t, max(n, 1)).Cards[:n], domain.NewRand(1), DefaultOptions())
		assert.ErrorIs(t, err, domain.ErrDeckTooSmall, "%d cards", n)
	}

	_, err := New(makeDeck(t, 4), domain.NewRand(1), DefaultOptions())
	assert.NoError(t, err)
}

func TestTurnOptionsAlwaysHoldTheAnswer(t *testing.T) {
	t.Parallel()

	for seed := uint64(0); seed < 20; seed++ {
		deck := makeDeck(t, 4+int(seed%5))
		e, err := New(deck, domain.NewRand(seed), DefaultOptions())
		require.NoError(t, err)

		for !e.Finished() {
			turn, ok := e.Turn()
			require.True(t, ok)
			require.Len(t, turn.Options, OptionCount)

			answer := backOf(e, turn.CardID)
			assert.Contains(t, turn.Options, answer)
			assert.NotContains(t, turn.Options, turn.Prompt, "front text is never an option")

			seen := make(map[string]bool)
			for _, o := range turn.Options {
				assert.False(t, seen[o], "duplicate option %q", o)
				seen[o] = true
			}

			_, ok = e.Answer(0)
			require.True(t, ok)
			require.True(t, e.Advance())
		}
	}
}

func TestPromptIsCurrentCardFront(t *testing.T) {
	t.Parallel()

	e, err := New(makeDeck(t, 5), domain.NewRand(3), DefaultOptions())
	require.NoError(t, err)

	turn, _ := e.Turn()
	assert.Equal(t, e.Cards()[0].Front, turn.Prompt)
	assert.Equal(t, e.Cards()[0].ID, turn.CardID)
	assert.Equal(t, -1, turn.Selected)
	assert.False(t, turn.Answered())
}

func TestAnswerSetsMasteryAndLocks(t *testing.T) {
	t.Parallel()

	e, err := New(makeDeck(t, 4), domain.NewRand(4), DefaultOptions())
	require.NoError(t, err)

	turn, _ := e.Turn()
	right := indexOf(turn.Options, backOf(e, turn.CardID))
	wrong := (right + 1) % OptionCount

	fb, ok := e.Answer(right)
	require.True(t, ok)
	assert.Equal(t, FeedbackCorrect, fb)
	assert.Equal(t, domain.MaxMastery, e.Cards()[0].MasteryScore)

	_, ok = e.Answer(wrong)
	assert.False(t, ok, "input locked once feedback is set")
	assert.Equal(t, domain.MaxMastery, e.Cards()[0].MasteryScore)

	turn, _ = e.Turn()
	assert.Equal(t, FeedbackCorrect, turn.Feedback)
	assert.Equal(t, right, turn.Selected)
}

func TestWrongAnswerResetsMastery(t *testing.T) {
	t.Parallel()

	deck := makeDeck(t, 4)
	cards := deck.WorkingCopy(domain.NewRand(5))
	cards[0].MasteryScore = 3
	e, err := NewWithCards(cards, domain.NewRand(5), DefaultOptions())
	require.NoError(t, err)

	turn, _ := e.Turn()
	right := indexOf(turn.Options, backOf(e, turn.CardID))

	fb, ok := e.Answer((right + 1) % OptionCount)
	require.True(t, ok)
	assert.Equal(t, FeedbackWrong, fb)
	assert.Zero(t, e.Cards()[0].MasteryScore)
}

func TestAnswerOutOfRangeIgnored(t *testing.T) {
	t.Parallel()

	e, err := New(makeDeck(t, 4), domain.NewRand(6), DefaultOptions())
	require.NoError(t, err)

	_, ok := e.Answer(-1)
	assert.False(t, ok)
	_, ok = e.Answer(OptionCount)
	assert.False(t, ok)
	turn, _ := e.Turn()
	assert.False(t, turn.Answered())
}

func TestAdvanceRequiresAnswerAndFinishesAfterLastCard(t *testing.T) {
	t.Parallel()

	e, err := New(makeDeck(t, 4), domain.NewRand(7), DefaultOptions())
	require.NoError(t, err)

	assert.False(t, e.Advance(), "cannot skip an unanswered turn")

	for i := 0; i < 4; i++ {
		turn, ok := e.Turn()
		require.True(t, ok)
		assert.Equal(t, i, turn.Index)
		_, _ = e.Answer(indexOf(turn.Options, backOf(e, turn.CardID)))
		require.True(t, e.Advance())
	}

	assert.True(t, e.Finished())
	_, ok := e.Turn()
	assert.False(t, ok)
	_, ok = e.Answer(0)
	assert.False(t, ok)
	assert.False(t, e.Advance())

	summary := stats.Summarize(e.Cards())
	assert.Equal(t, 100, summary.Progress)
	assert.Equal(t, 4, summary.CardsMastered)
}

func TestDuplicateBacksFallBackToRemainingCards(t *testing.T) {
	t.Parallel()

	deck := makeDeck(t, 5)
	for i := range deck.Cards {
		deck.Cards[i].Back = "same"
	}
	e, err := New(deck, domain.NewRand(8), DefaultOptions())
	require.NoError(t, err)

	turn, _ := e.Turn()
	assert.Len(t, turn.Options, OptionCount)
	fb, ok := e.Answer(2)
	require.True(t, ok)
	assert.Equal(t, FeedbackCorrect, fb, "identical text is indistinguishable, so it is correct")
}

func TestFeedbackDelayDefaults(t *testing.T) {
	t.Parallel()

	e, err := New(makeDeck(t, 4), domain.NewRand(9), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions().FeedbackDelay, e.FeedbackDelay())
}
