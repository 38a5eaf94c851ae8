//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-study/internal/domain"
	"github.com/phrazzld/scry-study/internal/platform/postgres"
	"github.com/phrazzld/scry-study/internal/store"
	"github.com/phrazzld/scry-study/internal/testdb"
)

func TestPostgresStoresRoundTrip(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	testdb.Truncate(t, db)
	ctx := context.Background()

	decks := postgres.NewPostgresDeckStore(db, nil)
	progress := postgres.NewPostgresProgressStore(db, nil)

	a, err := domain.NewCard("der Hund", "the dog", "")
	require.NoError(t, err)
	b, err := domain.NewCard("die Katze", "the cat", "feminine")
	require.NoError(t, err)
	deck, err := domain.NewDeck("Animals", []domain.Card{*a, *b})
	require.NoError(t, err)

	require.NoError(t, decks.CreateDeck(ctx, deck))

	dup, err := domain.NewDeck("Animals", []domain.Card{*a})
	require.NoError(t, err)
	dup.Cards[0].ID = uuid.New()
	assert.ErrorIs(t, decks.CreateDeck(ctx, dup), store.ErrDeckNameExists)

	got, err := decks.GetDeck(ctx, deck.ID)
	require.NoError(t, err)
	require.Len(t, got.Cards, 2)
	assert.Equal(t, a.ID, got.Cards[0].ID)
	assert.Equal(t, "feminine", got.Cards[1].Note)

	_, err = decks.GetDeck(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrDeckNotFound)

	elapsed := 42 * time.Second
	rec := &domain.SessionRecord{
		ID:         uuid.New(),
		Username:   "ana",
		DeckID:     deck.ID,
		DeckName:   deck.Name,
		Mode:       domain.ModeMemory,
		Progress:   80,
		TotalCards: 2,
		Elapsed:    &elapsed,
		Clicks:     5,
		CreatedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, progress.SaveProgress(ctx, rec))

	orphan := *rec
	orphan.ID = uuid.New()
	orphan.DeckID = uuid.New()
	assert.ErrorIs(t, progress.SaveProgress(ctx, &orphan), store.ErrInvalidEntity)

	snap, err := progress.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Decks, 1)
	require.Len(t, snap.Progress, 1)
	require.NotNil(t, snap.Progress[0].Elapsed)
	assert.Equal(t, elapsed, *snap.Progress[0].Elapsed)
	assert.Equal(t, 5, snap.Progress[0].Clicks)
}

func TestMigrateDownAndUp(t *testing.T) {
	db := testdb.GetTestDBWithT(t)
	ctx := context.Background()

	require.NoError(t, postgres.Migrate(ctx, db, "status", nil))
	require.NoError(t, postgres.Migrate(ctx, db, "down", nil))
	require.NoError(t, postgres.Migrate(ctx, db, "up", nil))
	require.NoError(t, postgres.Migrate(ctx, db, "version", nil))
}
