package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gastos/internal/board"
	"gastos/internal/testing/redistest"
)

func exerciseStore(ctx context.Context, t *testing.T, store Store) {
	t.Helper()

	sess := Session{
		ID:  "abc123",
		UID: 7,
		State: board.State{
			Size:   4,
			Tiles:  []board.Tile{{ID: 1, Value: 2, Row: 0, Col: 0}},
			NextID: 2,
		},
		Best:      16,
		UpdatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	_, err := store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, sess))
	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.UID, got.UID)
	assert.Equal(t, sess.State, got.State)
	assert.Equal(t, sess.Best, got.Best)
	assert.True(t, sess.UpdatedAt.Equal(got.UpdatedAt))

	require.NoError(t, store.Delete(ctx, sess.ID))
	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Delete(ctx, "missing"))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(context.Background(), t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	ctx, client := redistest.New(t)
	store := NewRedisStore(client, time.Minute)

	exerciseStore(ctx, t, store)

	t.Run("TTL refreshed on save", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, Session{ID: "ttl", State: board.State{Size: 4}}))
		ttl, err := client.TTL(ctx, "game:ttl").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, 50*time.Second)
		assert.LessOrEqual(t, ttl, time.Minute)
	})
}
