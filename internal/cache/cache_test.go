package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/cache"
	"messenger-client/internal/models"
)

func newStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestChatsRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	chats := []models.Chat{
		{ID: "c1", Title: "Team Standup", Participants: []string{"alice", "bob"}, Created: now.Add(-time.Hour), Updated: now.Add(-time.Hour)},
		{ID: "c2", Title: "personal", Participants: []string{"carol"}, Created: now, Updated: now},
	}
	require.NoError(t, store.PutChats(ctx, chats))

	got, err := store.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ID, "most recently updated first")
	assert.Equal(t, []string{"carol"}, got[0].Participants)
	assert.Equal(t, []string{"alice", "bob"}, got[1].Participants)
	assert.True(t, got[0].Updated.Equal(now))
}

func TestPutChatsUpserts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	chat := models.Chat{ID: "c1", Title: "Before", Participants: []string{"alice"}, Created: now, Updated: now}
	require.NoError(t, store.PutChats(ctx, []models.Chat{chat}))

	chat.Title = "After"
	chat.Updated = now.Add(time.Minute)
	require.NoError(t, store.PutChats(ctx, []models.Chat{chat}))

	got, err := store.Chats(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "After", got[0].Title)
	assert.True(t, got[0].Updated.Equal(now.Add(time.Minute)))
}

func TestMessagesRoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	msgs := []models.Message{
		{ID: "m2", Chat: "c1", Author: "bob", Content: "second", Created: now.Add(time.Minute), Updated: now.Add(time.Minute)},
		{ID: "m1", Chat: "c1", Author: "alice", Content: "first", Created: now, Updated: now},
		{ID: "x1", Chat: "other", Author: "carol", Content: "elsewhere", Created: now, Updated: now},
	}
	require.NoError(t, store.PutMessages(ctx, msgs))

	got, err := store.Messages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID, "ascending creation order")
	assert.Equal(t, "m2", got[1].ID)
	assert.Equal(t, "first", got[0].Content)
}

func TestPutMessagesUpsertsContent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	msg := models.Message{ID: "m1", Chat: "c1", Author: "alice", Content: "draft", Created: now, Updated: now}
	require.NoError(t, store.PutMessages(ctx, []models.Message{msg}))

	msg.Content = "edited"
	msg.Updated = now.Add(time.Minute)
	require.NoError(t, store.PutMessages(ctx, []models.Message{msg}))

	got, err := store.Messages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "edited", got[0].Content)
}

func TestDeleteMessage(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.PutMessages(ctx, []models.Message{
		{ID: "m1", Chat: "c1", Created: now, Updated: now},
		{ID: "m2", Chat: "c1", Created: now.Add(time.Minute), Updated: now.Add(time.Minute)},
	}))

	require.NoError(t, store.DeleteMessage(ctx, "m1"))
	got, err := store.Messages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m2", got[0].ID)

	// Deleting an id that is not cached is not an error.
	require.NoError(t, store.DeleteMessage(ctx, "missing"))
}
