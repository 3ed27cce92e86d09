package gateway_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/gateway"
	"messenger-client/internal/gatewaytest"
	"messenger-client/internal/models"
)

func newTestClient(t *testing.T) (*gateway.Client, *gatewaytest.Server) {
	t.Helper()
	srv := gatewaytest.New()
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return gateway.New(ts.URL), srv
}

func TestAuthWithPassword(t *testing.T) {
	client, srv := newTestClient(t)
	srv.AddUser("alice@example.com", "hunter2", models.User{ID: "u1", Email: "alice@example.com", Name: "Alice"})

	user, err := client.AuthWithPassword(context.Background(), "alice@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.True(t, client.Auth().IsValid())
	assert.Equal(t, "test-token-u1", client.Auth().Token())
	assert.Equal(t, "Alice", client.Auth().User().Name)

	client.Logout()
	assert.False(t, client.Auth().IsValid())
}

func TestAuthWithPasswordRejected(t *testing.T) {
	client, srv := newTestClient(t)
	srv.AddUser("alice@example.com", "hunter2", models.User{ID: "u1"})

	_, err := client.AuthWithPassword(context.Background(), "alice@example.com", "wrong")
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.Status)
	assert.False(t, client.Auth().IsValid())
}

func TestListMessagesPagination(t *testing.T) {
	client, srv := newTestClient(t)
	start := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	seeded := srv.SeedMessages("c1", 45, start)
	srv.SeedMessages("other", 5, start)

	list, err := client.ListMessages(context.Background(), "c1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 45, list.TotalItems)
	assert.Equal(t, 3, list.TotalPages)
	require.Len(t, list.Items, 20)
	assert.Equal(t, seeded[44].ID, list.Items[0].ID, "newest first")
	for _, m := range list.Items {
		assert.Equal(t, "c1", m.Chat, "filter scopes to the requested chat")
	}

	list, err = client.ListMessages(context.Background(), "c1", 3, 20)
	require.NoError(t, err)
	require.Len(t, list.Items, 5)
	assert.Equal(t, seeded[0].ID, list.Items[4].ID, "last page ends at the oldest message")
}

func TestListMessagesServerFailure(t *testing.T) {
	client, srv := newTestClient(t)
	srv.FailLists = 1

	_, err := client.ListMessages(context.Background(), "c1", 1, 20)
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.Status)

	// The failure budget is spent; the next request succeeds.
	_, err = client.ListMessages(context.Background(), "c1", 1, 20)
	require.NoError(t, err)
}

func TestCreateMessage(t *testing.T) {
	client, _ := newTestClient(t)

	msg, err := client.CreateMessage(context.Background(), "c1", "u1", "hello there")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "c1", msg.Chat)
	assert.Equal(t, "u1", msg.Author)
	assert.Equal(t, "hello there", msg.Content)
	assert.False(t, msg.Created.IsZero())
}

func TestListChatsSortedByUpdated(t *testing.T) {
	client, srv := newTestClient(t)
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	srv.SeedChat(models.Chat{ID: "old", Title: "Old", Updated: now.Add(-time.Hour)})
	srv.SeedChat(models.Chat{ID: "new", Title: "New", Updated: now})

	chats, err := client.ListChats(context.Background())
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "new", chats[0].ID)
	assert.Equal(t, "old", chats[1].ID)
}

func TestCreateChatPersonalTitle(t *testing.T) {
	client, _ := newTestClient(t)

	chat, err := client.CreateChat(context.Background(), "ignored", []string{"u2"})
	require.NoError(t, err)
	assert.NotEmpty(t, chat.ID)
	assert.Equal(t, "personal", chat.Title)

	group, err := client.CreateChat(context.Background(), "Planning", []string{"u2", "u3"})
	require.NoError(t, err)
	assert.Equal(t, "Planning", group.Title)
}

func TestDeleteChat(t *testing.T) {
	client, srv := newTestClient(t)
	srv.SeedChat(models.Chat{ID: "c1", Title: "Doomed"})

	require.NoError(t, client.DeleteChat(context.Background(), "c1"))
	assert.ErrorIs(t, client.DeleteChat(context.Background(), "c1"), gateway.ErrNotFound)
}
