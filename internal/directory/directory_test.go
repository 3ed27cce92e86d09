package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-client/internal/directory"
	"messenger-client/internal/mocks"
	"messenger-client/internal/models"
)

func sampleChats() []models.Chat {
	return []models.Chat{
		{ID: "c1", Title: "Team Standup", Participants: []string{"alice", "bob"}},
		{ID: "c2", Title: "personal", Participants: []string{"carol"}},
		{ID: "c3", Title: "Release Planning", Participants: []string{"alice", "dave"}},
	}
}

func TestLoadReplacesListAndWritesCache(t *testing.T) {
	chats := sampleChats()
	source := new(mocks.ChatSourceMock)
	source.On("ListChats", mock.Anything).Return(chats, nil).Once()

	recorder := new(mocks.RecorderMock)
	recorder.On("PutChats", mock.Anything, chats).Return(nil).Once()

	dir := directory.New(source, directory.WithRecorder(recorder))
	require.NoError(t, dir.Load(context.Background()))

	assert.Equal(t, chats, dir.Chats())
	assert.Empty(t, dir.Err())
	assert.False(t, dir.IsLoading())
	source.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestLoadFailureKeepsPreviousList(t *testing.T) {
	chats := sampleChats()
	source := new(mocks.ChatSourceMock)
	source.On("ListChats", mock.Anything).Return(chats, nil).Once()
	source.On("ListChats", mock.Anything).Return(nil, assert.AnError).Once()

	dir := directory.New(source)
	require.NoError(t, dir.Load(context.Background()))
	require.Error(t, dir.Load(context.Background()))

	assert.Equal(t, chats, dir.Chats(), "stale list beats an empty one")
	assert.Equal(t, "failed to load chats", dir.Err())
	assert.False(t, dir.IsLoading())

	// A later successful load clears the error.
	source.On("ListChats", mock.Anything).Return(chats[:1], nil).Once()
	require.NoError(t, dir.Load(context.Background()))
	assert.Empty(t, dir.Err())
	source.AssertExpectations(t)
}

func TestFilteredMatchesTitleAndParticipants(t *testing.T) {
	source := new(mocks.ChatSourceMock)
	source.On("ListChats", mock.Anything).Return(sampleChats(), nil).Once()

	dir := directory.New(source)
	require.NoError(t, dir.Load(context.Background()))

	dir.SetSearch("PLANNING")
	filtered := dir.Filtered()
	require.Len(t, filtered, 1)
	assert.Equal(t, "c3", filtered[0].ID)

	dir.SetSearch("alice")
	filtered = dir.Filtered()
	require.Len(t, filtered, 2)
	assert.Equal(t, "c1", filtered[0].ID)
	assert.Equal(t, "c3", filtered[1].ID)

	dir.SetSearch("  ")
	assert.Len(t, dir.Filtered(), 3, "blank query matches everything")

	dir.SetSearch("nobody")
	assert.Empty(t, dir.Filtered())
}

func TestOptimisticMutations(t *testing.T) {
	source := new(mocks.ChatSourceMock)
	source.On("ListChats", mock.Anything).Return(sampleChats(), nil).Once()

	dir := directory.New(source)
	require.NoError(t, dir.Load(context.Background()))

	dir.Add(models.Chat{ID: "c4", Title: "Incident"})
	chats := dir.Chats()
	require.Len(t, chats, 4)
	assert.Equal(t, "c4", chats[0].ID, "new chats go first")

	dir.Update("c1", func(c *models.Chat) { c.Title = "Daily Standup" })
	assert.Equal(t, "Daily Standup", dir.Chats()[1].Title)

	dir.Remove("c2")
	require.Len(t, dir.Chats(), 3)
	dir.Remove("missing")
	assert.Len(t, dir.Chats(), 3)
}

func TestStartChatPrependsCreatedChat(t *testing.T) {
	created := models.Chat{ID: "new", Title: "personal", Participants: []string{"erin"}}
	source := new(mocks.ChatSourceMock)
	source.On("ListChats", mock.Anything).Return(sampleChats(), nil).Once()
	source.On("CreateChat", mock.Anything, "", []string{"erin"}).Return(created, nil).Once()

	dir := directory.New(source)
	require.NoError(t, dir.Load(context.Background()))

	chat, err := dir.StartChat(context.Background(), "", []string{"erin"})
	require.NoError(t, err)
	assert.Equal(t, created, chat)
	assert.Equal(t, "new", dir.Chats()[0].ID)
	source.AssertExpectations(t)
}

func TestDeleteRemovesRemoteAndLocal(t *testing.T) {
	source := new(mocks.ChatSourceMock)
	source.On("ListChats", mock.Anything).Return(sampleChats(), nil).Once()
	source.On("DeleteChat", mock.Anything, "c1").Return(nil).Once()
	source.On("DeleteChat", mock.Anything, "c2").Return(assert.AnError).Once()

	dir := directory.New(source)
	require.NoError(t, dir.Load(context.Background()))

	require.NoError(t, dir.Delete(context.Background(), "c1"))
	assert.Len(t, dir.Chats(), 2)

	require.Error(t, dir.Delete(context.Background(), "c2"))
	assert.Len(t, dir.Chats(), 2, "local list untouched when the gateway refuses")
	source.AssertExpectations(t)
}

func TestDisplayTitleResolvesPersonalChats(t *testing.T) {
	personal := models.Chat{
		ID:           "p1",
		Title:        "personal",
		Participants: []string{"u1"},
		Expand: &models.ChatExpand{
			Participants: []models.User{{ID: "u1", Name: "Erin Moss", Username: "erin"}},
		},
	}
	assert.Equal(t, "Erin Moss", directory.DisplayTitle(personal))

	personal.Expand.Participants[0].Name = ""
	assert.Equal(t, "erin", directory.DisplayTitle(personal))

	group := models.Chat{ID: "g1", Title: "Team Standup", Participants: []string{"a", "b"}}
	assert.Equal(t, "Team Standup", directory.DisplayTitle(group))

	personal.Expand = nil
	assert.Equal(t, "personal", directory.DisplayTitle(personal))
}
