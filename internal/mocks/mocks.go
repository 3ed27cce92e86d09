package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-client/internal/conversation"
	"messenger-client/internal/directory"
	"messenger-client/internal/models"
)

type MessageSourceMock struct {
	mock.Mock
}

func (m *MessageSourceMock) ListMessages(ctx context.Context, chatID string, page, perPage int) (models.MessageList, error) {
	args := m.Called(ctx, chatID, page, perPage)
	var list models.MessageList
	if val := args.Get(0); val != nil {
		list = val.(models.MessageList)
	}
	return list, args.Error(1)
}

func (m *MessageSourceMock) SubscribeMessages(ctx context.Context, chatID string, fn func(models.MessageEvent)) (func(), error) {
	args := m.Called(ctx, chatID, fn)
	var unsubscribe func()
	if val := args.Get(0); val != nil {
		unsubscribe = val.(func())
	}
	return unsubscribe, args.Error(1)
}

type ChatSourceMock struct {
	mock.Mock
}

func (m *ChatSourceMock) ListChats(ctx context.Context) ([]models.Chat, error) {
	args := m.Called(ctx)
	var chats []models.Chat
	if val := args.Get(0); val != nil {
		chats = val.([]models.Chat)
	}
	return chats, args.Error(1)
}

func (m *ChatSourceMock) CreateChat(ctx context.Context, title string, participantIDs []string) (models.Chat, error) {
	args := m.Called(ctx, title, participantIDs)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatSourceMock) DeleteChat(ctx context.Context, chatID string) error {
	args := m.Called(ctx, chatID)
	return args.Error(0)
}

type RecorderMock struct {
	mock.Mock
}

func (m *RecorderMock) PutMessages(ctx context.Context, msgs []models.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *RecorderMock) DeleteMessage(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RecorderMock) PutChats(ctx context.Context, chats []models.Chat) error {
	args := m.Called(ctx, chats)
	return args.Error(0)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ conversation.MessageSource = (*MessageSourceMock)(nil)
var _ conversation.Recorder = (*RecorderMock)(nil)
var _ directory.ChatSource = (*ChatSourceMock)(nil)
var _ directory.Recorder = (*RecorderMock)(nil)
