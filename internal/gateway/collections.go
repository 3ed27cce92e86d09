package gateway

import (
	"context"
	"encoding/json"
	"log"

	"messenger-client/internal/models"
)

// ListMessages fetches one page of a chat's messages, newest first.
func (c *Client) ListMessages(ctx context.Context, chatID string, page, perPage int) (models.MessageList, error) {
	q := Query{
		Filter: Filter(`chat = {:chat}`, Params{"chat": chatID}),
		Sort:   "-created",
		Expand: "author",
	}

	var items []models.Message
	info, err := c.GetList(ctx, CollectionMessages, page, perPage, q, &items)
	if err != nil {
		return models.MessageList{}, err
	}
	return models.MessageList{
		Page:       info.Page,
		PerPage:    info.PerPage,
		TotalPages: info.TotalPages,
		TotalItems: info.TotalItems,
		Items:      items,
	}, nil
}

// SearchMessages finds messages whose content contains query, optionally
// scoped to one chat.
func (c *Client) SearchMessages(ctx context.Context, query, chatID string, page, perPage int) (models.MessageList, error) {
	filter := Filter(`content ~ {:query}`, Params{"query": query})
	if chatID != "" {
		filter += " && " + Filter(`chat = {:chat}`, Params{"chat": chatID})
	}
	q := Query{Filter: filter, Sort: "-created", Expand: "author,chat"}

	var items []models.Message
	info, err := c.GetList(ctx, CollectionMessages, page, perPage, q, &items)
	if err != nil {
		return models.MessageList{}, err
	}
	return models.MessageList{
		Page:       info.Page,
		PerPage:    info.PerPage,
		TotalPages: info.TotalPages,
		TotalItems: info.TotalItems,
		Items:      items,
	}, nil
}

// CreateMessage stores a new message in the chat.
func (c *Client) CreateMessage(ctx context.Context, chatID, authorID, content string) (models.Message, error) {
	body := map[string]string{"chat": chatID, "author": authorID, "content": content}

	var msg models.Message
	err := c.Create(ctx, CollectionMessages, body, Query{Expand: "author"}, &msg)
	return msg, err
}

// SubscribeMessages opens a live subscription for one chat's messages.
func (c *Client) SubscribeMessages(ctx context.Context, chatID string, fn func(models.MessageEvent)) (func(), error) {
	q := Query{
		Filter: Filter(`chat = {:chat}`, Params{"chat": chatID}),
		Expand: "author",
	}
	return c.Subscribe(ctx, CollectionMessages, "*", q, func(action string, record json.RawMessage) {
		var msg models.Message
		if err := json.Unmarshal(record, &msg); err != nil {
			log.Printf("realtime: drop malformed %s event: %v", action, err)
			return
		}
		fn(models.MessageEvent{Action: action, Record: msg})
	})
}

// ListChats fetches every chat the viewer participates in, most recently
// updated first, with participant records expanded.
func (c *Client) ListChats(ctx context.Context) ([]models.Chat, error) {
	var chats []models.Chat
	q := Query{Sort: "-updated", Expand: "participants"}
	if err := c.GetFullList(ctx, CollectionChats, q, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat stores a new chat. A chat with a single participant is a
// personal chat and gets the default title.
func (c *Client) CreateChat(ctx context.Context, title string, participantIDs []string) (models.Chat, error) {
	if len(participantIDs) == 1 {
		title = "personal"
	}
	body := map[string]any{"title": title, "participants": participantIDs}

	var chat models.Chat
	err := c.Create(ctx, CollectionChats, body, Query{Expand: "participants"}, &chat)
	return chat, err
}

// DeleteChat removes a chat record.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.Delete(ctx, CollectionChats, chatID)
}

// GetUser fetches a user record by id.
func (c *Client) GetUser(ctx context.Context, userID string) (models.User, error) {
	var user models.User
	err := c.GetOne(ctx, CollectionUsers, userID, Query{}, &user)
	return user, err
}
