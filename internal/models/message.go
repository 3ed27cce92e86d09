package models

import "time"

// Message represents a chat message record.
type Message struct {
	ID      string         `db:"id" json:"id"`
	Chat    string         `db:"chat" json:"chat"`
	Author  string         `db:"author" json:"author"`
	Content string         `db:"content" json:"content"`
	Created time.Time      `db:"created" json:"created"`
	Updated time.Time      `db:"updated" json:"updated"`
	Expand  *MessageExpand `db:"-" json:"expand,omitempty"`
}

// MessageExpand holds denormalized author/chat sub-records attached by the
// gateway when an expand option is passed.
type MessageExpand struct {
	Author *User `json:"author,omitempty"`
	Chat   *Chat `json:"chat,omitempty"`
}

// MessageList is the paginated list envelope returned by the gateway.
type MessageList struct {
	Page       int       `json:"page"`
	PerPage    int       `json:"perPage"`
	TotalPages int       `json:"totalPages"`
	TotalItems int       `json:"totalItems"`
	Items      []Message `json:"items"`
}

// Live event actions pushed by the gateway for subscribed records.
const (
	EventCreate = "create"
	EventUpdate = "update"
	EventDelete = "delete"
)

// MessageEvent is delivered over the realtime channel.
type MessageEvent struct {
	Action string  `json:"action"`
	Record Message `json:"record"`
}
