package models

import "time"

// Chat represents a conversation record stored in the "chats" collection.
type Chat struct {
	ID           string      `db:"id" json:"id"`
	Title        string      `db:"title" json:"title"`
	Avatar       string      `db:"avatar" json:"avatar"`
	Participants []string    `db:"-" json:"participants"`
	Created      time.Time   `db:"created" json:"created"`
	Updated      time.Time   `db:"updated" json:"updated"`
	Expand       *ChatExpand `db:"-" json:"expand,omitempty"`
}

// ChatExpand holds denormalized join data attached by the gateway at fetch
// time. It is never written back.
type ChatExpand struct {
	Participants []User `json:"participants,omitempty"`
}

// IsPersonal reports whether the chat has exactly one participant.
func (c Chat) IsPersonal() bool {
	return len(c.Participants) == 1
}
