// Package cache is a local sqlite mirror of fetched chats and messages,
// good enough for offline listing when the gateway is unreachable.
package cache

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
)

//go:embed schema.sql
var schemaSQL string

// Store is a sqlite-backed write-through cache.
type Store struct {
	db *sqlx.DB
}

// Open connects to (or creates) the cache database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type chatRow struct {
	ID           string    `db:"id"`
	Title        string    `db:"title"`
	Avatar       string    `db:"avatar"`
	Participants string    `db:"participants"`
	Created      time.Time `db:"created"`
	Updated      time.Time `db:"updated"`
}

// PutChats upserts chat records.
func (s *Store) PutChats(ctx context.Context, chats []models.Chat) error {
	query := `INSERT INTO chats (id, title, avatar, participants, created, updated)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            title=excluded.title, avatar=excluded.avatar,
            participants=excluded.participants, updated=excluded.updated`
	for _, chat := range chats {
		participants, err := json.Marshal(chat.Participants)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, query,
			chat.ID, chat.Title, chat.Avatar, string(participants), chat.Created, chat.Updated); err != nil {
			return fmt.Errorf("cache chat %s: %w", chat.ID, err)
		}
	}
	observability.IncCacheOp("put_chats")
	return nil
}

// Chats lists cached chats, most recently updated first.
func (s *Store) Chats(ctx context.Context) ([]models.Chat, error) {
	var rows []chatRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, title, avatar, participants, created, updated FROM chats ORDER BY updated DESC`)
	if err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0, len(rows))
	for _, row := range rows {
		chat := models.Chat{
			ID:      row.ID,
			Title:   row.Title,
			Avatar:  row.Avatar,
			Created: row.Created,
			Updated: row.Updated,
		}
		if err := json.Unmarshal([]byte(row.Participants), &chat.Participants); err != nil {
			return nil, fmt.Errorf("decode participants for chat %s: %w", row.ID, err)
		}
		chats = append(chats, chat)
	}
	observability.IncCacheOp("list_chats")
	return chats, nil
}

// PutMessages upserts message records.
func (s *Store) PutMessages(ctx context.Context, msgs []models.Message) error {
	query := `INSERT INTO messages (id, chat, author, content, created, updated)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            content=excluded.content, updated=excluded.updated`
	for _, msg := range msgs {
		if _, err := s.db.ExecContext(ctx, query,
			msg.ID, msg.Chat, msg.Author, msg.Content, msg.Created, msg.Updated); err != nil {
			return fmt.Errorf("cache message %s: %w", msg.ID, err)
		}
	}
	observability.IncCacheOp("put_messages")
	return nil
}

// DeleteMessage removes a message from the cache.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	observability.IncCacheOp("delete_message")
	return nil
}

// Messages lists a chat's cached messages in ascending creation order.
func (s *Store) Messages(ctx context.Context, chatID string) ([]models.Message, error) {
	var msgs []models.Message
	query := `SELECT id, chat, author, content, created, updated FROM messages WHERE chat = ? ORDER BY created ASC`
	if err := s.db.SelectContext(ctx, &msgs, query, chatID); err != nil {
		return nil, err
	}
	observability.IncCacheOp("list_messages")
	return msgs, nil
}
