// Package directory maintains the viewer's chat list: a full-list fetch,
// a local substring filter, and optimistic mutations between reloads.
package directory

import (
	"context"
	"log"
	"strings"
	"sync"

	"messenger-client/internal/models"
)

// ChatSource is the gateway surface the directory depends on.
type ChatSource interface {
	ListChats(ctx context.Context) ([]models.Chat, error)
	CreateChat(ctx context.Context, title string, participantIDs []string) (models.Chat, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// Recorder persists fetched chats locally. Optional.
type Recorder interface {
	PutChats(ctx context.Context, chats []models.Chat) error
}

// Directory holds the loaded chat list. The list is pulled, not pushed:
// there is no live subscription on the chats collection.
type Directory struct {
	source   ChatSource
	recorder Recorder

	mu        sync.Mutex
	chats     []models.Chat
	search    string
	isLoading bool
	loadErr   string
}

// Option configures a Directory.
type Option func(*Directory)

// WithRecorder attaches a local persistence hook.
func WithRecorder(r Recorder) Option {
	return func(d *Directory) { d.recorder = r }
}

// New builds an empty directory.
func New(source ChatSource, opts ...Option) *Directory {
	d := &Directory{source: source}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load replaces the chat list with a fresh full fetch. On failure the
// previous list is kept and Err carries a user-visible message.
func (d *Directory) Load(ctx context.Context) error {
	d.mu.Lock()
	d.isLoading = true
	d.loadErr = ""
	d.mu.Unlock()

	chats, err := d.source.ListChats(ctx)

	d.mu.Lock()
	d.isLoading = false
	if err != nil {
		d.loadErr = "failed to load chats"
		d.mu.Unlock()
		log.Printf("directory: load chats failed: %v", err)
		return err
	}
	d.chats = chats
	d.mu.Unlock()

	if d.recorder != nil && len(chats) > 0 {
		if err := d.recorder.PutChats(ctx, chats); err != nil {
			log.Printf("directory: cache write failed: %v", err)
		}
	}
	return nil
}

// SetSearch updates the filter query.
func (d *Directory) SetSearch(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.search = query
}

// Search returns the current filter query.
func (d *Directory) Search() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.search
}

// Filtered returns the chats matching the search query, case-insensitively,
// against the title and participant identifiers.
func (d *Directory) Filtered() []models.Chat {
	d.mu.Lock()
	defer d.mu.Unlock()

	query := strings.ToLower(strings.TrimSpace(d.search))
	if query == "" {
		return append([]models.Chat(nil), d.chats...)
	}

	var out []models.Chat
	for _, chat := range d.chats {
		if chatMatches(chat, query) {
			out = append(out, chat)
		}
	}
	return out
}

func chatMatches(chat models.Chat, query string) bool {
	if strings.Contains(strings.ToLower(chat.Title), query) {
		return true
	}
	for _, p := range chat.Participants {
		if strings.Contains(strings.ToLower(p), query) {
			return true
		}
	}
	return false
}

// Chats returns a copy of the unfiltered list.
func (d *Directory) Chats() []models.Chat {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Chat(nil), d.chats...)
}

// IsLoading reports whether a load is in flight.
func (d *Directory) IsLoading() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isLoading
}

// Err returns the user-visible error from the last failed load, or "".
func (d *Directory) Err() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadErr
}

// Add prepends a chat so a just-created conversation shows up before the
// next full reload.
func (d *Directory) Add(chat models.Chat) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chats = append([]models.Chat{chat}, d.chats...)
}

// Update patches the chat with the given id in place.
func (d *Directory) Update(chatID string, patch func(*models.Chat)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.chats {
		if d.chats[i].ID == chatID {
			patch(&d.chats[i])
			return
		}
	}
}

// Remove drops the chat from the local list.
func (d *Directory) Remove(chatID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.chats {
		if d.chats[i].ID == chatID {
			d.chats = append(d.chats[:i], d.chats[i+1:]...)
			return
		}
	}
}

// StartChat creates a chat on the gateway and prepends it locally.
func (d *Directory) StartChat(ctx context.Context, title string, participantIDs []string) (models.Chat, error) {
	chat, err := d.source.CreateChat(ctx, title, participantIDs)
	if err != nil {
		return models.Chat{}, err
	}
	d.Add(chat)
	return chat, nil
}

// Delete removes a chat on the gateway and locally.
func (d *Directory) Delete(ctx context.Context, chatID string) error {
	if err := d.source.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	d.Remove(chatID)
	return nil
}

// DisplayTitle resolves the title shown for a chat. A personal chat (one
// participant) takes that participant's display name when the expanded
// record is available.
func DisplayTitle(chat models.Chat) string {
	if chat.IsPersonal() && chat.Expand != nil && len(chat.Expand.Participants) == 1 {
		if name := chat.Expand.Participants[0].DisplayName(); name != "" {
			return name
		}
	}
	return chat.Title
}
