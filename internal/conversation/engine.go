// Package conversation maintains the message timeline for one active chat,
// merging paginated history fetches with the live event stream into a single
// chronologically ordered sequence.
package conversation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"messenger-client/internal/models"
	"messenger-client/internal/observability"
)

// DefaultPageSize is the number of messages fetched per history page.
const DefaultPageSize = 20

// ErrClosed is returned once the engine has been shut down.
var ErrClosed = errors.New("conversation engine closed")

// MessageSource is the gateway surface the engine depends on.
type MessageSource interface {
	ListMessages(ctx context.Context, chatID string, page, perPage int) (models.MessageList, error)
	SubscribeMessages(ctx context.Context, chatID string, fn func(models.MessageEvent)) (func(), error)
}

// Recorder persists fetched messages locally. Optional; used for the
// offline cache.
type Recorder interface {
	PutMessages(ctx context.Context, msgs []models.Message) error
	DeleteMessage(ctx context.Context, id string) error
}

// Engine owns the state of the currently open conversation. All exported
// methods are safe for concurrent use; page loads are serialized by the
// loading flags, not queued.
type Engine struct {
	source   MessageSource
	recorder Recorder
	pageSize int
	loc      *time.Location

	mu            sync.Mutex
	chat          *models.Chat
	viewerID      string
	messages      []models.Message
	isLoading     bool
	isLoadingMore bool
	currentPage   int
	hasMore       bool
	totalItems    int
	live          bool
	unsubscribe   func()
	closed        bool
	watchers      map[chan struct{}]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithPageSize overrides the history page size.
func WithPageSize(n int) Option {
	return func(e *Engine) { e.pageSize = n }
}

// WithRecorder attaches a local persistence hook.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithLocation sets the time zone used for date separators.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) { e.loc = loc }
}

// NewEngine builds an idle engine with no conversation selected.
func NewEngine(source MessageSource, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		pageSize: DefaultPageSize,
		loc:      time.Local,
		watchers: make(map[chan struct{}]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Select makes chat the active conversation. Switching chats tears down the
// previous subscription, resets the timeline, loads the newest page and
// re-subscribes. Selecting the already active chat only updates the viewer.
func (e *Engine) Select(ctx context.Context, chat models.Chat, viewerID string) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if e.chat != nil && e.chat.ID == chat.ID {
		e.viewerID = viewerID
		e.mu.Unlock()
		e.notify()
		return nil
	}

	unsub := e.unsubscribe
	e.unsubscribe = nil
	e.live = false

	active := chat
	e.chat = &active
	e.viewerID = viewerID
	e.messages = nil
	e.currentPage = 1
	e.hasMore = true
	e.totalItems = 0
	e.isLoading = false
	e.isLoadingMore = false
	e.mu.Unlock()
	e.notify()

	if unsub != nil {
		unsub()
	}

	// Load failures are logged inside LoadInitial; the subscription is
	// still established so the chat recovers as soon as events arrive.
	_ = e.LoadInitial(ctx)
	e.subscribeLive(ctx, chat.ID)
	return nil
}

// LoadInitial fetches the newest page and replaces the sequence. No-op when
// no chat is active or a load is already in flight.
func (e *Engine) LoadInitial(ctx context.Context) error {
	e.mu.Lock()
	if e.closed || e.chat == nil || e.isLoading {
		e.mu.Unlock()
		return nil
	}
	e.isLoading = true
	chatID := e.chat.ID
	e.mu.Unlock()
	e.notify()

	list, err := e.source.ListMessages(ctx, chatID, 1, e.pageSize)

	e.mu.Lock()
	if e.chat == nil || e.chat.ID != chatID {
		// The active conversation changed while the fetch was in
		// flight. The switch already reset all flags; drop the result.
		e.mu.Unlock()
		observability.IncStaleResultDiscarded()
		log.Printf("conversation: discarded stale page chat=%s", chatID)
		return nil
	}
	if err != nil {
		e.isLoading = false
		e.mu.Unlock()
		e.notify()
		log.Printf("conversation: load messages failed chat=%s: %v", chatID, err)
		return err
	}

	msgs := reversed(list.Items)
	e.messages = msgs
	e.currentPage = 1
	e.totalItems = list.TotalItems
	e.hasMore = list.Page < list.TotalPages
	e.isLoading = false
	e.mu.Unlock()

	e.record(ctx, msgs)
	e.notify()
	return nil
}

// LoadOlder fetches the next older page and prepends it. No-op when there is
// no older page or a load is already in flight. On failure the page cursor
// is rolled back and the sequence left untouched.
func (e *Engine) LoadOlder(ctx context.Context) error {
	e.mu.Lock()
	if e.closed || e.chat == nil || !e.hasMore || e.isLoading || e.isLoadingMore {
		e.mu.Unlock()
		return nil
	}
	e.isLoadingMore = true
	e.currentPage++
	page := e.currentPage
	chatID := e.chat.ID
	e.mu.Unlock()
	e.notify()

	list, err := e.source.ListMessages(ctx, chatID, page, e.pageSize)

	e.mu.Lock()
	if e.chat == nil || e.chat.ID != chatID {
		e.mu.Unlock()
		observability.IncStaleResultDiscarded()
		log.Printf("conversation: discarded stale page chat=%s page=%d", chatID, page)
		return nil
	}
	if err != nil {
		e.currentPage--
		e.isLoadingMore = false
		e.mu.Unlock()
		e.notify()
		log.Printf("conversation: load older messages failed chat=%s page=%d: %v", chatID, page, err)
		return err
	}

	// A live create shifts page boundaries server-side, so an older page
	// can overlap with records already materialized.
	seen := make(map[string]struct{}, len(e.messages))
	for _, m := range e.messages {
		seen[m.ID] = struct{}{}
	}
	older := make([]models.Message, 0, len(list.Items))
	for _, m := range reversed(list.Items) {
		if _, ok := seen[m.ID]; !ok {
			older = append(older, m)
		}
	}

	e.messages = append(older, e.messages...)
	e.hasMore = list.Page < list.TotalPages
	e.isLoadingMore = false
	e.mu.Unlock()

	e.record(ctx, older)
	e.notify()
	return nil
}

// AddMessage appends a message optimistically, ahead of its live create
// event. Idempotent by message id.
func (e *Engine) AddMessage(m models.Message) {
	e.mu.Lock()
	if e.closed || e.indexOf(m.ID) >= 0 {
		e.mu.Unlock()
		return
	}
	e.insertOrdered(m)
	e.totalItems++
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) subscribeLive(ctx context.Context, chatID string) {
	unsub, err := e.source.SubscribeMessages(ctx, chatID, e.applyLiveEvent)
	if err != nil {
		log.Printf("conversation: subscribe failed chat=%s: %v", chatID, err)
		return
	}

	e.mu.Lock()
	if e.closed || e.chat == nil || e.chat.ID != chatID {
		e.mu.Unlock()
		unsub()
		return
	}
	e.unsubscribe = unsub
	e.live = true
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) applyLiveEvent(ev models.MessageEvent) {
	e.mu.Lock()
	if e.closed || e.chat == nil || (ev.Record.Chat != "" && ev.Record.Chat != e.chat.ID) {
		e.mu.Unlock()
		return
	}

	changed := false
	switch ev.Action {
	case models.EventCreate:
		if e.indexOf(ev.Record.ID) < 0 {
			e.insertOrdered(ev.Record)
			e.totalItems++
			changed = true
		}
	case models.EventUpdate:
		if i := e.indexOf(ev.Record.ID); i >= 0 {
			e.messages[i] = ev.Record
			changed = true
		}
	case models.EventDelete:
		if i := e.indexOf(ev.Record.ID); i >= 0 {
			e.messages = append(e.messages[:i], e.messages[i+1:]...)
			if e.totalItems > 0 {
				e.totalItems--
			}
			changed = true
		}
	}
	e.mu.Unlock()

	observability.IncLiveEvent(ev.Action)
	if !changed {
		return
	}
	if e.recorder != nil {
		ctx := context.Background()
		var err error
		if ev.Action == models.EventDelete {
			err = e.recorder.DeleteMessage(ctx, ev.Record.ID)
		} else {
			err = e.recorder.PutMessages(ctx, []models.Message{ev.Record})
		}
		if err != nil {
			log.Printf("conversation: cache write failed: %v", err)
		}
	}
	e.notify()
}

// Close tears down the live subscription. The engine accepts no further
// operations afterwards.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	unsub := e.unsubscribe
	e.unsubscribe = nil
	e.live = false
	e.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	e.notify()
}

// Subscribe registers a change watcher. The returned channel receives a
// signal after every state change; the cancel func removes the watcher.
func (e *Engine) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	e.mu.Lock()
	e.watchers[ch] = struct{}{}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		delete(e.watchers, ch)
		e.mu.Unlock()
	}
	return ch, cancel
}

func (e *Engine) notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Chat returns a copy of the active chat, or nil when idle.
func (e *Engine) Chat() *models.Chat {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.chat == nil {
		return nil
	}
	chat := *e.chat
	return &chat
}

// ViewerID returns the current viewer identifier.
func (e *Engine) ViewerID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewerID
}

// Messages returns a copy of the ordered message sequence.
func (e *Engine) Messages() []models.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Message(nil), e.messages...)
}

// IsLoading reports whether an initial/refresh load is in flight.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLoading
}

// IsLoadingMore reports whether an older-page load is in flight.
func (e *Engine) IsLoadingMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isLoadingMore
}

// HasMore reports whether older pages remain.
func (e *Engine) HasMore() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasMore
}

// CurrentPage returns the last fetched page number.
func (e *Engine) CurrentPage() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentPage
}

// TotalItems returns the server-reported message count for the chat.
func (e *Engine) TotalItems() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalItems
}

// Live reports whether the realtime subscription is established.
func (e *Engine) Live() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.live
}

// indexOf returns the position of the message with the given id, or -1.
// Callers must hold e.mu.
func (e *Engine) indexOf(id string) int {
	for i := range e.messages {
		if e.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// insertOrdered places m by creation time, scanning from the tail since new
// messages are almost always the newest. Callers must hold e.mu.
func (e *Engine) insertOrdered(m models.Message) {
	i := len(e.messages)
	for i > 0 && e.messages[i-1].Created.After(m.Created) {
		i--
	}
	e.messages = append(e.messages, models.Message{})
	copy(e.messages[i+1:], e.messages[i:])
	e.messages[i] = m
}

func (e *Engine) record(ctx context.Context, msgs []models.Message) {
	if e.recorder == nil || len(msgs) == 0 {
		return
	}
	if err := e.recorder.PutMessages(ctx, msgs); err != nil {
		log.Printf("conversation: cache write failed: %v", err)
	}
}

func reversed(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	for i, m := range msgs {
		out[len(msgs)-1-i] = m
	}
	return out
}
