package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"messenger-client/internal/observability"
)

// realtimeCommand is sent by the client to manage subscriptions.
type realtimeCommand struct {
	Action     string `json:"action"`
	ID         string `json:"id"`
	Collection string `json:"collection,omitempty"`
	Topic      string `json:"topic,omitempty"`
	Filter     string `json:"filter,omitempty"`
	Expand     string `json:"expand,omitempty"`
}

// realtimeFrame is pushed by the gateway for a matching subscription.
type realtimeFrame struct {
	ID     string          `json:"id"`
	Action string          `json:"action"`
	Record json.RawMessage `json:"record"`
}

// EventCallback receives one live event. Callbacks run on the connection's
// reader goroutine and must not block.
type EventCallback func(action string, record json.RawMessage)

type rtState struct {
	mu   sync.Mutex
	conn *rtConn
}

type rtConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex

	mu     sync.RWMutex
	subs   map[string]EventCallback
	closed bool
}

// Subscribe opens a realtime subscription on the collection, filtered by q,
// and returns an idempotent unsubscribe func. The underlying websocket
// connection is shared by all subscriptions and dialed on first use; if it
// dies it is re-dialed on the next Subscribe call.
func (c *Client) Subscribe(ctx context.Context, collection, topic string, q Query, fn EventCallback) (func(), error) {
	conn, err := c.realtimeConn(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	conn.addSub(id, fn)

	cmd := realtimeCommand{
		Action:     "subscribe",
		ID:         id,
		Collection: collection,
		Topic:      topic,
		Filter:     q.Filter,
		Expand:     q.Expand,
	}
	if err := conn.writeJSON(cmd); err != nil {
		conn.removeSub(id)
		return nil, err
	}
	observability.IncRealtimeActive()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			conn.removeSub(id)
			if err := conn.writeJSON(realtimeCommand{Action: "unsubscribe", ID: id}); err != nil {
				log.Printf("realtime unsubscribe failed id=%s: %v", id, err)
			}
			observability.DecRealtimeActive()
		})
	}
	return unsubscribe, nil
}

func (c *Client) realtimeConn(ctx context.Context) (*rtConn, error) {
	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()

	if c.rt.conn != nil && !c.rt.conn.isClosed() {
		return c.rt.conn, nil
	}

	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/realtime"
	header := http.Header{}
	if token := c.auth.Token(); token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	conn := &rtConn{ws: ws, subs: make(map[string]EventCallback)}
	go conn.readLoop()
	c.rt.conn = conn
	return conn, nil
}

func (c *rtConn) readLoop() {
	defer c.close()
	for {
		var frame realtimeFrame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("realtime read error: %v", err)
			}
			return
		}

		c.mu.RLock()
		fn := c.subs[frame.ID]
		c.mu.RUnlock()
		if fn != nil {
			fn(frame.Action, frame.Record)
		}
	}
}

func (c *rtConn) writeJSON(v any) error {
	if c.isClosed() {
		return ErrRealtimeClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *rtConn) addSub(id string, fn EventCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[id] = fn
}

func (c *rtConn) removeSub(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

func (c *rtConn) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *rtConn) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.subs = make(map[string]EventCallback)
	c.mu.Unlock()
	_ = c.ws.Close()
}
