package gatewaytest

import (
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"messenger-client/internal/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsSub struct {
	collection string
	chatID     string
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	subs    map[string]wsSub
}

// hub tracks realtime connections and their subscriptions.
type hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*client]bool)}
}

type command struct {
	Action     string `json:"action"`
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Topic      string `json:"topic"`
	Filter     string `json:"filter"`
	Expand     string `json:"expand"`
}

type frame struct {
	ID     string         `json:"id"`
	Action string         `json:"action"`
	Record models.Message `json:"record"`
}

func (s *Server) realtime(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	cl := &client{conn: conn, subs: make(map[string]wsSub)}
	s.hub.mu.Lock()
	s.hub.clients[cl] = true
	s.hub.mu.Unlock()

	defer func() {
		s.hub.mu.Lock()
		delete(s.hub.clients, cl)
		s.hub.mu.Unlock()
		conn.Close()
	}()

	for {
		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		switch cmd.Action {
		case "subscribe":
			chatID := ""
			if m := chatFilterRe.FindStringSubmatch(cmd.Filter); m != nil {
				chatID = m[1]
			}
			s.hub.mu.Lock()
			cl.subs[cmd.ID] = wsSub{collection: cmd.Collection, chatID: chatID}
			s.hub.mu.Unlock()
		case "unsubscribe":
			s.hub.mu.Lock()
			delete(cl.subs, cmd.ID)
			s.hub.mu.Unlock()
		}
	}
}

func (h *hub) subscriptionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for cl := range h.clients {
		n += len(cl.subs)
	}
	return n
}

func (h *hub) broadcast(collection, chatID, action string, record models.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for cl := range h.clients {
		for id, sub := range cl.subs {
			if sub.collection != collection {
				continue
			}
			if sub.chatID != "" && sub.chatID != chatID {
				continue
			}
			cl.writeMu.Lock()
			err := cl.conn.WriteJSON(frame{ID: id, Action: action, Record: record})
			cl.writeMu.Unlock()
			if err != nil {
				log.Printf("gatewaytest: websocket write error: %v", err)
			}
		}
	}
}
