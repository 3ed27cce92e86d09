// Package gatewaytest provides an in-process fake record gateway for tests:
// a gin router implementing the record API subset the client uses, plus a
// websocket hub that pushes live events to matching subscriptions.
package gatewaytest

import (
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-client/internal/models"
)

// Server is the fake gateway state. All fields are guarded by mu.
type Server struct {
	mu       sync.Mutex
	users    map[string]credential
	chats    []models.Chat
	messages []models.Message

	hub *hub

	// FailLists makes list requests return 500 while > 0, decrementing
	// per request. Used to exercise fetch-failure paths.
	FailLists int
}

type credential struct {
	password string
	user     models.User
}

// New returns an empty fake gateway.
func New() *Server {
	return &Server{
		users: make(map[string]credential),
		hub:   newHub(),
	}
}

// AddUser registers a login credential.
func (s *Server) AddUser(email, password string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[email] = credential{password: password, user: user}
}

// SeedChat stores a chat record directly.
func (s *Server) SeedChat(chat models.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, chat)
}

// SeedMessages stores n messages for the chat, one minute apart starting at
// start, and returns them in creation order.
func (s *Server) SeedMessages(chatID string, n int, start time.Time) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Message, 0, n)
	for i := 0; i < n; i++ {
		msg := models.Message{
			ID:      uuid.NewString(),
			Chat:    chatID,
			Author:  "seed",
			Content: "message " + strconv.Itoa(i+1),
			Created: start.Add(time.Duration(i) * time.Minute),
			Updated: start.Add(time.Duration(i) * time.Minute),
		}
		s.messages = append(s.messages, msg)
		out = append(out, msg)
	}
	return out
}

// Broadcast pushes a live event to all matching subscriptions without
// touching stored records.
func (s *Server) Broadcast(event models.MessageEvent) {
	s.hub.broadcast("messages", event.Record.Chat, event.Action, event.Record)
}

// Subscriptions reports the number of active realtime subscriptions. Tests
// use it to wait for a subscribe command to land before broadcasting.
func (s *Server) Subscriptions() int {
	return s.hub.subscriptionCount()
}

// Router builds the gin handler for the fake gateway.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/api/collections/users/auth-with-password", s.authWithPassword)
	r.GET("/api/collections/:collection/records", s.listRecords)
	r.POST("/api/collections/:collection/records", s.createRecord)
	r.DELETE("/api/collections/:collection/records/:id", s.deleteRecord)
	r.GET("/api/realtime", s.realtime)
	return r
}

func (s *Server) authWithPassword(c *gin.Context) {
	var req struct {
		Identity string `json:"identity"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}

	s.mu.Lock()
	cred, ok := s.users[req.Identity]
	s.mu.Unlock()
	if !ok || cred.password != req.Password {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": "test-token-" + cred.user.ID, "record": cred.user})
}

var chatFilterRe = regexp.MustCompile(`chat\s*=\s*"((?:[^"\\]|\\.)*)"`)

func (s *Server) listRecords(c *gin.Context) {
	s.mu.Lock()
	if s.FailLists > 0 {
		s.FailLists--
		s.mu.Unlock()
		c.JSON(http.StatusInternalServerError, gin.H{"message": "induced failure"})
		return
	}
	s.mu.Unlock()

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "30"))
	if page < 1 {
		page = 1
	}

	switch c.Param("collection") {
	case "messages":
		s.listMessages(c, page, perPage)
	case "chats":
		s.listChats(c, page, perPage)
	default:
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown collection"})
	}
}

func (s *Server) listMessages(c *gin.Context, page, perPage int) {
	chatID := ""
	if m := chatFilterRe.FindStringSubmatch(c.Query("filter")); m != nil {
		chatID = m[1]
	}

	s.mu.Lock()
	var matched []models.Message
	for _, msg := range s.messages {
		if chatID == "" || msg.Chat == chatID {
			matched = append(matched, msg)
		}
	}
	s.mu.Unlock()

	if c.Query("sort") == "-created" {
		sort.Slice(matched, func(i, j int) bool { return matched[i].Created.After(matched[j].Created) })
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].Created.Before(matched[j].Created) })
	}

	total := len(matched)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items := matched[start:end]
	if items == nil {
		items = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"page":       page,
		"perPage":    perPage,
		"totalItems": total,
		"totalPages": (total + perPage - 1) / perPage,
		"items":      items,
	})
}

func (s *Server) listChats(c *gin.Context, page, perPage int) {
	s.mu.Lock()
	chats := append([]models.Chat(nil), s.chats...)
	s.mu.Unlock()

	sort.Slice(chats, func(i, j int) bool { return chats[i].Updated.After(chats[j].Updated) })

	total := len(chats)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}

	items := chats[start:end]
	if items == nil {
		items = []models.Chat{}
	}
	c.JSON(http.StatusOK, gin.H{
		"page":       page,
		"perPage":    perPage,
		"totalItems": total,
		"totalPages": (total + perPage - 1) / perPage,
		"items":      items,
	})
}

func (s *Server) createRecord(c *gin.Context) {
	now := time.Now().UTC()
	switch c.Param("collection") {
	case "messages":
		var msg models.Message
		if err := c.ShouldBindJSON(&msg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		msg.ID = uuid.NewString()
		msg.Created = now
		msg.Updated = now

		s.mu.Lock()
		s.messages = append(s.messages, msg)
		s.mu.Unlock()

		s.hub.broadcast("messages", msg.Chat, models.EventCreate, msg)
		c.JSON(http.StatusOK, msg)
	case "chats":
		var chat models.Chat
		if err := c.ShouldBindJSON(&chat); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		chat.ID = uuid.NewString()
		chat.Created = now
		chat.Updated = now

		s.mu.Lock()
		s.chats = append(s.chats, chat)
		s.mu.Unlock()
		c.JSON(http.StatusOK, chat)
	default:
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown collection"})
	}
}

func (s *Server) deleteRecord(c *gin.Context) {
	id := c.Param("id")
	switch c.Param("collection") {
	case "messages":
		s.mu.Lock()
		var deleted *models.Message
		for i := range s.messages {
			if s.messages[i].ID == id {
				msg := s.messages[i]
				deleted = &msg
				s.messages = append(s.messages[:i], s.messages[i+1:]...)
				break
			}
		}
		s.mu.Unlock()

		if deleted == nil {
			c.JSON(http.StatusNotFound, gin.H{"message": "message not found"})
			return
		}
		s.hub.broadcast("messages", deleted.Chat, models.EventDelete, *deleted)
		c.Status(http.StatusNoContent)
	case "chats":
		s.mu.Lock()
		found := false
		for i := range s.chats {
			if s.chats[i].ID == id {
				s.chats = append(s.chats[:i], s.chats[i+1:]...)
				found = true
				break
			}
		}
		s.mu.Unlock()

		if !found {
			c.JSON(http.StatusNotFound, gin.H{"message": "chat not found"})
			return
		}
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusNotFound, gin.H{"message": "unknown collection"})
	}
}
