package gateway

import (
	"context"
	"net/http"
	"sync"

	"messenger-client/internal/models"
)

// AuthStore keeps the bearer token and authenticated user record for a
// client. Safe for concurrent use.
type AuthStore struct {
	mu    sync.RWMutex
	token string
	user  models.User
}

// NewAuthStore returns an empty store.
func NewAuthStore() *AuthStore {
	return &AuthStore{}
}

// Token returns the current bearer token, or "".
func (s *AuthStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the authenticated user record.
func (s *AuthStore) User() models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// IsValid reports whether a token is present.
func (s *AuthStore) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Clear drops the token and user record.
func (s *AuthStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = models.User{}
}

func (s *AuthStore) set(token string, user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

type authResponse struct {
	Token  string      `json:"token"`
	Record models.User `json:"record"`
}

// AuthWithPassword authenticates against the users collection and stores
// the returned token for subsequent requests.
func (c *Client) AuthWithPassword(ctx context.Context, identity, password string) (models.User, error) {
	body := map[string]string{"identity": identity, "password": password}

	var resp authResponse
	path := "/api/collections/users/auth-with-password"
	if err := c.send(ctx, http.MethodPost, path, CollectionUsers, "authWithPassword", nil, body, &resp); err != nil {
		return models.User{}, err
	}
	c.auth.set(resp.Token, resp.Record)
	return resp.Record, nil
}

// Logout clears the stored credentials.
func (c *Client) Logout() {
	c.auth.Clear()
}
