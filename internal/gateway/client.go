// Package gateway implements the client for the hosted record backend:
// collection CRUD, password auth and the realtime subscription channel.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"messenger-client/internal/observability"
)

// Collection names owned by the gateway.
const (
	CollectionChats    = "chats"
	CollectionMessages = "messages"
	CollectionUsers    = "users"
)

// fullListBatch is the page size used when draining a full list.
const fullListBatch = 200

// Query carries the optional record query parameters.
type Query struct {
	Filter    string
	Sort      string
	Expand    string
	Fields    string
	SkipTotal bool
}

// ListInfo is the pagination part of a list response envelope.
type ListInfo struct {
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
	TotalItems int `json:"totalItems"`
}

type listEnvelope struct {
	ListInfo
	Items json.RawMessage `json:"items"`
}

// Client talks to one record gateway instance.
type Client struct {
	baseURL string
	http    *http.Client
	auth    *AuthStore
	tracer  trace.Tracer

	rt rtState
}

// New builds a client for the gateway at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		auth:    NewAuthStore(),
		tracer:  otel.Tracer("messenger-client/gateway"),
	}
}

// Auth exposes the token store backing this client.
func (c *Client) Auth() *AuthStore {
	return c.auth
}

// BaseURL reports the configured gateway address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetList fetches one page of records sorted and filtered by q. Items are
// decoded into dest, which must be a pointer to a slice of records.
func (c *Client) GetList(ctx context.Context, collection string, page, perPage int, q Query, dest any) (ListInfo, error) {
	vals := q.values()
	vals.Set("page", strconv.Itoa(page))
	vals.Set("perPage", strconv.Itoa(perPage))

	var env listEnvelope
	if err := c.send(ctx, http.MethodGet, c.recordsPath(collection, ""), collection, "list", vals, nil, &env); err != nil {
		return ListInfo{}, err
	}
	if dest != nil && len(env.Items) > 0 {
		if err := json.Unmarshal(env.Items, dest); err != nil {
			return ListInfo{}, fmt.Errorf("decode %s items: %w", collection, err)
		}
	}
	return env.ListInfo, nil
}

// GetFullList drains every page of the collection into dest.
func (c *Client) GetFullList(ctx context.Context, collection string, q Query, dest any) error {
	q.SkipTotal = true
	vals := q.values()
	vals.Set("perPage", strconv.Itoa(fullListBatch))

	var all []json.RawMessage
	for page := 1; ; page++ {
		vals.Set("page", strconv.Itoa(page))
		var env struct {
			Items []json.RawMessage `json:"items"`
		}
		if err := c.send(ctx, http.MethodGet, c.recordsPath(collection, ""), collection, "fullList", vals, nil, &env); err != nil {
			return err
		}
		all = append(all, env.Items...)
		if len(env.Items) < fullListBatch {
			break
		}
	}

	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s items: %w", collection, err)
	}
	return nil
}

// GetFirst fetches the first record matching filter, or ErrNotFound.
func (c *Client) GetFirst(ctx context.Context, collection, filter string, q Query, dest any) error {
	q.Filter = filter
	q.SkipTotal = true

	var items []json.RawMessage
	if _, err := c.GetList(ctx, collection, 1, 1, q, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		return ErrNotFound
	}
	return json.Unmarshal(items[0], dest)
}

// GetOne fetches a single record by id.
func (c *Client) GetOne(ctx context.Context, collection, id string, q Query, dest any) error {
	return c.send(ctx, http.MethodGet, c.recordsPath(collection, id), collection, "one", q.values(), nil, dest)
}

// Create stores a new record and decodes the stored form into dest.
func (c *Client) Create(ctx context.Context, collection string, body any, q Query, dest any) error {
	return c.send(ctx, http.MethodPost, c.recordsPath(collection, ""), collection, "create", q.values(), body, dest)
}

// Update patches fields of an existing record.
func (c *Client) Update(ctx context.Context, collection, id string, body any, q Query, dest any) error {
	return c.send(ctx, http.MethodPatch, c.recordsPath(collection, id), collection, "update", q.values(), body, dest)
}

// Delete removes a record by id.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.send(ctx, http.MethodDelete, c.recordsPath(collection, id), collection, "delete", nil, nil, nil)
}

func (c *Client) recordsPath(collection, id string) string {
	p := "/api/collections/" + url.PathEscape(collection) + "/records"
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (q Query) values() url.Values {
	vals := url.Values{}
	if q.Filter != "" {
		vals.Set("filter", q.Filter)
	}
	if q.Sort != "" {
		vals.Set("sort", q.Sort)
	}
	if q.Expand != "" {
		vals.Set("expand", q.Expand)
	}
	if q.Fields != "" {
		vals.Set("fields", q.Fields)
	}
	if q.SkipTotal {
		vals.Set("skipTotal", "1")
	}
	return vals
}

func (c *Client) send(ctx context.Context, method, path, collection, op string, vals url.Values, body, dest any) error {
	ctx, span := c.tracer.Start(ctx, "gateway."+op)
	defer span.End()

	reqURL := c.baseURL + path
	if len(vals) > 0 {
		reqURL += "?" + vals.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if token := c.auth.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.ObserveGatewayRequest(method, collection, 0, time.Since(start))
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	observability.ObserveGatewayRequest(method, collection, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
