package gateway

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrRealtimeClosed is returned when the realtime connection is gone.
var ErrRealtimeClosed = errors.New("realtime connection closed")

// APIError is a non-2xx response decoded from the gateway error body.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.Status)
}
