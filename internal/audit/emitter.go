// Package audit emits client-side usage events to an AMQP topic exchange.
package audit

import (
	"context"
	"log"
	"time"
)

// Client event names.
const (
	EventLogin       = "login"
	EventChatOpened  = "chat_opened"
	EventMessageSent = "message_sent"
)

// Envelope is the wire format for one audit event.
type Envelope struct {
	SchemaVersion int     `json:"schema_version"`
	EventType     string  `json:"event_type"`
	OccurredAt    string  `json:"occurred_at"`
	Service       string  `json:"service"`
	Environment   string  `json:"environment"`
	UserID        *string `json:"user_id,omitempty"`
	Payload       Payload `json:"payload"`
}

// Payload carries the event-specific fields.
type Payload struct {
	Event  string `json:"event"`
	ChatID string `json:"chat_id,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Emitter publishes audit envelopes with a fixed routing key and service
// identity. A nil emitter is a no-op.
type Emitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// NewEmitter builds an Emitter on top of publisher.
func NewEmitter(publisher Publisher, routingKey, service, environment string) *Emitter {
	return &Emitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Emit publishes one event. Failures are logged, never propagated.
func (e *Emitter) Emit(ctx context.Context, event string, userID *string, payload Payload) {
	if e == nil || e.publisher == nil {
		return
	}

	payload.Event = event
	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     "client_audit",
		OccurredAt:    time.Now().UTC().Format(time.RFC3339Nano),
		Service:       e.service,
		Environment:   e.environment,
		UserID:        userID,
		Payload:       payload,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope); err != nil {
		log.Printf("audit emit failed event=%s: %v", event, err)
	}
}
