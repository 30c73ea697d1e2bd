package service

import (
	"context"
	"time"
)

// AuthEventType names what happened to an account.
type AuthEventType string

const (
	AuthEventUserRegistered   AuthEventType = "user.registered"
	AuthEventUserLoggedIn     AuthEventType = "user.logged_in"
	AuthEventSessionRefreshed AuthEventType = "session.refreshed"
	AuthEventUserFederated    AuthEventType = "user.federated"
)

// AuthEvent is published after a successful authentication. Consumers must tolerate duplicates and gaps.
type AuthEvent struct {
	RequestID  string        `json:"request_id,omitempty"` // For distributed tracing
	EventID    string        `json:"event_id"`
	Type       AuthEventType `json:"type"`
	UserID     string        `json:"user_id"`
	Email      string        `json:"email"`
	Provider   string        `json:"provider,omitempty"`
	Created    bool          `json:"created,omitempty"`
	Linked     bool          `json:"linked,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishAuthEvent publishes an auth event for downstream consumers
	PublishAuthEvent(ctx context.Context, event *AuthEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
