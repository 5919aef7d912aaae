// Package events publishes account lifecycle notifications (registration,
// deletion, password migration) to a message broker. Publishing is
// best-effort: a broker failure never fails the user-facing operation.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/userhub-app/apiserver/types"
)

// Topic is the broker channel account events are published to.
const Topic = "account-events"

// Event kinds.
const (
	KindUserRegistered   = "user.registered"
	KindUserDeleted      = "user.deleted"
	KindPasswordMigrated = "user.password_migrated"
)

// Backend abstracts the broker: RabbitMQ or Google Pub/Sub.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// AccountEvent is the wire payload for every account notification.
type AccountEvent struct {
	Kind       string    `json:"kind"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits account events through a broker backend. A nil Publisher
// is valid and publishes nothing, so callers need no broker in tests or
// when events are disabled.
type Publisher struct {
	backend Backend
	logger  *slog.Logger
}

// NewPublisher constructs a Publisher over the given backend.
func NewPublisher(backend Backend, logger *slog.Logger) *Publisher {
	return &Publisher{backend: backend, logger: logger}
}

// UserRegistered announces a newly created account.
func (p *Publisher) UserRegistered(ctx context.Context, user types.User) {
	p.publish(ctx, AccountEvent{
		Kind:       KindUserRegistered,
		UserID:     user.ID,
		Email:      user.Email,
		OccurredAt: time.Now(),
	})
}

// UserDeleted announces an account removal.
func (p *Publisher) UserDeleted(ctx context.Context, userID string) {
	p.publish(ctx, AccountEvent{
		Kind:       KindUserDeleted,
		UserID:     userID,
		OccurredAt: time.Now(),
	})
}

// PasswordMigrated announces a legacy plaintext credential upgraded to a
// digest during login.
func (p *Publisher) PasswordMigrated(ctx context.Context, userID string) {
	p.publish(ctx, AccountEvent{
		Kind:       KindPasswordMigrated,
		UserID:     userID,
		OccurredAt: time.Now(),
	})
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	if p == nil || p.backend == nil {
		return nil
	}
	return p.backend.Close()
}

func (p *Publisher) publish(ctx context.Context, event AccountEvent) {
	if p == nil || p.backend == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode account event", "kind", event.Kind, "error", err)
		return
	}
	attrs := map[string]string{"kind": event.Kind}
	if _, err := p.backend.Publish(ctx, Topic, data, attrs); err != nil {
		p.logger.Error("failed to publish account event", "kind", event.Kind, "error", err)
	}
}
