package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub-app/apiserver/types"
)

type recordingBackend struct {
	topics   []string
	payloads [][]byte
	attrs    []map[string]string
	closed   bool
}

func (b *recordingBackend) Publish(_ context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	b.topics = append(b.topics, topic)
	b.payloads = append(b.payloads, data)
	b.attrs = append(b.attrs, attrs)
	return "msg-1", nil
}

func (b *recordingBackend) Close() error {
	b.closed = true
	return nil
}

func newTestPublisher() (*Publisher, *recordingBackend) {
	backend := &recordingBackend{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPublisher(backend, logger), backend
}

func TestUserRegisteredEvent(t *testing.T) {
	publisher, backend := newTestPublisher()

	publisher.UserRegistered(context.Background(), types.User{
		ID:    "user-1",
		Email: "alice@x.com",
	})

	require.Len(t, backend.payloads, 1)
	assert.Equal(t, Topic, backend.topics[0])
	assert.Equal(t, KindUserRegistered, backend.attrs[0]["kind"])

	var event AccountEvent
	require.NoError(t, json.Unmarshal(backend.payloads[0], &event))
	assert.Equal(t, KindUserRegistered, event.Kind)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, "alice@x.com", event.Email)
	assert.False(t, event.OccurredAt.IsZero())
}

func TestUserDeletedEvent(t *testing.T) {
	publisher, backend := newTestPublisher()

	publisher.UserDeleted(context.Background(), "user-1")

	require.Len(t, backend.payloads, 1)
	var event AccountEvent
	require.NoError(t, json.Unmarshal(backend.payloads[0], &event))
	assert.Equal(t, KindUserDeleted, event.Kind)
	assert.Equal(t, "user-1", event.UserID)
	assert.Empty(t, event.Email)
}

func TestNilPublisherIsNoop(t *testing.T) {
	var publisher *Publisher

	// Must not panic.
	publisher.UserRegistered(context.Background(), types.User{ID: "user-1"})
	publisher.UserDeleted(context.Background(), "user-1")
	publisher.PasswordMigrated(context.Background(), "user-1")
	assert.NoError(t, publisher.Close())
}

func TestCloseClosesBackend(t *testing.T) {
	publisher, backend := newTestPublisher()

	require.NoError(t, publisher.Close())
	assert.True(t, backend.closed)
}
