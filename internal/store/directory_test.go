package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userhub-app/apiserver/types"
)

// stubStatus is a deterministic StatusProvider for router tests.
type stubStatus struct {
	available bool
	markDowns int
}

func (s *stubStatus) Available() bool { return s.available }
func (s *stubStatus) MarkDown()       { s.available = false; s.markDowns++ }

// failingDirectory returns ErrUnavailable from every operation.
type failingDirectory struct{}

func (failingDirectory) Create(context.Context, types.User) (types.User, error) {
	return types.User{}, ErrUnavailable
}
func (failingDirectory) FindByEmail(context.Context, string) (types.User, error) {
	return types.User{}, ErrUnavailable
}
func (failingDirectory) FindByID(context.Context, string) (types.User, error) {
	return types.User{}, ErrUnavailable
}
func (failingDirectory) Update(context.Context, types.User) (types.User, error) {
	return types.User{}, ErrUnavailable
}
func (failingDirectory) Delete(context.Context, string) error { return ErrUnavailable }
func (failingDirectory) List(context.Context) ([]types.User, error) {
	return nil, ErrUnavailable
}

func TestRouterUsesDurableWhenAvailable(t *testing.T) {
	durable := NewMemoryDirectory()
	fallback := NewMemoryDirectory()
	router := NewRouter(durable, fallback, &stubStatus{available: true})
	ctx := context.Background()

	created, err := router.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	_, err = durable.FindByID(ctx, created.ID)
	assert.NoError(t, err)
	_, err = fallback.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRouterUsesFallbackWhenDown(t *testing.T) {
	durable := NewMemoryDirectory()
	fallback := NewMemoryDirectory()
	router := NewRouter(durable, fallback, &stubStatus{available: false})
	ctx := context.Background()

	created, err := router.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	found, err := router.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = durable.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRouterSelectionIsPerCall(t *testing.T) {
	durable := NewMemoryDirectory()
	fallback := NewMemoryDirectory()
	status := &stubStatus{available: false}
	router := NewRouter(durable, fallback, status)
	ctx := context.Background()

	degraded, err := router.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	// Reconnection: the very next call must hit the durable store, and the
	// degraded-mode record must not be visible there (no automatic merge).
	status.available = true

	_, err = router.FindByEmail(ctx, "alice@x.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = router.FindByID(ctx, degraded.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	users, err := router.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRouterMarksDownAndReroutesMidCall(t *testing.T) {
	fallback := NewMemoryDirectory()
	status := &stubStatus{available: true}
	router := NewRouter(failingDirectory{}, fallback, status)
	ctx := context.Background()

	created, err := router.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)
	assert.False(t, status.available)
	assert.Equal(t, 1, status.markDowns)

	// The rerouted write landed on the fallback.
	found, err := fallback.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", found.Email)
}

func TestRouterPassesThroughDomainErrors(t *testing.T) {
	durable := NewMemoryDirectory()
	fallback := NewMemoryDirectory()
	status := &stubStatus{available: true}
	router := NewRouter(durable, fallback, status)
	ctx := context.Background()

	_, err := router.Create(ctx, types.User{Username: "alice", Email: "alice@x.com"})
	require.NoError(t, err)

	_, err = router.Create(ctx, types.User{Username: "imposter", Email: "alice@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	// A domain error is not a connectivity signal.
	assert.True(t, status.available)
	assert.Zero(t, status.markDowns)
}
