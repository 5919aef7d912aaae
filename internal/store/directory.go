// Package store implements persistence for user records: a durable
// Postgres-backed directory, a volatile in-process fallback, and a router
// that selects between them based on connectivity state.
package store

import (
	"context"
	"errors"

	"github.com/userhub-app/apiserver/types"
)

// UserDirectory defines persistence operations for user records. The
// directory exclusively owns stored state; callers hold no copies beyond a
// single in-flight operation.
type UserDirectory interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	FindByEmail(ctx context.Context, email string) (types.User, error)
	FindByID(ctx context.Context, id string) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]types.User, error)
}

// StatusProvider reports the durable store's connectivity state. The router
// consults it on every call; implementations may serve a slightly stale
// value, which readers must tolerate for at most one in-flight operation.
type StatusProvider interface {
	// Available reports whether the durable store is reachable.
	Available() bool

	// MarkDown records that a durable-store operation just failed with a
	// connectivity error, so subsequent calls route to the fallback.
	MarkDown()
}

// Router composes the durable and fallback directories behind the
// UserDirectory interface. The selection is evaluated per call, never
// cached: a request arriving right after reconnection uses the durable
// store. When a durable call fails with ErrUnavailable mid-flight, the
// router marks the status down and re-executes that call on the fallback.
//
// Records written to the fallback are not merged back once the durable
// store returns; degraded-mode data is lost by design.
type Router struct {
	durable  UserDirectory
	fallback UserDirectory
	status   StatusProvider
}

// NewRouter constructs a Router over the given directories and status source.
func NewRouter(durable, fallback UserDirectory, status StatusProvider) *Router {
	return &Router{durable: durable, fallback: fallback, status: status}
}

func (r *Router) Create(ctx context.Context, user types.User) (types.User, error) {
	if !r.status.Available() {
		return r.fallback.Create(ctx, user)
	}
	created, err := r.durable.Create(ctx, user)
	if errors.Is(err, ErrUnavailable) {
		r.status.MarkDown()
		return r.fallback.Create(ctx, user)
	}
	return created, err
}

func (r *Router) FindByEmail(ctx context.Context, email string) (types.User, error) {
	if !r.status.Available() {
		return r.fallback.FindByEmail(ctx, email)
	}
	user, err := r.durable.FindByEmail(ctx, email)
	if errors.Is(err, ErrUnavailable) {
		r.status.MarkDown()
		return r.fallback.FindByEmail(ctx, email)
	}
	return user, err
}

func (r *Router) FindByID(ctx context.Context, id string) (types.User, error) {
	if !r.status.Available() {
		return r.fallback.FindByID(ctx, id)
	}
	user, err := r.durable.FindByID(ctx, id)
	if errors.Is(err, ErrUnavailable) {
		r.status.MarkDown()
		return r.fallback.FindByID(ctx, id)
	}
	return user, err
}

func (r *Router) Update(ctx context.Context, user types.User) (types.User, error) {
	if !r.status.Available() {
		return r.fallback.Update(ctx, user)
	}
	updated, err := r.durable.Update(ctx, user)
	if errors.Is(err, ErrUnavailable) {
		r.status.MarkDown()
		return r.fallback.Update(ctx, user)
	}
	return updated, err
}

func (r *Router) Delete(ctx context.Context, id string) error {
	if !r.status.Available() {
		return r.fallback.Delete(ctx, id)
	}
	err := r.durable.Delete(ctx, id)
	if errors.Is(err, ErrUnavailable) {
		r.status.MarkDown()
		return r.fallback.Delete(ctx, id)
	}
	return err
}

func (r *Router) List(ctx context.Context) ([]types.User, error) {
	if !r.status.Available() {
		return r.fallback.List(ctx)
	}
	users, err := r.durable.List(ctx)
	if errors.Is(err, ErrUnavailable) {
		r.status.MarkDown()
		return r.fallback.List(ctx)
	}
	return users, err
}
