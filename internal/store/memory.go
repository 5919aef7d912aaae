package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/userhub-app/apiserver/types"
)

// MemoryDirectory is the volatile fallback UserDirectory, active only while
// the durable store is unreachable. All data is lost on process restart;
// that is the availability-over-durability tradeoff of degraded mode, not a
// cache. IDs are locally generated and unique only within this process.
type MemoryDirectory struct {
	mu    sync.RWMutex
	users map[string]types.User
}

// NewMemoryDirectory constructs an empty fallback directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]types.User)}
}

// localID builds a timestamp-plus-random-suffix identifier. Not globally
// unique, but unique enough for single-process, non-persistent operation.
func localID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), suffix)
}

func (d *MemoryDirectory) Create(_ context.Context, user types.User) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.users {
		if existing.Email == user.Email {
			return types.User{}, ErrDuplicateEmail
		}
	}

	now := time.Now()
	user.ID = localID()
	user.CreatedAt = now
	user.UpdatedAt = now
	d.users[user.ID] = user
	return user, nil
}

func (d *MemoryDirectory) FindByEmail(_ context.Context, email string) (types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, user := range d.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, ErrNotFound
}

func (d *MemoryDirectory) FindByID(_ context.Context, id string) (types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[id]
	if !ok {
		return types.User{}, ErrNotFound
	}
	return user, nil
}

func (d *MemoryDirectory) Update(_ context.Context, user types.User) (types.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.users[user.ID]
	if !ok {
		return types.User{}, ErrNotFound
	}

	if user.Email != existing.Email {
		for _, other := range d.users {
			if other.ID != user.ID && other.Email == user.Email {
				return types.User{}, ErrDuplicateEmail
			}
		}
	}

	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = time.Now()
	d.users[user.ID] = user
	return user, nil
}

func (d *MemoryDirectory) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[id]; !ok {
		return ErrNotFound
	}
	delete(d.users, id)
	return nil
}

func (d *MemoryDirectory) List(_ context.Context) ([]types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]types.User, 0, len(d.users))
	for _, user := range d.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}
