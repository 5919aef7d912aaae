package storage

import (
	"context"
	"fmt"
	"io"
)

// ObjectStorage defines common object operations across backends.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// AvatarStore keeps user avatar blobs in an object-storage backend, keyed
// by user ID.
type AvatarStore struct {
	backend ObjectStorage
}

// NewAvatarStore constructs an AvatarStore over the provided backend.
func NewAvatarStore(backend ObjectStorage) *AvatarStore {
	return &AvatarStore{backend: backend}
}

// EnsureBucket ensures the configured bucket exists.
func (s *AvatarStore) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

// Put stores the avatar for the given user and returns its object key.
func (s *AvatarStore) Put(ctx context.Context, userID string, r io.Reader, size int64, contentType string) (string, error) {
	key := avatarKey(userID)
	if err := s.backend.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// Get opens a reader for the avatar stored under the given key.
func (s *AvatarStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// Delete removes the avatar stored under the given key.
func (s *AvatarStore) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func avatarKey(userID string) string {
	return fmt.Sprintf("avatars/%s", userID)
}
