// Package services implements the application use-cases on top of the
// store, hashing, and token layers.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"

	"github.com/userhub-app/apiserver/internal/password"
	"github.com/userhub-app/apiserver/internal/store"
	"github.com/userhub-app/apiserver/types"
)

var (
	// ErrInvalidInput is returned when required fields are missing or
	// malformed.
	ErrInvalidInput = errors.New("missing or invalid fields")

	// ErrInvalidCredentials is the unified login failure. Unknown email
	// and wrong password both map here so callers cannot probe for
	// account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserDirectory defines the persistence operations the service needs.
type UserDirectory interface {
	Create(ctx context.Context, user types.User) (types.User, error)
	FindByEmail(ctx context.Context, email string) (types.User, error)
	FindByID(ctx context.Context, id string) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]types.User, error)
}

// EventSink receives account lifecycle notifications. Implementations must
// be best-effort; the service never fails an operation over a sink error.
type EventSink interface {
	UserRegistered(ctx context.Context, user types.User)
	UserDeleted(ctx context.Context, userID string)
	PasswordMigrated(ctx context.Context, userID string)
}

// ProfilePatch carries the mutable fields of an account. Empty fields are
// left unchanged. A non-empty Password is hashed before it reaches the
// directory; a raw password never does.
type ProfilePatch struct {
	Username string
	Email    string
	Password string
}

// CredentialService orchestrates registration, login, and account
// management. It holds no cached user state beyond a single in-flight
// operation; the directory owns storage exclusively.
type CredentialService struct {
	dir    UserDirectory
	hasher *password.Hasher
	events EventSink
	logger *slog.Logger
}

// NewCredentialService constructs the service. events may be nil;
// publishing then becomes a no-op.
func NewCredentialService(dir UserDirectory, hasher *password.Hasher, events EventSink, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		dir:    dir,
		hasher: hasher,
		events: events,
		logger: logger,
	}
}

// Register creates an account with a hashed credential. The FindByEmail
// pre-check is best-effort; the durable store's unique index is what
// actually closes the race window.
func (s *CredentialService) Register(ctx context.Context, username, email, plaintext string) (types.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || plaintext == "" {
		return types.User{}, ErrInvalidInput
	}

	if _, err := s.dir.FindByEmail(ctx, email); err == nil {
		return types.User{}, store.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, err
	}

	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		return types.User{}, err
	}

	created, err := s.dir.Create(ctx, types.User{
		Username:       username,
		Email:          email,
		PasswordDigest: digest,
	})
	if err != nil {
		return types.User{}, err
	}

	if s.events != nil {
		s.events.UserRegistered(ctx, created)
	}
	return created, nil
}

// Login verifies a credential and reports whether a legacy plaintext value
// was migrated to a digest in the process. Every failure cause collapses
// into ErrInvalidCredentials.
//
// Migration-on-login intentionally mutates persisted state from a
// read-shaped operation: when the stored value does not carry the digest
// format, it is compared as plaintext and, on match, re-hashed and
// persisted. A failed migration write does not fail the login; the upgrade
// retries on the next one.
func (s *CredentialService) Login(ctx context.Context, email, plaintext string) (types.User, bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || plaintext == "" {
		return types.User{}, false, ErrInvalidCredentials
	}

	user, err := s.dir.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, false, ErrInvalidCredentials
		}
		return types.User{}, false, err
	}

	if !password.LooksHashed(user.PasswordDigest) {
		if subtle.ConstantTimeCompare([]byte(user.PasswordDigest), []byte(plaintext)) != 1 {
			return types.User{}, false, ErrInvalidCredentials
		}
		return s.migrateDigest(ctx, user, plaintext)
	}

	if !s.hasher.Verify(plaintext, user.PasswordDigest) {
		return types.User{}, false, ErrInvalidCredentials
	}
	return user, false, nil
}

func (s *CredentialService) migrateDigest(ctx context.Context, user types.User, plaintext string) (types.User, bool, error) {
	digest, err := s.hasher.Hash(plaintext)
	if err != nil {
		s.logger.Warn("failed to hash legacy credential during login", "user_id", user.ID, "error", err)
		return user, false, nil
	}

	user.PasswordDigest = digest
	updated, err := s.dir.Update(ctx, user)
	if err != nil {
		s.logger.Warn("failed to persist migrated credential", "user_id", user.ID, "error", err)
		return user, false, nil
	}

	s.logger.Info("migrated legacy plaintext credential", "user_id", user.ID)
	if s.events != nil {
		s.events.PasswordMigrated(ctx, user.ID)
	}
	return updated, true, nil
}

// UpdateProfile applies a patch to an account. Any password in the patch is
// hashed before persisting.
func (s *CredentialService) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) (types.User, error) {
	user, err := s.dir.FindByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}

	if username := strings.TrimSpace(patch.Username); username != "" {
		user.Username = username
	}
	if email := strings.TrimSpace(patch.Email); email != "" {
		user.Email = email
	}
	if patch.Password != "" {
		digest, err := s.hasher.Hash(patch.Password)
		if err != nil {
			return types.User{}, err
		}
		user.PasswordDigest = digest
	}

	return s.dir.Update(ctx, user)
}

// SetAvatarKey records the object-storage key of the user's avatar.
func (s *CredentialService) SetAvatarKey(ctx context.Context, id, key string) (types.User, error) {
	user, err := s.dir.FindByID(ctx, id)
	if err != nil {
		return types.User{}, err
	}
	user.AvatarKey = key
	return s.dir.Update(ctx, user)
}

// Get returns the account with the given id.
func (s *CredentialService) Get(ctx context.Context, id string) (types.User, error) {
	return s.dir.FindByID(ctx, id)
}

// List returns all accounts.
func (s *CredentialService) List(ctx context.Context) ([]types.User, error) {
	return s.dir.List(ctx)
}

// Delete removes the account with the given id.
func (s *CredentialService) Delete(ctx context.Context, id string) error {
	if err := s.dir.Delete(ctx, id); err != nil {
		return err
	}
	if s.events != nil {
		s.events.UserDeleted(ctx, id)
	}
	return nil
}
