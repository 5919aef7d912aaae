// Package password implements the credential hashing policy: salted bcrypt
// digests at a fixed work factor, plus format detection for the legacy
// plaintext migration path.
package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for all new digests.
const Cost = 10

// bcrypt output is always 60 bytes: "$2x$" + cost + 22-char salt + 31-char hash.
const digestLength = 60

// ErrEmptyPassword is returned when an empty plaintext is offered for hashing.
var ErrEmptyPassword = errors.New("password must not be empty")

var digestPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// Hasher hashes and verifies passwords. The cost is injectable so tests can
// run at bcrypt.MinCost instead of paying the production work factor.
type Hasher struct {
	cost int
}

// NewHasher constructs a Hasher with the production work factor.
func NewHasher() *Hasher {
	return &Hasher{cost: Cost}
}

// NewHasherWithCost constructs a Hasher with a custom work factor.
func NewHasherWithCost(cost int) *Hasher {
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt digest of plaintext. A fresh salt is drawn on
// every call, so hashing the same input twice yields different digests.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. A malformed digest is
// treated as a mismatch, never an error. The underlying comparison is
// constant-time.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// LooksHashed reports whether value carries the digest format produced by
// Hash. The check is strict on both the version prefix and the fixed output
// length, so a genuine digest can never be misread as plaintext. It exists
// solely for the legacy-plaintext migration path and must not gate normal
// verification.
func LooksHashed(value string) bool {
	if len(value) != digestLength {
		return false
	}
	for _, prefix := range digestPrefixes {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
