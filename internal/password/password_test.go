package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher() *Hasher {
	return NewHasherWithCost(bcrypt.MinCost)
}

func TestHashProducesFreshSalt(t *testing.T) {
	h := newTestHasher()

	first, err := h.Hash("secret123")
	require.NoError(t, err)
	second, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, h.Verify("secret123", first))
	assert.True(t, h.Verify("secret123", second))
}

func TestHashRejectsEmptyInput(t *testing.T) {
	h := newTestHasher()

	_, err := h.Hash("")
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestVerifyMismatch(t *testing.T) {
	h := newTestHasher()

	digest, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.False(t, h.Verify("wrong", digest))
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := newTestHasher()

	assert.False(t, h.Verify("secret123", "not-a-digest"))
	assert.False(t, h.Verify("secret123", ""))
	assert.False(t, h.Verify("secret123", "secret123"))
}

func TestLooksHashed(t *testing.T) {
	h := newTestHasher()

	digest, err := h.Hash("secret123")
	require.NoError(t, err)
	assert.True(t, LooksHashed(digest))

	prodDigest, err := NewHasher().Hash("secret123")
	require.NoError(t, err)
	assert.True(t, LooksHashed(prodDigest))

	assert.False(t, LooksHashed("secret123"))
	assert.False(t, LooksHashed(""))
	// Right prefix, wrong length: still plaintext as far as migration cares.
	assert.False(t, LooksHashed("$2a$10$tooshort"))
	// Right length, wrong prefix.
	assert.False(t, LooksHashed("x"+digest[1:]))
}
