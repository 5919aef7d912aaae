// Package token issues and verifies the signed bearer tokens that carry a
// caller's identity between requests. Tokens are stateless: validity is fully
// determined by signature and expiry at verification time.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TTL is the fixed lifetime of every issued token.
const TTL = time.Hour

// DevSecret is the insecure signing secret used when no secret is configured.
// Startup logs a warning whenever this value is in effect.
const DevSecret = "userhub-dev-secret-do-not-use"

var (
	// ErrInvalidToken is returned for malformed or tampered tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned for well-signed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")
)

// Claims are the identity assertions embedded in a token.
type Claims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
}

// Service signs and verifies bearer tokens with a symmetric secret.
type Service struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewService constructs a Service signing with the given secret.
func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    TTL,
		now:    time.Now,
	}
}

// Issue signs a token for the given subject, valid for the fixed TTL.
func (s *Service) Issue(subjectID, username string) (string, error) {
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		Username: username,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature integrity first, then expiry. The two failure
// kinds are distinguishable here; callers facing external clients should
// collapse both into a generic unauthorized response.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
