package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL is how long an issued session stays valid.
const SessionTTL = 24 * time.Hour

var ErrMissingSigningKey = errors.New("session signing key is not configured")

// Identity is what a session proves about its holder.
type Identity struct {
	UserID string
	Email  string
	Name   string
	Admin  bool
}

type SessionClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Admin  bool   `json:"admin"`
	jwt.RegisteredClaims
}

// SessionIssuer signs and verifies stateless session tokens. There is no
// server-side session table, so a token stays valid until it expires.
type SessionIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewSessionIssuer(secret string) (*SessionIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSigningKey
	}
	return &SessionIssuer{
		key: []byte(secret),
		ttl: SessionTTL,
		now: time.Now,
	}, nil
}

// WithClock returns a copy that reads time from now. Used by tests.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	clone := *s
	clone.now = now
	return &clone
}

func (s *SessionIssuer) TTL() time.Duration {
	return s.ttl
}

func (s *SessionIssuer) Issue(identity Identity) (string, error) {
	now := s.now()
	claims := SessionClaims{
		UserID: identity.UserID,
		Email:  identity.Email,
		Name:   identity.Name,
		Admin:  identity.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			Subject:   identity.UserID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify returns the embedded identity, or false for any malformed, forged
// or expired token.
func (s *SessionIssuer) Verify(tokenStr string) (Identity, bool) {
	if tokenStr == "" {
		return Identity{}, false
	}

	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return Identity{}, false
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return Identity{}, false
	}

	return Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Name:   claims.Name,
		Admin:  claims.Admin,
	}, true
}
