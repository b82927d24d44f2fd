// Package auth resolves customer sessions from bearer tokens.
package auth

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is an authenticated customer session. TokenHash is the
// HMAC-SHA256 of the bearer token; the raw token is never stored.
type Session struct {
	ID              int64
	TokenHash       string
	CustomerID      int64
	CustomerGroupID int64
	ExpiresAt       time.Time
}

// Expired reports whether the session is past its expiry. A zero
// expiry never expires.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Repository provides lookup of sessions by their HMAC token hash.
type Repository interface {
	FindByTokenHash(ctx context.Context, hash string) (*Session, error)
}
