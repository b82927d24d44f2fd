package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/auth"
)

const getSessionByHashSQL = `SELECT s.id, s.token_hash, s.customer_id, c.customer_group_id, s.expires_at
	FROM customer_session s
	JOIN customer c ON c.id = s.customer_id
	WHERE s.token_hash = $1 AND c.status = TRUE`

var _ auth.Repository = (*SessionRepository)(nil)

// SessionRepository provides customer session lookups backed by
// PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByTokenHash looks up a session by its HMAC-SHA256 token hash.
func (r *SessionRepository) FindByTokenHash(ctx context.Context, hash string) (*auth.Session, error) {
	var (
		s         auth.Session
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).Scan(
		&s.ID, &s.TokenHash, &s.CustomerID, &s.CustomerGroupID, &expiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, fmt.Errorf("finding session by hash: %w", err)
	}
	if expiresAt != nil {
		s.ExpiresAt = *expiresAt
	}
	return &s, nil
}
