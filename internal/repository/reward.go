package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
)

// Balance is the sum of the customer's reward history; redemptions are
// stored as negative rows.
const getRewardBalanceSQL = `SELECT COALESCE(SUM(points), 0)
	FROM customer_reward WHERE customer_id = $1`

var _ discount.RewardProvider = (*RewardRepository)(nil)

// RewardRepository reads reward-point balances backed by PostgreSQL.
type RewardRepository struct {
	pool *pgxpool.Pool
}

// NewRewardRepository returns a RewardRepository that uses the given pool.
func NewRewardRepository(pool *pgxpool.Pool) *RewardRepository {
	return &RewardRepository{pool: pool}
}

// Balance returns the customer's available reward points.
func (r *RewardRepository) Balance(ctx context.Context, customerID int64) (int64, error) {
	var points int64
	if err := r.pool.QueryRow(ctx, getRewardBalanceSQL, customerID).Scan(&points); err != nil {
		return 0, fmt.Errorf("getting reward balance for customer %d: %w", customerID, err)
	}
	return points, nil
}
