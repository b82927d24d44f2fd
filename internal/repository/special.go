package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// Candidates come back ordered the way the pricer expects: lowest
// priority number first, cheapest price breaking ties.
const getSpecialsSQL = `SELECT price, priority, date_start, date_end
	FROM product_special
	WHERE product_id = $1 AND customer_group_id = $2
	ORDER BY priority ASC, price ASC`

var _ pricing.SpecialProvider = (*SpecialRepository)(nil)

// SpecialRepository reads special price candidates.
type SpecialRepository struct {
	pool *pgxpool.Pool
}

// NewSpecialRepository returns a SpecialRepository that uses the given pool.
func NewSpecialRepository(pool *pgxpool.Pool) *SpecialRepository {
	return &SpecialRepository{pool: pool}
}

// Specials returns the candidates for a product and customer group.
func (r *SpecialRepository) Specials(ctx context.Context, productID, customerGroupID int64) ([]pricing.Special, error) {
	rows, err := r.pool.Query(ctx, getSpecialsSQL, productID, customerGroupID)
	if err != nil {
		return nil, fmt.Errorf("getting specials for product %d: %w", productID, err)
	}
	return pgx.CollectRows(rows, scanSpecial)
}

func scanSpecial(row pgx.CollectableRow) (pricing.Special, error) {
	var (
		s          pricing.Special
		start, end *time.Time
	)
	err := row.Scan(&s.Price, &s.Priority, &start, &end)
	if start != nil {
		s.DateStart = *start
	}
	if end != nil {
		s.DateEnd = *end
	}
	return s, err
}
