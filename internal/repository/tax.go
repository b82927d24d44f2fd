package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/totals"
)

const getTaxRatesSQL = `SELECT r.id, r.name, r.rate, r.type
	FROM tax_rule tr
	JOIN tax_rate r ON r.id = tr.tax_rate_id
	WHERE tr.tax_class_id = $1
	ORDER BY tr.priority ASC, r.id ASC`

var _ totals.TaxProvider = (*TaxRepository)(nil)

// TaxRepository evaluates tax rates against unit prices. Percentage
// rates ("P") apply rate% of the price; fixed rates ("F") apply the
// rate as an absolute amount.
type TaxRepository struct {
	pool *pgxpool.Pool
}

// NewTaxRepository returns a TaxRepository that uses the given pool.
func NewTaxRepository(pool *pgxpool.Pool) *TaxRepository {
	return &TaxRepository{pool: pool}
}

var hundred = decimal.NewFromInt(100)

// Rates returns the applicable rates for a price under a tax class,
// each with its amount already evaluated.
func (r *TaxRepository) Rates(ctx context.Context, price decimal.Decimal, taxClassID, _ int64) ([]totals.Rate, error) {
	rows, err := r.pool.Query(ctx, getTaxRatesSQL, taxClassID)
	if err != nil {
		return nil, fmt.Errorf("getting tax rates for class %d: %w", taxClassID, err)
	}
	defer rows.Close()

	var out []totals.Rate
	for rows.Next() {
		var (
			rate totals.Rate
			pct  decimal.Decimal
			typ  string
		)
		if err := rows.Scan(&rate.ID, &rate.Name, &pct, &typ); err != nil {
			return nil, fmt.Errorf("scanning tax rate: %w", err)
		}
		switch typ {
		case "F":
			rate.Amount = pct
		default:
			rate.Amount = price.Mul(pct).Div(hundred)
		}
		out = append(out, rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting tax rates for class %d: %w", taxClassID, err)
	}
	return out, nil
}
