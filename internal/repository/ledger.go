package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
)

const (
	getLedgerSQL = `SELECT coupon_code, voucher_code, reward_points
		FROM discount_ledger WHERE customer_id = $1`

	setLedgerCouponSQL = `INSERT INTO discount_ledger (customer_id, coupon_code)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET coupon_code = EXCLUDED.coupon_code`

	clearLedgerCouponSQL = `UPDATE discount_ledger SET coupon_code = '' WHERE customer_id = $1`

	setLedgerVoucherSQL = `INSERT INTO discount_ledger (customer_id, voucher_code)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET voucher_code = EXCLUDED.voucher_code`

	clearLedgerVoucherSQL = `UPDATE discount_ledger SET voucher_code = '' WHERE customer_id = $1`

	setLedgerRewardSQL = `INSERT INTO discount_ledger (customer_id, reward_points)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET reward_points = EXCLUDED.reward_points`

	clearLedgerRewardSQL = `UPDATE discount_ledger SET reward_points = 0 WHERE customer_id = $1`

	clearLedgerSQL = `DELETE FROM discount_ledger WHERE customer_id = $1`
)

var _ discount.Repository = (*LedgerRepository)(nil)

// LedgerRepository implements discount.Repository backed by PostgreSQL.
// Setters upsert so the first apply creates the row; clears against a
// missing row are no-ops.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository returns a LedgerRepository that uses the given pool.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Get returns the customer's ledger. A customer with no row gets an
// empty ledger, not an error.
func (r *LedgerRepository) Get(ctx context.Context, customerID int64) (*discount.Ledger, error) {
	l := discount.Ledger{CustomerID: customerID}
	err := r.pool.QueryRow(ctx, getLedgerSQL, customerID).Scan(
		&l.CouponCode, &l.VoucherCode, &l.RewardPoints,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &l, nil
		}
		return nil, fmt.Errorf("getting ledger for customer %d: %w", customerID, err)
	}
	return &l, nil
}

func (r *LedgerRepository) SetCoupon(ctx context.Context, customerID int64, code string) error {
	return r.exec(ctx, setLedgerCouponSQL, "set coupon", customerID, code)
}

func (r *LedgerRepository) ClearCoupon(ctx context.Context, customerID int64) error {
	return r.exec(ctx, clearLedgerCouponSQL, "clear coupon", customerID)
}

func (r *LedgerRepository) SetVoucher(ctx context.Context, customerID int64, code string) error {
	return r.exec(ctx, setLedgerVoucherSQL, "set voucher", customerID, code)
}

func (r *LedgerRepository) ClearVoucher(ctx context.Context, customerID int64) error {
	return r.exec(ctx, clearLedgerVoucherSQL, "clear voucher", customerID)
}

func (r *LedgerRepository) SetReward(ctx context.Context, customerID int64, points int64) error {
	return r.exec(ctx, setLedgerRewardSQL, "set reward", customerID, points)
}

func (r *LedgerRepository) ClearReward(ctx context.Context, customerID int64) error {
	return r.exec(ctx, clearLedgerRewardSQL, "clear reward", customerID)
}

func (r *LedgerRepository) Clear(ctx context.Context, customerID int64) error {
	return r.exec(ctx, clearLedgerSQL, "clear ledger", customerID)
}

func (r *LedgerRepository) exec(ctx context.Context, sql, op string, args ...any) error {
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
