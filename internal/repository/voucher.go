package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
)

// Remaining balance is the face amount plus the redemption history,
// whose rows are stored as negative amounts.
const getVoucherByCodeSQL = `SELECT v.id, v.code,
		v.amount + COALESCE(SUM(h.amount), 0) AS remaining,
		v.status, v.order_id,
		COALESCE(o.status = 'complete', FALSE) AS order_complete
	FROM voucher v
	LEFT JOIN voucher_history h ON h.voucher_id = v.id
	LEFT JOIN orders o ON o.id = v.order_id
	WHERE UPPER(v.code) = UPPER($1)
	GROUP BY v.id, o.status`

const addVoucherHistorySQL = `INSERT INTO voucher_history (voucher_id, order_id, amount)
	VALUES ($1, $2, $3)`

var _ discount.VoucherProvider = (*VoucherRepository)(nil)

// VoucherRepository implements discount.VoucherProvider backed by
// PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// Voucher looks a voucher up by code, case-insensitive, with its
// remaining balance and purchase-order linkage resolved.
func (r *VoucherRepository) Voucher(ctx context.Context, code string) (*discount.Voucher, error) {
	rows, err := r.pool.Query(ctx, getVoucherByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVoucher)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrVoucherNotFound
		}
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}
	return &v, nil
}

// Redeem records a redemption against the voucher as a negative
// history row tied to the order that consumed it.
func (r *VoucherRepository) Redeem(ctx context.Context, voucherID int64, orderID uuid.UUID, amount decimal.Decimal) error {
	_, err := r.pool.Exec(ctx, addVoucherHistorySQL, voucherID, orderID, amount)
	if err != nil {
		return fmt.Errorf("recording redemption for voucher %d: %w", voucherID, err)
	}
	return nil
}

func scanVoucher(row pgx.CollectableRow) (discount.Voucher, error) {
	var (
		v       discount.Voucher
		orderID *uuid.UUID
	)
	err := row.Scan(&v.ID, &v.Code, &v.Remaining, &v.Status, &orderID, &v.OrderComplete)
	if orderID != nil {
		v.OrderID = *orderID
	}
	return v, err
}
