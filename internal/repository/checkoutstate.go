package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

const (
	getCheckoutStateSQL = `SELECT shipping_address, shipping_method, payment_method
		FROM checkout_state WHERE customer_id = $1`

	setShippingAddressSQL = `INSERT INTO checkout_state (customer_id, shipping_address)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET shipping_address = EXCLUDED.shipping_address`

	setShippingMethodSQL = `INSERT INTO checkout_state (customer_id, shipping_method)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET shipping_method = EXCLUDED.shipping_method`

	setPaymentMethodSQL = `INSERT INTO checkout_state (customer_id, payment_method)
		VALUES ($1, $2)
		ON CONFLICT (customer_id) DO UPDATE SET payment_method = EXCLUDED.payment_method`

	clearCheckoutStateSQL = `DELETE FROM checkout_state WHERE customer_id = $1`
)

var _ checkout.StateRepository = (*CheckoutStateRepository)(nil)

// CheckoutStateRepository persists per-customer checkout selections as
// JSONB columns, one per screen of the mobile checkout flow.
type CheckoutStateRepository struct {
	pool *pgxpool.Pool
}

// NewCheckoutStateRepository returns a CheckoutStateRepository that uses
// the given pool.
func NewCheckoutStateRepository(pool *pgxpool.Pool) *CheckoutStateRepository {
	return &CheckoutStateRepository{pool: pool}
}

// Get returns the customer's selections. A customer with no row gets an
// empty state, not an error.
func (r *CheckoutStateRepository) Get(ctx context.Context, customerID int64) (*checkout.State, error) {
	st := checkout.State{CustomerID: customerID}
	var addr, ship, pay []byte
	err := r.pool.QueryRow(ctx, getCheckoutStateSQL, customerID).Scan(&addr, &ship, &pay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &st, nil
		}
		return nil, fmt.Errorf("getting checkout state for customer %d: %w", customerID, err)
	}

	if err := unmarshalInto(addr, &st.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decoding shipping address: %w", err)
	}
	if err := unmarshalInto(ship, &st.ShippingMethod); err != nil {
		return nil, fmt.Errorf("decoding shipping method: %w", err)
	}
	if err := unmarshalInto(pay, &st.PaymentMethod); err != nil {
		return nil, fmt.Errorf("decoding payment method: %w", err)
	}
	return &st, nil
}

func (r *CheckoutStateRepository) SetShippingAddress(ctx context.Context, customerID int64, addr checkout.Address) error {
	return r.set(ctx, setShippingAddressSQL, "set shipping address", customerID, addr)
}

func (r *CheckoutStateRepository) SetShippingMethod(ctx context.Context, customerID int64, m checkout.Method) error {
	return r.set(ctx, setShippingMethodSQL, "set shipping method", customerID, m)
}

func (r *CheckoutStateRepository) SetPaymentMethod(ctx context.Context, customerID int64, m checkout.Method) error {
	return r.set(ctx, setPaymentMethodSQL, "set payment method", customerID, m)
}

// Clear drops the customer's selections.
func (r *CheckoutStateRepository) Clear(ctx context.Context, customerID int64) error {
	if _, err := r.pool.Exec(ctx, clearCheckoutStateSQL, customerID); err != nil {
		return fmt.Errorf("clearing checkout state for customer %d: %w", customerID, err)
	}
	return nil
}

func (r *CheckoutStateRepository) set(ctx context.Context, sql, op string, customerID int64, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := r.pool.Exec(ctx, sql, customerID, data); err != nil {
		return fmt.Errorf("%s for customer %d: %w", op, customerID, err)
	}
	return nil
}

// unmarshalInto decodes a nullable JSONB column into a typed pointer
// field, leaving it nil when the column is NULL.
func unmarshalInto[T any](data []byte, dst **T) error {
	if len(data) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
