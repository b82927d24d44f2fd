package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/checkout"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, customer_id, currency, products, totals, total,
		 shipping_address, shipping_method, payment_method, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getOrderSQL = `SELECT id, customer_id, currency, products, totals, total,
		shipping_address, shipping_method, payment_method, status, created_at
		FROM orders WHERE id = $1`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var ErrOrderNotFound = errors.New("order not found")

var _ checkout.OrderRepository = (*OrderRepository)(nil)

// OrderRepository implements checkout.OrderRepository backed by
// PostgreSQL. Priced lines and the totals breakdown are serialized to
// JSONB so the snapshot stays immutable under later catalog changes.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a confirmed snapshot.
func (r *OrderRepository) Create(ctx context.Context, snap *checkout.Snapshot) error {
	products, err := json.Marshal(snap.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order products: %w", err)
	}
	breakdown, err := json.Marshal(snap.Totals)
	if err != nil {
		return fmt.Errorf("marshaling order totals: %w", err)
	}
	addr, ship, pay, err := marshalMethods(snap)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		snap.OrderID, snap.CustomerID, snap.Currency, products, breakdown, snap.Total,
		addr, ship, pay, string(snap.Status), snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %s: %w", snap.OrderID, err)
	}
	return nil
}

// Get returns a persisted snapshot by order ID.
func (r *OrderRepository) Get(ctx context.Context, orderID uuid.UUID) (*checkout.Snapshot, error) {
	var (
		snap            checkout.Snapshot
		products        []byte
		breakdown       []byte
		addr, ship, pay []byte
		status          string
	)
	err := r.pool.QueryRow(ctx, getOrderSQL, orderID).Scan(
		&snap.OrderID, &snap.CustomerID, &snap.Currency, &products, &breakdown, &snap.Total,
		&addr, &ship, &pay, &status, &snap.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %s: %w", orderID, err)
	}
	snap.Status = checkout.Status(status)

	if err := json.Unmarshal(products, &snap.Lines); err != nil {
		return nil, fmt.Errorf("decoding order products: %w", err)
	}
	if err := json.Unmarshal(breakdown, &snap.Totals); err != nil {
		return nil, fmt.Errorf("decoding order totals: %w", err)
	}
	if err := unmarshalInto(addr, &snap.ShippingAddress); err != nil {
		return nil, fmt.Errorf("decoding shipping address: %w", err)
	}
	if err := unmarshalInto(ship, &snap.ShippingMethod); err != nil {
		return nil, fmt.Errorf("decoding shipping method: %w", err)
	}
	if err := unmarshalInto(pay, &snap.PaymentMethod); err != nil {
		return nil, fmt.Errorf("decoding payment method: %w", err)
	}
	return &snap, nil
}

// UpdateStatus moves an order through its lifecycle. Completion is what
// unlocks vouchers purchased in the order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status checkout.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, orderID, string(status))
	if err != nil {
		return fmt.Errorf("updating order %s status: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func marshalMethods(snap *checkout.Snapshot) (addr, ship, pay []byte, err error) {
	if snap.ShippingAddress != nil {
		if addr, err = json.Marshal(snap.ShippingAddress); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling shipping address: %w", err)
		}
	}
	if snap.ShippingMethod != nil {
		if ship, err = json.Marshal(snap.ShippingMethod); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling shipping method: %w", err)
		}
	}
	if snap.PaymentMethod != nil {
		if pay, err = json.Marshal(snap.PaymentMethod); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling payment method: %w", err)
		}
	}
	return addr, ship, pay, nil
}
