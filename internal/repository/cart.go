package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/option"
)

const (
	// The unique index on the identity tuple makes re-adding the same
	// configuration an atomic increment, so concurrent adds never lose
	// updates.
	addCartLineSQL = `INSERT INTO cart_line
		(customer_id, product_id, quantity, selection, option_signature, subscription_plan_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id, product_id, option_signature, subscription_plan_id)
		DO UPDATE SET quantity = cart_line.quantity + EXCLUDED.quantity`

	listCartLinesSQL = `SELECT id, customer_id, product_id, quantity, selection,
		option_signature, subscription_plan_id, date_added
		FROM cart_line WHERE customer_id = $1 ORDER BY id`

	getCartLineSQL = `SELECT id, customer_id, product_id, quantity, selection,
		option_signature, subscription_plan_id, date_added
		FROM cart_line WHERE customer_id = $1 AND id = $2`

	updateCartQuantitySQL = `UPDATE cart_line SET quantity = $3
		WHERE customer_id = $1 AND id = $2`

	removeCartLineSQL = `DELETE FROM cart_line WHERE customer_id = $1 AND id = $2`

	clearCartSQL = `DELETE FROM cart_line WHERE customer_id = $1`

	countCartSQL = `SELECT COALESCE(SUM(quantity), 0) FROM cart_line WHERE customer_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL. The
// raw selection is stored as JSONB next to its signature so lines can
// be re-resolved against the current catalog on every read.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Add inserts the line or increments the quantity of the existing line
// with the same identity tuple.
func (r *CartRepository) Add(ctx context.Context, line cart.Line) error {
	_, err := r.pool.Exec(ctx, addCartLineSQL,
		line.CustomerID, line.ProductID, line.Quantity,
		option.EncodeSelection(line.Selection), line.Signature, line.SubscriptionPlanID,
	)
	if err != nil {
		return fmt.Errorf("adding cart line for customer %d: %w", line.CustomerID, err)
	}
	return nil
}

// List returns the customer's lines in insertion order.
func (r *CartRepository) List(ctx context.Context, customerID int64) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart for customer %d: %w", customerID, err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// Get returns one of the customer's lines by ID.
func (r *CartRepository) Get(ctx context.Context, customerID, lineID int64) (*cart.Line, error) {
	rows, err := r.pool.Query(ctx, getCartLineSQL, customerID, lineID)
	if err != nil {
		return nil, fmt.Errorf("getting cart line %d: %w", lineID, err)
	}

	l, err := pgx.CollectExactlyOneRow(rows, scanCartLine)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrLineNotFound
		}
		return nil, fmt.Errorf("getting cart line %d: %w", lineID, err)
	}
	return &l, nil
}

// UpdateQuantity sets the line's quantity. Returns cart.ErrLineNotFound
// when the line does not belong to the customer.
func (r *CartRepository) UpdateQuantity(ctx context.Context, customerID, lineID int64, quantity int) error {
	tag, err := r.pool.Exec(ctx, updateCartQuantitySQL, customerID, lineID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Remove deletes the line. Removing an absent line is a no-op.
func (r *CartRepository) Remove(ctx context.Context, customerID, lineID int64) error {
	if _, err := r.pool.Exec(ctx, removeCartLineSQL, customerID, lineID); err != nil {
		return fmt.Errorf("removing cart line %d: %w", lineID, err)
	}
	return nil
}

// Clear deletes all of the customer's lines.
func (r *CartRepository) Clear(ctx context.Context, customerID int64) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, customerID); err != nil {
		return fmt.Errorf("clearing cart for customer %d: %w", customerID, err)
	}
	return nil
}

// Count returns the total quantity across the customer's lines.
func (r *CartRepository) Count(ctx context.Context, customerID int64) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countCartSQL, customerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cart for customer %d: %w", customerID, err)
	}
	return n, nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var (
		l      cart.Line
		rawSel []byte
	)
	err := row.Scan(
		&l.ID, &l.CustomerID, &l.ProductID, &l.Quantity, &rawSel,
		&l.Signature, &l.SubscriptionPlanID, &l.DateAdded,
	)
	if err != nil {
		return l, err
	}
	l.Selection, err = option.DecodeSelection(rawSel)
	if err != nil {
		return l, fmt.Errorf("decoding selection for line %d: %w", l.ID, err)
	}
	return l, nil
}
