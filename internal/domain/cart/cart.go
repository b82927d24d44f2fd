// Package cart owns a customer's set of cart lines: dedup-on-add keyed by
// product, option signature and subscription plan, quantity updates, and the
// priced listing consumed by totals and checkout.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-checkout/internal/domain/option"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// Sentinel errors for cart operations.
var (
	ErrLineNotFound    = errors.New("cart line not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// InvalidOptionsError carries the per-option validation failures that kept a
// selection from becoming a cart line.
type InvalidOptionsError struct {
	Errors option.Errors
}

func (e *InvalidOptionsError) Error() string {
	return e.Errors.Error()
}

// Line is one stored cart row. Identity is the
// (customer, product, signature, subscription plan) tuple; at most one line
// exists per tuple and re-adding increments quantity.
type Line struct {
	ID                 int64
	CustomerID         int64
	ProductID          int64
	Quantity           int
	Selection          option.Selection
	Signature          string
	SubscriptionPlanID int64
	DateAdded          time.Time
}

// Repository persists cart lines. Add must treat an existing identity tuple
// as an atomic quantity increment so concurrent adds never lose updates.
type Repository interface {
	Add(ctx context.Context, line Line) error
	List(ctx context.Context, customerID int64) ([]Line, error)
	Get(ctx context.Context, customerID, lineID int64) (*Line, error)
	UpdateQuantity(ctx context.Context, customerID, lineID int64, quantity int) error
	Remove(ctx context.Context, customerID, lineID int64) error
	Clear(ctx context.Context, customerID int64) error
	Count(ctx context.Context, customerID int64) (int, error)
}

// Catalog provides the product data cart operations need.
type Catalog interface {
	option.Catalog

	Product(ctx context.Context, id int64) (*pricing.ProductSnapshot, error)
	OptionDefs(ctx context.Context, productID int64) ([]option.Def, error)
	SubscriptionPlan(ctx context.Context, id int64) (*pricing.SubscriptionInfo, error)
}
