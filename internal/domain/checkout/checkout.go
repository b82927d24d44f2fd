// Package checkout assembles immutable order snapshots from the priced
// cart, the totals breakdown and the customer's checkout selections.
package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/pricing"
	"github.com/xenking/storefront-checkout/internal/domain/totals"
)

var (
	ErrEmptyCart              = errors.New("cart is empty")
	ErrMissingShippingAddress = errors.New("shipping address not set")
	ErrMissingShippingMethod  = errors.New("shipping method not selected")
)

// Address is a shipping destination.
type Address struct {
	FirstName string
	LastName  string
	Company   string
	Address1  string
	Address2  string
	City      string
	Postcode  string
	Zone      string
	Country   string
}

// Method is a selected shipping or payment method.
type Method struct {
	Code  string
	Title string
}

// State is the customer's checkout selections, persisted between
// requests so a mobile client can set them one screen at a time.
type State struct {
	CustomerID      int64
	ShippingAddress *Address
	ShippingMethod  *Method
	PaymentMethod   *Method
}

// StateRepository persists checkout selections per customer.
type StateRepository interface {
	Get(ctx context.Context, customerID int64) (*State, error)
	SetShippingAddress(ctx context.Context, customerID int64, addr Address) error
	SetShippingMethod(ctx context.Context, customerID int64, m Method) error
	SetPaymentMethod(ctx context.Context, customerID int64, m Method) error
	Clear(ctx context.Context, customerID int64) error
}

// Status of a persisted order.
type Status string

const (
	StatusPending  Status = "pending"
	StatusComplete Status = "complete"
	StatusCanceled Status = "canceled"
)

// Snapshot is the immutable record handed to order persistence. It
// captures prices and totals as computed at confirmation time; later
// catalog changes never affect it.
type Snapshot struct {
	OrderID         uuid.UUID
	CustomerID      int64
	Currency        string
	Lines           []pricing.PricedLine
	Totals          []totals.Line
	Total           decimal.Decimal
	ShippingAddress *Address
	ShippingMethod  *Method
	PaymentMethod   *Method
	Status          Status
	CreatedAt       time.Time
}

// OrderRepository persists confirmed snapshots.
type OrderRepository interface {
	Create(ctx context.Context, snap *Snapshot) error
	Get(ctx context.Context, orderID uuid.UUID) (*Snapshot, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status Status) error
}

// BuildSnapshot validates checkout state against the priced cart and
// produces a snapshot. It performs no side effects: clearing the cart
// and ledger after persistence is the caller's job.
func BuildSnapshot(customerID int64, lines []pricing.PricedLine, items []totals.Line, total decimal.Decimal, st *State, currency string, now time.Time) (*Snapshot, error) {
	if len(lines) == 0 && !voucherOnly(items) {
		return nil, ErrEmptyCart
	}

	if shippingRequired(lines) {
		if st == nil || st.ShippingAddress == nil {
			return nil, ErrMissingShippingAddress
		}
		if st.ShippingMethod == nil {
			return nil, ErrMissingShippingMethod
		}
	}

	snap := &Snapshot{
		OrderID:    uuid.New(),
		CustomerID: customerID,
		Currency:   currency,
		Lines:      lines,
		Totals:     items,
		Total:      total,
		Status:     StatusPending,
		CreatedAt:  now,
	}
	if st != nil {
		snap.ShippingAddress = st.ShippingAddress
		snap.ShippingMethod = st.ShippingMethod
		snap.PaymentMethod = st.PaymentMethod
	}
	return snap, nil
}

func shippingRequired(lines []pricing.PricedLine) bool {
	for _, l := range lines {
		if l.Shipping {
			return true
		}
	}
	return false
}

// voucherOnly reports whether the breakdown carries a voucher line, the
// one case where an order with no cart lines is placeable.
func voucherOnly(items []totals.Line) bool {
	for _, it := range items {
		if it.Code == "voucher" {
			return true
		}
	}
	return false
}
