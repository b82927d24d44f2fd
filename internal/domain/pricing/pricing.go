// Package pricing turns stored cart lines into priced line items: special
// price resolution, option modifier folding, and per-line totals.
package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/option"
)

// Sentinel errors for catalog lookups.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrPlanNotFound    = errors.New("subscription plan not found")
)

// ProductSnapshot is the catalog state a line is priced against.
type ProductSnapshot struct {
	ID            int64
	Name          string
	Model         string
	Price         decimal.Decimal
	Weight        decimal.Decimal
	WeightClassID int64
	TaxClassID    int64
	Points        int64
	Minimum       int
	Stock         int
	Shipping      bool
	Subtract      bool
}

// Special is a time-windowed, customer-group-scoped price override. A zero
// time on either bound means the window is open on that side.
type Special struct {
	Price     decimal.Decimal
	Priority  int
	DateStart time.Time
	DateEnd   time.Time
}

// Active reports whether the special's window contains now.
func (s Special) Active(now time.Time) bool {
	if !s.DateStart.IsZero() && !now.After(s.DateStart) {
		return false
	}
	if !s.DateEnd.IsZero() && !now.Before(s.DateEnd) {
		return false
	}
	return true
}

// SpecialProvider returns the special price candidates for a product and
// customer group, ordered by (priority asc, price asc). The pricer selects
// the first candidate whose window is active; ties keep store order.
type SpecialProvider interface {
	Specials(ctx context.Context, productID, customerGroupID int64) ([]Special, error)
}

// SubscriptionInfo is display data for a line's subscription plan.
type SubscriptionInfo struct {
	PlanID    int64
	Name      string
	Duration  int
	Cycle     string
	Frequency string
}

// PricedLine is the derived, never-persisted pricing of one cart line.
type PricedLine struct {
	LineID             int64
	ProductID          int64
	Name               string
	Model              string
	Quantity           int
	Options            []option.Resolved
	Subscription       *SubscriptionInfo
	SubscriptionPlanID int64

	BasePrice  decimal.Decimal
	UnitPrice  decimal.Decimal
	UnitWeight decimal.Decimal
	UnitPoints int64
	LineTotal  decimal.Decimal

	TaxClassID    int64
	WeightClassID int64

	// Advisory fields for client display; they never block pricing.
	StockOK bool
	Minimum int

	Shipping bool
	Subtract bool
}
