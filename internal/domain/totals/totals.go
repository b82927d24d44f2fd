// Package totals folds priced cart lines and the customer's discount
// ledger into an ordered breakdown of named total lines. Contribution
// stages are registered up front; the pipeline itself is a pure fold
// over current state and never mutates the cart or the ledger.
package totals

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// Sort orders of the built-in stages. The grand total always carries
// the maximum so it is emitted last no matter which optional stages
// fired.
const (
	SortSubTotal = 1
	SortTax      = 2
	SortCoupon   = 500
	SortVoucher  = 501
	SortReward   = 502
	SortTotal    = 9999
)

// Line is one row of the total breakdown. Discounts carry negative
// values.
type Line struct {
	Code      string
	Title     string
	Value     decimal.Decimal
	SortOrder int
}

// Params is the per-computation environment.
type Params struct {
	Currency        string
	TaxEnabled      bool
	CustomerGroupID int64
	// PointValue is the monetary worth of one redeemed reward point.
	PointValue decimal.Decimal
	Now        time.Time
}

// State is the mutable fold state passed through the stages. Total is
// the running total; Contribute adjusts it through Add.
type State struct {
	Params Params
	Lines  []pricing.PricedLine
	Ledger discount.Ledger

	Items []Line
	Total decimal.Decimal
}

// Add appends an item and folds its value into the running total.
func (s *State) Add(item Line) {
	s.Items = append(s.Items, item)
	s.Total = s.Total.Add(item.Value)
}

// Emit appends an item without touching the running total.
func (s *State) Emit(item Line) {
	s.Items = append(s.Items, item)
}

// Stage contributes zero or more lines to the breakdown. A stage that
// does not apply contributes nothing and returns nil; a stage whose
// dependency fails returns the error and aborts the whole computation.
type Stage interface {
	Contribute(ctx context.Context, st *State) error
}

// Rate is one tax rate already evaluated against a unit price.
type Rate struct {
	ID     int64
	Name   string
	Amount decimal.Decimal
}

// TaxProvider evaluates the tax rates applicable to a unit price under
// a tax class for a customer group.
type TaxProvider interface {
	Rates(ctx context.Context, price decimal.Decimal, taxClassID, customerGroupID int64) ([]Rate, error)
}
