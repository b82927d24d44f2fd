package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
	"github.com/xenking/storefront-checkout/internal/domain/totals"
)

// CartSource is the priced view of a customer's cart.
type CartSource interface {
	Priced(ctx context.Context, customerID, customerGroupID int64) ([]pricing.PricedLine, error)
	Clear(ctx context.Context, customerID int64) error
}

// LedgerSource reads and clears the customer's discount ledger.
type LedgerSource interface {
	Ledger(ctx context.Context, customerID int64) (*discount.Ledger, error)
	Clear(ctx context.Context, customerID int64) error
}

// Settings are the store-level knobs a totals computation needs.
type Settings struct {
	Currency   string
	TaxEnabled bool
	PointValue decimal.Decimal
}

// Service drives checkout review and confirmation.
type Service struct {
	cart     CartSource
	discount LedgerSource
	pipeline *totals.Pipeline
	state    StateRepository
	orders   OrderRepository
	settings Settings

	now func() time.Time
}

func NewService(cart CartSource, ledger LedgerSource, pipeline *totals.Pipeline, state StateRepository, orders OrderRepository, settings Settings) *Service {
	return &Service{
		cart:     cart,
		discount: ledger,
		pipeline: pipeline,
		state:    state,
		orders:   orders,
		settings: settings,
		now:      time.Now,
	}
}

// Review is the read-only checkout summary.
type Review struct {
	Lines  []pricing.PricedLine
	Totals []totals.Line
	Total  decimal.Decimal
}

func (s *Service) params(customerGroupID int64) totals.Params {
	return totals.Params{
		Currency:        s.settings.Currency,
		TaxEnabled:      s.settings.TaxEnabled,
		CustomerGroupID: customerGroupID,
		PointValue:      s.settings.PointValue,
		Now:             s.now(),
	}
}

func (s *Service) compute(ctx context.Context, customerID, customerGroupID int64) ([]pricing.PricedLine, []totals.Line, decimal.Decimal, error) {
	lines, err := s.cart.Priced(ctx, customerID, customerGroupID)
	if err != nil {
		return nil, nil, decimal.Zero, errors.Wrap(err, "price cart")
	}
	ledger, err := s.discount.Ledger(ctx, customerID)
	if err != nil {
		return nil, nil, decimal.Zero, errors.Wrap(err, "load ledger")
	}
	items, total, err := s.pipeline.Compute(ctx, lines, *ledger, s.params(customerGroupID))
	if err != nil {
		return nil, nil, decimal.Zero, errors.Wrap(err, "compute totals")
	}
	return lines, items, total, nil
}

// Review prices the cart and computes totals without changing state.
func (s *Service) Review(ctx context.Context, customerID, customerGroupID int64) (*Review, error) {
	lines, items, total, err := s.compute(ctx, customerID, customerGroupID)
	if err != nil {
		return nil, err
	}
	return &Review{Lines: lines, Totals: items, Total: total}, nil
}

// SetShippingAddress stores the shipping destination.
func (s *Service) SetShippingAddress(ctx context.Context, customerID int64, addr Address) error {
	return s.state.SetShippingAddress(ctx, customerID, addr)
}

// SetShippingMethod stores the selected shipping method.
func (s *Service) SetShippingMethod(ctx context.Context, customerID int64, m Method) error {
	return s.state.SetShippingMethod(ctx, customerID, m)
}

// SetPaymentMethod stores the selected payment method.
func (s *Service) SetPaymentMethod(ctx context.Context, customerID int64, m Method) error {
	return s.state.SetPaymentMethod(ctx, customerID, m)
}

// Confirm builds and persists the order snapshot. The cart, ledger and
// checkout state are cleared only after the order row is written, so a
// persistence failure loses nothing.
func (s *Service) Confirm(ctx context.Context, customerID, customerGroupID int64) (*Snapshot, error) {
	lines, items, total, err := s.compute(ctx, customerID, customerGroupID)
	if err != nil {
		return nil, err
	}
	st, err := s.state.Get(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "load checkout state")
	}

	snap, err := BuildSnapshot(customerID, lines, items, total, st, s.settings.Currency, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, snap); err != nil {
		return nil, errors.Wrap(err, "persist order")
	}

	if err := s.cart.Clear(ctx, customerID); err != nil {
		return nil, errors.Wrap(err, "clear cart")
	}
	if err := s.discount.Clear(ctx, customerID); err != nil {
		return nil, errors.Wrap(err, "clear ledger")
	}
	if err := s.state.Clear(ctx, customerID); err != nil {
		return nil, errors.Wrap(err, "clear checkout state")
	}
	return snap, nil
}
