package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
	"github.com/xenking/storefront-checkout/internal/domain/totals"
)

type mockCart struct {
	lines   []pricing.PricedLine
	cleared bool
}

func (m *mockCart) Priced(context.Context, int64, int64) ([]pricing.PricedLine, error) {
	return m.lines, nil
}

func (m *mockCart) Clear(context.Context, int64) error {
	m.cleared = true
	return nil
}

type mockLedger struct {
	ledger  discount.Ledger
	cleared bool
}

func (m *mockLedger) Ledger(context.Context, int64) (*discount.Ledger, error) {
	l := m.ledger
	return &l, nil
}

func (m *mockLedger) Clear(context.Context, int64) error {
	m.cleared = true
	return nil
}

type memState struct {
	byCustomer map[int64]*State
}

func newMemState() *memState { return &memState{byCustomer: make(map[int64]*State)} }

func (m *memState) get(id int64) *State {
	st, ok := m.byCustomer[id]
	if !ok {
		st = &State{CustomerID: id}
		m.byCustomer[id] = st
	}
	return st
}

func (m *memState) Get(_ context.Context, customerID int64) (*State, error) {
	return m.get(customerID), nil
}

func (m *memState) SetShippingAddress(_ context.Context, customerID int64, addr Address) error {
	m.get(customerID).ShippingAddress = &addr
	return nil
}

func (m *memState) SetShippingMethod(_ context.Context, customerID int64, method Method) error {
	m.get(customerID).ShippingMethod = &method
	return nil
}

func (m *memState) SetPaymentMethod(_ context.Context, customerID int64, method Method) error {
	m.get(customerID).PaymentMethod = &method
	return nil
}

func (m *memState) Clear(_ context.Context, customerID int64) error {
	delete(m.byCustomer, customerID)
	return nil
}

type mockOrders struct {
	created []*Snapshot
	err     error
}

func (m *mockOrders) Create(_ context.Context, snap *Snapshot) error {
	if m.err != nil {
		return m.err
	}
	m.created = append(m.created, snap)
	return nil
}

func (m *mockOrders) Get(_ context.Context, orderID uuid.UUID) (*Snapshot, error) {
	for _, s := range m.created {
		if s.OrderID == orderID {
			return s, nil
		}
	}
	return nil, errors.New("order not found")
}

func (m *mockOrders) UpdateStatus(_ context.Context, orderID uuid.UUID, status Status) error {
	for _, s := range m.created {
		if s.OrderID == orderID {
			s.Status = status
			return nil
		}
	}
	return errors.New("order not found")
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func shippableLines() []pricing.PricedLine {
	return []pricing.PricedLine{
		{LineID: 1, Quantity: 2, UnitPrice: dec("110.00"), LineTotal: dec("220.00"), Shipping: true},
	}
}

func digitalLines() []pricing.PricedLine {
	return []pricing.PricedLine{
		{LineID: 1, Quantity: 1, UnitPrice: dec("9.99"), LineTotal: dec("9.99")},
	}
}

func newTestService(lines []pricing.PricedLine) (*Service, *mockCart, *mockLedger, *memState, *mockOrders) {
	cart := &mockCart{lines: lines}
	ledger := &mockLedger{}
	state := newMemState()
	orders := &mockOrders{}
	pipeline := totals.NewPipeline(totals.SubTotalStage{}, totals.GrandTotalStage{})
	svc := NewService(cart, ledger, pipeline, state, orders, Settings{
		Currency:   "USD",
		PointValue: dec("0.01"),
	})
	return svc, cart, ledger, state, orders
}

func TestReview_ComputesTotals(t *testing.T) {
	svc, _, _, _, _ := newTestService(shippableLines())

	rev, err := svc.Review(context.Background(), 7, 1)
	require.NoError(t, err)

	require.Len(t, rev.Totals, 2)
	assert.True(t, dec("220.00").Equal(rev.Total))
}

func TestConfirm_EmptyCart(t *testing.T) {
	svc, _, _, _, orders := newTestService(nil)

	_, err := svc.Confirm(context.Background(), 7, 1)
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, orders.created)
}

func TestConfirm_ShippingAddressRequired(t *testing.T) {
	svc, _, _, _, _ := newTestService(shippableLines())

	_, err := svc.Confirm(context.Background(), 7, 1)
	require.ErrorIs(t, err, ErrMissingShippingAddress)
}

func TestConfirm_ShippingMethodRequired(t *testing.T) {
	svc, _, _, _, _ := newTestService(shippableLines())
	ctx := context.Background()

	require.NoError(t, svc.SetShippingAddress(ctx, 7, Address{Address1: "1 Main St", City: "Springfield", Country: "US"}))

	_, err := svc.Confirm(ctx, 7, 1)
	require.ErrorIs(t, err, ErrMissingShippingMethod)
}

func TestConfirm_DigitalCartSkipsShipping(t *testing.T) {
	svc, cart, _, _, orders := newTestService(digitalLines())

	snap, err := svc.Confirm(context.Background(), 7, 1)
	require.NoError(t, err)

	assert.Nil(t, snap.ShippingAddress)
	assert.Len(t, orders.created, 1)
	assert.True(t, cart.cleared)
}

func TestConfirm_PersistsThenClears(t *testing.T) {
	svc, cart, ledger, state, orders := newTestService(shippableLines())
	ctx := context.Background()

	require.NoError(t, svc.SetShippingAddress(ctx, 7, Address{Address1: "1 Main St"}))
	require.NoError(t, svc.SetShippingMethod(ctx, 7, Method{Code: "flat", Title: "Flat Rate"}))
	require.NoError(t, svc.SetPaymentMethod(ctx, 7, Method{Code: "cod", Title: "Cash on Delivery"}))

	snap, err := svc.Confirm(ctx, 7, 1)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, snap.Status)
	assert.Equal(t, "USD", snap.Currency)
	assert.True(t, dec("220.00").Equal(snap.Total))
	assert.NotEqual(t, uuid.Nil, snap.OrderID)
	require.NotNil(t, snap.ShippingMethod)
	assert.Equal(t, "flat", snap.ShippingMethod.Code)

	assert.Len(t, orders.created, 1)
	assert.True(t, cart.cleared)
	assert.True(t, ledger.cleared)
	assert.Empty(t, state.byCustomer)
}

func TestConfirm_PersistFailureKeepsCart(t *testing.T) {
	svc, cart, ledger, _, orders := newTestService(digitalLines())
	orders.err = errors.New("db down")

	_, err := svc.Confirm(context.Background(), 7, 1)
	require.Error(t, err)

	assert.False(t, cart.cleared, "cart must survive a persistence failure")
	assert.False(t, ledger.cleared)
}

func TestBuildSnapshot_VoucherOnlyOrder(t *testing.T) {
	items := []totals.Line{
		{Code: "voucher", Title: "Voucher (GIFT50)", Value: dec("-50.00"), SortOrder: totals.SortVoucher},
		{Code: "total", Title: "Total", Value: dec("-50.00"), SortOrder: totals.SortTotal},
	}

	snap, err := BuildSnapshot(7, nil, items, dec("-50.00"), nil, "USD", time.Now())
	require.NoError(t, err)
	assert.Empty(t, snap.Lines)
}

func TestBuildSnapshot_Immutable(t *testing.T) {
	lines := digitalLines()
	snap, err := BuildSnapshot(7, lines, []totals.Line{{Code: "total", Value: dec("9.99"), SortOrder: totals.SortTotal}}, dec("9.99"), nil, "USD", time.Now())
	require.NoError(t, err)

	// Later catalog price changes must not leak into the snapshot value.
	assert.True(t, dec("9.99").Equal(snap.Total))
	assert.Equal(t, StatusPending, snap.Status)
}
