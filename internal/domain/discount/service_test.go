package discount

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memLedgers struct {
	byCustomer map[int64]*Ledger
}

func newMemLedgers() *memLedgers {
	return &memLedgers{byCustomer: make(map[int64]*Ledger)}
}

func (m *memLedgers) get(id int64) *Ledger {
	l, ok := m.byCustomer[id]
	if !ok {
		l = &Ledger{CustomerID: id}
		m.byCustomer[id] = l
	}
	return l
}

func (m *memLedgers) Get(_ context.Context, customerID int64) (*Ledger, error) {
	return m.get(customerID), nil
}

func (m *memLedgers) SetCoupon(_ context.Context, customerID int64, code string) error {
	m.get(customerID).CouponCode = code
	return nil
}

func (m *memLedgers) ClearCoupon(_ context.Context, customerID int64) error {
	m.get(customerID).CouponCode = ""
	return nil
}

func (m *memLedgers) SetVoucher(_ context.Context, customerID int64, code string) error {
	m.get(customerID).VoucherCode = code
	return nil
}

func (m *memLedgers) ClearVoucher(_ context.Context, customerID int64) error {
	m.get(customerID).VoucherCode = ""
	return nil
}

func (m *memLedgers) SetReward(_ context.Context, customerID int64, points int64) error {
	m.get(customerID).RewardPoints = points
	return nil
}

func (m *memLedgers) ClearReward(_ context.Context, customerID int64) error {
	m.get(customerID).RewardPoints = 0
	return nil
}

func (m *memLedgers) Clear(_ context.Context, customerID int64) error {
	delete(m.byCustomer, customerID)
	return nil
}

type mockCoupons struct {
	byCode map[string]Coupon
}

func (m *mockCoupons) Coupon(_ context.Context, code string) (*Coupon, error) {
	c, ok := m.byCode[code]
	if !ok {
		return nil, ErrCouponNotFound
	}
	return &c, nil
}

type mockVouchers struct {
	byCode map[string]Voucher
}

func (m *mockVouchers) Voucher(_ context.Context, code string) (*Voucher, error) {
	v, ok := m.byCode[code]
	if !ok {
		return nil, ErrVoucherNotFound
	}
	return &v, nil
}

type mockRewards struct {
	balance int64
}

func (m *mockRewards) Balance(context.Context, int64) (int64, error) {
	return m.balance, nil
}

type mockPoints struct {
	eligible int64
}

func (m *mockPoints) EligiblePoints(context.Context, int64, int64) (int64, error) {
	return m.eligible, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", s)
	require.NoError(t, err)
	return ts
}

func newTestService() (*Service, *memLedgers, *mockCoupons, *mockVouchers, *mockRewards, *mockPoints) {
	ledgers := newMemLedgers()
	coupons := &mockCoupons{byCode: map[string]Coupon{
		"SAVE15":  {Code: "SAVE15", Type: CouponFixed, Discount: dec("15.00"), Status: true},
		"TEN":     {Code: "TEN", Type: CouponPercentage, Discount: dec("10"), Status: true},
		"RETIRED": {Code: "RETIRED", Type: CouponFixed, Discount: dec("5.00"), Status: false},
	}}
	vouchers := &mockVouchers{byCode: map[string]Voucher{
		"GIFT50":  {ID: 1, Code: "GIFT50", Remaining: dec("50.00"), Status: true},
		"SPENT":   {ID: 2, Code: "SPENT", Remaining: dec("0.00"), Status: true},
		"PENDING": {ID: 3, Code: "PENDING", Remaining: dec("25.00"), Status: true, OrderID: uuid.New()},
	}}
	rewards := &mockRewards{balance: 400}
	points := &mockPoints{eligible: 300}
	return NewService(ledgers, coupons, vouchers, rewards, points), ledgers, coupons, vouchers, rewards, points
}

func TestApplyCoupon_ReplacesPrevious(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.ApplyCoupon(ctx, 7, "SAVE15"))
	require.NoError(t, svc.ApplyCoupon(ctx, 7, "TEN"))

	assert.Equal(t, "TEN", ledgers.get(7).CouponCode)
}

func TestApplyCoupon_NotFound(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()

	err := svc.ApplyCoupon(context.Background(), 7, "NOPE")
	require.ErrorIs(t, err, ErrCouponNotFound)
	assert.Empty(t, ledgers.get(7).CouponCode)
}

func TestApplyCoupon_Inactive(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()

	err := svc.ApplyCoupon(context.Background(), 7, "RETIRED")
	require.ErrorIs(t, err, ErrCouponInactive)
	assert.Empty(t, ledgers.get(7).CouponCode)
}

func TestRemoveCoupon_NoopWhenAbsent(t *testing.T) {
	svc, _, _, _, _, _ := newTestService()
	require.NoError(t, svc.RemoveCoupon(context.Background(), 7))
}

func TestApplyVoucher_Success(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()

	require.NoError(t, svc.ApplyVoucher(context.Background(), 7, "GIFT50"))
	assert.Equal(t, "GIFT50", ledgers.get(7).VoucherCode)
}

func TestApplyVoucher_Exhausted(t *testing.T) {
	svc, _, _, _, _, _ := newTestService()

	err := svc.ApplyVoucher(context.Background(), 7, "SPENT")
	require.ErrorIs(t, err, ErrVoucherExhausted)
}

func TestApplyVoucher_OrderIncomplete(t *testing.T) {
	svc, ledgers, _, vouchers, _, _ := newTestService()
	ctx := context.Background()

	err := svc.ApplyVoucher(ctx, 7, "PENDING")
	require.ErrorIs(t, err, ErrVoucherOrderIncomplete)

	// Completing the purchase order makes the voucher usable.
	v := vouchers.byCode["PENDING"]
	v.OrderComplete = true
	vouchers.byCode["PENDING"] = v

	require.NoError(t, svc.ApplyVoucher(ctx, 7, "PENDING"))
	assert.Equal(t, "PENDING", ledgers.get(7).VoucherCode)
}

func TestApplyReward_WithinLimits(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()

	require.NoError(t, svc.ApplyReward(context.Background(), 7, 1, 250))
	assert.Equal(t, int64(250), ledgers.get(7).RewardPoints)
}

func TestApplyReward_ExceedsBalance(t *testing.T) {
	svc, ledgers, _, _, rewards, _ := newTestService()
	rewards.balance = 100

	err := svc.ApplyReward(context.Background(), 7, 1, 250)
	require.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Zero(t, ledgers.get(7).RewardPoints)
}

func TestApplyReward_ExceedsCartEligible(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()

	// Balance 400, cart eligible only 300.
	err := svc.ApplyReward(context.Background(), 7, 1, 350)
	require.ErrorIs(t, err, ErrExceedsCartEligiblePoints)
	assert.Zero(t, ledgers.get(7).RewardPoints)
}

func TestApplyReward_ReplacesNotAccumulates(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.ApplyReward(ctx, 7, 1, 200))
	require.NoError(t, svc.ApplyReward(ctx, 7, 1, 100))

	assert.Equal(t, int64(100), ledgers.get(7).RewardPoints)
}

func TestClear_DropsWholeLedger(t *testing.T) {
	svc, ledgers, _, _, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.ApplyCoupon(ctx, 7, "SAVE15"))
	require.NoError(t, svc.ApplyVoucher(ctx, 7, "GIFT50"))
	require.NoError(t, svc.Clear(ctx, 7))

	l := ledgers.get(7)
	assert.Empty(t, l.CouponCode)
	assert.Empty(t, l.VoucherCode)
	assert.Zero(t, l.RewardPoints)
}

func TestCouponActive_Windows(t *testing.T) {
	now := mustTime(t, "2026-06-15 12:00:00")
	tests := []struct {
		name   string
		coupon Coupon
		want   bool
	}{
		{"open ended", Coupon{Status: true}, true},
		{"inside window", Coupon{Status: true, DateStart: mustTime(t, "2026-06-01 00:00:00"), DateEnd: mustTime(t, "2026-06-30 00:00:00")}, true},
		{"not started", Coupon{Status: true, DateStart: mustTime(t, "2026-07-01 00:00:00")}, false},
		{"expired", Coupon{Status: true, DateEnd: mustTime(t, "2026-06-01 00:00:00")}, false},
		{"disabled", Coupon{Status: false}, false},
		{"exhausted", Coupon{Status: true, UsesTotal: 10, Uses: 10}, false},
		{"uses remaining", Coupon{Status: true, UsesTotal: 10, Uses: 9}, true},
		{"unlimited uses", Coupon{Status: true, UsesTotal: 0, Uses: 100}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coupon.Active(now))
		})
	}
}
