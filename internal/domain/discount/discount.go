// Package discount holds the per-customer discount ledger: at most one
// coupon, one voucher and one reward-point redemption at a time, each
// validated against its own eligibility rule before the totals pipeline
// consumes it.
package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrCouponNotFound            = errors.New("coupon not found")
	ErrCouponInactive            = errors.New("coupon inactive")
	ErrVoucherNotFound           = errors.New("voucher not found")
	ErrVoucherExhausted          = errors.New("voucher balance exhausted")
	ErrVoucherOrderIncomplete    = errors.New("voucher order not completed")
	ErrInsufficientBalance       = errors.New("insufficient point balance")
	ErrExceedsCartEligiblePoints = errors.New("redemption exceeds cart eligible points")
)

// Ledger is one customer's active discounts. Zero values mean
// "nothing of that kind applied".
type Ledger struct {
	CustomerID   int64
	CouponCode   string
	VoucherCode  string
	RewardPoints int64
}

// Repository persists ledgers keyed by customer. Each setter replaces
// the previous value of its kind; clears are no-ops when nothing is set.
type Repository interface {
	Get(ctx context.Context, customerID int64) (*Ledger, error)
	SetCoupon(ctx context.Context, customerID int64, code string) error
	ClearCoupon(ctx context.Context, customerID int64) error
	SetVoucher(ctx context.Context, customerID int64, code string) error
	ClearVoucher(ctx context.Context, customerID int64) error
	SetReward(ctx context.Context, customerID int64, points int64) error
	ClearReward(ctx context.Context, customerID int64) error
	Clear(ctx context.Context, customerID int64) error
}

// CouponType selects the discount arithmetic.
type CouponType string

const (
	CouponPercentage CouponType = "P"
	CouponFixed      CouponType = "F"
)

// Coupon is a promotion code loaded from the catalog.
type Coupon struct {
	Code      string
	Name      string
	Type      CouponType
	Discount  decimal.Decimal
	Status    bool
	DateStart time.Time
	DateEnd   time.Time
	UsesTotal int64
	Uses      int64
}

// Active reports whether the coupon may still contribute a discount:
// enabled, inside its date window and not exhausted. Zero dates leave
// that side of the window open.
func (c Coupon) Active(now time.Time) bool {
	if !c.Status {
		return false
	}
	if !c.DateStart.IsZero() && now.Before(c.DateStart) {
		return false
	}
	if !c.DateEnd.IsZero() && now.After(c.DateEnd) {
		return false
	}
	if c.UsesTotal > 0 && c.Uses >= c.UsesTotal {
		return false
	}
	return true
}

// CouponProvider loads coupons by code.
type CouponProvider interface {
	// Coupon returns ErrCouponNotFound when the code does not resolve.
	Coupon(ctx context.Context, code string) (*Coupon, error)
}

// Voucher is a gift voucher. Remaining is the original amount minus
// redemption history, computed by the provider. OrderID links a voucher
// bought as part of an order; uuid.Nil means standalone.
type Voucher struct {
	ID            int64
	Code          string
	Remaining     decimal.Decimal
	Status        bool
	OrderID       uuid.UUID
	OrderComplete bool
}

// VoucherProvider loads vouchers by code.
type VoucherProvider interface {
	// Voucher returns ErrVoucherNotFound when the code does not resolve.
	Voucher(ctx context.Context, code string) (*Voucher, error)
}

// RewardProvider reads a customer's available reward-point balance.
type RewardProvider interface {
	Balance(ctx context.Context, customerID int64) (int64, error)
}

// PointsSource reports how many reward points the customer's current
// cart is eligible to redeem against.
type PointsSource interface {
	EligiblePoints(ctx context.Context, customerID, customerGroupID int64) (int64, error)
}
