package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Service applies and removes discounts on the ledger. Every apply is
// a replacement of the previous value of its kind, never an
// accumulation; every remove succeeds even when nothing was applied.
type Service struct {
	ledgers  Repository
	coupons  CouponProvider
	vouchers VoucherProvider
	rewards  RewardProvider
	points   PointsSource

	now func() time.Time
}

func NewService(ledgers Repository, coupons CouponProvider, vouchers VoucherProvider, rewards RewardProvider, points PointsSource) *Service {
	return &Service{
		ledgers:  ledgers,
		coupons:  coupons,
		vouchers: vouchers,
		rewards:  rewards,
		points:   points,
		now:      time.Now,
	}
}

// Ledger returns the customer's current ledger.
func (s *Service) Ledger(ctx context.Context, customerID int64) (*Ledger, error) {
	return s.ledgers.Get(ctx, customerID)
}

// ApplyCoupon validates the code and records it, replacing any coupon
// applied before.
func (s *Service) ApplyCoupon(ctx context.Context, customerID int64, code string) error {
	c, err := s.coupons.Coupon(ctx, code)
	if err != nil {
		return errors.Wrap(err, "load coupon")
	}
	if !c.Status {
		return ErrCouponInactive
	}
	return s.ledgers.SetCoupon(ctx, customerID, c.Code)
}

func (s *Service) RemoveCoupon(ctx context.Context, customerID int64) error {
	return s.ledgers.ClearCoupon(ctx, customerID)
}

// ApplyVoucher validates the code and records it, replacing any
// voucher applied before. A voucher bought in another order is usable
// only once that order is complete.
func (s *Service) ApplyVoucher(ctx context.Context, customerID int64, code string) error {
	v, err := s.vouchers.Voucher(ctx, code)
	if err != nil {
		return errors.Wrap(err, "load voucher")
	}
	if !v.Status {
		return ErrVoucherNotFound
	}
	if v.OrderID != uuid.Nil && !v.OrderComplete {
		return ErrVoucherOrderIncomplete
	}
	if !v.Remaining.IsPositive() {
		return ErrVoucherExhausted
	}
	return s.ledgers.SetVoucher(ctx, customerID, v.Code)
}

func (s *Service) RemoveVoucher(ctx context.Context, customerID int64) error {
	return s.ledgers.ClearVoucher(ctx, customerID)
}

// ApplyReward records a point redemption, replacing any previous one.
// The requested amount is capped by both the customer's balance and
// the cart's point-eligible total; exceeding either rejects the whole
// request rather than clamping.
func (s *Service) ApplyReward(ctx context.Context, customerID, customerGroupID, points int64) error {
	if points <= 0 {
		return ErrInsufficientBalance
	}
	balance, err := s.rewards.Balance(ctx, customerID)
	if err != nil {
		return errors.Wrap(err, "point balance")
	}
	if points > balance {
		return ErrInsufficientBalance
	}
	eligible, err := s.points.EligiblePoints(ctx, customerID, customerGroupID)
	if err != nil {
		return errors.Wrap(err, "eligible points")
	}
	if points > eligible {
		return ErrExceedsCartEligiblePoints
	}
	return s.ledgers.SetReward(ctx, customerID, points)
}

func (s *Service) RemoveReward(ctx context.Context, customerID int64) error {
	return s.ledgers.ClearReward(ctx, customerID)
}

// Clear drops the whole ledger, used when checkout completes or the
// session is abandoned.
func (s *Service) Clear(ctx context.Context, customerID int64) error {
	return s.ledgers.Clear(ctx, customerID)
}
