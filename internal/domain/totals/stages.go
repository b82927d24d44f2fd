package totals

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
)

// SubTotalStage sums the line totals.
type SubTotalStage struct{}

func (SubTotalStage) Contribute(_ context.Context, st *State) error {
	sum := decimal.Zero
	for _, l := range st.Lines {
		sum = sum.Add(l.LineTotal)
	}
	st.Add(Line{
		Code:      "sub_total",
		Title:     "Sub-Total",
		Value:     sum,
		SortOrder: SortSubTotal,
	})
	return nil
}

// TaxStage aggregates per-rate tax across all lines. A rate applied by
// several lines appears once, with the amounts summed. An unreachable
// provider fails the whole computation rather than yielding totals
// without tax.
type TaxStage struct {
	Taxes TaxProvider
}

func (s TaxStage) Contribute(ctx context.Context, st *State) error {
	if !st.Params.TaxEnabled {
		return nil
	}

	amounts := make(map[int64]decimal.Decimal)
	names := make(map[int64]string)
	for _, l := range st.Lines {
		if l.TaxClassID == 0 {
			continue
		}
		rates, err := s.Taxes.Rates(ctx, l.UnitPrice, l.TaxClassID, st.Params.CustomerGroupID)
		if err != nil {
			return errors.Wrapf(err, "tax rates for line %d", l.LineID)
		}
		qty := decimal.NewFromInt(int64(l.Quantity))
		for _, r := range rates {
			amounts[r.ID] = amounts[r.ID].Add(r.Amount.Mul(qty))
			names[r.ID] = r.Name
		}
	}

	ids := make([]int64, 0, len(amounts))
	for id := range amounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if amounts[id].IsZero() {
			continue
		}
		st.Add(Line{
			Code:      "tax",
			Title:     names[id],
			Value:     amounts[id],
			SortOrder: SortTax,
		})
	}
	return nil
}

// CouponStage subtracts the active coupon's discount. A coupon that
// has gone invalid since it was applied is skipped, not an error.
type CouponStage struct {
	Coupons discount.CouponProvider
}

func (s CouponStage) Contribute(ctx context.Context, st *State) error {
	if st.Ledger.CouponCode == "" {
		return nil
	}
	c, err := s.Coupons.Coupon(ctx, st.Ledger.CouponCode)
	if err != nil {
		if errors.Is(err, discount.ErrCouponNotFound) {
			return nil
		}
		return errors.Wrap(err, "load coupon")
	}
	if !c.Active(st.Params.Now) {
		return nil
	}

	var amount decimal.Decimal
	switch c.Type {
	case discount.CouponPercentage:
		var subTotal decimal.Decimal
		for _, it := range st.Items {
			if it.Code == "sub_total" {
				subTotal = it.Value
				break
			}
		}
		amount = subTotal.Mul(c.Discount).Div(decimal.NewFromInt(100))
	default:
		amount = c.Discount
	}
	if !amount.IsPositive() {
		return nil
	}

	st.Add(Line{
		Code:      "coupon",
		Title:     fmt.Sprintf("Coupon (%s)", c.Code),
		Value:     amount.Neg(),
		SortOrder: SortCoupon,
	})
	return nil
}

// VoucherStage subtracts the active voucher's remaining balance.
type VoucherStage struct {
	Vouchers discount.VoucherProvider
}

func (s VoucherStage) Contribute(ctx context.Context, st *State) error {
	if st.Ledger.VoucherCode == "" {
		return nil
	}
	v, err := s.Vouchers.Voucher(ctx, st.Ledger.VoucherCode)
	if err != nil {
		if errors.Is(err, discount.ErrVoucherNotFound) {
			return nil
		}
		return errors.Wrap(err, "load voucher")
	}
	if !v.Status || !v.Remaining.IsPositive() {
		return nil
	}
	if v.OrderID != uuid.Nil && !v.OrderComplete {
		return nil
	}

	st.Add(Line{
		Code:      "voucher",
		Title:     fmt.Sprintf("Voucher (%s)", v.Code),
		Value:     v.Remaining.Neg(),
		SortOrder: SortVoucher,
	})
	return nil
}

// RewardStage subtracts the redeemed points at the configured point
// value. The ledger validated the redemption at apply time; the stage
// does not re-validate.
type RewardStage struct{}

func (RewardStage) Contribute(_ context.Context, st *State) error {
	if st.Ledger.RewardPoints <= 0 {
		return nil
	}
	value := decimal.NewFromInt(st.Ledger.RewardPoints).Mul(st.Params.PointValue)
	if !value.IsPositive() {
		return nil
	}

	st.Add(Line{
		Code:      "reward",
		Title:     fmt.Sprintf("Reward Points (%d)", st.Ledger.RewardPoints),
		Value:     value.Neg(),
		SortOrder: SortReward,
	})
	return nil
}

// GrandTotalStage emits the running total as the final line. The
// running total is not changed, so the emitted value already reflects
// every stage that fired before it.
type GrandTotalStage struct{}

func (GrandTotalStage) Contribute(_ context.Context, st *State) error {
	st.Emit(Line{
		Code:      "total",
		Title:     "Total",
		Value:     st.Total,
		SortOrder: SortTotal,
	})
	return nil
}
