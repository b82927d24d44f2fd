package totals

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// Pipeline runs registered stages in registration order and emits the
// breakdown sorted by sort order, ties kept in registration order.
type Pipeline struct {
	stages []Stage
}

func NewPipeline(stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages}
}

// Default builds the standard stage set: sub-total, tax, coupon,
// voucher, reward, grand total.
func Default(taxes TaxProvider, coupons discount.CouponProvider, vouchers discount.VoucherProvider) *Pipeline {
	return NewPipeline(
		SubTotalStage{},
		TaxStage{Taxes: taxes},
		CouponStage{Coupons: coupons},
		VoucherStage{Vouchers: vouchers},
		RewardStage{},
		GrandTotalStage{},
	)
}

// Compute folds the priced lines and ledger into a total breakdown.
// It is pure: same inputs yield the same breakdown, and neither the
// lines nor the ledger are mutated. Any stage failure aborts the whole
// computation so a breakdown never silently omits a stage that should
// have fired.
func (p *Pipeline) Compute(ctx context.Context, lines []pricing.PricedLine, ledger discount.Ledger, params Params) ([]Line, decimal.Decimal, error) {
	st := &State{
		Params: params,
		Lines:  lines,
		Ledger: ledger,
	}
	for _, stage := range p.stages {
		if err := stage.Contribute(ctx, st); err != nil {
			return nil, decimal.Zero, errors.Wrap(err, "totals stage")
		}
	}
	sort.SliceStable(st.Items, func(i, j int) bool {
		return st.Items[i].SortOrder < st.Items[j].SortOrder
	})
	return st.Items, st.Total, nil
}
