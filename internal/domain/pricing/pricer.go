package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront-checkout/internal/domain/option"
)

// BasePrice resolves the effective unit price before option modifiers: the
// list price, unless a special whose window contains now overrides it.
// Candidates arrive ordered by (priority asc, price asc); the first active
// one wins, which also settles exact ties deterministically.
func BasePrice(listPrice decimal.Decimal, specials []Special, now time.Time) decimal.Decimal {
	for _, s := range specials {
		if s.Active(now) {
			return s.Price
		}
	}
	return listPrice
}

// Price folds a product snapshot, resolved options and a quantity into a
// PricedLine. Options are folded in the order they were resolved (option id
// ascending), each modifier applied to its own accumulator. The line total
// is exactly unit price times quantity; no independent rounding of the two.
func Price(lineID int64, quantity int, p ProductSnapshot, resolved []option.Resolved, specials []Special, now time.Time) PricedLine {
	base := BasePrice(p.Price, specials, now)

	price := base
	weight := p.Weight
	points := p.Points

	for _, r := range resolved {
		if r.Modifier == nil {
			continue
		}
		m := r.Modifier
		price = m.PricePrefix.Apply(price, m.Price)
		weight = m.WeightPrefix.Apply(weight, m.Weight)
		points = m.PointsPrefix.ApplyInt(points, m.Points)
	}

	minimum := p.Minimum
	if minimum < 1 {
		minimum = 1
	}

	return PricedLine{
		LineID:    lineID,
		ProductID: p.ID,
		Name:      p.Name,
		Model:     p.Model,
		Quantity:  quantity,
		Options:   resolved,

		BasePrice:  base,
		UnitPrice:  price,
		UnitWeight: weight,
		UnitPoints: points,
		LineTotal:  price.Mul(decimal.NewFromInt(int64(quantity))),

		TaxClassID:    p.TaxClassID,
		WeightClassID: p.WeightClassID,

		StockOK: p.Stock >= quantity,
		Minimum: minimum,

		Shipping: p.Shipping,
		Subtract: p.Subtract,
	}
}
