package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront-checkout/internal/domain/option"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// Service implements cart mutations and the priced listing.
type Service struct {
	lines    Repository
	catalog  Catalog
	specials pricing.SpecialProvider
	now      func() time.Time
}

// NewService creates a cart Service with the required collaborators.
func NewService(lines Repository, catalog Catalog, specials pricing.SpecialProvider) *Service {
	return &Service{
		lines:    lines,
		catalog:  catalog,
		specials: specials,
		now:      time.Now,
	}
}

// Add validates the selection against the product's option definitions and
// stores a cart line. A line with the same identity tuple already in the
// cart has its quantity incremented instead. Validation failures reject the
// whole add; there is no partial line.
func (s *Service) Add(ctx context.Context, customerID, productID int64, quantity int, sel option.Selection, subscriptionPlanID int64) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	if _, err := s.catalog.Product(ctx, productID); err != nil {
		return errors.Wrapf(err, "product %d", productID)
	}

	defs, err := s.catalog.OptionDefs(ctx, productID)
	if err != nil {
		return errors.Wrapf(err, "option defs for product %d", productID)
	}

	sel = option.Normalize(defs, sel)

	_, verrs, err := option.Resolve(ctx, s.catalog, defs, sel)
	if err != nil {
		return errors.Wrap(err, "resolve options")
	}
	if len(verrs) > 0 {
		return &InvalidOptionsError{Errors: verrs}
	}

	return s.lines.Add(ctx, Line{
		CustomerID:         customerID,
		ProductID:          productID,
		Quantity:           quantity,
		Selection:          sel,
		Signature:          option.Signature(sel),
		SubscriptionPlanID: subscriptionPlanID,
		DateAdded:          s.now(),
	})
}

// UpdateQuantity sets a line's quantity. A quantity of zero or less removes
// the line.
func (s *Service) UpdateQuantity(ctx context.Context, customerID, lineID int64, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, customerID, lineID)
	}
	return s.lines.UpdateQuantity(ctx, customerID, lineID, quantity)
}

// Remove deletes one line from the customer's cart.
func (s *Service) Remove(ctx context.Context, customerID, lineID int64) error {
	return s.lines.Remove(ctx, customerID, lineID)
}

// Clear deletes every line in the customer's cart.
func (s *Service) Clear(ctx context.Context, customerID int64) error {
	return s.lines.Clear(ctx, customerID)
}

// Count returns the total quantity across the customer's cart lines.
func (s *Service) Count(ctx context.Context, customerID int64) (int, error) {
	return s.lines.Count(ctx, customerID)
}

// Priced prices every line in the customer's cart against current catalog
// state. Lines whose product has disappeared are skipped; everything else is
// recomputed from scratch on every call.
func (s *Service) Priced(ctx context.Context, customerID, customerGroupID int64) ([]pricing.PricedLine, error) {
	stored, err := s.lines.List(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}

	now := s.now()
	priced := make([]pricing.PricedLine, 0, len(stored))

	for _, line := range stored {
		p, err := s.catalog.Product(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, pricing.ErrProductNotFound) {
				continue
			}
			return nil, errors.Wrapf(err, "product %d", line.ProductID)
		}

		defs, err := s.catalog.OptionDefs(ctx, line.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "option defs for product %d", line.ProductID)
		}

		resolved, _, err := option.Resolve(ctx, s.catalog, defs, line.Selection)
		if err != nil {
			return nil, errors.Wrap(err, "resolve options")
		}

		specials, err := s.specials.Specials(ctx, line.ProductID, customerGroupID)
		if err != nil {
			return nil, errors.Wrapf(err, "specials for product %d", line.ProductID)
		}

		pl := pricing.Price(line.ID, line.Quantity, *p, resolved, specials, now)
		pl.SubscriptionPlanID = line.SubscriptionPlanID

		if line.SubscriptionPlanID != 0 {
			sub, err := s.catalog.SubscriptionPlan(ctx, line.SubscriptionPlanID)
			if err == nil {
				pl.Subscription = sub
			} else if !errors.Is(err, pricing.ErrPlanNotFound) {
				return nil, errors.Wrapf(err, "subscription plan %d", line.SubscriptionPlanID)
			}
		}

		priced = append(priced, pl)
	}

	return priced, nil
}

// EligiblePoints returns the cart's point-eligible total: the sum of
// positive per-line point contributions, the cap on reward redemption.
func (s *Service) EligiblePoints(ctx context.Context, customerID, customerGroupID int64) (int64, error) {
	priced, err := s.Priced(ctx, customerID, customerGroupID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, line := range priced {
		if line.UnitPoints > 0 {
			total += line.UnitPoints * int64(line.Quantity)
		}
	}
	return total, nil
}
