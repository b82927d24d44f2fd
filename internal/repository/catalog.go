package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/cart"
	"github.com/xenking/storefront-checkout/internal/domain/option"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

const (
	getProductSQL = `SELECT id, name, model, price, weight, weight_class_id, tax_class_id,
		points, minimum, stock, shipping, subtract
		FROM product WHERE id = $1 AND status = TRUE`

	getOptionDefsSQL = `SELECT id, name, type, required, min_length, max_length
		FROM product_option WHERE product_id = $1 ORDER BY sort_order, id`

	getOptionValueIDsSQL = `SELECT product_option_id, id
		FROM product_option_value WHERE product_option_id = ANY($1) ORDER BY sort_order, id`

	getOptionValueSQL = `SELECT id, name, price, price_prefix, weight, weight_prefix, points, points_prefix
		FROM product_option_value WHERE id = $1`

	getSubscriptionPlanSQL = `SELECT id, name, duration, cycle, frequency
		FROM subscription_plan WHERE id = $1 AND status = TRUE`
)

var _ cart.Catalog = (*CatalogRepository)(nil)

// CatalogRepository reads product, option and subscription plan data.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// Product returns the pricing snapshot of one enabled product.
func (r *CatalogRepository) Product(ctx context.Context, id int64) (*pricing.ProductSnapshot, error) {
	rows, err := r.pool.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// OptionDefs returns the product's option definitions with their defined
// value IDs, ordered as configured.
func (r *CatalogRepository) OptionDefs(ctx context.Context, productID int64) ([]option.Def, error) {
	rows, err := r.pool.Query(ctx, getOptionDefsSQL, productID)
	if err != nil {
		return nil, fmt.Errorf("getting option defs for product %d: %w", productID, err)
	}
	defs, err := pgx.CollectRows(rows, scanOptionDef)
	if err != nil {
		return nil, fmt.Errorf("getting option defs for product %d: %w", productID, err)
	}
	if len(defs) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(defs))
	index := make(map[int64]int, len(defs))
	for i, d := range defs {
		ids[i] = d.OptionID
		index[d.OptionID] = i
	}

	valueRows, err := r.pool.Query(ctx, getOptionValueIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting option values for product %d: %w", productID, err)
	}
	defer valueRows.Close()
	for valueRows.Next() {
		var optionID, valueID int64
		if err := valueRows.Scan(&optionID, &valueID); err != nil {
			return nil, fmt.Errorf("scanning option value: %w", err)
		}
		if i, ok := index[optionID]; ok {
			defs[i].ValueIDs = append(defs[i].ValueIDs, valueID)
		}
	}
	if err := valueRows.Err(); err != nil {
		return nil, fmt.Errorf("getting option values for product %d: %w", productID, err)
	}
	return defs, nil
}

// OptionValue returns one option value with its modifier. Returns
// option.ErrValueNotFound when the row is gone, which the resolver
// treats as a silent drop.
func (r *CatalogRepository) OptionValue(ctx context.Context, valueID int64) (*option.ValueDetail, error) {
	rows, err := r.pool.Query(ctx, getOptionValueSQL, valueID)
	if err != nil {
		return nil, fmt.Errorf("getting option value %d: %w", valueID, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanOptionValue)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, option.ErrValueNotFound
		}
		return nil, fmt.Errorf("getting option value %d: %w", valueID, err)
	}
	return &v, nil
}

// SubscriptionPlan returns display info for an enabled plan.
func (r *CatalogRepository) SubscriptionPlan(ctx context.Context, id int64) (*pricing.SubscriptionInfo, error) {
	var info pricing.SubscriptionInfo
	err := r.pool.QueryRow(ctx, getSubscriptionPlanSQL, id).Scan(
		&info.PlanID, &info.Name, &info.Duration, &info.Cycle, &info.Frequency,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pricing.ErrPlanNotFound
		}
		return nil, fmt.Errorf("getting subscription plan %d: %w", id, err)
	}
	return &info, nil
}

func scanProduct(row pgx.CollectableRow) (pricing.ProductSnapshot, error) {
	var p pricing.ProductSnapshot
	err := row.Scan(
		&p.ID, &p.Name, &p.Model, &p.Price, &p.Weight, &p.WeightClassID, &p.TaxClassID,
		&p.Points, &p.Minimum, &p.Stock, &p.Shipping, &p.Subtract,
	)
	return p, err
}

func scanOptionDef(row pgx.CollectableRow) (option.Def, error) {
	var (
		d   option.Def
		typ string
	)
	err := row.Scan(&d.OptionID, &d.Name, &typ, &d.Required, &d.MinLength, &d.MaxLength)
	d.Type = option.Type(typ)
	return d, err
}

func scanOptionValue(row pgx.CollectableRow) (option.ValueDetail, error) {
	var (
		v                                      option.ValueDetail
		pricePrefix, weightPrefix, pointPrefix string
	)
	err := row.Scan(
		&v.ValueID, &v.Name,
		&v.Modifier.Price, &pricePrefix,
		&v.Modifier.Weight, &weightPrefix,
		&v.Modifier.Points, &pointPrefix,
	)
	v.Modifier.PricePrefix = option.Prefix(pricePrefix)
	v.Modifier.WeightPrefix = option.Prefix(weightPrefix)
	v.Modifier.PointsPrefix = option.Prefix(pointPrefix)
	return v, err
}
