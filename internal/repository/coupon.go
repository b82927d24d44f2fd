package repository

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-checkout/internal/domain/discount"
)

const (
	getCouponByCodeSQL = `SELECT code, name, type, discount, status,
		date_start, date_end, uses_total, uses
		FROM coupon WHERE UPPER(code) = UPPER($1)`

	listCouponCodesSQL = `SELECT code FROM coupon`
)

// bloomFalsePositiveRate keeps the filter small while skipping nearly
// every lookup for garbage codes.
const bloomFalsePositiveRate = 0.01

var _ discount.CouponProvider = (*CouponRepository)(nil)

// CouponRepository implements discount.CouponProvider backed by
// PostgreSQL, with an optional bloom prefilter over known codes so
// definite misses never hit the database.
type CouponRepository struct {
	pool *pgxpool.Pool

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// WarmFilter builds the bloom prefilter from the current coupon table.
// Until it is called, every lookup goes to the database.
func (r *CouponRepository) WarmFilter(ctx context.Context) error {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return fmt.Errorf("listing coupon codes: %w", err)
	}
	codes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var code string
		err := row.Scan(&code)
		return code, err
	})
	if err != nil {
		return fmt.Errorf("listing coupon codes: %w", err)
	}

	n := uint(len(codes))
	if n == 0 {
		n = 1
	}
	filter := bloom.NewWithEstimates(n, bloomFalsePositiveRate)
	for _, code := range codes {
		filter.AddString(strings.ToUpper(code))
	}

	r.mu.Lock()
	r.filter = filter
	r.mu.Unlock()
	return nil
}

// Coupon looks a coupon up by code, case-insensitive. A bloom filter
// miss is authoritative; a hit may still be a false positive and is
// confirmed against the table.
func (r *CouponRepository) Coupon(ctx context.Context, code string) (*discount.Coupon, error) {
	r.mu.RLock()
	filter := r.filter
	r.mu.RUnlock()
	if filter != nil && !filter.TestString(strings.ToUpper(code)) {
		return nil, discount.ErrCouponNotFound
	}

	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrCouponNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (discount.Coupon, error) {
	var (
		c          discount.Coupon
		typ        string
		start, end *time.Time
	)
	err := row.Scan(
		&c.Code, &c.Name, &typ, &c.Discount, &c.Status,
		&start, &end, &c.UsesTotal, &c.Uses,
	)
	c.Type = discount.CouponType(typ)
	if start != nil {
		c.DateStart = *start
	}
	if end != nil {
		c.DateEnd = *end
	}
	return c, err
}
