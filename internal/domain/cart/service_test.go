package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront-checkout/internal/domain/option"
	"github.com/xenking/storefront-checkout/internal/domain/pricing"
)

// --- Mock implementations ---

// memRepo is an in-memory Repository with the same dedup semantics the
// Postgres implementation provides via its upsert.
type memRepo struct {
	lines  []Line
	nextID int64
}

func (m *memRepo) Add(_ context.Context, line Line) error {
	for i := range m.lines {
		l := &m.lines[i]
		if l.CustomerID == line.CustomerID &&
			l.ProductID == line.ProductID &&
			l.Signature == line.Signature &&
			l.SubscriptionPlanID == line.SubscriptionPlanID {
			l.Quantity += line.Quantity
			return nil
		}
	}
	m.nextID++
	line.ID = m.nextID
	m.lines = append(m.lines, line)
	return nil
}

func (m *memRepo) List(_ context.Context, customerID int64) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		if l.CustomerID == customerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, customerID, lineID int64) (*Line, error) {
	for _, l := range m.lines {
		if l.CustomerID == customerID && l.ID == lineID {
			return &l, nil
		}
	}
	return nil, ErrLineNotFound
}

func (m *memRepo) UpdateQuantity(_ context.Context, customerID, lineID int64, quantity int) error {
	for i := range m.lines {
		if m.lines[i].CustomerID == customerID && m.lines[i].ID == lineID {
			m.lines[i].Quantity = quantity
			return nil
		}
	}
	return ErrLineNotFound
}

func (m *memRepo) Remove(_ context.Context, customerID, lineID int64) error {
	for i := range m.lines {
		if m.lines[i].CustomerID == customerID && m.lines[i].ID == lineID {
			m.lines = append(m.lines[:i], m.lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memRepo) Clear(_ context.Context, customerID int64) error {
	var kept []Line
	for _, l := range m.lines {
		if l.CustomerID != customerID {
			kept = append(kept, l)
		}
	}
	m.lines = kept
	return nil
}

func (m *memRepo) Count(_ context.Context, customerID int64) (int, error) {
	total := 0
	for _, l := range m.lines {
		if l.CustomerID == customerID {
			total += l.Quantity
		}
	}
	return total, nil
}

type mockCatalog struct {
	products map[int64]pricing.ProductSnapshot
	defs     map[int64][]option.Def
	values   map[int64]option.ValueDetail
	plans    map[int64]pricing.SubscriptionInfo
}

func (m *mockCatalog) Product(_ context.Context, id int64) (*pricing.ProductSnapshot, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, pricing.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockCatalog) OptionDefs(_ context.Context, productID int64) ([]option.Def, error) {
	return m.defs[productID], nil
}

func (m *mockCatalog) OptionValue(_ context.Context, id int64) (*option.ValueDetail, error) {
	v, ok := m.values[id]
	if !ok {
		return nil, option.ErrValueNotFound
	}
	return &v, nil
}

func (m *mockCatalog) SubscriptionPlan(_ context.Context, id int64) (*pricing.SubscriptionInfo, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, pricing.ErrPlanNotFound
	}
	return &p, nil
}

type mockSpecials struct {
	byProduct map[int64][]pricing.Special
}

func (m *mockSpecials) Specials(_ context.Context, productID, _ int64) ([]pricing.Special, error) {
	return m.byProduct[productID], nil
}

// --- Helpers ---

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService() (*Service, *memRepo, *mockCatalog) {
	repo := &memRepo{}
	cat := &mockCatalog{
		products: map[int64]pricing.ProductSnapshot{
			1: {ID: 1, Name: "Widget", Price: dec("100.00"), Stock: 10, Points: 30},
			2: {ID: 2, Name: "Gadget", Price: dec("20.00"), Stock: 5},
		},
		defs: map[int64][]option.Def{
			1: {{OptionID: 11, Name: "Size", Type: option.TypeSelect, Required: true, ValueIDs: []int64{101, 102}}},
		},
		values: map[int64]option.ValueDetail{
			101: {ValueID: 101, Name: "Small"},
			102: {ValueID: 102, Name: "Large", Modifier: option.Modifier{
				Price: dec("10.00"), PricePrefix: option.PrefixAdd,
			}},
		},
		plans: map[int64]pricing.SubscriptionInfo{},
	}
	return NewService(repo, cat, &mockSpecials{}), repo, cat
}

func sizeSel(valueID int64) option.Selection {
	return option.Selection{11: {Kind: option.RawChoice, Choice: valueID}}
}

// --- Tests ---

func TestAdd_DedupIncrementsQuantity(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 1, 2, sizeSel(101), 0))
	require.NoError(t, svc.Add(ctx, 7, 1, 3, sizeSel(101), 0))

	require.Len(t, repo.lines, 1)
	assert.Equal(t, 5, repo.lines[0].Quantity)
}

func TestAdd_DifferentSelectionsAreDistinctLines(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 1, 1, sizeSel(101), 0))
	require.NoError(t, svc.Add(ctx, 7, 1, 1, sizeSel(102), 0))

	assert.Len(t, repo.lines, 2)
}

func TestAdd_SubscriptionPlanPartOfIdentity(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 2, 1, nil, 0))
	require.NoError(t, svc.Add(ctx, 7, 2, 1, nil, 4))

	assert.Len(t, repo.lines, 2)
}

func TestAdd_RequiredOptionMissing(t *testing.T) {
	svc, repo, _ := newTestService()

	err := svc.Add(context.Background(), 7, 1, 1, option.Selection{}, 0)

	var optErr *InvalidOptionsError
	require.ErrorAs(t, err, &optErr)
	require.Len(t, optErr.Errors, 1)
	assert.Equal(t, option.ReasonRequired, optErr.Errors[0].Reason)
	assert.Empty(t, repo.lines, "no partial add")
}

func TestAdd_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Add(context.Background(), 7, 999, 1, nil, 0)
	require.ErrorIs(t, err, pricing.ErrProductNotFound)
}

func TestAdd_NonPositiveQuantity(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.Add(context.Background(), 7, 2, 0, nil, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestUpdateQuantity_ZeroDeletesLine(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 2, 2, nil, 0))
	lineID := repo.lines[0].ID

	require.NoError(t, svc.UpdateQuantity(ctx, 7, lineID, 0))
	assert.Empty(t, repo.lines)
}

func TestUpdateQuantity_SetsQuantity(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 2, 2, nil, 0))
	require.NoError(t, svc.UpdateQuantity(ctx, 7, repo.lines[0].ID, 9))

	assert.Equal(t, 9, repo.lines[0].Quantity)
}

func TestPriced_ComputesLineTotals(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 1, 2, sizeSel(102), 0))

	priced, err := svc.Priced(ctx, 7, 1)
	require.NoError(t, err)
	require.Len(t, priced, 1)

	line := priced[0]
	assert.True(t, dec("110.00").Equal(line.UnitPrice), "unit price %s", line.UnitPrice)
	assert.True(t, dec("220.00").Equal(line.LineTotal), "line total %s", line.LineTotal)
	assert.Equal(t, 2, line.Quantity)
	require.Len(t, line.Options, 1)
	assert.Equal(t, "Large", line.Options[0].Value)
}

func TestPriced_SkipsVanishedProducts(t *testing.T) {
	svc, _, cat := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 2, 1, nil, 0))
	delete(cat.products, 2)

	priced, err := svc.Priced(ctx, 7, 1)
	require.NoError(t, err)
	assert.Empty(t, priced)
}

func TestCount_SumsQuantities(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 1, 2, sizeSel(101), 0))
	require.NoError(t, svc.Add(ctx, 7, 2, 3, nil, 0))

	n, err := svc.Count(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestEligiblePoints_PositiveContributionsOnly(t *testing.T) {
	svc, _, cat := newTestService()
	ctx := context.Background()

	// Widget carries 30 base points; Gadget none.
	require.NoError(t, svc.Add(ctx, 7, 1, 2, sizeSel(101), 0))
	require.NoError(t, svc.Add(ctx, 7, 2, 4, nil, 0))

	pts, err := svc.EligiblePoints(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(60), pts)

	// A negative-points product contributes nothing.
	cat.products[2] = pricing.ProductSnapshot{ID: 2, Price: dec("20.00"), Points: -5}
	pts, err = svc.EligiblePoints(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(60), pts)
}

func TestClear_RemovesOnlyThatCustomer(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, 7, 2, 1, nil, 0))
	require.NoError(t, svc.Add(ctx, 8, 2, 1, nil, 0))

	require.NoError(t, svc.Clear(ctx, 7))
	require.Len(t, repo.lines, 1)
	assert.Equal(t, int64(8), repo.lines[0].CustomerID)
}
