package option

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	values map[int64]ValueDetail
	err    error
}

func (m *mockCatalog) OptionValue(_ context.Context, id int64) (*ValueDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.values[id]
	if !ok {
		return nil, ErrValueNotFound
	}
	return &v, nil
}

func newCatalog(values ...ValueDetail) *mockCatalog {
	byID := make(map[int64]ValueDetail, len(values))
	for _, v := range values {
		byID[v.ValueID] = v
	}
	return &mockCatalog{values: byID}
}

func sizeDef() Def {
	return Def{
		OptionID: 11,
		Name:     "Size",
		Type:     TypeSelect,
		Required: true,
		ValueIDs: []int64{101, 102},
	}
}

func sizeValues() []ValueDetail {
	return []ValueDetail{
		{ValueID: 101, Name: "Small", Modifier: Modifier{
			Price: decimal.RequireFromString("10.00"), PricePrefix: PrefixAdd,
		}},
		{ValueID: 102, Name: "Large", Modifier: Modifier{
			Price: decimal.RequireFromString("5.00"), PricePrefix: PrefixSubtract,
		}},
	}
}

func TestResolve_RequiredMissing(t *testing.T) {
	tests := []struct {
		name string
		sel  Selection
	}{
		{name: "absent key", sel: Selection{}},
		{name: "empty text", sel: Selection{11: {Kind: RawText}}},
		{name: "empty set", sel: Selection{11: {Kind: RawSet}}},
	}

	def := sizeDef()
	def.Type = TypeText // text shape so empty text is representable

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verrs, err := Resolve(context.Background(), newCatalog(), []Def{def}, tt.sel)
			require.NoError(t, err)
			require.Len(t, verrs, 1)
			assert.Equal(t, ReasonRequired, verrs[0].Reason)
			assert.Equal(t, int64(11), verrs[0].OptionID)
		})
	}
}

func TestResolve_SelectValidValue(t *testing.T) {
	cat := newCatalog(sizeValues()...)
	sel := Selection{11: {Kind: RawChoice, Choice: 101}}

	resolved, verrs, err := Resolve(context.Background(), cat, []Def{sizeDef()}, sel)
	require.NoError(t, err)
	require.Empty(t, verrs)
	require.Len(t, resolved, 1)

	r := resolved[0]
	assert.Equal(t, int64(101), r.ValueID)
	assert.Equal(t, "Small", r.Value)
	require.NotNil(t, r.Modifier)
	assert.True(t, decimal.RequireFromString("10.00").Equal(r.Modifier.Price))
	assert.Equal(t, PrefixAdd, r.Modifier.PricePrefix)
}

func TestResolve_SelectUndefinedValue(t *testing.T) {
	sel := Selection{11: {Kind: RawChoice, Choice: 999}}

	_, verrs, err := Resolve(context.Background(), newCatalog(sizeValues()...), []Def{sizeDef()}, sel)
	require.NoError(t, err)
	require.Len(t, verrs, 1)
	assert.Equal(t, ReasonInvalidValue, verrs[0].Reason)
}

// A value id that passes validation but has no catalog row is dropped from
// the resolved set rather than failing the line.
func TestResolve_UnknownValueDropped(t *testing.T) {
	def := Def{OptionID: 12, Name: "Extras", Type: TypeCheckbox, ValueIDs: []int64{201, 202}}
	cat := newCatalog(ValueDetail{ValueID: 201, Name: "Gift wrap"})
	sel := Selection{12: {Kind: RawSet, Set: []int64{201, 202}}}

	resolved, verrs, err := Resolve(context.Background(), cat, []Def{def}, sel)
	require.NoError(t, err)
	require.Empty(t, verrs)
	require.Len(t, resolved, 1)
	assert.Equal(t, int64(201), resolved[0].ValueID)
}

func TestResolve_CheckboxScalarRejected(t *testing.T) {
	def := Def{OptionID: 12, Name: "Extras", Type: TypeCheckbox, ValueIDs: []int64{201}}
	sel := Selection{12: {Kind: RawChoice, Choice: 201}}

	_, verrs, err := Resolve(context.Background(), newCatalog(), []Def{def}, sel)
	require.NoError(t, err)
	require.Len(t, verrs, 1)
	assert.Equal(t, ReasonNotASet, verrs[0].Reason)
}

func TestResolve_TextLengthBounds(t *testing.T) {
	def := Def{OptionID: 13, Name: "Engraving", Type: TypeText, MinLength: 3, MaxLength: 5}

	tests := []struct {
		name   string
		text   string
		reason Reason
	}{
		{name: "too short", text: "ab", reason: ReasonTooShort},
		{name: "too long", text: "abcdef", reason: ReasonTooLong},
		{name: "in bounds", text: "abcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Selection{13: {Kind: RawText, Text: tt.text}}
			resolved, verrs, err := Resolve(context.Background(), newCatalog(), []Def{def}, sel)
			require.NoError(t, err)

			if tt.reason != "" {
				require.Len(t, verrs, 1)
				assert.Equal(t, tt.reason, verrs[0].Reason)
				return
			}
			require.Empty(t, verrs)
			require.Len(t, resolved, 1)
			assert.Equal(t, tt.text, resolved[0].Value)
			assert.Nil(t, resolved[0].Modifier)
		})
	}
}

func TestResolve_DateTimeFormats(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		text string
		ok   bool
	}{
		{name: "valid date", typ: TypeDate, text: "2025-06-15", ok: true},
		{name: "bad date", typ: TypeDate, text: "15/06/2025", ok: false},
		{name: "valid time", typ: TypeTime, text: "14:30", ok: true},
		{name: "bad time", typ: TypeTime, text: "2pm", ok: false},
		{name: "valid datetime", typ: TypeDatetime, text: "2025-06-15 14:30:00", ok: true},
		{name: "bad datetime", typ: TypeDatetime, text: "2025-06-15T14:30:00Z", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := Def{OptionID: 14, Name: "Delivery", Type: tt.typ}
			sel := Selection{14: {Kind: RawText, Text: tt.text}}

			_, verrs, err := Resolve(context.Background(), newCatalog(), []Def{def}, sel)
			require.NoError(t, err)

			if tt.ok {
				assert.Empty(t, verrs)
			} else {
				require.Len(t, verrs, 1)
				assert.Equal(t, ReasonBadFormat, verrs[0].Reason)
			}
		})
	}
}

func TestResolve_UnknownOptionKey(t *testing.T) {
	sel := Selection{99: {Kind: RawChoice, Choice: 1}}

	_, verrs, err := Resolve(context.Background(), newCatalog(), nil, sel)
	require.NoError(t, err)
	require.Len(t, verrs, 1)
	assert.Equal(t, ReasonUnknown, verrs[0].Reason)
}

func TestResolve_CatalogFailureAborts(t *testing.T) {
	def := sizeDef()
	def.Required = false
	cat := &mockCatalog{err: errors.New("connection refused")}
	sel := Selection{11: {Kind: RawChoice, Choice: 101}}

	_, _, err := Resolve(context.Background(), cat, []Def{def}, sel)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "option value 101")
}

func TestNormalize_NumericStringBecomesChoice(t *testing.T) {
	defs := []Def{sizeDef()}
	sel := Selection{11: {Kind: RawText, Text: "101"}}

	got := Normalize(defs, sel)
	assert.Equal(t, RawValue{Kind: RawChoice, Choice: 101}, got[11])
}

func TestNormalize_ChoiceBecomesTextForTextOption(t *testing.T) {
	defs := []Def{{OptionID: 13, Type: TypeText}}
	sel := Selection{13: {Kind: RawChoice, Choice: 42}}

	got := Normalize(defs, sel)
	assert.Equal(t, RawValue{Kind: RawText, Text: "42"}, got[13])
}
