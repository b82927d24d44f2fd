// Package option resolves a customer's raw option selection against a
// product's option definitions, producing display values and price, weight
// and reward-point modifiers for the pricing layer.
package option

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrValueNotFound is returned by a Catalog when an option value id has no
// catalog entry. Resolution treats it as a miss, not a validation failure.
var ErrValueNotFound = errors.New("option value not found")

// Type enumerates the supported product option input types.
type Type string

const (
	TypeSelect   Type = "select"
	TypeRadio    Type = "radio"
	TypeImage    Type = "image"
	TypeCheckbox Type = "checkbox"
	TypeText     Type = "text"
	TypeTextarea Type = "textarea"
	TypeFile     Type = "file"
	TypeDate     Type = "date"
	TypeTime     Type = "time"
	TypeDatetime Type = "datetime"
)

// Choice reports whether the type selects among defined option values.
func (t Type) Choice() bool {
	switch t {
	case TypeSelect, TypeRadio, TypeImage, TypeCheckbox:
		return true
	}
	return false
}

// Multi reports whether the type accepts a set of option values.
func (t Type) Multi() bool {
	return t == TypeCheckbox
}

// Prefix is the sign applied to a modifier magnitude.
type Prefix string

const (
	PrefixAdd      Prefix = "+"
	PrefixSubtract Prefix = "-"
)

// Apply folds magnitude into acc according to the prefix. An empty prefix
// contributes nothing.
func (p Prefix) Apply(acc, magnitude decimal.Decimal) decimal.Decimal {
	switch p {
	case PrefixAdd:
		return acc.Add(magnitude)
	case PrefixSubtract:
		return acc.Sub(magnitude)
	}
	return acc
}

// ApplyInt folds magnitude into acc according to the prefix.
func (p Prefix) ApplyInt(acc, magnitude int64) int64 {
	switch p {
	case PrefixAdd:
		return acc + magnitude
	case PrefixSubtract:
		return acc - magnitude
	}
	return acc
}

// Modifier holds the price, weight and point deltas attached to one option
// value. Magnitudes are non-negative; the prefixes carry the sign.
type Modifier struct {
	Price        decimal.Decimal
	PricePrefix  Prefix
	Weight       decimal.Decimal
	WeightPrefix Prefix
	Points       int64
	PointsPrefix Prefix
}

// Def describes one option defined on a product.
type Def struct {
	OptionID  int64
	Name      string
	Type      Type
	Required  bool
	MinLength int
	MaxLength int
	// ValueIDs are the option value ids defined for choice-typed options.
	ValueIDs []int64
}

// ValueDetail is the catalog entry behind a single option value id.
type ValueDetail struct {
	ValueID  int64
	Name     string
	Modifier Modifier
}

// Catalog looks up option value details. Implementations return
// ErrValueNotFound (possibly wrapped) when the id has no entry.
type Catalog interface {
	OptionValue(ctx context.Context, valueID int64) (*ValueDetail, error)
}

// Resolved is one resolved option on a cart line. Modifier is nil for
// text-like types, which contribute nothing numeric.
type Resolved struct {
	OptionID int64
	ValueID  int64
	Name     string
	Value    string
	Type     Type
	Modifier *Modifier
}
