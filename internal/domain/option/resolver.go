package option

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/go-faster/errors"
)

// Date and time layouts accepted for the corresponding option types.
const (
	layoutDate     = "2006-01-02"
	layoutTime     = "15:04"
	layoutDatetime = "2006-01-02 15:04:05"
)

// RawKind describes the shape of a raw selection value.
type RawKind uint8

const (
	// RawChoice is a single option value id (select, radio, image).
	RawChoice RawKind = iota
	// RawSet is a set of option value ids (checkbox).
	RawSet
	// RawText is a free-form string (text, textarea, file, date, time, datetime).
	RawText
)

// RawValue is a customer's raw choice for one option before resolution.
type RawValue struct {
	Kind   RawKind
	Choice int64
	Set    []int64
	Text   string
}

// Empty reports whether the value counts as "not provided" for required
// option validation.
func (v RawValue) Empty() bool {
	switch v.Kind {
	case RawChoice:
		return v.Choice == 0
	case RawSet:
		return len(v.Set) == 0
	default:
		return v.Text == ""
	}
}

// Selection maps option id to the customer's raw choice for that option.
type Selection map[int64]RawValue

// Reason classifies an option validation failure.
type Reason string

const (
	ReasonRequired     Reason = "required"
	ReasonInvalidValue Reason = "invalid_value"
	ReasonNotASet      Reason = "not_a_set"
	ReasonTooShort     Reason = "too_short"
	ReasonTooLong      Reason = "too_long"
	ReasonBadFormat    Reason = "bad_format"
	ReasonUnknown      Reason = "unknown_option"
)

// Error reports one invalid or missing option in a selection.
type Error struct {
	OptionID int64
	Option   string
	Reason   Reason
}

func (e *Error) Error() string {
	return fmt.Sprintf("option %d (%s): %s", e.OptionID, e.Option, e.Reason)
}

// Errors is the full set of validation failures for one selection.
type Errors []*Error

func (es Errors) Error() string {
	if len(es) == 1 {
		return es[0].Error()
	}
	return fmt.Sprintf("%d invalid options", len(es))
}

// Normalize coerces raw value shapes to what each option's type expects:
// numeric strings become value ids for single-choice options, and ids become
// text for text-like options. Checkbox shapes are never coerced. Selections
// should be normalized before Resolve and Signature so equivalent inputs
// ("34" vs 34) produce identical resolutions and signatures.
func Normalize(defs []Def, sel Selection) Selection {
	byID := make(map[int64]Def, len(defs))
	for _, d := range defs {
		byID[d.OptionID] = d
	}

	out := make(Selection, len(sel))
	for id, raw := range sel {
		d, ok := byID[id]
		if !ok {
			out[id] = raw
			continue
		}
		switch {
		case d.Type.Multi():
			// Keep as-is; validate rejects non-set shapes.
		case d.Type.Choice():
			if raw.Kind == RawText {
				if n, err := strconv.ParseInt(raw.Text, 10, 64); err == nil {
					raw = RawValue{Kind: RawChoice, Choice: n}
				}
			}
		default:
			if raw.Kind == RawChoice {
				raw = RawValue{Kind: RawText, Text: strconv.FormatInt(raw.Choice, 10)}
			}
		}
		out[id] = raw
	}
	return out
}

// Resolve validates sel against defs and resolves every valid choice to its
// catalog entry. Validation failures are returned as Errors and mean the
// selection must not become a cart line. Catalog lookup misses for a
// validated value id are dropped from the resolved set without error; any
// other catalog failure aborts resolution.
//
// The resolved set is ordered by option id ascending, set members by value
// id ascending, so identical selections always resolve identically.
func Resolve(ctx context.Context, catalog Catalog, defs []Def, sel Selection) ([]Resolved, Errors, error) {
	byID := make(map[int64]Def, len(defs))
	for _, d := range defs {
		byID[d.OptionID] = d
	}

	var verrs Errors

	// Selection keys must all correspond to a defined option.
	ids := make([]int64, 0, len(sel))
	for id := range sel {
		if _, ok := byID[id]; !ok {
			verrs = append(verrs, &Error{OptionID: id, Reason: ReasonUnknown})
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	// Required options must be present and non-empty.
	for _, d := range defs {
		if !d.Required {
			continue
		}
		if v, ok := sel[d.OptionID]; !ok || v.Empty() {
			verrs = append(verrs, &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonRequired})
		}
	}

	resolved := make([]Resolved, 0, len(ids))
	for _, id := range ids {
		d := byID[id]
		raw := sel[id]

		if verr := validate(d, raw); verr != nil {
			verrs = append(verrs, verr)
			continue
		}

		out, err := resolveOne(ctx, catalog, d, raw)
		if err != nil {
			return nil, nil, err
		}
		resolved = append(resolved, out...)
	}

	if len(verrs) > 0 {
		return nil, verrs, nil
	}
	return resolved, nil, nil
}

// validate applies the type-specific rules for one option.
func validate(d Def, raw RawValue) *Error {
	switch d.Type {
	case TypeText, TypeTextarea:
		n := len(raw.Text)
		if d.MinLength > 0 && n < d.MinLength {
			return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonTooShort}
		}
		if d.MaxLength > 0 && n > d.MaxLength {
			return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonTooLong}
		}

	case TypeDate:
		if raw.Text != "" && !parses(layoutDate, raw.Text) {
			return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonBadFormat}
		}
	case TypeTime:
		if raw.Text != "" && !parses(layoutTime, raw.Text) {
			return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonBadFormat}
		}
	case TypeDatetime:
		if raw.Text != "" && !parses(layoutDatetime, raw.Text) {
			return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonBadFormat}
		}

	case TypeSelect, TypeRadio, TypeImage:
		if !slices.Contains(d.ValueIDs, raw.Choice) {
			return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonInvalidValue}
		}

	case TypeCheckbox:
		// A scalar where a set is expected is an error, not a coercion.
		if raw.Kind != RawSet {
			return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonNotASet}
		}
		for _, id := range raw.Set {
			if !slices.Contains(d.ValueIDs, id) {
				return &Error{OptionID: d.OptionID, Option: d.Name, Reason: ReasonInvalidValue}
			}
		}
	}
	return nil
}

// resolveOne turns one validated option into resolved entries.
func resolveOne(ctx context.Context, catalog Catalog, d Def, raw RawValue) ([]Resolved, error) {
	if !d.Type.Choice() {
		return []Resolved{{
			OptionID: d.OptionID,
			Name:     d.Name,
			Value:    raw.Text,
			Type:     d.Type,
		}}, nil
	}

	valueIDs := []int64{raw.Choice}
	if d.Type.Multi() {
		valueIDs = slices.Clone(raw.Set)
		slices.Sort(valueIDs)
	}

	out := make([]Resolved, 0, len(valueIDs))
	for _, id := range valueIDs {
		detail, err := catalog.OptionValue(ctx, id)
		if err != nil {
			if errors.Is(err, ErrValueNotFound) {
				// Lookup miss: the value was validated against the defined
				// ids but has no catalog row. Drop its contribution.
				continue
			}
			return nil, errors.Wrapf(err, "option value %d", id)
		}
		mod := detail.Modifier
		out = append(out, Resolved{
			OptionID: d.OptionID,
			ValueID:  detail.ValueID,
			Name:     d.Name,
			Value:    detail.Name,
			Type:     d.Type,
			Modifier: &mod,
		})
	}
	return out, nil
}

func parses(layout, s string) bool {
	_, err := time.Parse(layout, s)
	return err == nil
}
