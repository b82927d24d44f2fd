package option

import (
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// EncodeSelection serializes a selection for storage. The stored form is the
// same canonical byte form the signature is computed over.
func EncodeSelection(sel Selection) []byte {
	return canonicalBytes(sel)
}

// DecodeSelection parses a stored or client-supplied selection object.
// Values may be numbers (single choice), strings (text), or arrays of
// numbers or numeric strings (sets).
func DecodeSelection(data []byte) (Selection, error) {
	sel := make(Selection)
	d := jx.DecodeBytes(data)

	err := d.Obj(func(d *jx.Decoder, key string) error {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "option id %q", key)
		}

		raw, err := decodeRaw(d)
		if err != nil {
			return errors.Wrapf(err, "option %d", id)
		}
		sel[id] = raw
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "decode selection")
	}
	return sel, nil
}

func decodeRaw(d *jx.Decoder) (RawValue, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Int64()
		if err != nil {
			return RawValue{}, err
		}
		return RawValue{Kind: RawChoice, Choice: n}, nil

	case jx.String:
		s, err := d.Str()
		if err != nil {
			return RawValue{}, err
		}
		return RawValue{Kind: RawText, Text: s}, nil

	case jx.Array:
		var set []int64
		err := d.Arr(func(d *jx.Decoder) error {
			switch d.Next() {
			case jx.Number:
				n, err := d.Int64()
				if err != nil {
					return err
				}
				set = append(set, n)
				return nil
			case jx.String:
				s, err := d.Str()
				if err != nil {
					return err
				}
				n, err := strconv.ParseInt(s, 10, 64)
				if err != nil {
					return errors.Wrapf(err, "set member %q", s)
				}
				set = append(set, n)
				return nil
			default:
				return errors.New("set members must be value ids")
			}
		})
		if err != nil {
			return RawValue{}, err
		}
		return RawValue{Kind: RawSet, Set: set}, nil

	default:
		return RawValue{}, errors.Errorf("unsupported value type %v", d.Next())
	}
}
