package option

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"

	"github.com/go-faster/jx"
)

// Signature returns the canonical, order-independent signature of a raw
// selection. Keys are emitted sorted by option id, checkbox sets sorted by
// value id, so re-ordered but equal selections hash to the same bytes. The
// signature is part of a cart line's identity and is computed once when the
// line is created.
func Signature(sel Selection) string {
	sum := sha256.Sum256(canonicalBytes(sel))
	return hex.EncodeToString(sum[:])
}

// canonicalBytes writes the selection as a JSON object with sorted keys and
// sorted set members. Numeric ids are emitted as decimal strings to keep the
// formatting stable across encoders.
func canonicalBytes(sel Selection) []byte {
	ids := make([]int64, 0, len(sel))
	for id := range sel {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var e jx.Encoder
	e.ObjStart()
	for _, id := range ids {
		e.FieldStart(strconv.FormatInt(id, 10))
		writeRaw(&e, sel[id])
	}
	e.ObjEnd()
	return e.Bytes()
}

func writeRaw(e *jx.Encoder, v RawValue) {
	switch v.Kind {
	case RawChoice:
		e.Int64(v.Choice)
	case RawSet:
		set := slices.Clone(v.Set)
		slices.Sort(set)
		e.ArrStart()
		for _, id := range set {
			e.Int64(id)
		}
		e.ArrEnd()
	default:
		e.Str(v.Text)
	}
}
