package engine

import (
	"encoding/json"

	"github.com/Velocidex/ordereddict"

	"github.com/wiregram/wiregram/grammar"
)

// Range is an annotated value: the bytes [Start, End) at display offsets,
// the value decoded from them, and the node that produced it. A failed
// node yields a Range with Err set and the partial value, if any.
type Range struct {
	Start int64
	End   int64
	Value any
	Node  grammar.Node
	Name  string
	Meta  *ordereddict.Dict
	Err   *Error
}

// Underlying returns the wrapped value, so expressions see through ranges.
func (r *Range) Underlying() any { return r.Value }

// Len returns the byte length of the range.
func (r *Range) Len() int64 { return r.End - r.Start }

// Contains reports whether the display offset off lies within r.
func (r *Range) Contains(off int64) bool {
	return off >= r.Start && off < r.End
}

func (r *Range) kind() string {
	if r.Node == nil {
		return "bits"
	}
	return r.Node.Kind().String()
}

// MarshalJSON renders the range as an object with ordered keys.
func (r *Range) MarshalJSON() ([]byte, error) {
	d := ordereddict.NewDict().
		Set("start", r.Start).
		Set("end", r.End)
	if r.Name != "" {
		d.Set("name", r.Name)
	}
	d.Set("kind", r.kind())
	d.Set("value", JSON(r.Value))
	if r.Meta != nil && r.Meta.Len() > 0 {
		d.Set("meta", JSON(r.Meta))
	}
	if r.Err != nil {
		d.Set("error", r.Err.Error())
	}
	return json.Marshal(d)
}

// Locate returns the innermost Range in an annotated tree that contains
// the display offset off, or nil.
func Locate(v any, off int64) *Range {
	var best *Range
	walkRanges(v, func(r *Range) bool {
		if !r.Contains(off) {
			return false
		}
		best = r
		return true
	})
	return best
}

// walkRanges visits ranges depth first; fn returning false prunes the
// subtree.
func walkRanges(v any, fn func(*Range) bool) {
	switch v := v.(type) {
	case *Range:
		if fn(v) {
			walkRanges(v.Value, fn)
		}
	case *ordereddict.Dict:
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			walkRanges(item, fn)
		}
	case []any:
		for _, item := range v {
			walkRanges(item, fn)
		}
	}
}
