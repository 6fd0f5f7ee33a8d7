package engine

import (
	"encoding/hex"

	"github.com/Velocidex/ordereddict"
)

// Plain strips every Range from an annotated value tree. Plain trees are
// returned unchanged.
func Plain(v any) any {
	switch v := v.(type) {
	case *Range:
		return Plain(v.Value)
	case *ordereddict.Dict:
		out := ordereddict.NewDict()
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			out.Set(k, Plain(item))
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Plain(item)
		}
		return out
	}
	return v
}

// JSON converts a value tree into a form encoding/json renders readably:
// ordered maps keep their key order and byte strings become hex. Ranges
// marshal themselves.
func JSON(v any) any {
	switch v := v.(type) {
	case []byte:
		return hex.EncodeToString(v)
	case *ordereddict.Dict:
		out := ordereddict.NewDict()
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			out.Set(k, JSON(item))
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = JSON(item)
		}
		return out
	}
	return v
}
