package expr

import (
	"fmt"

	"github.com/Velocidex/ordereddict"
)

// Scope resolves names for expression evaluation.
//
// Lookup searches the active hierarchy outward, nearest first. Param
// resolves $name references. Both return an error wrapping ErrNotFound
// when the name is unknown. Member and Index implement a.b and a[i];
// Func exposes the pure function registry.
type Scope interface {
	Lookup(name string) (any, error)
	Member(v any, name string) (any, error)
	Index(v any, idx any) (any, error)
	Param(name string) (any, error)
	Func(name string) (Func, bool)
}

// BaseScope provides the default Member, Index, and Func behavior.
// Embed it in concrete scopes and supply Lookup and Param.
type BaseScope struct {
	// Funcs overrides the builtin registry when non-nil.
	Funcs map[string]Func
}

// Member returns the named entry of a map-like value. Lists, strings, and
// byte slices expose "length".
func (s BaseScope) Member(v any, name string) (any, error) {
	switch v := Unwrap(v).(type) {
	case *ordereddict.Dict:
		if item, ok := v.Get(name); ok {
			return item, nil
		}
	case map[string]any:
		if item, ok := v[name]; ok {
			return item, nil
		}
	case []any:
		if name == "length" {
			return int64(len(v)), nil
		}
	case []byte:
		if name == "length" {
			return int64(len(v)), nil
		}
	case string:
		if name == "length" {
			return int64(len(v)), nil
		}
	}
	return nil, NotFound("member", name)
}

// Index returns element idx of a list, byte slice, or string (negative
// indexes count from the end), or the entry keyed by idx in a map.
func (s BaseScope) Index(v any, idx any) (any, error) {
	v = Unwrap(v)
	if isMapValue(v) {
		return s.Member(v, ToString(idx))
	}
	i, err := ToInt(idx)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	var n int
	switch v := v.(type) {
	case []any:
		n = len(v)
	case []byte:
		n = len(v)
	case string:
		n = len(v)
	default:
		return nil, fmt.Errorf("cannot index %s", typeName(v))
	}
	if i < 0 {
		i += int64(n)
	}
	if i < 0 || i >= int64(n) {
		return nil, fmt.Errorf("index %d out of range [0, %d)", i, n)
	}
	switch v := v.(type) {
	case []any:
		return v[i], nil
	case []byte:
		return int64(v[i]), nil
	default:
		return v.(string)[i : i+1], nil
	}
}

// Func returns a function from the registry.
func (s BaseScope) Func(name string) (Func, bool) {
	funcs := s.Funcs
	if funcs == nil {
		funcs = Builtins
	}
	fn, ok := funcs[name]
	return fn, ok
}

// MapScope resolves names against plain maps.
type MapScope struct {
	BaseScope
	Vars   map[string]any
	Params map[string]any
}

// NewMapScope returns a scope over vars with no parameters.
func NewMapScope(vars map[string]any) *MapScope {
	return &MapScope{Vars: vars}
}

func (s *MapScope) Lookup(name string) (any, error) {
	if v, ok := s.Vars[name]; ok {
		return v, nil
	}
	return nil, NotFound("name", name)
}

func (s *MapScope) Param(name string) (any, error) {
	if v, ok := s.Params[name]; ok {
		return v, nil
	}
	return nil, NotFound("parameter", name)
}
