package expr

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/Velocidex/ordereddict"
)

// Wrapper is implemented by values that decorate an underlying value, such
// as annotated byte ranges. Evaluation sees through wrappers for
// arithmetic, comparison, member, and index access.
type Wrapper interface {
	Underlying() any
}

// Unwrap strips every Wrapper layer from v.
func Unwrap(v any) any {
	for {
		w, ok := v.(Wrapper)
		if !ok {
			return v
		}
		v = w.Underlying()
	}
}

// number is a normalized numeric value. Unsigned values that fit in int64
// are stored as signed; isUint marks values above math.MaxInt64.
type number struct {
	isFloat bool
	isUint  bool
	i       int64
	u       uint64
	f       float64
}

func (n number) float() float64 {
	switch {
	case n.isFloat:
		return n.f
	case n.isUint:
		return float64(n.u)
	default:
		return float64(n.i)
	}
}

func (n number) value() any {
	switch {
	case n.isFloat:
		return n.f
	case n.isUint:
		return n.u
	default:
		return n.i
	}
}

func fromUint(u uint64) number {
	if u > math.MaxInt64 {
		return number{isUint: true, u: u}
	}
	return number{i: int64(u)}
}

func toNumber(v any) (number, bool) {
	switch v := Unwrap(v).(type) {
	case int:
		return number{i: int64(v)}, true
	case int8:
		return number{i: int64(v)}, true
	case int16:
		return number{i: int64(v)}, true
	case int32:
		return number{i: int64(v)}, true
	case int64:
		return number{i: v}, true
	case uint:
		return fromUint(uint64(v)), true
	case uint8:
		return number{i: int64(v)}, true
	case uint16:
		return number{i: int64(v)}, true
	case uint32:
		return number{i: int64(v)}, true
	case uint64:
		return fromUint(v), true
	case float32:
		return number{isFloat: true, f: float64(v)}, true
	case float64:
		return number{isFloat: true, f: v}, true
	}
	return number{}, false
}

// IsNumber reports whether v (after unwrapping) is an integer or float.
func IsNumber(v any) bool {
	_, ok := toNumber(v)
	return ok
}

// ToInt converts v to int64. Floats must be integral; booleans map to 0/1;
// numeric strings are parsed with Go literal syntax.
func ToInt(v any) (int64, error) {
	v = Unwrap(v)
	if n, ok := toNumber(v); ok {
		switch {
		case n.isFloat:
			if n.f != math.Trunc(n.f) || math.IsInf(n.f, 0) || math.IsNaN(n.f) {
				return 0, fmt.Errorf("%v is not an integer", n.f)
			}
			return int64(n.f), nil
		case n.isUint:
			return 0, fmt.Errorf("%d overflows int64", n.u)
		default:
			return n.i, nil
		}
	}
	switch v := v.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("%q is not an integer", v)
		}
		return i, nil
	}
	return 0, fmt.Errorf("cannot use %s as integer", typeName(v))
}

// ToString renders v the way string contexts (concatenation keys, map
// lookups, str()) see it.
func ToString(v any) string {
	switch v := Unwrap(v).(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case *ordereddict.Dict:
		parts := make([]string, 0, v.Len())
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			parts = append(parts, k+":"+ToString(item))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		if n, ok := toNumber(v); ok {
			if n.isUint {
				return strconv.FormatUint(n.u, 10)
			}
			return strconv.FormatInt(n.i, 10)
		}
		return fmt.Sprintf("%v", v)
	}
}

// Truthy reports the boolean interpretation of v: nil, false, zero, and
// empty strings, byte slices, lists, and maps are false.
func Truthy(v any) bool {
	v = Unwrap(v)
	if n, ok := toNumber(v); ok {
		return n.float() != 0
	}
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case []byte:
		return len(v) > 0
	case []any:
		return len(v) > 0
	case *ordereddict.Dict:
		return v.Len() > 0
	case map[string]any:
		return len(v) > 0
	}
	return true
}

// Equal reports whether a and b are equal under expression semantics:
// numbers compare by value across integer and float kinds, strings and
// byte slices compare by content, lists and maps compare structurally.
func Equal(a, b any) bool {
	a, b = Unwrap(a), Unwrap(b)
	if na, ok := toNumber(a); ok {
		nb, ok := toNumber(b)
		if !ok {
			return false
		}
		c, _ := compareNumbers(na, nb)
		return c == 0
	}
	switch a := a.(type) {
	case nil:
		return b == nil
	case string:
		switch b := b.(type) {
		case string:
			return a == b
		case []byte:
			return a == string(b)
		}
		return false
	case []byte:
		switch b := b.(type) {
		case []byte:
			return bytes.Equal(a, b)
		case string:
			return string(a) == b
		}
		return false
	case []any:
		bl, ok := b.([]any)
		if !ok || len(a) != len(bl) {
			return false
		}
		for i := range a {
			if !Equal(a[i], bl[i]) {
				return false
			}
		}
		return true
	case *ordereddict.Dict:
		bd, ok := b.(*ordereddict.Dict)
		if !ok || a.Len() != bd.Len() {
			return false
		}
		for _, k := range a.Keys() {
			av, _ := a.Get(k)
			bv, ok := bd.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case map[string]any:
		bm, ok := b.(map[string]any)
		if !ok || len(a) != len(bm) {
			return false
		}
		for k, av := range a {
			bv, ok := bm[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders a and b: numbers numerically, strings and byte slices
// lexicographically. It returns an error for unordered combinations.
func Compare(a, b any) (int, error) {
	a, b = Unwrap(a), Unwrap(b)
	if na, ok := toNumber(a); ok {
		if nb, ok := toNumber(b); ok {
			return compareNumbers(na, nb)
		}
	}
	sa, aok := stringish(a)
	sb, bok := stringish(b)
	if aok && bok {
		return strings.Compare(sa, sb), nil
	}
	return 0, fmt.Errorf("cannot compare %s with %s", typeName(a), typeName(b))
}

func stringish(v any) (string, bool) {
	switch v := v.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

func compareNumbers(a, b number) (int, error) {
	if a.isFloat || b.isFloat {
		fa, fb := a.float(), b.float()
		switch {
		case math.IsNaN(fa) || math.IsNaN(fb):
			return 0, fmt.Errorf("NaN is unordered")
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		}
		return 0, nil
	}
	switch {
	case a.isUint && b.isUint:
		return cmpOrdered(a.u, b.u), nil
	case a.isUint:
		return 1, nil
	case b.isUint:
		return -1, nil
	}
	return cmpOrdered(a.i, b.i), nil
}

func cmpOrdered[T int64 | uint64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// isMapValue reports whether v is one of the map-like value types.
func isMapValue(v any) bool {
	switch Unwrap(v).(type) {
	case *ordereddict.Dict, map[string]any:
		return true
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []byte:
		return "bytes"
	case bool:
		return "bool"
	case []any:
		return "list"
	case *ordereddict.Dict, map[string]any:
		return "map"
	}
	if n, ok := toNumber(v); ok {
		if n.isFloat {
			return "float"
		}
		return "int"
	}
	return fmt.Sprintf("%T", v)
}
