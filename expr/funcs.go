package expr

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/Velocidex/ordereddict"
)

// Func is a pure function callable from expressions. It must not retain or
// mutate its arguments.
type Func func(args []any) (any, error)

// Builtins is the function registry used by BaseScope.
var Builtins = map[string]Func{
	"len":    fnLen,
	"int":    fnInt,
	"str":    fnStr,
	"hex":    fnHex,
	"format": fnFormat,
	"pad":    fnPad,
	"align":  fnAlign,
	"min":    fnMin,
	"max":    fnMax,
	"bytes":  fnBytes,
}

func arity(args []any, lo, hi int) error {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		if lo == hi {
			return fmt.Errorf("expected %d arguments, got %d", lo, len(args))
		}
		return fmt.Errorf("expected %d..%d arguments, got %d", lo, hi, len(args))
	}
	return nil
}

func fnLen(args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case string:
		return int64(len(v)), nil
	case []byte:
		return int64(len(v)), nil
	case []any:
		return int64(len(v)), nil
	case *ordereddict.Dict:
		return int64(v.Len()), nil
	case map[string]any:
		return int64(len(v)), nil
	}
	return nil, fmt.Errorf("len of %s", typeName(args[0]))
}

func fnInt(args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	if n, ok := toNumber(args[0]); ok && n.isUint {
		return n.u, nil
	}
	return ToInt(args[0])
}

func fnStr(args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	return ToString(args[0]), nil
}

// maxHexWidth is the widest padding hex accepts, enough for 64 bits.
const maxHexWidth = 16

// fnHex formats an integer as 0x-prefixed hex, zero padded to width digits,
// or a byte string as plain hex.
func fnHex(args []any) (any, error) {
	if err := arity(args, 1, 2); err != nil {
		return nil, err
	}
	if b, ok := args[0].([]byte); ok {
		return hex.EncodeToString(b), nil
	}
	width := int64(0)
	if len(args) == 2 {
		w, err := ToInt(args[1])
		if err != nil {
			return nil, err
		}
		if w < 0 || w > maxHexWidth {
			return nil, fmt.Errorf("hex width %d outside 0..%d", w, maxHexWidth)
		}
		width = w
	}
	n, ok := toNumber(args[0])
	if !ok || n.isFloat {
		return nil, fmt.Errorf("hex of %s", typeName(args[0]))
	}
	if n.isUint {
		return fmt.Sprintf("0x%0*x", width, n.u), nil
	}
	if n.i < 0 {
		// uint64 keeps the magnitude of math.MinInt64.
		return fmt.Sprintf("-0x%0*x", width, uint64(-n.i)), nil
	}
	return fmt.Sprintf("0x%0*x", width, n.i), nil
}

func fnFormat(args []any) (any, error) {
	if err := arity(args, 1, -1); err != nil {
		return nil, err
	}
	layout, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("format string is %s", typeName(args[0]))
	}
	out := fmt.Sprintf(layout, args[1:]...)
	if strings.Contains(out, "%!") {
		return nil, fmt.Errorf("bad format %q for arguments", layout)
	}
	return out, nil
}

// fnPad returns how many bytes follow n to reach the next multiple of align.
func fnPad(args []any) (any, error) {
	if err := arity(args, 2, 2); err != nil {
		return nil, err
	}
	n, err := ToInt(args[0])
	if err != nil {
		return nil, err
	}
	align, err := ToInt(args[1])
	if err != nil {
		return nil, err
	}
	if align <= 0 {
		return nil, fmt.Errorf("alignment must be positive, got %d", align)
	}
	return ((align-n%align)%align + align) % align, nil
}

func fnAlign(args []any) (any, error) {
	p, err := fnPad(args)
	if err != nil {
		return nil, err
	}
	n, _ := ToInt(args[0])
	return n + p.(int64), nil
}

func fnMin(args []any) (any, error) {
	return extreme(args, -1)
}

func fnMax(args []any) (any, error) {
	return extreme(args, 1)
}

func extreme(args []any, want int) (any, error) {
	if err := arity(args, 1, -1); err != nil {
		return nil, err
	}
	best := args[0]
	for _, v := range args[1:] {
		c, err := Compare(v, best)
		if err != nil {
			return nil, err
		}
		if c == want {
			best = v
		}
	}
	return best, nil
}

func fnBytes(args []any) (any, error) {
	if err := arity(args, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	case []any:
		out := make([]byte, 0, len(v))
		for _, item := range v {
			b, err := ToInt(item)
			if err != nil || b < 0 || b > 255 {
				return nil, fmt.Errorf("byte list element %v out of range", item)
			}
			out = append(out, byte(b))
		}
		return out, nil
	}
	return nil, fmt.Errorf("bytes of %s", typeName(args[0]))
}
