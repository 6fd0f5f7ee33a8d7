package grammar

import (
	"fmt"

	"github.com/wiregram/wiregram/expr"
)

// SizeKind selects how a Field's byte length is determined.
type SizeKind int

const (
	SizeNatural    SizeKind = iota // primitive's natural width
	SizeFixed                      // constant byte count
	SizeExpr                       // expression evaluated at parse time
	SizePrefixed                   // unsigned length header read first
	SizeTerminated                 // scan for a terminator
	SizeRemaining                  // rest of the bounded region
)

func (k SizeKind) String() string {
	switch k {
	case SizeNatural:
		return "natural"
	case SizeFixed:
		return "fixed"
	case SizeExpr:
		return "expr"
	case SizePrefixed:
		return "prefixed"
	case SizeTerminated:
		return "terminated"
	case SizeRemaining:
		return "remaining"
	default:
		return fmt.Sprintf("SizeKind(%d)", k)
	}
}

// SizePolicy describes how many bytes a Field occupies.
type SizePolicy struct {
	Kind SizeKind
	// Bytes is the constant length for SizeFixed.
	Bytes int64
	// Expr computes the length for SizeExpr.
	Expr *expr.Expression
	// Width is the header width for SizePrefixed. Zero defers to the
	// prefix_width parameter.
	Width int
	// Terminator ends a SizeTerminated field. It is consumed but not part
	// of the value.
	Terminator []byte
}

// Natural sizes a field by its primitive's width.
func Natural() SizePolicy { return SizePolicy{Kind: SizeNatural} }

// Fixed sizes a field to n bytes.
func Fixed(n int64) SizePolicy { return SizePolicy{Kind: SizeFixed, Bytes: n} }

// Sized sizes a field by an expression.
func Sized(e *expr.Expression) SizePolicy { return SizePolicy{Kind: SizeExpr, Expr: e} }

// Prefixed sizes a field by a width-byte unsigned length header.
func Prefixed(width int) SizePolicy { return SizePolicy{Kind: SizePrefixed, Width: width} }

// Terminated sizes a field up to (and consuming) term.
func Terminated(term []byte) SizePolicy { return SizePolicy{Kind: SizeTerminated, Terminator: term} }

// Remaining sizes a field to the rest of the bounded region.
func Remaining() SizePolicy { return SizePolicy{Kind: SizeRemaining} }

// Size is a static byte length.
type Size struct {
	Known bool
	Bytes int64
}

func (s Size) String() string {
	if !s.Known {
		return "dynamic"
	}
	return fmt.Sprintf("%d", s.Bytes)
}

func known(n int64) Size { return Size{Known: true, Bytes: n} }

// StaticSize computes the byte length of n when it does not depend on the
// input. It is used for diagnostics only; parsing never relies on it.
func StaticSize(n Node) Size {
	return staticSize(n, make(map[*Named]bool))
}

func staticSize(n Node, visiting map[*Named]bool) Size {
	switch n := n.(type) {
	case *Field:
		return fieldSize(n)
	case *Struct:
		var total int64
		for _, m := range n.Members {
			s := staticSize(m.Node, visiting)
			if !s.Known {
				return Size{}
			}
			total += s.Bytes
		}
		return known(total)
	case *Union:
		var widest int64
		for _, m := range n.Members {
			s := staticSize(m.Node, visiting)
			if !s.Known {
				return Size{}
			}
			widest = max(widest, s.Bytes)
		}
		return known(widest)
	case *Variant:
		return agree(n.Alternatives, visiting)
	case *Switch:
		return agree(Children(n), visiting)
	case *Repeat:
		if n.Mode != RepeatCount || n.Count == nil {
			return Size{}
		}
		count, err := n.Count.EvaluateInt(expr.NewMapScope(nil))
		if err != nil || count < 0 {
			return Size{}
		}
		elem := staticSize(n.Element, visiting)
		if !elem.Known {
			return Size{}
		}
		return known(count * elem.Bytes)
	case *BitStruct:
		return known(int64((n.TotalBits() + 7) / 8))
	case *Named:
		if visiting[n] {
			return Size{}
		}
		target, err := n.Target()
		if err != nil {
			return Size{}
		}
		visiting[n] = true
		defer delete(visiting, n)
		return staticSize(target, visiting)
	}
	return Size{}
}

func fieldSize(f *Field) Size {
	switch f.Size.Kind {
	case SizeNatural:
		if w := f.Primitive.Width(); w > 0 {
			return known(int64(w))
		}
	case SizeFixed:
		return known(f.Size.Bytes)
	}
	return Size{}
}

func agree(nodes []Node, visiting map[*Named]bool) Size {
	if len(nodes) == 0 {
		return Size{}
	}
	first := staticSize(nodes[0], visiting)
	if !first.Known {
		return Size{}
	}
	for _, n := range nodes[1:] {
		if s := staticSize(n, visiting); s != first {
			return Size{}
		}
	}
	return first
}
