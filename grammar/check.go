package grammar

import (
	"fmt"
	"strings"

	"github.com/wiregram/wiregram/internal/graph"
	"github.com/wiregram/wiregram/internal/types"
)

// Diagnostic is a schema issue reported by Check.
type Diagnostic = types.Diagnostic

// Severity is the seriousness of a Diagnostic.
type Severity = types.Severity

// Severity levels.
const (
	SeverityError   = types.SeverityError
	SeverityWarning = types.SeverityWarning
	SeverityInfo    = types.SeverityInfo
)

// Check inspects every definition without parsing any input. It reports
// undefined references, recursive definitions, illegal size policies,
// malformed repeats and bit widths, and a missing entry point.
func (s *Schema) Check() []Diagnostic {
	c := &checker{schema: s, refs: graph.New()}
	for _, name := range s.Names() {
		def, _ := s.Lookup(name)
		c.refs.AddNode(name)
		Walk(def, name, func(path string, n Node) bool {
			c.node(name, path, n)
			return true
		})
	}
	if s.Entry != "" {
		if _, ok := s.Lookup(s.Entry); !ok {
			c.add(SeverityError, types.DiagMissingEntry, "", "entry point %q is not defined", s.Entry)
		}
	}
	for _, cycle := range c.refs.Cycles() {
		c.add(SeverityWarning, types.DiagReferenceCycle, cycle[0],
			"reference cycle through %s; recursion that consumes no bytes does not terminate",
			strings.Join(cycle, ", "))
	}
	return c.diags
}

type checker struct {
	schema *Schema
	refs   *graph.Graph
	diags  []Diagnostic
}

func (c *checker) add(sev Severity, code, path, format string, args ...any) {
	c.diags = append(c.diags, Diagnostic{
		Severity: sev,
		Code:     code,
		Path:     path,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *checker) node(def, path string, n Node) {
	switch n := n.(type) {
	case *Named:
		if _, ok := c.schema.Lookup(n.Ref); !ok {
			c.add(SeverityError, types.DiagUndefinedReference, path, "undefined reference %q", n.Ref)
			return
		}
		c.refs.AddEdge(def, n.Ref)
	case *Struct:
		c.members(path, n.Members)
	case *Union:
		c.members(path, n.Members)
	case *Variant:
		if len(n.Alternatives) == 0 {
			c.add(SeverityError, types.DiagEmptyVariant, path, "variant has no alternatives")
		}
	case *Repeat:
		c.repeat(path, n)
	case *Switch:
		if n.Discriminant == nil {
			c.add(SeverityError, types.DiagIllegalSize, path, "switch has no discriminant")
		}
	case *BitStruct:
		for _, b := range n.Bits {
			if b.Width < 1 || b.Width > 64 {
				c.add(SeverityError, types.DiagBitWidth, path+"."+b.Name,
					"bit width %d outside 1..64", b.Width)
			}
		}
	case *Field:
		if msg := sizeProblem(n); msg != "" {
			c.add(SeverityError, types.DiagIllegalSize, path, "%s %s size: %s", n.Primitive, n.Size.Kind, msg)
		}
	}
}

func (c *checker) members(path string, members []Member) {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.Name == "" {
			continue
		}
		if seen[m.Name] {
			c.add(SeverityWarning, types.DiagDuplicateMember, path,
				"member %q is declared more than once; the last value wins", m.Name)
		}
		seen[m.Name] = true
	}
}

func (c *checker) repeat(path string, r *Repeat) {
	switch r.Mode {
	case RepeatCount:
		if r.Count == nil {
			c.add(SeverityError, types.DiagIllegalSize, path, "count repeat has no count expression")
		}
	case RepeatUntil:
		if r.Until == nil {
			c.add(SeverityError, types.DiagIllegalSize, path, "until repeat has no condition")
		}
		if size := StaticSize(r.Element); size.Known && size.Bytes == 0 {
			c.add(SeverityWarning, types.DiagZeroProgressRepeat, path,
				"element consumes no bytes; the loop cannot make progress")
		}
	}
}

// sizeProblem returns why f's size policy cannot work, or "".
func sizeProblem(f *Field) string {
	p, size := f.Primitive, f.Size
	switch size.Kind {
	case SizeNatural:
		if p.Width() == 0 {
			return "primitive has no natural width"
		}
	case SizeFixed:
		if size.Bytes < 0 {
			return fmt.Sprintf("negative length %d", size.Bytes)
		}
		if f.Delegate == nil {
			return widthProblem(p, size.Bytes)
		}
	case SizeExpr:
		if size.Expr == nil {
			return "missing expression"
		}
	case SizePrefixed:
		switch size.Width {
		case 0, 1, 2, 4, 8:
		default:
			return fmt.Sprintf("prefix width %d not one of 1, 2, 4, 8", size.Width)
		}
	case SizeTerminated:
		if len(size.Terminator) == 0 {
			return "empty terminator"
		}
	case SizeRemaining:
	default:
		return "unknown policy"
	}
	return ""
}

// widthProblem checks a constant length against the primitive decoding it.
func widthProblem(p Primitive, n int64) string {
	switch {
	case p == Uint || p == Int:
		if n < 1 || n > 8 {
			return fmt.Sprintf("integer width %d outside 1..8", n)
		}
	case p.Width() > 0 && int64(p.Width()) != n:
		return fmt.Sprintf("length %d does not match natural width %d", n, p.Width())
	}
	return ""
}
