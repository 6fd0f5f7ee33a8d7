package grammar

import (
	"fmt"
	"sync"

	"github.com/wiregram/wiregram/expr"
)

// Kind identifies a node type.
type Kind int

const (
	KindStruct Kind = iota
	KindUnion
	KindVariant
	KindRepeat
	KindSwitch
	KindNamed
	KindBitStruct
	KindField
)

func (k Kind) String() string {
	switch k {
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	case KindVariant:
		return "variant"
	case KindRepeat:
		return "repeat"
	case KindSwitch:
		return "switch"
	case KindNamed:
		return "named"
	case KindBitStruct:
		return "bitstruct"
	case KindField:
		return "field"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ParseKind returns the Kind named by s, as produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindStruct; k <= KindField; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Node is one grammar construct. The set of implementations is closed:
// *Struct, *Union, *Variant, *Repeat, *Switch, *Named, *BitStruct, *Field.
type Node interface {
	Kind() Kind
	// Params returns the node's own parameters. The result may be nil.
	Params() *Params
	// SetParam declares a parameter on the node.
	SetParam(key string, value any)
	node()
}

type nodeBase struct {
	params *Params
}

func (b *nodeBase) Params() *Params { return b.params }
func (*nodeBase) node()             {}

func (b *nodeBase) SetParam(key string, value any) {
	if b.params == nil {
		b.params = NewParams()
	}
	b.params.Set(key, value)
}

// With declares a parameter on n and returns n, for building schemas in
// code.
func With[N Node](n N, key string, value any) N {
	n.SetParam(key, value)
	return n
}

// Member is a named child of a Struct or Union.
type Member struct {
	Name string
	Node Node
}

// Struct reads its members in order, one after another.
type Struct struct {
	nodeBase
	Members []Member
}

func (*Struct) Kind() Kind { return KindStruct }

// Union reads every member from the same start offset. The cursor ends at
// the furthest point any member reached.
type Union struct {
	nodeBase
	Members []Member
}

func (*Union) Kind() Kind { return KindUnion }

// Variant tries alternatives in order; the first that does not fail as
// invalid wins.
type Variant struct {
	nodeBase
	Alternatives []Node
}

func (*Variant) Kind() Kind { return KindVariant }

// RepeatMode selects how a Repeat terminates.
type RepeatMode int

const (
	RepeatCount RepeatMode = iota // fixed number of elements
	RepeatUntil                   // until a condition holds or the element fails
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatCount:
		return "count"
	case RepeatUntil:
		return "until"
	default:
		return fmt.Sprintf("RepeatMode(%d)", m)
	}
}

// Repeat reads Element repeatedly. In RepeatCount mode Count is evaluated
// once; in RepeatUntil mode Until is evaluated after each element.
type Repeat struct {
	nodeBase
	Element Node
	Mode    RepeatMode
	Count   *expr.Expression
	Until   *expr.Expression
	// StopOnInvalid ends an Until loop quietly when an element is invalid.
	StopOnInvalid bool
}

func (*Repeat) Kind() Kind { return KindRepeat }

// Case is one arm of a Switch. A nil Match is the default arm.
type Case struct {
	Match *expr.Expression
	Node  Node
}

// Switch evaluates Discriminant and runs the first case whose match value
// equals it. With no matching case the value is nil.
type Switch struct {
	nodeBase
	Discriminant *expr.Expression
	Cases        []Case
}

func (*Switch) Kind() Kind { return KindSwitch }

// Named refers to a definition in the owning Schema. The reference is
// bound when the enclosing definition is added to a Schema and resolved
// on first use.
type Named struct {
	nodeBase
	Ref string

	mu     sync.Mutex
	schema *Schema
	target Node
}

func (*Named) Kind() Kind { return KindNamed }

// Target resolves the reference, memoizing the result on success.
func (n *Named) Target() (Node, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.target != nil {
		return n.target, nil
	}
	if n.schema == nil {
		return nil, fmt.Errorf("reference %q: %w", n.Ref, ErrUnbound)
	}
	target, err := n.schema.Resolve(n.Ref)
	if err != nil {
		return nil, err
	}
	n.target = target
	return target, nil
}

// Resolved reports whether Target has already succeeded.
func (n *Named) Resolved() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target != nil
}

func (n *Named) bind(s *Schema) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.schema != s {
		n.schema = s
		n.target = nil
	}
}

// BitMember is one fixed-width unsigned field of a BitStruct.
type BitMember struct {
	Name  string
	Width int // bits, 1..64
}

// BitStruct reads ceil(total bits / 8) bytes and slices them into
// unsigned fields in declaration order.
type BitStruct struct {
	nodeBase
	Bits []BitMember
}

func (*BitStruct) Kind() Kind { return KindBitStruct }

// TotalBits returns the sum of member widths.
func (b *BitStruct) TotalBits() int {
	total := 0
	for _, m := range b.Bits {
		total += m.Width
	}
	return total
}

// Field is a leaf: a primitive value of some size. With a Delegate, the
// sized bytes are parsed by the delegate instead of decoded directly.
type Field struct {
	nodeBase
	Primitive Primitive
	Size      SizePolicy
	Delegate  Node
}

func (*Field) Kind() Kind { return KindField }

// NewField returns a field of the given primitive and size policy.
func NewField(p Primitive, size SizePolicy) *Field {
	return &Field{Primitive: p, Size: size}
}

// Children returns the direct child nodes of n in declaration order. Named
// targets are not children.
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Struct:
		return memberNodes(n.Members)
	case *Union:
		return memberNodes(n.Members)
	case *Variant:
		return n.Alternatives
	case *Repeat:
		if n.Element != nil {
			return []Node{n.Element}
		}
	case *Switch:
		out := make([]Node, 0, len(n.Cases))
		for _, c := range n.Cases {
			out = append(out, c.Node)
		}
		return out
	case *Field:
		if n.Delegate != nil {
			return []Node{n.Delegate}
		}
	}
	return nil
}

func memberNodes(members []Member) []Node {
	out := make([]Node, 0, len(members))
	for _, m := range members {
		out = append(out, m.Node)
	}
	return out
}

// Walk calls fn for n and every descendant in depth-first order, passing a
// dotted path relative to prefix. Returning false skips the node's
// children. Named references are not followed.
func Walk(n Node, prefix string, fn func(path string, n Node) bool) {
	if n == nil || !fn(prefix, n) {
		return
	}
	switch n := n.(type) {
	case *Struct:
		walkMembers(n.Members, prefix, fn)
	case *Union:
		walkMembers(n.Members, prefix, fn)
	case *Variant:
		for i, alt := range n.Alternatives {
			Walk(alt, fmt.Sprintf("%s[%d]", prefix, i), fn)
		}
	case *Repeat:
		Walk(n.Element, prefix+"[]", fn)
	case *Switch:
		for i, c := range n.Cases {
			Walk(c.Node, fmt.Sprintf("%s{case %d}", prefix, i), fn)
		}
	case *Field:
		Walk(n.Delegate, prefix, fn)
	}
}

func walkMembers(members []Member, prefix string, fn func(string, Node) bool) {
	for _, m := range members {
		path := m.Name
		if prefix != "" {
			path = prefix + "." + m.Name
		}
		Walk(m.Node, path, fn)
	}
}
