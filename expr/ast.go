package expr

// node is one expression AST node. The set of node types is closed.
type node interface {
	pos() int
	exprNode()
}

type nodeBase struct {
	at int
}

func (n *nodeBase) pos() int { return n.at }
func (*nodeBase) exprNode()  {}

// literalNode is a constant value.
type literalNode struct {
	nodeBase
	value any
}

// nameNode resolves through Scope.Lookup.
type nameNode struct {
	nodeBase
	name string
}

// paramNode resolves through Scope.Param.
type paramNode struct {
	nodeBase
	name string
}

// listNode builds a []any.
type listNode struct {
	nodeBase
	items []node
}

type unaryNode struct {
	nodeBase
	op      TokenKind
	operand node
}

type binaryNode struct {
	nodeBase
	op          TokenKind
	left, right node
}

// logicalNode is && or ||; the right side is evaluated only when needed.
type logicalNode struct {
	nodeBase
	op          TokenKind
	left, right node
}

type ternaryNode struct {
	nodeBase
	cond, then, otherwise node
}

type memberNode struct {
	nodeBase
	target node
	name   string
}

type indexNode struct {
	nodeBase
	target node
	index  node
}

// callNode invokes a registered pure function by name.
type callNode struct {
	nodeBase
	fn   string
	args []node
}
