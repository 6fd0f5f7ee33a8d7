package expr

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Evaluate computes the expression's value in scope. Evaluation has no
// side effects on the scope.
func (e *Expression) Evaluate(scope Scope) (any, error) {
	ev := evaluator{source: e.source, scope: scope}
	return ev.eval(e.root)
}

// EvaluateInt evaluates and converts the result to int64.
func (e *Expression) EvaluateInt(scope Scope) (int64, error) {
	v, err := e.Evaluate(scope)
	if err != nil {
		return 0, err
	}
	i, err := ToInt(v)
	if err != nil {
		return 0, &EvalError{Expr: e.source, Msg: "expected integer result", Err: err}
	}
	return i, nil
}

// EvaluateBool evaluates and returns the truthiness of the result.
func (e *Expression) EvaluateBool(scope Scope) (bool, error) {
	v, err := e.Evaluate(scope)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

type evaluator struct {
	source string
	scope  Scope
}

func (ev *evaluator) fail(n node, msg string, err error) error {
	var ee *EvalError
	if errors.As(err, &ee) {
		return err
	}
	return &EvalError{Expr: fmt.Sprintf("%s (at %d)", ev.source, n.pos()), Msg: msg, Err: err}
}

func (ev *evaluator) eval(n node) (any, error) {
	switch n := n.(type) {
	case *literalNode:
		return n.value, nil
	case *nameNode:
		v, err := ev.scope.Lookup(n.name)
		if err != nil {
			return nil, ev.fail(n, "lookup", err)
		}
		return v, nil
	case *paramNode:
		v, err := ev.scope.Param(n.name)
		if err != nil {
			return nil, ev.fail(n, "parameter", err)
		}
		return v, nil
	case *listNode:
		items := make([]any, 0, len(n.items))
		for _, item := range n.items {
			v, err := ev.eval(item)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case *unaryNode:
		v, err := ev.eval(n.operand)
		if err != nil {
			return nil, err
		}
		r, err := unary(n.op, v)
		if err != nil {
			return nil, ev.fail(n, n.op.String(), err)
		}
		return r, nil
	case *logicalNode:
		left, err := ev.eval(n.left)
		if err != nil {
			return nil, err
		}
		if n.op == TokAndAnd && !Truthy(left) {
			return false, nil
		}
		if n.op == TokOrOr && Truthy(left) {
			return true, nil
		}
		right, err := ev.eval(n.right)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	case *binaryNode:
		left, err := ev.eval(n.left)
		if err != nil {
			return nil, err
		}
		right, err := ev.eval(n.right)
		if err != nil {
			return nil, err
		}
		// A map on the left of '/' is a key lookup. This overload exists for
		// compatibility with existing grammars and applies to '/' only.
		if n.op == TokSlash && isMapValue(left) {
			v, err := ev.scope.Member(left, ToString(right))
			if err != nil {
				return nil, ev.fail(n, "map lookup", err)
			}
			return v, nil
		}
		r, err := binary(n.op, left, right)
		if err != nil {
			return nil, ev.fail(n, n.op.String(), err)
		}
		return r, nil
	case *ternaryNode:
		cond, err := ev.eval(n.cond)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return ev.eval(n.then)
		}
		return ev.eval(n.otherwise)
	case *memberNode:
		target, err := ev.eval(n.target)
		if err != nil {
			return nil, err
		}
		v, err := ev.scope.Member(target, n.name)
		if err != nil {
			return nil, ev.fail(n, "member", err)
		}
		return v, nil
	case *indexNode:
		target, err := ev.eval(n.target)
		if err != nil {
			return nil, err
		}
		idx, err := ev.eval(n.index)
		if err != nil {
			return nil, err
		}
		v, err := ev.scope.Index(target, idx)
		if err != nil {
			return nil, ev.fail(n, "index", err)
		}
		return v, nil
	case *callNode:
		fn, ok := ev.scope.Func(n.fn)
		if !ok {
			return nil, ev.fail(n, "call", NotFound("function", n.fn))
		}
		args := make([]any, 0, len(n.args))
		for _, arg := range n.args {
			v, err := ev.eval(arg)
			if err != nil {
				return nil, err
			}
			args = append(args, Unwrap(v))
		}
		v, err := fn(args)
		if err != nil {
			return nil, ev.fail(n, n.fn+"()", err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("expr: unknown node %T", n)
}

func unary(op TokenKind, v any) (any, error) {
	if op == TokBang {
		return !Truthy(v), nil
	}
	n, ok := toNumber(v)
	if !ok {
		return nil, fmt.Errorf("operand is %s, not a number", typeName(Unwrap(v)))
	}
	switch op {
	case TokMinus:
		switch {
		case n.isFloat:
			return -n.f, nil
		case n.isUint:
			return nil, fmt.Errorf("negation of %d overflows", n.u)
		}
		return -n.i, nil
	case TokTilde:
		switch {
		case n.isFloat:
			return nil, fmt.Errorf("bitwise not on float")
		case n.isUint:
			return ^n.u, nil
		}
		return ^n.i, nil
	}
	return nil, fmt.Errorf("unsupported unary operator")
}

func binary(op TokenKind, a, b any) (any, error) {
	switch op {
	case TokEq:
		return Equal(a, b), nil
	case TokNe:
		return !Equal(a, b), nil
	case TokLt, TokLe, TokGt, TokGe:
		c, err := Compare(a, b)
		if err != nil {
			return nil, err
		}
		switch op {
		case TokLt:
			return c < 0, nil
		case TokLe:
			return c <= 0, nil
		case TokGt:
			return c > 0, nil
		}
		return c >= 0, nil
	}

	ua, ub := Unwrap(a), Unwrap(b)
	if op == TokPlus {
		switch x := ua.(type) {
		case string:
			if y, ok := ub.(string); ok {
				return x + y, nil
			}
		case []byte:
			if y, ok := ub.([]byte); ok {
				return append(slices.Clone(x), y...), nil
			}
		case []any:
			if y, ok := ub.([]any); ok {
				return append(slices.Clone(x), y...), nil
			}
		}
	}

	na, ok := toNumber(ua)
	if !ok {
		return nil, fmt.Errorf("left operand is %s, not a number", typeName(ua))
	}
	nb, ok := toNumber(ub)
	if !ok {
		return nil, fmt.Errorf("right operand is %s, not a number", typeName(ub))
	}
	if na.isFloat || nb.isFloat {
		return floatOp(op, na.float(), nb.float())
	}
	if na.isUint || nb.isUint {
		if (!na.isUint && na.i < 0) || (!nb.isUint && nb.i < 0) {
			return nil, fmt.Errorf("mixing negative and 64-bit unsigned operands")
		}
		xa, xb := na.u, nb.u
		if !na.isUint {
			xa = uint64(na.i)
		}
		if !nb.isUint {
			xb = uint64(nb.i)
		}
		r, err := uintOp(op, xa, xb)
		if err != nil {
			return nil, err
		}
		return fromUint(r).value(), nil
	}
	return intOp(op, na.i, nb.i)
}

func floatOp(op TokenKind, a, b float64) (any, error) {
	switch op {
	case TokPlus:
		return a + b, nil
	case TokMinus:
		return a - b, nil
	case TokStar:
		return a * b, nil
	case TokSlash:
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a / b, nil
	case TokPercent:
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return math.Mod(a, b), nil
	}
	return nil, fmt.Errorf("operator %s is not defined on floats", op)
}

func intOp(op TokenKind, a, b int64) (any, error) {
	switch op {
	case TokPlus:
		return a + b, nil
	case TokMinus:
		return a - b, nil
	case TokStar:
		return a * b, nil
	case TokSlash, TokPercent:
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		if op == TokSlash {
			return a / b, nil
		}
		return a % b, nil
	case TokAmp:
		return a & b, nil
	case TokPipe:
		return a | b, nil
	case TokCaret:
		return a ^ b, nil
	case TokShl, TokShr:
		if b < 0 || b > 63 {
			return nil, fmt.Errorf("shift count %d out of range", b)
		}
		if op == TokShl {
			return a << uint(b), nil
		}
		return a >> uint(b), nil
	}
	return nil, fmt.Errorf("unsupported operator %s", op)
}

func uintOp(op TokenKind, a, b uint64) (uint64, error) {
	switch op {
	case TokPlus:
		return a + b, nil
	case TokMinus:
		return a - b, nil
	case TokStar:
		return a * b, nil
	case TokSlash, TokPercent:
		if b == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		if op == TokSlash {
			return a / b, nil
		}
		return a % b, nil
	case TokAmp:
		return a & b, nil
	case TokPipe:
		return a | b, nil
	case TokCaret:
		return a ^ b, nil
	case TokShl, TokShr:
		if b > 63 {
			return 0, fmt.Errorf("shift count %d out of range", b)
		}
		if op == TokShl {
			return a << b, nil
		}
		return a >> b, nil
	}
	return 0, fmt.Errorf("unsupported operator %s", op)
}
