package expr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned (wrapped) by Scope lookups when a name cannot be
// resolved anywhere in the scope chain.
var ErrNotFound = errors.New("not found")

// SyntaxError reports malformed expression text.
type SyntaxError struct {
	Source string
	Pos    int // byte offset into Source
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("expr: syntax error at %d in %q: %s", e.Pos, e.Source, e.Msg)
}

// EvalError reports a failure while evaluating an expression.
type EvalError struct {
	Expr string // source of the failing (sub)expression
	Msg  string
	Err  error
}

func (e *EvalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("expr: %s: %s: %v", e.Expr, e.Msg, e.Err)
	}
	return fmt.Sprintf("expr: %s: %s", e.Expr, e.Msg)
}

func (e *EvalError) Unwrap() error { return e.Err }

// NotFound returns an error for an unresolvable name that matches
// ErrNotFound with errors.Is.
func NotFound(what, name string) error {
	return fmt.Errorf("%s %q: %w", what, name, ErrNotFound)
}
