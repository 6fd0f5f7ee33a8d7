package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a parse failure.
type ErrorKind int

const (
	// Incomplete means more bytes are needed; retry after Feed.
	Incomplete ErrorKind = iota
	// Invalid means the bytes do not match this node.
	Invalid
	// ValueNotFound means a name or parameter could not be resolved.
	ValueNotFound
	// SpecError means the grammar itself is contradictory.
	SpecError
)

func (k ErrorKind) String() string {
	switch k {
	case Incomplete:
		return "incomplete"
	case Invalid:
		return "invalid"
	case ValueNotFound:
		return "value_not_found"
	case SpecError:
		return "spec_error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	ErrIncomplete    = errors.New("incomplete")
	ErrInvalid       = errors.New("invalid")
	ErrValueNotFound = errors.New("value not found")
	ErrSpec          = errors.New("spec error")
)

var kindSentinels = [...]error{
	Incomplete:    ErrIncomplete,
	Invalid:       ErrInvalid,
	ValueNotFound: ErrValueNotFound,
	SpecError:     ErrSpec,
}

// Error is a structured parse failure.
type Error struct {
	Kind ErrorKind
	// Offset is the display offset (including discarded prefix) at which
	// the failure was detected.
	Offset int64
	// Path is the dotted member path of the failing node.
	Path string
	Msg  string
	// Context is a hex dump of the bytes around Offset, starting at
	// ContextStart.
	Context      string
	ContextStart int64
	Err          error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	fmt.Fprintf(&b, " at offset %d", e.Offset)
	if e.Path != "" {
		b.WriteString(" in ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	return int(e.Kind) < len(kindSentinels) && kindSentinels[e.Kind] == target
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return 0, false
}
