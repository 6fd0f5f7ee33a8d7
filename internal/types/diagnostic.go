package types

import (
	"strings"
)

// Severity indicates how serious a schema diagnostic is.
// Lower values are more severe.
type Severity int

const (
	SeverityError   Severity = iota // schema cannot be executed as written
	SeverityWarning                 // executable, but likely to misbehave on some input
	SeverityInfo                    // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Diagnostic codes emitted by schema checks.
const (
	DiagUndefinedReference = "undefined-reference"
	DiagReferenceCycle     = "reference-cycle"
	DiagIllegalSize        = "illegal-size-policy"
	DiagZeroProgressRepeat = "zero-progress-repeat"
	DiagEmptyVariant       = "empty-variant"
	DiagBitWidth           = "bit-width"
	DiagMissingEntry       = "missing-entry"
	DiagDuplicateMember    = "duplicate-member"
)

// Diagnostic represents an issue found while checking a schema.
type Diagnostic struct {
	Severity Severity
	Code     string // e.g. "undefined-reference"
	Path     string // definition name and member path, e.g. "packet.header.flags"
	Message  string
}

// String returns a human-readable representation of the diagnostic.
// Format: "[severity] path: message" with the path omitted when empty.
func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(d.Severity.String())
	b.WriteByte(']')
	b.WriteByte(' ')
	if d.Path != "" {
		b.WriteString(d.Path)
		b.WriteString(": ")
	}
	b.WriteString(d.Message)
	return b.String()
}
