package wiregram

import (
	"github.com/wiregram/wiregram/engine"
	"github.com/wiregram/wiregram/grammar"
)

// Type aliases for the public API. The node model lives in grammar and the
// parse machinery in engine.

// Schema is a set of named grammar definitions.
type Schema = grammar.Schema

// Node is one grammar construct.
type Node = grammar.Node

// Diagnostic is a schema check finding.
type Diagnostic = grammar.Diagnostic

// Severity ranks diagnostics.
type Severity = grammar.Severity

// Severity constants.
const (
	SeverityError   = grammar.SeverityError
	SeverityWarning = grammar.SeverityWarning
	SeverityInfo    = grammar.SeverityInfo
)

// ParseOption configures a parse.
type ParseOption = engine.Option

// Error is a structured parse failure.
type Error = engine.Error

// ErrorKind classifies parse failures.
type ErrorKind = engine.ErrorKind

// Error kinds.
const (
	Incomplete    = engine.Incomplete
	Invalid       = engine.Invalid
	ValueNotFound = engine.ValueNotFound
	SpecError     = engine.SpecError
)

// Sentinels for errors.Is.
var (
	ErrIncomplete    = engine.ErrIncomplete
	ErrInvalid       = engine.ErrInvalid
	ErrValueNotFound = engine.ErrValueNotFound
	ErrSpec          = engine.ErrSpec
	ErrNoEntry       = grammar.ErrNoEntry
)

// Range is an annotated value.
type Range = engine.Range

// Category is a group of reassembled streams.
type Category = engine.Category

// Parse options.
var (
	WithAnnotate     = engine.WithAnnotate
	WithParseEntry   = engine.WithEntry
	WithParseLogger  = engine.WithLogger
	WithCategoryHook = engine.WithCategoryHook
	WithDiscard      = engine.WithDiscard
	WithMaxDepth     = engine.WithMaxDepth
)

// Plain strips annotations from a value tree.
var Plain = engine.Plain

// Locate finds the innermost range containing an offset.
var Locate = engine.Locate

// JSON prepares a value tree for encoding/json: key order is kept and
// byte strings become hex.
var JSON = engine.JSON
