// Package engine executes grammars against bytes.
//
// A Context holds one byte source and evaluates type nodes against it by
// recursive descent, building a value tree that mirrors the grammar:
// ordered dicts for Struct, Union, and BitStruct, lists for Repeat, and a
// single value for everything else. With WithAnnotate every value is
// wrapped in a *Range carrying its byte offsets.
//
// Failures are *Error values of four kinds. Only Variant recovers from
// invalid input by trying its next alternative; incomplete input
// propagates so that streaming callers can Feed more bytes and retry.
//
// A Context is not safe for concurrent use. A grammar.Schema may be shared
// between contexts once ResolveAll has run.
package engine
