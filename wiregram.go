// Package wiregram parses binary data with declarative grammars.
//
// A grammar is a schema of named type nodes (structs, unions, variants,
// repeats, switches, bit structs and primitive fields) usually loaded from
// YAML documents. Parsing produces an ordered value tree, or in annotating
// mode a tree of byte ranges that records where every value came from.
//
//	schema, err := wiregram.LoadSchema(ctx, wiregram.MustDir("./schemas"),
//	    wiregram.WithEntry("packet"),
//	    wiregram.WithLogger(slog.Default()),
//	)
//	value, err := wiregram.Parse(schema, data)
package wiregram

import (
	"errors"
	"log/slog"

	"github.com/wiregram/wiregram/engine"
	"github.com/wiregram/wiregram/grammar"
	"github.com/wiregram/wiregram/internal/types"
)

// ErrNoSources is returned when LoadSchema is called with no sources.
var ErrNoSources = errors.New("no schema sources provided")

// LevelTrace is a custom log level more verbose than Debug.
// Use for per-node evaluation logging (push, fail, variant back-tracking).
// Enable with: &slog.HandlerOptions{Level: slog.Level(-8)}
const LevelTrace = types.LevelTrace

// LoadOption configures LoadSchema.
type LoadOption func(*loadConfig)

type loadConfig struct {
	logger      *slog.Logger
	entry       string
	systemPaths bool
	workers     int
}

// WithLogger sets the logger for debug/trace output.
// If not set, no logging occurs (zero overhead).
func WithLogger(logger *slog.Logger) LoadOption {
	return func(c *loadConfig) { c.logger = logger }
}

// WithEntry sets the entry point of the loaded schema, overriding any
// entry declared by the documents.
func WithEntry(name string) LoadOption {
	return func(c *loadConfig) { c.entry = name }
}

// WithWorkers bounds the number of schema files decoded concurrently.
// Zero or less uses the number of CPUs.
func WithWorkers(n int) LoadOption {
	return func(c *loadConfig) { c.workers = n }
}

// Parse runs schema's entry point over data. It is shorthand for
// engine.Parse.
func Parse(schema *grammar.Schema, data []byte, opts ...ParseOption) (any, error) {
	return engine.Parse(schema, data, opts...)
}

// NewContext returns a reusable parse context for streaming input.
func NewContext(schema *grammar.Schema, opts ...ParseOption) *engine.Context {
	return engine.New(schema, opts...)
}
