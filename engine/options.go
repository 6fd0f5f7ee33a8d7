package engine

import "log/slog"

// DefaultMaxDepth bounds the frame stack. Grammars that recurse through
// Named references without consuming bytes hit it instead of exhausting
// the goroutine stack.
const DefaultMaxDepth = 512

// Option configures a Context.
type Option func(*config)

type config struct {
	annotate bool
	logger   *slog.Logger
	entry    string
	hook     func(*Category)
	discard  bool
	maxDepth int
}

func defaultConfig() config {
	return config{discard: true, maxDepth: DefaultMaxDepth}
}

// WithAnnotate wraps every produced value in a *Range.
func WithAnnotate(annotate bool) Option {
	return func(c *config) { c.annotate = annotate }
}

// WithLogger sets the logger for debug/trace output.
// If not set, no logging occurs (zero overhead).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEntry overrides the schema's entry point for Parse.
func WithEntry(name string) Option {
	return func(c *config) { c.entry = name }
}

// WithCategoryHook registers fn to be called once for each reassembly
// category, when it is first created.
func WithCategoryHook(fn func(*Category)) Option {
	return func(c *config) { c.hook = fn }
}

// WithDiscard controls whether a successful Parse drops the consumed
// prefix from the buffer. Enabled by default; offsets stay stable either
// way.
func WithDiscard(discard bool) Option {
	return func(c *config) { c.discard = discard }
}

// WithMaxDepth sets the frame stack limit. Zero or less restores
// DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth <= 0 {
			depth = DefaultMaxDepth
		}
		c.maxDepth = depth
	}
}
