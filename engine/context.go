package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Velocidex/ordereddict"

	"github.com/wiregram/wiregram/expr"
	"github.com/wiregram/wiregram/grammar"
	"github.com/wiregram/wiregram/internal/types"
)

// Context is one parse execution over a byte buffer. It can be reused for
// repeated Feed and Parse cycles over a stream.
type Context struct {
	types.Logger
	schema *grammar.Schema
	cfg    config

	buf   []byte
	pos   int // cursor into buf
	limit int // exclusive bound set by a delegating field, -1 when unbounded
	bias  int64

	frames      []frame
	failure     *Error
	rootPartial any

	// resolving maps a parameter whose declaration is being evaluated to
	// the frame declaring it. Lookups of that key inside the declaration
	// start below that frame.
	resolving  map[string]int
	paramDepth int

	// journal holds reassembly appends of the parse in progress. They are
	// committed when the top-level parse ends in anything but Incomplete,
	// which is retried over the same bytes.
	journal    []pendingSegment
	categories []*Category
	byCategory map[string]*Category
}

// frame is one active node evaluation.
type frame struct {
	node  grammar.Node
	name  string
	start int
	limit int
	// fields holds the names visible to expressions from this frame: the
	// record being built, or the last element of a repeat.
	fields any
	// vars holds loop variables such as _ and _index.
	vars map[string]any
	// meta collects derived annotations for the node's Range.
	meta *ordereddict.Dict
}

// New returns a Context that parses with schema.
func New(schema *grammar.Schema, opts ...Option) *Context {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Context{
		Logger:     types.Logger{L: types.Component(cfg.logger, "engine")},
		schema:     schema,
		cfg:        cfg,
		limit:      -1,
		byCategory: make(map[string]*Category),
	}
}

// Parse runs schema's entry point over data in a fresh Context.
func Parse(schema *grammar.Schema, data []byte, opts ...Option) (any, error) {
	c := New(schema, opts...)
	c.Feed(data)
	return c.Parse()
}

// Feed appends data to the buffer.
func (c *Context) Feed(data []byte) {
	c.buf = append(c.buf, data...)
}

// Offset returns the display offset of the cursor.
func (c *Context) Offset() int64 {
	return c.bias + int64(c.pos)
}

// Buffered returns the number of fed bytes not yet consumed.
func (c *Context) Buffered() int {
	return len(c.buf) - c.pos
}

// Failure returns the most recently recorded failure, or nil. Failures
// swallowed by a Repeat stay recorded; failures recovered by a Variant
// are cleared.
func (c *Context) Failure() *Error {
	return c.failure
}

// Parse evaluates the entry point at the cursor. See ParseNode.
func (c *Context) Parse() (any, error) {
	if c.schema == nil {
		return nil, grammar.ErrNoEntry
	}
	name := c.cfg.entry
	if name == "" {
		var err error
		if name, err = c.schema.EntryName(); err != nil {
			return nil, err
		}
	}
	n, err := c.schema.Resolve(name)
	if err != nil {
		return nil, err
	}
	return c.parse(n, name)
}

// ParseNode evaluates n at the cursor.
//
// On success the cursor moves past the consumed bytes, which are dropped
// from the buffer unless WithDiscard(false) was given. On failure the
// cursor is left where it was, so an Incomplete parse can be retried after
// feeding more bytes. The returned value is then the partial result: the
// error-tagged *Range in annotating mode, or the partially built value.
// Reassembly segments of nodes that finished before a failure are kept,
// except when the failure is Incomplete.
func (c *Context) ParseNode(n grammar.Node) (any, error) {
	return c.parse(n, "")
}

func (c *Context) parse(n grammar.Node, name string) (any, error) {
	start := c.pos
	c.frames = c.frames[:0]
	c.failure = nil
	c.rootPartial = nil
	c.limit = -1
	c.journal = c.journal[:0]

	v, err := c.eval(n, name)
	if err != nil {
		if kind, _ := KindOf(err); kind == Incomplete {
			c.journal = c.journal[:0]
		} else {
			c.commit()
		}
		c.Log(slog.LevelDebug, "parse failed",
			slog.String("node", name),
			slog.Int64("offset", c.bias+int64(start)),
			slog.String("error", err.Error()))
		if c.cfg.annotate {
			return v, err
		}
		return c.rootPartial, err
	}

	c.commit()
	consumed := c.pos - start
	c.Log(slog.LevelDebug, "parse complete",
		slog.String("node", name),
		slog.Int64("offset", c.bias+int64(start)),
		slog.Int("consumed", consumed))
	if c.cfg.discard {
		c.discard()
	}
	return v, nil
}

// discard drops the consumed prefix and grows the display bias.
func (c *Context) discard() {
	if c.pos == 0 {
		return
	}
	c.bias += int64(c.pos)
	c.buf = c.buf[c.pos:]
	c.pos = 0
}

// end is the exclusive bound of readable bytes.
func (c *Context) end() int {
	if c.limit >= 0 {
		return c.limit
	}
	return len(c.buf)
}

// check verifies that n bytes can be read at the cursor. Running past a
// delegate's bound is invalid; running past the fed bytes is incomplete.
func (c *Context) check(n int) error {
	switch {
	case n < 0:
		return c.newError(Invalid, nil, "negative length %d", n)
	case c.pos+n <= c.end():
		return nil
	case c.limit >= 0:
		return c.newError(Invalid, nil, "need %d bytes, %d left in bounded region", n, c.end()-c.pos)
	default:
		return c.newError(Incomplete, nil, "need %d bytes, have %d", n, c.end()-c.pos)
	}
}

// take consumes n bytes.
func (c *Context) take(n int) ([]byte, error) {
	if err := c.check(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *Context) path() string {
	var b strings.Builder
	for _, fr := range c.frames {
		if fr.name == "" {
			continue
		}
		if b.Len() > 0 && !strings.HasPrefix(fr.name, "[") {
			b.WriteByte('.')
		}
		b.WriteString(fr.name)
	}
	return b.String()
}

func (c *Context) newError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return c.newErrorAt(c.pos, kind, cause, format, args...)
}

// newErrorAt builds an error located at buffer position pos.
func (c *Context) newErrorAt(pos int, kind ErrorKind, cause error, format string, args ...any) *Error {
	dump, start := types.HexContext(c.buf, pos)
	return &Error{
		Kind:         kind,
		Offset:       c.bias + int64(pos),
		Path:         c.path(),
		Msg:          fmt.Sprintf(format, args...),
		Context:      dump,
		ContextStart: c.bias + int64(start),
		Err:          cause,
	}
}

// exprError classifies an expression failure: unresolved names are
// value_not_found, anything else is a grammar error.
func (c *Context) exprError(err error, what string) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	kind := SpecError
	if errors.Is(err, expr.ErrNotFound) {
		kind = ValueNotFound
	}
	return c.newError(kind, err, "%s", what)
}

// record stores err on the failure slot, converting foreign errors.
func (c *Context) record(err error) *Error {
	var pe *Error
	if !errors.As(err, &pe) {
		pe = c.newError(SpecError, err, "internal failure")
	}
	c.failure = pe
	return pe
}

// param returns the value of key from the innermost frame declaring it.
// Expression values are evaluated in the live scope, where $key refers to
// the next declaration further out.
func (c *Context) param(key string) (any, bool, error) {
	top := len(c.frames) - 1
	outer, nested := c.resolving[key]
	if nested {
		top = outer - 1
	}
	for i := top; i >= 0; i-- {
		v, ok := c.frames[i].node.Params().Get(key)
		if !ok {
			continue
		}
		v, err := c.resolveParam(key, i, v)
		return v, true, err
	}
	if nested {
		return nil, true, c.newError(SpecError, nil, "parameter %s refers to itself", key)
	}
	return nil, false, nil
}

// localParam returns key from the current node only.
func (c *Context) localParam(key string) (any, bool, error) {
	top := len(c.frames) - 1
	v, ok := c.frames[top].node.Params().Get(key)
	if !ok {
		return nil, false, nil
	}
	v, err := c.resolveParam(key, top, v)
	return v, true, err
}

// resolveParam evaluates the declaration of key found at frame.
func (c *Context) resolveParam(key string, frame int, v any) (any, error) {
	if _, ok := v.(*expr.Expression); !ok {
		return v, nil
	}
	if c.paramDepth >= c.cfg.maxDepth {
		return nil, c.newError(SpecError, nil, "parameter %s nested deeper than %d lookups", key, c.cfg.maxDepth)
	}
	if c.resolving == nil {
		c.resolving = make(map[string]int)
	}
	prev, had := c.resolving[key]
	c.resolving[key] = frame
	c.paramDepth++
	defer func() {
		c.paramDepth--
		if had {
			c.resolving[key] = prev
		} else {
			delete(c.resolving, key)
		}
	}()
	return c.resolveValue(v, "parameter "+key)
}

func (c *Context) resolveValue(v any, what string) (any, error) {
	e, ok := v.(*expr.Expression)
	if !ok {
		return v, nil
	}
	out, err := e.Evaluate(c.scope())
	if err != nil {
		return nil, c.exprError(err, what)
	}
	return out, nil
}

func (c *Context) paramString(key, def string) (string, error) {
	v, ok, err := c.param(key)
	if err != nil || !ok {
		return def, err
	}
	return expr.ToString(v), nil
}

func (c *Context) paramInt(key string, def int64) (int64, error) {
	v, ok, err := c.param(key)
	if err != nil || !ok {
		return def, err
	}
	i, err := expr.ToInt(v)
	if err != nil {
		return 0, c.newError(SpecError, err, "parameter %s", key)
	}
	return i, nil
}

func (c *Context) evalExpr(e *expr.Expression, what string) (any, error) {
	if e == nil {
		return nil, c.newError(SpecError, nil, "%s: missing expression", what)
	}
	v, err := e.Evaluate(c.scope())
	if err != nil {
		return nil, c.exprError(err, what)
	}
	return v, nil
}

func (c *Context) evalBool(e *expr.Expression, what string) (bool, error) {
	v, err := c.evalExpr(e, what)
	if err != nil {
		return false, err
	}
	return expr.Truthy(v), nil
}

func (c *Context) evalInt(e *expr.Expression, what string) (int64, error) {
	v, err := c.evalExpr(e, what)
	if err != nil {
		return 0, err
	}
	i, err := expr.ToInt(v)
	if err != nil {
		return 0, c.newError(SpecError, err, "%s: %s", what, e.Source())
	}
	return i, nil
}
