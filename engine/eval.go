package engine

import (
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/Velocidex/ordereddict"

	"github.com/wiregram/wiregram/expr"
	"github.com/wiregram/wiregram/grammar"
)

// eval runs one node: push a frame, run the kind logic, check magic,
// journal reassembly, pack the value, pop. On failure the cursor and
// bound are restored, the failure is recorded, and a placeholder (nil, or
// an error-tagged Range when annotating) is returned with the error.
// Segments journaled by descendants that finished stay journaled; only
// the callers that swallow a failure roll them back.
func (c *Context) eval(n grammar.Node, name string) (any, error) {
	start, limit := c.pos, c.limit
	if len(c.frames) >= c.cfg.maxDepth {
		pe := c.record(c.newError(SpecError, nil, "nesting deeper than %d frames", c.cfg.maxDepth))
		return c.packError(n, name, start, start, nil, nil, pe), pe
	}
	c.frames = append(c.frames, frame{node: n, name: name, start: start, limit: limit})
	depth := len(c.frames) - 1

	if c.TraceEnabled() {
		c.Trace("push",
			slog.String("node", n.Kind().String()),
			slog.Int64("offset", c.bias+int64(start)),
			slog.String("path", c.path()))
	}

	v, err := c.run(n, depth)
	if err == nil {
		err = c.checkMagic(v, start)
	}
	if err == nil {
		err = c.reassemble(depth, start, v)
	}
	if err != nil {
		reached := c.pos
		c.pos, c.limit = start, limit
		pe := c.record(err)
		if depth == 0 {
			c.rootPartial = v
		}
		out := c.packError(n, name, start, reached, v, c.frames[depth].meta, pe)
		c.frames = c.frames[:depth]
		if c.TraceEnabled() {
			c.Trace("fail",
				slog.String("node", n.Kind().String()),
				slog.Int64("offset", pe.Offset),
				slog.String("kind", pe.Kind.String()))
		}
		return out, pe
	}

	out := c.pack(n, name, start, v, c.frames[depth].meta)
	c.frames = c.frames[:depth]
	return out, nil
}

func (c *Context) run(n grammar.Node, depth int) (any, error) {
	switch n := n.(type) {
	case *grammar.Struct:
		return c.runStruct(n, depth)
	case *grammar.Union:
		return c.runUnion(n, depth)
	case *grammar.Variant:
		return c.runVariant(n)
	case *grammar.Repeat:
		return c.runRepeat(n, depth)
	case *grammar.Switch:
		return c.runSwitch(n)
	case *grammar.Named:
		return c.runNamed(n)
	case *grammar.BitStruct:
		return c.runBitStruct(n, depth)
	case *grammar.Field:
		return c.runField(n, depth)
	}
	return nil, c.newError(SpecError, nil, "unsupported node %T", n)
}

// pack is the success hook: identity in plain mode, a Range when
// annotating.
func (c *Context) pack(n grammar.Node, name string, start int, v any, meta *ordereddict.Dict) any {
	if !c.cfg.annotate {
		return v
	}
	return &Range{
		Start: c.bias + int64(start),
		End:   c.bias + int64(c.pos),
		Value: v,
		Node:  n,
		Name:  c.displayName(n, name),
		Meta:  meta,
	}
}

// packError is the failure placeholder: nil in plain mode, an error-tagged
// Range spanning the bytes reached before failing when annotating.
func (c *Context) packError(n grammar.Node, name string, start, reached int, partial any, meta *ordereddict.Dict, err *Error) any {
	if !c.cfg.annotate {
		return nil
	}
	return &Range{
		Start: c.bias + int64(start),
		End:   c.bias + int64(reached),
		Value: partial,
		Node:  n,
		Name:  c.displayName(n, name),
		Meta:  meta,
		Err:   err,
	}
}

func (c *Context) displayName(n grammar.Node, name string) string {
	v, ok := n.Params().Get(grammar.ParamDisplay)
	if !ok {
		return name
	}
	if e, ok := v.(*expr.Expression); ok {
		out, err := e.Evaluate(c.scope())
		if err != nil {
			c.Log(slog.LevelDebug, "display name unavailable",
				slog.String("path", c.path()),
				slog.String("error", err.Error()))
			return name
		}
		v = out
	}
	return expr.ToString(v)
}

func (c *Context) setMeta(depth int, key string, v any) {
	if !c.cfg.annotate {
		return
	}
	fr := &c.frames[depth]
	if fr.meta == nil {
		fr.meta = ordereddict.NewDict()
	}
	fr.meta.Set(key, v)
}

func (c *Context) checkMagic(v any, start int) error {
	want, ok, err := c.localParam(grammar.ParamMagic)
	if err != nil || !ok {
		return err
	}
	if expr.Equal(v, want) {
		return nil
	}
	return c.newErrorAt(start, Invalid, nil, "magic mismatch: got %s, want %s", describe(v), describe(want))
}

func describe(v any) string {
	switch v := expr.Unwrap(v).(type) {
	case []byte:
		return hex.EncodeToString(v)
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "null"
	default:
		return expr.ToString(v)
	}
}

func (c *Context) runStruct(n *grammar.Struct, depth int) (any, error) {
	d := ordereddict.NewDict()
	c.frames[depth].fields = d
	for _, m := range n.Members {
		v, err := c.eval(m.Node, m.Name)
		d.Set(m.Name, v)
		if err != nil {
			return d, err
		}
	}
	return d, nil
}

// runUnion reads every member from the same offset and leaves the cursor
// at the furthest end reached.
func (c *Context) runUnion(n *grammar.Union, depth int) (any, error) {
	d := ordereddict.NewDict()
	c.frames[depth].fields = d
	start, furthest := c.pos, c.pos
	for _, m := range n.Members {
		c.pos = start
		v, err := c.eval(m.Node, m.Name)
		d.Set(m.Name, v)
		if err != nil {
			return d, err
		}
		furthest = max(furthest, c.pos)
	}
	c.pos = furthest
	return d, nil
}

// runVariant returns the first alternative that does not fail as invalid.
// Any other failure, incomplete in particular, ends the search.
func (c *Context) runVariant(n *grammar.Variant) (any, error) {
	for i, alt := range n.Alternatives {
		mark := len(c.journal)
		v, err := c.eval(alt, "")
		if err == nil {
			return v, nil
		}
		if kind, _ := KindOf(err); kind != Invalid {
			return v, err
		}
		c.failure = nil
		c.journal = c.journal[:mark]
		if c.TraceEnabled() {
			c.Trace("variant alternative rejected",
				slog.Int("alternative", i),
				slog.String("path", c.path()),
				slog.String("error", err.Error()))
		}
	}
	return nil, c.newError(Invalid, nil, "no variant matched")
}

func elementName(i int64) string {
	return fmt.Sprintf("[%d]", i)
}

func (c *Context) runRepeat(n *grammar.Repeat, depth int) (any, error) {
	list := make([]any, 0)
	if n.Element == nil {
		return list, c.newError(SpecError, nil, "repeat has no element")
	}
	vars := make(map[string]any, 2)
	c.frames[depth].vars = vars

	switch n.Mode {
	case grammar.RepeatCount:
		count, err := c.evalInt(n.Count, "repeat count")
		if err != nil {
			return list, err
		}
		if count < 0 {
			return list, c.newError(Invalid, nil, "negative repeat count %d", count)
		}
		for i := range count {
			vars["_index"] = i
			v, err := c.eval(n.Element, elementName(i))
			list = append(list, v)
			if err != nil {
				return list, err
			}
		}
		return list, nil

	case grammar.RepeatUntil:
		for i := int64(0); ; i++ {
			vars["_index"] = i
			before, mark := c.pos, len(c.journal)
			v, err := c.eval(n.Element, elementName(i))
			if err != nil {
				kind, _ := KindOf(err)
				if kind == Incomplete || (kind == Invalid && n.StopOnInvalid) {
					c.journal = c.journal[:mark]
					c.Log(slog.LevelDebug, "repeat stopped",
						slog.String("path", c.path()),
						slog.Int64("elements", i),
						slog.String("reason", kind.String()))
					return list, nil
				}
				return append(list, v), err
			}
			list = append(list, v)
			vars["_"] = v
			c.frames[depth].fields = v
			done, err := c.evalBool(n.Until, "repeat condition")
			c.frames[depth].fields = nil
			delete(vars, "_")
			if err != nil {
				return list, err
			}
			if done {
				return list, nil
			}
			if c.pos == before {
				return list, c.newError(SpecError, nil, "repeat element consumed no bytes")
			}
		}
	}
	return list, c.newError(SpecError, nil, "unknown repeat mode %s", n.Mode)
}

// runSwitch runs the first case equal to the discriminant, else the
// default case. With neither the value is nil and the switch succeeds.
func (c *Context) runSwitch(n *grammar.Switch) (any, error) {
	d, err := c.evalExpr(n.Discriminant, "switch discriminant")
	if err != nil {
		return nil, err
	}
	var fallback grammar.Node
	for _, cs := range n.Cases {
		if cs.Match == nil {
			if fallback == nil {
				fallback = cs.Node
			}
			continue
		}
		m, err := c.evalExpr(cs.Match, "switch case")
		if err != nil {
			return nil, err
		}
		if expr.Equal(d, m) {
			return c.eval(cs.Node, "")
		}
	}
	if fallback != nil {
		return c.eval(fallback, "")
	}
	c.Log(slog.LevelDebug, "switch matched no case",
		slog.String("path", c.path()),
		slog.String("value", describe(d)))
	return nil, nil
}

func (c *Context) runNamed(n *grammar.Named) (any, error) {
	target, err := n.Target()
	if err != nil {
		return nil, c.newError(SpecError, err, "cannot resolve %q", n.Ref)
	}
	return c.eval(target, "")
}
