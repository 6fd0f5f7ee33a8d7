package engine

import (
	"github.com/wiregram/wiregram/expr"
)

// liveScope resolves names against the values already produced on the
// active frame stack, nearest frame first.
type liveScope struct {
	expr.BaseScope
	c *Context
}

func (c *Context) scope() expr.Scope {
	return liveScope{c: c}
}

func (s liveScope) Lookup(name string) (any, error) {
	frames := s.c.frames
	for i := len(frames) - 1; i >= 0; i-- {
		fr := &frames[i]
		if v, ok := fr.vars[name]; ok {
			return v, nil
		}
		if fr.fields == nil {
			continue
		}
		if v, err := s.Member(fr.fields, name); err == nil {
			return v, nil
		}
	}
	return nil, expr.NotFound("name", name)
}

func (s liveScope) Param(name string) (any, error) {
	v, ok, err := s.c.param(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, expr.NotFound("parameter", name)
	}
	return v, nil
}

// BufferScope resolves names against a finished value tree, for
// evaluating expressions after parsing (column extraction, filters).
//
// Bare names look in the tree's top-level members, then Meta, then the
// special name "payload". $name looks in Meta. The name "_" is the whole
// tree.
type BufferScope struct {
	expr.BaseScope
	Tree    any
	Meta    map[string]any
	Payload []byte
}

// NewBufferScope returns a scope over a parsed tree with its metadata and
// raw payload.
func NewBufferScope(tree any, meta map[string]any, payload []byte) *BufferScope {
	return &BufferScope{Tree: tree, Meta: meta, Payload: payload}
}

func (s *BufferScope) Lookup(name string) (any, error) {
	if name == "_" && s.Tree != nil {
		return s.Tree, nil
	}
	if s.Tree != nil {
		if v, err := s.Member(s.Tree, name); err == nil {
			return v, nil
		}
	}
	if v, ok := s.Meta[name]; ok {
		return v, nil
	}
	if name == "payload" && s.Payload != nil {
		return s.Payload, nil
	}
	return nil, expr.NotFound("name", name)
}

func (s *BufferScope) Param(name string) (any, error) {
	if v, ok := s.Meta[name]; ok {
		return v, nil
	}
	return nil, expr.NotFound("parameter", name)
}
