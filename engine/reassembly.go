package engine

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"slices"
	"strings"

	"github.com/Velocidex/ordereddict"

	"github.com/wiregram/wiregram/expr"
	"github.com/wiregram/wiregram/grammar"
)

// Segment records where one appended fragment of a stream came from.
type Segment struct {
	Offset int64             `json:"offset"`
	Length int               `json:"length"`
	Meta   *ordereddict.Dict `json:"meta,omitempty"`
}

// Stream is the concatenation of all fragments sharing one grouping key
// within a category.
type Stream struct {
	// Key is the grouping key rendered as text, parts joined by "/".
	Key string
	// KeyValues holds the evaluated key parts.
	KeyValues []any
	Segments  []Segment
	data      []byte
}

// Bytes returns the assembled stream contents.
func (s *Stream) Bytes() []byte { return s.data }

// Len returns the assembled length in bytes.
func (s *Stream) Len() int { return len(s.data) }

func (s *Stream) MarshalJSON() ([]byte, error) {
	return json.Marshal(ordereddict.NewDict().
		Set("key", s.Key).
		Set("length", len(s.data)).
		Set("segments", s.Segments).
		Set("data", hex.EncodeToString(s.data)))
}

// Category is a named group of streams, created the first time a node
// declares it.
type Category struct {
	Name    string
	streams []*Stream
	byKey   map[string]*Stream
}

// Streams returns the category's streams in first-seen order.
func (c *Category) Streams() []*Stream {
	return slices.Clone(c.streams)
}

// Stream returns the stream with the given key.
func (c *Category) Stream(key string) (*Stream, bool) {
	s, ok := c.byKey[key]
	return s, ok
}

func (c *Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(ordereddict.NewDict().
		Set("name", c.Name).
		Set("streams", c.streams))
}

func (c *Category) stream(key string, parts []any) *Stream {
	if s, ok := c.byKey[key]; ok {
		return s
	}
	s := &Stream{Key: key, KeyValues: parts}
	c.byKey[key] = s
	c.streams = append(c.streams, s)
	return s
}

// Categories returns reassembly categories in creation order.
func (c *Context) Categories() []*Category {
	return slices.Clone(c.categories)
}

// Category returns the named category if it exists.
func (c *Context) Category(name string) (*Category, bool) {
	cat, ok := c.byCategory[name]
	return cat, ok
}

// pendingSegment is a reassembly append waiting for the top-level parse to
// finish.
type pendingSegment struct {
	category string
	key      string
	parts    []any
	segment  Segment
	data     []byte
}

// reassemble journals the node's consumed bytes when it declares a
// reassembly category. Key and metadata expressions are evaluated in the
// live scope, with the node's own value visible as _.
func (c *Context) reassemble(depth, start int, v any) error {
	fr := &c.frames[depth]
	params := fr.node.Params()
	if !params.Has(grammar.ParamReassemble) {
		return nil
	}
	if fr.vars == nil {
		fr.vars = make(map[string]any, 1)
	}
	fr.vars["_"] = v

	name, _, err := c.localParam(grammar.ParamReassemble)
	if err != nil {
		return err
	}
	category := expr.ToString(name)

	var parts []any
	switch key, _ := params.Get(grammar.ParamReassembleKey); key := key.(type) {
	case nil:
	case []any:
		for _, item := range key {
			part, err := c.resolveValue(item, "reassembly key")
			if err != nil {
				return err
			}
			parts = append(parts, expr.Unwrap(part))
		}
	default:
		part, err := c.resolveValue(key, "reassembly key")
		if err != nil {
			return err
		}
		parts = append(parts, expr.Unwrap(part))
	}
	keyText := make([]string, len(parts))
	for i, p := range parts {
		keyText[i] = expr.ToString(p)
	}

	var meta *ordereddict.Dict
	switch m, _ := params.Get(grammar.ParamReassembleMeta); m := m.(type) {
	case nil:
	case *ordereddict.Dict:
		meta = ordereddict.NewDict()
		for _, k := range m.Keys() {
			item, _ := m.Get(k)
			val, err := c.resolveValue(item, "reassembly meta "+k)
			if err != nil {
				return err
			}
			meta.Set(k, expr.Unwrap(val))
		}
	default:
		return c.newError(SpecError, nil, "%s must be a map", grammar.ParamReassembleMeta)
	}

	seg := pendingSegment{
		category: category,
		key:      strings.Join(keyText, "/"),
		parts:    parts,
		segment:  Segment{Offset: c.bias + int64(start), Length: c.pos - start, Meta: meta},
		data:     slices.Clone(c.buf[start:c.pos]),
	}
	c.journal = append(c.journal, seg)
	c.setMeta(depth, "reassemble", category)
	c.setMeta(depth, "stream", seg.key)
	return nil
}

// commit applies the journal of a finished parse.
func (c *Context) commit() {
	for _, p := range c.journal {
		s := c.category(p.category).stream(p.key, p.parts)
		s.data = append(s.data, p.data...)
		s.Segments = append(s.Segments, p.segment)
		if c.TraceEnabled() {
			c.Trace("reassembled",
				slog.String("category", p.category),
				slog.String("stream", p.key),
				slog.Int64("offset", p.segment.Offset),
				slog.Int("length", p.segment.Length))
		}
	}
	c.journal = c.journal[:0]
}

// category returns the named category, creating it and firing the hook on
// first use.
func (c *Context) category(name string) *Category {
	if cat, ok := c.byCategory[name]; ok {
		return cat
	}
	cat := &Category{Name: name, byKey: make(map[string]*Stream)}
	c.categories = append(c.categories, cat)
	c.byCategory[name] = cat
	c.Log(slog.LevelDebug, "reassembly category created", slog.String("category", name))
	if c.cfg.hook != nil {
		c.cfg.hook(cat)
	}
	return cat
}
