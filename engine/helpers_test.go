package engine

import (
	"github.com/Velocidex/ordereddict"

	"github.com/wiregram/wiregram/expr"
	"github.com/wiregram/wiregram/grammar"
)

// plain converts ordered dicts to maps so trees compare with require.Equal.
func plain(v any) any {
	switch v := Plain(v).(type) {
	case *ordereddict.Dict:
		m := make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			m[k] = plain(item)
		}
		return m
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	}
	return v
}

func schemaOf(n grammar.Node) *grammar.Schema {
	s := grammar.NewSchema()
	s.Define("main", n)
	return s
}

func field(p grammar.Primitive) *grammar.Field {
	return grammar.NewField(p, grammar.Natural())
}

func sized(p grammar.Primitive, size string) *grammar.Field {
	return grammar.NewField(p, grammar.Sized(expr.MustParse(size)))
}

func members(kv ...any) []grammar.Member {
	out := make([]grammar.Member, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, grammar.Member{Name: kv[i].(string), Node: kv[i+1].(grammar.Node)})
	}
	return out
}

func record(kv ...any) *grammar.Struct {
	return &grammar.Struct{Members: members(kv...)}
}

func until(elem grammar.Node, cond string) *grammar.Repeat {
	return &grammar.Repeat{Element: elem, Mode: grammar.RepeatUntil, Until: expr.MustParse(cond)}
}

func times(elem grammar.Node, count string) *grammar.Repeat {
	return &grammar.Repeat{Element: elem, Mode: grammar.RepeatCount, Count: expr.MustParse(count)}
}

func magic(n grammar.Node, v any) grammar.Node {
	return grammar.With(n, grammar.ParamMagic, v)
}

func mustExpr(src string) *expr.Expression {
	return expr.MustParse(src)
}
