package grammar

import (
	"encoding/hex"
	"fmt"
	"slices"

	"github.com/Velocidex/ordereddict"

	"github.com/wiregram/wiregram/expr"
)

// Keys marking non-scalar literals in serialized form.
const (
	exprKey  = "$expr"
	bytesKey = "$bytes"
)

// Serialize converts n into plain maps, lists, and scalars. Expressions
// become {"$expr": source} and byte strings {"$bytes": hex}. Named nodes
// serialize their reference name only.
func Serialize(n Node) map[string]any {
	if n == nil {
		return nil
	}
	out := map[string]any{"kind": n.Kind().String()}
	if p := n.Params(); p.Len() > 0 {
		params := make(map[string]any, p.Len())
		for _, k := range p.Keys() {
			v, _ := p.Get(k)
			params[k] = serializeValue(v)
		}
		out["params"] = params
	}

	switch n := n.(type) {
	case *Struct:
		out["members"] = serializeMembers(n.Members)
	case *Union:
		out["members"] = serializeMembers(n.Members)
	case *Variant:
		alts := make([]any, 0, len(n.Alternatives))
		for _, alt := range n.Alternatives {
			alts = append(alts, Serialize(alt))
		}
		out["alternatives"] = alts
	case *Repeat:
		out["element"] = Serialize(n.Element)
		out["mode"] = n.Mode.String()
		if n.Count != nil {
			out["count"] = exprValue(n.Count)
		}
		if n.Until != nil {
			out["until"] = exprValue(n.Until)
		}
		if n.StopOnInvalid {
			out["stop_on_invalid"] = true
		}
	case *Switch:
		if n.Discriminant != nil {
			out["discriminant"] = exprValue(n.Discriminant)
		}
		cases := make([]any, 0, len(n.Cases))
		for _, c := range n.Cases {
			m := map[string]any{"node": Serialize(c.Node)}
			if c.Match != nil {
				m["match"] = exprValue(c.Match)
			}
			cases = append(cases, m)
		}
		out["cases"] = cases
	case *Named:
		out["ref"] = n.Ref
	case *BitStruct:
		bits := make([]any, 0, len(n.Bits))
		for _, b := range n.Bits {
			bits = append(bits, map[string]any{"name": b.Name, "width": int64(b.Width)})
		}
		out["bits"] = bits
	case *Field:
		out["primitive"] = n.Primitive.String()
		out["size"] = serializeSize(n.Size)
		if n.Delegate != nil {
			out["delegate"] = Serialize(n.Delegate)
		}
	}
	return out
}

func serializeMembers(members []Member) []any {
	out := make([]any, 0, len(members))
	for _, m := range members {
		out = append(out, map[string]any{"name": m.Name, "node": Serialize(m.Node)})
	}
	return out
}

func serializeSize(s SizePolicy) map[string]any {
	out := map[string]any{"policy": s.Kind.String()}
	switch s.Kind {
	case SizeFixed:
		out["bytes"] = s.Bytes
	case SizeExpr:
		if s.Expr != nil {
			out["expr"] = exprValue(s.Expr)
		}
	case SizePrefixed:
		out["width"] = int64(s.Width)
	case SizeTerminated:
		out["terminator"] = serializeValue(s.Terminator)
	}
	return out
}

func exprValue(e *expr.Expression) map[string]any {
	return map[string]any{exprKey: e.Source()}
}

func serializeValue(v any) any {
	switch v := v.(type) {
	case *expr.Expression:
		return exprValue(v)
	case []byte:
		return map[string]any{bytesKey: hex.EncodeToString(v)}
	case []any:
		out := make([]any, 0, len(v))
		for _, item := range v {
			out = append(out, serializeValue(item))
		}
		return out
	case *ordereddict.Dict:
		out := make(map[string]any, v.Len())
		for _, k := range v.Keys() {
			item, _ := v.Get(k)
			out[k] = serializeValue(item)
		}
		return out
	}
	return normalizeScalar(v)
}

// normalizeScalar maps Go integer types onto int64 (uint64 above
// MaxInt64) so serialized forms compare equal regardless of source.
func normalizeScalar(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint:
		return normalizeScalar(uint64(v))
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		if v <= 1<<63-1 {
			return int64(v)
		}
		return v
	case float32:
		return float64(v)
	}
	return v
}

// Deserialize rebuilds a node from the shape produced by Serialize.
//
// Hand-written documents may abbreviate a node as a string: a primitive
// name ("UINT16") is a naturally sized Field, anything else is a Named
// reference. Expression slots also accept plain strings.
func Deserialize(m map[string]any) (Node, error) {
	return deserializeNode(m)
}

func deserializeNode(raw any) (Node, error) {
	if s, ok := raw.(string); ok {
		if p, ok := ParsePrimitive(s); ok {
			return NewField(p, Natural()), nil
		}
		return &Named{Ref: s}, nil
	}
	m, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("node: expected map, got %T", raw)
	}
	kindName, _ := m["kind"].(string)
	kind, ok := ParseKind(kindName)
	if !ok {
		return nil, fmt.Errorf("node: unknown kind %q", kindName)
	}

	var (
		n   Node
		err error
	)
	switch kind {
	case KindStruct:
		s := &Struct{}
		s.Members, err = deserializeMembers(m["members"])
		n = s
	case KindUnion:
		u := &Union{}
		u.Members, err = deserializeMembers(m["members"])
		n = u
	case KindVariant:
		n, err = deserializeVariant(m)
	case KindRepeat:
		n, err = deserializeRepeat(m)
	case KindSwitch:
		n, err = deserializeSwitch(m)
	case KindNamed:
		ref, _ := m["ref"].(string)
		if ref == "" {
			return nil, fmt.Errorf("named: missing ref")
		}
		n = &Named{Ref: ref}
	case KindBitStruct:
		n, err = deserializeBitStruct(m)
	case KindField:
		n, err = deserializeField(m)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	if raw, ok := m["params"]; ok {
		params, ok := asMap(raw)
		if !ok {
			return nil, fmt.Errorf("%s: params: expected map, got %T", kind, raw)
		}
		for _, k := range sortedKeys(params) {
			v, err := deserializeValue(params[k])
			if err != nil {
				return nil, fmt.Errorf("%s: param %s: %w", kind, k, err)
			}
			n.SetParam(k, v)
		}
	}
	return n, nil
}

func deserializeMembers(raw any) ([]Member, error) {
	list, ok := asList(raw)
	if !ok {
		return nil, fmt.Errorf("members: expected list, got %T", raw)
	}
	members := make([]Member, 0, len(list))
	for i, item := range list {
		m, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("members[%d]: expected map, got %T", i, item)
		}
		name, _ := m["name"].(string)
		child, err := deserializeNode(m["node"])
		if err != nil {
			return nil, fmt.Errorf("members[%d] %s: %w", i, name, err)
		}
		members = append(members, Member{Name: name, Node: child})
	}
	return members, nil
}

func deserializeVariant(m map[string]any) (Node, error) {
	list, ok := asList(m["alternatives"])
	if !ok {
		return nil, fmt.Errorf("alternatives: expected list, got %T", m["alternatives"])
	}
	v := &Variant{Alternatives: make([]Node, 0, len(list))}
	for i, item := range list {
		alt, err := deserializeNode(item)
		if err != nil {
			return nil, fmt.Errorf("alternatives[%d]: %w", i, err)
		}
		v.Alternatives = append(v.Alternatives, alt)
	}
	return v, nil
}

func deserializeRepeat(m map[string]any) (Node, error) {
	elem, err := deserializeNode(m["element"])
	if err != nil {
		return nil, fmt.Errorf("element: %w", err)
	}
	r := &Repeat{Element: elem}
	if raw, ok := m["count"]; ok {
		if r.Count, err = deserializeExpr(raw); err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	if raw, ok := m["until"]; ok {
		if r.Until, err = deserializeExpr(raw); err != nil {
			return nil, fmt.Errorf("until: %w", err)
		}
	}
	switch mode, _ := m["mode"].(string); mode {
	case "count":
		r.Mode = RepeatCount
	case "until":
		r.Mode = RepeatUntil
	case "":
		if r.Count == nil && r.Until != nil {
			r.Mode = RepeatUntil
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	r.StopOnInvalid, _ = m["stop_on_invalid"].(bool)
	return r, nil
}

func deserializeSwitch(m map[string]any) (Node, error) {
	s := &Switch{}
	var err error
	if s.Discriminant, err = deserializeExpr(m["discriminant"]); err != nil {
		return nil, fmt.Errorf("discriminant: %w", err)
	}
	list, ok := asList(m["cases"])
	if !ok {
		return nil, fmt.Errorf("cases: expected list, got %T", m["cases"])
	}
	for i, item := range list {
		cm, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("cases[%d]: expected map, got %T", i, item)
		}
		var c Case
		if raw, ok := cm["match"]; ok && raw != nil {
			if c.Match, err = deserializeExpr(raw); err != nil {
				return nil, fmt.Errorf("cases[%d]: match: %w", i, err)
			}
		}
		if c.Node, err = deserializeNode(cm["node"]); err != nil {
			return nil, fmt.Errorf("cases[%d]: %w", i, err)
		}
		s.Cases = append(s.Cases, c)
	}
	return s, nil
}

func deserializeBitStruct(m map[string]any) (Node, error) {
	list, ok := asList(m["bits"])
	if !ok {
		return nil, fmt.Errorf("bits: expected list, got %T", m["bits"])
	}
	b := &BitStruct{Bits: make([]BitMember, 0, len(list))}
	for i, item := range list {
		bm, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("bits[%d]: expected map, got %T", i, item)
		}
		name, _ := bm["name"].(string)
		width, err := expr.ToInt(bm["width"])
		if err != nil {
			return nil, fmt.Errorf("bits[%d] %s: width: %w", i, name, err)
		}
		b.Bits = append(b.Bits, BitMember{Name: name, Width: int(width)})
	}
	return b, nil
}

func deserializeField(m map[string]any) (Node, error) {
	primName, _ := m["primitive"].(string)
	prim, ok := ParsePrimitive(primName)
	if !ok {
		return nil, fmt.Errorf("unknown primitive %q", primName)
	}
	f := NewField(prim, Natural())
	if raw, ok := m["size"]; ok && raw != nil {
		size, err := deserializeSize(raw)
		if err != nil {
			return nil, fmt.Errorf("size: %w", err)
		}
		f.Size = size
	}
	if raw, ok := m["delegate"]; ok && raw != nil {
		delegate, err := deserializeNode(raw)
		if err != nil {
			return nil, fmt.Errorf("delegate: %w", err)
		}
		f.Delegate = delegate
	}
	return f, nil
}

func deserializeSize(raw any) (SizePolicy, error) {
	if expr.IsNumber(raw) {
		n, err := expr.ToInt(raw)
		if err != nil {
			return SizePolicy{}, err
		}
		return Fixed(n), nil
	}
	m, ok := asMap(raw)
	if !ok {
		return SizePolicy{}, fmt.Errorf("expected map or integer, got %T", raw)
	}
	policy, _ := m["policy"].(string)
	switch policy {
	case "natural", "":
		return Natural(), nil
	case "fixed":
		n, err := expr.ToInt(m["bytes"])
		if err != nil {
			return SizePolicy{}, fmt.Errorf("bytes: %w", err)
		}
		return Fixed(n), nil
	case "expr":
		e, err := deserializeExpr(m["expr"])
		if err != nil {
			return SizePolicy{}, err
		}
		return Sized(e), nil
	case "prefixed":
		var width int64
		if raw, ok := m["width"]; ok {
			w, err := expr.ToInt(raw)
			if err != nil {
				return SizePolicy{}, fmt.Errorf("width: %w", err)
			}
			width = w
		}
		return Prefixed(int(width)), nil
	case "terminated":
		term, err := deserializeValue(m["terminator"])
		if err != nil {
			return SizePolicy{}, fmt.Errorf("terminator: %w", err)
		}
		switch t := term.(type) {
		case []byte:
			return Terminated(t), nil
		case string:
			return Terminated([]byte(t)), nil
		case nil:
			return Terminated([]byte{0}), nil
		}
		return SizePolicy{}, fmt.Errorf("terminator: expected bytes, got %T", term)
	case "remaining":
		return Remaining(), nil
	}
	return SizePolicy{}, fmt.Errorf("unknown policy %q", policy)
}

func deserializeExpr(raw any) (*expr.Expression, error) {
	switch v := raw.(type) {
	case nil:
		return nil, fmt.Errorf("missing expression")
	case string:
		return expr.Parse(v)
	case bool:
		return expr.Parse(fmt.Sprint(v))
	}
	if expr.IsNumber(raw) {
		return expr.Parse(fmt.Sprint(raw))
	}
	m, ok := asMap(raw)
	if !ok {
		return nil, fmt.Errorf("expected expression, got %T", raw)
	}
	src, ok := m[exprKey].(string)
	if !ok {
		return nil, fmt.Errorf("expected {%q: source}", exprKey)
	}
	return expr.Parse(src)
}

func deserializeValue(raw any) (any, error) {
	if list, ok := asList(raw); ok {
		out := make([]any, 0, len(list))
		for _, item := range list {
			v, err := deserializeValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	m, ok := asMap(raw)
	if !ok {
		return normalizeScalar(raw), nil
	}
	if len(m) == 1 {
		if src, ok := m[exprKey].(string); ok {
			return expr.Parse(src)
		}
		if h, ok := m[bytesKey].(string); ok {
			b, err := hex.DecodeString(h)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", bytesKey, err)
			}
			return b, nil
		}
	}
	d := ordereddict.NewDict()
	for _, k := range sortedKeys(m) {
		v, err := deserializeValue(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		d.Set(k, v)
	}
	return d, nil
}

func asMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = item
		}
		return out, true
	}
	return nil, false
}

func asList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = item
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Serialize converts the schema into {"entry": name, "types": [{"name",
// "node"}...]} with definitions in order.
func (s *Schema) Serialize() map[string]any {
	names := s.Names()
	types := make([]any, 0, len(names))
	for _, name := range names {
		def, _ := s.Lookup(name)
		types = append(types, map[string]any{"name": name, "node": Serialize(def)})
	}
	out := map[string]any{"types": types}
	if s.Entry != "" {
		out["entry"] = s.Entry
	}
	return out
}

// DeserializeSchema rebuilds a schema from Schema.Serialize output. The
// "types" value may also be a map of name to node, defined in sorted name
// order.
func DeserializeSchema(m map[string]any) (*Schema, error) {
	s := NewSchema()
	s.Entry, _ = m["entry"].(string)
	if tm, ok := asMap(m["types"]); ok {
		for _, name := range sortedKeys(tm) {
			n, err := deserializeNode(tm[name])
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", name, err)
			}
			s.Define(name, n)
		}
		return s, nil
	}
	list, ok := asList(m["types"])
	if !ok {
		return nil, fmt.Errorf("types: expected list or map, got %T", m["types"])
	}
	for i, item := range list {
		dm, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("types[%d]: expected map, got %T", i, item)
		}
		name, _ := dm["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("types[%d]: missing name", i)
		}
		n, err := deserializeNode(dm["node"])
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		s.Define(name, n)
	}
	return s, nil
}
