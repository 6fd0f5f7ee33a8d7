package grammar

import (
	"github.com/Velocidex/ordereddict"

	"github.com/wiregram/wiregram/expr"
)

func u8() *Field  { return NewField(Uint8, Natural()) }
func u16() *Field { return NewField(Uint16, Natural()) }
func u32() *Field { return NewField(Uint32, Natural()) }

// sampleSchema exercises every node kind, size policy, and parameter value
// shape.
func sampleSchema() *Schema {
	s := NewSchema()
	s.Entry = "packet"

	header := &BitStruct{Bits: []BitMember{{"version", 4}, {"ihl", 4}, {"flags", 8}}}
	header.SetParam(ParamBitOrder, "msb")

	body := &Switch{
		Discriminant: expr.MustParse("kind"),
		Cases: []Case{
			{Match: expr.MustParse("1"), Node: &Named{Ref: "text"}},
			{Match: expr.MustParse("2"), Node: &Repeat{
				Element: u32(),
				Mode:    RepeatCount,
				Count:   expr.MustParse("length / 4"),
			}},
			{Node: NewField(Bytes, Remaining())},
		},
	}

	packet := &Struct{Members: []Member{
		{"header", header},
		{"kind", u8()},
		{"length", With(u16(), ParamEndian, "little")},
		{"body", &Field{Primitive: Bytes, Size: Sized(expr.MustParse("length")), Delegate: body}},
		{"trailer", &Variant{Alternatives: []Node{
			With(u32(), ParamMagic, int64(0xfeedface)),
			With(NewField(Bytes, Fixed(2)), ParamMagic, []byte{0xbe, 0xef}),
		}}},
		{"records", &Repeat{
			Element:       &Named{Ref: "record"},
			Mode:          RepeatUntil,
			Until:         expr.MustParse("_.type == 0"),
			StopOnInvalid: true,
		}},
		{"overlay", &Union{Members: []Member{{"word", u32()}, {"half", u16()}}}},
	}}
	packet.SetParam(ParamReassemble, "flows")
	packet.SetParam(ParamReassembleKey, []any{expr.MustParse("kind")})
	packet.SetParam(ParamReassembleMeta, ordereddict.NewDict().
		Set("len", expr.MustParse("length")).
		Set("proto", "demo"))

	s.Define("packet", packet)
	s.Define("text", With(NewField(String, Terminated([]byte{0})), ParamEncoding, "latin-1"))
	s.Define("record", &Struct{Members: []Member{
		{"type", u8()},
		{"value", NewField(Bytes, Prefixed(0))},
	}})
	return s
}
