package grammar

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wiregram/wiregram/expr"
	"github.com/wiregram/wiregram/internal/types"
)

func codes(diags []Diagnostic) map[string][]string {
	out := make(map[string][]string)
	for _, d := range diags {
		out[d.Code] = append(out[d.Code], d.Path)
	}
	return out
}

func TestCheckCleanSchema(t *testing.T) {
	require.Empty(t, sampleSchema().Check())
}

func TestCheckProblems(t *testing.T) {
	s := NewSchema()
	s.Entry = "absent"
	s.Define("msg", &Struct{Members: []Member{
		{"a", &Named{Ref: "ghost"}},
		{"b", NewField(String, Natural())},
		{"c", NewField(Uint16, Fixed(3))},
		{"d", NewField(Uint, Fixed(9))},
		{"e", NewField(Bytes, Terminated(nil))},
		{"f", NewField(Bytes, Prefixed(3))},
		{"g", &Variant{}},
		{"h", &BitStruct{Bits: []BitMember{{"wide", 65}}}},
		{"i", &Repeat{Element: &Struct{}, Mode: RepeatUntil, Until: expr.MustParse("false")}},
		{"j", &Repeat{Element: u8(), Mode: RepeatCount}},
		{"a", u8()},
	}})
	s.Define("ping", &Named{Ref: "pong"})
	s.Define("pong", &Struct{Members: []Member{{"x", &Named{Ref: "ping"}}}})
	s.Define("self", &Named{Ref: "self"})

	got := codes(s.Check())
	require.Equal(t, []string{"msg.a"}, got[types.DiagUndefinedReference])
	require.Equal(t, []string{"msg.b", "msg.c", "msg.d", "msg.e", "msg.f", "msg.j"}, got[types.DiagIllegalSize])
	require.Equal(t, []string{"msg.g"}, got[types.DiagEmptyVariant])
	require.Equal(t, []string{"msg.h.wide"}, got[types.DiagBitWidth])
	require.Equal(t, []string{"msg.i"}, got[types.DiagZeroProgressRepeat])
	require.Equal(t, []string{"msg"}, got[types.DiagDuplicateMember])
	require.Equal(t, []string{""}, got[types.DiagMissingEntry])
	require.Equal(t, []string{"ping", "self"}, got[types.DiagReferenceCycle])
}

func TestCheckSeverities(t *testing.T) {
	s := NewSchema()
	s.Define("loop", &Struct{Members: []Member{{"n", &Named{Ref: "loop"}}}})
	diags := s.Check()
	require.Len(t, diags, 1)
	require.Equal(t, SeverityWarning, diags[0].Severity)
	require.Contains(t, diags[0].String(), "[warning] loop: reference cycle through loop")
}
