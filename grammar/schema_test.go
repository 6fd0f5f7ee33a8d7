package grammar

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaDefineAndResolve(t *testing.T) {
	s := NewSchema()
	s.Define("b", u8())
	s.Define("a", u16())
	s.Define("b", u32())

	require.Equal(t, []string{"b", "a"}, s.Names())
	require.Equal(t, 2, s.Len())

	n, err := s.Resolve("b")
	require.NoError(t, err)
	require.Equal(t, Uint32, n.(*Field).Primitive)

	_, err = s.Resolve("missing")
	var ue *UndefinedReferenceError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, "missing", ue.Name)
}

func TestSchemaEntry(t *testing.T) {
	s := NewSchema()
	_, err := s.EntryNode()
	require.ErrorIs(t, err, ErrNoEntry)

	s.Define("first", u8())
	s.Define("second", u16())
	name, err := s.EntryName()
	require.NoError(t, err)
	require.Equal(t, "first", name)

	s.Entry = "second"
	n, err := s.EntryNode()
	require.NoError(t, err)
	require.Equal(t, Uint16, n.(*Field).Primitive)
}

func TestNamedResolvesLazily(t *testing.T) {
	ref := &Named{Ref: "inner"}
	_, err := ref.Target()
	require.ErrorIs(t, err, ErrUnbound)

	s := NewSchema()
	s.Define("outer", &Struct{Members: []Member{{"x", ref}}})
	require.False(t, ref.Resolved())

	_, err = ref.Target()
	var ue *UndefinedReferenceError
	require.ErrorAs(t, err, &ue)
	require.False(t, ref.Resolved())

	inner := u8()
	s.Define("inner", inner)
	target, err := ref.Target()
	require.NoError(t, err)
	require.Same(t, inner, target)
	require.True(t, ref.Resolved())

	// Memoized: redefining does not change an already resolved reference.
	s.Define("inner", u16())
	target, err = ref.Target()
	require.NoError(t, err)
	require.Same(t, inner, target)
}

func TestResolveAll(t *testing.T) {
	s := sampleSchema()
	require.NoError(t, s.ResolveAll())

	s.Define("broken", &Variant{Alternatives: []Node{&Named{Ref: "nope"}, &Named{Ref: "nada"}}})
	err := s.ResolveAll()
	require.Error(t, err)
	var ue *UndefinedReferenceError
	require.True(t, errors.As(err, &ue))
	require.Contains(t, err.Error(), "nope")
	require.Contains(t, err.Error(), "nada")
}

func TestNamedConcurrentResolve(t *testing.T) {
	s := NewSchema()
	ref := &Named{Ref: "leaf"}
	s.Define("root", ref)
	s.Define("leaf", u8())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := ref.Target()
			if assert.NoError(t, err) {
				assert.Equal(t, KindField, n.Kind())
			}
		}()
	}
	wg.Wait()
}

func TestWalkPaths(t *testing.T) {
	s := sampleSchema()
	def, _ := s.Lookup("packet")
	var paths []string
	Walk(def, "packet", func(path string, n Node) bool {
		if n.Kind() == KindField {
			paths = append(paths, path)
		}
		return true
	})
	require.Contains(t, paths, "packet.kind")
	require.Contains(t, paths, "packet.body{case 1}[]")
	require.Contains(t, paths, "packet.trailer[1]")
	require.Contains(t, paths, "packet.overlay.half")
}

func TestParams(t *testing.T) {
	var nilParams *Params
	require.Equal(t, 0, nilParams.Len())
	require.Nil(t, nilParams.Keys())
	_, ok := nilParams.Get("x")
	require.False(t, ok)

	f := With(With(u8(), "b", 1), "a", 2)
	require.Equal(t, []string{"b", "a"}, f.Params().Keys())
	f.SetParam("b", 3)
	require.Equal(t, []string{"b", "a"}, f.Params().Keys())
	v, ok := f.Params().Get("b")
	require.True(t, ok)
	require.Equal(t, 3, v)
	require.True(t, f.Params().Has("a"))
}

func TestKindAndPrimitiveNames(t *testing.T) {
	for k := KindStruct; k <= KindField; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok)
		require.Equal(t, k, got)
	}
	for p := Uint8; p <= Bool; p++ {
		got, ok := ParsePrimitive(p.String())
		require.True(t, ok)
		require.Equal(t, p, got)
	}
	_, ok := ParsePrimitive("UINT128")
	require.False(t, ok)
}
