package expr

import (
	"errors"
	"math"
	"testing"

	"github.com/Velocidex/ordereddict"
	"github.com/stretchr/testify/require"
)

type wrapped struct{ v any }

func (w wrapped) Underlying() any { return w.v }

func testScope() *MapScope {
	header := ordereddict.NewDict().
		Set("type", int64(2)).
		Set("length", int64(5))
	headers := map[string]any{"Content-Length": int64(42)}
	return &MapScope{
		Vars: map[string]any{
			"count":   int64(3),
			"flags":   uint64(0x8000000000000001),
			"name":    "abc",
			"payload": []byte{0xde, 0xad, 0xbe, 0xef},
			"items":   []any{int64(10), int64(20), int64(30)},
			"header":  header,
			"headers": headers,
			"boxed":   wrapped{v: int64(7)},
			"ratio":   0.5,
			"nothing": nil,
		},
		Params: map[string]any{"align": int64(4), "endian": "little"},
	}
}

func eval(t *testing.T, src string) any {
	t.Helper()
	e, err := Parse(src)
	require.NoError(t, err, src)
	v, err := e.Evaluate(testScope())
	require.NoError(t, err, src)
	return v
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"1 + 2 * 3", int64(7)},
		{"(1 + 2) * 3", int64(9)},
		{"10 / 3", int64(3)},
		{"10 % 3", int64(1)},
		{"-count", int64(-3)},
		{"~0", int64(-1)},
		{"1 << 4 | 1", int64(17)},
		{"0xff & 0x0f ^ 0x01", int64(0x0e)},
		{"count * ratio", 1.5},
		{"count == 3", true},
		{"count == 3.0", true},
		{"count != 3", false},
		{"count < 4 && count >= 3", true},
		{`name + "def"`, "abcdef"},
		{`name < "abd"`, true},
		{"header.type", int64(2)},
		{"header.length + 1", int64(6)},
		{`header["type"]`, int64(2)},
		{"items[1]", int64(20)},
		{"items[-1]", int64(30)},
		{"items.length", int64(3)},
		{"payload[0]", int64(0xde)},
		{"boxed + 1", int64(8)},
		{"boxed == 7", true},
		{"$align", int64(4)},
		{`$endian == "little"`, true},
		{"count > 2 ? 'big' : 'small'", "big"},
		{"nothing == null", true},
		{"!nothing", true},
		{"[1, 2, 3]", []any{int64(1), int64(2), int64(3)}},
		{"flags & 1", int64(1)},
		{"flags >> 63", int64(1)},
		{"18446744073709551615", uint64(18446744073709551615)},
		{`"a\x41\n"`, "aA\n"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, eval(t, tt.src))
		})
	}
}

func TestDivisionOnMapIsKeyLookup(t *testing.T) {
	require.Equal(t, int64(42), eval(t, `headers / "Content-Length"`))
	require.Equal(t, int64(2), eval(t, `header / "type"`))

	e := MustParse(`headers / "missing"`)
	_, err := e.Evaluate(testScope())
	require.ErrorIs(t, err, ErrNotFound)

	// Only '/' is overloaded.
	_, err = MustParse(`headers * 2`).Evaluate(testScope())
	require.Error(t, err)
}

func TestShortCircuit(t *testing.T) {
	// The right side would fail with an unknown name if evaluated.
	require.Equal(t, false, eval(t, "count == 0 && undefined_name > 1"))
	require.Equal(t, true, eval(t, "count == 3 || undefined_name > 1"))
}

func TestEvaluateErrors(t *testing.T) {
	tests := []struct {
		src      string
		notFound bool
	}{
		{"missing + 1", true},
		{"$missing", true},
		{"header.missing", true},
		{"nosuchfn(1)", true},
		{"1 / 0", false},
		{"name - 1", false},
		{"items[7]", false},
		{"ratio << 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := MustParse(tt.src).Evaluate(testScope())
			require.Error(t, err)
			var ee *EvalError
			require.True(t, errors.As(err, &ee), "want *EvalError, got %T", err)
			require.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
		})
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"len(items)", int64(3)},
		{"len(name)", int64(3)},
		{"len(header)", int64(2)},
		{"int('0x10')", int64(16)},
		{"str(count) + 'x'", "3x"},
		{"hex(255)", "0xff"},
		{"hex(255, 4)", "0x00ff"},
		{"hex(payload)", "deadbeef"},
		{"format('%s-%d', name, count)", "abc-3"},
		{"pad(5, 4)", int64(3)},
		{"pad(8, $align)", int64(0)},
		{"align(5, 4)", int64(8)},
		{"min(3, 1, 2)", int64(1)},
		{"max(count, 10)", int64(10)},
		{"bytes('AB')", []byte("AB")},
		{"bytes([1, 2])", []byte{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			require.Equal(t, tt.want, eval(t, tt.src))
		})
	}

	_, err := MustParse("pad(1, 0)").Evaluate(testScope())
	require.Error(t, err)
}

func TestHexBounds(t *testing.T) {
	v, err := fnHex([]any{int64(math.MinInt64)})
	require.NoError(t, err)
	require.Equal(t, "-0x8000000000000000", v)

	v, err = fnHex([]any{int64(-2), int64(4)})
	require.NoError(t, err)
	require.Equal(t, "-0x0002", v)

	v, err = fnHex([]any{uint64(math.MaxUint64), int64(16)})
	require.NoError(t, err)
	require.Equal(t, "0xffffffffffffffff", v)

	for _, src := range []string{"hex(1, 17)", "hex(1, 1000000000)", "hex(1, 0 - 1)"} {
		_, err := MustParse(src).Evaluate(testScope())
		require.ErrorContains(t, err, "outside 0..16", src)
	}
}

func TestEqualAndCompare(t *testing.T) {
	require.True(t, Equal(int64(1), uint8(1)))
	require.True(t, Equal("AB", []byte("AB")))
	require.True(t, Equal(wrapped{v: "x"}, "x"))
	require.False(t, Equal(int64(1), "1"))
	require.True(t, Equal(
		ordereddict.NewDict().Set("a", int64(1)),
		ordereddict.NewDict().Set("a", 1),
	))

	c, err := Compare(uint64(1<<63), int64(-1))
	require.NoError(t, err)
	require.Equal(t, 1, c)

	_, err = Compare("a", int64(1))
	require.Error(t, err)
}
