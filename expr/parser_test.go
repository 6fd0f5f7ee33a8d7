package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseErrors(t *testing.T) {
	tests := []string{
		"",
		"1 +",
		"(1",
		"a.",
		"a[1",
		"1 ? 2",
		"f(1,",
		"1(2)",
		"1 2",
		"99999999999999999999999",
		`"\q"`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := Parse(src)
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			require.Equal(t, src, se.Source)
		})
	}
}

func TestParsePreservesSource(t *testing.T) {
	e, err := Parse("length - 4")
	require.NoError(t, err)
	require.Equal(t, "length - 4", e.Source())
	require.Equal(t, "length - 4", e.String())
}

func TestNames(t *testing.T) {
	e := MustParse("hdr.len + pad(hdr.len, $align) + items[idx] + hdr.len")
	require.Equal(t, []string{"hdr", "items", "idx"}, e.Names())
}

func TestMustParsePanics(t *testing.T) {
	require.Panics(t, func() { MustParse("1 +") })
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want any
	}{
		{"1 + 2 << 1", int64(6)},
		{"1 | 2 ^ 3", int64(1)},
		{"2 * 3 % 4", int64(2)},
		{"1 < 2 == true", true},
		{"true || false && false", true},
		{"- 2 * 3", int64(-6)},
		{"1 ? 2 : 0 ? 3 : 4", int64(2)},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			v, err := MustParse(tt.src).Evaluate(NewMapScope(nil))
			require.NoError(t, err)
			require.Equal(t, tt.want, v)
		})
	}
}
