package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiagnosticString(t *testing.T) {
	tests := []struct {
		name string
		diag Diagnostic
		want string
	}{
		{
			name: "with path",
			diag: Diagnostic{Severity: SeverityError, Code: DiagUndefinedReference, Path: "packet.body", Message: `"tlv" is not defined`},
			want: `[error] packet.body: "tlv" is not defined`,
		},
		{
			name: "without path",
			diag: Diagnostic{Severity: SeverityWarning, Message: "no entry point"},
			want: "[warning] no entry point",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.diag.String())
		})
	}
}

func TestHexContext(t *testing.T) {
	buf := make([]byte, 64)
	for i := range buf {
		buf[i] = byte(i)
	}

	dump, start := HexContext(buf, 40)
	require.Equal(t, 24, start)
	require.True(t, strings.HasPrefix(dump, "00000000  18 19 1a"), dump)

	dump, start = HexContext(buf, 2)
	require.Equal(t, 0, start)
	require.Contains(t, dump, "00 01 02")

	dump, _ = HexContext(nil, 0)
	require.Empty(t, dump)
}

func TestNilLoggerIsSilent(t *testing.T) {
	var l Logger
	require.False(t, l.Enabled(LevelTrace))
	require.False(t, l.TraceEnabled())
	l.Trace("ignored")
	require.Nil(t, Component(nil, "engine"))
}
