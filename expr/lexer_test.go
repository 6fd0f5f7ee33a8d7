package expr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Kind
	}
	return out
}

func TestLexerTokens(t *testing.T) {
	tests := []struct {
		src  string
		want []TokenKind
	}{
		{"length", []TokenKind{TokIdent, TokEOF}},
		{"$endian", []TokenKind{TokParam, TokEOF}},
		{"0x1f + 0b10 - 0o7", []TokenKind{TokInt, TokPlus, TokInt, TokMinus, TokInt, TokEOF}},
		{"1.5e3 * 2", []TokenKind{TokFloat, TokStar, TokInt, TokEOF}},
		{"a.b[0]", []TokenKind{TokIdent, TokDot, TokIdent, TokLBracket, TokInt, TokRBracket, TokEOF}},
		{"x << 2 >= y >> 1", []TokenKind{TokIdent, TokShl, TokInt, TokGe, TokIdent, TokShr, TokInt, TokEOF}},
		{"a && !b || c != d", []TokenKind{TokIdent, TokAndAnd, TokBang, TokIdent, TokOrOr, TokIdent, TokNe, TokIdent, TokEOF}},
		{`"it's" + 'x'`, []TokenKind{TokString, TokPlus, TokString, TokEOF}},
		{"c ? 1 : 2", []TokenKind{TokIdent, TokQuestion, TokInt, TokColon, TokInt, TokEOF}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			tokens, err := newLexer(tt.src).tokenize()
			require.NoError(t, err)
			require.Equal(t, tt.want, kinds(tokens))
		})
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		src string
		pos int
	}{
		{`"open`, 0},
		{"a # b", 2},
		{"$ 1", 0},
		{"0x", 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := newLexer(tt.src).tokenize()
			var se *SyntaxError
			require.ErrorAs(t, err, &se)
			require.Equal(t, tt.pos, se.Pos)
		})
	}
}
