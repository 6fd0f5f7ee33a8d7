package expr

import (
	"fmt"
	"strings"
)

// lexer tokenizes expression source text.
type lexer struct {
	source string
	pos    int
}

func newLexer(source string) *lexer {
	return &lexer{source: source}
}

// tokenize consumes all source text. It stops at the first lexical error,
// which is returned as a *SyntaxError.
func (l *lexer) tokenize() ([]Token, error) {
	tokens := make([]Token, 0, max(len(l.source)/3, 8))
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) peek() (byte, bool) {
	if l.pos >= len(l.source) {
		return 0, false
	}
	return l.source[l.pos], true
}

func (l *lexer) peekAt(offset int) (byte, bool) {
	idx := l.pos + offset
	if idx >= len(l.source) {
		return 0, false
	}
	return l.source[idx], true
}

func (l *lexer) skipWhitespace() {
	for {
		b, ok := l.peek()
		if !ok || (b != ' ' && b != '\t' && b != '\r' && b != '\n') {
			return
		}
		l.pos++
	}
}

func (l *lexer) token(kind TokenKind, start int) Token {
	return Token{Kind: kind, Pos: start, Text: l.source[start:l.pos]}
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return &SyntaxError{Source: l.source, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) next() (Token, error) {
	l.skipWhitespace()
	start := l.pos

	b, ok := l.peek()
	if !ok {
		return l.token(TokEOF, start), nil
	}

	switch {
	case isIdentStart(b):
		l.scanIdent()
		return l.token(TokIdent, start), nil
	case b == '$':
		l.pos++
		if c, ok := l.peek(); !ok || !isIdentStart(c) {
			return Token{}, l.errorf(start, "expected parameter name after '$'")
		}
		l.scanIdent()
		return l.token(TokParam, start), nil
	case isDigit(b):
		return l.scanNumber(start)
	case b == '"' || b == '\'':
		return l.scanString(start, b)
	}

	two := ""
	if c, ok := l.peekAt(1); ok {
		two = string([]byte{b, c})
	}
	switch two {
	case "<<":
		l.pos += 2
		return l.token(TokShl, start), nil
	case ">>":
		l.pos += 2
		return l.token(TokShr, start), nil
	case "&&":
		l.pos += 2
		return l.token(TokAndAnd, start), nil
	case "||":
		l.pos += 2
		return l.token(TokOrOr, start), nil
	case "==":
		l.pos += 2
		return l.token(TokEq, start), nil
	case "!=":
		l.pos += 2
		return l.token(TokNe, start), nil
	case "<=":
		l.pos += 2
		return l.token(TokLe, start), nil
	case ">=":
		l.pos += 2
		return l.token(TokGe, start), nil
	}

	kind, ok := singleChar[b]
	if !ok {
		return Token{}, l.errorf(start, "unexpected character %q", b)
	}
	l.pos++
	return l.token(kind, start), nil
}

var singleChar = map[byte]TokenKind{
	'(': TokLParen,
	')': TokRParen,
	'[': TokLBracket,
	']': TokRBracket,
	'.': TokDot,
	',': TokComma,
	'?': TokQuestion,
	':': TokColon,
	'+': TokPlus,
	'-': TokMinus,
	'*': TokStar,
	'/': TokSlash,
	'%': TokPercent,
	'!': TokBang,
	'~': TokTilde,
	'&': TokAmp,
	'|': TokPipe,
	'^': TokCaret,
	'<': TokLt,
	'>': TokGt,
}

func (l *lexer) scanIdent() {
	for {
		b, ok := l.peek()
		if !ok || !isIdentPart(b) {
			return
		}
		l.pos++
	}
}

func (l *lexer) scanNumber(start int) (Token, error) {
	if b, _ := l.peek(); b == '0' {
		if c, ok := l.peekAt(1); ok && strings.IndexByte("xXbBoO", c) >= 0 {
			l.pos += 2
			digits := l.pos
			for {
				b, ok := l.peek()
				if !ok || !(isHexDigit(b) || b == '_') {
					break
				}
				l.pos++
			}
			if l.pos == digits {
				return Token{}, l.errorf(start, "missing digits after %q", l.source[start:digits])
			}
			return l.token(TokInt, start), nil
		}
	}

	kind := TokInt
	l.scanDigits()
	if b, ok := l.peek(); ok && b == '.' {
		if c, ok := l.peekAt(1); ok && isDigit(c) {
			kind = TokFloat
			l.pos++
			l.scanDigits()
		}
	}
	if b, ok := l.peek(); ok && (b == 'e' || b == 'E') {
		save := l.pos
		l.pos++
		if c, ok := l.peek(); ok && (c == '+' || c == '-') {
			l.pos++
		}
		if c, ok := l.peek(); ok && isDigit(c) {
			kind = TokFloat
			l.scanDigits()
		} else {
			l.pos = save
		}
	}
	return l.token(kind, start), nil
}

func (l *lexer) scanDigits() {
	for {
		b, ok := l.peek()
		if !ok || !(isDigit(b) || b == '_') {
			return
		}
		l.pos++
	}
}

func (l *lexer) scanString(start int, quote byte) (Token, error) {
	l.pos++
	for {
		b, ok := l.peek()
		if !ok {
			return Token{}, l.errorf(start, "unterminated string")
		}
		l.pos++
		if b == '\\' {
			if _, ok := l.peek(); !ok {
				return Token{}, l.errorf(start, "unterminated string")
			}
			l.pos++
			continue
		}
		if b == quote {
			return l.token(TokString, start), nil
		}
	}
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}
