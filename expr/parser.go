package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Expression is a parsed, immutable expression. It is safe to evaluate
// concurrently against independent scopes.
type Expression struct {
	source string
	root   node
}

// Parse parses expression text. Malformed input yields a *SyntaxError.
func Parse(source string) (*Expression, error) {
	tokens, err := newLexer(source).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{source: source, tokens: tokens}
	root, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if !p.check(TokEOF) {
		return nil, p.errorf("unexpected %s", p.peek().Kind)
	}
	return &Expression{source: source, root: root}, nil
}

// MustParse is like Parse but panics on error. Use for expressions that
// are fixed at compile time.
func MustParse(source string) *Expression {
	e, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the original expression text.
func (e *Expression) Source() string {
	return e.source
}

func (e *Expression) String() string {
	return e.source
}

// Names returns the distinct bare identifiers the expression looks up,
// in first-use order. Parameter references and function names are not
// included.
func (e *Expression) Names() []string {
	var names []string
	seen := make(map[string]bool)
	var walk func(n node)
	walk = func(n node) {
		switch n := n.(type) {
		case *nameNode:
			if !seen[n.name] {
				seen[n.name] = true
				names = append(names, n.name)
			}
		case *listNode:
			for _, item := range n.items {
				walk(item)
			}
		case *unaryNode:
			walk(n.operand)
		case *binaryNode:
			walk(n.left)
			walk(n.right)
		case *logicalNode:
			walk(n.left)
			walk(n.right)
		case *ternaryNode:
			walk(n.cond)
			walk(n.then)
			walk(n.otherwise)
		case *memberNode:
			walk(n.target)
		case *indexNode:
			walk(n.target)
			walk(n.index)
		case *callNode:
			for _, arg := range n.args {
				walk(arg)
			}
		}
	}
	walk(e.root)
	return names
}

type parser struct {
	source string
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) advance() Token {
	tok := p.tokens[p.pos]
	if tok.Kind != TokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *parser) expect(kind TokenKind) (Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return Token{}, p.errorf("expected %s, found %s", kind, p.peek().Kind)
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Source: p.source, Pos: p.peek().Pos, Msg: fmt.Sprintf(format, args...)}
}

// binaryPrecedence maps binary operators to binding strength.
// Higher binds tighter; zero means "not a binary operator".
var binaryPrecedence = map[TokenKind]int{
	TokOrOr:    1,
	TokAndAnd:  2,
	TokPipe:    3,
	TokCaret:   4,
	TokAmp:     5,
	TokEq:      6,
	TokNe:      6,
	TokLt:      7,
	TokLe:      7,
	TokGt:      7,
	TokGe:      7,
	TokShl:     8,
	TokShr:     8,
	TokPlus:    9,
	TokMinus:   9,
	TokStar:    10,
	TokSlash:   10,
	TokPercent: 10,
}

func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseBinary(1)
	if err != nil {
		return nil, err
	}
	if !p.check(TokQuestion) {
		return cond, nil
	}
	at := p.advance().Pos
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokColon); err != nil {
		return nil, err
	}
	otherwise, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ternaryNode{nodeBase: nodeBase{at}, cond: cond, then: then, otherwise: otherwise}, nil
}

// parseBinary is precedence climbing over left-associative operators.
func (p *parser) parseBinary(minPrec int) (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		prec := binaryPrecedence[op.Kind]
		if prec == 0 || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		if op.Kind == TokAndAnd || op.Kind == TokOrOr {
			left = &logicalNode{nodeBase: nodeBase{op.Pos}, op: op.Kind, left: left, right: right}
		} else {
			left = &binaryNode{nodeBase: nodeBase{op.Pos}, op: op.Kind, left: left, right: right}
		}
	}
}

func (p *parser) parseUnary() (node, error) {
	switch tok := p.peek(); tok.Kind {
	case TokMinus, TokBang, TokTilde:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{nodeBase: nodeBase{tok.Pos}, op: tok.Kind, operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch tok := p.peek(); tok.Kind {
		case TokDot:
			p.advance()
			name, err := p.expect(TokIdent)
			if err != nil {
				return nil, err
			}
			n = &memberNode{nodeBase: nodeBase{tok.Pos}, target: n, name: name.Text}
		case TokLBracket:
			p.advance()
			idx, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket); err != nil {
				return nil, err
			}
			n = &indexNode{nodeBase: nodeBase{tok.Pos}, target: n, index: idx}
		case TokLParen:
			name, ok := n.(*nameNode)
			if !ok {
				return nil, p.errorf("only named functions can be called")
			}
			p.advance()
			args, err := p.parseList(TokRParen)
			if err != nil {
				return nil, err
			}
			n = &callNode{nodeBase: nodeBase{name.at}, fn: name.name, args: args}
		default:
			return n, nil
		}
	}
}

// parseList parses comma-separated expressions up to and including the
// closing token. A trailing comma is accepted.
func (p *parser) parseList(closing TokenKind) ([]node, error) {
	var items []node
	for !p.check(closing) {
		item, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.check(TokComma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(closing); err != nil {
		return nil, err
	}
	return items, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.peek()
	base := nodeBase{tok.Pos}
	switch tok.Kind {
	case TokInt:
		p.advance()
		v, err := parseIntLiteral(tok.Text)
		if err != nil {
			return nil, &SyntaxError{Source: p.source, Pos: tok.Pos, Msg: err.Error()}
		}
		return &literalNode{nodeBase: base, value: v}, nil
	case TokFloat:
		p.advance()
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, "_", ""), 64)
		if err != nil {
			return nil, &SyntaxError{Source: p.source, Pos: tok.Pos, Msg: "invalid float literal " + tok.Text}
		}
		return &literalNode{nodeBase: base, value: v}, nil
	case TokString:
		p.advance()
		s, err := unquote(tok.Text)
		if err != nil {
			return nil, &SyntaxError{Source: p.source, Pos: tok.Pos, Msg: err.Error()}
		}
		return &literalNode{nodeBase: base, value: s}, nil
	case TokIdent:
		p.advance()
		switch tok.Text {
		case "true":
			return &literalNode{nodeBase: base, value: true}, nil
		case "false":
			return &literalNode{nodeBase: base, value: false}, nil
		case "null":
			return &literalNode{nodeBase: base, value: nil}, nil
		}
		return &nameNode{nodeBase: base, name: tok.Text}, nil
	case TokParam:
		p.advance()
		return &paramNode{nodeBase: base, name: tok.Text[1:]}, nil
	case TokLParen:
		p.advance()
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case TokLBracket:
		p.advance()
		items, err := p.parseList(TokRBracket)
		if err != nil {
			return nil, err
		}
		return &listNode{nodeBase: base, items: items}, nil
	}
	return nil, p.errorf("unexpected %s", tok.Kind)
}

func parseIntLiteral(text string) (any, error) {
	if v, err := strconv.ParseInt(text, 0, 64); err == nil {
		return v, nil
	}
	v, err := strconv.ParseUint(text, 0, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer literal %s", text)
	}
	return v, nil
}

func unquote(text string) (string, error) {
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '0':
			b.WriteByte(0)
		case '\\', '"', '\'':
			b.WriteByte(body[i])
		case 'x':
			if i+3 > len(body) {
				return "", fmt.Errorf("short \\x escape")
			}
			v, err := strconv.ParseUint(body[i+1:i+3], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid \\x escape %q", body[i+1:i+3])
			}
			b.WriteByte(byte(v))
			i += 2
		default:
			return "", fmt.Errorf("unknown escape \\%c", body[i])
		}
	}
	return b.String(), nil
}
