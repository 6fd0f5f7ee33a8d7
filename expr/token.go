package expr

// Token is a lexed token with its kind, byte offset, and source text.
type Token struct {
	Kind TokenKind
	Pos  int
	Text string
}

// TokenKind identifies a token type.
type TokenKind int

const (
	TokError TokenKind = iota
	TokEOF

	TokIdent  // name
	TokParam  // $name
	TokInt    // 42, 0x2a, 0b101010, 0o52
	TokFloat  // 4.2, 1e3
	TokString // "text" or 'text'

	TokLParen   // (
	TokRParen   // )
	TokLBracket // [
	TokRBracket // ]
	TokDot      // .
	TokComma    // ,
	TokQuestion // ?
	TokColon    // :

	TokPlus    // +
	TokMinus   // -
	TokStar    // *
	TokSlash   // /
	TokPercent // %
	TokBang    // !
	TokTilde   // ~
	TokAmp     // &
	TokPipe    // |
	TokCaret   // ^
	TokShl     // <<
	TokShr     // >>
	TokAndAnd  // &&
	TokOrOr    // ||
	TokEq      // ==
	TokNe      // !=
	TokLt      // <
	TokLe      // <=
	TokGt      // >
	TokGe      // >=
)

var tokenNames = [...]string{
	TokError:    "error",
	TokEOF:      "end of expression",
	TokIdent:    "identifier",
	TokParam:    "parameter",
	TokInt:      "integer",
	TokFloat:    "float",
	TokString:   "string",
	TokLParen:   "'('",
	TokRParen:   "')'",
	TokLBracket: "'['",
	TokRBracket: "']'",
	TokDot:      "'.'",
	TokComma:    "','",
	TokQuestion: "'?'",
	TokColon:    "':'",
	TokPlus:     "'+'",
	TokMinus:    "'-'",
	TokStar:     "'*'",
	TokSlash:    "'/'",
	TokPercent:  "'%'",
	TokBang:     "'!'",
	TokTilde:    "'~'",
	TokAmp:      "'&'",
	TokPipe:     "'|'",
	TokCaret:    "'^'",
	TokShl:      "'<<'",
	TokShr:      "'>>'",
	TokAndAnd:   "'&&'",
	TokOrOr:     "'||'",
	TokEq:       "'=='",
	TokNe:       "'!='",
	TokLt:       "'<'",
	TokLe:       "'<='",
	TokGt:       "'>'",
	TokGe:       "'>='",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenNames) {
		return tokenNames[k]
	}
	return "unknown"
}
