package compiler

import "strings"

// keywords maps lower-cased source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"not":      NOT,
	"and":      AND,
	"or":       OR,
	"mod":      MOD,
	"if":       IF,
	"then":     THEN,
	"elseif":   ELSEIF,
	"else":     ELSE,
	"for":      FOR,
	"to":       TO,
	"step":     STEP,
	"do":       DO,
	"while":    WHILE,
	"return":   RETURN,
	"function": FUNCTION,
	"end":      END,
	"null":     NULL_LIT,
	"true":     TRUE_LIT,
	"false":    FALSE_LIT,
}

// symbols is tried in order, so multi-character symbols come before their
// single-character prefixes.
var symbols = []struct {
	text string
	tt   TokenType
}{
	{"==", EQUAL},
	{"<>", NOT_EQUAL},
	{"!=", NOT_EQUAL},
	{">=", GREATER_EQ},
	{"<=", LESS_EQ},
	{"<", LESS},
	{">", GREATER},
	{"+", PLUS},
	{"-", MINUS},
	{"*", MUL},
	{"/", DIV},
	{"=", ASSIGN},
	{",", COMMA},
	{";", SEMICOLON},
	{":", COLON},
	{"(", LPAREN},
	{")", RPAREN},
	{"[", LBRACKET},
	{"]", RBRACKET},
	{"{", LBRACE},
	{"}", RBRACE},
	{"%", TYPE_INT},
	{"#", TYPE_FLOAT},
	{"$", TYPE_STRING},
	{"&", TYPE_TABLE},
	{"@", TYPE_REF},
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	file string
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	prev TokenType
}

func newLexer(src, file string) *Lexer {
	return &Lexer{src: []rune(src), file: file, line: 1, prev: EOL}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
	}
	return r
}

func (l *Lexer) errorf(format string, args ...any) *Error {
	return errorAt(Token{File: l.file, Line: l.line}, format, args...)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlpha(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

// skipBlank discards blanks and comments. It stops on a line break, which is
// a token in its own right.
func (l *Lexer) skipBlank() error {
	for l.pos < len(l.src) {
		switch r := l.peek(); {
		case r == ' ' || r == '\t' || r == '\r' || r == '\f' || r == '\v':
			l.advance()
		case r == '/' && l.peek2() == '/':
			for l.pos < len(l.src) && l.peek() != '\n' {
				l.advance()
			}
		case r == '/' && l.peek2() == '*':
			l.advance()
			l.advance()
			if err := l.skipBlockComment(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// skipBlockComment discards everything up to and including the closing "*/".
// The opening "/*" must already have been consumed.
func (l *Lexer) skipBlockComment() error {
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return l.errorf("Comment must be closed")
}

// scanNumber collects an int literal, extending it into a float literal when
// a '.' followed by a digit comes next. A leading '-' must already be at
// l.peek() when signed is true.
func (l *Lexer) scanNumber(signed bool) Token {
	line := l.line
	start := l.pos
	if signed {
		l.advance()
	}
	for isDigit(l.peek()) {
		l.advance()
	}
	tt := INT_LIT
	if l.peek() == '.' && isDigit(l.peek2()) {
		tt = FLOAT_LIT
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return Token{Type: tt, Lexeme: string(l.src[start:l.pos]), File: l.file, Line: line}
}

func (l *Lexer) scanSymbol() (Token, bool) {
	for _, sym := range symbols {
		n := len(sym.text)
		if l.pos+n > len(l.src) || string(l.src[l.pos:l.pos+n]) != sym.text {
			continue
		}
		tok := Token{Type: sym.tt, Lexeme: sym.text, File: l.file, Line: l.line}
		l.pos += n
		return tok, true
	}
	return Token{}, false
}

// scanString collects a string literal. There is no escape processing; the
// literal must close on the line it was opened.
func (l *Lexer) scanString() (Token, error) {
	line := l.line
	l.advance() // opening "
	start := l.pos
	for l.pos < len(l.src) && l.peek() != '"' && l.peek() != '\n' {
		l.advance()
	}
	if l.peek() != '"' {
		return Token{}, l.errorf("String must be closed")
	}
	text := string(l.src[start:l.pos])
	l.advance() // closing "
	return Token{Type: STRING_LIT, Lexeme: text, File: l.file, Line: line}, nil
}

// scanIdent collects an identifier or keyword. Keywords match regardless of
// case; identifiers keep their spelling.
func (l *Lexer) scanIdent() Token {
	start := l.pos
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[strings.ToLower(lexeme)]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, File: l.file, Line: l.line}
}

// nextToken returns the next raw token, including EOL tokens. At end of input
// it returns EOF.
func (l *Lexer) nextToken() (Token, error) {
	if err := l.skipBlank(); err != nil {
		return Token{}, err
	}
	if l.pos >= len(l.src) {
		return Token{Type: EOF, File: l.file, Line: l.line}, nil
	}

	ch := l.peek()
	if ch == '\n' {
		tok := Token{Type: EOL, Lexeme: "\n", File: l.file, Line: l.line}
		l.advance()
		return tok, nil
	}
	if isDigit(ch) {
		return l.scanNumber(false), nil
	}
	if ch == '-' && isDigit(l.peek2()) && !l.prev.endsOperand() {
		return l.scanNumber(true), nil
	}
	if tok, ok := l.scanSymbol(); ok {
		return tok, nil
	}
	if ch == '"' {
		return l.scanString()
	}
	if isAlpha(ch) {
		return l.scanIdent(), nil
	}
	return Token{}, l.errorf("Unrecognized token '%c'", ch)
}

// Tokenize converts source text into raw tokens, EOLs included, without the
// terminator normalisation done by ParseTokens.
func Tokenize(src, file string) ([]Token, error) {
	l := newLexer(src, file)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == EOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
		l.prev = tok.Type
	}
}

// ParseTokens tokenizes src and normalises statement terminators: leading
// line breaks are dropped, a line break directly after another terminator is
// dropped, and a final EOL is appended when the last token does not already
// end a statement. The result never holds two adjacent EOL tokens.
func ParseTokens(src, file string) ([]Token, error) {
	raw, err := Tokenize(src, file)
	if err != nil {
		return nil, err
	}
	tokens := make([]Token, 0, len(raw)+1)
	for _, tok := range raw {
		if tok.Type == EOL && (len(tokens) == 0 || tokens[len(tokens)-1].Type.IsStatementEnd()) {
			continue
		}
		tokens = append(tokens, tok)
	}
	if len(tokens) == 0 || !tokens[len(tokens)-1].Type.IsStatementEnd() {
		line := 1
		if len(raw) > 0 {
			line = raw[len(raw)-1].Line
		}
		tokens = append(tokens, Token{Type: EOL, Lexeme: "\n", File: file, Line: line})
	}
	return tokens, nil
}
