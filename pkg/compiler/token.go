package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input
	EOL                  // statement-terminating line break

	// Literals
	INT_LIT    // 42, -7
	FLOAT_LIT  // 2.5
	STRING_LIT // "..." (lexeme holds the text between the quotes)
	NULL_LIT   // null
	TRUE_LIT   // true
	FALSE_LIT  // false

	IDENTIFIER

	// Keywords
	NOT      // not
	AND      // and
	OR       // or
	MOD      // mod
	IF       // if
	THEN     // then
	ELSEIF   // elseif
	ELSE     // else
	FOR      // for
	TO       // to
	STEP     // step
	DO       // do
	WHILE    // while
	RETURN   // return
	FUNCTION // function
	END      // end

	// Comparison
	EQUAL      // ==
	NOT_EQUAL  // <> or !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=

	// Arithmetic
	PLUS  // +
	MINUS // -
	MUL   // *
	DIV   // /

	// Punctuation
	ASSIGN    // =
	COMMA     // ,
	SEMICOLON // ;
	COLON     // :
	LPAREN    // (
	RPAREN    // )
	LBRACKET  // [
	RBRACKET  // ]
	LBRACE    // {
	RBRACE    // }

	// Type suffixes
	TYPE_INT    // %
	TYPE_FLOAT  // #
	TYPE_STRING // $
	TYPE_TABLE  // &
	TYPE_REF    // @
)

var tokenNames = [...]string{
	EOF:         "EOF",
	EOL:         "EOL",
	INT_LIT:     "INT_LIT",
	FLOAT_LIT:   "FLOAT_LIT",
	STRING_LIT:  "STRING_LIT",
	NULL_LIT:    "NULL_LIT",
	TRUE_LIT:    "TRUE_LIT",
	FALSE_LIT:   "FALSE_LIT",
	IDENTIFIER:  "IDENTIFIER",
	NOT:         "NOT",
	AND:         "AND",
	OR:          "OR",
	MOD:         "MOD",
	IF:          "IF",
	THEN:        "THEN",
	ELSEIF:      "ELSEIF",
	ELSE:        "ELSE",
	FOR:         "FOR",
	TO:          "TO",
	STEP:        "STEP",
	DO:          "DO",
	WHILE:       "WHILE",
	RETURN:      "RETURN",
	FUNCTION:    "FUNCTION",
	END:         "END",
	EQUAL:       "EQUAL",
	NOT_EQUAL:   "NOT_EQUAL",
	LESS:        "LESS",
	GREATER:     "GREATER",
	LESS_EQ:     "LESS_EQ",
	GREATER_EQ:  "GREATER_EQ",
	PLUS:        "PLUS",
	MINUS:       "MINUS",
	MUL:         "MUL",
	DIV:         "DIV",
	ASSIGN:      "ASSIGN",
	COMMA:       "COMMA",
	SEMICOLON:   "SEMICOLON",
	COLON:       "COLON",
	LPAREN:      "LPAREN",
	RPAREN:      "RPAREN",
	LBRACKET:    "LBRACKET",
	RBRACKET:    "RBRACKET",
	LBRACE:      "LBRACE",
	RBRACE:      "RBRACE",
	TYPE_INT:    "TYPE_INT",
	TYPE_FLOAT:  "TYPE_FLOAT",
	TYPE_STRING: "TYPE_STRING",
	TYPE_TABLE:  "TYPE_TABLE",
	TYPE_REF:    "TYPE_REF",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// IsSuffix reports whether tt is one of the one-character type suffixes.
func (tt TokenType) IsSuffix() bool {
	return tt >= TYPE_INT && tt <= TYPE_REF
}

// IsStatementEnd reports whether tt terminates a statement on its own.
func (tt TokenType) IsStatementEnd() bool {
	return tt == EOL || tt == SEMICOLON
}

// endsOperand reports whether a token of this type can close an operand, in
// which case a following '-' is a binary minus rather than a literal sign.
func (tt TokenType) endsOperand() bool {
	switch tt {
	case INT_LIT, FLOAT_LIT, STRING_LIT, NULL_LIT, TRUE_LIT, FALSE_LIT,
		IDENTIFIER, RPAREN, RBRACKET, RBRACE:
		return true
	}
	return tt.IsSuffix()
}

// Token is a single lexical unit produced by the lexer.
type Token struct {
	Type   TokenType
	Lexeme string // the source text that was matched
	File   string
	Line   int // 1-based source line
}

func (t Token) String() string {
	return fmt.Sprintf("%-12s %-14q  %s(%d)", t.Type, t.Lexeme, t.File, t.Line)
}
