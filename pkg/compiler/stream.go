package compiler

// TokenStream is a cursor over a borrowed token slice. Peek, Next and HasNext
// look through EOL tokens; Raw and SkipEOLs are for the places where a line
// break is significant.
type TokenStream struct {
	tokens []Token
	pos    int
}

func NewTokenStream(tokens []Token) *TokenStream {
	return &TokenStream{tokens: tokens}
}

// Pos returns the cursor offset so it can be restored with SetPos.
func (s *TokenStream) Pos() int { return s.pos }

func (s *TokenStream) SetPos(pos int) { s.pos = pos }

// eof synthesises an end-of-input token positioned on the last real line.
func (s *TokenStream) eof() Token {
	if len(s.tokens) == 0 {
		return Token{Type: EOF}
	}
	last := s.tokens[len(s.tokens)-1]
	return Token{Type: EOF, File: last.File, Line: last.Line}
}

// skip returns the offset of the first non-EOL token at or after pos.
func (s *TokenStream) skip(pos int) int {
	for pos < len(s.tokens) && s.tokens[pos].Type == EOL {
		pos++
	}
	return pos
}

// HasNext reports whether a non-EOL token remains.
func (s *TokenStream) HasNext() bool {
	return s.skip(s.pos) < len(s.tokens)
}

// Peek returns the n-th upcoming non-EOL token without advancing.
func (s *TokenStream) Peek(n int) Token {
	pos := s.skip(s.pos)
	for ; n > 0 && pos < len(s.tokens); n-- {
		pos = s.skip(pos + 1)
	}
	if pos >= len(s.tokens) {
		return s.eof()
	}
	return s.tokens[pos]
}

// Next consumes and returns the next non-EOL token.
func (s *TokenStream) Next() Token {
	s.pos = s.skip(s.pos)
	if s.pos >= len(s.tokens) {
		return s.eof()
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok
}

// Raw returns the token under the cursor, EOL included, without advancing.
func (s *TokenStream) Raw() Token {
	if s.pos >= len(s.tokens) {
		return s.eof()
	}
	return s.tokens[s.pos]
}

// SkipEOLs advances past any EOL tokens and reports whether it skipped one.
func (s *TokenStream) SkipEOLs() bool {
	pos := s.skip(s.pos)
	skipped := pos != s.pos
	s.pos = pos
	return skipped
}
