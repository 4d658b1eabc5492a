// Package compiler provides the lexer, token stream, symbol table, type rules
// and two-pass recursive-descent parser of the pico language. The parser
// type-checks as it goes and renders code through a Generator, so one front
// end serves every backend.
//
// Pipeline: source → ParseTokens → Parser.ParseLibrary* → Parser.Parse → Generator output
package compiler
