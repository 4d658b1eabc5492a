package compiler

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Parser type-checks a token stream and drives a Generator to render it.
//
// Grammar:
//
//	program    = (function | statement)*
//	function   = "function" ID [suffix] "(" [param ("," param)*] ")" [suffix] block "end"
//	param      = ID suffix
//	statement  = assignment | vardef | if | for | while | return | expression
//	assignment = ID [suffix] ("[" expr "]")* "=" expr
//	if         = "if" expr "then" block ("elseif" expr "then" block)* ["else" block] "end"
//	for        = "for" assignment "to" expr ["step" expr] ["do"] block "end"
//	while      = "while" expr ["do"] block "end"
//	return     = "return" [expr]
//
// Statements end at a line break, a ';', or the token closing the enclosing
// block. Expression precedence is documented in parser_expr.go.
type Parser struct {
	stream *TokenStream
	gen    Generator
	defs   *Definitions
	lib    map[string]*Function
	libs   []*Function

	current *Function // function whose body is being parsed, nil at top level
	level   int       // block nesting used for indentation
	code    string
	log     logrus.FieldLogger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for debug tracing.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Parser) { p.log = log }
}

func NewParser(tokens []Token, gen Generator, opts ...Option) *Parser {
	p := &Parser{
		stream: NewTokenStream(tokens),
		gen:    gen,
		defs:   NewDefinitions(),
		lib:    make(map[string]*Function),
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Code returns the generated program after a successful Parse.
func (p *Parser) Code() string { return p.code }

func (p *Parser) Definitions() *Definitions { return p.defs }

// Library returns the registered library functions in registration order.
func (p *Parser) Library() []*Function { return p.libs }

func (p *Parser) findFunction(name string) *Function {
	if fn, ok := p.lib[key(name)]; ok {
		return fn
	}
	return p.defs.FindFunction(name)
}

// ParseLibrary registers the function headers in tokens as library
// functions. It may be called several times before Parse.
func (p *Parser) ParseLibrary(tokens []Token) error {
	saved := p.stream
	p.stream = NewTokenStream(tokens)
	defer func() { p.stream = saved }()

	for p.stream.HasNext() {
		if tok := p.stream.Peek(0); tok.Type != FUNCTION {
			return errorAt(tok, "Library can only contain function headers")
		}
		fn, err := p.parseFunctionHeader(true)
		if err != nil {
			return err
		}
		fn.Library = true
		p.lib[key(fn.Name)] = fn
		p.libs = append(p.libs, fn)
		p.defs.ClearLocals()
		if err := p.parseStatementEnd(); err != nil {
			return err
		}
	}
	p.log.WithField("functions", len(p.libs)).Debug("library registered")
	return nil
}

// Parse runs the pre-scan pass and then parses and renders the program.
func (p *Parser) Parse() error {
	if err := p.scanFunctions(); err != nil {
		return err
	}
	p.log.WithField("functions", len(p.defs.Functions())).Debug("pre-scan complete")

	var functions, statements []string
	for p.stream.HasNext() {
		if p.stream.Peek(0).Type == FUNCTION {
			code, err := p.parseFunction()
			if err != nil {
				return err
			}
			functions = append(functions, code)
			continue
		}
		code, err := p.parseStatement()
		if err != nil {
			return err
		}
		if code != "" {
			statements = append(statements, code)
		}
	}
	p.code = p.gen.Program(functions, statements, p.defs)
	return nil
}

// scanFunctions registers every function header in the stream without
// parsing bodies, then rewinds. Bodies are skipped by counting block
// openers against "end".
func (p *Parser) scanFunctions() error {
	start := p.stream.Pos()
	for p.stream.HasNext() {
		if p.stream.Peek(0).Type != FUNCTION {
			p.stream.Next()
			continue
		}
		fn, err := p.parseFunctionHeader(true)
		if err != nil {
			return err
		}
		p.defs.AddFunction(fn)
		p.defs.ClearLocals()
		if err := p.skipBody(); err != nil {
			return err
		}
	}
	p.stream.SetPos(start)
	return nil
}

func (p *Parser) skipBody() error {
	depth := 1
	for {
		tok := p.stream.Next()
		switch tok.Type {
		case FUNCTION, IF, FOR, WHILE:
			depth++
		case END:
			depth--
			if depth == 0 {
				return nil
			}
		case EOF:
			return errorAt(tok, "Expected 'end'")
		}
	}
}

// checkNewName fails when tok names a library function, a user function or
// a variable visible in the current scope.
func (p *Parser) checkNewName(tok Token) error {
	if _, ok := p.lib[key(tok.Lexeme)]; ok {
		return errorAt(tok, "Identifier already used as library function: %s", tok.Lexeme)
	}
	if p.defs.FindFunction(tok.Lexeme) != nil {
		return errorAt(tok, "Identifier already used as function: %s", tok.Lexeme)
	}
	if _, ok := p.defs.FindVar(tok.Lexeme); ok {
		return errorAt(tok, "Identifier already used for variable: %s", tok.Lexeme)
	}
	return nil
}

func (p *Parser) expectIdentifier() (Token, error) {
	tok := p.stream.Next()
	if tok.Type != IDENTIFIER {
		return tok, errorAt(tok, "Expected identifier, got '%s'", tok.Lexeme)
	}
	return tok, nil
}

// expect consumes the next token, failing with msg when it is not tt.
func (p *Parser) expect(tt TokenType, msg string) (Token, error) {
	tok := p.stream.Next()
	if tok.Type != tt {
		return tok, errorAt(tok, "%s, got '%s'", msg, tok.Lexeme)
	}
	return tok, nil
}

// parseFunctionHeader parses a header and leaves its parameters in the local
// scope. When register is false the function must already be known from the
// pre-scan and that signature is returned.
func (p *Parser) parseFunctionHeader(register bool) (*Function, error) {
	p.stream.Next() // function
	nameTok, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	fn := &Function{Name: nameTok.Lexeme}
	if register {
		if err := p.checkNewName(nameTok); err != nil {
			return nil, err
		}
	}

	if t, ok := TypeFromSuffix(p.stream.Raw().Type); ok {
		p.stream.Next()
		fn.Return = t
	}
	if _, err := p.expect(LPAREN, "Expected '('"); err != nil {
		return nil, err
	}
	if p.stream.Peek(0).Type != RPAREN {
		for {
			tok, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			if err := p.checkNewName(tok); err != nil {
				return nil, err
			}
			t, ok := TypeFromSuffix(p.stream.Raw().Type)
			if !ok {
				return nil, errorAt(p.stream.Peek(0), "Expected parameter type")
			}
			p.stream.Next()
			param := Var{Name: tok.Lexeme, Type: t}
			fn.Params = append(fn.Params, param)
			p.defs.AddLocal(param)
			if p.stream.Peek(0).Type != COMMA {
				break
			}
			p.stream.Next()
		}
	}
	if _, err := p.expect(RPAREN, "Expected ')'"); err != nil {
		return nil, err
	}
	if t, ok := TypeFromSuffix(p.stream.Raw().Type); ok && fn.Return == Void {
		p.stream.Next()
		fn.Return = t
	}

	if !register {
		if known := p.defs.FindFunction(fn.Name); known != nil {
			return known, nil
		}
	}
	return fn, nil
}

func (p *Parser) parseFunction() (string, error) {
	fn, err := p.parseFunctionHeader(false)
	if err != nil {
		return "", err
	}
	p.current = fn
	p.level = 1
	defer func() {
		p.current = nil
		p.level = 0
		p.defs.ClearLocals()
	}()

	block, err := p.parseBlock(END)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(END, "Expected 'end'"); err != nil {
		return "", err
	}
	if err := p.parseStatementEnd(); err != nil {
		return "", err
	}
	locals := p.defs.Locals()[len(fn.Params):]
	return p.gen.FunctionDef(fn, locals, block), nil
}

// parseBlock parses statements until one of the terminators is next. The
// terminator is left in the stream.
func (p *Parser) parseBlock(terminators ...TokenType) (string, error) {
	var sb strings.Builder
	for {
		tok := p.stream.Peek(0)
		for _, tt := range terminators {
			if tok.Type == tt {
				return sb.String(), nil
			}
		}
		if tok.Type == EOF {
			return "", errorAt(tok, "Expected 'end'")
		}
		code, err := p.parseStatement()
		if err != nil {
			return "", err
		}
		sb.WriteString(code)
	}
}

// parseStatementEnd accepts a line break or ';' (consumed) or a block
// closing keyword (left for the caller).
func (p *Parser) parseStatementEnd() error {
	if p.stream.SkipEOLs() {
		return nil
	}
	switch tok := p.stream.Raw(); tok.Type {
	case SEMICOLON:
		p.stream.Next()
		return nil
	case END, ELSEIF, ELSE, EOF:
		return nil
	default:
		return errorAt(tok, "Expected ';' or new line, got '%s'", tok.Lexeme)
	}
}

// atStatementEnd reports whether the raw cursor sits on something that ends
// the current statement.
func (p *Parser) atStatementEnd() bool {
	switch p.stream.Raw().Type {
	case EOL, SEMICOLON, END, ELSEIF, ELSE, EOF:
		return true
	}
	return false
}

func (p *Parser) parseStatement() (string, error) {
	tok := p.stream.Peek(0)
	indent := p.gen.Indent(p.level)
	var code string
	var err error
	switch tok.Type {
	case SEMICOLON:
		p.stream.Next()
		return "", nil
	case IF:
		code, err = p.parseIf()
	case FOR:
		code, err = p.parseFor()
	case WHILE:
		code, err = p.parseWhile()
	case RETURN:
		code, err = p.parseReturn()
	case FUNCTION:
		return "", errorAt(tok, "Functions can only be defined at top level")
	default:
		if p.isAssignment() {
			code, _, err = p.parseAssignment()
			if err == nil {
				code = p.gen.Statement(code)
			}
		} else {
			var exp Expression
			exp, err = p.parseExpression()
			if err == nil {
				code = p.gen.ExprStatement(exp)
			}
		}
		if err == nil {
			err = p.parseStatementEnd()
		}
	}
	if err != nil {
		return "", err
	}
	return indent + code, nil
}

// isAssignment looks ahead for ID [suffix] ("[" ... "]")* "=".
func (p *Parser) isAssignment() bool {
	if p.stream.Peek(0).Type != IDENTIFIER {
		return false
	}
	i := 1
	if p.stream.Peek(i).Type.IsSuffix() {
		i++
	}
	for p.stream.Peek(i).Type == LBRACKET {
		depth := 0
		for {
			switch p.stream.Peek(i).Type {
			case LBRACKET:
				depth++
			case RBRACKET:
				depth--
			case EOF:
				return false
			}
			i++
			if depth == 0 {
				break
			}
		}
	}
	return p.stream.Peek(i).Type == ASSIGN
}

// coerce converts a numeric expression to the numeric type to.
func (p *Parser) coerce(exp Expression, to Type) Expression {
	if exp.Type != to && exp.Type.IsNumeric() && to.IsNumeric() {
		return Expression{Type: to, Code: p.gen.Cast(to, exp)}
	}
	return exp
}

func requireValue(exp Expression, tok Token) error {
	if exp.Type == Void {
		return errorAt(tok, "Expression has no value")
	}
	return nil
}

// parseAssignment parses an assignment to an existing variable or table
// slot, or defines a new variable. It returns the rendered code and the
// variable assigned to.
func (p *Parser) parseAssignment() (string, Var, error) {
	nameTok := p.stream.Next()
	if p.findFunction(nameTok.Lexeme) != nil {
		return "", Var{}, errorAt(nameTok, "Cannot assign to a function")
	}
	v, ok := p.defs.FindVar(nameTok.Lexeme)
	if !ok {
		return p.parseVarDef(nameTok)
	}

	if t, ok := TypeFromSuffix(p.stream.Raw().Type); ok {
		if t != v.Type {
			return "", Var{}, errorAt(nameTok, "Identifier already used for variable: %s", nameTok.Lexeme)
		}
		p.stream.Next()
	}
	if p.stream.Raw().Type == LBRACKET {
		code, err := p.parseIndexSet(v, nameTok)
		return code, v, err
	}
	if _, err := p.expect(ASSIGN, "Expected '='"); err != nil {
		return "", Var{}, err
	}
	expTok := p.stream.Peek(0)
	exp, err := p.parseExpression()
	if err != nil {
		return "", Var{}, err
	}
	if err := requireValue(exp, expTok); err != nil {
		return "", Var{}, err
	}
	if !AreCompatible(v.Type, exp.Type) {
		return "", Var{}, errorAt(expTok, "Incompatible types")
	}
	return p.gen.Assignment(v, p.coerce(exp, v.Type)), v, nil
}

func (p *Parser) parseVarDef(nameTok Token) (string, Var, error) {
	if err := p.checkNewName(nameTok); err != nil {
		return "", Var{}, err
	}
	declared := Void
	if t, ok := TypeFromSuffix(p.stream.Raw().Type); ok {
		p.stream.Next()
		declared = t
	}
	if tok := p.stream.Peek(0); tok.Type != ASSIGN {
		if tok.Type == LBRACKET {
			return "", Var{}, errorAt(nameTok, "Variable has not been initialized: %s", nameTok.Lexeme)
		}
		return "", Var{}, errorAt(tok, "Variables must be initialized")
	}
	p.stream.Next()

	expTok := p.stream.Peek(0)
	exp, err := p.parseExpression()
	if err != nil {
		return "", Var{}, err
	}
	if err := requireValue(exp, expTok); err != nil {
		return "", Var{}, err
	}
	if declared == Void {
		declared = exp.Type
	} else if !AreCompatible(declared, exp.Type) {
		return "", Var{}, errorAt(expTok, "Incompatible types")
	}

	v := Var{Name: nameTok.Lexeme, Type: declared}
	global := p.current == nil
	if global {
		p.defs.AddGlobal(v)
	} else {
		p.defs.AddLocal(v)
	}
	return p.gen.VarDef(v, p.coerce(exp, declared), global), v, nil
}

// parseIndexSet parses "[i]...[k] = value" after a table variable.
func (p *Parser) parseIndexSet(v Var, nameTok Token) (string, error) {
	if v.Type != Table {
		return "", errorAt(nameTok, "Only tables can be indexed")
	}
	container := p.gen.Var(v)
	var index Expression
	for {
		idx, err := p.parseIndex()
		if err != nil {
			return "", err
		}
		index = idx
		if p.stream.Raw().Type != LBRACKET {
			break
		}
		container = p.gen.IndexGet(Table, container, index)
	}
	if _, err := p.expect(ASSIGN, "Expected '='"); err != nil {
		return "", err
	}
	valTok := p.stream.Peek(0)
	value, err := p.parseExpression()
	if err != nil {
		return "", err
	}
	if err := requireValue(value, valTok); err != nil {
		return "", err
	}
	return p.gen.IndexSet(container, index, value), nil
}

// parseIndex parses one "[expr]" accessor.
func (p *Parser) parseIndex() (Expression, error) {
	p.stream.Next() // [
	tok := p.stream.Peek(0)
	idx, err := p.parseExpression()
	if err != nil {
		return Expression{}, err
	}
	if idx.Type != Int && idx.Type != String {
		return Expression{}, errorAt(tok, "Only int and string expressions can be used as table indices")
	}
	if _, err := p.expect(RBRACKET, "Expected ']'"); err != nil {
		return Expression{}, err
	}
	return idx, nil
}

func (p *Parser) parseCondition() (Expression, error) {
	tok := p.stream.Peek(0)
	cond, err := p.parseExpression()
	if err != nil {
		return Expression{}, err
	}
	return cond, requireValue(cond, tok)
}

func (p *Parser) parseIf() (string, error) {
	p.stream.Next() // if
	cond, err := p.parseCondition()
	if err != nil {
		return "", err
	}
	if _, err := p.expect(THEN, "Expected 'then'"); err != nil {
		return "", err
	}
	p.level++
	block, err := p.parseBlock(ELSEIF, ELSE, END)
	if err != nil {
		return "", err
	}
	var elseIfs []ElseIf
	for p.stream.Peek(0).Type == ELSEIF {
		p.stream.Next()
		c, err := p.parseCondition()
		if err != nil {
			return "", err
		}
		if _, err := p.expect(THEN, "Expected 'then'"); err != nil {
			return "", err
		}
		b, err := p.parseBlock(ELSEIF, ELSE, END)
		if err != nil {
			return "", err
		}
		elseIfs = append(elseIfs, ElseIf{Cond: c, Block: b})
	}
	var elseBlock *string
	if p.stream.Peek(0).Type == ELSE {
		p.stream.Next()
		b, err := p.parseBlock(END)
		if err != nil {
			return "", err
		}
		elseBlock = &b
	}
	p.level--
	if _, err := p.expect(END, "Expected 'end'"); err != nil {
		return "", err
	}
	if err := p.parseStatementEnd(); err != nil {
		return "", err
	}
	return p.gen.If(cond, block, elseIfs, elseBlock, p.level), nil
}

func (p *Parser) parseFor() (string, error) {
	p.stream.Next() // for
	tok := p.stream.Peek(0)
	if tok.Type != IDENTIFIER {
		return "", errorAt(tok, "Expected identifier, got '%s'", tok.Lexeme)
	}
	assignment, control, err := p.parseAssignment()
	if err != nil {
		return "", err
	}
	if !control.Type.IsNumeric() {
		return "", errorAt(tok, "For control variable must be numeric")
	}
	if _, err := p.expect(TO, "Expected 'to'"); err != nil {
		return "", err
	}
	toTok := p.stream.Peek(0)
	to, err := p.parseExpression()
	if err != nil {
		return "", err
	}
	if !AreCompatible(control.Type, to.Type) {
		return "", errorAt(toTok, "Incompatible types")
	}
	step := Expression{Type: Int, Code: p.gen.Literal(Token{Type: INT_LIT, Lexeme: "1"})}
	if p.stream.Peek(0).Type == STEP {
		p.stream.Next()
		stepTok := p.stream.Peek(0)
		if step, err = p.parseExpression(); err != nil {
			return "", err
		}
		if !AreCompatible(control.Type, step.Type) {
			return "", errorAt(stepTok, "Incompatible types")
		}
	}
	if p.stream.Peek(0).Type == DO {
		p.stream.Next()
	}
	p.level++
	block, err := p.parseBlock(END)
	if err != nil {
		return "", err
	}
	p.level--
	if _, err := p.expect(END, "Expected 'end'"); err != nil {
		return "", err
	}
	if err := p.parseStatementEnd(); err != nil {
		return "", err
	}
	return p.gen.For(control, assignment, p.coerce(to, control.Type), p.coerce(step, control.Type), block, p.level), nil
}

func (p *Parser) parseWhile() (string, error) {
	p.stream.Next() // while
	cond, err := p.parseCondition()
	if err != nil {
		return "", err
	}
	if p.stream.Peek(0).Type == DO {
		p.stream.Next()
	}
	p.level++
	block, err := p.parseBlock(END)
	if err != nil {
		return "", err
	}
	p.level--
	if _, err := p.expect(END, "Expected 'end'"); err != nil {
		return "", err
	}
	if err := p.parseStatementEnd(); err != nil {
		return "", err
	}
	return p.gen.While(cond, block, p.level), nil
}

func (p *Parser) parseReturn() (string, error) {
	tok := p.stream.Next() // return
	if p.current == nil {
		return "", errorAt(tok, "Cannot use return statement outside a function")
	}
	if p.atStatementEnd() {
		if p.current.Return != Void {
			return "", errorAt(tok, "Function must return a value")
		}
		if err := p.parseStatementEnd(); err != nil {
			return "", err
		}
		return p.gen.Return(p.current, nil), nil
	}
	if p.current.Return == Void {
		return "", errorAt(tok, "Function cannot return a value")
	}
	expTok := p.stream.Peek(0)
	exp, err := p.parseExpression()
	if err != nil {
		return "", err
	}
	if !AreCompatible(p.current.Return, exp.Type) {
		return "", errorAt(expTok, "Incompatible types")
	}
	if err := p.parseStatementEnd(); err != nil {
		return "", err
	}
	exp = p.coerce(exp, p.current.Return)
	return p.gen.Return(p.current, &exp), nil
}
