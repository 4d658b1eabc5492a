package compiler

// Expression is the result of parsing an expression: its static type and the
// code the generator rendered for it.
type Expression struct {
	Type Type
	Code string
}

// ElseIf is one rendered elseif arm, passed to Generator.If in order.
type ElseIf struct {
	Cond  Expression
	Block string
}

// Generator renders parse events as target source text. Every method is a
// pure function of already-rendered children plus type information; all
// validation happens in the Parser before a Generator method is called.
type Generator interface {
	// Name is the backend name used for selection, e.g. "lua".
	Name() string
	// Extension is the output file extension including the dot.
	Extension() string

	// Program joins rendered functions and top-level statements into the
	// final output. defs gives access to globals and function signatures.
	Program(functions, statements []string, defs *Definitions) string
	// FunctionDef wraps a rendered body. locals excludes the parameters.
	FunctionDef(fn *Function, locals []Var, block string) string

	// Statement terminates an assignment or definition.
	Statement(code string) string
	// ExprStatement renders an expression evaluated for its side effects.
	ExprStatement(exp Expression) string
	If(cond Expression, block string, elseIfs []ElseIf, elseBlock *string, indent int) string
	For(control Var, assignment string, to, step Expression, block string, indent int) string
	While(cond Expression, block string, indent int) string
	// Return renders a return statement; exp is nil for a bare return.
	Return(fn *Function, exp *Expression) string
	VarDef(v Var, exp Expression, global bool) string
	Assignment(v Var, exp Expression) string

	// Binary renders a binary operator. operands is the balanced type of
	// the two sides; the result type has already been decided by the parser.
	Binary(op TokenType, operands Type, left, right Expression) string
	Unary(op TokenType, exp Expression) string
	Group(exp Expression) string
	Cast(to Type, exp Expression) string
	Call(fn *Function, args []Expression) string
	Var(v Var) string
	Literal(tok Token) string
	List(values []Expression) string
	Dict(keys, values []Expression) string
	IndexGet(as Type, container string, index Expression) string
	IndexSet(container string, index, value Expression) string

	Indent(level int) string
}
