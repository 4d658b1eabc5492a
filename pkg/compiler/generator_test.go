package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// echoGen renders every construct as a compact pseudo-code that keeps the
// type information the parser passed along, so parser tests can assert on
// typing decisions without involving a real backend.
type echoGen struct{}

var _ Generator = echoGen{}

var echoOps = map[TokenType]string{
	OR:         "or",
	AND:        "and",
	EQUAL:      "==",
	NOT_EQUAL:  "<>",
	LESS:       "<",
	LESS_EQ:    "<=",
	GREATER:    ">",
	GREATER_EQ: ">=",
	PLUS:       "+",
	MINUS:      "-",
	MUL:        "*",
	DIV:        "/",
	MOD:        "mod",
}

func (echoGen) Name() string      { return "echo" }
func (echoGen) Extension() string { return ".echo" }

func (echoGen) Program(functions, statements []string, _ *Definitions) string {
	return strings.Join(functions, "") + strings.Join(statements, "")
}

func (echoGen) FunctionDef(fn *Function, locals []Var, block string) string {
	names := make([]string, len(locals))
	for i, v := range locals {
		names[i] = v.Name + v.Type.Suffix()
	}
	return fmt.Sprintf("%s locals(%s)\n%send\n", fn, strings.Join(names, ", "), block)
}

func (echoGen) Statement(code string) string { return code + "\n" }

func (echoGen) ExprStatement(exp Expression) string { return "do " + exp.Code + "\n" }

func (g echoGen) If(cond Expression, block string, elseIfs []ElseIf, elseBlock *string, indent int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "if %s then\n%s", cond.Code, block)
	for _, e := range elseIfs {
		fmt.Fprintf(&sb, "%selseif %s then\n%s", g.Indent(indent), e.Cond.Code, e.Block)
	}
	if elseBlock != nil {
		fmt.Fprintf(&sb, "%selse\n%s", g.Indent(indent), *elseBlock)
	}
	sb.WriteString(g.Indent(indent) + "end\n")
	return sb.String()
}

func (g echoGen) For(_ Var, assignment string, to, step Expression, block string, indent int) string {
	return fmt.Sprintf("for %s to %s step %s\n%s%send\n", assignment, to.Code, step.Code, block, g.Indent(indent))
}

func (g echoGen) While(cond Expression, block string, indent int) string {
	return fmt.Sprintf("while %s\n%s%send\n", cond.Code, block, g.Indent(indent))
}

func (echoGen) Return(_ *Function, exp *Expression) string {
	if exp == nil {
		return "return\n"
	}
	return "return " + exp.Code + "\n"
}

func (echoGen) VarDef(v Var, exp Expression, global bool) string {
	scope := "local"
	if global {
		scope = "global"
	}
	return fmt.Sprintf("%s %s%s = %s", scope, v.Name, v.Type.Suffix(), exp.Code)
}

func (echoGen) Assignment(v Var, exp Expression) string { return v.Name + " = " + exp.Code }

func (echoGen) Binary(op TokenType, operands Type, left, right Expression) string {
	return fmt.Sprintf("%s %s%s %s", left.Code, echoOps[op], operands.Suffix(), right.Code)
}

func (echoGen) Unary(op TokenType, exp Expression) string {
	if op == NOT {
		return "not " + exp.Code
	}
	return "-" + exp.Code
}

func (echoGen) Group(exp Expression) string { return "(" + exp.Code + ")" }

func (echoGen) Cast(to Type, exp Expression) string { return to.String() + "(" + exp.Code + ")" }

func (echoGen) Call(fn *Function, args []Expression) string {
	return fn.Name + "(" + joinCode(args) + ")"
}

func (echoGen) Var(v Var) string { return v.Name }

func (echoGen) Literal(tok Token) string {
	if tok.Type == STRING_LIT {
		return strconv.Quote(tok.Lexeme)
	}
	return tok.Lexeme
}

func (echoGen) List(values []Expression) string { return "[" + joinCode(values) + "]" }

func (echoGen) Dict(keys, values []Expression) string {
	pairs := make([]string, len(keys))
	for i := range keys {
		pairs[i] = keys[i].Code + ": " + values[i].Code
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func (echoGen) IndexGet(as Type, container string, index Expression) string {
	return container + "[" + index.Code + "]" + as.Suffix()
}

func (echoGen) IndexSet(container string, index, value Expression) string {
	return container + "[" + index.Code + "] = " + value.Code
}

func (echoGen) Indent(level int) string { return strings.Repeat("  ", level) }

func joinCode(exps []Expression) string {
	codes := make([]string, len(exps))
	for i, e := range exps {
		codes[i] = e.Code
	}
	return strings.Join(codes, ", ")
}
