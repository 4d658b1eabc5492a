package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"picoc/pkg/compiler"
)

// JS renders a Node program that loads the pico runtime module (pico.js)
// from its own directory. The target is garbage collected, so no
// retain/release traffic is emitted. User functions are registered with the
// runtime by name for the reflection built-ins.
type JS struct{}

func NewJS() *JS { return &JS{} }

func (g *JS) Name() string      { return "js" }
func (g *JS) Extension() string { return ".js" }

func (g *JS) zero(t compiler.Type) string {
	switch t {
	case compiler.Float:
		return "0.0"
	case compiler.String:
		return `""`
	case compiler.Table, compiler.Ref:
		return "null"
	}
	return "0"
}

func (g *JS) Program(functions, statements []string, defs *compiler.Definitions) string {
	var sb strings.Builder
	sb.WriteString("\"use strict\";\nconst pico = require(\"./pico.js\");\n")
	for _, v := range defs.Globals() {
		fmt.Fprintf(&sb, "var %s = %s;\n", varName(v), g.zero(v.Type))
	}
	for _, fn := range defs.Functions() {
		types := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			types[i] = strconv.Quote(p.Type.String())
		}
		fmt.Fprintf(&sb, "pico._Register(%s, %s, [%s]);\n", strconv.Quote(fn.Name), userFunc(fn), strings.Join(types, ", "))
	}
	for _, fn := range functions {
		sb.WriteString(fn)
	}
	for _, stmt := range statements {
		sb.WriteString(stmt)
	}
	return sb.String()
}

func (g *JS) FunctionDef(fn *compiler.Function, locals []compiler.Var, block string) string {
	var sb strings.Builder
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = varName(p)
	}
	in := indent(1)
	fmt.Fprintf(&sb, "function %s(%s) {\n", userFunc(fn), strings.Join(params, ", "))
	for _, v := range locals {
		fmt.Fprintf(&sb, "%svar %s = %s;\n", in, varName(v), g.zero(v.Type))
	}
	sb.WriteString(block)
	if fn.Return != compiler.Void {
		fmt.Fprintf(&sb, "%sreturn %s;\n", in, g.zero(fn.Return))
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (g *JS) Statement(code string) string { return code + ";\n" }

func (g *JS) ExprStatement(exp compiler.Expression) string { return exp.Code + ";\n" }

func (g *JS) truthy(exp compiler.Expression) string {
	switch exp.Type {
	case compiler.Int, compiler.Float:
		return fmt.Sprintf("(%s !== 0)", grouped(exp.Code))
	case compiler.String:
		return fmt.Sprintf(`(%s !== "")`, grouped(exp.Code))
	}
	return fmt.Sprintf("(%s != null)", grouped(exp.Code))
}

func (g *JS) If(cond compiler.Expression, block string, elseIfs []compiler.ElseIf, elseBlock *string, level int) string {
	var sb strings.Builder
	in := indent(level)
	fmt.Fprintf(&sb, "if %s {\n%s", g.truthy(cond), block)
	for _, e := range elseIfs {
		fmt.Fprintf(&sb, "%s} else if %s {\n%s", in, g.truthy(e.Cond), e.Block)
	}
	if elseBlock != nil {
		fmt.Fprintf(&sb, "%s} else {\n%s", in, *elseBlock)
	}
	fmt.Fprintf(&sb, "%s}\n", in)
	return sb.String()
}

func (g *JS) For(control compiler.Var, assignment string, to, step compiler.Expression, block string, level int) string {
	v := varName(control)
	return fmt.Sprintf("for (%s; (%s) >= 0 ? %s <= (%s) : %s >= (%s); %s += (%s)) {\n%s%s}\n",
		assignment, step.Code, v, to.Code, v, to.Code, v, step.Code, block, indent(level))
}

func (g *JS) While(cond compiler.Expression, block string, level int) string {
	return fmt.Sprintf("while %s {\n%s%s}\n", g.truthy(cond), block, indent(level))
}

func (g *JS) Return(fn *compiler.Function, exp *compiler.Expression) string {
	if exp == nil {
		return "return;\n"
	}
	return "return " + exp.Code + ";\n"
}

func (g *JS) VarDef(v compiler.Var, exp compiler.Expression, global bool) string {
	return g.Assignment(v, exp)
}

func (g *JS) Assignment(v compiler.Var, exp compiler.Expression) string {
	return fmt.Sprintf("%s = %s", varName(v), exp.Code)
}

func (g *JS) Binary(op compiler.TokenType, operands compiler.Type, left, right compiler.Expression) string {
	switch op {
	case compiler.AND:
		return fmt.Sprintf("((%s && %s) ? 1 : 0)", g.truthy(left), g.truthy(right))
	case compiler.OR:
		return fmt.Sprintf("((%s || %s) ? 1 : 0)", g.truthy(left), g.truthy(right))
	case compiler.DIV:
		if operands == compiler.Int {
			return fmt.Sprintf("pico._IDiv(%s, %s)", left.Code, right.Code)
		}
	case compiler.MOD:
		if operands == compiler.Int {
			return fmt.Sprintf("pico._IMod(%s, %s)", left.Code, right.Code)
		}
		return fmt.Sprintf("(%s %% %s)", left.Code, right.Code)
	case compiler.EQUAL:
		return fmt.Sprintf("((%s === %s) ? 1 : 0)", left.Code, right.Code)
	case compiler.NOT_EQUAL:
		return fmt.Sprintf("((%s !== %s) ? 1 : 0)", left.Code, right.Code)
	}
	if sym, ok := comparisonOps[op]; ok {
		return fmt.Sprintf("((%s %s %s) ? 1 : 0)", left.Code, sym, right.Code)
	}
	return fmt.Sprintf("(%s %s %s)", left.Code, arithmeticOps[op], right.Code)
}

func (g *JS) Unary(op compiler.TokenType, exp compiler.Expression) string {
	if op == compiler.NOT {
		return fmt.Sprintf("(%s ? 0 : 1)", g.truthy(exp))
	}
	return fmt.Sprintf("(- %s)", exp.Code)
}

func (g *JS) Group(exp compiler.Expression) string { return "(" + exp.Code + ")" }

func (g *JS) Cast(to compiler.Type, exp compiler.Expression) string {
	switch {
	case exp.Type == to, exp.Type == compiler.Int && to == compiler.Float:
		return exp.Code
	case exp.Type == compiler.Float && to == compiler.Int:
		return "Math.trunc(" + exp.Code + ")"
	case exp.Type == compiler.Int && to == compiler.String:
		return "pico.Str(" + exp.Code + ")"
	case exp.Type == compiler.Float && to == compiler.String:
		return "pico.StrF(" + exp.Code + ")"
	case exp.Type == compiler.String && to == compiler.Int:
		return "pico.Val(" + exp.Code + ")"
	case exp.Type == compiler.String && to == compiler.Float:
		return "pico.ValF(" + exp.Code + ")"
	}
	return exp.Code
}

func (g *JS) Call(fn *compiler.Function, args []compiler.Expression) string {
	name := "pico." + fn.Name
	if !fn.Library {
		name = userFunc(fn)
	}
	return fmt.Sprintf("%s(%s)", name, joinArgs(args))
}

func (g *JS) Var(v compiler.Var) string { return varName(v) }

func (g *JS) Literal(tok compiler.Token) string {
	switch tok.Type {
	case compiler.STRING_LIT:
		return quote(tok.Lexeme, func(b byte) string { return fmt.Sprintf(`\x%02x`, b) })
	case compiler.NULL_LIT:
		return "null"
	case compiler.TRUE_LIT:
		return "1"
	case compiler.FALSE_LIT:
		return "0"
	}
	return tok.Lexeme
}

func (g *JS) List(values []compiler.Expression) string {
	keys := make([]string, len(values))
	for i := range values {
		keys[i] = fmt.Sprint(i)
	}
	return buildTable("pico.", keys, values)
}

func (g *JS) Dict(keys, values []compiler.Expression) string {
	codes := make([]string, len(keys))
	for i, k := range keys {
		codes[i] = k.Code
	}
	return buildTable("pico.", codes, values)
}

func (g *JS) IndexGet(as compiler.Type, container string, index compiler.Expression) string {
	return fmt.Sprintf("pico._Table%s(%s, %s)", tableSuffix(as), container, index.Code)
}

func (g *JS) IndexSet(container string, index, value compiler.Expression) string {
	return fmt.Sprintf("pico._SetTable%s(%s, %s, %s)", tableSuffix(value.Type), container, index.Code, value.Code)
}

func (g *JS) Indent(level int) string { return indent(level) }
