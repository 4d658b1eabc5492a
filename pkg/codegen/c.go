package codegen

import (
	"fmt"
	"strings"

	"picoc/pkg/compiler"
)

// C renders C source for the pico C runtime (core.h). Strings and tables are
// reference counted: every assignment retains the new value before
// releasing the old one, and each function funnels all exits through a
// single epilogue that releases its managed locals and parameters and
// flushes the autorelease entries made since it was entered.
type C struct{}

func NewC() *C { return &C{} }

func (g *C) Name() string      { return "c" }
func (g *C) Extension() string { return ".c" }

func (g *C) ctype(t compiler.Type) string {
	switch t {
	case compiler.Int:
		return "TInt"
	case compiler.Float:
		return "TFloat"
	case compiler.String:
		return "const TChar*"
	case compiler.Table:
		return "struct TTable*"
	case compiler.Ref:
		return "void*"
	}
	return "void"
}

// initial is the starting value of a variable. Managed strings start as a
// retained empty string so that the first release is balanced.
func (g *C) initial(t compiler.Type) string {
	switch t {
	case compiler.Float:
		return "0.0"
	case compiler.String:
		return `(const TChar*)_IncRef((void*)_Lit(""))`
	case compiler.Table, compiler.Ref:
		return "NULL"
	}
	return "0"
}

func (g *C) decl(v compiler.Var) string {
	return g.ctype(v.Type) + " " + varName(v)
}

func (g *C) prototype(fn *compiler.Function) string {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = g.decl(p)
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	return fmt.Sprintf("%s %s(%s)", g.ctype(fn.Return), userFunc(fn), strings.Join(params, ", "))
}

func (g *C) Program(functions, statements []string, defs *compiler.Definitions) string {
	var sb strings.Builder
	sb.WriteString("#include <math.h>\n#include <string.h>\n#include \"core.h\"\n\n")
	for _, v := range defs.Globals() {
		zero := "0"
		switch v.Type {
		case compiler.Float:
			zero = "0.0"
		case compiler.String, compiler.Table, compiler.Ref:
			zero = "NULL"
		}
		fmt.Fprintf(&sb, "static %s = %s;\n", g.decl(v), zero)
	}
	if len(defs.Globals()) > 0 {
		sb.WriteString("\n")
	}
	for _, fn := range defs.Functions() {
		fmt.Fprintf(&sb, "%s;\n", g.prototype(fn))
	}
	if len(defs.Functions()) > 0 {
		sb.WriteString("\n")
	}
	for _, fn := range functions {
		sb.WriteString(fn)
		sb.WriteString("\n")
	}
	for _, fn := range defs.Functions() {
		sb.WriteString(g.trampoline(fn))
	}
	if len(defs.Functions()) > 0 {
		sb.WriteString("\n")
	}

	in := indent(1)
	sb.WriteString("int main(int argc, const char* argv[]) {\n")
	fmt.Fprintf(&sb, "%s_SetArgs(argc, argv);\n", in)
	for _, fn := range defs.Functions() {
		fmt.Fprintf(&sb, "%s_Register(%s, __call_%s);\n", in, g.quote(fn.Name), userFunc(fn))
	}
	for _, v := range defs.Globals() {
		if v.Type == compiler.String {
			fmt.Fprintf(&sb, "%s%s = %s;\n", in, varName(v), g.initial(v.Type))
		}
	}
	for _, stmt := range statements {
		sb.WriteString(indentLines(stmt, in))
		fmt.Fprintf(&sb, "%s_DoAutoDec();\n", in)
	}
	fmt.Fprintf(&sb, "%sreturn 0;\n}\n", in)
	return sb.String()
}

// trampoline adapts fn to the reflection calling convention: arguments
// come from the queue filled by AddIntArg and friends, the result goes back
// through _RetInt, _RetFloat or _RetString. Tables and refs cannot be
// queued and arrive as NULL.
func (g *C) trampoline(fn *compiler.Function) string {
	args := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		switch p.Type {
		case compiler.Int:
			args[i] = fmt.Sprintf("_ArgInt(%d)", i)
		case compiler.Float:
			args[i] = fmt.Sprintf("_ArgFloat(%d)", i)
		case compiler.String:
			args[i] = fmt.Sprintf("_ArgString(%d)", i)
		default:
			args[i] = "NULL"
		}
	}
	call := fmt.Sprintf("%s(%s)", userFunc(fn), strings.Join(args, ", "))
	switch fn.Return {
	case compiler.Int:
		call = "_RetInt(" + call + ")"
	case compiler.Float:
		call = "_RetFloat(" + call + ")"
	case compiler.String:
		call = "_RetString(" + call + ")"
	}
	return fmt.Sprintf("static void __call_%s(void) { %s; }\n", userFunc(fn), call)
}

func (g *C) FunctionDef(fn *compiler.Function, locals []compiler.Var, block string) string {
	var sb strings.Builder
	in := indent(1)
	fmt.Fprintf(&sb, "%s {\n", g.prototype(fn))
	fmt.Fprintf(&sb, "%ssize_t __mark = _Mark();\n", in)
	if fn.Return != compiler.Void {
		fmt.Fprintf(&sb, "%s%s __r = %s;\n", in, g.ctype(fn.Return), g.initial(fn.Return))
	}
	for _, v := range locals {
		fmt.Fprintf(&sb, "%s%s = %s;\n", in, g.decl(v), g.initial(v.Type))
	}
	for _, p := range fn.Params {
		if p.Type.IsManaged() {
			fmt.Fprintf(&sb, "%s_IncRef((void*)%s);\n", in, varName(p))
		}
	}
	sb.WriteString(block)

	sb.WriteString("__epilogue:\n")
	for _, v := range append(append([]compiler.Var{}, fn.Params...), locals...) {
		if v.Type.IsManaged() {
			fmt.Fprintf(&sb, "%s_DecRef((void*)%s);\n", in, varName(v))
		}
	}
	fmt.Fprintf(&sb, "%s_Release(__mark);\n", in)
	switch {
	case fn.Return == compiler.Void:
		fmt.Fprintf(&sb, "%sreturn;\n", in)
	case fn.Return.IsManaged():
		fmt.Fprintf(&sb, "%sreturn (%s)_AutoDec((void*)__r);\n", in, g.ctype(fn.Return))
	default:
		fmt.Fprintf(&sb, "%sreturn __r;\n", in)
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (g *C) Statement(code string) string { return code + ";\n" }

func (g *C) ExprStatement(exp compiler.Expression) string { return exp.Code + ";\n" }

func (g *C) truthy(exp compiler.Expression) string {
	switch exp.Type {
	case compiler.Int, compiler.Float:
		return fmt.Sprintf("(%s != 0)", grouped(exp.Code))
	case compiler.String:
		return fmt.Sprintf("(%s[0] != '\\0')", grouped(exp.Code))
	}
	return fmt.Sprintf("(%s != NULL)", grouped(exp.Code))
}

func (g *C) If(cond compiler.Expression, block string, elseIfs []compiler.ElseIf, elseBlock *string, level int) string {
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

func (g *C) For(control compiler.Var, assignment string, to, step compiler.Expression, block string, level int) string {
	v := varName(control)
	return fmt.Sprintf("for (%s; (%s) >= 0 ? %s <= (%s) : %s >= (%s); %s += (%s)) {\n%s%s}\n",
		assignment, step.Code, v, to.Code, v, to.Code, v, step.Code, block, indent(level))
}

func (g *C) While(cond compiler.Expression, block string, level int) string {
	return fmt.Sprintf("while %s {\n%s%s}\n", g.truthy(cond), block, indent(level))
}

func (g *C) Return(fn *compiler.Function, exp *compiler.Expression) string {
	switch {
	case exp == nil:
		return "goto __epilogue;\n"
	case exp.Type.IsManaged():
		// The value may be one of the locals released by the epilogue.
		t := g.ctype(fn.Return)
		return fmt.Sprintf("{ %s __tmp = (%s)_IncRef((void*)(%s)); _DecRef((void*)__r); __r = __tmp; goto __epilogue; }\n", t, t, exp.Code)
	default:
		return fmt.Sprintf("{ __r = %s; goto __epilogue; }\n", exp.Code)
	}
}

func (g *C) VarDef(v compiler.Var, exp compiler.Expression, global bool) string {
	return g.Assignment(v, exp)
}

func (g *C) Assignment(v compiler.Var, exp compiler.Expression) string {
	name := varName(v)
	if v.Type.IsManaged() {
		t := g.ctype(v.Type)
		return fmt.Sprintf("{ %s __tmp = (%s)_IncRef((void*)(%s)); _DecRef((void*)%s); %s = __tmp; }", t, t, exp.Code, name, name)
	}
	return fmt.Sprintf("%s = %s", name, exp.Code)
}

func (g *C) Binary(op compiler.TokenType, operands compiler.Type, left, right compiler.Expression) string {
	switch op {
	case compiler.AND:
		return fmt.Sprintf("(%s && %s)", g.truthy(left), g.truthy(right))
	case compiler.OR:
		return fmt.Sprintf("(%s || %s)", g.truthy(left), g.truthy(right))
	case compiler.PLUS:
		if operands == compiler.String {
			return fmt.Sprintf("_StrCat(%s, %s)", left.Code, right.Code)
		}
	case compiler.DIV:
		if operands == compiler.Int {
			return fmt.Sprintf("_IDiv(%s, %s)", left.Code, right.Code)
		}
	case compiler.MOD:
		if operands == compiler.Float {
			return fmt.Sprintf("fmod(%s, %s)", left.Code, right.Code)
		}
		return fmt.Sprintf("_IMod(%s, %s)", left.Code, right.Code)
	}
	if sym, ok := comparisonOps[op]; ok {
		if operands == compiler.String {
			return fmt.Sprintf("(strcmp(%s, %s) %s 0)", left.Code, right.Code, sym)
		}
		return fmt.Sprintf("(%s %s %s)", left.Code, sym, right.Code)
	}
	return fmt.Sprintf("(%s %s %s)", left.Code, arithmeticOps[op], right.Code)
}

func (g *C) Unary(op compiler.TokenType, exp compiler.Expression) string {
	if op == compiler.NOT {
		return fmt.Sprintf("(!%s)", g.truthy(exp))
	}
	return fmt.Sprintf("(-%s)", exp.Code)
}

func (g *C) Group(exp compiler.Expression) string { return "(" + exp.Code + ")" }

func (g *C) Cast(to compiler.Type, exp compiler.Expression) string {
	switch {
	case exp.Type == to:
		return exp.Code
	case exp.Type == compiler.Int && to == compiler.Float:
		return "((TFloat)(" + exp.Code + "))"
	case exp.Type == compiler.Float && to == compiler.Int:
		return "((TInt)(" + exp.Code + "))"
	case exp.Type == compiler.Int && to == compiler.String:
		return "Str(" + exp.Code + ")"
	case exp.Type == compiler.Float && to == compiler.String:
		return "StrF(" + exp.Code + ")"
	case exp.Type == compiler.String && to == compiler.Int:
		return "Val(" + exp.Code + ")"
	case exp.Type == compiler.String && to == compiler.Float:
		return "ValF(" + exp.Code + ")"
	}
	return exp.Code
}

func (g *C) Call(fn *compiler.Function, args []compiler.Expression) string {
	name := fn.Name
	if !fn.Library {
		name = userFunc(fn)
	}
	return fmt.Sprintf("%s(%s)", name, joinArgs(args))
}

func (g *C) Var(v compiler.Var) string { return varName(v) }

func (g *C) Literal(tok compiler.Token) string {
	switch tok.Type {
	case compiler.STRING_LIT:
		return "_Lit(" + g.quote(tok.Lexeme) + ")"
	case compiler.NULL_LIT:
		return "NULL"
	case compiler.TRUE_LIT:
		return "1"
	case compiler.FALSE_LIT:
		return "0"
	}
	return tok.Lexeme
}

func (g *C) quote(s string) string {
	return quote(s, func(b byte) string { return fmt.Sprintf(`\%03o`, b) })
}

// key renders an index as the string key the runtime expects.
func (g *C) key(index compiler.Expression) string {
	if index.Type == compiler.Int {
		return "Str(" + index.Code + ")"
	}
	return index.Code
}

func (g *C) List(values []compiler.Expression) string {
	keys := make([]string, len(values))
	for i := range values {
		keys[i] = "_Lit(" + g.quote(fmt.Sprint(i)) + ")"
	}
	return buildTable("", keys, values)
}

func (g *C) Dict(keys, values []compiler.Expression) string {
	codes := make([]string, len(keys))
	for i, k := range keys {
		codes[i] = k.Code
	}
	return buildTable("", codes, values)
}

func (g *C) IndexGet(as compiler.Type, container string, index compiler.Expression) string {
	return fmt.Sprintf("_Table%s(%s, %s)", tableSuffix(as), container, g.key(index))
}

func (g *C) IndexSet(container string, index, value compiler.Expression) string {
	return fmt.Sprintf("_SetTable%s(%s, %s, %s)", tableSuffix(value.Type), container, g.key(index), value.Code)
}

func (g *C) Indent(level int) string { return indent(level) }
