package codegen

import (
	"fmt"
	"strings"

	"picoc/pkg/compiler"
)

// luaPrelude is emitted at the top of every Lua program. Numbers are doubles
// in the VM, so integer division, integer mod and float-to-int casts truncate
// explicitly.
const luaPrelude = `local function __idiv(a, b)
    if b == 0 then return 0 end
    local q = a / b
    if q < 0 then return math.ceil(q) end
    return math.floor(q)
end
local function __imod(a, b)
    if b == 0 then return 0 end
    return math.fmod(a, b)
end
local function __int(x)
    if x < 0 then return math.ceil(x) end
    return math.floor(x)
end
local function __truthy(v)
    return v ~= nil and v ~= false and v ~= 0 and v ~= ""
end
local function __discard(...) end
`

// Lua renders programs for the embedded Lua VM. Tables are runtime handles
// (numbers, 0 is null) managed with retain/release calls; strings are native
// Lua strings.
type Lua struct{}

func NewLua() *Lua { return &Lua{} }

func (g *Lua) Name() string      { return "lua" }
func (g *Lua) Extension() string { return ".lua" }

func (g *Lua) zero(t compiler.Type) string {
	switch t {
	case compiler.Float:
		return "0.0"
	case compiler.String:
		return `""`
	case compiler.Ref:
		return "nil"
	}
	return "0"
}

func (g *Lua) Program(functions, statements []string, defs *compiler.Definitions) string {
	var sb strings.Builder
	sb.WriteString(luaPrelude)
	for _, v := range defs.Globals() {
		fmt.Fprintf(&sb, "%s = %s\n", varName(v), g.zero(v.Type))
	}
	for _, fn := range functions {
		sb.WriteString(fn)
	}
	for _, stmt := range statements {
		sb.WriteString(stmt)
		sb.WriteString("_DoAutoDec()\n")
	}
	return sb.String()
}

func (g *Lua) FunctionDef(fn *compiler.Function, locals []compiler.Var, block string) string {
	var sb strings.Builder
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = varName(p)
	}
	in := indent(1)
	fmt.Fprintf(&sb, "function %s(%s)\n", userFunc(fn), strings.Join(params, ", "))
	fmt.Fprintf(&sb, "%slocal __mark = _Mark()\n", in)
	for _, v := range locals {
		fmt.Fprintf(&sb, "%slocal %s = %s\n", in, varName(v), g.zero(v.Type))
	}

	var release []string
	for _, v := range append(append([]compiler.Var{}, fn.Params...), locals...) {
		if v.Type == compiler.Table {
			release = append(release, fmt.Sprintf("_DecRef(%s)", varName(v)))
		}
	}
	release = append(release, "_Release(__mark)")
	fmt.Fprintf(&sb, "%slocal function __cleanup() %s end\n", in, strings.Join(release, "; "))
	for _, p := range fn.Params {
		if p.Type == compiler.Table {
			fmt.Fprintf(&sb, "%s_IncRef(%s)\n", in, varName(p))
		}
	}

	sb.WriteString(block)
	fmt.Fprintf(&sb, "%s__cleanup()\n", in)
	if fn.Return != compiler.Void {
		fmt.Fprintf(&sb, "%sreturn %s\n", in, g.zero(fn.Return))
	}
	sb.WriteString("end\n")
	return sb.String()
}

func (g *Lua) Statement(code string) string { return code + "\n" }

func (g *Lua) ExprStatement(exp compiler.Expression) string {
	if isCall(exp.Code) {
		return exp.Code + "\n"
	}
	return "__discard(" + exp.Code + ")\n"
}

// isCall reports whether code is a plain "name(args)" call, which Lua
// accepts as a statement.
func isCall(code string) bool {
	open := strings.IndexByte(code, '(')
	if open <= 0 {
		return false
	}
	for _, r := range code[:open] {
		if !(r == '_' || r == '.' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return closingParen(code, open) == len(code)-1
}

func (g *Lua) truthy(exp compiler.Expression) string {
	switch exp.Type {
	case compiler.Int, compiler.Float, compiler.Table:
		return fmt.Sprintf("(%s ~= 0)", exp.Code)
	case compiler.String:
		return fmt.Sprintf(`(%s ~= "")`, exp.Code)
	}
	return fmt.Sprintf("__truthy(%s)", exp.Code)
}

func (g *Lua) If(cond compiler.Expression, block string, elseIfs []compiler.ElseIf, elseBlock *string, level int) string {
	var sb strings.Builder
	in := indent(level)
	fmt.Fprintf(&sb, "if %s then\n%s", g.truthy(cond), block)
	for _, e := range elseIfs {
		fmt.Fprintf(&sb, "%selseif %s then\n%s", in, g.truthy(e.Cond), e.Block)
	}
	if elseBlock != nil {
		fmt.Fprintf(&sb, "%selse\n%s", in, *elseBlock)
	}
	fmt.Fprintf(&sb, "%send\n", in)
	return sb.String()
}

// For lowers to a while loop whose direction follows the sign of step.
func (g *Lua) For(control compiler.Var, assignment string, to, step compiler.Expression, block string, level int) string {
	v := varName(control)
	in := indent(level)
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", assignment)
	fmt.Fprintf(&sb, "%swhile ((%s) >= 0 and %s <= (%s)) or ((%s) < 0 and %s >= (%s)) do\n",
		in, step.Code, v, to.Code, step.Code, v, to.Code)
	sb.WriteString(block)
	fmt.Fprintf(&sb, "%s%s = %s + (%s)\n", indent(level+1), v, v, step.Code)
	fmt.Fprintf(&sb, "%send\n", in)
	return sb.String()
}

func (g *Lua) While(cond compiler.Expression, block string, level int) string {
	return fmt.Sprintf("while %s do\n%s%send\n", g.truthy(cond), block, indent(level))
}

func (g *Lua) Return(fn *compiler.Function, exp *compiler.Expression) string {
	switch {
	case exp == nil:
		return "do __cleanup() return end\n"
	case exp.Type == compiler.Table:
		return fmt.Sprintf("do local __r = _IncRef(%s); __cleanup(); return _AutoDec(__r) end\n", exp.Code)
	default:
		return fmt.Sprintf("do local __r = %s; __cleanup(); return __r end\n", exp.Code)
	}
}

func (g *Lua) VarDef(v compiler.Var, exp compiler.Expression, global bool) string {
	return g.Assignment(v, exp)
}

// Assignment retains the new table before releasing the old one, so that
// assigning a variable to itself is safe.
func (g *Lua) Assignment(v compiler.Var, exp compiler.Expression) string {
	name := varName(v)
	if v.Type == compiler.Table {
		return fmt.Sprintf("do local __v = _IncRef(%s); _DecRef(%s); %s = __v end", exp.Code, name, name)
	}
	return fmt.Sprintf("%s = %s", name, exp.Code)
}

func (g *Lua) Binary(op compiler.TokenType, operands compiler.Type, left, right compiler.Expression) string {
	switch op {
	case compiler.AND:
		return fmt.Sprintf("((%s and %s) and 1 or 0)", g.truthy(left), g.truthy(right))
	case compiler.OR:
		return fmt.Sprintf("((%s or %s) and 1 or 0)", g.truthy(left), g.truthy(right))
	case compiler.PLUS:
		if operands == compiler.String {
			return fmt.Sprintf("(%s .. %s)", left.Code, right.Code)
		}
	case compiler.DIV:
		if operands == compiler.Int {
			return fmt.Sprintf("__idiv(%s, %s)", left.Code, right.Code)
		}
	case compiler.MOD:
		if operands == compiler.Int {
			return fmt.Sprintf("__imod(%s, %s)", left.Code, right.Code)
		}
		return fmt.Sprintf("math.fmod(%s, %s)", left.Code, right.Code)
	case compiler.NOT_EQUAL:
		return fmt.Sprintf("((%s ~= %s) and 1 or 0)", left.Code, right.Code)
	}
	if sym, ok := comparisonOps[op]; ok {
		return fmt.Sprintf("((%s %s %s) and 1 or 0)", left.Code, sym, right.Code)
	}
	return fmt.Sprintf("(%s %s %s)", left.Code, arithmeticOps[op], right.Code)
}

func (g *Lua) Unary(op compiler.TokenType, exp compiler.Expression) string {
	if op == compiler.NOT {
		return fmt.Sprintf("(%s and 0 or 1)", g.truthy(exp))
	}
	return fmt.Sprintf("(- %s)", exp.Code)
}

func (g *Lua) Group(exp compiler.Expression) string { return "(" + exp.Code + ")" }

func (g *Lua) Cast(to compiler.Type, exp compiler.Expression) string {
	switch {
	case exp.Type == to, exp.Type == compiler.Int && to == compiler.Float:
		return exp.Code
	case exp.Type == compiler.Float && to == compiler.Int:
		return "__int(" + exp.Code + ")"
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

func (g *Lua) Call(fn *compiler.Function, args []compiler.Expression) string {
	name := fn.Name
	if !fn.Library {
		name = userFunc(fn)
	}
	return fmt.Sprintf("%s(%s)", name, joinArgs(args))
}

func (g *Lua) Var(v compiler.Var) string { return varName(v) }

func (g *Lua) Literal(tok compiler.Token) string {
	switch tok.Type {
	case compiler.STRING_LIT:
		return quote(tok.Lexeme, func(b byte) string { return fmt.Sprintf(`\%03d`, b) })
	case compiler.NULL_LIT:
		return "nil"
	case compiler.TRUE_LIT:
		return "1"
	case compiler.FALSE_LIT:
		return "0"
	}
	return tok.Lexeme
}

func (g *Lua) List(values []compiler.Expression) string {
	keys := make([]string, len(values))
	for i := range values {
		keys[i] = fmt.Sprint(i)
	}
	return buildTable("", keys, values)
}

func (g *Lua) Dict(keys, values []compiler.Expression) string {
	codes := make([]string, len(keys))
	for i, k := range keys {
		codes[i] = k.Code
	}
	return buildTable("", codes, values)
}

func (g *Lua) IndexGet(as compiler.Type, container string, index compiler.Expression) string {
	return fmt.Sprintf("_Table%s(%s, %s)", tableSuffix(as), container, index.Code)
}

func (g *Lua) IndexSet(container string, index, value compiler.Expression) string {
	return fmt.Sprintf("_SetTable%s(%s, %s, %s)", tableSuffix(value.Type), container, index.Code, value.Code)
}

func (g *Lua) Indent(level int) string { return indent(level) }
