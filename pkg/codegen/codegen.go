// Package codegen holds the concrete compiler.Generator backends: C source
// linked against the C runtime, Lua source run by the embedded interpreter,
// and JavaScript run against the pico runtime module.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"picoc/pkg/compiler"
)

var backends = map[string]func() compiler.Generator{
	"c":   func() compiler.Generator { return NewC() },
	"lua": func() compiler.Generator { return NewLua() },
	"js":  func() compiler.Generator { return NewJS() },
}

// New returns a fresh generator for the named backend.
func New(name string) (compiler.Generator, error) {
	mk, ok := backends[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown backend %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return mk(), nil
}

// Names lists the registered backends in sorted order.
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

const indentUnit = "    "

func indent(level int) string {
	return strings.Repeat(indentUnit, level)
}

// indentLines prefixes every non-empty line of code with prefix.
func indentLines(code, prefix string) string {
	lines := strings.SplitAfter(code, "\n")
	var sb strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			sb.WriteString(prefix)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// quote renders s as a double-quoted literal. Control bytes go through ctrl,
// which differs between targets.
func quote(s string, ctrl func(b byte) string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if b < 0x20 || b == 0x7f {
				sb.WriteString(ctrl(b))
			} else {
				sb.WriteByte(b)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// closingParen returns the index of the parenthesis closing the one at
// open, skipping string literals, or -1.
func closingParen(code string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(code); i++ {
		switch c := code[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case inString:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// grouped wraps code in parentheses unless it already is one group.
func grouped(code string) string {
	if strings.HasPrefix(code, "(") && closingParen(code, 0) == len(code)-1 {
		return code
	}
	return "(" + code + ")"
}

func joinArgs(args []compiler.Expression) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Code
	}
	return strings.Join(parts, ", ")
}

// tableSuffix names the runtime accessor family for a stored value type.
func tableSuffix(t compiler.Type) string {
	switch t {
	case compiler.Int:
		return "Int"
	case compiler.Float:
		return "Float"
	case compiler.String:
		return "String"
	case compiler.Table:
		return "Table"
	default:
		return "Ref"
	}
}

// buildTable renders a chain of setter calls over a freshly created table.
// Setters return their table, so the chain is a single expression.
func buildTable(prefix string, keys []string, values []compiler.Expression) string {
	code := prefix + "_CreateTable()"
	for i, v := range values {
		code = fmt.Sprintf("%s_SetTable%s(%s, %s, %s)", prefix, tableSuffix(v.Type), code, keys[i], v.Code)
	}
	return code
}

// comparisonOps maps comparison tokens to the infix spelling shared by the
// C-family targets.
var comparisonOps = map[compiler.TokenType]string{
	compiler.EQUAL:      "==",
	compiler.NOT_EQUAL:  "!=",
	compiler.LESS:       "<",
	compiler.GREATER:    ">",
	compiler.LESS_EQ:    "<=",
	compiler.GREATER_EQ: ">=",
}

var arithmeticOps = map[compiler.TokenType]string{
	compiler.PLUS:  "+",
	compiler.MINUS: "-",
	compiler.MUL:   "*",
	compiler.DIV:   "/",
}

func userFunc(fn *compiler.Function) string { return "pf_" + fn.Name }

func varName(v compiler.Var) string { return "pv_" + v.Name }
