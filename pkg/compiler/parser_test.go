package compiler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLibrary = `function Print(msg$)
function Str$(n#)
function Sqr#(x#)
function Size%(t&)
`

// newTestParser tokenizes src and registers libs, each as its own manifest.
func newTestParser(t testing.TB, src string, libs ...string) *Parser {
	t.Helper()
	tokens, err := ParseTokens(src, "t.pico")
	require.NoError(t, err)
	log, _ := test.NewNullLogger()
	p := NewParser(tokens, echoGen{}, WithLogger(log))
	for i, lib := range libs {
		libTokens, err := ParseTokens(lib, fmt.Sprintf("lib%d.lb", i))
		require.NoError(t, err)
		require.NoError(t, p.ParseLibrary(libTokens))
	}
	return p
}

func parse(t *testing.T, src string) (string, error) {
	t.Helper()
	p := newTestParser(t, src, testLibrary)
	if err := p.Parse(); err != nil {
		return "", err
	}
	return p.Code(), nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Inferred float",
			input: "a = 1\nb = 2.5\nc = a + b\n",
			want:  "global a% = 1\nglobal b# = 2.5\nglobal c# = a +# b\n",
		},
		{
			name:  "Typed function",
			input: "function Add(x%, y%) %\n return x + y\nend\nz = Add(1,2)\n",
			want:  "function Add%(x%, y%) locals()\n  return x +% y\nend\nglobal z% = Add(1, 2)\n",
		},
		{
			name:  "Forward reference",
			input: "x = Twice(4)\nfunction Twice(n%) %\n  return n * 2\nend\n",
			want:  "function Twice%(n%) locals()\n  return n *% 2\nend\nglobal x% = Twice(4)\n",
		},
		{
			name:  "Locals and casts",
			input: "function F(n%) %\n  s$ = \"a\"\n  t = n * 1.5\n  return t%\nend\n",
			want:  "function F%(n%) locals(s$, t#)\n  local s$ = \"a\"\n  local t# = n *# 1.5\n  return int(t)\nend\n",
		},
		{
			name:  "Return coerces to declared type",
			input: "function Half#(n%)\n  return n / 2\nend\n",
			want:  "function Half#(n%) locals()\n  return float(n /% 2)\nend\n",
		},
		{
			name:  "Void function",
			input: "function Hello()\n  Print(\"hi\")\n  return\nend\nHello()\n",
			want:  "function Hello() locals()\n  do Print(\"hi\")\n  return\nend\ndo Hello()\n",
		},
		{
			name:  "Declared type coerces initializer",
			input: "f# = 3\n",
			want:  "global f# = float(3)\n",
		},
		{
			name:  "Arguments coerce to parameter types",
			input: "y = Sqr(2)\n",
			want:  "global y# = Sqr(float(2))\n",
		},
		{
			name:  "Assignment keeps variable type",
			input: "f# = 1.5\nf = 2\n",
			want:  "global f# = 1.5\nf = float(2)\n",
		},
		{
			name:  "String concatenation and comparison",
			input: "s = \"a\" + \"b\"\nlt = s < \"c\"\n",
			want:  "global s$ = \"a\" +$ \"b\"\nglobal lt% = s <$ \"c\"\n",
		},
		{
			name:  "Explicit string conversion",
			input: "n = 3\nPrint(\"n=\" + n$)\n",
			want:  "global n% = 3\ndo Print(\"n=\" +$ string(n))\n",
		},
		{
			name:  "Unary and grouping",
			input: "a = 2\nb = -(a + 1) * 2\nc = not a\n",
			want:  "global a% = 2\nglobal b% = -(a +% 1) *% 2\nglobal c% = not a\n",
		},
		{
			name:  "Precedence",
			input: "x = 1 + 2 * 3 == 7 and 4 mod 3 < 2 or 0\n",
			want:  "global x% = 1 +% 2 *% 3 ==% 7 and% 4 mod% 3 <% 2 or% 0\n",
		},
		{
			name:  "Booleans are ints",
			input: "t = true\nf = FALSE\n",
			want:  "global t% = true\nglobal f% = FALSE\n",
		},
		{
			name:  "Null reference",
			input: "r = null\nq@ = null\n",
			want:  "global r@ = null\nglobal q@ = null\n",
		},
		{
			name:  "Names ignore case",
			input: "Total = 1\ntotal = TOTAL + 1\nprint(str(total))\n",
			want:  "global Total% = 1\nTotal = Total +% 1\ndo Print(Str(float(Total)))\n",
		},
		{
			name:  "Semicolons",
			input: "a = 1; b = 2;\n;c = 3\n",
			want:  "global a% = 1\nglobal b% = 2\nglobal c% = 3\n",
		},
		{
			name:  "If elseif else",
			input: "x = 5\nif x > 3 then\n  Print(\"big\")\nelseif x > 1 then\n  Print(\"mid\")\nelse\n  Print(\"small\")\nend\n",
			want:  "global x% = 5\nif x >% 3 then\n  do Print(\"big\")\nelseif x >% 1 then\n  do Print(\"mid\")\nelse\n  do Print(\"small\")\nend\n",
		},
		{
			name:  "Single line if",
			input: "if 0 then a = 1 else a = 2 end\n",
			want:  "if 0 then\n  global a% = 1\nelse\n  a = 2\nend\n",
		},
		{
			name:  "For with step",
			input: "for i = 1 to 10 step 2 do\n  s = i\nend\n",
			want:  "for global i% = 1 to 10 step 2\n  global s% = i\nend\n",
		},
		{
			name:  "Float for widens bounds",
			input: "for f# = 0 to 1 step 0.5\nend\n",
			want:  "for global f# = float(0) to float(1) step 0.5\nend\n",
		},
		{
			name:  "For reuses a variable",
			input: "i = 0\nfor i = 3 to 1 step -1\nend\n",
			want:  "global i% = 0\nfor i = 3 to 1 step -1\nend\n",
		},
		{
			name:  "While",
			input: "n = 3\nwhile n do n = n - 1 end\n",
			want:  "global n% = 3\nwhile n\n  n = n -% 1\nend\n",
		},
		{
			name:  "Nested blocks indent",
			input: "function F(n%)\n  while n > 0\n    if n mod 2 == 0 then\n      n = n / 2\n    end\n  end\nend\n",
			want:  "function F(n%) locals()\n  while n >% 0\n    if n mod% 2 ==% 0 then\n      n = n /% 2\n    end\n  end\nend\n",
		},
		{
			name:  "Tables",
			input: "t = [1, \"two\", 3.0]\nv = t[1]$\nt[\"k\"] = v\nu = {\"a\": [1], \"b\": {}}\nw = u[\"a\"][0]%\nu[\"a\"][2] = 5\nn = Size(t)\n",
			want: "global t& = [1, \"two\", 3.0]\n" +
				"global v$ = t[1]$\n" +
				"t[\"k\"] = v\n" +
				"global u& = {\"a\": [1], \"b\": {}}\n" +
				"global w% = u[\"a\"]&[0]%\n" +
				"u[\"a\"]&[2] = 5\n" +
				"global n% = Size(t)\n",
		},
		{
			name:  "Empty containers",
			input: "l = []\nd = {}\n",
			want:  "global l& = []\nglobal d& = {}\n",
		},
		{
			name:  "Comments",
			input: "// header\na = 1 /* inline */ + 2\n/* multi\nline */\n",
			want:  "global a% = 1 +% 2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := parse(t, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Unknown function", "z = Add(1,2)\n", "t.pico(1): Unknown function: Add"},
		{"Redeclared variable", "x = 1\nx$ = \"hi\"\n", "t.pico(2): Identifier already used for variable: x"},
		{"Undefined variable", "y = 1\nx\n", "t.pico(2): Variable has not been initialized: x"},
		{"Uninitialized for variable", "for i to 3\nend\n", "t.pico(1): Variables must be initialized"},
		{"Assign to function", "Print = 1\n", "t.pico(1): Cannot assign to a function"},
		{"String plus int", "x = 1 + \"a\"\n", "t.pico(1): Incompatible types"},
		{"String minus", "x = \"a\" - \"b\"\n", "t.pico(1): Subtraction can only be applied to numeric types"},
		{"String multiply", "x = \"a\" * 2\n", "t.pico(1): Multiplication and division can only be applied to numeric types"},
		{"Table addition", "t = []\nx = t + t\n", "t.pico(2): Addition can only be applied to numeric and string types"},
		{"Table comparison", "t = []\nx = t < 1\n", "t.pico(2): Relational operators can only be applied to numeric and string types"},
		{"Equality across types", "x = 1 == \"1\"\n", "t.pico(1): Incompatible types"},
		{"Boolean across types", "x = 1 and \"a\"\n", "t.pico(1): Boolean operands must be of compatible types"},
		{"Unary minus on string", "x = -\"a\"\n", "t.pico(1): Unary '-' operator must be applied to numeric types"},
		{"Cast from table", "t = []\nx = t%\n", "t.pico(2): Can only cast numeric and string types"},
		{"Cast to table", "x = 1&\n", "t.pico(1): Can only cast to numeric and string types"},
		{"Assignment type mismatch", "x = 1\nx = \"s\"\n", "t.pico(2): Incompatible types"},
		{"Declared type mismatch", "x$ = 1\n", "t.pico(1): Incompatible types"},
		{"Void value", "function F()\nend\nx = F()\n", "t.pico(3): Expression has no value"},
		{"Return outside function", "return 1\n", "t.pico(1): Cannot use return statement outside a function"},
		{"Return value from void", "function F()\n  return 1\nend\n", "t.pico(2): Function cannot return a value"},
		{"Missing return value", "function F()%\n  return\nend\n", "t.pico(2): Function must return a value"},
		{"Return type mismatch", "function F$()\n  return 1\nend\n", "t.pico(2): Incompatible types"},
		{"Too many arguments", "function F(a%)\nend\nF(1, 2)\n", "t.pico(3): Too many arguments"},
		{"Not enough arguments", "function F(a%, b%)\nend\nF(1)\n", "t.pico(3): Not enough arguments"},
		{"Argument type", "function F(a%)\nend\nF(\"s\")\n", "t.pico(3): Incompatible types"},
		{"Call return suffix", "x = Sqr%(2.0)\n", "t.pico(1): Incompatible types"},
		{"Index non-table", "x = 1\ny = x[0]%\n", "t.pico(2): Only tables can be indexed"},
		{"Index without suffix", "t = []\ny = t[0]\n", "t.pico(2): Expected type suffix at end of table indexing"},
		{"Float index", "t = []\nt[1.5] = 1\n", "t.pico(2): Only int and string expressions can be used as table indices"},
		{"Index undefined variable", "t[0] = 1\n", "t.pico(1): Variable has not been initialized: t"},
		{"Dict key type", "d = {1: 2}\n", "t.pico(1): Expected string expression as key."},
		{"Dict missing colon", "d = {\"a\" 2}\n", "t.pico(1): Expected ':', got '2'"},
		{"Missing end", "if 1 then\nx = 1\n", "t.pico(2): Expected 'end'"},
		{"Missing then", "if 1\nx = 1\nend\n", "t.pico(2): Expected 'then', got 'x'"},
		{"Missing to", "for i = 1 do\nend\n", "t.pico(1): Expected 'to', got 'do'"},
		{"Non-numeric for", "for s = \"a\" to 3\nend\n", "t.pico(1): For control variable must be numeric"},
		{"Unclosed group", "x = (1\n", "t.pico(1): Expected ')', got ''"},
		{"Two statements on a line", "x = 1 y = 2\n", "t.pico(1): Expected ';' or new line, got 'y'"},
		{"Unexpected end of input", "y =\n", "t.pico(1): Unexpected end of input"},
		{"Unexpected element", "x = )\n", "t.pico(1): Unexpected element ')'"},
		{"Nested function", "function F()\n  function G()\n  end\nend\n", "t.pico(2): Functions can only be defined at top level"},
		{"Duplicate function", "function F(a%)\nend\nfunction f(b%)\nend\n", "t.pico(3): Identifier already used as function: f"},
		{"Shadow library", "function Print(s$)\nend\n", "t.pico(1): Identifier already used as library function: Print"},
		{"Parameter without type", "function F(a)\nend\n", "t.pico(1): Expected parameter type"},
		{"Parameter named like function", "function F(G%)\nend\nfunction G()\nend\n", "t.pico(1): Identifier already used as function: G"},
		{"Unterminated function", "function F()\n  x = 1\n", "t.pico(2): Expected 'end'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestParseLibrary(t *testing.T) {
	p := newTestParser(t, "Print(Str(Sqr(4)))\n", testLibrary, "function Beep()\n")
	require.NoError(t, p.Parse())

	var names []string
	for _, fn := range p.Library() {
		assert.True(t, fn.Library)
		names = append(names, fn.Name)
	}
	assert.Equal(t, []string{"Print", "Str", "Sqr", "Size", "Beep"}, names)
	assert.Empty(t, p.Definitions().Functions(), "library functions are not user functions")
	assert.Empty(t, p.Definitions().Locals(), "library parameters do not leak into scope")
	assert.Equal(t, "do Print(Str(Sqr(float(4))))\n", p.Code())
}

func TestParseLibraryErrors(t *testing.T) {
	tests := []struct {
		lib  string
		want string
	}{
		{"x = 1\n", "lib.lb(1): Library can only contain function headers"},
		{"function A()\nfunction A()\n", "lib.lb(2): Identifier already used as library function: A"},
		{"function A() function B()\n", "lib.lb(1): Expected ';' or new line, got 'function'"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			p := newTestParser(t, "")
			tokens, err := ParseTokens(tt.lib, "lib.lb")
			require.NoError(t, err)
			err = p.ParseLibrary(tokens)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestParseDefinitions(t *testing.T) {
	p := newTestParser(t, "g = 1\nfunction F(a%) #\n  l$ = \"x\"\n  return 1.0\nend\nh = F(g)\n", testLibrary)
	require.NoError(t, p.Parse())

	defs := p.Definitions()
	assert.Equal(t, []Var{{"g", Int}, {"h", Float}}, defs.Globals())
	assert.Empty(t, defs.Locals(), "locals are cleared after each function")
	require.Len(t, defs.Functions(), 1)
	assert.Equal(t, "function F#(a%)", defs.Functions()[0].String())
}

// Two parsers fed the same tokens and libraries must agree byte for byte.
func TestParseIsDeterministic(t *testing.T) {
	src := benchmarkSource(20)
	first := newTestParser(t, src, testLibrary)
	second := newTestParser(t, src, testLibrary)
	require.NoError(t, first.Parse())
	require.NoError(t, second.Parse())
	assert.Equal(t, first.Code(), second.Code())
	assert.NotEmpty(t, first.Code())
}

func TestCompile(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	code, err := Compile("x = Sqr(9)\n", echoGen{}, Options{
		File:      "main.pico",
		Libraries: []Library{{Name: "core.lb", Source: testLibrary}},
		Logger:    log,
	})
	require.NoError(t, err)
	assert.Equal(t, "global x# = Sqr(float(9))\n", code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "compiler", hook.LastEntry().Data["component"])

	_, err = Compile("x = Sqr(9)\n", echoGen{}, Options{File: "main.pico", Logger: log})
	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, &Error{File: "main.pico", Line: 1, Msg: "Unknown function: Sqr"}, cerr)

	_, err = Compile("x = 1\n", echoGen{}, Options{
		Libraries: []Library{{Name: "bad.lb", Source: "function \"\n"}},
		Logger:    log,
	})
	assert.EqualError(t, err, "bad.lb(1): String must be closed")
}

// benchmarkSource returns a program with n small functions and a driver loop
// calling each of them.
func benchmarkSource(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "function F%d(a%%, b#) #\n", i)
		sb.WriteString("  t = [a, b, \"s\"]\n")
		sb.WriteString("  if a mod 2 == 0 then\n    return a * b\n  elseif a > 10 then\n    return b\n  end\n")
		sb.WriteString("  return t[1]# + 1\nend\n")
	}
	sb.WriteString("total = 0.0\nfor i = 1 to 100\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "  total = total + F%d(i, 0.5)\n", i)
	}
	sb.WriteString("end\nPrint(Str(total))\n")
	return sb.String()
}

func BenchmarkParse(b *testing.B) {
	src := benchmarkSource(200)
	tokens, err := ParseTokens(src, "bench.pico")
	if err != nil {
		b.Fatal(err)
	}
	lib, err := ParseTokens(testLibrary, "core.lb")
	if err != nil {
		b.Fatal(err)
	}
	log, _ := test.NewNullLogger()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p := NewParser(tokens, echoGen{}, WithLogger(log))
		if err := p.ParseLibrary(lib); err != nil {
			b.Fatal(err)
		}
		if err := p.Parse(); err != nil {
			b.Fatal(err)
		}
	}
}
