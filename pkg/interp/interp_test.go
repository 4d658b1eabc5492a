package interp

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picoc/pkg/compiler"
	"picoc/pkg/vfs"
)

func newTestInterpreter(t *testing.T, opts ...Option) (*Interpreter, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	log, _ := test.NewNullLogger()
	it := New(append([]Option{
		WithOutput(&out),
		WithInput(strings.NewReader("")),
		WithFS(vfs.NewVirtualDisk(0)),
		WithLogger(log),
	}, opts...)...)
	t.Cleanup(it.Close)
	return it, &out
}

func runSource(t *testing.T, src string, opts ...Option) (string, *Interpreter) {
	t.Helper()
	it, out := newTestInterpreter(t, opts...)
	require.NoError(t, it.RunSource(context.Background(), src, "test.pico"))
	return out.String(), it
}

func TestPrograms(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "*.pico"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".pico")
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(file)
			require.NoError(t, err)
			want, err := os.ReadFile(strings.TrimSuffix(file, ".pico") + ".out")
			require.NoError(t, err)

			got, it := runSource(t, string(src))
			assert.Equal(t, string(want), got)
			assert.Zero(t, it.Runtime().Pending(), "autorelease pool not flushed")
		})
	}
}

func TestReleasesTemporaryTables(t *testing.T) {
	src := `
function Make&(n%)
    t& = []
    for i = 0 to n - 1
        t[i] = i * i
    end
    return t
end

total% = 0
for k = 1 to 100
    total = total + Size(Make(k))
end
Print(Str(total))
`
	out, it := runSource(t, src)
	assert.Equal(t, "5050\n", out)
	assert.Zero(t, it.Runtime().LiveTables())
}

func TestKeepsReferencedTables(t *testing.T) {
	src := `
kept& = []
function Fill(target&)
    inner& = [1, 2]
    target["inner"] = inner
    tmp& = ["discarded"]
end
Fill(kept)
inner2& = kept["inner"]&
Remove(kept, "inner")
Print(TableStr(inner2))
`
	out, it := runSource(t, src)
	assert.Equal(t, "[1, 2]\n", out)
	// kept and the inner list survive through globals; tmp is gone.
	assert.Equal(t, 2, it.Runtime().LiveTables())
}

func TestTablesOwnBlocks(t *testing.T) {
	src := `
holder& = []
function Keep()
    m@ = Dim(4)
    PokeInt(m, 0, 77)
    holder["mem"] = m
    Undim(m)
end
Keep()
Print(Str(PeekInt(holder["mem"]@, 0)) + " " + Str(DimSize(holder["mem"]@)))
Remove(holder, "mem")
Print(Str(Size(holder)))
`
	out, it := runSource(t, src)
	assert.Equal(t, "77 4\n0\n", out)
	assert.Zero(t, it.Runtime().LiveBlocks(), "removing the last owner frees the block")
}

func TestIntegerDivision(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want string
	}{
		{"Truncates", "7 / 2", "3"},
		{"Truncates toward zero", "-7 / 2", "-3"},
		{"Remainder takes dividend sign", "-7 mod 2", "-1"},
		{"Zero divisor", "7 / z", "0"},
		{"Zero modulus", "7 mod z", "0"},
		{"Float division", "Int(7.0 / 2)", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := runSource(t, "z = 0\nPrint(Str("+tt.expr+"))\n")
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestReflection(t *testing.T) {
	src := `
function Add%(a%, b%)
    return a + b
end
function Greet$(name$)
    return "hi " + name
end
function Half#(x#)
    return x / 2
end
AddIntArg(2)
AddIntArg(40)
Print(Str(CallInt("add")))
AddStringArg("bob")
Print(CallString("Greet"))
AddFloatArg(5)
Print(StrF(CallFloat("HALF")))
Print(Str(Callable("Greet")) + Str(Callable("Nope")) + Str(Callable("Print")))
AddIntArg(1)
Call("Nope")
Print(CallString("Nope") + "|")
`
	out, _ := runSource(t, src)
	assert.Equal(t, "42\nhi bob\n2.5\n100\n|\n", out)
}

func TestFiles(t *testing.T) {
	disk := vfs.NewVirtualDisk(0)
	src := `
SaveString("notes.txt", "one", false)
SaveString("notes.txt", "+two", true)
SaveString("docs/a.txt", "a", false)
Print(LoadString("notes.txt"))
Print(Str(FileType("notes.txt")) + Str(FileType("/")) + Str(FileType("missing")))
Print(Join(DirContents("/"), ","))
ChangeDir("docs")
Print(CurrentDir() + " " + FullPath("a.txt") + " " + LoadString("a.txt"))
ChangeDir("/")
DeleteFile("notes.txt")
Print(Str(FileType("notes.txt")) + "[" + LoadString("notes.txt") + "]")
`
	out, _ := runSource(t, src, WithFS(disk))
	assert.Equal(t, "one+two\n120\ndocs,notes.txt\n/docs /docs/a.txt a\n0[]\n", out)
	assert.Equal(t, []string{"/docs/a.txt"}, disk.List())
}

func TestApplicationBuiltins(t *testing.T) {
	var commands []string
	runner := func(ctx context.Context, command string) (string, error) {
		commands = append(commands, command)
		return "ran " + command, nil
	}
	src := `
args& = AppArgs()
Print(AppName() + " " + Str(Size(args)) + " " + Join(args, ","))
name$ = Input("name? ")
Print("hello " + name)
Print(Run("ls -l"))
`
	out, _ := runSource(t, src,
		WithArgs("demo", []string{"x", "y"}),
		WithInput(strings.NewReader("Ada\r\n")),
		WithCommandRunner(runner),
	)
	assert.Equal(t, "demo 2 x,y\nname? hello Ada\nran ls -l\n", out)
	assert.Equal(t, []string{"ls -l"}, commands)
}

func TestCompileErrorIsReturned(t *testing.T) {
	it, out := newTestInterpreter(t)
	err := it.RunSource(context.Background(), "z = Add(1,2)\n", "bad.pico")
	require.Error(t, err)

	var cerr *compiler.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "bad.pico(1): Unknown function: Add", err.Error())
	assert.Empty(t, out.String())
}

func TestRuntimeError(t *testing.T) {
	it, _ := newTestInterpreter(t)
	err := it.Run(context.Background(), `error("boom")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runtime error")
	assert.Contains(t, err.Error(), "boom")
}

func TestRunStopsOnCancel(t *testing.T) {
	it, _ := newTestInterpreter(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := it.RunSource(ctx, "while true\nend\n", "loop.pico")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunLogsRunID(t *testing.T) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	it := New(WithLogger(log), WithOutput(&bytes.Buffer{}), WithFS(vfs.NewVirtualDisk(0)))
	defer it.Close()
	require.NoError(t, it.Run(context.Background(), "_DoAutoDec()"))

	require.NotEmpty(t, hook.AllEntries())
	for _, e := range hook.AllEntries() {
		assert.Equal(t, it.RunID(), e.Data["run"])
	}
}

func BenchmarkFib(b *testing.B) {
	src := `
function Fib%(n%)
    if n < 2 then return n end
    return Fib(n - 1) + Fib(n - 2)
end
x = Fib(18)
`
	log, _ := test.NewNullLogger()
	for i := 0; i < b.N; i++ {
		it := New(WithLogger(log), WithOutput(&bytes.Buffer{}))
		if err := it.RunSource(context.Background(), src, "fib.pico"); err != nil {
			b.Fatal(err)
		}
		it.Close()
	}
}
