package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the command line in dir and returns stdout and the error.
func execute(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	err = cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

const addProgram = "function Add(x%, y%) %\n    return x + y\nend\nz = Add(1,2)\nPrint(Str(z))\n"

func TestBuild(t *testing.T) {
	tests := []struct {
		backend string
		file    string
		want    string
		runtime []string
	}{
		{"c", "add.c", "TInt pf_Add(TInt pv_x, TInt pv_y)", []string{"core.h", "core.c"}},
		{"lua", "add.lua", "function pf_Add(pv_x, pv_y)", nil},
		{"js", "add.js", "function pf_Add(pv_x, pv_y)", []string{"pico.js"}},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "add.pico", addProgram)

			out, err := execute(t, dir, "", "build", "--backend", tt.backend, "--out", "build", "add.pico")
			require.NoError(t, err)
			assert.Equal(t, filepath.Join("build", tt.file)+"\n", out)

			code, err := os.ReadFile(filepath.Join(dir, "build", tt.file))
			require.NoError(t, err)
			assert.Contains(t, string(code), tt.want)

			for _, name := range tt.runtime {
				assert.FileExists(t, filepath.Join(dir, "build", name))
			}
			entries, err := os.ReadDir(filepath.Join(dir, "build"))
			require.NoError(t, err)
			assert.Len(t, entries, 1+len(tt.runtime))
		})
	}
}

func TestBuildErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.pico", "z = Add(1,2)\n")

	_, err := execute(t, dir, "", "build", "--backend", "lua", "bad.pico")
	require.Error(t, err)
	assert.Equal(t, "bad.pico(1): Unknown function: Add", err.Error())
	assert.NoFileExists(t, filepath.Join(dir, "bad.lua"))
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ok.pico", addProgram)
	writeFile(t, dir, "redeclare.pico", "x = 1\nx$ = \"hi\"\n")

	_, err := execute(t, dir, "", "check", "ok.pico")
	assert.NoError(t, err)

	_, err = execute(t, dir, "", "check", "redeclare.pico")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Identifier already used for variable: x")

	_, err = execute(t, dir, "", "check", "missing.pico")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "echo.pico", `
args& = AppArgs()
Print(AppName() + ": " + Join(args, " "))
Print("hello " + Input(""))
`)
	out, err := execute(t, dir, "Ada\n", "run", "echo.pico", "one", "--two")
	require.NoError(t, err)
	assert.Equal(t, "echo: one --two\nhello Ada\n", out)
}

func TestRunSandbox(t *testing.T) {
	dir := t.TempDir()
	box := filepath.Join(dir, "box")
	writeFile(t, box, "in.txt", "seed")
	writeFile(t, dir, "copy.pico", `SaveString("out.txt", LoadString("in.txt") + "!", false)`+"\n")

	_, err := execute(t, dir, "", "run", "--sandbox", box, "copy.pico")
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(box, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "seed!", string(raw))
	assert.NoFileExists(t, filepath.Join(dir, "out.txt"))
}

func TestExtraLibraryAndNoCore(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "extra.lb", "function Beep(times%)\n")
	writeFile(t, dir, "beep.pico", "Beep(3)\n")
	writeFile(t, dir, "print.pico", "Print(\"x\")\n")

	_, err := execute(t, dir, "", "check", "--lib", "extra.lb", "beep.pico")
	assert.NoError(t, err)

	_, err = execute(t, dir, "", "check", "--no-core", "print.pico")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown function: Print")
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "picoc.yaml", "backend: js\noutput_dir: gen\n")
	writeFile(t, dir, "add.pico", addProgram)

	out, err := execute(t, dir, "", "build", "add.pico")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("gen", "add.js")+"\n", out)

	_, err = execute(t, dir, "", "build", "--backend", "pascal", "add.pico")
	assert.Error(t, err)
}
