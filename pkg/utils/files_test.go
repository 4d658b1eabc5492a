package utils

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathHelpers(t *testing.T) {
	tests := []struct {
		in         string
		stripExt   string
		stripDir   string
		extractExt string
		extractDir string
	}{
		{"file.txt", "file", "file.txt", "txt", ""},
		{"dir/file.tar.gz", "dir/file.tar", "file.tar.gz", "gz", "dir"},
		{"a.b/file", "a.b/file", "file", "", "a.b"},
		{`c:\games\run.exe`, `c:\games\run`, "run.exe", "exe", `c:\games`},
		{"/root", "/root", "root", "", ""},
		{"", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.stripExt, StripExt(tt.in))
			assert.Equal(t, tt.stripDir, StripDir(tt.in))
			assert.Equal(t, tt.extractExt, ExtractExt(tt.in))
			assert.Equal(t, tt.extractDir, ExtractDir(tt.in))
		})
	}
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("src", "game.lua"), OutputPath(filepath.Join("src", "game.pico"), "", ".lua"))
	assert.Equal(t, filepath.Join("build", "game.c"), OutputPath(filepath.Join("src", "game.pico"), "build", ".c"))
}

func TestLoadSource(t *testing.T) {
	name := filepath.Join(t.TempDir(), "crlf.pico")
	require.NoError(t, os.WriteFile(name, []byte("a = 1\r\nb = 2\rc = 3\n"), 0644))

	src, err := LoadSource(name)
	require.NoError(t, err)
	assert.Equal(t, "a = 1\nb = 2\nc = 3\n", src)

	_, err = LoadSource(filepath.Join(t.TempDir(), "missing.pico"))
	assert.Error(t, err)
}

func TestGetPathInfo(t *testing.T) {
	full, parent, err := GetPathInfo("x/y.pico")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(full))
	assert.Equal(t, filepath.Dir(full), parent)
}

func TestRunCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell syntax differs")
	}
	out, err := RunCommand(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)

	_, err = RunCommand(context.Background(), "exit 3")
	assert.Error(t, err)
}
