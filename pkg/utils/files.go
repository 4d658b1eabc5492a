package utils

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	// Convert to absolute path (resolves ../../ and cleans the path)
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", errors.Wrapf(err, "resolve %s", relPath)
	}

	// Get the directory containing the file
	parentDir = filepath.Dir(fullPath)

	return fullPath, parentDir, nil
}

// LoadSource reads a source file and normalises its line endings to "\n".
func LoadSource(filename string) (string, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return "", errors.Wrapf(err, "load %s", filename)
	}
	src := strings.ReplaceAll(string(raw), "\r\n", "\n")
	return strings.ReplaceAll(src, "\r", "\n"), nil
}

// OutputPath is where a build of source lands: outDir (or the source's own
// directory when empty), the source's base name and ext.
func OutputPath(source, outDir, ext string) string {
	if outDir == "" {
		outDir = filepath.Dir(source)
	}
	return filepath.Join(outDir, StripExt(filepath.Base(source))+ext)
}

// The path helpers below work on both separators, so that programs see the
// same results on every host.

func lastSep(filename string) int {
	return strings.LastIndexAny(filename, `/\`)
}

// StripExt removes the extension of the last path element.
func StripExt(filename string) string {
	dot := strings.LastIndexByte(filename, '.')
	if dot <= lastSep(filename) {
		return filename
	}
	return filename[:dot]
}

// StripDir returns the last path element.
func StripDir(filename string) string {
	return filename[lastSep(filename)+1:]
}

// ExtractExt returns the extension of the last path element, without the dot.
func ExtractExt(filename string) string {
	dot := strings.LastIndexByte(filename, '.')
	if dot <= lastSep(filename) {
		return ""
	}
	return filename[dot+1:]
}

// ExtractDir returns everything before the last separator, or "" when there
// is none.
func ExtractDir(filename string) string {
	sep := lastSep(filename)
	if sep < 0 {
		return ""
	}
	return filename[:sep]
}
