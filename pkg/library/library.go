// Package library holds the built-in function manifest every program may
// call, and the native runtimes that implement it for the backends whose
// output runs outside picoc.
package library

import (
	"embed"
	"path"
	"strings"

	"github.com/pkg/errors"

	"picoc/pkg/compiler"
)

// CoreName is the file name reported in diagnostics for the core manifest.
const CoreName = "core.lb"

//go:embed core.lb
var coreSource string

//go:embed runtime
var runtimeFS embed.FS

// runtimeFiles lists, per backend, the files a build must ship next to the
// generated program. The lua backend runs on the embedded interpreter.
var runtimeFiles = map[string][]string{
	"c":  {"core.h", "core.c"},
	"js": {"pico.js"},
}

// Core returns the core manifest.
func Core() compiler.Library {
	return compiler.Library{Name: CoreName, Source: coreSource}
}

// File is one runtime source file.
type File struct {
	Name string
	Data []byte
}

// Runtime returns the runtime files for backend, or none when its programs
// need no support files.
func Runtime(backend string) ([]File, error) {
	var files []File
	for _, name := range runtimeFiles[strings.ToLower(backend)] {
		data, err := runtimeFS.ReadFile(path.Join("runtime", name))
		if err != nil {
			return nil, errors.Wrapf(err, "runtime %s", name)
		}
		files = append(files, File{Name: name, Data: data})
	}
	return files, nil
}
