package cli

import (
	"github.com/sirupsen/logrus"

	"picoc/pkg/codegen"
	"picoc/pkg/compiler"
	"picoc/pkg/library"
	"picoc/pkg/utils"
)

// libraries returns the manifests every compilation registers: the core one
// unless disabled, then the configured extra files in order.
func (a *app) libraries() ([]compiler.Library, error) {
	var libs []compiler.Library
	if !a.cfg.NoCoreLibrary {
		libs = append(libs, library.Core())
	}
	for _, name := range a.cfg.Libraries {
		src, err := utils.LoadSource(name)
		if err != nil {
			return nil, err
		}
		libs = append(libs, compiler.Library{Name: name, Source: src})
	}
	return libs, nil
}

// compile compiles file with the named backend. Compile errors come back
// unwrapped so that they print as a single diagnostic line.
func (a *app) compile(file, backend string) (string, compiler.Generator, error) {
	gen, err := codegen.New(backend)
	if err != nil {
		return "", nil, err
	}
	full, _, err := utils.GetPathInfo(file)
	if err != nil {
		return "", nil, err
	}
	src, err := utils.LoadSource(file)
	if err != nil {
		return "", nil, err
	}
	libs, err := a.libraries()
	if err != nil {
		return "", nil, err
	}
	code, err := compiler.Compile(src, gen, compiler.Options{
		File:      file,
		Libraries: libs,
		Logger:    a.log.WithField("component", "cli"),
	})
	if err != nil {
		return "", nil, err
	}
	a.log.WithFields(logrus.Fields{"file": full, "backend": gen.Name()}).Info("compiled")
	return code, gen, nil
}
