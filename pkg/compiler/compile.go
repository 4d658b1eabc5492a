package compiler

import (
	"github.com/sirupsen/logrus"
)

// Library is a named manifest of function headers, one per line.
type Library struct {
	Name   string
	Source string
}

// Options configures Compile.
type Options struct {
	File      string // used in diagnostics
	Libraries []Library
	Logger    logrus.FieldLogger
}

// Compile tokenizes src, registers the libraries and parses the program with
// gen. It returns the generated code or the first error encountered.
func Compile(src string, gen Generator, opts Options) (string, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "compiler")

	tokens, err := ParseTokens(src, opts.File)
	if err != nil {
		return "", err
	}
	p := NewParser(tokens, gen, WithLogger(log))
	for _, lib := range opts.Libraries {
		libTokens, err := ParseTokens(lib.Source, lib.Name)
		if err != nil {
			return "", err
		}
		if err := p.ParseLibrary(libTokens); err != nil {
			return "", err
		}
	}
	if err := p.Parse(); err != nil {
		return "", err
	}
	log.WithFields(logrus.Fields{
		"file":    opts.File,
		"backend": gen.Name(),
		"bytes":   len(p.Code()),
	}).Debug("compiled")
	return p.Code(), nil
}
