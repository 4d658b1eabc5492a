// Package interp runs programs compiled by the Lua backend inside an
// embedded Lua VM. The runtime primitives the generated code calls
// (_CreateTable, _IncRef, _SetTableInt, ...) and every built-in of the core
// manifest are registered as Lua globals backed by a core.Runtime.
package interp

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"picoc/pkg/codegen"
	"picoc/pkg/compiler"
	"picoc/pkg/core"
	"picoc/pkg/library"
	"picoc/pkg/utils"
	"picoc/pkg/vfs"
)

// Interpreter owns one Lua state and the runtime behind it. It is not safe
// for concurrent use.
type Interpreter struct {
	L   *lua.LState
	rt  *core.Runtime
	fs  vfs.FS
	out io.Writer
	in  *bufio.Reader
	log logrus.FieldLogger

	appName string
	appArgs []string

	runID string
	ctx   context.Context
	exec  func(ctx context.Context, command string) (string, error)

	// pending arguments for the reflection Call family
	callArgs []lua.LValue
}

type Option func(*Interpreter)

func WithOutput(w io.Writer) Option {
	return func(it *Interpreter) { it.out = w }
}

func WithInput(r io.Reader) Option {
	return func(it *Interpreter) { it.in = bufio.NewReader(r) }
}

func WithFS(fs vfs.FS) Option {
	return func(it *Interpreter) { it.fs = fs }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(it *Interpreter) { it.log = log }
}

// WithArgs sets what AppName and AppArgs return inside the program.
func WithArgs(name string, args []string) Option {
	return func(it *Interpreter) {
		it.appName = name
		it.appArgs = args
	}
}

// WithCommandRunner replaces the shell used by the Run built-in.
func WithCommandRunner(run func(ctx context.Context, command string) (string, error)) Option {
	return func(it *Interpreter) { it.exec = run }
}

func New(opts ...Option) *Interpreter {
	it := &Interpreter{
		fs:    vfs.NewOSDisk(),
		out:   os.Stdout,
		in:    bufio.NewReader(os.Stdin),
		log:   logrus.StandardLogger(),
		exec:  utils.RunCommand,
		ctx:   context.Background(),
		runID: uuid.New().String(),
	}
	for _, opt := range opts {
		opt(it)
	}
	it.log = it.log.WithFields(logrus.Fields{"component": "interp", "run": it.runID})
	it.rt = core.NewRuntime(core.WithArgs(it.appName, it.appArgs), core.WithLogger(it.log))

	it.L = lua.NewState()
	it.registerPrimitives()
	it.registerBuiltins()
	it.registerReflection()
	return it
}

// Runtime exposes the value store, mostly for inspecting refcounts.
func (it *Interpreter) Runtime() *core.Runtime { return it.rt }

// RunID identifies this interpreter in log entries.
func (it *Interpreter) RunID() string { return it.runID }

func (it *Interpreter) Close() { it.L.Close() }

// Run executes Lua code produced by the Lua backend. Cancelling ctx stops
// the program. Pending autoreleases are flushed whether or not it fails.
func (it *Interpreter) Run(ctx context.Context, code string) error {
	it.ctx = ctx
	it.L.SetContext(ctx)
	defer func() {
		it.rt.DoAutoDec()
		it.log.WithFields(logrus.Fields{
			"live_tables": it.rt.LiveTables(),
			"live_blocks": it.rt.LiveBlocks(),
		}).Debug("run finished")
	}()

	it.log.Debug("run started")
	if err := it.L.DoString(code); err != nil {
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "program stopped")
		}
		return errors.Wrap(err, "runtime error")
	}
	return nil
}

// RunSource compiles src with the Lua backend against the core manifest
// plus libs and runs it.
func (it *Interpreter) RunSource(ctx context.Context, src, file string, libs ...compiler.Library) error {
	code, err := compiler.Compile(src, codegen.NewLua(), compiler.Options{
		File:      file,
		Libraries: append([]compiler.Library{library.Core()}, libs...),
		Logger:    it.log,
	})
	if err != nil {
		return err
	}
	return it.Run(ctx, code)
}
