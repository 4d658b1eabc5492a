package compiler

import (
	"fmt"
	"strings"
)

// Var is a declared parameter, local or global.
type Var struct {
	Name string
	Type Type
}

// Function is a function signature. Library functions never have a body.
type Function struct {
	Name    string
	Return  Type
	Params  []Var
	Library bool
}

func (f *Function) String() string {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.Name + p.Type.Suffix()
	}
	return fmt.Sprintf("function %s%s(%s)", f.Name, f.Return.Suffix(), strings.Join(params, ", "))
}

// Definitions is the symbol table of one Parser: user functions, globals and
// the locals of the function currently being parsed. Lookups ignore case.
type Definitions struct {
	functions []*Function
	funcIndex map[string]*Function
	globals   []Var
	locals    []Var
}

func NewDefinitions() *Definitions {
	return &Definitions{funcIndex: make(map[string]*Function)}
}

func key(name string) string { return strings.ToLower(name) }

// AddFunction registers a user function. The caller checks for collisions.
func (d *Definitions) AddFunction(fn *Function) {
	d.functions = append(d.functions, fn)
	d.funcIndex[key(fn.Name)] = fn
}

func (d *Definitions) FindFunction(name string) *Function {
	return d.funcIndex[key(name)]
}

// Functions returns user functions in declaration order.
func (d *Definitions) Functions() []*Function { return d.functions }

func (d *Definitions) AddGlobal(v Var) { d.globals = append(d.globals, v) }

func (d *Definitions) AddLocal(v Var) { d.locals = append(d.locals, v) }

func (d *Definitions) Globals() []Var { return d.globals }

func (d *Definitions) Locals() []Var { return d.locals }

// ClearLocals wipes the local scope at a function boundary.
func (d *Definitions) ClearLocals() { d.locals = nil }

func findVar(vars []Var, name string) (Var, bool) {
	k := key(name)
	for _, v := range vars {
		if key(v.Name) == k {
			return v, true
		}
	}
	return Var{}, false
}

func (d *Definitions) FindLocal(name string) (Var, bool) { return findVar(d.locals, name) }

func (d *Definitions) FindGlobal(name string) (Var, bool) { return findVar(d.globals, name) }

// FindVar resolves name in the local scope first, then globals.
func (d *Definitions) FindVar(name string) (Var, bool) {
	if v, ok := d.FindLocal(name); ok {
		return v, true
	}
	return d.FindGlobal(name)
}

// String returns a deterministic dump in declaration order.
func (d *Definitions) String() string {
	var sb strings.Builder
	if len(d.functions) > 0 {
		sb.WriteString("Functions:\n")
		for _, fn := range d.functions {
			fmt.Fprintf(&sb, "  %s\n", fn)
		}
	} else {
		sb.WriteString("Functions: (empty)\n")
	}
	if len(d.globals) > 0 {
		sb.WriteString("Globals:\n")
		for _, v := range d.globals {
			fmt.Fprintf(&sb, "  %-20s  %s\n", v.Name, v.Type)
		}
	} else {
		sb.WriteString("Globals: (empty)\n")
	}
	if len(d.locals) > 0 {
		sb.WriteString("Locals:\n")
		for _, v := range d.locals {
			fmt.Fprintf(&sb, "  %-20s  %s\n", v.Name, v.Type)
		}
	}
	return sb.String()
}
