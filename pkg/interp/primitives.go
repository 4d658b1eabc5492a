package interp

import (
	lua "github.com/yuin/gopher-lua"

	"picoc/pkg/core"
)

// Tables and memory blocks cross into Lua as their handle, a number; 0 is
// null.

func (it *Interpreter) table(lv lua.LValue) *core.Table {
	n, ok := lv.(lua.LNumber)
	if !ok || n <= 0 {
		return nil
	}
	return it.rt.Lookup(core.Handle(n))
}

func handleOf(t *core.Table) lua.LValue { return lua.LNumber(t.Handle()) }

func (it *Interpreter) block(lv lua.LValue) *core.Block {
	n, ok := lv.(lua.LNumber)
	if !ok || n <= 0 {
		return nil
	}
	return it.rt.LookupBlock(core.Handle(n))
}

func blockHandle(b *core.Block) lua.LValue { return lua.LNumber(b.Handle()) }

// tableKey converts an index expression to a table key: numbers use the
// canonical integer form, strings are used as they are.
func tableKey(lv lua.LValue) string {
	switch v := lv.(type) {
	case lua.LNumber:
		return core.IndexKey(core.Int(float64(v)))
	case lua.LString:
		return string(v)
	}
	return lv.String()
}

func checkInt(L *lua.LState, n int) int64 { return core.Int(float64(L.CheckNumber(n))) }

func checkFloat(L *lua.LState, n int) float64 { return float64(L.CheckNumber(n)) }

// toRef wraps a Lua value for storage in a ref slot. Handles of live tables
// and blocks are stored as the object so the slot keeps it alive.
func (it *Interpreter) toRef(lv lua.LValue) core.Value {
	return core.FromRef(it.refOf(lv))
}

func (it *Interpreter) refOf(lv lua.LValue) any {
	if lv == lua.LNil {
		return nil
	}
	if t := it.table(lv); t != nil {
		return t
	}
	if b := it.block(lv); b != nil {
		return b
	}
	return lv
}

func (it *Interpreter) fromRef(r any) lua.LValue {
	switch v := r.(type) {
	case lua.LValue:
		return v
	case *core.Table:
		return handleOf(v)
	case *core.Block:
		return blockHandle(v)
	case string:
		return lua.LString(v)
	}
	return lua.LNil
}

func (it *Interpreter) registerPrimitives() {
	it.L.SetFuncs(it.L.G.Global, map[string]lua.LGFunction{
		"_CreateTable": func(L *lua.LState) int {
			L.Push(handleOf(it.rt.NewTable()))
			return 1
		},
		"_IncRef": func(L *lua.LState) int {
			v := L.Get(1)
			it.rt.IncRef(it.table(v))
			L.Push(v)
			return 1
		},
		"_DecRef": func(L *lua.LState) int {
			it.rt.DecRef(it.table(L.Get(1)))
			return 0
		},
		"_AutoDec": func(L *lua.LState) int {
			v := L.Get(1)
			it.rt.AutoDec(it.table(v))
			L.Push(v)
			return 1
		},
		"_DoAutoDec": func(L *lua.LState) int {
			it.rt.DoAutoDec()
			return 0
		},
		"_Mark": func(L *lua.LState) int {
			L.Push(lua.LNumber(it.rt.Mark()))
			return 1
		},
		"_Release": func(L *lua.LState) int {
			it.rt.ReleaseTo(int(L.CheckNumber(1)))
			return 0
		},

		"_SetTableInt":    it.setter(func(L *lua.LState) core.Value { return core.FromInt(checkInt(L, 3)) }),
		"_SetTableFloat":  it.setter(func(L *lua.LState) core.Value { return core.FromFloat(checkFloat(L, 3)) }),
		"_SetTableString": it.setter(func(L *lua.LState) core.Value { return core.FromString(L.CheckString(3)) }),
		"_SetTableTable":  it.setter(func(L *lua.LState) core.Value { return core.FromTable(it.table(L.Get(3))) }),
		"_SetTableRef":    it.setter(func(L *lua.LState) core.Value { return it.toRef(L.Get(3)) }),

		"_TableInt": it.getter(func(t *core.Table, key string) lua.LValue {
			return lua.LNumber(t.Int(key))
		}),
		"_TableFloat": it.getter(func(t *core.Table, key string) lua.LValue {
			return lua.LNumber(t.Float(key))
		}),
		"_TableString": it.getter(func(t *core.Table, key string) lua.LValue {
			return lua.LString(t.String(key))
		}),
		"_TableTable": it.getter(func(t *core.Table, key string) lua.LValue {
			return handleOf(t.Table(key))
		}),
		"_TableRef": it.getter(func(t *core.Table, key string) lua.LValue {
			return it.fromRef(t.Ref(key))
		}),
	})
}

// setter builds a _SetTableX(t, key, value) primitive. It returns t so that
// literal construction chains.
func (it *Interpreter) setter(value func(L *lua.LState) core.Value) lua.LGFunction {
	return func(L *lua.LState) int {
		tv := L.Get(1)
		it.table(tv).Set(tableKey(L.Get(2)), value(L))
		L.Push(tv)
		return 1
	}
}

func (it *Interpreter) getter(read func(t *core.Table, key string) lua.LValue) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(read(it.table(L.Get(1)), tableKey(L.Get(2))))
		return 1
	}
}
