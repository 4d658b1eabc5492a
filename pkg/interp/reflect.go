package interp

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"picoc/pkg/core"
)

// The reflection built-ins call user functions by name at run time. Arguments
// queued with AddIntArg, AddFloatArg and AddStringArg are consumed by the
// next Call, whether or not it finds the function.

const userPrefix = "pf_"

// lookup finds the compiled user function called name, ignoring case.
func (it *Interpreter) lookup(name string) *lua.LFunction {
	if fn, ok := it.L.GetGlobal(userPrefix + name).(*lua.LFunction); ok {
		return fn
	}
	var found *lua.LFunction
	want := strings.ToLower(userPrefix + name)
	it.L.G.Global.ForEach(func(k, v lua.LValue) {
		if fn, ok := v.(*lua.LFunction); ok && found == nil && strings.ToLower(k.String()) == want {
			found = fn
		}
	})
	return found
}

// call invokes name with the queued arguments and returns its result, or nil
// when there is no such function.
func (it *Interpreter) call(L *lua.LState, name string) lua.LValue {
	args := it.callArgs
	it.callArgs = nil

	fn := it.lookup(name)
	if fn == nil {
		it.log.WithField("function", name).Debug("Call: no such function")
		return lua.LNil
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		L.RaiseError("%s", err.Error())
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret
}

func (it *Interpreter) registerReflection() {
	queue := func(check func(L *lua.LState) lua.LValue) lua.LGFunction {
		return func(L *lua.LState) int {
			it.callArgs = append(it.callArgs, check(L))
			return 0
		}
	}

	it.L.SetFuncs(it.L.G.Global, map[string]lua.LGFunction{
		"AddIntArg":    queue(func(L *lua.LState) lua.LValue { return lua.LNumber(checkInt(L, 1)) }),
		"AddFloatArg":  queue(func(L *lua.LState) lua.LValue { return lua.LNumber(checkFloat(L, 1)) }),
		"AddStringArg": queue(func(L *lua.LState) lua.LValue { return lua.LString(L.CheckString(1)) }),

		"Call": func(L *lua.LState) int {
			it.call(L, L.CheckString(1))
			return 0
		},
		"CallInt": func(L *lua.LState) int {
			ret := it.call(L, L.CheckString(1))
			L.Push(lua.LNumber(core.Int(float64(lua.LVAsNumber(ret)))))
			return 1
		},
		"CallFloat": func(L *lua.LState) int {
			ret := it.call(L, L.CheckString(1))
			L.Push(lua.LNumber(lua.LVAsNumber(ret)))
			return 1
		},
		"CallString": func(L *lua.LState) int {
			ret := it.call(L, L.CheckString(1))
			if ret == lua.LNil {
				ret = lua.LString("")
			}
			L.Push(lua.LString(lua.LVAsString(ret)))
			return 1
		},
		"Callable": func(L *lua.LState) int {
			L.Push(lua.LNumber(boolInt(it.lookup(L.CheckString(1)) != nil)))
			return 1
		},
	})
}

