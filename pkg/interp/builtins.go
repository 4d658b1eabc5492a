package interp

import (
	"fmt"
	"io"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"picoc/pkg/core"
	"picoc/pkg/utils"
)

func (it *Interpreter) registerBuiltins() {
	funcs := map[string]lua.LGFunction{
		// Application
		"AppName": func(L *lua.LState) int {
			L.Push(lua.LString(it.rt.AppName()))
			return 1
		},
		"AppArgs": func(L *lua.LState) int {
			L.Push(handleOf(it.rt.AppArgs()))
			return 1
		},
		"Run":   it.run,
		"Input": it.input,
		"Print": func(L *lua.LState) int {
			fmt.Fprintln(it.out, L.CheckString(1))
			return 0
		},

		// Files and directories
		"DirContents": func(L *lua.LState) int {
			names, err := it.fs.ReadDir(L.CheckString(1))
			if err != nil {
				it.log.WithError(err).Debug("DirContents")
			}
			L.Push(handleOf(it.rt.StringList(names)))
			return 1
		},
		"CurrentDir": func(L *lua.LState) int {
			L.Push(lua.LString(it.fs.Getwd()))
			return 1
		},
		"ChangeDir": func(L *lua.LState) int {
			if err := it.fs.Chdir(L.CheckString(1)); err != nil {
				it.log.WithError(err).Debug("ChangeDir")
			}
			return 0
		},
		"FullPath": func(L *lua.LState) int {
			L.Push(lua.LString(it.fs.Abs(L.CheckString(1))))
			return 1
		},
		"FileType": func(L *lua.LState) int {
			L.Push(lua.LNumber(it.fs.Stat(L.CheckString(1))))
			return 1
		},
		"DeleteFile": func(L *lua.LState) int {
			if err := it.fs.Remove(L.CheckString(1)); err != nil {
				it.log.WithError(err).Debug("DeleteFile")
			}
			return 0
		},
		"LoadString": func(L *lua.LState) int {
			data, err := it.fs.ReadFile(L.CheckString(1))
			if err != nil {
				it.log.WithError(err).Debug("LoadString")
			}
			L.Push(lua.LString(data))
			return 1
		},
		"SaveString": func(L *lua.LState) int {
			err := it.fs.WriteFile(L.CheckString(1), []byte(L.CheckString(2)), checkInt(L, 3) != 0)
			if err != nil {
				it.log.WithError(err).Warn("SaveString")
			}
			return 0
		},

		// Math
		"ASin":  float1(math.Asin),
		"ACos":  float1(math.Acos),
		"ATan":  float1(math.Atan),
		"ATan2": float2(math.Atan2),
		"Abs":   float1(math.Abs),
		"Ceil":  float1(math.Ceil),
		"Cos":   float1(math.Cos),
		"Exp":   float1(math.Exp),
		"Floor": float1(math.Floor),
		"Log":   float1(math.Log),
		"Max":   float2(math.Max),
		"Min":   float2(math.Min),
		"Pow":   float2(math.Pow),
		"Sgn":   float1(core.Sgn),
		"Sin":   float1(math.Sin),
		"Sqrt":  float1(math.Sqrt),
		"Tan":   float1(math.Tan),
		"Clamp": func(L *lua.LState) int {
			L.Push(lua.LNumber(core.Clamp(checkFloat(L, 1), checkFloat(L, 2), checkFloat(L, 3))))
			return 1
		},
		"Int": func(L *lua.LState) int {
			L.Push(lua.LNumber(core.Int(checkFloat(L, 1))))
			return 1
		},

		// Strings
		"Len":   stringToInt(core.Len),
		"Lower": stringToString(core.Lower),
		"Upper": stringToString(core.Upper),
		"Trim":  stringToString(core.Trim),
		"Left": func(L *lua.LState) int {
			L.Push(lua.LString(core.Left(L.CheckString(1), checkInt(L, 2))))
			return 1
		},
		"Right": func(L *lua.LState) int {
			L.Push(lua.LString(core.Right(L.CheckString(1), checkInt(L, 2))))
			return 1
		},
		"Mid": func(L *lua.LState) int {
			L.Push(lua.LString(core.Mid(L.CheckString(1), checkInt(L, 2), checkInt(L, 3))))
			return 1
		},
		"Find": func(L *lua.LState) int {
			L.Push(lua.LNumber(core.Find(L.CheckString(1), L.CheckString(2), checkInt(L, 3))))
			return 1
		},
		"Replace": func(L *lua.LState) int {
			L.Push(lua.LString(core.Replace(L.CheckString(1), L.CheckString(2), L.CheckString(3))))
			return 1
		},
		"Join": func(L *lua.LState) int {
			L.Push(lua.LString(core.Join(it.table(L.Get(1)), L.CheckString(2))))
			return 1
		},
		"Split": func(L *lua.LState) int {
			L.Push(handleOf(it.rt.Split(L.CheckString(1), L.CheckString(2))))
			return 1
		},
		"StripExt":   stringToString(utils.StripExt),
		"StripDir":   stringToString(utils.StripDir),
		"ExtractExt": stringToString(utils.ExtractExt),
		"ExtractDir": stringToString(utils.ExtractDir),
		"Asc": func(L *lua.LState) int {
			L.Push(lua.LNumber(core.Asc(L.CheckString(1), checkInt(L, 2))))
			return 1
		},
		"Chr": func(L *lua.LState) int {
			L.Push(lua.LString(core.Chr(checkInt(L, 1))))
			return 1
		},
		"Str": func(L *lua.LState) int {
			L.Push(lua.LString(core.Str(checkInt(L, 1))))
			return 1
		},
		"StrF": func(L *lua.LState) int {
			L.Push(lua.LString(core.StrF(checkFloat(L, 1))))
			return 1
		},
		"Val": func(L *lua.LState) int {
			L.Push(lua.LNumber(core.Val(L.CheckString(1))))
			return 1
		},
		"ValF": func(L *lua.LState) int {
			L.Push(lua.LNumber(core.ValF(L.CheckString(1))))
			return 1
		},

		// Memory blocks
		"Dim": func(L *lua.LState) int {
			L.Push(blockHandle(it.rt.NewBlock(int(checkInt(L, 1)))))
			return 1
		},
		"Undim": func(L *lua.LState) int {
			it.rt.DecRefBlock(it.block(L.Get(1)))
			return 0
		},
		"Redim": func(L *lua.LState) int {
			it.block(L.Get(1)).Resize(int(checkInt(L, 2)))
			return 0
		},
		"DimSize": func(L *lua.LState) int {
			L.Push(lua.LNumber(it.block(L.Get(1)).Size()))
			return 1
		},
		"LoadDim": func(L *lua.LState) int {
			data, err := it.fs.ReadFile(L.CheckString(1))
			if err != nil {
				it.log.WithError(err).Debug("LoadDim")
				L.Push(lua.LNumber(0))
				return 1
			}
			L.Push(blockHandle(it.rt.BlockFrom(data)))
			return 1
		},
		"SaveDim": func(L *lua.LState) int {
			b := it.block(L.Get(1))
			if b == nil {
				return 0
			}
			if err := it.fs.WriteFile(L.CheckString(2), b.Bytes(), false); err != nil {
				it.log.WithError(err).Warn("SaveDim")
			}
			return 0
		},
		"PeekByte":  it.peekInt((*core.Block).PeekByte),
		"PeekShort": it.peekInt((*core.Block).PeekShort),
		"PeekInt":   it.peekInt((*core.Block).PeekInt),
		"PeekFloat": func(L *lua.LState) int {
			L.Push(lua.LNumber(it.block(L.Get(1)).PeekFloat(checkInt(L, 2))))
			return 1
		},
		"PeekString": func(L *lua.LState) int {
			L.Push(lua.LString(it.block(L.Get(1)).PeekString(checkInt(L, 2))))
			return 1
		},
		"PeekRef": func(L *lua.LState) int {
			L.Push(it.fromRef(it.block(L.Get(1)).PeekRef(checkInt(L, 2))))
			return 1
		},
		"PokeByte":  it.pokeInt((*core.Block).PokeByte),
		"PokeShort": it.pokeInt((*core.Block).PokeShort),
		"PokeInt":   it.pokeInt((*core.Block).PokeInt),
		"PokeFloat": func(L *lua.LState) int {
			it.block(L.Get(1)).PokeFloat(checkInt(L, 2), checkFloat(L, 3))
			return 0
		},
		"PokeString": func(L *lua.LState) int {
			it.block(L.Get(1)).PokeString(checkInt(L, 2), L.CheckString(3))
			return 0
		},
		"PokeRef": func(L *lua.LState) int {
			it.block(L.Get(1)).PokeRef(checkInt(L, 2), it.refOf(L.Get(3)))
			return 0
		},

		// Tables
		"Size": func(L *lua.LState) int {
			L.Push(lua.LNumber(it.table(L.Get(1)).Size()))
			return 1
		},
		"Contains": func(L *lua.LState) int {
			found := it.table(L.Get(1)).Contains(tableKey(L.Get(2)))
			L.Push(lua.LNumber(boolInt(found)))
			return 1
		},
		"Remove": func(L *lua.LState) int {
			it.table(L.Get(1)).Remove(tableKey(L.Get(2)))
			return 0
		},
		"Clear": func(L *lua.LState) int {
			it.table(L.Get(1)).Clear()
			return 0
		},
		"Keys": func(L *lua.LState) int {
			L.Push(handleOf(it.rt.KeysOf(it.table(L.Get(1)))))
			return 1
		},
		"TableStr": func(L *lua.LState) int {
			L.Push(lua.LString(it.table(L.Get(1)).ToString()))
			return 1
		},
	}
	it.L.SetFuncs(it.L.G.Global, funcs)
}

func float1(fn func(float64) float64) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LNumber(fn(checkFloat(L, 1))))
		return 1
	}
}

func float2(fn func(float64, float64) float64) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LNumber(fn(checkFloat(L, 1), checkFloat(L, 2))))
		return 1
	}
}

func stringToString(fn func(string) string) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LString(fn(L.CheckString(1))))
		return 1
	}
}

func stringToInt(fn func(string) int64) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LNumber(fn(L.CheckString(1))))
		return 1
	}
}

func (it *Interpreter) peekInt(fn func(*core.Block, int64) int64) lua.LGFunction {
	return func(L *lua.LState) int {
		L.Push(lua.LNumber(fn(it.block(L.Get(1)), checkInt(L, 2))))
		return 1
	}
}

func (it *Interpreter) pokeInt(fn func(*core.Block, int64, int64)) lua.LGFunction {
	return func(L *lua.LState) int {
		fn(it.block(L.Get(1)), checkInt(L, 2), checkInt(L, 3))
		return 0
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// run executes a shell command and returns its output. A failing command
// still yields whatever it printed.
func (it *Interpreter) run(L *lua.LState) int {
	out, err := it.exec(it.ctx, L.CheckString(1))
	if err != nil {
		it.log.WithError(err).Warn("Run")
	}
	L.Push(lua.LString(out))
	return 1
}

// input prints the prompt and reads one line, without its line ending.
// End of input reads as "".
func (it *Interpreter) input(L *lua.LState) int {
	fmt.Fprint(it.out, L.CheckString(1))
	line, err := it.in.ReadString('\n')
	if err != nil && err != io.EOF {
		it.log.WithError(err).Warn("Input")
	}
	L.Push(lua.LString(strings.TrimRight(line, "\r\n")))
	return 1
}
