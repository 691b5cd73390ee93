// Package plugin loads Lua plugin files that declare and override tasks.
// Plugins run during the load phase only; actions they register execute
// later through the engine like any Go-declared task.
package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/hychen/redspot/internal/core"
)

// Host owns one sandboxed Lua state per plugin file. States live for the
// process lifetime because registered actions close over them.
type Host struct {
	reg      *core.Registry
	composer *core.Composer
	states   []*lua.LState
}

func NewHost(reg *core.Registry, composer *core.Composer) *Host {
	return &Host{reg: reg, composer: composer}
}

// LoadDir loads every *.lua file in dir in sorted filename order, which
// fixes the override-chain order between plugins. A missing directory is
// not an error.
func (h *Host) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read plugin dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, f := range files {
		if err := h.LoadFile(f); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile runs one plugin file in a fresh sandboxed state.
func (h *Host) LoadFile(path string) (err error) {
	L := lua.NewState()
	sandbox(L)
	h.install(L)

	defer func() {
		// Builder constraint violations surface as panics during load.
		if r := recover(); r != nil {
			L.Close()
			err = fmt.Errorf("plugin %s: %v", path, r)
		}
	}()

	if err := L.DoFile(path); err != nil {
		L.Close()
		return fmt.Errorf("plugin %s: %w", path, err)
	}
	h.states = append(h.states, L)
	log.Debug().Str("plugin", path).Msg("plugin loaded")
	return nil
}

// Close releases all plugin states. Call only after the last task ran.
func (h *Host) Close() {
	for _, L := range h.states {
		L.Close()
	}
	h.states = nil
}

// sandbox strips the load-from-anywhere primitives so a plugin file can
// only run its own chunk.
func sandbox(L *lua.LState) {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
}

func (h *Host) install(L *lua.LState) {
	L.SetGlobal("task", L.NewFunction(func(L *lua.LState) int {
		return h.declare(L, false)
	}))
	L.SetGlobal("subtask", L.NewFunction(func(L *lua.LState) int {
		return h.declare(L, true)
	}))
	L.SetGlobal("extend_environment", L.NewFunction(func(L *lua.LState) int {
		fn := L.CheckFunction(1)
		h.composer.Extend(func(env *core.Environment) error {
			return L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, h.envTable(L, context.Background(), env))
		})
		return 0
	}))
}

// declare implements the Lua task()/subtask() entry points:
// task(name [, description] [, fn]) returning a builder table.
func (h *Host) declare(L *lua.LState, subtask bool) int {
	name := L.CheckString(1)
	var bld *core.Builder
	if subtask {
		bld = h.reg.Subtask(name)
	} else {
		bld = h.reg.Task(name)
	}
	for i := 2; i <= L.GetTop(); i++ {
		switch v := L.Get(i).(type) {
		case lua.LString:
			bld.SetDescription(string(v))
		case *lua.LFunction:
			bld.SetAction(h.luaAction(L, v))
		}
	}
	L.Push(h.builderTable(L, bld))
	return 1
}

// builderTable mirrors the Go builder's fluent surface for Lua plugins.
// Parameter types are named: string, bool, int, float, json, file, files.
func (h *Host) builderTable(L *lua.LState, bld *core.Builder) *lua.LTable {
	t := L.NewTable()
	method := func(fn func(L *lua.LState)) lua.LGFunction {
		return func(L *lua.LState) int {
			fn(L)
			L.Push(t)
			return 1
		}
	}
	paramType := func(L *lua.LState, idx int) core.CLIArgumentType {
		name := L.OptString(idx, "string")
		pt, ok := core.TypeByName(name)
		if !ok {
			L.RaiseError("unknown argument type %q", name)
		}
		return pt
	}

	t.RawSetString("set_description", L.NewFunction(method(func(L *lua.LState) {
		bld.SetDescription(L.CheckString(2))
	})))
	t.RawSetString("set_action", L.NewFunction(method(func(L *lua.LState) {
		bld.SetAction(h.luaAction(L, L.CheckFunction(2)))
	})))
	t.RawSetString("add_param", L.NewFunction(method(func(L *lua.LState) {
		bld.AddParam(L.CheckString(2), paramType(L, 3), L.OptString(4, ""))
	})))
	t.RawSetString("add_optional_param", L.NewFunction(method(func(L *lua.LState) {
		bld.AddOptionalParam(L.CheckString(2), paramType(L, 3), toGoValue(L.Get(4)), L.OptString(5, ""))
	})))
	t.RawSetString("add_flag", L.NewFunction(method(func(L *lua.LState) {
		bld.AddFlag(L.CheckString(2), L.OptString(3, ""))
	})))
	t.RawSetString("add_positional_param", L.NewFunction(method(func(L *lua.LState) {
		bld.AddPositionalParam(L.CheckString(2), paramType(L, 3), L.OptString(4, ""))
	})))
	t.RawSetString("add_optional_positional_param", L.NewFunction(method(func(L *lua.LState) {
		bld.AddOptionalPositionalParam(L.CheckString(2), paramType(L, 3), toGoValue(L.Get(4)), L.OptString(5, ""))
	})))
	t.RawSetString("add_variadic_positional_param", L.NewFunction(method(func(L *lua.LState) {
		bld.AddVariadicPositionalParam(L.CheckString(2), paramType(L, 3), L.OptString(4, ""))
	})))
	t.RawSetString("add_optional_variadic_positional_param", L.NewFunction(method(func(L *lua.LState) {
		bld.AddOptionalVariadicPositionalParam(L.CheckString(2), paramType(L, 3), toGoValue(L.Get(4)), L.OptString(5, ""))
	})))
	return t
}

// luaAction wraps a Lua function as an engine action. The Lua side
// receives (args, env, run_super).
func (h *Host) luaAction(L *lua.LState, fn *lua.LFunction) core.Action {
	return func(ctx context.Context, env *core.Environment, args core.Arguments, super core.RunSuper) (any, error) {
		largs := L.NewTable()
		for k, v := range args {
			largs.RawSetString(k, toLuaValue(L, v))
		}
		lsuper := L.NewFunction(func(L *lua.LState) int {
			var superArgs core.Arguments
			if t, ok := L.Get(1).(*lua.LTable); ok {
				superArgs = core.Arguments{}
				if m, ok := toGoValue(t).(map[string]any); ok {
					for k, v := range m {
						superArgs[k] = v
					}
				}
			}
			res, err := super.Call(ctx, superArgs)
			if err != nil {
				L.RaiseError("%v", err)
			}
			L.Push(toLuaValue(L, res))
			return 1
		})
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, largs, h.envTable(L, ctx, env), lsuper); err != nil {
			return nil, fmt.Errorf("plugin action: %w", err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		return toGoValue(ret), nil
	}
}

// envTable is the narrow environment view handed to Lua code.
func (h *Host) envTable(L *lua.LState, ctx context.Context, env *core.Environment) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("network", lua.LString(env.Network.Name()))
	t.RawSetString("artifacts_dir", lua.LString(env.Artifacts.Dir()))
	t.RawSetString("run", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		args := core.Arguments{}
		if tbl, ok := L.Get(2).(*lua.LTable); ok {
			if m, ok := toGoValue(tbl).(map[string]any); ok {
				for k, v := range m {
					args[k] = v
				}
			}
		}
		res, err := env.Run(ctx, name, args)
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(toLuaValue(L, res))
		return 1
	}))
	t.RawSetString("get", L.NewFunction(func(L *lua.LState) int {
		L.Push(toLuaValue(L, env.Extras[L.CheckString(1)]))
		return 1
	}))
	t.RawSetString("set", L.NewFunction(func(L *lua.LState) int {
		env.Extras[L.CheckString(1)] = toGoValue(L.Get(2))
		return 0
	}))
	t.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		log.Info().Str("source", "plugin").Msg(L.CheckString(1))
		return 0
	}))
	return t
}
