package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// registerModules installs the engine global into L. Scripts get:
//
//	engine.roll(expr)  -> integer total of a dice expression, e.g. "2d6+1"
//	engine.log(msg)    -> debug log line tagged with the script id
//
// Precondition: L must be from NewSandboxedState.
func (e *Engine) registerModules(L *lua.LState, scriptID string) {
	engine := L.NewTable()

	L.SetField(engine, "roll", L.NewFunction(func(L *lua.LState) int {
		expr := L.CheckString(1)
		result, err := e.roller.RollExpr(expr)
		if err != nil {
			L.ArgError(1, err.Error())
			return 0
		}
		L.Push(lua.LNumber(result.Total()))
		return 1
	}))

	L.SetField(engine, "log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		e.logger.Debug("script log",
			zap.String("script", scriptID),
			zap.String("msg", msg),
		)
		return 0
	}))

	L.SetGlobal("engine", engine)
}
