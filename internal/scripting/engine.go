package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/BmoandShiro/BemoriaVS-sub000/internal/game/dice"
)

// Hook function names scripts may define as globals. Each receives the enemy
// display name and returns a flavor line, or nil/false to stay silent.
const (
	hookEncounterStart = "on_encounter_start"
	hookEnemyDefeated  = "on_enemy_defeated"
)

// Engine owns one sandboxed LState per flavor script and dispatches hook
// calls by script id. Scripts are keyed by file base name without the .lua
// extension, so an enemy template naming script id "wolf" runs wolf.lua.
//
// Engine is best-effort throughout: missing scripts, undefined hooks, runtime
// errors, and exceeded instruction budgets all yield ("", false) and a log
// line. A battle never fails because a flavor script misbehaved.
//
// Engine is safe for concurrent hook calls after all Load calls complete. Each
// script's LState is single-threaded; the per-script mutex serializes calls to
// the same script while letting different scripts run concurrently.
type Engine struct {
	mu      sync.RWMutex
	scripts map[string]*script
	limit   int
	roller  *dice.Roller
	logger  *zap.Logger
}

type script struct {
	mu     sync.Mutex
	state  *lua.LState
	cancel func()
}

// NewEngine creates an Engine with no scripts loaded.
//
// Precondition: roller and logger must be non-nil; instLimit >= 0
// (0 uses DefaultInstructionLimit).
func NewEngine(roller *dice.Roller, instLimit int, logger *zap.Logger) *Engine {
	return &Engine{
		scripts: make(map[string]*script),
		limit:   instLimit,
		roller:  roller,
		logger:  logger,
	}
}

// LoadDir loads every *.lua file in dir as its own script VM. A missing
// directory is not an error; flavor scripts are optional content.
//
// Postcondition: Each loadable script is registered under its base name.
// Returns the first Lua load failure.
func (e *Engine) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		e.logger.Info("no flavor script directory", zap.String("dir", dir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".lua")
		if err := e.Load(id, filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Load creates a sandboxed VM for scriptID, registers the engine.* module,
// and executes the script file. Reloading an existing id replaces its VM.
//
// Precondition: scriptID must be non-empty; path must be a readable Lua file.
func (e *Engine) Load(scriptID, path string) error {
	L := NewSandboxedState(e.limit)
	e.registerModules(L, scriptID)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return fmt.Errorf("scripting: loading %q for %q: %w", path, scriptID, err)
	}

	e.mu.Lock()
	if old, ok := e.scripts[scriptID]; ok {
		if old.cancel != nil {
			old.cancel()
		}
		old.state.Close()
	}
	e.scripts[scriptID] = &script{state: L}
	e.mu.Unlock()

	e.logger.Debug("flavor script loaded",
		zap.String("script", scriptID),
		zap.String("path", path),
	)
	return nil
}

// Close releases every loaded script VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, s := range e.scripts {
		if s.cancel != nil {
			s.cancel()
		}
		s.state.Close()
		delete(e.scripts, id)
	}
}

// EncounterStart runs the on_encounter_start hook for scriptID.
func (e *Engine) EncounterStart(scriptID, enemyName string) (string, bool) {
	return e.call(scriptID, hookEncounterStart, enemyName)
}

// EnemyDefeated runs the on_enemy_defeated hook for scriptID.
func (e *Engine) EnemyDefeated(scriptID, enemyName string) (string, bool) {
	return e.call(scriptID, hookEnemyDefeated, enemyName)
}

// call invokes the named global in scriptID's VM, passing the enemy name and
// expecting at most one string return. Every failure mode degrades to
// ("", false).
func (e *Engine) call(scriptID, hook, enemyName string) (string, bool) {
	if scriptID == "" {
		return "", false
	}

	e.mu.RLock()
	s, ok := e.scripts[scriptID]
	e.mu.RUnlock()
	if !ok {
		e.logger.Debug("no VM for flavor script",
			zap.String("script", scriptID),
			zap.String("hook", hook),
		)
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	L := s.state
	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return "", false
	}

	// Fresh instruction budget for this invocation.
	limit := e.limit
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	ctx, cancel := newCountingContext(limit)
	s.cancel = cancel
	L.SetContext(ctx)

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(enemyName)); err != nil {
		e.logger.Warn("flavor script runtime error",
			zap.String("script", scriptID),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return "", false
	}

	ret := L.Get(-1)
	L.Pop(1)
	if line, ok := ret.(lua.LString); ok && line != "" {
		return string(line), true
	}
	return "", false
}
