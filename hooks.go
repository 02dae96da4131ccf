package catalogsync

import (
	"slices"
	"sync"

	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/runs"
)

// Hook function types for run events
type (
	// RunStartedHook is called when an import run is opened
	RunStartedHook func(run runs.ImportRun)

	// RunFinishedHook is called when an import run reaches completed or failed
	RunFinishedHook func(run runs.ImportRun)
)

// Hooks registers callbacks for run lifecycle events.
type Hooks interface {
	// OnRunStarted registers a callback for opened runs
	OnRunStarted(fn RunStartedHook)

	// OnRunFinished registers a callback for finalized runs
	OnRunFinished(fn RunFinishedHook)
}

// hooks manages event callbacks for import runs
type hooks struct {
	mu            sync.RWMutex
	onRunStarted  []RunStartedHook
	onRunFinished []RunFinishedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnRunStarted registers a callback for opened runs.
func (e *engine) OnRunStarted(fn RunStartedHook) {
	e.hooks.mu.Lock()
	defer e.hooks.mu.Unlock()
	e.hooks.onRunStarted = append(e.hooks.onRunStarted, fn)
}

// OnRunFinished registers a callback for finalized runs.
func (e *engine) OnRunFinished(fn RunFinishedHook) {
	e.hooks.mu.Lock()
	defer e.hooks.mu.Unlock()
	e.hooks.onRunFinished = append(e.hooks.onRunFinished, fn)
}

// started and finished call a snapshot of the registered hooks, taken
// under the lock, so a hook may register further hooks.
func (h *hooks) started(run *runs.ImportRun) {
	h.mu.RLock()
	fns := slices.Clone(h.onRunStarted)
	h.mu.RUnlock()
	for _, fn := range fns {
		h.call(run, fn)
	}
}

func (h *hooks) finished(run *runs.ImportRun) {
	h.mu.RLock()
	fns := slices.Clone(h.onRunFinished)
	h.mu.RUnlock()
	for _, fn := range fns {
		h.call(run, fn)
	}
}

// call runs one hook on its own copy of the run. A panicking hook is
// logged and does not affect the import.
func (h *hooks) call(run *runs.ImportRun, fn func(runs.ImportRun)) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Interface("panic", r).
				Str("run_id", run.ID).
				Msg("Run hook panicked")
		}
	}()
	fn(*run.Clone())
}
