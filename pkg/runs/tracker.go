package runs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/sources"
)

// ErrFinalized is returned when a run that already reached a terminal
// status is finalized again.
var ErrFinalized = errors.New("import run already finalized")

// Tracker owns a running ImportRun and moves it to exactly one terminal
// status.
type Tracker struct {
	mu    sync.Mutex
	run   ImportRun
	clock func() time.Time
}

// Start opens a new running run. A nil clock means time.Now.
func Start(vendorID string, source sources.ID, clock func() time.Time) *Tracker {
	if clock == nil {
		clock = time.Now
	}
	return &Tracker{
		clock: clock,
		run: ImportRun{
			ID:        uuid.NewString(),
			VendorID:  vendorID,
			Source:    source,
			Status:    StatusRunning,
			StartedAt: clock().UTC(),
			Log:       []string{},
		},
	}
}

// ID returns the run id.
func (t *Tracker) ID() string {
	return t.run.ID
}

// Snapshot returns a copy of the run in its current state.
func (t *Tracker) Snapshot() *ImportRun {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.run.Clone()
}

// SetFound records how many input records the source produced.
func (t *Tracker) SetFound(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.run.Found = n
}

// Record adds outcome counters. Found is left alone.
func (t *Tracker) Record(delta Totals) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delta.Found = 0
	t.run.Totals = t.run.Totals.Add(delta)
}

// Logf appends a line to the run log.
func (t *Tracker) Logf(format string, args ...any) {
	t.Log(fmt.Sprintf(format, args...))
}

// Log appends lines to the run log.
func (t *Tracker) Log(lines ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.run.Log = append(t.run.Log, lines...)
}

// Complete moves the run to completed.
func (t *Tracker) Complete() (*ImportRun, error) {
	return t.finish(StatusCompleted, nil)
}

// Fail moves the run to failed and records cause in the log.
func (t *Tracker) Fail(cause error) (*ImportRun, error) {
	return t.finish(StatusFailed, cause)
}

func (t *Tracker) finish(status Status, cause error) (*ImportRun, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.run.Status.IsTerminal() {
		return t.run.Clone(), fmt.Errorf("%w: run %s is %s", ErrFinalized, t.run.ID, t.run.Status)
	}

	now := t.clock().UTC()
	t.run.Status = status
	t.run.FinishedAt = &now
	if cause != nil {
		t.run.Error = cause.Error()
		t.run.Log = append(t.run.Log, cause.Error())
	}
	return t.run.Clone(), nil
}
