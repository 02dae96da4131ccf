package runs

import (
	"context"
	"slices"
	"sync"

	"github.com/agentstation/catalogsync/pkg/errors"
)

// Ledger persists import runs.
type Ledger interface {
	// Create stores a new run. Storing an id twice fails with
	// errors.ErrAlreadyExists.
	Create(ctx context.Context, run *ImportRun) error

	// Save overwrites a stored run.
	Save(ctx context.Context, run *ImportRun) error

	// Get returns the run with the given id.
	Get(ctx context.Context, id string) (*ImportRun, error)

	// List returns a vendor's runs, newest first. An empty vendorID lists
	// every vendor's runs.
	List(ctx context.Context, vendorID string) ([]ImportRun, error)
}

// MemoryLedger is a thread-safe in-process Ledger.
type MemoryLedger struct {
	mu   sync.RWMutex
	runs map[string]*ImportRun
	seq  map[string]int
	next int
}

var _ Ledger = (*MemoryLedger)(nil)

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		runs: make(map[string]*ImportRun),
		seq:  make(map[string]int),
	}
}

// Create implements Ledger.
func (l *MemoryLedger) Create(_ context.Context, run *ImportRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.runs[run.ID]; exists {
		return errors.NewConflictError("import run", run.ID, nil)
	}
	l.runs[run.ID] = run.Clone()
	l.seq[run.ID] = l.next
	l.next++
	return nil
}

// Save implements Ledger.
func (l *MemoryLedger) Save(_ context.Context, run *ImportRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.runs[run.ID]; !exists {
		return errors.NewNotFoundError("import run", run.ID)
	}
	l.runs[run.ID] = run.Clone()
	return nil
}

// Get implements Ledger.
func (l *MemoryLedger) Get(_ context.Context, id string) (*ImportRun, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	run, ok := l.runs[id]
	if !ok {
		return nil, errors.NewNotFoundError("import run", id)
	}
	return run.Clone(), nil
}

// List implements Ledger.
func (l *MemoryLedger) List(_ context.Context, vendorID string) ([]ImportRun, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]ImportRun, 0, len(l.runs))
	for _, run := range l.runs {
		if vendorID == "" || run.VendorID == vendorID {
			out = append(out, *run.Clone())
		}
	}
	slices.SortFunc(out, func(a, b ImportRun) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return l.seq[b.ID] - l.seq[a.ID]
	})
	return out, nil
}
