package catalogsync

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/runs"
)

// Compile-time interface check to ensure proper implementation.
var _ History = (*engine)(nil)

// History reads recorded import runs.
type History interface {
	// GetImportRuns lists a vendor's runs newest first; an empty vendorID
	// lists every vendor's runs
	GetImportRuns(ctx context.Context, vendorID string) ([]runs.ImportRun, error)

	// GetImportRun returns a single run
	GetImportRun(ctx context.Context, runID string) (*runs.ImportRun, error)
}

// GetImportRuns lists recorded runs.
func (e *engine) GetImportRuns(ctx context.Context, vendorID string) ([]runs.ImportRun, error) {
	return e.options.ledger.List(ctx, vendorID)
}

// GetImportRun returns a single run.
func (e *engine) GetImportRun(ctx context.Context, runID string) (*runs.ImportRun, error) {
	return e.options.ledger.Get(ctx, runID)
}
