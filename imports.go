package catalogsync

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/commit"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/reconcile"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources"
	"github.com/agentstation/catalogsync/pkg/sources/flatfile"
	"github.com/agentstation/catalogsync/pkg/sources/remote"
)

// Compile-time interface check to ensure proper implementation.
var _ Importer = (*engine)(nil)

// Importer starts catalog imports. Every call records exactly one run,
// unless the run ledger itself rejects the new run.
//
// A run that reaches completed is returned with a nil error, even when
// some items failed; those are counted in Errors and described in Log.
// A run that fails before any item is processed (unknown vendor,
// malformed file, failed page) is returned together with an
// *errors.ImportError.
type Importer interface {
	// RunFlatFileImport imports a semicolon-delimited product feed
	RunFlatFileImport(ctx context.Context, vendorID string, data []byte, opts ...flatfile.Option) (*runs.ImportRun, error)

	// RunRemoteImport imports every page of a remote product listing
	RunRemoteImport(ctx context.Context, vendorID string, cfg remote.Config) (*runs.ImportRun, error)

	// RunRemoteRefresh imports selected remote records by their remote id
	RunRemoteRefresh(ctx context.Context, vendorID string, cfg remote.Config, refs []string) (*runs.ImportRun, error)

	// PreviewRemote fetches remote candidates without classifying or
	// writing anything and without recording a run
	PreviewRemote(ctx context.Context, vendorID string, cfg remote.Config) (*sources.Batch, error)
}

// Phases a run can fail in.
const (
	phaseWait     = "wait"
	phaseVendor   = "vendor"
	phaseParse    = "parse"
	phaseFetch    = "fetch"
	phaseClassify = "classify"
)

// fetchFunc produces the source batch of a run.
type fetchFunc func(ctx context.Context, vendor *catalog.Vendor) (*sources.Batch, error)

// RunFlatFileImport imports a semicolon-delimited product feed.
func (e *engine) RunFlatFileImport(ctx context.Context, vendorID string, data []byte, opts ...flatfile.Option) (*runs.ImportRun, error) {
	return e.run(ctx, vendorID, sources.FlatFileID, phaseParse, func(_ context.Context, _ *catalog.Vendor) (*sources.Batch, error) {
		return flatfile.Parse(data, opts...).Collect()
	})
}

// RunRemoteImport imports every page of a remote product listing.
func (e *engine) RunRemoteImport(ctx context.Context, vendorID string, cfg remote.Config) (*runs.ImportRun, error) {
	return e.run(ctx, vendorID, sources.RemoteID, phaseFetch, func(ctx context.Context, vendor *catalog.Vendor) (*sources.Batch, error) {
		return e.remoteAdapter(vendor).Fetch(ctx, &cfg)
	})
}

// RunRemoteRefresh imports selected remote records by their remote id.
// Records the source no longer has are counted as ignored.
func (e *engine) RunRemoteRefresh(ctx context.Context, vendorID string, cfg remote.Config, refs []string) (*runs.ImportRun, error) {
	return e.run(ctx, vendorID, sources.RemoteID, phaseFetch, func(ctx context.Context, vendor *catalog.Vendor) (*sources.Batch, error) {
		return e.remoteAdapter(vendor).FetchMany(ctx, &cfg, refs)
	})
}

// PreviewRemote fetches remote candidates under the vendor's limits.
func (e *engine) PreviewRemote(ctx context.Context, vendorID string, cfg remote.Config) (*sources.Batch, error) {
	vendor, err := e.vendors.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	return e.remoteAdapter(vendor).Fetch(ctx, &cfg)
}

func (e *engine) remoteAdapter(vendor *catalog.Vendor) *remote.Adapter {
	return remote.New(vendor.Limits,
		remote.WithHTTPClient(e.options.httpClient),
		remote.WithBackoff(e.options.retryBackoff),
		remote.WithObserver(e.options.remoteObserver),
	)
}

// run drives one import: resolve the vendor, fetch the whole batch,
// classify it, then commit item by item. Only the steps before the commit
// can fail the run.
func (e *engine) run(ctx context.Context, vendorID string, source sources.ID, fetchPhase string, fetch fetchFunc) (*runs.ImportRun, error) {
	if e.options.importTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.options.importTimeout)
		defer cancel()
	}

	tracker := runs.Start(vendorID, source, e.options.clock)
	ctx = logging.WithSource(logging.WithRun(logging.WithVendor(ctx, vendorID), tracker.ID()), source.String())
	logger := logging.Ctx(ctx)
	started := e.options.clock()

	// the run is opened before queueing so a caller that gives up waiting
	// still leaves a failed run behind
	opened := tracker.Snapshot()
	if err := e.options.ledger.Create(context.WithoutCancel(ctx), opened); err != nil {
		return nil, errors.WrapResource("create", "import run", tracker.ID(), err)
	}
	e.hooks.started(opened)

	if e.options.serializeVendors {
		unlock, err := e.locks.lock(ctx, vendorID)
		if err != nil {
			return e.fail(ctx, tracker, phaseWait, fmt.Errorf("%w: waiting for vendor %s: %v", errors.ErrCanceled, vendorID, err))
		}
		defer unlock()
	}
	logger.Info().Msg("Import started")

	vendor, err := e.vendors.Get(ctx, vendorID)
	if err != nil {
		return e.fail(ctx, tracker, phaseVendor, err)
	}

	batch, err := fetch(ctx, vendor)
	if err != nil {
		return e.fail(ctx, tracker, fetchPhase, err)
	}
	tracker.SetFound(batch.Found())
	logger.Debug().
		Int("candidates", len(batch.Candidates)).
		Int("skipped", len(batch.Skipped)).
		Msg("Source batch ready")

	plan, err := reconcile.Classify(ctx, e.store, vendorID, batch.Candidates)
	if err != nil {
		return e.fail(ctx, tracker, phaseClassify, err)
	}

	ignored := len(batch.Skipped) + plan.Dropped()
	tracker.Record(runs.Totals{Ignored: ignored})
	for _, skip := range batch.Skipped {
		tracker.Log(skip.String())
	}
	for i := range plan.Superseded {
		tracker.Logf("skipped %s: superseded by a later record with the same identity key", plan.Superseded[i].Label())
	}
	for i := range plan.Unkeyed {
		tracker.Logf("skipped %s: empty identity key", plan.Unkeyed[i].Label())
	}

	executor := commit.New(e.store,
		commit.WithSource(source),
		commit.WithTouchUnchanged(e.options.touchUnchanged),
		commit.WithClock(e.options.clock),
	)
	result := executor.Commit(ctx, vendorID, plan.Items)
	tracker.Record(result.Totals)
	tracker.Log(result.Log...)

	run, err := tracker.Complete()
	if err != nil {
		return run, err
	}

	logger.Info().
		Int("found", run.Found).
		Int("new", run.New).
		Int("updated", run.Updated).
		Int("ignored", run.Ignored).
		Int("errors", run.Errors).
		Dur("elapsed", e.options.clock().Sub(started)).
		Msg("Import completed")

	return e.finish(ctx, run, nil)
}

// fail finalizes the run as failed and returns the run with its error.
func (e *engine) fail(ctx context.Context, tracker *runs.Tracker, phase string, cause error) (*runs.ImportRun, error) {
	importErr := errors.NewImportError(tracker.ID(), tracker.Snapshot().VendorID, phase, cause)

	run, err := tracker.Fail(importErr)
	if err != nil {
		return run, err
	}

	logging.Ctx(ctx).Error().
		Err(cause).
		Str("phase", phase).
		Msg("Import failed")

	return e.finish(ctx, run, importErr)
}

// finish persists the final run and notifies hooks. A ledger failure is
// returned so the caller knows the audit record is stale.
func (e *engine) finish(ctx context.Context, run *runs.ImportRun, runErr error) (*runs.ImportRun, error) {
	// the run is already terminal; persist it even if the import's context ended
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := e.options.ledger.Save(saveCtx, run); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to save import run")
		if runErr == nil {
			runErr = errors.WrapResource("save", "import run", run.ID, err)
		}
	}
	e.hooks.finished(run)
	return run, runErr
}
