// Package commit applies a reconciliation plan to the catalog store, one
// item at a time, and recounts the vendor's active entries afterwards.
//
// A failing item never stops the batch: it is counted, logged and the next
// item proceeds.
package commit

import (
	"context"
	"fmt"
	"time"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/constants"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/logging"
	"github.com/agentstation/catalogsync/pkg/reconcile"
	"github.com/agentstation/catalogsync/pkg/runs"
	"github.com/agentstation/catalogsync/pkg/sources"
)

// Actions named in per-item failure lines.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionTouch  = "touch"
	ActionLookup = "lookup"
)

// Executor writes classified items through a catalog.Store.
type Executor struct {
	store  catalog.Store
	source sources.ID
	touch  bool
	clock  func() time.Time
}

// Option configures an Executor.
type Option func(*Executor)

// WithSource stamps created and updated entries with the source they came
// from.
func WithSource(id sources.ID) Option {
	return func(x *Executor) {
		x.source = id
	}
}

// WithTouchUnchanged makes unchanged items record a sync timestamp in
// their metadata. Content fields stay as they are.
func WithTouchUnchanged(enabled bool) Option {
	return func(x *Executor) {
		x.touch = enabled
	}
}

// WithClock sets the time source for metadata stamps.
func WithClock(clock func() time.Time) Option {
	return func(x *Executor) {
		if clock != nil {
			x.clock = clock
		}
	}
}

// New creates an executor for store.
func New(store catalog.Store, opts ...Option) *Executor {
	x := &Executor{store: store, clock: time.Now}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Result is the outcome of one Commit call. Totals.Found is left zero;
// the caller knows how many records the source produced.
type Result struct {
	Totals      runs.Totals
	Log         []string
	ActiveCount int
	CountErr    error
}

// Commit applies items in order and then recounts vendorID's active
// entries exactly once.
func (x *Executor) Commit(ctx context.Context, vendorID string, items []reconcile.Classification) *Result {
	res := &Result{Log: []string{}}
	logger := logging.Ctx(ctx)

	for i := range items {
		item := &items[i]
		action, err := x.apply(ctx, vendorID, item)
		if err != nil {
			res.Totals.Errors++
			line := fmt.Sprintf("%s failed for %s: %v", action, item.Candidate.Label(), err)
			res.Log = append(res.Log, line)
			logger.Warn().
				Err(err).
				Str("action", action).
				Str("identity_key", item.Candidate.IdentityKey).
				Bool("conflict", errors.IsAlreadyExists(err)).
				Msg("Item failed")
			continue
		}
		switch item.Verdict {
		case reconcile.VerdictNew:
			res.Totals.New++
		case reconcile.VerdictNeedsUpdate:
			res.Totals.Updated++
		default:
			res.Totals.Ignored++
		}
	}

	res.ActiveCount, res.CountErr = x.recount(ctx, vendorID)
	if res.CountErr != nil {
		res.Log = append(res.Log, fmt.Sprintf("recount failed: %v", res.CountErr))
		logger.Warn().Err(res.CountErr).Msg("Active count not refreshed")
	}

	logger.Debug().
		Int("new", res.Totals.New).
		Int("updated", res.Totals.Updated).
		Int("ignored", res.Totals.Ignored).
		Int("errors", res.Totals.Errors).
		Int("active", res.ActiveCount).
		Msg("Committed batch")

	return res
}

// apply performs the write for one item and names the action it took.
func (x *Executor) apply(ctx context.Context, vendorID string, item *reconcile.Classification) (string, error) {
	if item.Failed() {
		return ActionLookup, item.Err
	}

	var action string
	switch item.Verdict {
	case reconcile.VerdictNew:
		action = ActionCreate
	case reconcile.VerdictNeedsUpdate:
		action = ActionUpdate
	default:
		if !x.touch {
			return "", nil
		}
		action = ActionTouch
	}
	if err := ctx.Err(); err != nil {
		return action, err
	}

	var err error
	switch action {
	case ActionCreate:
		_, err = x.store.Create(ctx, x.newEntry(vendorID, &item.Candidate))
	case ActionUpdate:
		_, err = x.store.UpdateFields(ctx, item.ExistingID, x.updatePatch(item))
	case ActionTouch:
		_, err = x.store.UpdateFields(ctx, item.ExistingID, x.touchPatch(item))
	}
	return action, err
}

func (x *Executor) recount(ctx context.Context, vendorID string) (int, error) {
	n, err := x.store.CountActive(ctx, vendorID)
	if err != nil {
		return 0, err
	}
	if err := x.store.SetCachedCount(ctx, vendorID, n); err != nil {
		return n, err
	}
	return n, nil
}

func (x *Executor) stamp() string {
	return x.clock().UTC().Format(time.RFC3339)
}

func (x *Executor) newEntry(vendorID string, c *catalog.Candidate) catalog.NewEntry {
	metadata := c.SourceMetadata.Merge(catalog.Metadata{
		constants.MetaImportedAt: x.stamp(),
		constants.MetaSource:     x.source.String(),
		constants.MetaSourceRef:  c.SourceRef,
	})
	return catalog.NewEntry{
		VendorID:    vendorID,
		Title:       c.Title,
		Description: c.Description,
		URL:         c.RawURL,
		IdentityKey: c.IdentityKey,
		Category:    c.Category,
		Subcategory: c.Subcategory,
		ImageURL:    c.ImageURL,
		Price:       c.Price,
		Status:      catalog.StatusActive,
		Metadata:    metadata,
	}
}

func (x *Executor) updatePatch(item *reconcile.Classification) catalog.Patch {
	c := &item.Candidate
	metadata := existingMetadata(item).
		Merge(c.SourceMetadata).
		Merge(catalog.Metadata{
			constants.MetaLastSyncedAt: x.stamp(),
			constants.MetaSource:       x.source.String(),
			constants.MetaSourceRef:    c.SourceRef,
		})
	return catalog.Patch{
		Title:       &c.Title,
		Description: &c.Description,
		ImageURL:    &c.ImageURL,
		Category:    &c.Category,
		Subcategory: &c.Subcategory,
		Price:       &c.Price,
		Metadata:    metadata,
	}
}

func (x *Executor) touchPatch(item *reconcile.Classification) catalog.Patch {
	return catalog.Patch{
		Metadata: existingMetadata(item).Merge(catalog.Metadata{
			constants.MetaLastSyncedAt: x.stamp(),
		}),
	}
}

func existingMetadata(item *reconcile.Classification) catalog.Metadata {
	if item.Existing == nil {
		return catalog.Metadata{}
	}
	return item.Existing.Metadata
}
