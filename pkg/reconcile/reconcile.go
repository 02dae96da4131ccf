// Package reconcile classifies source candidates against the catalog
// store: each candidate becomes New, Unchanged or NeedsUpdate by identity
// key lookup and a narrow field comparison.
//
// Only title, description and image URL are compared. A candidate whose
// price or category moved but whose compared fields match is Unchanged and
// is not written.
package reconcile

import (
	"context"
	"fmt"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/identity"
	"github.com/agentstation/catalogsync/pkg/logging"
)

// Classify builds the plan for candidates of vendorID.
//
// Candidates sharing an identity key are collapsed first: the later one
// takes the earlier one's position and the earlier one is reported as
// superseded. Each remaining key is then looked up once. Lookup failures
// are attached to their item; only a done context fails the whole call.
func Classify(ctx context.Context, finder catalog.Finder, vendorID string, candidates []catalog.Candidate) (*Plan, error) {
	plan := dedupe(candidates)
	logger := logging.Ctx(ctx)

	for i := range plan.Items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: classification stopped: %v", errors.ErrCanceled, err)
		}

		item := &plan.Items[i]
		existing, err := finder.FindByIdentityKey(ctx, vendorID, item.Candidate.IdentityKey)
		switch {
		case errors.IsNotFound(err):
			item.Verdict = VerdictNew
		case err != nil:
			item.Err = err
			logger.Warn().
				Err(err).
				Str("identity_key", item.Candidate.IdentityKey).
				Msg("Lookup failed")
		default:
			item.Existing = existing
			item.ExistingID = existing.ID
			item.Changes = Diff(existing, &item.Candidate)
			if len(item.Changes) > 0 {
				item.Verdict = VerdictNeedsUpdate
			} else {
				item.Verdict = VerdictUnchanged
			}
		}
	}

	s := plan.Summary()
	logger.Debug().
		Int("new", s.New).
		Int("unchanged", s.Unchanged).
		Int("needs_update", s.NeedsUpdate).
		Int("failed", s.Failed).
		Int("superseded", s.Superseded).
		Msg("Classified batch")

	return plan, nil
}

// Diff returns the compared fields of c that differ from e.
func Diff(e *catalog.Entry, c *catalog.Candidate) []FieldChange {
	var changes []FieldChange
	if e.Title != c.Title {
		changes = append(changes, FieldChange{Field: "title", OldValue: e.Title, NewValue: c.Title})
	}
	if e.Description != c.Description {
		changes = append(changes, FieldChange{Field: "description", OldValue: e.Description, NewValue: c.Description})
	}
	if e.ImageURL != c.ImageURL {
		changes = append(changes, FieldChange{Field: "imageUrl", OldValue: e.ImageURL, NewValue: c.ImageURL})
	}
	return changes
}

// NeedsUpdate reports whether c differs from e in any compared field.
func NeedsUpdate(e *catalog.Entry, c *catalog.Candidate) bool {
	return len(Diff(e, c)) > 0
}

func dedupe(candidates []catalog.Candidate) *Plan {
	plan := &Plan{Items: make([]Classification, 0, len(candidates))}
	position := make(map[string]int, len(candidates))

	for _, c := range candidates {
		if c.IdentityKey == "" {
			c.IdentityKey = identity.Normalize(c.RawURL)
		}
		if c.IdentityKey == "" {
			plan.Unkeyed = append(plan.Unkeyed, c)
			continue
		}
		if pos, seen := position[c.IdentityKey]; seen {
			plan.Superseded = append(plan.Superseded, plan.Items[pos].Candidate)
			plan.Items[pos].Candidate = c
			continue
		}
		position[c.IdentityKey] = len(plan.Items)
		plan.Items = append(plan.Items, Classification{Candidate: c})
	}
	return plan
}
