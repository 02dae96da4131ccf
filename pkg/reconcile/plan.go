package reconcile

import (
	"fmt"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

// Verdict is the classification of one candidate against the store.
type Verdict string

const (
	// VerdictNew means no entry with the candidate's identity key exists.
	VerdictNew Verdict = "new"
	// VerdictUnchanged means an entry exists and its compared fields match.
	VerdictUnchanged Verdict = "unchanged"
	// VerdictNeedsUpdate means an entry exists and a compared field differs.
	VerdictNeedsUpdate Verdict = "needs_update"
)

// String returns the verdict name.
func (v Verdict) String() string {
	return string(v)
}

// FieldChange is one compared field that differs from the stored entry.
type FieldChange struct {
	Field    string // "title", "description", "imageUrl"
	OldValue string
	NewValue string
}

// String formats the change for logs.
func (c FieldChange) String() string {
	return fmt.Sprintf("%s: %q -> %q", c.Field, c.OldValue, c.NewValue)
}

// Classification pairs a candidate with its verdict. When Err is set the
// lookup failed and Verdict carries no meaning.
type Classification struct {
	Candidate  catalog.Candidate
	Verdict    Verdict
	ExistingID string
	Existing   *catalog.Entry
	Changes    []FieldChange
	Err        error
}

// Failed reports whether the lookup for this item failed.
func (c *Classification) Failed() bool {
	return c.Err != nil
}

// Plan is the ordered result of classifying one batch.
type Plan struct {
	// Items holds one classification per distinct identity key, in the
	// position of the key's first occurrence.
	Items []Classification

	// Superseded holds candidates replaced by a later candidate with the
	// same identity key.
	Superseded []catalog.Candidate

	// Unkeyed holds candidates whose identity key could not be derived.
	Unkeyed []catalog.Candidate
}

// Summary counts plan items by outcome.
type Summary struct {
	New         int
	Unchanged   int
	NeedsUpdate int
	Failed      int
	Superseded  int
	Unkeyed     int
}

// Summary returns the plan's counts.
func (p *Plan) Summary() Summary {
	s := Summary{Superseded: len(p.Superseded), Unkeyed: len(p.Unkeyed)}
	for i := range p.Items {
		item := &p.Items[i]
		switch {
		case item.Failed():
			s.Failed++
		case item.Verdict == VerdictNew:
			s.New++
		case item.Verdict == VerdictNeedsUpdate:
			s.NeedsUpdate++
		default:
			s.Unchanged++
		}
	}
	return s
}

// Dropped returns how many input candidates never reach the executor.
func (p *Plan) Dropped() int {
	return len(p.Superseded) + len(p.Unkeyed)
}
