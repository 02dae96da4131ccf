// Package runs records import runs: their counters, their log and the
// running -> completed | failed lifecycle.
package runs

import (
	"slices"
	"time"

	"github.com/agentstation/catalogsync/pkg/sources"
)

// Status is the lifecycle state of an import run.
type Status string

// Run statuses. Completed and failed are terminal.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// String returns the status name.
func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Totals are the item counters of a run. Every input record lands in
// exactly one of New, Updated, Ignored or Errors.
type Totals struct {
	Found   int `json:"found"`
	New     int `json:"new"`
	Updated int `json:"updated"`
	Ignored int `json:"ignored"`
	Errors  int `json:"errors"`
}

// Add returns the field-wise sum of t and o.
func (t Totals) Add(o Totals) Totals {
	return Totals{
		Found:   t.Found + o.Found,
		New:     t.New + o.New,
		Updated: t.Updated + o.Updated,
		Ignored: t.Ignored + o.Ignored,
		Errors:  t.Errors + o.Errors,
	}
}

// Processed returns the number of records with an outcome.
func (t Totals) Processed() int {
	return t.New + t.Updated + t.Ignored + t.Errors
}

// Balanced reports whether every found record has exactly one outcome.
func (t Totals) Balanced() bool {
	return t.Found == t.Processed()
}

// ImportRun is the audit record of one import attempt.
type ImportRun struct {
	ID         string     `json:"id" yaml:"id"`
	VendorID   string     `json:"vendorId" yaml:"vendor_id"`
	Source     sources.ID `json:"source" yaml:"source"`
	Status     Status     `json:"status" yaml:"status"`
	StartedAt  time.Time  `json:"startedAt" yaml:"started_at"`
	FinishedAt *time.Time `json:"finishedAt,omitempty" yaml:"finished_at,omitempty"`
	Totals     `yaml:",inline"`
	Error      string   `json:"error,omitempty" yaml:"error,omitempty"`
	Log        []string `json:"log" yaml:"log"`
}

// Duration returns how long the run took, or has taken so far.
func (r *ImportRun) Duration(now time.Time) time.Duration {
	if r.FinishedAt != nil {
		return r.FinishedAt.Sub(r.StartedAt)
	}
	return now.Sub(r.StartedAt)
}

// Clone returns a deep copy of r.
func (r *ImportRun) Clone() *ImportRun {
	c := *r
	c.Log = slices.Clone(r.Log)
	if r.FinishedAt != nil {
		finished := *r.FinishedAt
		c.FinishedAt = &finished
	}
	return &c
}
