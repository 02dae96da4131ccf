package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetadataMerge(t *testing.T) {
	existing := Metadata{"sku": "A-1", "owner": "ops"}
	incoming := Metadata{"sku": "A-2", "slug": "widget"}

	merged := existing.Merge(incoming)

	assert.Equal(t, Metadata{"sku": "A-2", "owner": "ops", "slug": "widget"}, merged)
	assert.Equal(t, "A-1", existing["sku"], "merge must not mutate the receiver")

	var none Metadata
	assert.Equal(t, Metadata{"a": 1}, none.Merge(Metadata{"a": 1}))
}

func TestPatchApply(t *testing.T) {
	title := "New title"
	price := 12.5
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &Entry{Title: "Old", Description: "keep", Price: 10, Metadata: Metadata{"a": 1}}

	patch := Patch{Title: &title, Price: &price, Metadata: Metadata{"a": 1, "b": 2}}
	assert.False(t, patch.IsEmpty())
	patch.Apply(entry, now)

	assert.Equal(t, "New title", entry.Title)
	assert.Equal(t, "keep", entry.Description)
	assert.Equal(t, 12.5, entry.Price)
	assert.Equal(t, Metadata{"a": 1, "b": 2}, entry.Metadata)
	assert.Equal(t, now, entry.UpdatedAt)

	assert.True(t, (&Patch{}).IsEmpty())
}

func TestCandidateLabel(t *testing.T) {
	assert.Equal(t, "http://example.com/a", (&Candidate{IdentityKey: "http://example.com/a", Title: "A"}).Label())
	assert.Equal(t, "A", (&Candidate{Title: "A"}).Label())
}

func TestLimits(t *testing.T) {
	tests := []struct {
		limits   Limits
		inFlight int
		delay    time.Duration
	}{
		{limits: Limits{}, inFlight: 1, delay: 0},
		{limits: Limits{Concurrency: 4, DelayMs: 250}, inFlight: 4, delay: 250 * time.Millisecond},
		{limits: Limits{Concurrency: 100, DelayMs: -5}, inFlight: 16, delay: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.inFlight, tt.limits.MaxInFlight())
		assert.Equal(t, tt.delay, tt.limits.Delay())
	}
}
