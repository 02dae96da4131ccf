package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/errors"
	"github.com/agentstation/catalogsync/pkg/sources"
)

func stepClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestTrackerLifecycle(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := Start("acme", sources.FlatFileID, stepClock(start, time.Second))

	snap := tr.Snapshot()
	assert.Equal(t, StatusRunning, snap.Status)
	assert.Equal(t, start, snap.StartedAt)
	assert.Nil(t, snap.FinishedAt)
	assert.NotEmpty(t, tr.ID())

	tr.SetFound(5)
	tr.Record(Totals{New: 3, Found: 99})
	tr.Record(Totals{Ignored: 1, Errors: 1})
	tr.Logf("create failed for %s: %s", "https://x.test/a", "boom")

	run, err := tr.Complete()
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, run.Status)
	assert.Equal(t, Totals{Found: 5, New: 3, Ignored: 1, Errors: 1}, run.Totals)
	assert.True(t, run.Balanced())
	require.NotNil(t, run.FinishedAt)
	assert.Equal(t, time.Second, run.Duration(time.Time{}))
	assert.Equal(t, []string{"create failed for https://x.test/a: boom"}, run.Log)
}

func TestTrackerFinalizesOnce(t *testing.T) {
	tr := Start("acme", sources.RemoteID, nil)

	run, err := tr.Fail(fmt.Errorf("page 2: source unavailable"))
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, run.Status)
	assert.Equal(t, "page 2: source unavailable", run.Error)
	assert.Contains(t, run.Log, "page 2: source unavailable")

	again, err := tr.Complete()
	require.ErrorIs(t, err, ErrFinalized)
	assert.Equal(t, StatusFailed, again.Status, "terminal status is kept")

	_, err = tr.Fail(errors.New("late"))
	require.ErrorIs(t, err, ErrFinalized)
}

func TestSnapshotIsIsolated(t *testing.T) {
	tr := Start("acme", sources.FlatFileID, nil)
	tr.Log("first")
	snap := tr.Snapshot()
	snap.Log[0] = "mutated"
	snap.New = 42

	fresh := tr.Snapshot()
	assert.Equal(t, []string{"first"}, fresh.Log)
	assert.Zero(t, fresh.New)
}

func TestTotals(t *testing.T) {
	tests := []struct {
		name     string
		totals   Totals
		balanced bool
	}{
		{"empty", Totals{}, true},
		{"balanced", Totals{Found: 4, New: 1, Updated: 1, Ignored: 1, Errors: 1}, true},
		{"missing outcome", Totals{Found: 4, New: 3}, false},
		{"extra outcome", Totals{Found: 1, New: 1, Errors: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.balanced, tt.totals.Balanced())
		})
	}
}

func TestImportRunJSON(t *testing.T) {
	finished := time.Date(2025, 3, 1, 12, 0, 5, 0, time.UTC)
	run := ImportRun{
		ID:         "run-1",
		VendorID:   "acme",
		Source:     sources.RemoteID,
		Status:     StatusCompleted,
		StartedAt:  time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
		Totals:     Totals{Found: 2, New: 2},
		Log:        []string{},
	}

	data, err := json.Marshal(run)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "acme", fields["vendorId"])
	assert.Equal(t, "remote", fields["source"])
	assert.Equal(t, float64(2), fields["found"], "totals are flattened into the run")
	assert.Equal(t, "2025-03-01T12:00:05Z", fields["finishedAt"])
	assert.NotContains(t, fields, "error")
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mk := func(id, vendor string, offset time.Duration) *ImportRun {
		return &ImportRun{ID: id, VendorID: vendor, Status: StatusRunning, StartedAt: base.Add(offset)}
	}

	require.NoError(t, l.Create(ctx, mk("r1", "acme", 0)))
	require.NoError(t, l.Create(ctx, mk("r2", "globex", time.Minute)))
	require.NoError(t, l.Create(ctx, mk("r3", "acme", 2*time.Minute)))
	require.NoError(t, l.Create(ctx, mk("r4", "acme", 2*time.Minute)))

	err := l.Create(ctx, mk("r1", "acme", 0))
	assert.True(t, errors.IsAlreadyExists(err))

	acme, err := l.List(ctx, "acme")
	require.NoError(t, err)
	ids := []string{}
	for _, r := range acme {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"r4", "r3", "r1"}, ids, "newest first, later insert wins ties")

	all, err := l.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := l.List(ctx, "initech")
	require.NoError(t, err)
	assert.Empty(t, none)

	r1, err := l.Get(ctx, "r1")
	require.NoError(t, err)
	r1.Status = StatusCompleted
	r1.New = 3
	require.NoError(t, l.Save(ctx, r1))

	got, err := l.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 3, got.New)

	_, err = l.Get(ctx, "missing")
	assert.True(t, errors.IsNotFound(err))
	assert.True(t, errors.IsNotFound(l.Save(ctx, mk("missing", "acme", 0))))
}
