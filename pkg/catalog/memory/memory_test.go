package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

func fixedClock() func() time.Time {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return func() time.Time { return now }
}

func TestStoreCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := New(WithClock(fixedClock()))

	created, err := s.Create(ctx, catalog.NewEntry{
		VendorID:    "acme",
		Title:       "Widget",
		IdentityKey: "http://example.com/widget",
		Metadata:    catalog.Metadata{"sku": "W-1"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, catalog.StatusActive, created.Status)

	found, err := s.FindByIdentityKey(ctx, "acme", "http://example.com/widget")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = s.FindByIdentityKey(ctx, "other-vendor", "http://example.com/widget")
	assert.True(t, errors.IsNotFound(err), "lookups are scoped by vendor")
}

func TestStoreRejectsDuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	s := New()

	fields := catalog.NewEntry{VendorID: "acme", Title: "A", IdentityKey: "http://example.com/a"}
	_, err := s.Create(ctx, fields)
	require.NoError(t, err)

	_, err = s.Create(ctx, fields)
	assert.True(t, errors.IsAlreadyExists(err))
	assert.Equal(t, 1, s.Len())
}

func TestStoreUpdateFields(t *testing.T) {
	ctx := context.Background()
	s := New(WithEntries(catalog.Entry{
		ID:          "e-1",
		VendorID:    "acme",
		Title:       "Old",
		IdentityKey: "http://example.com/a",
		Metadata:    catalog.Metadata{"keep": true},
	}))

	title := "New"
	updated, err := s.UpdateFields(ctx, "e-1", catalog.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, catalog.Metadata{"keep": true}, updated.Metadata)

	updated.Metadata["mutated"] = true
	again, err := s.FindByIdentityKey(ctx, "acme", "http://example.com/a")
	require.NoError(t, err)
	assert.NotContains(t, again.Metadata, "mutated", "callers receive copies")

	_, err = s.UpdateFields(ctx, "missing", catalog.Patch{Title: &title})
	assert.True(t, errors.IsNotFound(err))
}

func TestStoreCounts(t *testing.T) {
	ctx := context.Background()
	s := New(WithEntries(
		catalog.Entry{VendorID: "acme", IdentityKey: "a"},
		catalog.Entry{VendorID: "acme", IdentityKey: "b", Status: catalog.StatusDraft},
		catalog.Entry{VendorID: "globex", IdentityKey: "c"},
	))

	n, err := s.CountActive(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.SetCachedCount(ctx, "acme", n))
	cached, ok := s.CachedCount("acme")
	assert.True(t, ok)
	assert.Equal(t, 1, cached)

	assert.Len(t, s.List("acme"), 2)
	assert.Len(t, s.List(""), 3)
}

func TestVendors(t *testing.T) {
	d := NewVendors(catalog.Vendor{ID: "acme", Limits: catalog.Limits{Concurrency: 2}})

	v, err := d.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, v.Limits.Concurrency)

	_, err = d.Get(context.Background(), "nobody")
	assert.True(t, errors.IsNotFound(err))

	d.Put(catalog.Vendor{ID: "nobody"})
	_, err = d.Get(context.Background(), "nobody")
	assert.NoError(t, err)
}
