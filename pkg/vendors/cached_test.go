package vendors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

type countingDirectory struct {
	vendors map[string]catalog.Vendor
	calls   int
}

func (d *countingDirectory) Get(_ context.Context, vendorID string) (*catalog.Vendor, error) {
	d.calls++
	v, ok := d.vendors[vendorID]
	if !ok {
		return nil, errors.NewNotFoundError("vendor", vendorID)
	}
	return &v, nil
}

func TestCachedServesRepeatLookupsFromMemory(t *testing.T) {
	inner := &countingDirectory{vendors: map[string]catalog.Vendor{"acme": {ID: "acme", Name: "Acme"}}}
	cached := NewCached(inner, time.Minute)
	ctx := context.Background()

	for range 3 {
		v, err := cached.Get(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, "Acme", v.Name)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cached.Len())

	v, err := cached.Get(ctx, "acme")
	require.NoError(t, err)
	v.Name = "mutated"
	again, err := cached.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name, "callers get their own copy")

	cached.Forget("acme")
	_, err = cached.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedDoesNotRememberMisses(t *testing.T) {
	inner := &countingDirectory{vendors: map[string]catalog.Vendor{}}
	cached := NewCached(inner, 0)
	ctx := context.Background()

	_, err := cached.Get(ctx, "initech")
	assert.True(t, errors.IsNotFound(err))

	inner.vendors["initech"] = catalog.Vendor{ID: "initech"}
	v, err := cached.Get(ctx, "initech")
	require.NoError(t, err)
	assert.Equal(t, "initech", v.ID)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedExpires(t *testing.T) {
	inner := &countingDirectory{vendors: map[string]catalog.Vendor{"acme": {ID: "acme"}}}
	cached := NewCached(inner, 20*time.Millisecond)
	ctx := context.Background()

	_, err := cached.Get(ctx, "acme")
	require.NoError(t, err)
	time.Sleep(40 * time.Millisecond)
	_, err = cached.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
