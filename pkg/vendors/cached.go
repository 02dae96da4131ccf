package vendors

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

// DefaultCacheTTL is how long a resolved vendor is served from memory.
const DefaultCacheTTL = time.Minute

// Cached remembers successful lookups of another directory for a TTL.
// Unknown vendors are not cached, so a vendor created after a failed
// import is found on the next attempt.
type Cached struct {
	inner catalog.VendorDirectory
	store *gocache.Cache
}

var _ catalog.VendorDirectory = (*Cached)(nil)

// NewCached wraps inner. A ttl of zero or less uses DefaultCacheTTL.
func NewCached(inner catalog.VendorDirectory, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		inner: inner,
		store: gocache.New(ttl, 2*ttl),
	}
}

// Get returns the vendor from memory or asks the wrapped directory.
func (c *Cached) Get(ctx context.Context, vendorID string) (*catalog.Vendor, error) {
	if v, ok := c.store.Get(vendorID); ok {
		vendor := v.(catalog.Vendor)
		return &vendor, nil
	}

	vendor, err := c.inner.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	c.store.SetDefault(vendorID, *vendor)
	return vendor, nil
}

// Forget drops vendorID so the next Get reads through.
func (c *Cached) Forget(vendorID string) {
	c.store.Delete(vendorID)
}

// Len returns the number of cached vendors.
func (c *Cached) Len() int {
	return c.store.ItemCount()
}
