package memory

import (
	"context"
	"sync"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// Vendors is an in-memory vendor directory.
type Vendors struct {
	mu      sync.RWMutex
	vendors map[string]catalog.Vendor
}

var _ catalog.VendorDirectory = (*Vendors)(nil)

// NewVendors creates a directory holding the given vendors.
func NewVendors(vendors ...catalog.Vendor) *Vendors {
	d := &Vendors{vendors: make(map[string]catalog.Vendor, len(vendors))}
	for _, v := range vendors {
		d.vendors[v.ID] = v
	}
	return d
}

// Get implements catalog.VendorDirectory.
func (d *Vendors) Get(_ context.Context, vendorID string) (*catalog.Vendor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	v, ok := d.vendors[vendorID]
	if !ok {
		return nil, errors.NewNotFoundError("vendor", vendorID)
	}
	return &v, nil
}

// Put adds or replaces a vendor.
func (d *Vendors) Put(v catalog.Vendor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vendors[v.ID] = v
}
