// Package catalog defines the records that flow through an import and the
// collaborator interfaces the engine consumes: the catalog store that owns
// entries and the vendor directory that owns vendors.
package catalog

import (
	"context"
	"maps"
	"time"
)

// Status is the lifecycle state of a catalog entry.
type Status string

// Entry statuses.
const (
	StatusActive  Status = "active"
	StatusDraft   Status = "draft"
	StatusDeleted Status = "deleted"
)

// Metadata is an open map of entry or candidate attributes.
type Metadata map[string]any

// Merge returns a copy of m with every key of other written over it.
// Keys present only in m are preserved.
func (m Metadata) Merge(other Metadata) Metadata {
	merged := make(Metadata, len(m)+len(other))
	maps.Copy(merged, m)
	maps.Copy(merged, other)
	return merged
}

// Clone returns a shallow copy of m.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Candidate is a source-normalized, not yet committed record produced by an
// adapter. Candidates are treated as immutable once produced.
type Candidate struct {
	SourceRef      string   `json:"sourceRef"`
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	RawURL         string   `json:"rawUrl"`
	IdentityKey    string   `json:"identityKey"`
	Category       string   `json:"category"`
	Subcategory    string   `json:"subcategory,omitempty"`
	ImageURL       string   `json:"imageUrl,omitempty"`
	Price          float64  `json:"price"`
	SalePrice      float64  `json:"salePrice,omitempty"`
	SourceMetadata Metadata `json:"sourceMetadata,omitempty"`
}

// Label names the candidate in logs: its identity key, or its title when
// it has none.
func (c *Candidate) Label() string {
	if c.IdentityKey != "" {
		return c.IdentityKey
	}
	return c.Title
}

// Entry is a persisted listing owned by the catalog store.
type Entry struct {
	ID          string    `json:"id"`
	VendorID    string    `json:"vendorId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	IdentityKey string    `json:"identityKey"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Price       float64   `json:"price"`
	Status      Status    `json:"status"`
	Metadata    Metadata  `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewEntry holds the fields of an entry to create.
type NewEntry struct {
	VendorID    string
	Title       string
	Description string
	URL         string
	IdentityKey string
	Category    string
	Subcategory string
	ImageURL    string
	Price       float64
	Status      Status
	Metadata    Metadata
}

// Patch is a partial update. Nil fields are left untouched; a non-nil
// Metadata replaces the stored map, so callers merge before patching.
type Patch struct {
	Title       *string
	Description *string
	Category    *string
	Subcategory *string
	ImageURL    *string
	Price       *float64
	Status      *Status
	Metadata    Metadata
}

// IsEmpty reports whether the patch changes nothing.
func (p *Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil &&
		p.Subcategory == nil && p.ImageURL == nil && p.Price == nil &&
		p.Status == nil && p.Metadata == nil
}

// Apply writes the patch onto e and stamps UpdatedAt.
func (p *Patch) Apply(e *Entry, now time.Time) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Subcategory != nil {
		e.Subcategory = *p.Subcategory
	}
	if p.ImageURL != nil {
		e.ImageURL = *p.ImageURL
	}
	if p.Price != nil {
		e.Price = *p.Price
	}
	if p.Status != nil {
		e.Status = *p.Status
	}
	if p.Metadata != nil {
		e.Metadata = p.Metadata.Clone()
	}
	e.UpdatedAt = now
}

// Finder looks up entries by identity key within a vendor.
// Implementations return an error matching errors.ErrNotFound when the
// key is unknown.
type Finder interface {
	FindByIdentityKey(ctx context.Context, vendorID, identityKey string) (*Entry, error)
}

// Store is the catalog collaborator the engine writes through.
type Store interface {
	Finder

	// Create persists a new entry. A second entry with the same vendor and
	// identity key is rejected with an error matching errors.ErrAlreadyExists.
	Create(ctx context.Context, fields NewEntry) (*Entry, error)

	// UpdateFields applies a partial update to the entry with the given id.
	UpdateFields(ctx context.Context, id string, patch Patch) (*Entry, error)

	// CountActive counts the vendor's entries in the active state.
	CountActive(ctx context.Context, vendorID string) (int, error)

	// SetCachedCount records the vendor's active entry count.
	SetCachedCount(ctx context.Context, vendorID string, count int) error
}
