// Package memory provides in-process implementations of the catalog store
// and vendor directory. They back the CLI when no database is configured
// and every engine test.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

// Option configures a Store.
type Option func(*config)

type config struct {
	clock   func() time.Time
	entries []catalog.Entry
}

// WithClock overrides the time source used for timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithEntries preloads entries. Entries without an ID get one.
func WithEntries(entries ...catalog.Entry) Option {
	return func(c *config) {
		c.entries = append(c.entries, entries...)
	}
}

// Store is a thread-safe in-memory catalog store.
type Store struct {
	mu     sync.RWMutex
	clock  func() time.Time
	byID   map[string]*catalog.Entry
	byKey  map[string]string // vendorID + "\x00" + identityKey -> entry id
	counts map[string]int
}

var _ catalog.Store = (*Store)(nil)

// New creates an empty store.
func New(opts ...Option) *Store {
	cfg := &config{clock: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Store{
		clock:  cfg.clock,
		byID:   make(map[string]*catalog.Entry),
		byKey:  make(map[string]string),
		counts: make(map[string]int),
	}
	for i := range cfg.entries {
		e := cfg.entries[i]
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.Status == "" {
			e.Status = catalog.StatusActive
		}
		e.Metadata = e.Metadata.Clone()
		s.byID[e.ID] = &e
		s.byKey[indexKey(e.VendorID, e.IdentityKey)] = e.ID
	}
	return s
}

func indexKey(vendorID, identityKey string) string {
	return vendorID + "\x00" + identityKey
}

// FindByIdentityKey implements catalog.Finder.
func (s *Store) FindByIdentityKey(_ context.Context, vendorID, identityKey string) (*catalog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[indexKey(vendorID, identityKey)]
	if !ok {
		return nil, errors.NewNotFoundError("entry", identityKey)
	}
	return cloneEntry(s.byID[id]), nil
}

// Create implements catalog.Store.
func (s *Store) Create(_ context.Context, fields catalog.NewEntry) (*catalog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := indexKey(fields.VendorID, fields.IdentityKey)
	if _, exists := s.byKey[key]; exists {
		return nil, errors.NewConflictError("entry", fields.IdentityKey, nil)
	}

	status := fields.Status
	if status == "" {
		status = catalog.StatusActive
	}
	now := s.clock()
	entry := &catalog.Entry{
		ID:          uuid.NewString(),
		VendorID:    fields.VendorID,
		Title:       fields.Title,
		Description: fields.Description,
		URL:         fields.URL,
		IdentityKey: fields.IdentityKey,
		Category:    fields.Category,
		Subcategory: fields.Subcategory,
		ImageURL:    fields.ImageURL,
		Price:       fields.Price,
		Status:      status,
		Metadata:    fields.Metadata.Clone(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byID[entry.ID] = entry
	s.byKey[key] = entry.ID
	return cloneEntry(entry), nil
}

// UpdateFields implements catalog.Store.
func (s *Store) UpdateFields(_ context.Context, id string, patch catalog.Patch) (*catalog.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.byID[id]
	if !ok {
		return nil, errors.NewNotFoundError("entry", id)
	}
	patch.Apply(entry, s.clock())
	return cloneEntry(entry), nil
}

// CountActive implements catalog.Store.
func (s *Store) CountActive(_ context.Context, vendorID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.byID {
		if e.VendorID == vendorID && e.Status == catalog.StatusActive {
			n++
		}
	}
	return n, nil
}

// SetCachedCount implements catalog.Store.
func (s *Store) SetCachedCount(_ context.Context, vendorID string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[vendorID] = count
	return nil
}

// CachedCount returns the last count recorded for the vendor.
func (s *Store) CachedCount(vendorID string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.counts[vendorID]
	return n, ok
}

// List returns copies of the vendor's entries ordered by creation time.
func (s *Store) List(vendorID string) []catalog.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]catalog.Entry, 0, len(s.byID))
	for _, e := range s.byID {
		if vendorID == "" || e.VendorID == vendorID {
			entries = append(entries, *cloneEntry(e))
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].IdentityKey < entries[j].IdentityKey
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return entries
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func cloneEntry(e *catalog.Entry) *catalog.Entry {
	c := *e
	c.Metadata = e.Metadata.Clone()
	return &c
}
