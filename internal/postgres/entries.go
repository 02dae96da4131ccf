package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

const entryColumns = `id::text, vendor_id, title, description, url, identity_key, category,
	subcategory, image_url, price::float8, status, metadata, created_at, updated_at`

// CatalogStore is a catalog.Store backed by the catalog_entries table.
type CatalogStore struct {
	q querier
}

var _ catalog.Store = (*CatalogStore)(nil)

// FindByIdentityKey implements catalog.Store.
func (s *CatalogStore) FindByIdentityKey(ctx context.Context, vendorID, identityKey string) (*catalog.Entry, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM catalog_entries WHERE vendor_id = $1 AND identity_key = $2`,
		vendorID, identityKey,
	)
	e, err := scanEntry(row)
	if err != nil {
		return nil, mapError(err, "find", "entry", identityKey)
	}
	return e, nil
}

// Create implements catalog.Store.
func (s *CatalogStore) Create(ctx context.Context, fields catalog.NewEntry) (*catalog.Entry, error) {
	metadata, err := marshalMetadata(fields.Metadata)
	if err != nil {
		return nil, err
	}
	status := fields.Status
	if status == "" {
		status = catalog.StatusActive
	}

	row := s.q.QueryRow(ctx,
		`INSERT INTO catalog_entries
			(id, vendor_id, title, description, url, identity_key, category, subcategory, image_url, price, status, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING `+entryColumns,
		uuid.New(), fields.VendorID, fields.Title, fields.Description, fields.URL, fields.IdentityKey,
		fields.Category, fields.Subcategory, fields.ImageURL, fields.Price, string(status), metadata,
	)
	e, err := scanEntry(row)
	if err != nil {
		return nil, mapError(err, "create", "entry", fields.IdentityKey)
	}
	return e, nil
}

// UpdateFields implements catalog.Store.
func (s *CatalogStore) UpdateFields(ctx context.Context, id string, patch catalog.Patch) (*catalog.Entry, error) {
	set, args, err := patchClauses(patch)
	if err != nil {
		return nil, err
	}
	args = append(args, id)

	row := s.q.QueryRow(ctx,
		fmt.Sprintf(`UPDATE catalog_entries SET %s WHERE id = $%d RETURNING %s`,
			strings.Join(set, ", "), len(args), entryColumns),
		args...,
	)
	e, err := scanEntry(row)
	if err != nil {
		return nil, mapError(err, "update", "entry", id)
	}
	return e, nil
}

// CountActive implements catalog.Store.
func (s *CatalogStore) CountActive(ctx context.Context, vendorID string) (int, error) {
	var n int
	err := s.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM catalog_entries WHERE vendor_id = $1 AND status = $2`,
		vendorID, string(catalog.StatusActive),
	).Scan(&n)
	if err != nil {
		return 0, mapError(err, "count", "entry", vendorID)
	}
	return n, nil
}

// SetCachedCount implements catalog.Store by writing the vendor row.
func (s *CatalogStore) SetCachedCount(ctx context.Context, vendorID string, count int) error {
	tag, err := s.q.Exec(ctx,
		`UPDATE vendors SET active_count = $2, count_updated_at = NOW() WHERE id = $1`,
		vendorID, count,
	)
	if err != nil {
		return mapError(err, "update", "vendor", vendorID)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("vendor", vendorID)
	}
	return nil
}

// CachedCount reads the vendor's stored active count.
func (s *CatalogStore) CachedCount(ctx context.Context, vendorID string) (int, error) {
	var n int
	err := s.q.QueryRow(ctx, `SELECT active_count FROM vendors WHERE id = $1`, vendorID).Scan(&n)
	if err != nil {
		return 0, mapError(err, "find", "vendor", vendorID)
	}
	return n, nil
}

// patchClauses builds the SET list for a patch. updated_at is always set.
func patchClauses(p catalog.Patch) ([]string, []any, error) {
	var (
		set  []string
		args []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Category != nil {
		add("category", *p.Category)
	}
	if p.Subcategory != nil {
		add("subcategory", *p.Subcategory)
	}
	if p.ImageURL != nil {
		add("image_url", *p.ImageURL)
	}
	if p.Price != nil {
		add("price", *p.Price)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.Metadata != nil {
		metadata, err := marshalMetadata(p.Metadata)
		if err != nil {
			return nil, nil, err
		}
		add("metadata", metadata)
	}
	set = append(set, "updated_at = NOW()")
	return set, args, nil
}

func marshalMetadata(m catalog.Metadata) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.NewValidationError("metadata", nil, err.Error())
	}
	return data, nil
}

func scanEntry(row pgx.Row) (*catalog.Entry, error) {
	var (
		e        catalog.Entry
		status   string
		metadata []byte
	)
	err := row.Scan(&e.ID, &e.VendorID, &e.Title, &e.Description, &e.URL, &e.IdentityKey, &e.Category,
		&e.Subcategory, &e.ImageURL, &e.Price, &status, &metadata, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Status = catalog.Status(status)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
			return nil, errors.WrapParse("json", "catalog_entries.metadata", err)
		}
	}
	return &e, nil
}
