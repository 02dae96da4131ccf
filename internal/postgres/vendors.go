package postgres

import (
	"context"

	"github.com/agentstation/catalogsync/pkg/catalog"
)

// VendorDirectory is a catalog.VendorDirectory backed by the vendors table.
type VendorDirectory struct {
	q querier
}

var _ catalog.VendorDirectory = (*VendorDirectory)(nil)

// Get implements catalog.VendorDirectory.
func (d *VendorDirectory) Get(ctx context.Context, vendorID string) (*catalog.Vendor, error) {
	var v catalog.Vendor
	err := d.q.QueryRow(ctx,
		`SELECT id, name, concurrency, delay_ms FROM vendors WHERE id = $1`, vendorID,
	).Scan(&v.ID, &v.Name, &v.Limits.Concurrency, &v.Limits.DelayMs)
	if err != nil {
		return nil, mapError(err, "find", "vendor", vendorID)
	}
	return &v, nil
}

// Upsert creates the vendor or replaces its name and limits.
func (d *VendorDirectory) Upsert(ctx context.Context, v catalog.Vendor) error {
	_, err := d.q.Exec(ctx,
		`INSERT INTO vendors (id, name, concurrency, delay_ms) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = $2, concurrency = $3, delay_ms = $4`,
		v.ID, v.Name, v.Limits.Concurrency, v.Limits.DelayMs,
	)
	return mapError(err, "upsert", "vendor", v.ID)
}

// List returns every vendor ordered by id.
func (d *VendorDirectory) List(ctx context.Context) ([]catalog.Vendor, error) {
	rows, err := d.q.Query(ctx, `SELECT id, name, concurrency, delay_ms FROM vendors ORDER BY id`)
	if err != nil {
		return nil, mapError(err, "list", "vendor", "")
	}
	defer rows.Close()

	var out []catalog.Vendor
	for rows.Next() {
		var v catalog.Vendor
		if err := rows.Scan(&v.ID, &v.Name, &v.Limits.Concurrency, &v.Limits.DelayMs); err != nil {
			return nil, mapError(err, "list", "vendor", "")
		}
		out = append(out, v)
	}
	return out, mapError(rows.Err(), "list", "vendor", "")
}
