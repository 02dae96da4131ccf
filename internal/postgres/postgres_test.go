package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/catalogsync/pkg/catalog"
	"github.com/agentstation/catalogsync/pkg/errors"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil, "find", "entry", "x"))

	err := mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows), "find", "entry", "http://x.test/a")
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "http://x.test/a")

	err = mapError(&pgconn.PgError{Code: "23505", ConstraintName: "catalog_entries_vendor_identity_key"}, "create", "entry", "k")
	assert.True(t, errors.IsAlreadyExists(err))
	var conflict *errors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "k", conflict.Key)

	err = mapError(&pgconn.PgError{Code: "57014"}, "update", "entry", "id-1")
	var resErr *errors.ResourceError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "update", resErr.Operation)
	assert.False(t, errors.IsAlreadyExists(err))
}

func TestPatchClauses(t *testing.T) {
	title := "Lamp"
	price := 12.5
	status := catalog.StatusDraft

	set, args, err := patchClauses(catalog.Patch{
		Title:    &title,
		Price:    &price,
		Status:   &status,
		Metadata: catalog.Metadata{"lastSyncedAt": "2025-01-01T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"title = $1",
		"price = $2",
		"status = $3",
		"metadata = $4",
		"updated_at = NOW()",
	}, set)
	require.Len(t, args, 4)
	assert.Equal(t, "Lamp", args[0])
	assert.Equal(t, 12.5, args[1])
	assert.Equal(t, "draft", args[2])
	assert.JSONEq(t, `{"lastSyncedAt":"2025-01-01T00:00:00Z"}`, string(args[3].([]byte)))
}

func TestPatchClausesEmpty(t *testing.T) {
	set, args, err := patchClauses(catalog.Patch{})
	require.NoError(t, err)
	assert.Equal(t, []string{"updated_at = NOW()"}, set)
	assert.Empty(t, args)
}

func TestMarshalMetadataRejectsUnencodable(t *testing.T) {
	_, err := marshalMetadata(catalog.Metadata{"bad": make(chan int)})
	assert.True(t, errors.IsValidationError(err))

	data, err := marshalMetadata(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
