package postgres

import (
	"io"
	"log"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-assets/internal/domain"
)

func TestOwnerListQuery(t *testing.T) {
	r := &PGRepo{schema: "media", logger: log.New(io.Discard, "", 0)}
	owner := uuid.New()

	sqlStr, args, err := r.ownerListQuery(owner, domain.ListFilter{Palette: true, Page: 3, Limit: 20}).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sqlStr, "FROM media.assets")
	assert.Contains(t, sqlStr, "owner_id = $1")
	assert.Contains(t, sqlStr, "project_id IS NULL")
	assert.Contains(t, sqlStr, "ORDER BY created_at ASC, blob_id ASC")
	assert.Contains(t, sqlStr, "LIMIT 20 OFFSET 40")
	assert.Equal(t, []any{owner}, args)

	sqlStr, _, err = r.ownerListQuery(owner, domain.ListFilter{}).ToSql()
	require.NoError(t, err)
	assert.NotContains(t, sqlStr, "LIMIT")
	assert.NotContains(t, sqlStr, "project_id IS NULL")
}

func TestTableDefaultsToUnqualified(t *testing.T) {
	assert.Equal(t, "assets", (&PGRepo{}).table())
	assert.Equal(t, "public.assets", (&PGRepo{schema: "public"}).table())
}

func TestReturningListsAllColumns(t *testing.T) {
	assert.Equal(t, "RETURNING blob_id, owner_id, file_name, mime_type, project_id, state, tags, metadata, "+
		"size_bytes, stored_bytes, version, created_at, updated_at", returning())
}
