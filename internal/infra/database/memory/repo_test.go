package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-assets/internal/domain"
)

func TestPaletteAndPaging(t *testing.T) {
	r := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	r.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Second) }

	ctx := context.Background()
	owner := uuid.New()
	var ids []domain.BlobID
	for i := 0; i < 5; i++ {
		a, err := r.CreateAsset(ctx, domain.Asset{BlobID: uuid.New(), OwnerID: owner, FileName: "f"})
		require.NoError(t, err)
		ids = append(ids, a.BlobID)
	}
	_, err := r.CreateAsset(ctx, domain.Asset{BlobID: uuid.New(), OwnerID: uuid.New()})
	require.NoError(t, err)

	project := uuid.New()
	a, err := r.Associate(ctx, ids[1], domain.Association{ProjectID: &project, Tags: []string{"hero"}})
	require.NoError(t, err)
	assert.Equal(t, domain.AssetAssociated, a.State)
	assert.Equal(t, int64(2), a.Version)

	all, err := r.AssetsByOwner(ctx, owner, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	palette, err := r.AssetsByOwner(ctx, owner, domain.ListFilter{Palette: true})
	require.NoError(t, err)
	assert.Len(t, palette, 4)

	page2, err := r.AssetsByOwner(ctx, owner, domain.ListFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, ids[2], page2[0].BlobID)

	page9, err := r.AssetsByOwner(ctx, owner, domain.ListFilter{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page9)
}

func TestNotFound(t *testing.T) {
	r := New()
	ctx := context.Background()
	id := uuid.New()
	_, err := r.AssetByID(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.UpdatePayloadMeta(ctx, id, "", 1, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, r.DeleteAsset(ctx, id), domain.ErrNotFound)
}
