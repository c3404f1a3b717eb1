package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-assets/internal/codec"
	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/infra/database/memory"
	"github.com/EgorLis/my-assets/internal/infra/storage/fs"
)

// flakyStorage: PayloadStorage поверх диска с управляемыми отказами.
type flakyStorage struct {
	domain.PayloadStorage
	failDelete error
	failPut    error
	lastPut    domain.BlobID
}

func (f *flakyStorage) Put(ctx context.Context, id domain.BlobID, r io.Reader, size int64) error {
	if f.failPut != nil {
		return f.failPut
	}
	f.lastPut = id
	return f.PayloadStorage.Put(ctx, id, r, size)
}

func (f *flakyStorage) Delete(ctx context.Context, id domain.BlobID) error {
	if f.failDelete != nil {
		return f.failDelete
	}
	return f.PayloadStorage.Delete(ctx, id)
}

// failingRepo: каталог, который отказывает на выбранных операциях.
type failingRepo struct {
	domain.AssetsRepo
	failCreate error
	failDelete error
}

func (r *failingRepo) CreateAsset(ctx context.Context, a domain.Asset) (domain.Asset, error) {
	if r.failCreate != nil {
		return domain.Asset{}, r.failCreate
	}
	return r.AssetsRepo.CreateAsset(ctx, a)
}

func (r *failingRepo) DeleteAsset(ctx context.Context, id domain.BlobID) error {
	if r.failDelete != nil {
		return r.failDelete
	}
	return r.AssetsRepo.DeleteAsset(ctx, id)
}

type mapCache struct {
	mu sync.Mutex
	m  map[string][]byte
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m[key], nil
}

func (c *mapCache) Set(_ context.Context, key string, val []byte, _ int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = val
	return nil
}

func (c *mapCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.m, k)
	}
	return nil
}

func (c *mapCache) Ping(context.Context) error { return nil }
func (c *mapCache) Close()                     {}

type fixture struct {
	store   *Store
	repo    *failingRepo
	storage *flakyStorage
	cache   *mapCache
	codec   *codec.Codec
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	disk, err := fs.New(t.TempDir(), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	f := &fixture{
		repo:    &failingRepo{AssetsRepo: memory.New()},
		storage: &flakyStorage{PayloadStorage: disk},
		cache:   &mapCache{m: map[string][]byte{}},
		codec:   codec.New(codec.Auto),
	}
	f.store = New(Deps{
		Repo:     f.repo,
		Payloads: f.storage,
		Codec:    f.codec,
		Cache:    f.cache,
		CacheTTL: 60,
	})
	return f
}

func (f *fixture) frame(t *testing.T, raw []byte, mime string) []byte {
	t.Helper()
	out, err := f.codec.Compress(raw, mime)
	require.NoError(t, err)
	return out
}

func TestCreateGetRoundtrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	raw := bytes.Repeat([]byte("sprite sheet row\n"), 4096)

	a, err := f.store.Create(ctx, owner, "../sheets/hero.txt", "text/plain", f.frame(t, raw, "text/plain"))
	require.NoError(t, err)
	assert.Equal(t, "hero.txt", a.FileName)
	assert.Equal(t, domain.AssetStaged, a.State)
	assert.Equal(t, int64(len(raw)), a.SizeBytes)
	assert.Less(t, a.StoredBytes, a.SizeBytes)

	got, body, err := f.store.Get(ctx, owner, a.BlobID)
	require.NoError(t, err)
	assert.Equal(t, a.BlobID, got.BlobID)
	assert.Equal(t, raw, body)

	_, _, err = f.store.Get(ctx, uuid.New(), a.BlobID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "чужой ассет не виден")
}

func TestCreateRejectsRawBytes(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Create(context.Background(), uuid.New(), "a.bin", "", []byte("not a frame at all, definitely"))
	assert.ErrorIs(t, err, domain.ErrCodec)
}

func TestCreateCompensatesOnCatalogFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.failCreate = errors.New("db down")
	ctx := context.Background()

	_, err := f.store.Create(ctx, uuid.New(), "a.txt", "text/plain", f.frame(t, []byte("hello"), "text/plain"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnexpected)

	require.NotEqual(t, uuid.Nil, f.storage.lastPut)
	_, err = f.storage.Get(ctx, f.storage.lastPut)
	assert.ErrorIs(t, err, domain.ErrNotFound, "payload сирота удалён")
}

func TestGetDetectsCorruptPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	a, err := f.store.Create(ctx, owner, "a.txt", "text/plain", f.frame(t, []byte("hello world"), "text/plain"))
	require.NoError(t, err)

	frame := f.frame(t, []byte("hello world"), "text/plain")
	frame[len(frame)-1] ^= 0xff
	require.NoError(t, f.storage.Put(ctx, a.BlobID, bytes.NewReader(frame), int64(len(frame))))

	_, _, err = f.store.Get(ctx, owner, a.BlobID)
	assert.ErrorIs(t, err, domain.ErrCodec)
}

func TestUpdateReplacesPayloadAndInvalidatesCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	a, err := f.store.Create(ctx, owner, "a.txt", "text/plain", f.frame(t, []byte("v1"), "text/plain"))
	require.NoError(t, err)

	_, err = f.store.Meta(ctx, owner, a.BlobID)
	require.NoError(t, err)
	assert.Contains(t, f.cache.m, domain.CacheKeyAssetMeta(a.BlobID))

	upd, err := f.store.Update(ctx, a.BlobID, f.frame(t, []byte("version two"), "text/plain"), "text/markdown")
	require.NoError(t, err)
	assert.Equal(t, int64(len("version two")), upd.SizeBytes)
	assert.Equal(t, "text/markdown", upd.MIME)
	assert.NotContains(t, f.cache.m, domain.CacheKeyAssetMeta(a.BlobID))

	_, body, err := f.store.Get(ctx, owner, a.BlobID)
	require.NoError(t, err)
	assert.Equal(t, []byte("version two"), body)

	_, err = f.store.Update(ctx, uuid.New(), f.frame(t, []byte("x"), ""), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("both removed", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.store.Create(ctx, uuid.New(), "a.txt", "", f.frame(t, []byte("x"), ""))
		require.NoError(t, err)
		require.NoError(t, f.store.Delete(ctx, a.BlobID))
		assert.ErrorIs(t, f.store.Delete(ctx, a.BlobID), domain.ErrNotFound)
	})

	t.Run("payload delete fails", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.store.Create(ctx, uuid.New(), "a.txt", "", f.frame(t, []byte("x"), ""))
		require.NoError(t, err)
		f.storage.failDelete = errors.New("s3 timeout")

		err = f.store.Delete(ctx, a.BlobID)
		var pde *domain.PartialDeleteError
		require.ErrorAs(t, err, &pde)
		assert.False(t, pde.PayloadRemoved)
		assert.True(t, pde.MetaRemoved)
		assert.ErrorIs(t, err, domain.ErrPartialDelete)
	})

	t.Run("catalog delete fails", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.store.Create(ctx, uuid.New(), "a.txt", "", f.frame(t, []byte("x"), ""))
		require.NoError(t, err)
		f.repo.failDelete = errors.New("db down")

		err = f.store.Delete(ctx, a.BlobID)
		var pde *domain.PartialDeleteError
		require.ErrorAs(t, err, &pde)
		assert.True(t, pde.PayloadRemoved)
		assert.False(t, pde.MetaRemoved)
	})

	t.Run("both fail", func(t *testing.T) {
		f := newFixture(t)
		a, err := f.store.Create(ctx, uuid.New(), "a.txt", "", f.frame(t, []byte("x"), ""))
		require.NoError(t, err)
		f.storage.failDelete = errors.New("s3 timeout")
		f.repo.failDelete = errors.New("db down")

		err = f.store.Delete(ctx, a.BlobID)
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrPartialDelete)
		assert.ErrorIs(t, err, domain.ErrUnexpected)
	})
}

func TestAssociateAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	a, err := f.store.Create(ctx, owner, "a.txt", "", f.frame(t, []byte("a"), ""))
	require.NoError(t, err)
	_, err = f.store.Create(ctx, owner, "b.txt", "", f.frame(t, []byte("b"), ""))
	require.NoError(t, err)

	project := uuid.New()
	got, err := f.store.Associate(ctx, a.BlobID, domain.Association{ProjectID: &project, Tags: []string{"ui"}})
	require.NoError(t, err)
	assert.Equal(t, domain.AssetAssociated, got.State)

	_, err = f.store.Associate(ctx, a.BlobID, domain.Association{Tags: []string{""}})
	assert.ErrorIs(t, err, domain.ErrBadParams)

	all, err := f.store.List(ctx, owner, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	palette, err := f.store.List(ctx, owner, domain.ListFilter{Palette: true})
	require.NoError(t, err)
	require.Len(t, palette, 1)
	assert.Equal(t, "b.txt", palette[0].FileName)

	_, err = f.store.List(ctx, owner, domain.ListFilter{Page: 0, Limit: 5})
	assert.ErrorIs(t, err, domain.ErrBadParams)
}

func TestConcurrentReadsDuringUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	v1 := bytes.Repeat([]byte{'a'}, 64<<10)
	v2 := bytes.Repeat([]byte{'b'}, 96<<10)
	a, err := f.store.Create(ctx, owner, "a.bin", "", f.frame(t, v1, ""))
	require.NoError(t, err)
	frame2 := f.frame(t, v2, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_, body, err := f.store.Get(ctx, owner, a.BlobID)
				if !assert.NoError(t, err) {
					return
				}
				assert.True(t, bytes.Equal(body, v1) || bytes.Equal(body, v2))
			}
		}()
	}
	_, err = f.store.Update(ctx, a.BlobID, frame2, "")
	require.NoError(t, err)
	wg.Wait()
}
