package merge

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/ingest/chunkstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	chunks *chunkstore.Store
	engine *Engine
	owner  domain.OwnerID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cs, err := chunkstore.New(filepath.Join(t.TempDir(), "chunks"), 0, nil)
	require.NoError(t, err)
	e, err := New(cs, filepath.Join(t.TempDir(), "merged"), nil)
	require.NoError(t, err)
	return fixture{chunks: cs, engine: e, owner: uuid.New()}
}

func (f fixture) upload(t *testing.T, name string, parts [][]byte, order []int) {
	t.Helper()
	for _, i := range order {
		_, err := f.chunks.Put(context.Background(), f.owner, name, i, len(parts), bytes.NewReader(parts[i]))
		require.NoError(t, err)
	}
}

func makeParts(n int, seed int64) [][]byte {
	r := rand.New(rand.NewSource(seed))
	parts := make([][]byte, n)
	for i := range parts {
		parts[i] = make([]byte, 1+r.Intn(4096))
		r.Read(parts[i])
	}
	return parts
}

func TestMergeOrderIndependent(t *testing.T) {
	parts := [][]byte{[]byte("AAA"), []byte("BB"), []byte("C")}

	a := newFixture(t)
	a.upload(t, "x.bin", parts, []int{1, 0, 2})
	artA, err := a.engine.Merge(context.Background(), a.owner, "x.bin", 3)
	require.NoError(t, err)
	defer artA.Remove()

	b := newFixture(t)
	b.upload(t, "x.bin", parts, []int{0, 1, 2})
	artB, err := b.engine.Merge(context.Background(), b.owner, "x.bin", 3)
	require.NoError(t, err)
	defer artB.Remove()

	gotA, err := artA.ReadAll()
	require.NoError(t, err)
	gotB, err := artB.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []byte("AAABBC"), gotA)
	assert.Equal(t, gotA, gotB)
	assert.Equal(t, int64(6), artA.Size)
}

func TestMergeRandomInterleavings(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		n := 1 + int(seed%9)
		parts := makeParts(n, seed)
		want := bytes.Join(parts, nil)

		f := newFixture(t)
		f.upload(t, "r.bin", parts, rand.New(rand.NewSource(seed)).Perm(n))
		art, err := f.engine.Merge(context.Background(), f.owner, "r.bin", n)
		require.NoError(t, err)
		got, err := art.ReadAll()
		require.NoError(t, err)
		assert.True(t, bytes.Equal(want, got), "seed %d", seed)
		require.NoError(t, art.Remove())
		_, err = os.Stat(art.Path)
		assert.True(t, os.IsNotExist(err))
	}
}

func TestMergeDeletesChunksAfterSuccess(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "d.bin", makeParts(4, 7), []int{3, 2, 1, 0})

	art, err := f.engine.Merge(context.Background(), f.owner, "d.bin", 4)
	require.NoError(t, err)
	defer art.Remove()
	assert.Equal(t, []int{0, 1, 2, 3}, f.chunks.Missing(f.owner, "d.bin", 4))
}

func TestMergeMissingChunkKeepsChunks(t *testing.T) {
	f := newFixture(t)
	parts := makeParts(4, 3)
	f.upload(t, "m.bin", parts, []int{0, 1, 3})

	art, err := f.engine.Merge(context.Background(), f.owner, "m.bin", 4)
	assert.Nil(t, art)
	require.ErrorIs(t, err, domain.ErrMissingChunk)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	var mce *domain.MissingChunkError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, 2, mce.Index)
	assert.Equal(t, []int{2}, mce.Missing)

	// ничего не потеряно: докачиваем только пропущенный индекс и повторяем
	assert.Equal(t, []int{2}, f.chunks.Missing(f.owner, "m.bin", 4))
	f.upload(t, "m.bin", parts, []int{2})
	art, err = f.engine.Merge(context.Background(), f.owner, "m.bin", 4)
	require.NoError(t, err)
	defer art.Remove()
	got, err := art.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, bytes.Join(parts, nil), got)

	tmp, err := os.ReadDir(f.engine.tmp)
	require.NoError(t, err)
	assert.Empty(t, tmp, "failed merge must not leave temp artifacts")
}

// чанк исчез уже после проверки полноты
type vanishingSource struct {
	*chunkstore.Store
	vanish int
}

func (v vanishingSource) Open(owner domain.OwnerID, name string, i int) (io.ReadCloser, error) {
	if i == v.vanish {
		_ = v.Store.Remove(owner, name, i)
	}
	return v.Store.Open(owner, name, i)
}

func TestMergeChunkVanishesMidway(t *testing.T) {
	f := newFixture(t)
	f.upload(t, "v.bin", makeParts(3, 5), []int{0, 1, 2})

	e, err := New(vanishingSource{Store: f.chunks, vanish: 1}, filepath.Join(t.TempDir(), "m"), nil)
	require.NoError(t, err)
	_, err = e.Merge(context.Background(), f.owner, "v.bin", 3)

	var mce *domain.MissingChunkError
	require.True(t, errors.As(err, &mce))
	assert.Equal(t, 1, mce.Index)
	assert.Equal(t, []int{1}, f.chunks.Missing(f.owner, "v.bin", 3))
}

func TestMergeNothingUploaded(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Merge(context.Background(), f.owner, "ghost.bin", 2)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrMissingChunk)
}

func TestMergeValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Merge(context.Background(), f.owner, "", 1)
	assert.ErrorIs(t, err, domain.ErrBadParams)
	_, err = f.engine.Merge(context.Background(), f.owner, "a", 0)
	assert.ErrorIs(t, err, domain.ErrBadParams)
}
