package ingest

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-assets/internal/assets"
	"github.com/EgorLis/my-assets/internal/codec"
	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/infra/database/memory"
	"github.com/EgorLis/my-assets/internal/infra/storage/fs"
	"github.com/EgorLis/my-assets/internal/ingest/chunkstore"
	"github.com/EgorLis/my-assets/internal/ingest/merge"
)

var quiet = log.New(io.Discard, "", 0)

type pipeline struct {
	svc    *Service
	chunks *chunkstore.Store
	store  *assets.Store
	repo   *memory.Repo
}

func newPipeline(t *testing.T, mod func(*Deps)) *pipeline {
	t.Helper()
	root := t.TempDir()
	chunks, err := chunkstore.New(filepath.Join(root, "chunks"), 32<<20, quiet)
	require.NoError(t, err)
	eng, err := merge.New(chunks, filepath.Join(root, "merged"), quiet)
	require.NoError(t, err)
	disk, err := fs.New(filepath.Join(root, "payloads"), quiet)
	require.NoError(t, err)
	repo := memory.New()
	c := codec.New(codec.Auto)
	store := assets.New(assets.Deps{Repo: repo, Payloads: disk, Codec: c})

	d := Deps{Chunks: chunks, Merger: eng, Codec: c, Assets: store}
	if mod != nil {
		mod(&d)
	}
	return &pipeline{svc: NewService(d), chunks: chunks, store: store, repo: repo}
}

func (p *pipeline) put(t *testing.T, owner domain.OwnerID, name string, i, total int, body []byte) ChunkOutcome {
	t.Helper()
	out, err := p.svc.ProcessChunk(context.Background(), owner, ChunkInput{
		FileName: name, Index: i, Total: total, Body: bytes.NewReader(body),
	})
	require.NoError(t, err)
	return out
}

func (p *pipeline) count(t *testing.T, owner domain.OwnerID) int {
	t.Helper()
	list, err := p.repo.AssetsByOwner(context.Background(), owner, domain.ListFilter{})
	require.NoError(t, err)
	return len(list)
}

func split(data []byte, n int) [][]byte {
	size := (len(data) + n - 1) / n
	parts := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		end := min((i+1)*size, len(data))
		parts = append(parts, data[i*size:end])
	}
	return parts
}

func TestOutOfOrderLargeUpload(t *testing.T) {
	p := newPipeline(t, nil)
	owner := uuid.New()
	data := make([]byte, 25<<20)
	_, err := rand.Read(data)
	require.NoError(t, err)
	parts := split(data, 3)

	out := p.put(t, owner, "video.bin", 2, 3, parts[2])
	assert.True(t, out.IsLastChunk)
	assert.False(t, out.AllChunksPresent)
	assert.Nil(t, out.Asset)

	out = p.put(t, owner, "video.bin", 0, 3, parts[0])
	assert.False(t, out.IsLastChunk)
	assert.False(t, out.AllChunksPresent)

	out = p.put(t, owner, "video.bin", 1, 3, parts[1])
	assert.False(t, out.IsLastChunk)
	assert.True(t, out.AllChunksPresent)
	assert.Nil(t, out.Asset, "автозавершение только на последнем индексе")

	a, err := p.svc.CompleteUpload(context.Background(), owner, "video.bin", 3, "")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), a.SizeBytes)

	_, got, err := p.store.Get(context.Background(), owner, a.BlobID)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, got))

	assert.Equal(t, []int{0, 1, 2}, p.chunks.Missing(owner, "video.bin", 3), "чанки удалены после склейки")
}

func TestAutoCompleteOnLastChunk(t *testing.T) {
	p := newPipeline(t, nil)
	owner := uuid.New()
	text := bytes.Repeat([]byte("level data line\n"), 2000)
	parts := split(text, 4)

	for i := 0; i < 3; i++ {
		out := p.put(t, owner, "level.txt", i, 4, parts[i])
		assert.Nil(t, out.Asset)
	}
	out := p.put(t, owner, "level.txt", 3, 4, parts[3])
	require.NotNil(t, out.Asset)
	assert.Equal(t, "level.txt", out.Asset.FileName)
	assert.Contains(t, out.Asset.MIME, "text/plain")
	assert.Less(t, out.Asset.StoredBytes, out.Asset.SizeBytes)

	_, got, err := p.store.Get(context.Background(), owner, out.Asset.BlobID)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestCompleteReportsMissingAndRecovers(t *testing.T) {
	p := newPipeline(t, nil)
	owner := uuid.New()
	p.put(t, owner, "a.bin", 0, 3, []byte("aaa"))

	_, err := p.svc.CompleteUpload(context.Background(), owner, "a.bin", 3, "")
	var mce *domain.MissingChunkError
	require.ErrorAs(t, err, &mce)
	assert.Equal(t, []int{1, 2}, mce.Missing)

	st, err := p.svc.Status(owner, "a.bin", 3)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadReceiving, st.State)
	assert.Equal(t, []int{1, 2}, st.Missing)

	p.put(t, owner, "a.bin", 1, 3, []byte("bbb"))
	out := p.put(t, owner, "a.bin", 2, 3, []byte("ccc"))
	require.NotNil(t, out.Asset)
	_, got, err := p.store.Get(context.Background(), owner, out.Asset.BlobID)
	require.NoError(t, err)
	assert.Equal(t, []byte("aaabbbccc"), got)
}

func TestCompleteNothingUploaded(t *testing.T) {
	p := newPipeline(t, nil)
	_, err := p.svc.CompleteUpload(context.Background(), uuid.New(), "ghost.bin", 2, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCompleteValidation(t *testing.T) {
	p := newPipeline(t, nil)
	_, err := p.svc.CompleteUpload(context.Background(), uuid.New(), "..", 2, "")
	assert.ErrorIs(t, err, domain.ErrBadParams)
	_, err = p.svc.CompleteUpload(context.Background(), uuid.New(), "a", 0, "")
	assert.ErrorIs(t, err, domain.ErrBadParams)
	_, err = p.svc.ProcessChunk(context.Background(), uuid.New(), ChunkInput{FileName: "a", Index: 0, Total: 1})
	assert.ErrorIs(t, err, domain.ErrBadParams)
}

func TestConcurrentCompleteProducesOneAsset(t *testing.T) {
	p := newPipeline(t, nil)
	owner := uuid.New()
	for i := 0; i < 2; i++ {
		_, err := p.chunks.Put(context.Background(), owner, "race.bin", i, 3, bytes.NewReader(bytes.Repeat([]byte{byte(i)}, 1<<20)))
		require.NoError(t, err)
	}
	_, err := p.chunks.Put(context.Background(), owner, "race.bin", 2, 3, bytes.NewReader([]byte("tail")))
	require.NoError(t, err)

	const n = 16
	var ok, conflict, gone atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := p.svc.CompleteUpload(context.Background(), owner, "race.bin", 3, "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrConflict):
				conflict.Add(1)
			case errors.Is(err, domain.ErrNotFound):
				gone.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), conflict.Load()+gone.Load())
	assert.Equal(t, 1, p.count(t, owner))
}

// blockingMerger держит склейку, пока тест не отпустит.
type blockingMerger struct {
	entered chan struct{}
	release chan struct{}
	dir     string
}

func (m *blockingMerger) Merge(_ context.Context, owner domain.OwnerID, name string, _ int) (*merge.Artifact, error) {
	close(m.entered)
	<-m.release
	path := filepath.Join(m.dir, name+".merged")
	if err := os.WriteFile(path, []byte("merged"), 0o600); err != nil {
		return nil, err
	}
	return &merge.Artifact{Path: path, Size: 6, Owner: owner, FileName: name}, nil
}

func TestCompleteConflictWhileMerging(t *testing.T) {
	bm := &blockingMerger{entered: make(chan struct{}), release: make(chan struct{}), dir: t.TempDir()}
	p := newPipeline(t, func(d *Deps) { d.Merger = bm })
	owner := uuid.New()

	done := make(chan error, 1)
	go func() {
		_, err := p.svc.CompleteUpload(context.Background(), owner, "x.bin", 1, "")
		done <- err
	}()
	<-bm.entered

	st, err := p.svc.Status(owner, "x.bin", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadMerging, st.State)

	_, err = p.svc.CompleteUpload(context.Background(), owner, "x.bin", 1, "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	close(bm.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, p.count(t, owner))

	_, err = os.Stat(filepath.Join(bm.dir, "x.bin.merged"))
	assert.True(t, os.IsNotExist(err), "артефакт удалён после сохранения")
}

type fakeLease struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	acquired int
}

func (l *fakeLease) Acquire(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	l.acquired++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

func TestLeaseHeldElsewhereConflicts(t *testing.T) {
	lease := &fakeLease{held: map[string]bool{}}
	p := newPipeline(t, func(d *Deps) { d.Lease = lease })
	owner := uuid.New()
	p.put(t, owner, "a.bin", 0, 2, []byte("a"))

	lease.held[domain.CacheKeyMergeLease(owner, "a.bin")] = true
	out := p.put(t, owner, "a.bin", 1, 2, []byte("b"))
	assert.Nil(t, out.Asset, "другой инстанс склеивает")
	assert.True(t, out.AllChunksPresent)

	_, err := p.svc.CompleteUpload(context.Background(), owner, "a.bin", 2, "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	delete(lease.held, domain.CacheKeyMergeLease(owner, "a.bin"))
	_, err = p.svc.CompleteUpload(context.Background(), owner, "a.bin", 2, "")
	require.NoError(t, err)
	assert.Empty(t, lease.held, "lease снят")
}

func TestLeaseErrorFallsBackToLocalLock(t *testing.T) {
	lease := &fakeLease{held: map[string]bool{}, err: errors.New("redis down")}
	p := newPipeline(t, func(d *Deps) { d.Lease = lease })
	owner := uuid.New()
	out := p.put(t, owner, "a.bin", 0, 1, []byte("solo"))
	require.NotNil(t, out.Asset)
}

func TestPostProcessorApplied(t *testing.T) {
	post := PostFunc(func(_ context.Context, name, _ string, data []byte) ([]byte, string, error) {
		return append([]byte("thumb:"), data...), "application/x-thumb", nil
	})
	p := newPipeline(t, func(d *Deps) { d.Post = post })
	owner := uuid.New()
	out := p.put(t, owner, "pic.raw", 0, 1, []byte("pixels"))
	require.NotNil(t, out.Asset)
	assert.Equal(t, "application/x-thumb", out.Asset.MIME)

	_, got, err := p.store.Get(context.Background(), owner, out.Asset.BlobID)
	require.NoError(t, err)
	assert.Equal(t, []byte("thumb:pixels"), got)
}

func TestPostProcessorFailureKeepsNothing(t *testing.T) {
	post := PostFunc(func(context.Context, string, string, []byte) ([]byte, string, error) {
		return nil, "", errors.New("decoder crashed")
	})
	p := newPipeline(t, func(d *Deps) { d.Post = post })
	owner := uuid.New()
	_, err := p.svc.ProcessChunk(context.Background(), owner, ChunkInput{
		FileName: "pic.raw", Index: 0, Total: 1, Body: bytes.NewReader([]byte("x")),
	})
	assert.ErrorIs(t, err, domain.ErrUnexpected)
	assert.Equal(t, 0, p.count(t, owner))
}

func TestDetectMIME(t *testing.T) {
	assert.Equal(t, "image/png", DetectMIME("a.png", nil))
	assert.Equal(t, "image/png", DetectMIME("noext", []byte("\x89PNG\r\n\x1a\n0000")))
	assert.Equal(t, "application/octet-stream", DetectMIME("noext", []byte{0, 1, 2, 3}))
}

func TestStatusReportsStoredAfterUpload(t *testing.T) {
	p := newPipeline(t, nil)
	owner := uuid.New()
	p.put(t, owner, "a.bin", 0, 2, []byte("first"))
	out := p.put(t, owner, "a.bin", 1, 2, []byte("second"))
	require.NotNil(t, out.Asset)

	st, err := p.svc.Status(owner, "a.bin", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStored, st.State)
	assert.True(t, st.Complete)
	assert.Empty(t, st.Missing)
	require.NotNil(t, st.BlobID)
	assert.Equal(t, out.Asset.BlobID, *st.BlobID)

	// чанков больше нет: повторное завершение склеивать нечего
	_, err = p.svc.CompleteUpload(context.Background(), owner, "a.bin", 2, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// новый чанк того же имени начинает следующую загрузку
	p.put(t, owner, "a.bin", 0, 2, []byte("again"))
	st, err = p.svc.Status(owner, "a.bin", 2)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadReceiving, st.State)
	assert.Equal(t, []int{1}, st.Missing)
	assert.Nil(t, st.BlobID)
}

func TestStoredStatusExpires(t *testing.T) {
	p := newPipeline(t, func(d *Deps) { d.StoredTTL = time.Millisecond })
	owner := uuid.New()
	out := p.put(t, owner, "a.bin", 0, 1, []byte("solo"))
	require.NotNil(t, out.Asset)

	time.Sleep(10 * time.Millisecond)
	st, err := p.svc.Status(owner, "a.bin", 1)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadReceiving, st.State)
	assert.Equal(t, []int{0}, st.Missing)
}

func TestLateCleanupKeepsNewerAttempt(t *testing.T) {
	p := newPipeline(t, nil)
	key := domain.UploadKey(uuid.New(), "x.bin")

	older := p.svc.begin(key)
	newer := p.svc.begin(key)

	// запоздавшая очистка старой попытки не трогает новую
	p.svc.abandon(key, older)
	e, ok := p.svc.entry(key)
	require.True(t, ok)
	assert.Equal(t, domain.UploadMerging, e.state)
	assert.Equal(t, newer, e.gen)

	p.svc.advance(key, older, domain.UploadCompressing)
	p.svc.finish(key, older, uuid.New())
	e, _ = p.svc.entry(key)
	assert.Equal(t, domain.UploadMerging, e.state)

	id := uuid.New()
	p.svc.finish(key, newer, id)
	e, _ = p.svc.entry(key)
	assert.Equal(t, domain.UploadStored, e.state)
	assert.Equal(t, id, e.blobID)
}
