// Package ingest: пайплайн загрузки: чанки → склейка → пост-обработка →
// сжатие → AssetStore.
//
// Склейка одного (owner, fileName) идёт строго в одном экземпляре: внутри
// процесса — TryLock по ключу, между инстансами — lease в Redis (если задан).
// Блокировка держится только на "проверка полноты + склейка + удаление
// чанков"; сжатие и запись в хранилище идут уже без неё.
package ingest

import (
	"context"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"sync"
	"time"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/ingest/merge"
	"github.com/EgorLis/my-assets/internal/lock"
	"github.com/EgorLis/my-assets/internal/metrics"
)

type Chunks interface {
	Put(ctx context.Context, owner domain.OwnerID, fileName string, index, total int, r io.Reader) (domain.ChunkResult, error)
	Missing(owner domain.OwnerID, fileName string, total int) []int
}

type Merger interface {
	Merge(ctx context.Context, owner domain.OwnerID, fileName string, total int) (*merge.Artifact, error)
}

type Compressor interface {
	Compress(data []byte, contentType string) ([]byte, error)
}

type AssetCreator interface {
	Create(ctx context.Context, owner domain.OwnerID, fileName, mime string, compressed []byte) (domain.Asset, error)
}

// Lease: межпроцессная блокировка склейки (Redis SET NX). Пока release не
// вызван, реализация сама продлевает ttl: склейка может идти дольше него.
type Lease interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

type Deps struct {
	Chunks   Chunks
	Merger   Merger
	Codec    Compressor
	Assets   AssetCreator
	Post     PostProcessor // nil — Noop
	Lease    Lease         // nil — только блокировка в процессе
	LeaseTTL time.Duration
	Locks    *lock.Keyed // общие с chunkstore: sweeper не трогает склеиваемые чанки
	Log      *log.Logger
	Metrics  *metrics.Metrics

	// StoredTTL: сколько Status помнит STORED после успешной загрузки
	StoredTTL time.Duration
}

type Service struct {
	chunks   Chunks
	merger   Merger
	codec    Compressor
	assets   AssetCreator
	post     PostProcessor
	lease    Lease
	leaseTTL time.Duration
	log      *log.Logger
	metrics  *metrics.Metrics

	locks *lock.Keyed

	mu        sync.Mutex
	gen       uint64
	states    map[string]uploadEntry
	storedTTL time.Duration
}

// uploadEntry: состояние одной попытки склейки. gen отличает попытки
// друг от друга, чтобы запоздавшая очистка не стёрла более новую.
type uploadEntry struct {
	state  domain.UploadState
	gen    uint64
	blobID domain.BlobID
	at     time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		chunks:   d.Chunks,
		merger:   d.Merger,
		codec:    d.Codec,
		assets:   d.Assets,
		post:     d.Post,
		lease:    d.Lease,
		leaseTTL: d.LeaseTTL,
		log:      d.Log,
		metrics:  d.Metrics,
		locks:    d.Locks,
		states:   make(map[string]uploadEntry),

		storedTTL: d.StoredTTL,
	}
	if s.locks == nil {
		s.locks = lock.NewKeyed()
	}
	if s.storedTTL <= 0 {
		s.storedTTL = 24 * time.Hour
	}
	if s.post == nil {
		s.post = Noop{}
	}
	if s.log == nil {
		s.log = log.New(io.Discard, "", 0)
	}
	if s.leaseTTL <= 0 {
		s.leaseTTL = 5 * time.Minute
	}
	return s
}

// ChunkInput: один принятый кусок файла.
type ChunkInput struct {
	FileName string
	Index    int
	Total    int
	MIME     string // необязательно, используется при автозавершении
	Body     io.Reader
}

// ChunkOutcome: результат ProcessChunk. Asset заполнен, если этот чанк
// завершил загрузку и ассет сохранён.
type ChunkOutcome struct {
	domain.ChunkResult
	Asset *domain.Asset `json:"asset,omitempty"`
}

// ProcessChunk сохраняет чанк; если он последний и все чанки на месте,
// сразу запускает CompleteUpload.
func (s *Service) ProcessChunk(ctx context.Context, owner domain.OwnerID, in ChunkInput) (ChunkOutcome, error) {
	cr := &countingReader{r: in.Body}
	var body io.Reader
	if in.Body != nil {
		body = cr
	}
	res, err := s.chunks.Put(ctx, owner, in.FileName, in.Index, in.Total, body)
	if err != nil {
		s.metrics.Chunk(resultOf(err), 0)
		return ChunkOutcome{}, err
	}
	s.metrics.Chunk("ok", cr.n)
	// новый чанк того же имени: начинается следующая загрузка
	s.forgetStored(domain.UploadKey(owner, res.FileName))
	out := ChunkOutcome{ChunkResult: res}
	if !res.IsLastChunk || !res.AllChunksPresent {
		return out, nil
	}

	a, err := s.CompleteUpload(ctx, owner, res.FileName, in.Total, in.MIME)
	switch {
	case err == nil:
		out.Asset = &a
		return out, nil
	case errors.Is(err, domain.ErrConflict):
		// склейку уже ведёт параллельный запрос, чанк принят
		s.log.Printf("auto-complete skipped owner=%s file=%q: merge in progress", owner, res.FileName)
		return out, nil
	default:
		return out, err
	}
}

// CompleteUpload склеивает чанки и сохраняет ассет. Параллельный вызов для
// того же файла получает ErrConflict, незавершённая загрузка — MissingChunkError.
func (s *Service) CompleteUpload(ctx context.Context, owner domain.OwnerID, fileName string, total int, mimeType string) (domain.Asset, error) {
	const op = "ingest.complete"
	name := domain.BaseFileName(fileName)
	if name == "" {
		return domain.Asset{}, domain.Validation(op, "invalid file name %q", fileName)
	}
	if total < 1 {
		return domain.Asset{}, domain.Validation(op, "totalChunks must be positive, got %d", total)
	}

	art, gen, err := s.mergeExclusive(ctx, owner, name, total)
	if err != nil {
		return domain.Asset{}, err
	}
	key := domain.UploadKey(owner, name)
	stored := false
	defer func() {
		if !stored {
			s.abandon(key, gen)
		}
	}()
	defer func() {
		if err := art.Remove(); err != nil {
			s.log.Printf("artifact %s not removed: %v", art.Path, err)
		}
	}()

	s.advance(key, gen, domain.UploadCompressing)
	data, err := art.ReadAll()
	if err != nil {
		return domain.Asset{}, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	data, mimeType, err = s.post.Process(ctx, name, mimeType, data)
	if err != nil {
		return domain.Asset{}, domain.Wrap(domain.ErrUnexpected, "ingest.postprocess", err)
	}
	if mimeType == "" {
		mimeType = DetectMIME(name, data)
	}
	compressed, err := s.codec.Compress(data, mimeType)
	if err != nil {
		return domain.Asset{}, err
	}
	a, err := s.assets.Create(ctx, owner, name, mimeType, compressed)
	if err != nil {
		return domain.Asset{}, err
	}
	s.finish(key, gen, a.BlobID)
	stored = true
	s.log.Printf("upload stored owner=%s file=%q blob_id=%s raw=%d stored=%d",
		owner, name, a.BlobID, a.SizeBytes, a.StoredBytes)
	return a, nil
}

// mergeExclusive: критическая секция склейки.
func (s *Service) mergeExclusive(ctx context.Context, owner domain.OwnerID, name string, total int) (*merge.Artifact, uint64, error) {
	const op = "ingest.merge"
	key := domain.UploadKey(owner, name)

	unlock, ok := s.locks.TryLock(key)
	if !ok {
		s.metrics.Merge("conflict", 0)
		return nil, 0, domain.E(domain.ErrConflict, op, "merge of "+name+" already in progress")
	}
	defer unlock()

	if s.lease != nil {
		release, ok, err := s.lease.Acquire(ctx, domain.CacheKeyMergeLease(owner, name), s.leaseTTL)
		switch {
		case err != nil:
			// Redis недоступен: остаёмся на блокировке процесса
			s.log.Printf("merge lease unavailable owner=%s file=%q: %v", owner, name, err)
		case !ok:
			s.metrics.Merge("conflict", 0)
			return nil, 0, domain.E(domain.ErrConflict, op, "merge of "+name+" already in progress on another instance")
		default:
			defer release()
		}
	}

	gen := s.begin(key)
	start := time.Now()
	art, err := s.merger.Merge(ctx, owner, name, total)
	if err != nil {
		s.abandon(key, gen)
		s.metrics.Merge(resultOf(err), time.Since(start))
		return nil, 0, err
	}
	s.metrics.Merge("ok", time.Since(start))
	return art, gen, nil
}

// UploadStatus: состояние загрузки для клиента, который хочет докачать.
type UploadStatus struct {
	FileName string             `json:"fileName"`
	Total    int                `json:"totalChunks"`
	State    domain.UploadState `json:"state"`
	Missing  []int              `json:"missing"`
	Complete bool               `json:"allChunksPresent"`
	BlobID   *domain.BlobID     `json:"blobId,omitempty"` // только для STORED
}

func (s *Service) Status(owner domain.OwnerID, fileName string, total int) (UploadStatus, error) {
	name := domain.BaseFileName(fileName)
	if name == "" {
		return UploadStatus{}, domain.Validation("ingest.status", "invalid file name %q", fileName)
	}
	if total < 1 {
		return UploadStatus{}, domain.Validation("ingest.status", "totalChunks must be positive, got %d", total)
	}
	st := UploadStatus{FileName: name, Total: total, State: domain.UploadReceiving}
	e, ok := s.entry(domain.UploadKey(owner, name))
	if ok && e.state == domain.UploadStored && time.Since(e.at) <= s.storedTTL {
		// чанки уже удалены склейкой, докачивать нечего
		id := e.blobID
		st.State, st.BlobID = domain.UploadStored, &id
		st.Missing, st.Complete = []int{}, true
		return st, nil
	}
	if ok && e.state != domain.UploadStored {
		st.State = e.state
	}
	st.Missing = s.chunks.Missing(owner, name, total)
	if st.Missing == nil {
		st.Missing = []int{}
	}
	st.Complete = len(st.Missing) == 0
	return st, nil
}

// begin открывает новую попытку склейки и возвращает её поколение.
func (s *Service) begin(key string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.states[key] = uploadEntry{state: domain.UploadMerging, gen: s.gen, at: time.Now()}
	return s.gen
}

func (s *Service) advance(key string, gen uint64, st domain.UploadState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.states[key]; ok && e.gen == gen {
		e.state = st
		s.states[key] = e
	}
}

func (s *Service) finish(key string, gen uint64, id domain.BlobID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, e := range s.states {
		if e.state == domain.UploadStored && now.Sub(e.at) > s.storedTTL {
			delete(s.states, k)
		}
	}
	if e, ok := s.states[key]; ok && e.gen == gen {
		s.states[key] = uploadEntry{state: domain.UploadStored, gen: gen, blobID: id, at: now}
	}
}

// abandon убирает состояние, только если оно всё ещё принадлежит попытке gen.
func (s *Service) abandon(key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.states[key]; ok && e.gen == gen {
		delete(s.states, key)
	}
}

func (s *Service) forgetStored(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.states[key]; ok && e.state == domain.UploadStored {
		delete(s.states, key)
	}
}

func (s *Service) entry(key string) (uploadEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.states[key]
	return e, ok
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrBadParams):
		return "invalid"
	case errors.Is(err, domain.ErrMissingChunk):
		return "missing"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}

// DetectMIME: сначала расширение имени, затем сигнатура первых 512 байт.
func DetectMIME(name string, data []byte) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return http.DetectContentType(data)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
