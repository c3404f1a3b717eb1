// Package assets: AssetStore: выдаёт blobId сжатому артефакту, хранит
// payload и запись каталога, отдаёт ассет обратно через кодек.
//
// Чтение payload держит read-lock по blobId, перезапись и удаление — write-lock,
// поэтому читатель никогда не видит полузаписанное тело.
package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/EgorLis/my-assets/internal/codec"
	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/lock"
	"github.com/EgorLis/my-assets/internal/metrics"
)

// Codec: обратное преобразование payload при чтении.
type Codec interface {
	Decompress(frame []byte) ([]byte, error)
}

type Deps struct {
	Repo     domain.AssetsRepo
	Payloads domain.PayloadStorage
	Codec    Codec
	Cache    domain.Cache // может быть nil
	CacheTTL int          // секунд
	Log      *log.Logger
	Metrics  *metrics.Metrics
}

type Store struct {
	repo     domain.AssetsRepo
	payloads domain.PayloadStorage
	codec    Codec
	cache    domain.Cache
	cacheTTL int
	log      *log.Logger
	metrics  *metrics.Metrics
	locks    *lock.Keyed
}

func New(d Deps) *Store {
	logger := d.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{
		repo:     d.Repo,
		payloads: d.Payloads,
		codec:    d.Codec,
		cache:    d.Cache,
		cacheTTL: d.CacheTTL,
		log:      logger,
		metrics:  d.Metrics,
		locks:    lock.NewKeyed(),
	}
}

// Create сохраняет сжатый кадр и заводит запись каталога. Если каталог
// не принял запись, payload удаляется.
func (s *Store) Create(ctx context.Context, owner domain.OwnerID, fileName, mime string, compressed []byte) (domain.Asset, error) {
	const op = "assets.create"
	if owner == uuid.Nil {
		return domain.Asset{}, domain.Validation(op, "owner id is required")
	}
	name := domain.BaseFileName(fileName)
	if name == "" {
		return domain.Asset{}, domain.Validation(op, "invalid file name %q", fileName)
	}
	// в хранилище попадает только кадр кодека, не сырые байты
	h, err := codec.Inspect(compressed)
	if err != nil {
		return domain.Asset{}, err
	}
	if mime == "" {
		mime = "application/octet-stream"
	}

	id := uuid.New()
	if err := s.payloads.Put(ctx, id, bytes.NewReader(compressed), int64(len(compressed))); err != nil {
		return domain.Asset{}, domain.Wrap(domain.ErrUnexpected, op, fmt.Errorf("put payload: %w", err))
	}

	a, err := s.repo.CreateAsset(ctx, domain.Asset{
		BlobID:      id,
		OwnerID:     owner,
		FileName:    name,
		MIME:        mime,
		State:       domain.AssetStaged,
		SizeBytes:   int64(h.RawSize),
		StoredBytes: int64(len(compressed)),
	})
	if err != nil {
		if derr := s.payloads.Delete(context.WithoutCancel(ctx), id); derr != nil {
			s.log.Printf("reconcile: orphan payload %s left after catalog failure: %v", id, derr)
		}
		return domain.Asset{}, domain.Wrap(domain.ErrUnexpected, op, fmt.Errorf("catalog: %w", err))
	}

	s.metrics.Stored(a.SizeBytes, a.StoredBytes)
	s.log.Printf("created blob_id=%s owner=%s name=%q mime=%s raw=%d stored=%d",
		a.BlobID, owner, a.FileName, a.MIME, a.SizeBytes, a.StoredBytes)
	return a, nil
}

// Meta: метаданные ассета владельца. Чужой ассет неотличим от несуществующего.
func (s *Store) Meta(ctx context.Context, owner domain.OwnerID, id domain.BlobID) (domain.Asset, error) {
	a, err := s.lookup(ctx, id)
	if err != nil {
		return domain.Asset{}, err
	}
	if a.OwnerID != owner {
		return domain.Asset{}, domain.E(domain.ErrNotFound, "assets.meta", "asset "+id.String())
	}
	return a, nil
}

// Get возвращает метаданные и исходные (разжатые) байты ассета.
func (s *Store) Get(ctx context.Context, owner domain.OwnerID, id domain.BlobID) (domain.Asset, []byte, error) {
	unlock := s.locks.RLock(id.String())
	defer unlock()

	a, err := s.Meta(ctx, owner, id)
	if err != nil {
		return domain.Asset{}, nil, err
	}
	raw, err := s.readPayload(ctx, id)
	if err != nil {
		return domain.Asset{}, nil, err
	}
	return a, raw, nil
}

// Load: то же, что Get, для уже полученной записи каталога (список владельца).
func (s *Store) Load(ctx context.Context, a domain.Asset) ([]byte, error) {
	unlock := s.locks.RLock(a.BlobID.String())
	defer unlock()
	return s.readPayload(ctx, a.BlobID)
}

func (s *Store) readPayload(ctx context.Context, id domain.BlobID) ([]byte, error) {
	const op = "assets.get"
	rc, err := s.payloads.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// запись каталога есть, а тела нет — это рассинхрон, не обычный 404
			s.log.Printf("reconcile: catalog row %s has no payload", id)
		}
		return nil, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	defer rc.Close()
	frame, err := io.ReadAll(rc)
	if err != nil {
		return nil, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	raw, err := s.codec.Decompress(frame)
	if err != nil {
		s.log.Printf("integrity fault: blob_id=%s: %v", id, err)
		return nil, err
	}
	return raw, nil
}

// Update заменяет payload (перекодирование/пересжатие после правок).
// mime == "" — не менять.
func (s *Store) Update(ctx context.Context, id domain.BlobID, compressed []byte, mime string) (domain.Asset, error) {
	const op = "assets.update"
	h, err := codec.Inspect(compressed)
	if err != nil {
		return domain.Asset{}, err
	}

	unlock := s.locks.Lock(id.String())
	defer unlock()

	if _, err := s.repo.AssetByID(ctx, id); err != nil {
		return domain.Asset{}, err
	}
	if err := s.payloads.Put(ctx, id, bytes.NewReader(compressed), int64(len(compressed))); err != nil {
		return domain.Asset{}, domain.Wrap(domain.ErrUnexpected, op, fmt.Errorf("put payload: %w", err))
	}
	a, err := s.repo.UpdatePayloadMeta(ctx, id, mime, int64(h.RawSize), int64(len(compressed)))
	if err != nil {
		// payload уже новый, каталог старый: размеры разъехались до следующего update
		s.log.Printf("reconcile: payload %s replaced but catalog update failed: %v", id, err)
		return domain.Asset{}, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	s.invalidate(ctx, id)
	s.metrics.Stored(a.SizeBytes, a.StoredBytes)
	s.log.Printf("updated blob_id=%s version=%d raw=%d stored=%d", id, a.Version, a.SizeBytes, a.StoredBytes)
	return a, nil
}

// Delete убирает и payload, и запись каталога. Если удалилась только
// одна половина — PartialDeleteError, а не успех.
func (s *Store) Delete(ctx context.Context, id domain.BlobID) error {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	perr := s.payloads.Delete(ctx, id)
	merr := s.repo.DeleteAsset(ctx, id)
	s.invalidate(ctx, id)

	pMissing, mMissing := errors.Is(perr, domain.ErrNotFound), errors.Is(merr, domain.ErrNotFound)
	payloadGone := perr == nil || pMissing
	metaGone := merr == nil || mMissing

	switch {
	case pMissing && mMissing:
		return domain.E(domain.ErrNotFound, "assets.delete", "asset "+id.String())
	case payloadGone && metaGone:
		if pMissing || mMissing {
			s.log.Printf("reconcile: blob_id=%s was half-present before delete (payload_missing=%t meta_missing=%t)",
				id, pMissing, mMissing)
		}
		s.log.Printf("deleted blob_id=%s", id)
		return nil
	case !payloadGone && !metaGone:
		return domain.Wrap(domain.ErrUnexpected, "assets.delete", errors.Join(perr, merr))
	default:
		pde := &domain.PartialDeleteError{
			BlobID:         id,
			PayloadRemoved: payloadGone,
			MetaRemoved:    metaGone,
			Err:            errors.Join(nonMissing(perr), nonMissing(merr)),
		}
		s.log.Printf("reconcile: %v", pde)
		return pde
	}
}

func nonMissing(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// Associate: вызов подсистемы проектов/тегов после успешного Create.
func (s *Store) Associate(ctx context.Context, id domain.BlobID, as domain.Association) (domain.Asset, error) {
	for _, tag := range as.Tags {
		if tag == "" {
			return domain.Asset{}, domain.Validation("assets.associate", "empty tag")
		}
	}
	for _, f := range as.Metadata {
		if f.Key == "" {
			return domain.Asset{}, domain.Validation("assets.associate", "metadata key is required")
		}
	}
	unlock := s.locks.Lock(id.String())
	defer unlock()

	a, err := s.repo.Associate(ctx, id, as)
	if err != nil {
		return domain.Asset{}, err
	}
	s.invalidate(ctx, id)
	return a, nil
}

// List: ассеты владельца, page с 1.
func (s *Store) List(ctx context.Context, owner domain.OwnerID, f domain.ListFilter) ([]domain.Asset, error) {
	if f.Page != 0 || f.Limit != 0 {
		if !domain.ValidPage(f.Page, f.Limit) {
			return nil, domain.Validation("assets.list", "page must be >= 1 and limit in [1,1000], got page=%d limit=%d", f.Page, f.Limit)
		}
	}
	return s.repo.AssetsByOwner(ctx, owner, f)
}

func (s *Store) lookup(ctx context.Context, id domain.BlobID) (domain.Asset, error) {
	key := domain.CacheKeyAssetMeta(id)
	if s.cache != nil {
		if b, err := s.cache.Get(ctx, key); err == nil && len(b) > 0 {
			var a domain.Asset
			if json.Unmarshal(b, &a) == nil {
				return a, nil
			}
		}
	}
	a, err := s.repo.AssetByID(ctx, id)
	if err != nil {
		return domain.Asset{}, err
	}
	if s.cache != nil {
		if b, err := json.Marshal(a); err == nil {
			_ = s.cache.Set(ctx, key, b, s.cacheTTL)
		}
	}
	return a, nil
}

func (s *Store) invalidate(ctx context.Context, id domain.BlobID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(context.WithoutCancel(ctx), domain.CacheKeyAssetMeta(id)); err != nil {
		s.log.Printf("cache invalidate %s: %v", id, err)
	}
}
