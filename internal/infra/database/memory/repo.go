// Package memory: каталог ассетов в памяти процесса (CATALOG_DRIVER=memory, тесты).
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/EgorLis/my-assets/internal/domain"
)

type Repo struct {
	mu     sync.RWMutex
	assets map[domain.BlobID]domain.Asset
	now    func() time.Time
}

func New() *Repo {
	return &Repo{assets: make(map[domain.BlobID]domain.Asset), now: time.Now}
}

func (r *Repo) Ping(context.Context) error { return nil }
func (r *Repo) Close()                     {}

func clone(a domain.Asset) domain.Asset {
	a.Tags = slices.Clone(a.Tags)
	a.Metadata = slices.Clone(a.Metadata)
	if a.ProjectID != nil {
		p := *a.ProjectID
		a.ProjectID = &p
	}
	return a
}

func notFound(id domain.BlobID) error { return fmt.Errorf("%w: asset %s", domain.ErrNotFound, id) }

func (r *Repo) CreateAsset(_ context.Context, a domain.Asset) (domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[a.BlobID]; ok {
		return domain.Asset{}, fmt.Errorf("%w: asset %s already exists", domain.ErrConflict, a.BlobID)
	}
	now := r.now().UTC()
	a.CreatedAt, a.UpdatedAt, a.Version = now, now, 1
	if a.State == "" {
		a.State = domain.AssetStaged
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Metadata == nil {
		a.Metadata = []domain.MetaField{}
	}
	r.assets[a.BlobID] = clone(a)
	return clone(a), nil
}

func (r *Repo) AssetByID(_ context.Context, id domain.BlobID) (domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[id]
	if !ok {
		return domain.Asset{}, notFound(id)
	}
	return clone(a), nil
}

func (r *Repo) AssetsByOwner(_ context.Context, owner domain.OwnerID, f domain.ListFilter) ([]domain.Asset, error) {
	r.mu.RLock()
	var out []domain.Asset
	for _, a := range r.assets {
		if a.OwnerID != owner || (f.Palette && !a.InPalette()) {
			continue
		}
		out = append(out, clone(a))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].BlobID.String() < out[j].BlobID.String()
	})
	if f.Limit > 0 {
		page := max(f.Page, 1)
		from := (page - 1) * f.Limit
		if from >= len(out) {
			return nil, nil
		}
		out = out[from:min(from+f.Limit, len(out))]
	}
	return out, nil
}

func (r *Repo) update(id domain.BlobID, fn func(*domain.Asset)) (domain.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return domain.Asset{}, notFound(id)
	}
	fn(&a)
	a.Version++
	a.UpdatedAt = r.now().UTC()
	r.assets[id] = clone(a)
	return clone(a), nil
}

func (r *Repo) UpdatePayloadMeta(_ context.Context, id domain.BlobID, mime string, sizeBytes, storedBytes int64) (domain.Asset, error) {
	return r.update(id, func(a *domain.Asset) {
		if mime != "" {
			a.MIME = mime
		}
		a.SizeBytes, a.StoredBytes = sizeBytes, storedBytes
	})
}

func (r *Repo) Associate(_ context.Context, id domain.BlobID, as domain.Association) (domain.Asset, error) {
	return r.update(id, func(a *domain.Asset) {
		a.ProjectID = as.ProjectID
		a.State = domain.AssetAssociated
		if as.ProjectID == nil {
			a.State = domain.AssetStaged
		}
		a.Tags = as.Tags
		if a.Tags == nil {
			a.Tags = []string{}
		}
		a.Metadata = as.Metadata
		if a.Metadata == nil {
			a.Metadata = []domain.MetaField{}
		}
	})
}

func (r *Repo) DeleteAsset(_ context.Context, id domain.BlobID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.assets[id]; !ok {
		return notFound(id)
	}
	delete(r.assets, id)
	return nil
}
