package asset

import (
	"context"
	"log"

	"github.com/EgorLis/my-assets/internal/bundle"
	"github.com/EgorLis/my-assets/internal/domain"
)

type Store interface {
	Get(ctx context.Context, owner domain.OwnerID, id domain.BlobID) (domain.Asset, []byte, error)
	Meta(ctx context.Context, owner domain.OwnerID, id domain.BlobID) (domain.Asset, error)
	Update(ctx context.Context, id domain.BlobID, compressed []byte, mime string) (domain.Asset, error)
	Delete(ctx context.Context, id domain.BlobID) error
	Associate(ctx context.Context, id domain.BlobID, as domain.Association) (domain.Asset, error)
	List(ctx context.Context, owner domain.OwnerID, f domain.ListFilter) ([]domain.Asset, error)
}

type Bundler interface {
	Get(ctx context.Context, owner domain.OwnerID) (*bundle.Bundle, error)
}

type Compressor interface {
	Compress(data []byte, contentType string) ([]byte, error)
}

type Handler struct {
	Log     *log.Logger
	Store   Store
	Bundler Bundler
	Codec   Compressor
	MaxBody int64 // лимит тела PUT
}
