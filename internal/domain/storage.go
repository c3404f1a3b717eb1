package domain

import (
	"context"
	"io"
)

// PayloadStorage хранит сжатые payload'ы ассетов (локальный диск или S3/MinIO).
// Ключ — blobId. Put обязан быть атомарным для читателей.
type PayloadStorage interface {
	Put(ctx context.Context, id BlobID, r io.Reader, size int64) error
	Get(ctx context.Context, id BlobID) (io.ReadCloser, error)
	Delete(ctx context.Context, id BlobID) error
	Ping(ctx context.Context) error
}
