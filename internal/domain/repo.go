package domain

import "context"

// Фильтр списка ассетов владельца
type ListFilter struct {
	Palette bool // только ассеты без проекта
	Page    int  // с 1
	Limit   int
}

// AssetsRepo: каталог метаданных ассетов (Postgres или in-memory).
type AssetsRepo interface {
	Ping(context.Context) error
	Close()

	CreateAsset(ctx context.Context, a Asset) (Asset, error)
	AssetByID(ctx context.Context, id BlobID) (Asset, error)
	AssetsByOwner(ctx context.Context, owner OwnerID, f ListFilter) ([]Asset, error)
	// Новые размеры/MIME после перезаписи payload; mime == "" — не менять
	UpdatePayloadMeta(ctx context.Context, id BlobID, mime string, sizeBytes, storedBytes int64) (Asset, error)
	Associate(ctx context.Context, id BlobID, as Association) (Asset, error)
	DeleteAsset(ctx context.Context, id BlobID) error
}
