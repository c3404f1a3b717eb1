package domain

import "context"

// Ключи кеша — единое место, чтобы не расползались по коду.
func CacheKeyAssetMeta(id BlobID) string { return "assetmeta:" + id.String() }
func CacheKeyTokenJTI(jti string) string { return "jti:" + jti }
func CacheKeyMergeLease(owner OwnerID, fileName string) string {
	return "merge:" + owner.String() + ":" + fileName
}

// Простой k/v интерфейс. Реализация — Redis.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, val []byte, ttlSeconds int) error
	Del(ctx context.Context, keys ...string) error
	Ping(context.Context) error
	Close()
}
