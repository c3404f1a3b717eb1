package blacklist

import (
	"context"
	"time"

	"github.com/EgorLis/my-assets/internal/domain"
)

// KV: минимальный интерфейс, который нам нужен от кеша.
type KV interface {
	SetNX(ctx context.Context, key string, val []byte, ttlSeconds int) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Store: отозванные jti до истечения срока токена.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store { return &Store{kv: kv} }

var _ domain.TokenBlacklist = (*Store)(nil)

// Revoke помечает jti отозванным до exp. Истёкший токен всё равно держим минуту.
func (s *Store) Revoke(ctx context.Context, jti string, exp time.Time) error {
	ttl := time.Until(exp)
	if ttl < time.Minute {
		ttl = time.Minute
	}
	_, err := s.kv.SetNX(ctx, domain.CacheKeyTokenJTI(jti), []byte("1"), int(ttl.Seconds()))
	return err
}

func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	return s.kv.Exists(ctx, domain.CacheKeyTokenJTI(jti))
}
