package domain

import (
	"context"
	"time"
)

// Аутентификация вне нашего сервиса: нам приходит JWT, из которого берём ownerId.

type Token = string

type TokenClaims struct {
	JTI       string // уникальный id токена
	OwnerID   OwnerID
	Login     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type TokenManager interface {
	Issue(ctx context.Context, owner OwnerID, login string) (Token, TokenClaims, error)
	Parse(ctx context.Context, t Token) (TokenClaims, error)
}

// Блэклист/ревокация токенов (Redis)
type TokenBlacklist interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
