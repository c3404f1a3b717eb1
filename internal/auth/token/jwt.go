// Package token: identity provider на стороне сервиса: разбирает JWT,
// выданный сервисом аутентификации, и достаёт ownerId (claim "uid").
// Issue нужен для dev-токенов (assetd token) и тестов.
package token

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/EgorLis/my-assets/internal/domain"
)

type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func New(secret string, issuer string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

type jwtClaims struct {
	OwnerID uuid.UUID `json:"uid"`
	Login   string    `json:"login,omitempty"`
	jwt.RegisteredClaims
}

var _ domain.TokenManager = (*Manager)(nil)

func (m *Manager) Issue(_ context.Context, owner domain.OwnerID, login string) (domain.Token, domain.TokenClaims, error) {
	now := time.Now().UTC()
	cl := jwtClaims{
		OwnerID: owner,
		Login:   login,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   owner.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
	if err != nil {
		return "", domain.TokenClaims{}, err
	}
	return signed, toDomain(cl), nil
}

// Parse проверяет подпись, срок и issuer. Токен без uid невалиден.
func (m *Manager) Parse(_ context.Context, raw domain.Token) (domain.TokenClaims, error) {
	var cl jwtClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	tkn, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return domain.TokenClaims{}, err
	}
	if !tkn.Valid || cl.OwnerID == uuid.Nil {
		return domain.TokenClaims{}, jwt.ErrTokenInvalidClaims
	}
	return toDomain(cl), nil
}

func toDomain(cl jwtClaims) domain.TokenClaims {
	out := domain.TokenClaims{JTI: cl.ID, OwnerID: cl.OwnerID, Login: cl.Login}
	if cl.IssuedAt != nil {
		out.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		out.ExpiresAt = cl.ExpiresAt.Time
	}
	return out
}
