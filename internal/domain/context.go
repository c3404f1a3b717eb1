package domain

import "context"

// Ключ для хранения владельца (из identity provider) в контексте HTTP-запроса
type ctxKey int

const (
	ownerCtxKey ctxKey = iota + 1
	claimsCtxKey
)

func WithOwner(ctx context.Context, id OwnerID) context.Context {
	return context.WithValue(ctx, ownerCtxKey, id)
}

func OwnerFromCtx(ctx context.Context) (OwnerID, bool) {
	id, ok := ctx.Value(ownerCtxKey).(OwnerID)
	return id, ok
}

// WithClaims кладёт разобранный токен: нужен для отзыва собственного токена.
func WithClaims(ctx context.Context, c TokenClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, c)
}

func ClaimsFromCtx(ctx context.Context) (TokenClaims, bool) {
	c, ok := ctx.Value(claimsCtxKey).(TokenClaims)
	return c, ok
}
