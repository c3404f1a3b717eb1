package mw

import (
	"net/http"
	"strings"

	"github.com/EgorLis/my-assets/internal/domain"
)

type AuthDeps struct {
	Tokens    domain.TokenManager
	Blacklist domain.TokenBlacklist // может быть nil — без ревокации
}

const unauthorizedBody = `{"error":{"code":1001,"text":"unauthorized"}}`

// RequireAuth проверяет JWT и кладёт ownerId в контекст запроса.
func RequireAuth(deps AuthDeps, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			unauthorized(w)
			return
		}
		claims, err := deps.Tokens.Parse(r.Context(), raw)
		if err != nil {
			unauthorized(w)
			return
		}
		if deps.Blacklist != nil {
			if revoked, _ := deps.Blacklist.IsRevoked(r.Context(), claims.JTI); revoked {
				unauthorized(w)
				return
			}
		}
		ctx := domain.WithOwner(domain.WithClaims(r.Context(), claims), claims.OwnerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(unauthorizedBody + "\n"))
}

// Authorization: Bearer ... или ?token= (ссылки на скачивание из браузера)
func tokenFromRequest(r *http.Request) string {
	if t := extractBearer(r.Header.Get("Authorization")); t != "" {
		return t
	}
	return r.URL.Query().Get("token")
}

func extractBearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
