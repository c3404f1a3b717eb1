package session

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/EgorLis/my-assets/internal/domain"
)

type memBlacklist struct {
	revoked map[string]time.Time
	err     error
}

func (b *memBlacklist) Revoke(_ context.Context, jti string, exp time.Time) error {
	if b.err != nil {
		return b.err
	}
	b.revoked[jti] = exp
	return nil
}

func (b *memBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, ok := b.revoked[jti]
	return ok, nil
}

func logoutRequest(claims *domain.TokenClaims) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/v1/session", nil)
	if claims != nil {
		req = req.WithContext(domain.WithClaims(req.Context(), *claims))
	}
	return req
}

func TestLogoutRevokesCurrentToken(t *testing.T) {
	bl := &memBlacklist{revoked: map[string]time.Time{}}
	h := &Handler{Log: log.New(io.Discard, "", 0), Blacklist: bl}
	exp := time.Now().Add(time.Hour).UTC()

	rec := httptest.NewRecorder()
	h.Logout(rec, logoutRequest(&domain.TokenClaims{JTI: "j1", OwnerID: uuid.New(), ExpiresAt: exp}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":{"revoked":"j1"}}`, rec.Body.String())
	assert.Equal(t, exp, bl.revoked["j1"])
}

func TestLogoutErrors(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	claims := &domain.TokenClaims{JTI: "j1", ExpiresAt: time.Now().Add(time.Hour)}

	cases := []struct {
		name   string
		h      *Handler
		claims *domain.TokenClaims
		status int
	}{
		{"no claims", &Handler{Log: quiet, Blacklist: &memBlacklist{}}, nil, http.StatusUnauthorized},
		{"no redis", &Handler{Log: quiet}, claims, http.StatusNotImplemented},
		{"redis down", &Handler{Log: quiet, Blacklist: &memBlacklist{err: errors.New("down")}}, claims, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.h.Logout(rec, logoutRequest(tc.claims))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
