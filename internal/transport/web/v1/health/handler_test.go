package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/my-assets/internal/domain"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestLiveness(t *testing.T) {
	h := &Handler{Log: log.New(io.Discard, "", 0)}
	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadiness(t *testing.T) {
	h := &Handler{Log: log.New(io.Discard, "", 0), DB: pinger{}, Storage: pinger{}}
	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/v1/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "кэш не настроен — не мешает готовности")

	h.Storage = pinger{err: errors.New("bucket gone")}
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest(http.MethodGet, "/v1/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var env domain.APIEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "storage unavailable", env.Error.Text)
}
