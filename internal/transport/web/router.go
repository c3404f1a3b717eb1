package web

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/EgorLis/my-assets/internal/docs"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/asset"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/health"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/session"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/upload"
)

type handlers struct {
	health  *health.Handler
	upload  *upload.Handler
	asset   *asset.Handler
	session *session.Handler
}

func newRouter(h handlers, auth mw.AuthDeps, obs Observability, maxChunk int64, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, mw.Instrument(obs.Metrics, pattern, fn))
	}
	secured := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, mw.Instrument(obs.Metrics, pattern, mw.RequireAuth(auth, fn)))
	}

	// health
	handle("GET /v1/healthz", h.health.Liveness)
	handle("GET /v1/readyz", h.health.Readiness)

	// uploads
	// чанк + поля формы; запас на multipart-обвязку
	secured("POST /v1/uploads/chunks", limitBody(maxChunk+1<<20, h.upload.Chunk))
	secured("POST /v1/uploads/complete", h.upload.Complete)
	secured("GET /v1/uploads/status", h.upload.Status)

	// assets
	secured("GET /v1/assets", h.asset.List)
	secured("GET /v1/assets/bundle", h.asset.Bundle)
	secured("GET /v1/assets/{id}", h.asset.GetOne)
	secured("PUT /v1/assets/{id}", h.asset.Update)
	secured("DELETE /v1/assets/{id}", h.asset.Delete)
	secured("POST /v1/assets/{id}/association", h.asset.Associate)

	// session
	secured("DELETE /v1/session", h.session.Logout)

	// metrics
	if obs.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	// swagger
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	// 🔗 middleware
	return mw.WithRequestID(mw.Logging(logger)(mux))
}

func limitBody(n int64, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, n)
		h(w, r)
	}
}
