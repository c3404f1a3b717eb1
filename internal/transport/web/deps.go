package web

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/EgorLis/my-assets/internal/metrics"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/asset"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/health"
	"github.com/EgorLis/my-assets/internal/transport/web/v1/upload"
)

type Services struct {
	Pipeline upload.Pipeline
	Assets   asset.Store
	Bundler  asset.Bundler
	Codec    asset.Compressor
}

type Probes struct {
	DB      health.Pinger
	Storage health.Pinger
	Cache   health.Pinger // nil без Redis
}

type Observability struct {
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // nil — /metrics не публикуется
}

type Deps struct {
	Services Services
	Auth     mw.AuthDeps
	Probes   Probes
	Obs      Observability
}
