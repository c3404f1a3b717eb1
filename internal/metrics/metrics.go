// Package metrics: Prometheus-метрики пайплайна загрузки.
// Все методы безопасны на nil-получателе: в тестах метрики можно не передавать.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	chunks        *prometheus.CounterVec
	chunkBytes    prometheus.Counter
	merges        *prometheus.CounterVec
	mergeDuration prometheus.Histogram
	storedBytes   *prometheus.CounterVec
	retrievals    *prometheus.CounterVec
	swept         *prometheus.CounterVec
	requests      *prometheus.CounterVec
	reqDuration   *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		chunks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "myassets", Subsystem: "ingest", Name: "chunks_total",
			Help: "Chunk uploads by result",
		}, []string{"result"}),
		chunkBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "myassets", Subsystem: "ingest", Name: "chunk_bytes_total",
			Help: "Bytes accepted into the chunk store",
		}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "myassets", Subsystem: "ingest", Name: "merges_total",
			Help: "Merge attempts by result",
		}, []string{"result"}),
		mergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "myassets", Subsystem: "ingest", Name: "merge_duration_seconds",
			Help:    "Time spent inside the merge critical section",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		storedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "myassets", Subsystem: "store", Name: "bytes_total",
			Help: "Raw and compressed bytes written to the asset store",
		}, []string{"kind"}),
		retrievals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "myassets", Subsystem: "store", Name: "retrievals_total",
			Help: "Asset retrievals by mode (single, archive) and result",
		}, []string{"mode", "result"}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "myassets", Subsystem: "sweeper", Name: "removed_total",
			Help: "Files removed by the abandoned-upload sweeper",
		}, []string{"area"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "myassets", Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests",
		}, []string{"method", "route", "status"}),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "myassets", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route"}),
	}
	if reg != nil {
		reg.MustRegister(m.chunks, m.chunkBytes, m.merges, m.mergeDuration, m.storedBytes,
			m.retrievals, m.swept, m.requests, m.reqDuration)
	}
	return m
}

func (m *Metrics) Chunk(result string, bytes int64) {
	if m == nil {
		return
	}
	m.chunks.WithLabelValues(result).Inc()
	if bytes > 0 {
		m.chunkBytes.Add(float64(bytes))
	}
}

func (m *Metrics) Merge(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues(result).Inc()
	if d > 0 {
		m.mergeDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) Stored(raw, compressed int64) {
	if m == nil {
		return
	}
	m.storedBytes.WithLabelValues("raw").Add(float64(raw))
	m.storedBytes.WithLabelValues("compressed").Add(float64(compressed))
}

func (m *Metrics) Retrieval(mode, result string) {
	if m == nil {
		return
	}
	m.retrievals.WithLabelValues(mode, result).Inc()
}

func (m *Metrics) Swept(area string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.WithLabelValues(area).Add(float64(n))
}

func (m *Metrics) Request(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, statusClass(status)).Inc()
	m.reqDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
