package mw

import (
	"log"
	"net/http"
	"time"

	"github.com/EgorLis/my-assets/internal/metrics"
)

// metaWriter запоминает статус и размер ответа
type metaWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (m *metaWriter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *metaWriter) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.size += int64(n)
	return n, err
}

// Unwrap нужен http.ResponseController (Flush, дедлайны).
func (m *metaWriter) Unwrap() http.ResponseWriter { return m.ResponseWriter }

func (m *metaWriter) code() int {
	if m.status == 0 {
		return http.StatusOK
	}
	return m.status
}

// Logging: middleware: старт/финиш запроса, статус, размер, длительность
func Logging(l *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromCtx(r.Context())
			start := time.Now()

			mw := &metaWriter{ResponseWriter: w}

			next.ServeHTTP(mw, r)

			dur := time.Since(start)
			l.Printf("lvl=info req_id=%s method=%s path=%q status=%d size=%d duration_ms=%d",
				reqID, r.Method, r.URL.Path, mw.code(), mw.size, dur.Milliseconds())
		})
	}
}

// Instrument считает запросы маршрута в Prometheus. route — шаблон, а не путь:
// иначе метка взорвётся на каждом blobId.
func Instrument(m *metrics.Metrics, route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mw := &metaWriter{ResponseWriter: w}
		next.ServeHTTP(mw, r)
		m.Request(r.Method, route, mw.code(), time.Since(start))
	})
}
