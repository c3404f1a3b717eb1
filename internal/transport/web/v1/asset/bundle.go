package asset

import (
	"fmt"
	"net/http"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

// Bundle godoc
// @Summary     Get all assets
// @Description Один ассет — как есть, несколько — zip (без повторного сжатия)
// @Tags        assets
// @Produce     octet-stream
// @Security    Bearer
// @Success     200 {file}   []byte
// @Failure     404 {object} domain.APIEnvelope
// @Router      /v1/assets/bundle [get]
func (h *Handler) Bundle(w http.ResponseWriter, r *http.Request) {
	const op = "assets.bundle"
	reqID := mw.RequestIDFromCtx(r.Context())
	owner, ok := domain.OwnerFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	b, err := h.Bundler.Get(r.Context(), owner)
	if err != nil {
		logx.Error(h.Log, reqID, op, "bundle failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", b.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(b.FileName))
	w.Header().Set("X-Asset-Count", fmt.Sprint(b.Count))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	n, err := b.WriteToContext(r.Context(), w)
	if err != nil {
		// статус уже ушёл, клиент получит оборванный поток
		logx.Error(h.Log, reqID, op, "stream aborted", err, "written", n)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "assets", b.Count, "archive", b.Archive, "bytes", n)
}
