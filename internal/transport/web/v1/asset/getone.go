package asset

import (
	"fmt"
	"net/http"

	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

// GetOne godoc
// @Summary     Get asset
// @Description Исходные байты ассета (payload разжимается на лету). HEAD — только заголовки.
// @Tags        assets
// @Produce     octet-stream
// @Security    Bearer
// @Param       id path string true "blob id"
// @Success     200 {file}   []byte
// @Failure     404 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope "integrity fault"
// @Router      /v1/assets/{id} [get]
func (h *Handler) GetOne(w http.ResponseWriter, r *http.Request) {
	const op = "assets.get_one"
	reqID := mw.RequestIDFromCtx(r.Context())
	owner, id, ok := h.owned(w, r, op)
	if !ok {
		return
	}

	if r.Method == http.MethodHead {
		a, err := h.Store.Meta(r.Context(), owner, id)
		if err != nil {
			v1.WriteDomainError(w, r, err)
			return
		}
		h.assetHeaders(w, a)
		w.Header().Set("Content-Length", fmt.Sprint(a.SizeBytes))
		w.WriteHeader(http.StatusOK)
		return
	}

	a, raw, err := h.Store.Get(r.Context(), owner, id)
	if err != nil {
		logx.Error(h.Log, reqID, op, "get failed", err, "blob_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	h.assetHeaders(w, a)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == weakETag(a) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(raw)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
	logx.Info(h.Log, reqID, op, "ok", "blob_id", id, "bytes", len(raw))
}
