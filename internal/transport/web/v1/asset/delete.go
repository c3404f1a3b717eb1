package asset

import (
	"net/http"

	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

// Delete godoc
// @Summary     Delete asset
// @Tags        assets
// @Produce     json
// @Security    Bearer
// @Param       id path string true "blob id"
// @Success     200 {object} domain.APIEnvelope{response=map[string]string}
// @Failure     404 {object} domain.APIEnvelope
// @Failure     500 {object} domain.APIEnvelope "partial delete, needs reconciliation"
// @Router      /v1/assets/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "assets.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	owner, id, ok := h.owned(w, r, op)
	if !ok {
		return
	}
	if _, err := h.Store.Meta(r.Context(), owner, id); err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	if err := h.Store.Delete(r.Context(), id); err != nil {
		logx.Error(h.Log, reqID, op, "delete failed", err, "blob_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "blob_id", id)
	v1.WriteOKResponse(w, r, map[string]string{"deleted": id.String()})
}
