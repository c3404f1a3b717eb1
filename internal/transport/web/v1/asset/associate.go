package asset

import (
	"encoding/json"
	"net/http"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

type associateRequest struct {
	ProjectID *domain.ProjectID  `json:"projectId"`
	Tags      []string           `json:"tags"`
	Metadata  []domain.MetaField `json:"metadata"`
}

// Associate godoc
// @Summary     Associate asset with project/tags
// @Description Вызывается подсистемой проектов и тегов. projectId = null возвращает ассет в палитру.
// @Tags        assets
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       id   path string           true "blob id"
// @Param       body body associateRequest true "association"
// @Success     200 {object} domain.APIEnvelope{data=domain.Asset}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Router      /v1/assets/{id}/association [post]
func (h *Handler) Associate(w http.ResponseWriter, r *http.Request) {
	const op = "assets.associate"
	reqID := mw.RequestIDFromCtx(r.Context())
	owner, id, ok := h.owned(w, r, op)
	if !ok {
		return
	}
	var req associateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		v1.WriteDomainError(w, r, domain.Validation(op, "invalid json body"))
		return
	}
	if _, err := h.Store.Meta(r.Context(), owner, id); err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	a, err := h.Store.Associate(r.Context(), id, domain.Association{
		ProjectID: req.ProjectID,
		Tags:      req.Tags,
		Metadata:  req.Metadata,
	})
	if err != nil {
		logx.Error(h.Log, reqID, op, "associate failed", err, "blob_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "blob_id", id, "state", string(a.State))
	v1.WriteOKData(w, r, a)
}
