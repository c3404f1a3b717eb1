package asset

import (
	"net/http"
	"strings"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

type listResponse struct {
	Page   int            `json:"page"`
	Limit  int            `json:"limit"`
	Assets []domain.Asset `json:"assets"`
}

// List godoc
// @Summary     List assets
// @Tags        assets
// @Produce     json
// @Security    Bearer
// @Param       page    query int  false "page, from 1"
// @Param       limit   query int  false "page size, 1..1000"
// @Param       palette query bool false "only assets without project"
// @Success     200 {object} domain.APIEnvelope{data=listResponse}
// @Failure     400 {object} domain.APIEnvelope
// @Router      /v1/assets [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	const op = "assets.list"
	owner, ok := domain.OwnerFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	q := r.URL.Query()
	f := domain.ListFilter{Page: 1, Limit: 50}
	if err := intParam(q.Get("page"), &f.Page); err != nil {
		v1.WriteDomainError(w, r, domain.Validation(op, "page: %v", err))
		return
	}
	if err := intParam(q.Get("limit"), &f.Limit); err != nil {
		v1.WriteDomainError(w, r, domain.Validation(op, "limit: %v", err))
		return
	}
	switch strings.ToLower(q.Get("palette")) {
	case "", "0", "false":
	case "1", "true":
		f.Palette = true
	default:
		v1.WriteDomainError(w, r, domain.Validation(op, "palette must be a boolean"))
		return
	}

	list, err := h.Store.List(r.Context(), owner, f)
	if err != nil {
		logx.Error(h.Log, mw.RequestIDFromCtx(r.Context()), op, "list failed", err)
		v1.WriteDomainError(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Asset{}
	}
	v1.WriteOKData(w, r, listResponse{Page: f.Page, Limit: f.Limit, Assets: list})
}
