package session

import (
	"log"
	"net/http"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

type Handler struct {
	Log       *log.Logger
	Blacklist domain.TokenBlacklist // nil без Redis: отзывать некуда
}

type logoutResponse struct {
	Revoked string `json:"revoked"` // jti
}

// Logout godoc
// @Summary     Logout (revoke current token)
// @Description Помечает токен запроса отозванным до его exp. Без Redis — 501.
// @Tags        session
// @Produce     json
// @Security    Bearer
// @Success     200 {object} domain.APIEnvelope{response=logoutResponse}
// @Failure     401 {object} domain.APIEnvelope
// @Failure     501 {object} domain.APIEnvelope
// @Router      /v1/session [delete]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "session.logout"
	reqID := mw.RequestIDFromCtx(r.Context())

	claims, ok := domain.ClaimsFromCtx(r.Context())
	if !ok || claims.JTI == "" {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	if h.Blacklist == nil {
		logx.Error(h.Log, reqID, op, "revocation disabled", domain.ErrNotImplemented)
		v1.WriteDomainError(w, r, domain.ErrNotImplemented)
		return
	}

	// ревокация до exp
	if err := h.Blacklist.Revoke(r.Context(), claims.JTI, claims.ExpiresAt); err != nil {
		logx.Error(h.Log, reqID, op, "revoke failed", err, "jti", claims.JTI)
		v1.WriteDomainError(w, r, domain.ErrUnexpected)
		return
	}

	logx.Info(h.Log, reqID, op, "ok", "jti", claims.JTI, "owner", claims.OwnerID)
	v1.WriteOKResponse(w, r, logoutResponse{Revoked: claims.JTI})
}
