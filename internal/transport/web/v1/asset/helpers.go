package asset

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/EgorLis/my-assets/internal/domain"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

func weakETag(a domain.Asset) string {
	return fmt.Sprintf(`W/"%d-%s"`, a.Version, a.BlobID.String()[:8])
}

func contentDisposition(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

// owned достаёт владельца из контекста и {id} из пути.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request, op string) (domain.OwnerID, domain.BlobID, bool) {
	owner, ok := domain.OwnerFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return owner, uuid.Nil, false
	}
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		v1.WriteDomainError(w, r, domain.Validation(op, "invalid asset id %q", r.PathValue("id")))
		return owner, uuid.Nil, false
	}
	return owner, id, true
}

func (h *Handler) assetHeaders(w http.ResponseWriter, a domain.Asset) {
	w.Header().Set("Content-Type", a.MIME)
	w.Header().Set("Content-Disposition", contentDisposition(a.FileName))
	w.Header().Set("ETag", weakETag(a))
	w.Header().Set("Last-Modified", v1.HTTPTime(a.UpdatedAt))
	w.Header().Set("Cache-Control", "private, max-age=60")
}

func intParam(s string, dst *int) error {
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
