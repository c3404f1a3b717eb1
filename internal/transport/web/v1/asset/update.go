package asset

import (
	"io"
	"net/http"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

// Update godoc
// @Summary     Replace asset payload
// @Description Новая версия файла (после редактирования). Сжимается так же, как при загрузке.
// @Tags        assets
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       id       path     string true  "blob id"
// @Param       file     formData file   true  "new content"
// @Param       mimeType formData string false "new content type"
// @Success     200 {object} domain.APIEnvelope{data=domain.Asset}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Router      /v1/assets/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	const op = "assets.update"
	reqID := mw.RequestIDFromCtx(r.Context())
	owner, id, ok := h.owned(w, r, op)
	if !ok {
		return
	}
	if _, err := h.Store.Meta(r.Context(), owner, id); err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	if h.MaxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBody)
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		logx.Error(h.Log, reqID, op, "parse form", err)
		v1.WriteDomainError(w, r, domain.Validation(op, "invalid multipart body"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		v1.WriteDomainError(w, r, domain.Validation(op, "file is required"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		logx.Error(h.Log, reqID, op, "read file", err)
		v1.WriteDomainError(w, r, domain.Wrap(domain.ErrUnexpected, op, err))
		return
	}

	ct := r.FormValue("mimeType")
	if ct == "" {
		ct = hdr.Header.Get("Content-Type")
	}
	compressed, err := h.Codec.Compress(data, ct)
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	a, err := h.Store.Update(r.Context(), id, compressed, ct)
	if err != nil {
		logx.Error(h.Log, reqID, op, "update failed", err, "blob_id", id)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "blob_id", id, "version", a.Version, "raw", a.SizeBytes, "stored", a.StoredBytes)
	v1.WriteOKData(w, r, a)
}
