package upload

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/ingest"
	"github.com/EgorLis/my-assets/internal/transport/web/logx"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-assets/internal/transport/web/v1"
)

type Pipeline interface {
	ProcessChunk(ctx context.Context, owner domain.OwnerID, in ingest.ChunkInput) (ingest.ChunkOutcome, error)
	CompleteUpload(ctx context.Context, owner domain.OwnerID, fileName string, total int, mimeType string) (domain.Asset, error)
	Status(owner domain.OwnerID, fileName string, total int) (ingest.UploadStatus, error)
}

type Handler struct {
	Log      *log.Logger
	Pipeline Pipeline
}

// в памяти держим столько, остальное multipart пишет во временные файлы
const formMemory = 8 << 20

// Chunk godoc
// @Summary     Upload one chunk
// @Description Принимает один чанк файла. Чанки могут приходить в любом порядке.
// @Description Если пришёл последний индекс и все чанки на месте, загрузка завершается сразу.
// @Tags        uploads
// @Accept      multipart/form-data
// @Produce     json
// @Security    Bearer
// @Param       chunk            formData file   true  "chunk bytes"
// @Param       chunkNumber      formData int    true  "0-based chunk index"
// @Param       totalChunks      formData int    true  "total number of chunks"
// @Param       originalFileName formData string true  "client file name"
// @Param       mimeType         formData string false "content type of the whole file"
// @Success     200 {object} domain.APIEnvelope{data=ingest.ChunkOutcome}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     401 {object} domain.APIEnvelope
// @Failure     409 {object} domain.APIEnvelope
// @Router      /v1/uploads/chunks [post]
func (h *Handler) Chunk(w http.ResponseWriter, r *http.Request) {
	const op = "uploads.chunk"
	reqID := mw.RequestIDFromCtx(r.Context())

	owner, ok := domain.OwnerFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		logx.Error(h.Log, reqID, op, "parse form", err)
		v1.WriteDomainError(w, r, domain.Validation(op, "invalid multipart body"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	index, err1 := strconv.Atoi(r.FormValue("chunkNumber"))
	total, err2 := strconv.Atoi(r.FormValue("totalChunks"))
	if err1 != nil || err2 != nil {
		v1.WriteDomainError(w, r, domain.Validation(op, "chunkNumber and totalChunks must be integers"))
		return
	}
	name := r.FormValue("originalFileName")

	in := ingest.ChunkInput{FileName: name, Index: index, Total: total, MIME: r.FormValue("mimeType")}
	// отсутствующий файл отдаём в pipeline как nil: там единая проверка "пустой чанк"
	if f, _, err := r.FormFile("chunk"); err == nil {
		defer f.Close()
		in.Body = f
	}

	out, err := h.Pipeline.ProcessChunk(r.Context(), owner, in)
	if err != nil {
		logx.Error(h.Log, reqID, op, "chunk rejected", err, "file", name, "index", index, "total", total)
		v1.WriteDomainError(w, r, err)
		return
	}
	if out.Asset != nil {
		logx.Info(h.Log, reqID, op, "upload completed", "file", out.FileName, "blob_id", out.Asset.BlobID)
	} else {
		logx.Info(h.Log, reqID, op, "chunk stored", "file", out.FileName, "index", index, "total", total,
			"all_present", out.AllChunksPresent)
	}
	v1.WriteOKData(w, r, out)
}

type completeRequest struct {
	FileName    string `json:"fileName"`
	TotalChunks int    `json:"totalChunks"`
	MimeType    string `json:"mimeType,omitempty"`
}

// Complete godoc
// @Summary     Complete upload
// @Description Склеивает чанки, сжимает и сохраняет ассет. 409 с missing — докачать указанные чанки.
// @Tags        uploads
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       body body completeRequest true "upload to complete"
// @Success     200 {object} domain.APIEnvelope{data=domain.Asset}
// @Failure     400 {object} domain.APIEnvelope
// @Failure     404 {object} domain.APIEnvelope
// @Failure     409 {object} domain.APIEnvelope
// @Router      /v1/uploads/complete [post]
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	const op = "uploads.complete"
	reqID := mw.RequestIDFromCtx(r.Context())

	owner, ok := domain.OwnerFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	var req completeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		logx.Error(h.Log, reqID, op, "decode body", err)
		v1.WriteDomainError(w, r, domain.Validation(op, "invalid json body"))
		return
	}

	a, err := h.Pipeline.CompleteUpload(r.Context(), owner, req.FileName, req.TotalChunks, req.MimeType)
	if err != nil {
		logx.Error(h.Log, reqID, op, "complete failed", err, "file", req.FileName, "total", req.TotalChunks)
		v1.WriteDomainError(w, r, err)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "file", a.FileName, "blob_id", a.BlobID, "raw", a.SizeBytes, "stored", a.StoredBytes)
	v1.WriteOKData(w, r, a)
}

// Status godoc
// @Summary     Upload status
// @Description Какие чанки ещё не получены
// @Tags        uploads
// @Produce     json
// @Security    Bearer
// @Param       fileName    query string true "file name"
// @Param       totalChunks query int    true "total number of chunks"
// @Success     200 {object} domain.APIEnvelope{data=ingest.UploadStatus}
// @Failure     400 {object} domain.APIEnvelope
// @Router      /v1/uploads/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	const op = "uploads.status"
	owner, ok := domain.OwnerFromCtx(r.Context())
	if !ok {
		v1.WriteDomainError(w, r, domain.ErrUnauth)
		return
	}
	q := r.URL.Query()
	total, err := strconv.Atoi(q.Get("totalChunks"))
	if err != nil {
		v1.WriteDomainError(w, r, domain.Validation(op, "totalChunks must be an integer"))
		return
	}
	st, err := h.Pipeline.Status(owner, q.Get("fileName"), total)
	if err != nil {
		v1.WriteDomainError(w, r, err)
		return
	}
	v1.WriteOKData(w, r, st)
}
