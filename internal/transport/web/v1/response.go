package v1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/transport/web/mw"
)

// MapDomainError решает HTTP-статус + error.code/text для конверта
func MapDomainError(err error) (httpStatus int, env domain.APIEnvelope) {
	var mce *domain.MissingChunkError
	switch {
	case errors.As(err, &mce):
		env = domain.Fail(domain.ErrCodeMissingChunk, "missing chunks")
		env.Error.Missing = mce.Missing
		return http.StatusConflict, env
	case errors.Is(err, domain.ErrBadParams):
		return http.StatusBadRequest, domain.Fail(domain.ErrCodeBadParams, withDetail("bad params", err))
	case errors.Is(err, domain.ErrUnauth):
		return http.StatusUnauthorized, domain.Fail(domain.ErrCodeUnauth, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.Fail(domain.ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, domain.Fail(domain.ErrCodeMethodNotAllowed, "method not allowed")
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented, domain.Fail(domain.ErrCodeNotImplemented, "not implemented")
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.Fail(domain.ErrCodeNotFound, "not found")
	case errors.Is(err, domain.ErrMissingChunk):
		return http.StatusConflict, domain.Fail(domain.ErrCodeMissingChunk, "missing chunks")
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, domain.Fail(domain.ErrCodeConflict, "merge already in progress")
	case errors.Is(err, domain.ErrCodec):
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodeCodec, "stored payload failed integrity check")
	case errors.Is(err, domain.ErrPartialDelete):
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodePartialDelete, "asset partially deleted")
	default:
		// Таймауты/отмены — как 500
		return http.StatusInternalServerError, domain.Fail(domain.ErrCodeUnexpected, "unexpected")
	}
}

// текст валидации клиенту полезен: какой параметр не так
func withDetail(text string, err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Msg != "" {
		return text + ": " + de.Msg
	}
	return text
}

// WriteEnvelope пишет конверт; для HEAD — без тела
func WriteEnvelope(w http.ResponseWriter, r *http.Request, status int, env domain.APIEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", mw.RequestIDFromCtx(r.Context()))
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(env)
}

// Шорткаты успеха
func WriteOKData(w http.ResponseWriter, r *http.Request, data any) {
	WriteEnvelope(w, r, http.StatusOK, domain.OkData(data))
}
func WriteOKResponse(w http.ResponseWriter, r *http.Request, resp any) {
	WriteEnvelope(w, r, http.StatusOK, domain.OkResponse(resp))
}

// Шорткаты ошибок
func WriteDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := MapDomainError(err)
	WriteEnvelope(w, r, status, env)
}

// Стандартный формат времени заголовков
func HTTPTime(t time.Time) string {
	return t.UTC().Format(http.TimeFormat)
}
