package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Бизнес-ошибки (маппятся на HTTP коды в transport/web/v1)
var (
	ErrBadParams        = errors.New("bad_params")         // 400, ошибка валидации
	ErrUnauth           = errors.New("unauthorized")       // 401
	ErrForbidden        = errors.New("forbidden")          // 403
	ErrNotFound         = errors.New("not_found")          // 404
	ErrMethodNotAllowed = errors.New("method_not_allowed") // 405
	ErrMissingChunk     = errors.New("missing_chunk")      // 409, нужно докачать чанки
	ErrConflict         = errors.New("conflict")           // 409, склейка уже идёт
	ErrCodec            = errors.New("codec_integrity")    // 500, битый payload
	ErrPartialDelete    = errors.New("partial_delete")     // 500, нужна сверка
	ErrNotImplemented   = errors.New("not_implemented")    // 501
	ErrUnexpected       = errors.New("unexpected")         // 500
)

// Коды ошибок в конверте ответа
const (
	ErrCodeBadParams        = 1000
	ErrCodeUnauth           = 1001
	ErrCodeForbidden        = 1003
	ErrCodeNotFound         = 1004
	ErrCodeMethodNotAllowed = 1005
	ErrCodeMissingChunk     = 1009
	ErrCodeConflict         = 1010
	ErrCodeCodec            = 1020
	ErrCodePartialDelete    = 1021
	ErrCodeNotImplemented   = 1501
	ErrCodeUnexpected       = 1500
)

// Error: структурированная ошибка пайплайна: машинный Kind + человеческое сообщение.
type Error struct {
	Kind error  // один из Err* выше
	Op   string // где случилось, напр. "chunkstore.put"
	Msg  string
	Err  error // исходная причина (может быть nil)
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	if e.Msg != "" {
		sb.WriteString(e.Msg)
	} else if e.Kind != nil {
		sb.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func E(kind error, op, msg string) error { return &Error{Kind: kind, Op: op, Msg: msg} }

func Wrap(kind error, op string, err error) error { return &Error{Kind: kind, Op: op, Err: err} }

func Validation(op, format string, args ...any) error {
	return &Error{Kind: ErrBadParams, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// MissingChunkError: склейка начата до реального завершения загрузки.
// Отличается от ErrNotFound: клиенту надо докачать Missing, а не начинать заново.
type MissingChunkError struct {
	FileName string
	Index    int   // первый отсутствующий индекс
	Missing  []int // все отсутствующие индексы на момент проверки
}

func (e *MissingChunkError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, i := range e.Missing {
		parts = append(parts, strconv.Itoa(i))
	}
	return fmt.Sprintf("missing chunk %d of %q (missing: [%s])", e.Index, e.FileName, strings.Join(parts, ","))
}

func (e *MissingChunkError) Unwrap() error { return ErrMissingChunk }

// PartialDeleteError: удалена только одна из половин (метаданные или payload).
type PartialDeleteError struct {
	BlobID         BlobID
	PayloadRemoved bool
	MetaRemoved    bool
	Err            error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("partial delete of %s (payload_removed=%t meta_removed=%t): %v",
		e.BlobID, e.PayloadRemoved, e.MetaRemoved, e.Err)
}

func (e *PartialDeleteError) Unwrap() []error { return []error{ErrPartialDelete, e.Err} }
