package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Базовые идентификаторы
type OwnerID = uuid.UUID
type BlobID = uuid.UUID
type ProjectID = uuid.UUID

// Состояние ассета: в палитре (без проекта) или привязан к проекту
type AssetState string

const (
	AssetStaged     AssetState = "staged"
	AssetAssociated AssetState = "associated"
)

// Произвольное поле метаданных (задаётся подсистемой тегов)
type MetaField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Asset: долговременная запись о сохранённом (сжатом) файле
type Asset struct {
	BlobID    BlobID      `json:"blob_id"`
	OwnerID   OwnerID     `json:"owner_id"`
	FileName  string      `json:"file_name"`
	MIME      string      `json:"mime"`
	ProjectID *ProjectID  `json:"project_id,omitempty"` // nil — ассет в палитре
	State     AssetState  `json:"state"`
	Tags      []string    `json:"tags"`
	Metadata  []MetaField `json:"metadata"`

	SizeBytes   int64 `json:"size_bytes"`   // размер исходных байт
	StoredBytes int64 `json:"stored_bytes"` // размер сжатого payload

	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
	Version   int64     `json:"version"`
}

// SizeKB округляет вверх, как в каталоге старого сервиса.
func (a Asset) SizeKB() int64 { return (a.SizeBytes + 1023) / 1024 }

// MarshalJSON добавляет вычисляемое поле size_kb. В каталоге оно не хранится.
func (a Asset) MarshalJSON() ([]byte, error) {
	type plain Asset
	return json.Marshal(struct {
		plain
		SizeKB int64 `json:"size_kb"`
	}{plain: plain(a), SizeKB: a.SizeKB()})
}

// InPalette: ассет ещё не привязан к проекту
func (a Asset) InPalette() bool { return a.ProjectID == nil }

// Привязка ассета к проекту/тегам (вызов внешней подсистемы тегов)
type Association struct {
	ProjectID *ProjectID
	Tags      []string
	Metadata  []MetaField
}

// Результат приёма одного чанка
type ChunkResult struct {
	FileName         string `json:"fileName"` // имя после санитизации
	IsLastChunk      bool   `json:"isLastChunk"`
	AllChunksPresent bool   `json:"allChunksPresent"`
}

// Состояние загрузки (машина состояний пайплайна)
type UploadState string

const (
	UploadReceiving   UploadState = "RECEIVING_CHUNKS"
	UploadMerging     UploadState = "MERGING"
	UploadCompressing UploadState = "COMPRESSING"
	UploadStored      UploadState = "STORED"
)

// UploadKey: ключ загрузки (owner, fileName) для блокировок склейки и статуса.
func UploadKey(owner OwnerID, fileName string) string { return owner.String() + "/" + fileName }
