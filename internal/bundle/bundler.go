// Package bundle отдаёт ассеты владельца: один — как есть, несколько — zip-архивом.
package bundle

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/EgorLis/my-assets/internal/metrics"
)

const ArchiveName = "assets.zip"

// Source: откуда берутся ассеты. Реализация — assets.Store.
type Source interface {
	List(ctx context.Context, owner domain.OwnerID, f domain.ListFilter) ([]domain.Asset, error)
	Load(ctx context.Context, a domain.Asset) ([]byte, error)
}

type Bundler struct {
	src     Source
	log     *log.Logger
	metrics *metrics.Metrics
}

func New(src Source, logger *log.Logger, m *metrics.Metrics) *Bundler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Bundler{src: src, log: logger, metrics: m}
}

// Bundle: готовый к отдаче результат. Для архива тела читаются лениво в WriteTo.
type Bundle struct {
	Archive     bool
	FileName    string
	ContentType string
	Count       int

	single []byte
	assets []domain.Asset
	b      *Bundler
}

// Get собирает всё, что есть у владельца. Пусто — ErrNotFound.
func (b *Bundler) Get(ctx context.Context, owner domain.OwnerID) (*Bundle, error) {
	list, err := b.src.List(ctx, owner, domain.ListFilter{})
	if err != nil {
		return nil, err
	}
	switch len(list) {
	case 0:
		b.metrics.Retrieval("bundle", "not_found")
		return nil, domain.E(domain.ErrNotFound, "bundle.get", "owner has no assets")
	case 1:
		a := list[0]
		raw, err := b.src.Load(ctx, a)
		if err != nil {
			b.metrics.Retrieval("single", "error")
			return nil, err
		}
		b.metrics.Retrieval("single", "ok")
		return &Bundle{
			FileName:    a.FileName,
			ContentType: a.MIME,
			Count:       1,
			single:      raw,
		}, nil
	default:
		return &Bundle{
			Archive:     true,
			FileName:    ArchiveName,
			ContentType: "application/zip",
			Count:       len(list),
			assets:      list,
			b:           b,
		}, nil
	}
}

// WriteTo пишет тело ответа. Для архива ошибка посреди потока означает
// оборванный zip: заголовки к этому моменту уже отправлены.
func (bu *Bundle) WriteTo(w io.Writer) (int64, error) {
	if !bu.Archive {
		n, err := w.Write(bu.single)
		return int64(n), err
	}
	return bu.b.writeArchive(context.Background(), w, bu.assets)
}

// WriteToContext: WriteTo с контекстом запроса.
func (bu *Bundle) WriteToContext(ctx context.Context, w io.Writer) (int64, error) {
	if !bu.Archive {
		return bu.WriteTo(w)
	}
	return bu.b.writeArchive(ctx, w, bu.assets)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (b *Bundler) writeArchive(ctx context.Context, w io.Writer, list []domain.Asset) (int64, error) {
	cw := &countingWriter{w: w}
	zw := zip.NewWriter(cw)
	names := newNameSet()
	for _, a := range list {
		if err := ctx.Err(); err != nil {
			b.metrics.Retrieval("bundle", "canceled")
			return cw.n, err
		}
		raw, err := b.src.Load(ctx, a)
		if err != nil {
			b.metrics.Retrieval("bundle", "error")
			b.log.Printf("bundle: load %s: %v", a.BlobID, err)
			return cw.n, err
		}
		// payload уже сжат кодеком либо несжимаем — второй раз не жмём
		hdr := &zip.FileHeader{
			Name:     names.unique(a.FileName),
			Method:   zip.Store,
			Modified: modTime(a),
		}
		f, err := zw.CreateHeader(hdr)
		if err != nil {
			return cw.n, fmt.Errorf("bundle: entry %q: %w", hdr.Name, err)
		}
		if _, err := f.Write(raw); err != nil {
			return cw.n, fmt.Errorf("bundle: write %q: %w", hdr.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return cw.n, fmt.Errorf("bundle: close archive: %w", err)
	}
	b.metrics.Retrieval("bundle", "ok")
	return cw.n, nil
}

func modTime(a domain.Asset) time.Time {
	if !a.UpdatedAt.IsZero() {
		return a.UpdatedAt
	}
	return a.CreatedAt
}

// nameSet раздаёт уникальные имена записей: "a.png", "a (2).png", ...
type nameSet map[string]struct{}

func newNameSet() nameSet { return nameSet{} }

func (s nameSet) unique(name string) string {
	if name == "" {
		name = "asset"
	}
	if _, taken := s[strings.ToLower(name)]; !taken {
		s[strings.ToLower(name)] = struct{}{}
		return name
	}
	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		cand := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, taken := s[strings.ToLower(cand)]; !taken {
			s[strings.ToLower(cand)] = struct{}{}
			return cand
		}
	}
}
