// Package merge склеивает чанки одной загрузки в артефакт.
//
// Склейка пишет во временный файл и переименовывает его только после того,
// как добавлены все чанки; исходные чанки удаляются после переименования.
// Упавшая склейка оставляет все имеющиеся чанки на месте.
//
// Engine не сериализует вызовы сам: на один (owner, fileName) одновременно
// должна идти одна склейка, это обеспечивает вызывающий.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/EgorLis/my-assets/internal/domain"
	"github.com/google/uuid"
)

// Source: откуда берём чанки (chunkstore.Store).
type Source interface {
	Missing(owner domain.OwnerID, fileName string, total int) []int
	Open(owner domain.OwnerID, fileName string, index int) (io.ReadCloser, error)
	Remove(owner domain.OwnerID, fileName string, index int) error
}

type Engine struct {
	src  Source
	root string
	tmp  string
	log  *log.Logger
}

func New(src Source, root string, logger *log.Logger) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("merge: resolve root: %w", err)
	}
	tmp := filepath.Join(abs, ".tmp")
	if err := os.MkdirAll(tmp, 0o750); err != nil {
		return nil, fmt.Errorf("merge: create root: %w", err)
	}
	return &Engine{src: src, root: abs, tmp: tmp, log: logger}, nil
}

// Artifact: результат склейки. Живёт один цикл: вызывающий обязан Remove.
type Artifact struct {
	Path     string
	Size     int64
	Owner    domain.OwnerID
	FileName string
}

func (a *Artifact) Open() (*os.File, error) { return os.Open(a.Path) }

func (a *Artifact) ReadAll() ([]byte, error) { return os.ReadFile(a.Path) }

func (a *Artifact) Remove() error {
	err := os.Remove(a.Path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Merge склеивает чанки 0..total-1 строго по возрастанию индекса.
func (e *Engine) Merge(ctx context.Context, owner domain.OwnerID, fileName string, total int) (*Artifact, error) {
	const op = "merge"
	name := domain.BaseFileName(fileName)
	if name == "" {
		return nil, domain.Validation(op, "invalid file name %q", fileName)
	}
	if total < 1 {
		return nil, domain.Validation(op, "totalChunks must be positive, got %d", total)
	}

	// повторная проверка полноты прямо перед склейкой
	if missing := e.src.Missing(owner, name, total); len(missing) > 0 {
		if len(missing) == total {
			return nil, domain.E(domain.ErrNotFound, op, fmt.Sprintf("no chunks for %q", name))
		}
		return nil, &domain.MissingChunkError{FileName: name, Index: missing[0], Missing: missing}
	}

	start := time.Now()
	f, err := os.CreateTemp(e.tmp, "merge-*")
	if err != nil {
		return nil, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	tmpName := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(tmpName)
		}
	}()

	var size int64
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := e.appendChunk(f, owner, name, i)
		if errors.Is(err, fs.ErrNotExist) {
			// чанк пропал между проверкой и его очередью
			missing := e.src.Missing(owner, name, total)
			if len(missing) == 0 {
				missing = []int{i}
			}
			return nil, &domain.MissingChunkError{FileName: name, Index: i, Missing: missing}
		}
		if err != nil {
			return nil, domain.Wrap(domain.ErrUnexpected, op, fmt.Errorf("chunk %d: %w", i, err))
		}
		size += n
	}
	if err := f.Sync(); err != nil {
		return nil, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	if err := f.Close(); err != nil {
		return nil, domain.Wrap(domain.ErrUnexpected, op, err)
	}

	dir := filepath.Join(e.root, owner.String())
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	// уникальное имя: предыдущий артефакт с тем же именем может ещё сжиматься
	final := filepath.Join(dir, name+"."+uuid.NewString()+".merged")
	if err := os.Rename(tmpName, final); err != nil {
		return nil, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	committed = true

	for i := 0; i < total; i++ {
		if err := e.src.Remove(owner, name, i); err != nil && e.log != nil {
			e.log.Printf("warn: chunk %d of %q not removed after merge: %v", i, name, err)
		}
	}

	if e.log != nil {
		e.log.Printf("merged owner=%s file=%q chunks=%d bytes=%d in %s", owner, name, total, size, time.Since(start))
	}
	return &Artifact{Path: final, Size: size, Owner: owner, FileName: name}, nil
}

func (e *Engine) appendChunk(dst io.Writer, owner domain.OwnerID, name string, index int) (int64, error) {
	rc, err := e.src.Open(owner, name, index)
	if err != nil {
		return 0, err
	}
	defer rc.Close()
	return io.Copy(dst, rc)
}

// SweepOlderThan убирает артефакты и временные файлы, оставшиеся после падения процесса.
func (e *Engine) SweepOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().Before(cutoff) {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
