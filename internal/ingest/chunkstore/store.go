// Package chunkstore: staging-область чанков на диске.
//
// Раскладка: <root>/<ownerId>/<fileName>.part<index>. Каждый чанк сначала
// пишется во временный файл в <root>/.tmp и переименовывается на место,
// поэтому проверка полноты никогда не видит недописанный чанк.
package chunkstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/EgorLis/my-assets/internal/domain"
)

const tmpDirName = ".tmp"

type Store struct {
	root     string
	tmp      string
	maxChunk int64
	log      *log.Logger
	locks    Locker
}

// Locker: блокировки склейки по domain.UploadKey (lock.Keyed).
type Locker interface {
	TryLock(key string) (unlock func(), ok bool)
}

// GuardWith подключает блокировки склейки: sweeper пропускает чанки
// загрузки, которая сейчас склеивается.
func (s *Store) GuardWith(l Locker) *Store {
	s.locks = l
	return s
}

// New создаёт корень и каталог временных файлов. maxChunk <= 0 — без лимита.
func New(root string, maxChunk int64, logger *log.Logger) (*Store, error) {
	if root == "" {
		return nil, errors.New("chunkstore: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("chunkstore: resolve root: %w", err)
	}
	tmp := filepath.Join(abs, tmpDirName)
	if err := os.MkdirAll(tmp, 0o750); err != nil {
		return nil, fmt.Errorf("chunkstore: create root: %w", err)
	}
	return &Store{root: abs, tmp: tmp, maxChunk: maxChunk, log: logger}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) ownerDir(owner domain.OwnerID) string {
	return filepath.Join(s.root, owner.String())
}

// ChunkPath: путь чанка; fileName должен быть уже санитизирован.
func (s *Store) ChunkPath(owner domain.OwnerID, fileName string, index int) string {
	return filepath.Join(s.ownerDir(owner), fileName+".part"+strconv.Itoa(index))
}

func validate(op string, owner domain.OwnerID, rawName string, index, total int) (string, error) {
	if owner == (domain.OwnerID{}) {
		return "", domain.Validation(op, "owner id is required")
	}
	name := domain.BaseFileName(rawName)
	if name == "" {
		return "", domain.Validation(op, "invalid file name %q", rawName)
	}
	if total < 1 {
		return "", domain.Validation(op, "totalChunks must be positive, got %d", total)
	}
	if index < 0 || index >= total {
		return "", domain.Validation(op, "chunkIndex %d out of range [0,%d)", index, total)
	}
	return name, nil
}

// Put сохраняет один чанк. Пустой или отсутствующий payload отклоняется до записи.
func (s *Store) Put(ctx context.Context, owner domain.OwnerID, fileName string, index, total int, r io.Reader) (domain.ChunkResult, error) {
	const op = "chunkstore.put"
	name, err := validate(op, owner, fileName, index, total)
	if err != nil {
		return domain.ChunkResult{}, err
	}
	if r == nil {
		return domain.ChunkResult{}, domain.Validation(op, "chunk payload is missing")
	}
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ChunkResult{}, domain.Validation(op, "chunk %d of %q is empty", index, name)
		}
		return domain.ChunkResult{}, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	if err := ctx.Err(); err != nil {
		return domain.ChunkResult{}, err
	}

	// первое обращение владельца создаёт его каталог (идемпотентно)
	if err := os.MkdirAll(s.ownerDir(owner), 0o750); err != nil {
		return domain.ChunkResult{}, domain.Wrap(domain.ErrUnexpected, op, err)
	}

	n, err := s.writeAtomic(br, s.ChunkPath(owner, name, index))
	if err != nil {
		return domain.ChunkResult{}, err
	}

	res := domain.ChunkResult{
		FileName:         name,
		IsLastChunk:      index == total-1,
		AllChunksPresent: s.IsComplete(owner, name, total),
	}
	if s.log != nil {
		s.log.Printf("chunk stored owner=%s file=%q index=%d/%d bytes=%d complete=%t",
			owner, name, index, total, n, res.AllChunksPresent)
	}
	return res, nil
}

func (s *Store) writeAtomic(r io.Reader, dst string) (int64, error) {
	const op = "chunkstore.put"
	f, err := os.CreateTemp(s.tmp, "chunk-*")
	if err != nil {
		return 0, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	tmpName := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	src := r
	if s.maxChunk > 0 {
		src = io.LimitReader(r, s.maxChunk+1)
	}
	n, err := io.Copy(f, src)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	if s.maxChunk > 0 && n > s.maxChunk {
		return 0, domain.Validation(op, "chunk exceeds %d bytes", s.maxChunk)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return 0, domain.Wrap(domain.ErrUnexpected, op, err)
	}
	committed = true
	return n, nil
}

// IsComplete: есть ли файл для каждого индекса из [0,total). Только чтение.
func (s *Store) IsComplete(owner domain.OwnerID, fileName string, total int) bool {
	name := domain.BaseFileName(fileName)
	if name == "" || total < 1 {
		return false
	}
	for i := 0; i < total; i++ {
		if !s.exists(owner, name, i) {
			return false
		}
	}
	return true
}

// Missing возвращает отсутствующие индексы по возрастанию.
func (s *Store) Missing(owner domain.OwnerID, fileName string, total int) []int {
	name := domain.BaseFileName(fileName)
	var out []int
	for i := 0; i < total; i++ {
		if name == "" || !s.exists(owner, name, i) {
			out = append(out, i)
		}
	}
	return out
}

func (s *Store) exists(owner domain.OwnerID, name string, index int) bool {
	fi, err := os.Stat(s.ChunkPath(owner, name, index))
	return err == nil && fi.Mode().IsRegular()
}

// Open открывает чанк для склейки.
func (s *Store) Open(owner domain.OwnerID, fileName string, index int) (io.ReadCloser, error) {
	return os.Open(s.ChunkPath(owner, fileName, index))
}

// Remove удаляет чанк; отсутствие файла ошибкой не считается.
func (s *Store) Remove(owner domain.OwnerID, fileName string, index int) error {
	err := os.Remove(s.ChunkPath(owner, fileName, index))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SweepOlderThan удаляет чанки и временные файлы старше cutoff.
func (s *Store) SweepOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
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
		info, err := d.Info()
		if err != nil {
			return nil // файл уже убрали параллельно
		}
		if !info.ModTime().Before(cutoff) {
			return nil
		}
		if key, ok := s.uploadKeyOf(path); ok && s.locks != nil {
			unlock, free := s.locks.TryLock(key)
			if !free {
				if s.log != nil {
					s.log.Printf("sweep skipped %s: merge in progress", path)
				}
				return nil
			}
			defer unlock()
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
		return nil
	})
	return removed, err
}

// uploadKeyOf восстанавливает ключ загрузки из пути <root>/<owner>/<file>.part<i>.
// Для временных и посторонних файлов ok == false.
func (s *Store) uploadKeyOf(path string) (string, bool) {
	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		return "", false
	}
	dir, base := filepath.Split(rel)
	owner, err := uuid.Parse(filepath.Clean(dir))
	if err != nil {
		return "", false
	}
	i := strings.LastIndex(base, ".part")
	if i <= 0 {
		return "", false
	}
	if _, err := strconv.Atoi(base[i+len(".part"):]); err != nil {
		return "", false
	}
	return domain.UploadKey(owner, base[:i]), true
}
