// Package fs: payload'ы ассетов на локальном диске: один файл на blobId.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/EgorLis/my-assets/internal/domain"
)

type Storage struct {
	root string
	tmp  string
	log  *log.Logger
}

func New(root string, logger *log.Logger) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fs storage: resolve root: %w", err)
	}
	tmp := filepath.Join(abs, ".tmp")
	if err := os.MkdirAll(tmp, 0o750); err != nil {
		return nil, fmt.Errorf("fs storage: create root: %w", err)
	}
	return &Storage{root: abs, tmp: tmp, log: logger}, nil
}

func (s *Storage) path(id domain.BlobID) string { return filepath.Join(s.root, id.String()) }

// Put пишет во временный файл и переименовывает: полупустой payload читателю не виден.
func (s *Storage) Put(ctx context.Context, id domain.BlobID, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.tmp, "payload-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	n, err := io.Copy(f, r)
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("short write: %d of %d bytes", n, size)
	}
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmpName, s.path(id))
	}
	if err != nil {
		_ = os.Remove(tmpName)
		s.log.Printf("PUT %s failed: %v", id, err)
		return err
	}
	s.log.Printf("PUT %s ok (%d bytes)", id, n)
	return nil
}

func (s *Storage) Get(_ context.Context, id domain.BlobID) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id))
	if errors.Is(err, iofs.ErrNotExist) {
		return nil, fmt.Errorf("%w: payload %s", domain.ErrNotFound, id)
	}
	return f, err
}

func (s *Storage) Delete(_ context.Context, id domain.BlobID) error {
	err := os.Remove(s.path(id))
	if errors.Is(err, iofs.ErrNotExist) {
		return fmt.Errorf("%w: payload %s", domain.ErrNotFound, id)
	}
	if err != nil {
		s.log.Printf("DELETE %s failed: %v", id, err)
		return err
	}
	s.log.Printf("DELETE %s ok", id)
	return nil
}

func (s *Storage) Ping(context.Context) error {
	_, err := os.Stat(s.tmp)
	return err
}
