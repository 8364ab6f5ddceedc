// Package media хранит фотографии объявлений.
package media

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/oklog/ulid/v2"
)

// ErrInvalidRef - ссылка пустая или выходит за пределы корня хранилища
var ErrInvalidRef = errors.New("invalid media reference")

// Store - хранилище фото. Ссылка непрозрачна для остального кода.
type Store interface {
	Put(ctx context.Context, data []byte, ownerID int64, category model.Category) (string, error)
	Exists(ref string) bool
	Delete(ref string) error
	Open(ref string) (io.ReadCloser, error)
}

// FileStore раскладывает фото по каталогам <индекс категории>/<владелец>/<ulid>.jpg
type FileStore struct {
	root    string
	catalog model.Catalog

	mu      sync.Mutex
	entropy io.Reader
}

func NewFileStore(root string, catalog model.Catalog) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media dir: %w", err)
	}
	return &FileStore{
		root:    root,
		catalog: catalog,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

func (s *FileStore) Put(ctx context.Context, data []byte, ownerID int64, category model.Category) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	idx := s.catalog.Index(category)
	if idx < 0 {
		return "", fmt.Errorf("unknown category %q", category)
	}

	s.mu.Lock()
	id := ulid.MustNew(ulid.Now(), s.entropy)
	s.mu.Unlock()

	ref := path.Join(strconv.Itoa(idx), strconv.FormatInt(ownerID, 10), id.String()+".jpg")
	full := filepath.Join(s.root, filepath.FromSlash(ref))

	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media: %w", err)
	}
	return ref, nil
}

func (s *FileStore) Exists(ref string) bool {
	full, err := s.resolve(ref)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// Delete удаляет фото; отсутствующий файл не ошибка
func (s *FileStore) Delete(ref string) error {
	full, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return nil
}

func (s *FileStore) Open(ref string) (io.ReadCloser, error) {
	full, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, fmt.Errorf("failed to open media: %w", err)
	}
	return f, nil
}

func (s *FileStore) resolve(ref string) (string, error) {
	if ref == "" {
		return "", ErrInvalidRef
	}
	clean := path.Clean(strings.ReplaceAll(ref, "\\", "/"))
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
