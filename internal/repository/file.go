package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivanoskov/market_bot/internal/model"
)

// FileRepository хранит каждую коллекцию в отдельном JSON-файле
// (user_data_<id>.json), совместимо с файлами прежних версий бота.
type FileRepository struct {
	dir string
}

func NewFileRepository(dir string) (*FileRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) path(key CollectionKey) string {
	return filepath.Join(r.dir, key.String()+".json")
}

func (r *FileRepository) Load(ctx context.Context, key CollectionKey) ([]model.Listing, error) {
	data, err := os.ReadFile(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Listing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection: %w", err)
	}

	var listings []model.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	return listings, nil
}

// Save пишет во временный файл и переименовывает его поверх целевого
func (r *FileRepository) Save(ctx context.Context, key CollectionKey, listings []model.Listing) error {
	if listings == nil {
		listings = []model.Listing{}
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("failed to encode collection: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, "."+key.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write collection: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync collection: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close collection: %w", err)
	}
	if err := os.Rename(tmpName, r.path(key)); err != nil {
		return fmt.Errorf("failed to replace collection: %w", err)
	}
	return nil
}

func (r *FileRepository) Owners(ctx context.Context, kind CollectionKind) ([]int64, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data dir: %w", err)
	}

	owners := make([]int64, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok {
			continue
		}
		key, err := ParseCollectionKey(name)
		if err != nil || key.Kind != kind {
			continue
		}
		owners = append(owners, key.OwnerID)
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}
