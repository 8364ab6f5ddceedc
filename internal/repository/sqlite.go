package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ivanoskov/market_bot/internal/model"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS collections (
    key        TEXT PRIMARY KEY,
    kind       TEXT NOT NULL CHECK (kind IN ('active', 'purchased')),
    owner_id   INTEGER NOT NULL,
    data       TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_collections_kind_owner ON collections(kind, owner_id);
`

// SQLiteRepository хранит каждую коллекцию одной строкой; Save - один upsert
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository открывает базу, настраивает pragma и создает схему
func NewSQLiteRepository(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Load(ctx context.Context, key CollectionKey) ([]model.Listing, error) {
	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM collections WHERE key = ?`, key.String(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return []model.Listing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}

	var listings []model.Listing
	if err := json.Unmarshal([]byte(data), &listings); err != nil {
		return nil, fmt.Errorf("parsing collection: %w", err)
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	return listings, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, key CollectionKey, listings []model.Listing) error {
	if listings == nil {
		listings = []model.Listing{}
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("encoding collection: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO collections (key, kind, owner_id, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		key.String(), string(key.Kind), key.OwnerID, string(data),
	)
	if err != nil {
		return fmt.Errorf("saving collection: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Owners(ctx context.Context, kind CollectionKind) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT owner_id FROM collections WHERE kind = ? ORDER BY owner_id`, string(kind),
	)
	if err != nil {
		return nil, fmt.Errorf("listing owners: %w", err)
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning owner: %w", err)
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
