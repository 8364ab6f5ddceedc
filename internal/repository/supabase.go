package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const collectionsTable = "collections"

// collectionRow - строка таблицы collections в Supabase
type collectionRow struct {
	Key      string          `json:"key"`
	Kind     string          `json:"kind"`
	OwnerID  int64           `json:"owner_id"`
	Listings []model.Listing `json:"data"`
}

// ownersPageSize - значение max-rows PostgREST по умолчанию
const ownersPageSize = 1000

type SupabaseRepository struct {
	client   *supabase.Client
	pageSize int
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseRepository{
		client:   client,
		pageSize: ownersPageSize,
	}, nil
}

func (r *SupabaseRepository) Load(ctx context.Context, key CollectionKey) ([]model.Listing, error) {
	data, _, err := r.client.From(collectionsTable).
		Select("*", "", false).
		Eq("key", key.String()).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	var rows []collectionRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse collection: %w", err)
	}
	if len(rows) == 0 || rows[0].Listings == nil {
		return []model.Listing{}, nil
	}
	return rows[0].Listings, nil
}

// Save делает upsert по ключу: PostgREST применяет его одной командой
func (r *SupabaseRepository) Save(ctx context.Context, key CollectionKey, listings []model.Listing) error {
	if listings == nil {
		listings = []model.Listing{}
	}
	row := collectionRow{
		Key:      key.String(),
		Kind:     string(key.Kind),
		OwnerID:  key.OwnerID,
		Listings: listings,
	}
	_, _, err := r.client.From(collectionsTable).Insert(row, true, "key", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

// Owners читает владельцев страницами: PostgREST обрезает ответ по max-rows
func (r *SupabaseRepository) Owners(ctx context.Context, kind CollectionKind) ([]int64, error) {
	var owners []int64
	for from := 0; ; from += r.pageSize {
		data, _, err := r.client.From(collectionsTable).
			Select("owner_id", "", false).
			Eq("kind", string(kind)).
			Order("owner_id", &postgrest.OrderOpts{Ascending: true}).
			Range(from, from+r.pageSize-1, "").
			Execute()
		if err != nil {
			return nil, fmt.Errorf("failed to list owners: %w", err)
		}

		var rows []struct {
			OwnerID int64 `json:"owner_id"`
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse owners: %w", err)
		}

		for _, row := range rows {
			owners = append(owners, row.OwnerID)
		}
		if len(rows) < r.pageSize {
			break
		}
	}

	if owners == nil {
		owners = []int64{}
	}
	sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
	return owners, nil
}
