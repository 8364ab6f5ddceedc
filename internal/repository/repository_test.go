package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chair() model.Listing {
	return model.Listing{
		ID:        "chair-1",
		OwnerID:   1,
		Category:  "Мебель",
		Name:      "Chair",
		Price:     decimal.NewFromInt(500),
		Contact:   "12345678",
		PhotoRef:  "1/1/a.jpg",
		CreatedAt: model.NewDate(2025, time.May, 1),
	}
}

// testBackend проверяет общий контракт Repository для каждого бэкенда
func testBackend(t *testing.T, repo Repository) {
	ctx := context.Background()

	t.Run("missing collection is empty", func(t *testing.T) {
		got, err := repo.Load(ctx, ActiveKey(999))
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("save replaces collection", func(t *testing.T) {
		first := chair()
		second := chair()
		second.ID = "chair-2"
		second.Name = "Second chair"

		require.NoError(t, repo.Save(ctx, ActiveKey(1), []model.Listing{first}))
		require.NoError(t, repo.Save(ctx, ActiveKey(1), []model.Listing{first, second}))

		got, err := repo.Load(ctx, ActiveKey(1))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "chair-1", got[0].ID)
		assert.Equal(t, "Second chair", got[1].Name)
		assert.True(t, got[0].Price.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, first.CreatedAt, got[0].CreatedAt)
	})

	t.Run("owners are separated by kind", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, ActiveKey(7), []model.Listing{chair()}))
		require.NoError(t, repo.Save(ctx, PurchasedKey(3), []model.Listing{chair()}))

		active, err := repo.Owners(ctx, Active)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 7}, active)

		purchased, err := repo.Owners(ctx, Purchased)
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, purchased)
	})

	t.Run("empty collection is kept", func(t *testing.T) {
		require.NoError(t, repo.Save(ctx, ActiveKey(7), nil))
		got, err := repo.Load(ctx, ActiveKey(7))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestFileRepository(t *testing.T) {
	repo, err := NewFileRepository(t.TempDir())
	require.NoError(t, err)
	testBackend(t, repo)
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "market.sqlite3"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	testBackend(t, repo)
}

func TestCollectionKeyNames(t *testing.T) {
	tests := []struct {
		key  CollectionKey
		name string
	}{
		{ActiveKey(42), "user_data_42"},
		{PurchasedKey(42), "user_data_purchased_42"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.name, tt.key.String())
		parsed, err := ParseCollectionKey(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.key, parsed)
	}

	_, err := ParseCollectionKey("user_data_abc")
	assert.Error(t, err)
	_, err = ParseCollectionKey("settings")
	assert.Error(t, err)
}
