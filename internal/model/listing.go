package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Listing описывает одно объявление. После создания не изменяется.
type Listing struct {
	ID        string          `json:"id,omitempty"`
	OwnerID   int64           `json:"owner_id,omitempty"`
	Category  Category        `json:"category"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Contact   string          `json:"contact_number,omitempty"`
	PhotoRef  string          `json:"photo,omitempty"`
	CreatedAt Date            `json:"created_at"`
}

// GenerateID генерирует новый UUID для объявления, если он еще не установлен
func (l *Listing) GenerateID() {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
}

// Entry - строка категорийного индекса: объявление вместе с владельцем
type Entry struct {
	OwnerID int64
	Listing Listing
}

// FilterByCategory возвращает подпоследовательность объявлений категории с сохранением порядка
func FilterByCategory(listings []Listing, category Category) []Listing {
	filtered := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if l.Category == category {
			filtered = append(filtered, l)
		}
	}
	return filtered
}
