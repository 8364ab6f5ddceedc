package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ivanoskov/market_bot/internal/model"
)

// CollectionKind различает активные объявления владельца и купленные копии
type CollectionKind string

const (
	Active    CollectionKind = "active"
	Purchased CollectionKind = "purchased"
)

// CollectionKey адресует одну сохраненную коллекцию
type CollectionKey struct {
	Kind    CollectionKind
	OwnerID int64
}

func ActiveKey(ownerID int64) CollectionKey {
	return CollectionKey{Kind: Active, OwnerID: ownerID}
}

func PurchasedKey(ownerID int64) CollectionKey {
	return CollectionKey{Kind: Purchased, OwnerID: ownerID}
}

const keyPrefix = "user_data_"

// String возвращает имя коллекции в формате прежних версий бота:
// user_data_<id> и user_data_purchased_<id>
func (k CollectionKey) String() string {
	if k.Kind == Purchased {
		return keyPrefix + "purchased_" + strconv.FormatInt(k.OwnerID, 10)
	}
	return keyPrefix + strconv.FormatInt(k.OwnerID, 10)
}

// ParseCollectionKey - обратная операция к String
func ParseCollectionKey(name string) (CollectionKey, error) {
	rest, ok := strings.CutPrefix(name, keyPrefix)
	if !ok {
		return CollectionKey{}, fmt.Errorf("not a collection name: %q", name)
	}
	kind := Active
	if tail, ok := strings.CutPrefix(rest, "purchased_"); ok {
		kind = Purchased
		rest = tail
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return CollectionKey{}, fmt.Errorf("bad owner id in %q: %w", name, err)
	}
	return CollectionKey{Kind: kind, OwnerID: id}, nil
}

// Repository - бэкенд долговременного хранения коллекций.
// Save обязан заменять коллекцию атомарно: читатель видит либо старую, либо новую версию.
type Repository interface {
	// Load возвращает коллекцию или пустой срез, если ее еще нет
	Load(ctx context.Context, key CollectionKey) ([]model.Listing, error)
	Save(ctx context.Context, key CollectionKey, listings []model.Listing) error
	// Owners перечисляет владельцев, у которых есть коллекция данного вида
	Owners(ctx context.Context, kind CollectionKind) ([]int64, error)
}
