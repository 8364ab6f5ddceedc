package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/ivanoskov/market_bot/internal/media"
	"github.com/ivanoskov/market_bot/internal/metrics"
	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/ivanoskov/market_bot/internal/repository"
	"go.uber.org/zap"
)

var (
	// ErrItemUnavailable - объявление исчезло между показом и покупкой
	ErrItemUnavailable = errors.New("item unavailable")
	// ErrItemNotFound - у владельца нет такого объявления
	ErrItemNotFound = errors.New("item not found")
)

// Option настраивает часы сервиса
type Option func(*clock)

type clock struct {
	now func() time.Time
}

// WithClock подменяет текущее время
func WithClock(now func() time.Time) Option {
	return func(c *clock) {
		c.now = now
	}
}

func newClock(opts []Option) clock {
	c := clock{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Profile - сводка по пользователю
type Profile struct {
	Active    int
	Purchased int
}

// CategoryCount - число активных объявлений в категории
type CategoryCount struct {
	Category model.Category
	Count    int
}

// Marketplace создает, показывает, продает и удаляет объявления
type Marketplace struct {
	clock
	store   *repository.Store
	media   media.Store
	catalog model.Catalog
	logger  *zap.Logger
}

// NewMarketplace создает новый экземпляр Marketplace
func NewMarketplace(store *repository.Store, photos media.Store, catalog model.Catalog, logger *zap.Logger, opts ...Option) *Marketplace {
	return &Marketplace{
		clock:   newClock(opts),
		store:   store,
		media:   photos,
		catalog: catalog,
		logger:  logger.With(zap.String("component", "marketplace")),
	}
}

func (s *Marketplace) Catalog() model.Catalog {
	return s.catalog
}

// CreateListing сохраняет фото и добавляет черновик в коллекцию владельца.
// Если запись не удалась, сохраненное фото удаляется.
func (s *Marketplace) CreateListing(ctx context.Context, ownerID int64, draft model.Listing, photo []byte) (*model.Listing, error) {
	if !s.catalog.Contains(draft.Category) {
		return nil, fmt.Errorf("unknown category %q", draft.Category)
	}
	if draft.Price.IsNegative() {
		return nil, fmt.Errorf("negative price %s", draft.Price)
	}

	data, err := media.Process(bytes.NewReader(photo))
	if err != nil {
		metrics.ListingsCreated.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	ref, err := s.media.Put(ctx, data, ownerID, draft.Category)
	if err != nil {
		metrics.ListingsCreated.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	listing := draft
	listing.ID = ""
	listing.GenerateID()
	listing.OwnerID = ownerID
	listing.PhotoRef = ref
	listing.CreatedAt = model.Today(s.now())

	err = s.store.Update(ctx, repository.ActiveKey(ownerID), func(ls []model.Listing) ([]model.Listing, bool, error) {
		return append(ls, listing), true, nil
	})
	if err != nil {
		if derr := s.media.Delete(ref); derr != nil {
			s.logger.Warn("failed to release photo", zap.String("ref", ref), zap.Error(derr))
		}
		metrics.ListingsCreated.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	metrics.ListingsCreated.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("listing created",
		zap.Int64("owner_id", ownerID),
		zap.String("listing_id", listing.ID),
		zap.String("category", string(listing.Category)))
	return &listing, nil
}

// Browse возвращает объявления категории всех продавцов
func (s *Marketplace) Browse(ctx context.Context, category model.Category) ([]model.Entry, error) {
	return s.store.ListByCategory(ctx, category)
}

// MyCategories возвращает категории, в которых у владельца есть объявления, в порядке каталога
func (s *Marketplace) MyCategories(ctx context.Context, ownerID int64) ([]model.Category, error) {
	listings, err := s.store.Load(ctx, repository.ActiveKey(ownerID))
	if err != nil {
		return nil, err
	}

	present := make(map[model.Category]bool, len(listings))
	for _, l := range listings {
		present[l.Category] = true
	}

	var categories []model.Category
	for _, c := range s.catalog.Categories() {
		if present[c] {
			categories = append(categories, c)
		}
	}
	return categories, nil
}

func (s *Marketplace) MyListings(ctx context.Context, ownerID int64, category model.Category) ([]model.Listing, error) {
	listings, err := s.store.Load(ctx, repository.ActiveKey(ownerID))
	if err != nil {
		return nil, err
	}
	return model.FilterByCategory(listings, category), nil
}

func (s *Marketplace) Purchased(ctx context.Context, buyerID int64) ([]model.Listing, error) {
	return s.store.Load(ctx, repository.PurchasedKey(buyerID))
}

// Purchase добавляет копию объявления в купленные товары покупателя.
// Коллекция продавца не меняется, повторная покупка добавляет еще одну копию.
func (s *Marketplace) Purchase(ctx context.Context, buyerID int64, listingID string) (*model.Listing, error) {
	entry, ok, err := s.store.Find(ctx, listingID)
	if err != nil {
		metrics.Purchases.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	if !ok {
		metrics.Purchases.WithLabelValues(metrics.ResultUnavailable).Inc()
		return nil, ErrItemUnavailable
	}
	return s.purchase(ctx, buyerID, entry)
}

// PurchaseAt покупает объявление по позиции в текущем списке категории.
// Список пересчитывается в момент вызова.
func (s *Marketplace) PurchaseAt(ctx context.Context, buyerID int64, category model.Category, position int) (*model.Listing, error) {
	entries, err := s.store.ListByCategory(ctx, category)
	if err != nil {
		metrics.Purchases.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	if position < 0 || position >= len(entries) {
		metrics.Purchases.WithLabelValues(metrics.ResultUnavailable).Inc()
		return nil, ErrItemUnavailable
	}
	return s.purchase(ctx, buyerID, entries[position])
}

func (s *Marketplace) purchase(ctx context.Context, buyerID int64, entry model.Entry) (*model.Listing, error) {
	bought := entry.Listing
	err := s.store.Update(ctx, repository.PurchasedKey(buyerID), func(ls []model.Listing) ([]model.Listing, bool, error) {
		return append(ls, bought), true, nil
	})
	if err != nil {
		metrics.Purchases.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	metrics.Purchases.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("listing purchased",
		zap.Int64("buyer_id", buyerID),
		zap.Int64("seller_id", entry.OwnerID),
		zap.String("listing_id", bought.ID))
	return &bought, nil
}

// Delete удаляет объявление владельца по идентификатору
func (s *Marketplace) Delete(ctx context.Context, ownerID int64, listingID string) (*model.Listing, error) {
	return s.remove(ctx, ownerID, func(ls []model.Listing) int {
		return slices.IndexFunc(ls, func(l model.Listing) bool { return l.ID == listingID })
	})
}

// DeleteAt удаляет объявление по позиции в списке владельца в категории.
// Список пересчитывается под блокировкой коллекции владельца.
func (s *Marketplace) DeleteAt(ctx context.Context, ownerID int64, category model.Category, position int) (*model.Listing, error) {
	return s.remove(ctx, ownerID, func(ls []model.Listing) int {
		if position < 0 {
			return -1
		}
		seen := 0
		for i, l := range ls {
			if l.Category != category {
				continue
			}
			if seen == position {
				return i
			}
			seen++
		}
		return -1
	})
}

// remove удаляет запись, выбранную locate, и после сохранения освобождает фото
func (s *Marketplace) remove(ctx context.Context, ownerID int64, locate func([]model.Listing) int) (*model.Listing, error) {
	var removed model.Listing
	err := s.store.Update(ctx, repository.ActiveKey(ownerID), func(ls []model.Listing) ([]model.Listing, bool, error) {
		i := locate(ls)
		if i < 0 {
			return nil, false, ErrItemNotFound
		}
		removed = ls[i]
		return slices.Delete(ls, i, i+1), true, nil
	})
	switch {
	case errors.Is(err, ErrItemNotFound):
		metrics.Deletions.WithLabelValues(metrics.ResultNotFound).Inc()
		return nil, err
	case err != nil:
		metrics.Deletions.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	if removed.PhotoRef != "" {
		if err := s.media.Delete(removed.PhotoRef); err != nil {
			s.logger.Warn("failed to release photo", zap.String("ref", removed.PhotoRef), zap.Error(err))
		}
	}

	metrics.Deletions.WithLabelValues(metrics.ResultOK).Inc()
	s.logger.Info("listing deleted",
		zap.Int64("owner_id", ownerID),
		zap.String("listing_id", removed.ID))
	return &removed, nil
}

func (s *Marketplace) Profile(ctx context.Context, userID int64) (Profile, error) {
	active, err := s.store.Load(ctx, repository.ActiveKey(userID))
	if err != nil {
		return Profile{}, err
	}
	purchased, err := s.store.Load(ctx, repository.PurchasedKey(userID))
	if err != nil {
		return Profile{}, err
	}
	return Profile{Active: len(active), Purchased: len(purchased)}, nil
}

// CategoryStats считает активные объявления по категориям каталога за один проход
func (s *Marketplace) CategoryStats(ctx context.Context) ([]CategoryCount, error) {
	owners, err := s.store.Owners(ctx, repository.Active)
	if err != nil {
		return nil, err
	}

	counts := make(map[model.Category]int)
	for _, owner := range owners {
		listings, err := s.store.Load(ctx, repository.ActiveKey(owner))
		if err != nil {
			return nil, err
		}
		for _, l := range listings {
			counts[l.Category]++
		}
	}

	stats := make([]CategoryCount, 0, s.catalog.Len())
	for _, c := range s.catalog.Categories() {
		stats = append(stats, CategoryCount{Category: c, Count: counts[c]})
	}
	return stats, nil
}
