package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/ivanoskov/market_bot/internal/model"
	"go.uber.org/zap"
)

// legacyNamespace - пространство имен для id записей, созданных без идентификатора
var legacyNamespace = uuid.MustParse("6f1b0c1e-4d1a-4b7e-9a57-3c1f2f0d8e21")

// Store - хранилище записей поверх бэкенда.
// Запись в одну коллекцию сериализуется мьютексом ключа, разные ключи независимы.
// Чтение не берет мьютекс и видит последнее завершенное сохранение.
type Store struct {
	repo   Repository
	locks  keyedMutex
	logger *zap.Logger
}

func NewStore(repo Repository, logger *zap.Logger) *Store {
	return &Store{
		repo:   repo,
		locks:  keyedMutex{locks: make(map[CollectionKey]*sync.Mutex)},
		logger: logger.With(zap.String("component", "store")),
	}
}

// Load возвращает коллекцию; отсутствие коллекции не ошибка
func (s *Store) Load(ctx context.Context, key CollectionKey) ([]model.Listing, error) {
	listings, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, storageErr("load", key, err)
	}
	backfill(key, listings)
	return listings, nil
}

// Save атомарно заменяет коллекцию
func (s *Store) Save(ctx context.Context, key CollectionKey, listings []model.Listing) error {
	unlock := s.locks.lock(key)
	defer unlock()
	return s.save(ctx, key, listings)
}

func (s *Store) save(ctx context.Context, key CollectionKey, listings []model.Listing) error {
	if err := s.repo.Save(ctx, key, listings); err != nil {
		s.logger.Error("save failed", zap.Stringer("key", key), zap.Error(err))
		return storageErr("save", key, err)
	}
	return nil
}

// UpdateFunc получает текущую коллекцию и возвращает новую.
// changed=false означает, что запись не нужна; ошибка отменяет запись.
type UpdateFunc func(listings []model.Listing) (updated []model.Listing, changed bool, err error)

// Update выполняет load-modify-save под мьютексом ключа
func (s *Store) Update(ctx context.Context, key CollectionKey, fn UpdateFunc) error {
	unlock := s.locks.lock(key)
	defer unlock()

	current, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	updated, changed, err := fn(current)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.save(ctx, key, updated)
}

// Owners перечисляет владельцев коллекций данного вида по возрастанию id
func (s *Store) Owners(ctx context.Context, kind CollectionKind) ([]int64, error) {
	owners, err := s.repo.Owners(ctx, kind)
	if err != nil {
		return nil, &StorageError{Op: "owners", Err: err}
	}
	return owners, nil
}

// ListByCategory сканирует коллекции всех владельцев и фильтрует по категории.
// Стоимость линейна от общего числа объявлений.
// TODO: вторичный индекс category -> id, обновляемый вместе с коллекцией владельца.
func (s *Store) ListByCategory(ctx context.Context, category model.Category) ([]model.Entry, error) {
	owners, err := s.Owners(ctx, Active)
	if err != nil {
		return nil, err
	}

	var entries []model.Entry
	for _, owner := range owners {
		listings, err := s.Load(ctx, ActiveKey(owner))
		if err != nil {
			return nil, err
		}
		for _, l := range model.FilterByCategory(listings, category) {
			entries = append(entries, model.Entry{OwnerID: owner, Listing: l})
		}
	}
	return entries, nil
}

// Find ищет активное объявление по идентификатору
func (s *Store) Find(ctx context.Context, id string) (model.Entry, bool, error) {
	owners, err := s.Owners(ctx, Active)
	if err != nil {
		return model.Entry{}, false, err
	}

	for _, owner := range owners {
		listings, err := s.Load(ctx, ActiveKey(owner))
		if err != nil {
			return model.Entry{}, false, err
		}
		for _, l := range listings {
			if l.ID == id {
				return model.Entry{OwnerID: owner, Listing: l}, true, nil
			}
		}
	}
	return model.Entry{}, false, nil
}

// backfill проставляет id и владельца записям старого формата.
// id выводится из содержимого, поэтому одинаков при каждом чтении.
func backfill(key CollectionKey, listings []model.Listing) {
	for i := range listings {
		l := &listings[i]
		if l.OwnerID == 0 && key.Kind == Active {
			l.OwnerID = key.OwnerID
		}
		if l.ID == "" {
			l.ID = legacyID(key, l).String()
		}
	}
}

func legacyID(key CollectionKey, l *model.Listing) uuid.UUID {
	parts := []string{
		key.String(),
		string(l.Category),
		l.Name,
		l.Price.String(),
		l.Contact,
		l.PhotoRef,
		l.CreatedAt.String(),
	}
	return uuid.NewSHA1(legacyNamespace, []byte(strings.Join(parts, "\x00")))
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[CollectionKey]*sync.Mutex
}

func (k *keyedMutex) lock(key CollectionKey) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
