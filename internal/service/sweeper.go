package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ivanoskov/market_bot/internal/metrics"
	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/ivanoskov/market_bot/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sweeper удаляет объявления старше срока хранения.
// Купленные товары не трогаются, фото просроченных объявлений остаются.
type Sweeper struct {
	clock
	store         *repository.Store
	retentionDays int
	parallelism   int
	logger        *zap.Logger
}

func NewSweeper(store *repository.Store, retentionDays, parallelism int, logger *zap.Logger, opts ...Option) *Sweeper {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Sweeper{
		clock:         newClock(opts),
		store:         store,
		retentionDays: retentionDays,
		parallelism:   parallelism,
		logger:        logger.With(zap.String("component", "sweeper")),
	}
}

// Sweep выполняет один проход. Объявление остается, если created_at >= сегодня - срок.
// Ошибка одного владельца не прерывает проход; ошибки возвращаются вместе.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	owners, err := s.store.Owners(ctx, repository.Active)
	if err != nil {
		return 0, err
	}

	cutoff := model.Today(s.now()).AddDays(-s.retentionDays)

	var (
		mu      sync.Mutex
		removed int
		errs    []error
	)

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for _, owner := range owners {
		g.Go(func() error {
			n, err := s.sweepOwner(ctx, owner, cutoff)
			mu.Lock()
			defer mu.Unlock()
			removed += n
			if err != nil {
				s.logger.Error("sweep failed", zap.Int64("owner_id", owner), zap.Error(err))
				errs = append(errs, fmt.Errorf("owner %d: %w", owner, err))
			}
			return nil
		})
	}
	_ = g.Wait() // ошибки владельцев собраны в errs

	if removed > 0 {
		metrics.SweptListings.Add(float64(removed))
	}
	s.logger.Info("sweep finished",
		zap.Int("owners", len(owners)),
		zap.Int("removed", removed),
		zap.String("cutoff", cutoff.String()))
	return removed, errors.Join(errs...)
}

func (s *Sweeper) sweepOwner(ctx context.Context, ownerID int64, cutoff model.Date) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var removed int
	err := s.store.Update(ctx, repository.ActiveKey(ownerID), func(ls []model.Listing) ([]model.Listing, bool, error) {
		kept := make([]model.Listing, 0, len(ls))
		for _, l := range ls {
			if l.CreatedAt.Before(cutoff) {
				continue
			}
			kept = append(kept, l)
		}
		removed = len(ls) - len(kept)
		return kept, removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// Run запускает проход сразу и затем по таймеру, пока не отменен ctx
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("sweep pass finished with errors", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
