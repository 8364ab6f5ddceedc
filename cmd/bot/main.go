package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivanoskov/market_bot/internal/bot"
	"github.com/ivanoskov/market_bot/internal/config"
	"github.com/ivanoskov/market_bot/internal/logging"
	"github.com/ivanoskov/market_bot/internal/media"
	"github.com/ivanoskov/market_bot/internal/metrics"
	"github.com/ivanoskov/market_bot/internal/model"
	"github.com/ivanoskov/market_bot/internal/repository"
	"github.com/ivanoskov/market_bot/internal/service"
	"github.com/ivanoskov/market_bot/internal/wizard"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("bot stopped with error", zap.Error(err))
	}
	logger.Info("bot stopped")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	catalog := model.NewCatalog(cfg.Categories)
	photos, err := media.NewFileStore(cfg.MediaDir, catalog)
	if err != nil {
		return err
	}

	machine, err := wizard.NewMachine(wizard.Rules{
		Catalog:          catalog,
		ContactMinDigits: cfg.ContactMinDigits,
		ContactMaxDigits: cfg.ContactMaxDigits,
	})
	if err != nil {
		return err
	}

	store := repository.NewStore(repo, logger)
	market := service.NewMarketplace(store, photos, catalog, logger)
	sweeper := service.NewSweeper(store, cfg.RetentionDays, cfg.Workers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	logger.Info("authorized", zap.String("username", api.Self.UserName), zap.String("backend", cfg.StorageBackend))

	b := bot.NewBot(bot.NewLimitedSender(ctx, api, 25, 30), market, machine, photos, logger, bot.Options{Workers: cfg.Workers})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sweeper.Run(ctx, cfg.SweepInterval)
	})

	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.NewServer(cfg.MetricsAddr, logger).Run(ctx)
		})
	}

	if cfg.WebhookAddr != "" {
		g.Go(func() error {
			return b.ListenWebhook(ctx, cfg.WebhookAddr)
		})
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := api.GetUpdatesChan(u)

		g.Go(func() error {
			<-ctx.Done()
			api.StopReceivingUpdates()
			return nil
		})
		g.Go(func() error {
			return b.Start(ctx, updates)
		})
	}

	return g.Wait()
}

func openRepository(cfg *config.Config) (repository.Repository, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		repo, err := repository.NewSQLiteRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	case config.BackendSupabase:
		repo, err := repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	default:
		repo, err := repository.NewFileRepository(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}
