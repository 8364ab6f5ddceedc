package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/alitto/pond"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivanoskov/market_bot/internal/media"
	"github.com/ivanoskov/market_bot/internal/metrics"
	"github.com/ivanoskov/market_bot/internal/service"
	"github.com/ivanoskov/market_bot/internal/wizard"
	"go.uber.org/zap"
)

// Options - необязательные параметры бота
type Options struct {
	Workers    int
	FileClient *http.Client // клиент для скачивания фото, по умолчанию с таймаутом 30s
}

type Bot struct {
	api      Sender
	market   *service.Marketplace
	machine  *wizard.Machine
	photos   media.Store
	download *downloader
	sessions *sessions
	pool     *pond.WorkerPool
	logger   *zap.Logger
}

func NewBot(api Sender, market *service.Marketplace, machine *wizard.Machine, photos media.Store, logger *zap.Logger, opts Options) *Bot {
	if opts.Workers < 1 {
		opts.Workers = 8
	}

	logger = logger.With(zap.String("component", "bot"))
	pool := pond.New(
		opts.Workers,
		opts.Workers*64,
		pond.MinWorkers(1),
		pond.PanicHandler(func(p interface{}) {
			logger.Error("update handler panic recovered", zap.Any("panic", p))
		}),
	)

	return &Bot{
		api:      api,
		market:   market,
		machine:  machine,
		photos:   photos,
		download: newDownloader(api, opts.FileClient),
		sessions: newSessions(),
		pool:     pool,
		logger:   logger,
	}
}

// Start обрабатывает обновления long polling, пока не отменен ctx или не закрыт канал.
// Перед выходом дожидается уже принятых обновлений.
func (b *Bot) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) error {
	defer b.pool.StopAndWait()

	// Принятые обновления дорабатываются и после отмены ctx
	handleCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(handleCtx, update)
		}
	}
}

// ListenWebhook принимает обновления по HTTP на addr, пока не отменен ctx
func (b *Bot) ListenWebhook(ctx context.Context, addr string) error {
	defer b.pool.StopAndWait()

	mux := http.NewServeMux()
	mux.Handle("/webhook", b)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		b.logger.Info("starting webhook server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// ServeHTTP ставит обновление в очередь и сразу отвечает Telegram
func (b *Bot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	b.dispatch(context.WithoutCancel(r.Context()), update)
	w.WriteHeader(http.StatusOK)
}

// HandleWebhook - синхронная обработка одного webhook-обновления
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}

	userID, ok := updateUser(update)
	if !ok {
		return nil
	}
	sess := b.sessions.get(userID)
	b.process(ctx, userID, sess, update)
	return nil
}

// dispatch сохраняет порядок обновлений одного пользователя,
// разные пользователи обрабатываются параллельно в пуле
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	userID, ok := updateUser(update)
	if !ok {
		return
	}

	sess, start := b.sessions.enqueue(userID, update)
	if !start {
		return
	}

	b.pool.Submit(func() {
		for {
			next, ok := b.sessions.next(sess)
			if !ok {
				return
			}
			b.process(ctx, userID, sess, next)
		}
	})
}

func (b *Bot) process(ctx context.Context, userID int64, sess *session, update tgbotapi.Update) {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	metrics.Updates.WithLabelValues(updateKind(update)).Inc()

	if update.CallbackQuery != nil {
		b.handleCallback(ctx, userID, sess, update.CallbackQuery)
		return
	}
	b.handleMessage(ctx, userID, sess, update.Message)
}

func updateUser(update tgbotapi.Update) (int64, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil && update.CallbackQuery.Message != nil:
		return update.CallbackQuery.From.ID, true
	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		return update.Message.From.ID, true
	}
	return 0, false
}

func updateKind(update tgbotapi.Update) string {
	switch {
	case update.CallbackQuery != nil:
		return "callback"
	case update.Message.IsCommand():
		return "command"
	case len(update.Message.Photo) > 0 || update.Message.Document != nil:
		return "media"
	case update.Message.Text != "":
		return "text"
	default:
		return "other"
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.logger.Warn("failed to send message", zap.Error(err))
	}
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	b.send(msg)
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	b.sendText(chatID, "❌ "+text)
}

// replace меняет текст сообщения с кнопкой; сообщение с фото заменить нельзя, тогда отправляется новое
func (b *Bot) replace(cb *tgbotapi.CallbackQuery, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	chatID := cb.Message.Chat.ID
	if cb.Message.Text == "" {
		msg := tgbotapi.NewMessage(chatID, text)
		if markup != nil {
			msg.ReplyMarkup = *markup
		}
		b.send(msg)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, cb.Message.MessageID, text)
	edit.ReplyMarkup = markup
	b.send(edit)
}
