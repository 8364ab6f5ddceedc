package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Sender - часть tgbotapi.BotAPI, которой пользуется бот
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// limitedSender ограничивает частоту исходящих вызовов Telegram API.
// Ожидание прерывается отменой ctx, чтобы остановка не ждала очереди лимитера.
type limitedSender struct {
	Sender
	ctx     context.Context
	limiter *rate.Limiter
}

// NewLimitedSender оборачивает api ограничителем: perSecond вызовов в секунду с запасом burst
func NewLimitedSender(ctx context.Context, api Sender, perSecond float64, burst int) Sender {
	return &limitedSender{
		Sender:  api,
		ctx:     ctx,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (s *limitedSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("rate limiter: %w", err)
	}
	return s.Sender.Send(c)
}

func (s *limitedSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := s.limiter.Wait(s.ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return s.Sender.Request(c)
}
