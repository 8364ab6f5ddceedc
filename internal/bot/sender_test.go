package bot

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitedSenderStopsWaitingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &fakeSender{}
	// Один вызов в запасе, следующий разрешен только через ~17 минут
	s := NewLimitedSender(ctx, api, 0.001, 1)

	_, err := s.Send(tgbotapi.NewMessage(1, "first"))
	require.NoError(t, err)

	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err = s.Send(tgbotapi.NewMessage(1, "second"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)

	_, err = s.Request(tgbotapi.NewCallback("cb", ""))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"first"}, api.texts())
}
