package bot

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/ivanoskov/market_bot/internal/wizard"
)

// session - состояние разговора с одним пользователем.
// mu удерживается на все время обработки одного обновления.
type session struct {
	mu    sync.Mutex
	state wizard.State

	// очередь обновлений, ожидающих обработки; защищена sessions.mu
	queue   []tgbotapi.Update
	running bool
}

type sessions struct {
	mu     sync.Mutex
	byUser map[int64]*session
}

func newSessions() *sessions {
	return &sessions{byUser: make(map[int64]*session)}
}

func (s *sessions) get(userID int64) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(userID)
}

func (s *sessions) getLocked(userID int64) *session {
	sess, ok := s.byUser[userID]
	if !ok {
		sess = &session{}
		s.byUser[userID] = sess
	}
	return sess
}

// enqueue ставит обновление в очередь пользователя.
// Возвращает true, если очередь нужно начать разбирать.
func (s *sessions) enqueue(userID int64, update tgbotapi.Update) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.getLocked(userID)
	sess.queue = append(sess.queue, update)
	if sess.running {
		return sess, false
	}
	sess.running = true
	return sess, true
}

// next снимает следующее обновление; пустая очередь завершает разбор
func (s *sessions) next(sess *session) (tgbotapi.Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(sess.queue) == 0 {
		sess.running = false
		sess.queue = nil
		return tgbotapi.Update{}, false
	}
	update := sess.queue[0]
	sess.queue = sess.queue[1:]
	return update, true
}
