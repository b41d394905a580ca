package middleware

import (
	"log/slog"
	"sync"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/telegram/callbacks"
	tghelpers "github.com/DevTeady/EmiliaHikari/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// seenUpdates remembers the last few update ids so an update wrapped by the
// logger on several routes is announced once.
type seenUpdates struct {
	mu   sync.Mutex
	ring [128]int
	next int
	set  map[int]struct{}
}

func (s *seenUpdates) firstTime(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set == nil {
		s.set = make(map[int]struct{}, len(s.ring))
	}
	if _, ok := s.set[id]; ok {
		return false
	}
	delete(s.set, s.ring[s.next])
	s.ring[s.next] = id
	s.next = (s.next + 1) % len(s.ring)
	s.set[id] = struct{}{}
	return true
}

var announced seenUpdates

// LoggerMiddleware prepares the update's logging context and logs a sampled
// update.received line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()
		chat, user := c.Chat(), c.Sender()
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && announced.firstTime(upd.ID) {
			attrs := []slog.Attr{slog.String("status", "ok"), slog.String("kind", UpdateKind(upd))}
			if chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			if upd.Callback != nil {
				key, payload := callbacks.ParseCallbackData(upd.Callback)
				attrs = append(attrs,
					slog.String("cb_key", logger.SanitizeLimit(key, 128)),
					slog.String("payload", logger.SanitizeLimit(payload, 256)),
				)
			} else if t := c.Text(); t != "" {
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
			}
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}
