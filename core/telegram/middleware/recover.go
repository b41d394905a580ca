package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	tghelpers "github.com/DevTeady/EmiliaHikari/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware turns a handler panic into a logged error so one bad
// update cannot stop the poller.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err = fmt.Errorf("panic: %v", r)
			logger.Error(tghelpers.BuildContext(c), "tg", "tg.panic",
				slog.String("err", err.Error()),
				slog.String("stack", string(debug.Stack())),
			)
		}()
		return next(c)
	}
}
