package router

import (
	"log/slog"
	"time"

	tg "github.com/DevTeady/EmiliaHikari/core/telegram"
	"github.com/DevTeady/EmiliaHikari/core/telegram/callbacks"
	"github.com/DevTeady/EmiliaHikari/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute returns a handler that routes callbacks through the registry.
// Unknown keys go to the registry's CallbackNotFound handler.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		if c.Callback() == nil {
			return nil
		}

		key, _ := callbacks.ParseCallbackData(c.Callback())
		name := "callback." + normalizeHandlerName(key)
		extras := []slog.Attr{slog.String("cb_key", key)}

		cbHandler, ok := reg.GetCallback(key)
		if !ok || cbHandler == nil {
			extras = append(extras, slog.String("reason", "not_found"))
			cbHandler = reg.CallbackNotFound()
		}

		return handleWithSummary(c, name, start, "", "", func() error {
			var err error
			if cbHandler != nil {
				err = cbHandler(c)
			}
			if !callbacks.Answered(c) {
				_ = c.Respond()
			}
			return err
		}, extras...)
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
