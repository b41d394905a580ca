package middleware

import (
	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
	"github.com/DevTeady/EmiliaHikari/core/metrics"

	tele "gopkg.in/telebot.v4"
)

// UpdateMetricsMiddleware counts received updates by kind and tracks how many
// are being handled at once.
func UpdateMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		metrics.IncReceived(UpdateKind(c.Update()))
		metrics.InFlight.Inc()
		defer metrics.InFlight.Dec()
		return next(c)
	}
}

// UpdateKind names the payload an update carries.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil && upd.Message.MigrateTo != 0:
		return "migration"
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	case upd.EditedMessage != nil:
		return coreconfig.UpdateEditedMessage
	case upd.Query != nil:
		return coreconfig.UpdateInlineQuery
	}
	return "other"
}
