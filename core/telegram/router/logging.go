package router

import (
	"cmp"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/metrics"
	tghelpers "github.com/DevTeady/EmiliaHikari/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// handleWithSummary runs fn under handlerName, records its duration and logs
// one handler.handled line.
func handleWithSummary(c tele.Context, handlerName string, start time.Time, statusOverride, outcomeOverride string, fn func() error, extras ...slog.Attr) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	metrics.ObserveHandler(handlerName, time.Since(start).Seconds(), err)
	logHandlerSummary(c, handlerName, start, statusOverride, outcomeOverride, err, extras...)
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, statusOverride, outcomeOverride string, err error, extras ...slog.Attr) {
	ctx := tghelpers.WithHandler(c, handlerName)

	result := "ok"
	if err != nil {
		result = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", cmp.Or(statusOverride, result)),
		slog.String("handler", handlerName),
		slog.String("outcome", cmp.Or(outcomeOverride, result)),
		slog.Int("messages", tghelpers.SentCount(c)),
		slog.Duration("duration", time.Since(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, extras...)
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(name, " ", "_"))
}

// errorCode is the error's own Code() when it has one, otherwise its
// concrete type name, upper-cased.
func errorCode(err error) string {
	if c, ok := err.(interface{ Code() string }); ok {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := fmt.Sprintf("%T", err)
	name = name[strings.LastIndex(name, ".")+1:]
	return strings.ToUpper(strings.TrimLeft(name, "*"))
}
