package router

import (
	"log/slog"
	"time"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	tg "github.com/DevTeady/EmiliaHikari/core/telegram"
	"github.com/DevTeady/EmiliaHikari/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Outcome tells the message pipeline whether later stages should see the message.
type Outcome int

const (
	// Continue passes the message on to the next stage.
	Continue Outcome = iota
	// Handled stops the pipeline for this message.
	Handled
)

func (o Outcome) String() string {
	if o == Handled {
		return "handled"
	}
	return "continue"
}

// Stage is one step of the pipeline run for every non-command message.
type Stage struct {
	Name   string
	Handle func(c tele.Context) (Outcome, error)
}

// MessageOptions controls which updates reach the pipeline.
type MessageOptions struct {
	// Endpoints defaults to text, photo, sticker, video, document and animation updates.
	Endpoints []string
}

var defaultMessageEndpoints = []string{
	tele.OnText,
	tele.OnPhoto,
	tele.OnSticker,
	tele.OnVideo,
	tele.OnDocument,
	tele.OnAnimation,
}

// RunStages executes stages in order until one reports Handled or fails.
func RunStages(c tele.Context, stages []Stage) (string, Outcome, error) {
	for _, st := range stages {
		if st.Handle == nil {
			continue
		}
		out, err := st.Handle(c)
		if err != nil {
			return st.Name, Handled, err
		}
		if out == Handled {
			return st.Name, Handled, nil
		}
	}
	return "", Continue, nil
}

// MessageRoutes builds handlers that feed plain messages and media through stages.
func MessageRoutes(reg *tg.Registry, stages []Stage, opts MessageOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()

		// Commands typed through reply keyboards arrive as plain text.
		if reg != nil && c.Message() != nil && c.Message().Text != "" {
			if key, cmd, ok := reg.LookupCommand(c.Message().Text); ok && cmd.Handler != nil {
				return handleWithSummary(c, normalizeHandlerName(key), start, "", "", func() error {
					return cmd.Wrapped()(c)
				})
			}
		}

		stage, out, err := RunStages(c, stages)
		if err != nil {
			logHandlerSummary(c, "message."+normalizeHandlerName(stage), start, "", "", err)
			return err
		}
		if out == Continue {
			if logger.ShouldSampleDebug() {
				logHandlerSummary(c, "message", start, "skip", "ok", nil)
			}
			return nil
		}
		logHandlerSummary(c, "message."+normalizeHandlerName(stage), start, "", "", nil,
			slog.String("op", out.String()),
		)
		return nil
	}

	endpoints := opts.Endpoints
	if len(endpoints) == 0 {
		endpoints = defaultMessageEndpoints
	}
	wrapped := middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler))
	routes := make([]tg.Route, 0, len(endpoints))
	for _, ep := range endpoints {
		routes = append(routes, tg.Route{Endpoint: ep, Handler: wrapped})
	}
	return routes
}
