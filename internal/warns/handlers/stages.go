package handlers

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/telegram/helpers"
	"github.com/DevTeady/EmiliaHikari/core/telegram/router"
	"github.com/DevTeady/EmiliaHikari/internal/warns"
)

// Stages returns the message pipeline: remember the sender, then apply filters.
func (h *Handlers) Stages() []router.Stage {
	return []router.Stage{
		{Name: "members", Handle: h.recordMember},
		{Name: "filters", Handle: h.applyFilters},
	}
}

func (h *Handlers) recordMember(c tele.Context) (router.Outcome, error) {
	u := c.Sender()
	if u == nil || u.IsBot {
		return router.Continue, nil
	}
	err := h.members.RecordMember(helpers.BuildContext(c), warns.Member{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
	})
	if err != nil {
		// Losing a username mapping must not block moderation.
		logger.Warn(helpers.BuildContext(c), "service.warns", "member.record",
			slog.String("err", err.Error()),
		)
	}
	return router.Continue, nil
}

func (h *Handlers) applyFilters(c tele.Context) (router.Outcome, error) {
	chat, user := c.Chat(), c.Sender()
	if chat == nil || user == nil || (chat.Type != tele.ChatGroup && chat.Type != tele.ChatSuperGroup) {
		return router.Continue, nil
	}
	text := messageText(c)
	if text == "" {
		return router.Continue, nil
	}
	outs, err := h.registry.MatchAndWarn(helpers.BuildContext(c), chat.ID, user.ID, text)
	for _, out := range outs {
		if rerr := h.announce(c, c.Message(), out); rerr != nil {
			return router.Handled, rerr
		}
	}
	if err != nil {
		return router.Handled, err
	}
	if len(outs) == 0 {
		return router.Continue, nil
	}
	return router.Handled, nil
}

// messageText is the text, caption or sticker emoji of the message.
func messageText(c tele.Context) string {
	if t := c.Text(); t != "" {
		return t
	}
	if m := c.Message(); m != nil && m.Sticker != nil {
		return m.Sticker.Emoji
	}
	return ""
}
