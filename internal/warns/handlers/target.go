package handlers

import (
	"strconv"
	"strings"
	"unicode"

	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/telegram/callbacks"
	"github.com/DevTeady/EmiliaHikari/core/telegram/helpers"
)

const textUnknownUser = "I don't have that user in my db. You'll be able to interact with them if " +
	"you reply to that person's message instead, or forward one of that user's messages."

type target struct {
	ID     int64
	Reason string
}

// extractTarget resolves the user a command is aimed at, in order: @username,
// text mention, numeric id, then the author of the replied-to message.
// The rest of the payload becomes the reason.
func (h *Handlers) extractTarget(c tele.Context) (target, bool, error) {
	msg := c.Message()
	if msg == nil {
		return target{}, false, nil
	}
	payload := strings.TrimSpace(msg.Payload)
	first, rest := splitFirst(payload)

	if strings.HasPrefix(first, "@") {
		m, ok, err := h.members.MemberByUsername(helpers.BuildContext(c), first)
		if err != nil {
			return target{}, false, err
		}
		if !ok {
			_ = helpers.ReplyText(c, textUnknownUser)
			return target{}, false, nil
		}
		return target{ID: m.ID, Reason: rest}, true, nil
	}

	for _, e := range msg.Entities {
		if e.Type != tele.EntityTMention || e.User == nil {
			continue
		}
		reason := rest
		if mention := msg.EntityText(e); mention != "" {
			if idx := strings.Index(payload, mention); idx >= 0 {
				reason = strings.TrimSpace(payload[idx+len(mention):])
			}
		}
		return target{ID: e.User.ID, Reason: reason}, true, nil
	}

	if isDigits(first) {
		if id, err := strconv.ParseInt(first, 10, 64); err == nil {
			return target{ID: id, Reason: rest}, true, nil
		}
	}

	if r := msg.ReplyTo; r != nil && r.Sender != nil {
		return target{ID: r.Sender.ID, Reason: payload}, true, nil
	}
	return target{}, false, nil
}

func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

func payloadUserID(c tele.Context) (int64, error) {
	return callbacks.PayloadInt64(c)
}
