package middleware

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/metrics"
	"github.com/DevTeady/EmiliaHikari/core/telegram/callbacks"
	tghelpers "github.com/DevTeady/EmiliaHikari/core/telegram/helpers"
)

// AdminOptions defines how bot-owner checks should behave.
type AdminOptions struct {
	AdminID  int64
	OnReject tele.HandlerFunc
}

// AdminOnlyMiddleware ensures that only the bot owner can invoke downstream handlers.
func AdminOnlyMiddleware(opts AdminOptions) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if opts.AdminID != 0 && (c.Sender() == nil || c.Sender().ID != opts.AdminID) {
				metrics.IncDenied("bot_owner")
				if opts.OnReject != nil {
					return opts.OnReject(c)
				}
				return nil
			}
			return next(c)
		}
	}
}

// Permissions resolves chat membership rights for guards.
type Permissions interface {
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
	BotIsAdmin(ctx context.Context, chatID int64) (bool, error)
	BotCanRestrict(ctx context.Context, chatID int64) (bool, error)
}

// Guard is a precondition evaluated before a handler runs. A failed check with
// an empty Denial is silent.
type Guard struct {
	Name   string
	Denial string
	Check  func(c tele.Context) (bool, error)
}

// Require runs guards in order and stops at the first one that fails.
// Denials are answered as a callback alert for button presses and as a reply otherwise.
func Require(guards ...Guard) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			for _, g := range guards {
				ok, err := g.Check(c)
				if err != nil {
					logger.Warn(tghelpers.BuildContext(c), "tg", "guard.check_failed",
						slog.String("op", g.Name),
						slog.String("err", err.Error()),
					)
				}
				if ok {
					continue
				}
				metrics.IncDenied(g.Name)
				logger.Debug(tghelpers.BuildContext(c), "tg", "guard.denied",
					slog.String("op", g.Name),
					slog.String("outcome", "denied"),
				)
				if g.Denial == "" {
					return nil
				}
				if c.Callback() != nil {
					return callbacks.Answer(c, &tele.CallbackResponse{Text: g.Denial, ShowAlert: true})
				}
				return c.Reply(g.Denial)
			}
			return next(c)
		}
	}
}

// Silent returns a copy of g that denies without replying.
func (g Guard) Silent() Guard {
	g.Denial = ""
	return g
}

// GroupOnly passes for group and supergroup chats.
func GroupOnly(denial string) Guard {
	return Guard{
		Name:   "group_only",
		Denial: denial,
		Check: func(c tele.Context) (bool, error) {
			chat := c.Chat()
			return chat != nil && (chat.Type == tele.ChatGroup || chat.Type == tele.ChatSuperGroup), nil
		},
	}
}

// ChatAdmin passes when the sender administers the current chat.
func ChatAdmin(p Permissions, denial string) Guard {
	return Guard{
		Name:   "chat_admin",
		Denial: denial,
		Check: func(c tele.Context) (bool, error) {
			chat, user := c.Chat(), c.Sender()
			if chat == nil || user == nil {
				return false, nil
			}
			return p.IsChatAdmin(tghelpers.BuildContext(c), chat.ID, user.ID)
		},
	}
}

// BotAdmin passes when the bot administers the current chat.
func BotAdmin(p Permissions, denial string) Guard {
	return Guard{
		Name:   "bot_admin",
		Denial: denial,
		Check: func(c tele.Context) (bool, error) {
			chat := c.Chat()
			if chat == nil {
				return false, nil
			}
			return p.BotIsAdmin(tghelpers.BuildContext(c), chat.ID)
		},
	}
}

// BotCanRestrict passes when the bot itself may restrict members of the current chat.
func BotCanRestrict(p Permissions, denial string) Guard {
	return Guard{
		Name:   "bot_can_restrict",
		Denial: denial,
		Check: func(c tele.Context) (bool, error) {
			chat := c.Chat()
			if chat == nil {
				return false, nil
			}
			return p.BotCanRestrict(tghelpers.BuildContext(c), chat.ID)
		},
	}
}
