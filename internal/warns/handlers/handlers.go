// Package handlers adapts Telegram updates to the warns ledger and filter registry.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/telegram/format"
	"github.com/DevTeady/EmiliaHikari/core/telegram/helpers"
	"github.com/DevTeady/EmiliaHikari/core/telegram/keyboard"
	"github.com/DevTeady/EmiliaHikari/internal/warns"
)

// RemoveWarnUnique is the callback key of the "Remove warn" button.
const RemoveWarnUnique = "rm_warn"

const (
	textFailure       = "Something went wrong, please try again later."
	textAdminImmune   = "Damn admins, can't even be warned!"
	textActionFailed  = "An error occurred, I couldn't ban this person!"
	textNoUserWarn    = "No user was designated!"
	textNoUserReset   = "No user has been designated!"
	textReset         = "Warnings have been reset!"
	textWarnRemoved   = "Warn removed."
	textNoFilters     = "No warning filters are active here!"
	textFilterRemoved = "Yep, I'll stop warning people for that."
	textFilterMissing = "That's not a current warning filter - run /warnlist for all active warning filters."
	textLimitTooLow   = "The minimum warn limit is 3!"
	textLimitNaN      = "Give me a number as an arg!"
	textStrengthBan   = "Too many warns will now result in a ban!"
	textStrengthKick  = "Too many warns will now result in a kick! Users will be able to join again after."
	textStrengthHelp  = "I only understand on/yes/no/off!"
	textNoWarns       = "This user hasn't got any warnings!"
)

// Options tunes presentation.
type Options struct {
	// BanSticker is sent before the escalation notice; empty disables it.
	BanSticker string
	// MaxMessageLength bounds each outgoing chunk.
	MaxMessageLength int
}

// Handlers holds the Telegram entrypoints of the warns module.
type Handlers struct {
	ledger   *warns.Ledger
	registry *warns.Registry
	service  *warns.Service
	members  warns.MemberStore
	files    FileFetcher
	opts     Options
}

func New(ledger *warns.Ledger, registry *warns.Registry, service *warns.Service, members warns.MemberStore, files FileFetcher, opts Options) *Handlers {
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = format.MaxMessageLength
	}
	return &Handlers{
		ledger:   ledger,
		registry: registry,
		service:  service,
		members:  members,
		files:    files,
		opts:     opts,
	}
}

// fail answers with a generic message and hands err to the route summary.
func (h *Handlers) fail(c tele.Context, op string, err error) error {
	logger.Error(helpers.BuildContext(c), "service.warns", "handler.failed",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
	_ = helpers.ReplyText(c, textFailure)
	return fmt.Errorf("%s: %w", op, err)
}

// Warn handles /warn.
func (h *Handlers) Warn(c tele.Context) error {
	t, ok, err := h.extractTarget(c)
	if err != nil {
		return h.fail(c, "warn", err)
	}
	if !ok {
		return helpers.ReplyText(c, textNoUserWarn)
	}
	replyTo := c.Message()
	if r := replyTo.ReplyTo; r != nil && r.Sender != nil && r.Sender.ID == t.ID {
		replyTo = r
	}
	out, err := h.ledger.Warn(helpers.BuildContext(c), c.Chat().ID, t.ID, t.Reason, warns.SourceManual)
	if err != nil {
		return h.fail(c, "warn", err)
	}
	return h.announce(c, replyTo, out)
}

// announce renders a warn outcome as a reply to msg.
func (h *Handlers) announce(c tele.Context, msg *tele.Message, out warns.Outcome) error {
	switch out.Kind {
	case warns.OutcomeAdminImmune:
		return helpers.ReplyTo(c, msg, textAdminImmune)
	case warns.OutcomeActionFailed:
		return helpers.ReplyTo(c, msg, textActionFailed)
	case warns.OutcomeLimitReached:
		if err := helpers.SendSticker(c, h.opts.BanSticker); err != nil {
			return err
		}
		return helpers.ReplyTo(c, msg, fmt.Sprintf("%d warnings, this user has been banned!", out.Limit))
	}

	text := fmt.Sprintf("%d/%d warnings... watch out!", out.Count, out.Limit)
	if out.Reason != "" {
		text += " Latest one was because:\n" + out.Reason
	}
	markup := keyboard.InlineButtons([]keyboard.InlineBtn{{
		Text:   "Remove warn",
		Unique: RemoveWarnUnique,
		Data:   strconv.FormatInt(out.UserID, 10),
	}})
	return helpers.ReplyTo(c, msg, text, markup)
}

// RemoveWarn handles the "Remove warn" button.
func (h *Handlers) RemoveWarn(c tele.Context) error {
	userID, err := payloadUserID(c)
	if err != nil {
		return nil
	}
	removed, err := h.ledger.RemoveLastWarn(helpers.BuildContext(c), c.Chat().ID, userID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}
	return helpers.EditText(c, textWarnRemoved)
}

// ResetWarn handles /resetwarn.
func (h *Handlers) ResetWarn(c tele.Context) error {
	t, ok, err := h.extractTarget(c)
	if err != nil {
		return h.fail(c, "resetwarn", err)
	}
	if !ok {
		return helpers.ReplyText(c, textNoUserReset)
	}
	if err := h.ledger.ResetWarns(helpers.BuildContext(c), c.Chat().ID, t.ID); err != nil {
		return h.fail(c, "resetwarn", err)
	}
	return helpers.ReplyText(c, textReset)
}

// Warns handles /warns, defaulting to the sender.
func (h *Handlers) Warns(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	t, ok, err := h.extractTarget(c)
	if err != nil {
		return h.fail(c, "warns", err)
	}
	if !ok {
		t = target{ID: c.Sender().ID}
	}
	rec, err := h.ledger.Warns(ctx, c.Chat().ID, t.ID)
	if err != nil {
		return h.fail(c, "warns", err)
	}
	if rec.Count == 0 {
		return helpers.ReplyText(c, textNoWarns)
	}
	settings, err := h.ledger.Settings(ctx, c.Chat().ID)
	if err != nil {
		return h.fail(c, "warns", err)
	}
	if len(rec.Reasons) == 0 {
		return helpers.ReplyText(c, fmt.Sprintf("User has %d/%d warnings, but no reasons for any of them.", rec.Count, settings.Limit))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "This user has %d/%d warnings, for the following reasons:", rec.Count, settings.Limit)
	for _, r := range rec.Reasons {
		b.WriteString("\n - ")
		b.WriteString(r)
	}
	return helpers.ReplyChunks(c, format.SplitMessage(b.String(), h.opts.MaxMessageLength), "")
}

// AddWarn handles /addwarn. Malformed input is ignored.
func (h *Handlers) AddWarn(c tele.Context) error {
	f, err := h.registry.AddFilter(helpers.BuildContext(c), c.Chat().ID, c.Message().Payload)
	if errors.Is(err, warns.ErrMalformedFilter) {
		return nil
	}
	if err != nil {
		return h.fail(c, "addwarn", err)
	}
	return helpers.ReplyText(c, fmt.Sprintf("Warn handler added for '%s'!", f.Keyword))
}

// NoWarn handles /nowarn.
func (h *Handlers) NoWarn(c tele.Context) error {
	args := c.Args()
	if len(args) == 0 {
		return nil
	}
	res, err := h.registry.RemoveFilter(helpers.BuildContext(c), c.Chat().ID, args[0])
	if err != nil {
		return h.fail(c, "nowarn", err)
	}
	switch res {
	case warns.NoFilters:
		return helpers.ReplyText(c, textNoFilters)
	case warns.FilterNotFound:
		return helpers.ReplyText(c, textFilterMissing)
	}
	return helpers.ReplyText(c, textFilterRemoved)
}

// WarnList handles /warnlist.
func (h *Handlers) WarnList(c tele.Context) error {
	pages, err := h.registry.ListFilters(helpers.BuildContext(c), c.Chat().ID, h.opts.MaxMessageLength)
	if err != nil {
		return h.fail(c, "warnlist", err)
	}
	if len(pages) == 0 {
		return helpers.ReplyText(c, textNoFilters)
	}
	return helpers.ReplyChunks(c, pages, tele.ModeMarkdown)
}

// WarnLimit handles /warnlimit.
func (h *Handlers) WarnLimit(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	args := c.Args()
	if len(args) == 0 {
		s, err := h.ledger.Settings(ctx, c.Chat().ID)
		if err != nil {
			return h.fail(c, "warnlimit", err)
		}
		return helpers.ReplyText(c, fmt.Sprintf("The current warn limit is %d", s.Limit))
	}
	if !isDigits(args[0]) {
		return helpers.ReplyText(c, textLimitNaN)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return helpers.ReplyText(c, textLimitNaN)
	}
	switch err := h.ledger.SetLimit(ctx, c.Chat().ID, n); {
	case errors.Is(err, warns.ErrLimitTooLow):
		return helpers.ReplyText(c, textLimitTooLow)
	case err != nil:
		return h.fail(c, "warnlimit", err)
	}
	return helpers.ReplyText(c, "Updated the warn limit to "+args[0])
}

// StrongWarn handles /strongwarn.
func (h *Handlers) StrongWarn(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	args := c.Args()
	if len(args) == 0 {
		s, err := h.ledger.Settings(ctx, c.Chat().ID)
		if err != nil {
			return h.fail(c, "strongwarn", err)
		}
		mode := "ban"
		if s.SoftWarn {
			mode = "kick"
		}
		return helpers.ReplyMD(c, fmt.Sprintf("Warns are currently set to *%s* users when they exceed the limits.", mode))
	}

	var soft bool
	var reply string
	switch strings.ToLower(args[0]) {
	case "on", "yes":
		soft, reply = false, textStrengthBan
	case "off", "no":
		soft, reply = true, textStrengthKick
	default:
		return helpers.ReplyText(c, textStrengthHelp)
	}
	if err := h.ledger.SetStrength(ctx, c.Chat().ID, soft); err != nil {
		return h.fail(c, "strongwarn", err)
	}
	return helpers.ReplyText(c, reply)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
