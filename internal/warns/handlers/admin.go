package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/telegram/helpers"
	"github.com/DevTeady/EmiliaHikari/internal/warns"
)

const maxImportSize = 1 << 20

const (
	textImportUsage   = "Reply to an exported warns JSON file with /importwarns."
	textImportInvalid = "That file has invalid user ids or too many warns, nothing was imported."
)

// FileFetcher downloads a Telegram file; *tele.Bot satisfies it.
type FileFetcher interface {
	File(file *tele.File) (io.ReadCloser, error)
}

// WarnSettings handles /warnsettings.
func (h *Handlers) WarnSettings(c tele.Context) error {
	text, err := h.service.ChatSummary(helpers.BuildContext(c), c.Chat().ID)
	if err != nil {
		return h.fail(c, "warnsettings", err)
	}
	return helpers.ReplyMD(c, text)
}

// ExportWarns handles /exportwarns and replies with a JSON document.
func (h *Handlers) ExportWarns(c tele.Context) error {
	data, err := h.service.Export(helpers.BuildContext(c), c.Chat().ID)
	if err != nil {
		return h.fail(c, "exportwarns", err)
	}
	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return h.fail(c, "exportwarns", err)
	}
	return helpers.ReplyDocument(c, fmt.Sprintf("warns_%d.json", c.Chat().ID), body)
}

// ImportWarns handles /importwarns sent as a reply to a JSON document.
func (h *Handlers) ImportWarns(c tele.Context) error {
	reply := c.Message().ReplyTo
	if reply == nil || reply.Document == nil || h.files == nil {
		return helpers.ReplyText(c, textImportUsage)
	}
	rc, err := h.files.File(&reply.Document.File)
	if err != nil {
		return h.fail(c, "importwarns", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(io.LimitReader(rc, maxImportSize))
	if err != nil {
		return h.fail(c, "importwarns", err)
	}
	var data warns.ExportData
	if err := json.NewDecoder(bytes.NewReader(raw)).Decode(&data); err != nil {
		return helpers.ReplyText(c, textImportUsage)
	}
	n, err := h.service.Import(helpers.BuildContext(c), c.Chat().ID, data)
	if errors.Is(err, warns.ErrBadImport) {
		return helpers.ReplyText(c, textImportInvalid)
	}
	if err != nil {
		return h.fail(c, "importwarns", err)
	}
	return helpers.ReplyText(c, fmt.Sprintf("Imported %d warns and %d warn filters.", n, len(data.Filters)))
}

// WarnStats handles the owner-only /warnstats.
func (h *Handlers) WarnStats(c tele.Context) error {
	st, err := h.service.Stats(helpers.BuildContext(c))
	if err != nil {
		return h.fail(c, "warnstats", err)
	}
	return helpers.ReplyText(c, st.String())
}

// Migrate moves a chat's records when a group becomes a supergroup.
func (h *Handlers) Migrate(c tele.Context) error {
	from, to := c.Migration()
	if from == 0 || to == 0 {
		return nil
	}
	return h.service.MigrateChat(helpers.BuildContext(c), from, to)
}
