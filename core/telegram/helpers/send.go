package helpers

import (
	"bytes"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func currentDispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

const sentKey = "sent_calls"

// SentCount reports how many outbound calls were made or queued for the update.
func SentCount(c tele.Context) int {
	n, _ := c.Get(sentKey).(int)
	return n
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	c.Set(sentKey, SentCount(c)+1)
	disp := currentDispatcher()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	var chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if err := disp.Enqueue(ctx, chatID, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// ReplyText answers the current message with raw text and optional reply markup.
func ReplyText(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := make([]any, 0, 1)
	if len(markup) > 0 && markup[0] != nil {
		opts = append(opts, markup[0])
	}
	return sendAsync(c, "reply.text", "sendMessage", func() error {
		return c.Reply(text, opts...)
	})
}

// ReplyTo answers msg, which need not be the message that triggered the update.
func ReplyTo(c tele.Context, msg *tele.Message, text string, markup ...*tele.ReplyMarkup) error {
	if msg == nil {
		return ReplyText(c, text, markup...)
	}
	opts := &tele.SendOptions{ReplyTo: msg}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return sendAsync(c, "reply.to", "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// ReplyMD answers the current message using Markdown parse mode.
func ReplyMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm}
	return sendAsync(c, "reply.md", "sendMessage", func() error {
		return c.Reply(text, opts)
	})
}

// ReplyChunks answers with several messages in order as a single queued job.
func ReplyChunks(c tele.Context, chunks []string, parseMode tele.ParseMode) error {
	if len(chunks) == 0 {
		return nil
	}
	return sendAsync(c, "reply.chunks", "sendMessage", func() error {
		for _, chunk := range chunks {
			var err error
			if parseMode != "" {
				err = c.Reply(chunk, &tele.SendOptions{ParseMode: parseMode})
			} else {
				err = c.Reply(chunk)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// EditText edits the message carrying the pressed button.
func EditText(c tele.Context, text string) error {
	return sendAsync(c, "edit.text", "editMessageText", func() error {
		return c.Edit(text)
	})
}

// SendSticker posts a sticker by file id to the current chat.
func SendSticker(c tele.Context, fileID string) error {
	if fileID == "" {
		return nil
	}
	return sendAsync(c, "send.sticker", "sendSticker", func() error {
		return c.Send(&tele.Sticker{File: tele.File{FileID: fileID}})
	})
}

// ReplyDocument answers with data attached as a file named name.
func ReplyDocument(c tele.Context, name string, data []byte) error {
	return sendAsync(c, "reply.document", "sendDocument", func() error {
		return c.Reply(&tele.Document{File: tele.FromReader(bytes.NewReader(data)), FileName: name})
	})
}
