// Package teletest provides a recording tele.Context for handler tests.
package teletest

import (
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Sent is a single outbound call captured by Context.
type Sent struct {
	What  any
	Opts  []any
	Reply bool
	Edit  bool
}

// Text returns the outbound payload when it is a string.
func (s Sent) Text() string {
	if t, ok := s.What.(string); ok {
		return t
	}
	return ""
}

// Markup returns the reply markup passed with the call, if any.
func (s Sent) Markup() *tele.ReplyMarkup {
	for _, o := range s.Opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				return v.ReplyMarkup
			}
		}
	}
	return nil
}

// Context implements the subset of tele.Context used by handlers and middleware.
// Methods that are not overridden panic through the nil embedded interface.
type Context struct {
	tele.Context

	Upd tele.Update

	mu        sync.Mutex
	sent      []Sent
	responded []*tele.CallbackResponse
	store     map[string]any
}

// NewMessage builds a context for a message update from user in chat.
func NewMessage(chat *tele.Chat, user *tele.User, text string) *Context {
	msg := &tele.Message{ID: 1, Chat: chat, Sender: user, Text: text}
	if strings.HasPrefix(text, "/") {
		if _, payload, ok := strings.Cut(text, " "); ok {
			msg.Payload = strings.TrimSpace(payload)
		}
	}
	return &Context{Upd: tele.Update{ID: 1, Message: msg}}
}

// NewCallback builds a context for an inline button press.
func NewCallback(chat *tele.Chat, user *tele.User, unique, data string) *Context {
	cb := &tele.Callback{
		ID:      "cb",
		Sender:  user,
		Unique:  unique,
		Data:    data,
		Message: &tele.Message{ID: 2, Chat: chat},
	}
	return &Context{Upd: tele.Update{ID: 2, Callback: cb}}
}

func (c *Context) Update() tele.Update { return c.Upd }

func (c *Context) Message() *tele.Message {
	switch {
	case c.Upd.Message != nil:
		return c.Upd.Message
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Message
	}
	return nil
}

func (c *Context) Callback() *tele.Callback { return c.Upd.Callback }

func (c *Context) Sender() *tele.User {
	switch {
	case c.Upd.Callback != nil:
		return c.Upd.Callback.Sender
	case c.Upd.Message != nil:
		return c.Upd.Message.Sender
	}
	return nil
}

func (c *Context) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *Context) Recipient() tele.Recipient { return c.Chat() }

func (c *Context) Text() string {
	m := c.Message()
	if m == nil {
		return ""
	}
	if m.Caption != "" {
		return m.Caption
	}
	return m.Text
}

func (c *Context) Data() string {
	if c.Upd.Callback != nil {
		return c.Upd.Callback.Data
	}
	if m := c.Message(); m != nil {
		return m.Payload
	}
	return ""
}

func (c *Context) Args() []string {
	if c.Upd.Callback != nil {
		return strings.Split(c.Upd.Callback.Data, "|")
	}
	if m := c.Upd.Message; m != nil && m.Payload != "" {
		return strings.Fields(m.Payload)
	}
	return nil
}

func (c *Context) Migration() (int64, int64) {
	if m := c.Upd.Message; m != nil {
		return m.MigrateFrom, m.MigrateTo
	}
	return 0, 0
}

func (c *Context) record(s Sent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, s)
	return nil
}

func (c *Context) Send(what any, opts ...any) error {
	return c.record(Sent{What: what, Opts: opts})
}

func (c *Context) Reply(what any, opts ...any) error {
	return c.record(Sent{What: what, Opts: opts, Reply: true})
}

func (c *Context) Edit(what any, opts ...any) error {
	return c.record(Sent{What: what, Opts: opts, Edit: true})
}

func (c *Context) EditOrSend(what any, opts ...any) error {
	return c.Edit(what, opts...)
}

func (c *Context) EditOrReply(what any, opts ...any) error {
	return c.Edit(what, opts...)
}

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	c.responded = append(c.responded, resp...)
	return nil
}

func (c *Context) RespondText(text string) error {
	return c.Respond(&tele.CallbackResponse{Text: text})
}

func (c *Context) RespondAlert(text string) error {
	return c.Respond(&tele.CallbackResponse{Text: text, ShowAlert: true})
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = val
}

// Sent returns every captured outbound call in order.
func (c *Context) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sent(nil), c.sent...)
}

// Texts returns the string payloads of captured calls.
func (c *Context) Texts() []string {
	var out []string
	for _, s := range c.Sent() {
		out = append(out, s.Text())
	}
	return out
}

// LastText returns the most recent string payload or "".
func (c *Context) LastText() string {
	texts := c.Texts()
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

// Responses returns captured callback answers.
func (c *Context) Responses() []*tele.CallbackResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*tele.CallbackResponse(nil), c.responded...)
}
