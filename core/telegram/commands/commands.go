package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command represents a bot command with its handler, description, and metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly restricts the command to the configured bot owner.
	AdminOnly bool
	Hidden    bool
	Aliases   []string
	// Use wraps Handler, outermost first, e.g. permission guards.
	Use []tele.MiddlewareFunc
}

// Wrapped returns Handler with Use applied.
func (c Command) Wrapped() tele.HandlerFunc {
	h := c.Handler
	for i := len(c.Use) - 1; i >= 0; i-- {
		if c.Use[i] != nil {
			h = c.Use[i](h)
		}
	}
	return h
}
