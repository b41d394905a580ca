package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/telegram/callbacks"
	"github.com/DevTeady/EmiliaHikari/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds bot commands and callbacks. Aliases resolve to the canonical
// command name through a separate index.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc
	notFound  tele.HandlerFunc
}

// NewRegistry creates an empty Registry with default fallbacks.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		notFound: func(c tele.Context) error {
			return callbacks.Answer(c, &tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

func slashed(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || name[0] == '/' {
		return name
	}
	return "/" + name
}

// RegisterCommand adds cmd under name and its aliases. A name or alias that is
// already taken rejects the whole command.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	if r == nil || name == "" || cmd.Handler == nil || cmd.Description == "" {
		return r.skip("register.command.skip", name, "invalid")
	}
	if name[0] != '/' {
		return r.skip("register.command.skip", name, "no_slash_prefix")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	keys := []string{name}
	for _, a := range cmd.Aliases {
		keys = append(keys, slashed(a))
	}
	for _, k := range keys {
		if r.taken(k) {
			return r.skip("register.command.duplicate", k, "taken")
		}
	}
	r.commands[name] = cmd
	for _, k := range keys[1:] {
		r.aliases[k] = name
	}
	return nil
}

func (r *Registry) taken(key string) bool {
	if _, ok := r.commands[key]; ok {
		return true
	}
	_, ok := r.aliases[key]
	return ok
}

func (r *Registry) skip(event, name, reason string) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, event,
		slog.String("name", name),
		slog.String("reason", reason),
	)
	return fmt.Errorf("command %q: %s", name, reason)
}

// ListCommands returns the commands sorted by name. visibleOnly drops hidden
// and owner-only entries.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// LookupCommand resolves a name or alias, with or without the leading slash,
// to its canonical key.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = slashed(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	if key, ok := r.aliases[name]; ok {
		return key, r.commands[key], true
	}
	return "", commands.Command{}, false
}

// Commands returns a snapshot of the registered commands keyed by canonical name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]commands.Command, len(r.commands))
	for k, v := range r.commands {
		out[k] = v
	}
	return out
}

// RegisterCallback maps a callback unique key to its handler.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if r == nil || key == "" || handler == nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.skip",
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return fmt.Errorf("invalid callback registration %q", key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.callback.duplicate",
			slog.String("key", key),
		)
		return fmt.Errorf("callback already registered: %s", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the sorted callback keys.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.callbacks))
	for k := range r.callbacks {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// CallbackNotFound is the handler for callback keys nobody registered.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.notFound
}
