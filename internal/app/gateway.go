package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/logger"
)

// ErrNotBound is returned before the gateway is attached to a running bot.
var ErrNotBound = errors.New("app: telegram gateway not bound")

// chatAPI is the part of *tele.Bot the gateway needs.
type chatAPI interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
	Ban(chat *tele.Chat, member *tele.ChatMember, revokeMessages ...bool) error
	Unban(chat *tele.Chat, user *tele.User, forBanned ...bool) error
	File(file *tele.File) (io.ReadCloser, error)
}

// RoleCache stores encoded member roles for a short time.
type RoleCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisRoleCache keeps roles in Redis so replicas share lookups.
type RedisRoleCache struct {
	client *goredis.Client
}

func NewRedisRoleCache(client *goredis.Client) *RedisRoleCache {
	return &RedisRoleCache{client: client}
}

func (r *RedisRoleCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisRoleCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisRoleCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

type memberRole struct {
	Role        tele.MemberStatus
	CanRestrict bool
}

func (m memberRole) encode() string {
	return string(m.Role) + "|" + strconv.FormatBool(m.CanRestrict)
}

func decodeRole(s string) (memberRole, bool) {
	role, restrict, ok := strings.Cut(s, "|")
	if !ok {
		return memberRole{}, false
	}
	can, err := strconv.ParseBool(restrict)
	if err != nil {
		return memberRole{}, false
	}
	return memberRole{Role: tele.MemberStatus(role), CanRestrict: can}, true
}

func (m memberRole) admin() bool {
	return m.Role == tele.Creator || m.Role == tele.Administrator
}

func (m memberRole) restricts() bool {
	return m.Role == tele.Creator || (m.Role == tele.Administrator && m.CanRestrict)
}

// Gateway answers permission checks and performs kicks and bans through the
// Bot API. It satisfies middleware.Permissions, warns.Moderator and
// handlers.FileFetcher.
type Gateway struct {
	mu    sync.RWMutex
	api   chatAPI
	self  int64
	cache RoleCache
	ttl   time.Duration
}

// NewGateway builds an unbound gateway; cache may be nil.
func NewGateway(cache RoleCache, ttl time.Duration) *Gateway {
	return &Gateway{cache: cache, ttl: ttl}
}

// Bind attaches the gateway to the bot, whose own id is selfID.
func (g *Gateway) Bind(api chatAPI, selfID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.api = api
	g.self = selfID
}

func (g *Gateway) bound() (chatAPI, int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.api == nil {
		return nil, 0, ErrNotBound
	}
	return g.api, g.self, nil
}

func roleKey(chatID, userID int64) string {
	return fmt.Sprintf("chat_role:%d:%d", chatID, userID)
}

// role looks the member up, consulting the cache unless fresh is set. A fresh
// lookup still refreshes the cached entry.
func (g *Gateway) role(ctx context.Context, chatID, userID int64, fresh bool) (memberRole, error) {
	api, _, err := g.bound()
	if err != nil {
		return memberRole{}, err
	}
	key := roleKey(chatID, userID)
	if g.cache != nil && !fresh {
		v, ok, err := g.cache.Get(ctx, key)
		if err != nil {
			logger.TG.Warn("role cache read failed",
				slog.String("event", "role.cache"),
				slog.String("err", err.Error()),
			)
		} else if ok {
			if r, ok := decodeRole(v); ok {
				return r, nil
			}
		}
	}

	m, err := api.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		return memberRole{}, fmt.Errorf("get chat member: %w", err)
	}
	r := memberRole{Role: m.Role, CanRestrict: m.CanRestrictMembers}
	if g.cache != nil && g.ttl > 0 {
		if err := g.cache.Set(ctx, key, r.encode(), g.ttl); err != nil {
			logger.TG.Warn("role cache write failed",
				slog.String("event", "role.cache"),
				slog.String("err", err.Error()),
			)
		}
	}
	return r, nil
}

func (g *Gateway) forget(ctx context.Context, chatID, userID int64) {
	if g.cache == nil {
		return
	}
	_ = g.cache.Delete(ctx, roleKey(chatID, userID))
}

// IsChatAdmin reports whether userID administers chatID. Everyone is an admin
// of their private chat with the bot.
func (g *Gateway) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if chatID > 0 {
		return true, nil
	}
	r, err := g.role(ctx, chatID, userID, false)
	if err != nil {
		return false, err
	}
	return r.admin(), nil
}

// IsAdmin implements warns.Moderator. Warn immunity always asks Telegram, so a
// member promoted within the cache TTL is never warned.
func (g *Gateway) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	if chatID > 0 {
		return true, nil
	}
	r, err := g.role(ctx, chatID, userID, true)
	if err != nil {
		return false, err
	}
	return r.admin(), nil
}

func (g *Gateway) BotIsAdmin(ctx context.Context, chatID int64) (bool, error) {
	_, self, err := g.bound()
	if err != nil {
		return false, err
	}
	r, err := g.role(ctx, chatID, self, false)
	if err != nil {
		return false, err
	}
	return r.admin(), nil
}

func (g *Gateway) BotCanRestrict(ctx context.Context, chatID int64) (bool, error) {
	_, self, err := g.bound()
	if err != nil {
		return false, err
	}
	r, err := g.role(ctx, chatID, self, false)
	if err != nil {
		return false, err
	}
	return r.restricts(), nil
}

// Kick removes the user while allowing them to rejoin.
func (g *Gateway) Kick(ctx context.Context, chatID, userID int64) error {
	api, _, err := g.bound()
	if err != nil {
		return err
	}
	defer g.forget(ctx, chatID, userID)
	return api.Unban(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
}

// Ban removes the user permanently.
func (g *Gateway) Ban(ctx context.Context, chatID, userID int64) error {
	api, _, err := g.bound()
	if err != nil {
		return err
	}
	defer g.forget(ctx, chatID, userID)
	return api.Ban(&tele.Chat{ID: chatID}, &tele.ChatMember{User: &tele.User{ID: userID}})
}

// File implements handlers.FileFetcher.
func (g *Gateway) File(file *tele.File) (io.ReadCloser, error) {
	api, _, err := g.bound()
	if err != nil {
		return nil, err
	}
	return api.File(file)
}
