package middleware

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/metrics"
	tghelpers "github.com/DevTeady/EmiliaHikari/core/telegram/helpers"
)

// RateStore decides whether a user may pass given the minimum interval between updates.
type RateStore interface {
	Allow(ctx context.Context, userID int64, interval time.Duration) (bool, error)
}

// MemoryRateStore keeps the last-seen time per user in process memory.
// Entries whose window has passed are swept at most once per interval.
type MemoryRateStore struct {
	mu        sync.Mutex
	lastSeen  map[int64]time.Time
	lastSweep time.Time
	now       func() time.Time
}

func NewMemoryRateStore() *MemoryRateStore {
	return &MemoryRateStore{lastSeen: make(map[int64]time.Time), now: time.Now}
}

// Allow implements RateStore.
func (s *MemoryRateStore) Allow(_ context.Context, userID int64, interval time.Duration) (bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) >= interval {
		for id, last := range s.lastSeen {
			if now.Sub(last) >= interval {
				delete(s.lastSeen, id)
			}
		}
		s.lastSweep = now
	}
	if last, ok := s.lastSeen[userID]; ok && now.Sub(last) < interval {
		return false, nil
	}
	s.lastSeen[userID] = now
	return true, nil
}

// RedisRateStore shares rate limit windows between bot replicas.
type RedisRateStore struct {
	client *goredis.Client
	prefix string
}

func NewRedisRateStore(client *goredis.Client, prefix string) *RedisRateStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}
	return &RedisRateStore{client: client, prefix: prefix}
}

// Allow implements RateStore with SET NX PX, so only the first update in a window wins.
func (s *RedisRateStore) Allow(ctx context.Context, userID int64, interval time.Duration) (bool, error) {
	key := s.prefix + strconv.FormatInt(userID, 10)
	return s.client.SetNX(ctx, key, 1, interval).Result()
}

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Store defaults to an in-memory store.
	Store RateStore
}

// RateLimitMiddleware returns a middleware that enforces a minimum interval
// between updates from the same user.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	store := opts.Store
	if store == nil {
		store = NewMemoryRateStore()
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}

			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}
			// Plain messages feed the warn filters and must never be dropped.
			if kind == "migration" || (kind == "message" && !strings.HasPrefix(c.Text(), "/")) {
				return next(c)
			}

			ctx := tghelpers.BuildContext(c)
			allowed, err := store.Allow(ctx, user.ID, opts.Interval)
			if err != nil {
				// A broken store must not silence the bot.
				logger.Warn(ctx, "tg", "tg.rate_limit.store_failed", slog.String("err", err.Error()))
				return next(c)
			}
			if allowed {
				return next(c)
			}

			metrics.IncRateLimited()
			attrs := []slog.Attr{slog.Int64("user_id", user.ID), slog.Bool("rate_limited", true)}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			logger.Warn(ctx, "tg", "tg.rate_limit", attrs...)
			if opts.OnLimited != nil {
				_ = opts.OnLimited(c)
			}
			return nil
		}
	}
}
