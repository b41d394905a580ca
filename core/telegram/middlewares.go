package telegram

import (
	"time"

	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
	"github.com/DevTeady/EmiliaHikari/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares returns recover, rate_limit (when interval_ms > 0),
// logger and metrics in that order. A nil store keeps rate limit state in
// memory; a nil onLimited drops limited updates silently.
func DefaultMiddlewares(cfg *coreconfig.Config, store middleware.RateStore, onLimited func(tele.Context) error) []Middleware {
	chain := []Middleware{{Name: "recover", Use: middleware.RecoverMiddleware}}

	if cfg != nil && cfg.RateLimit.IntervalMS > 0 {
		exclude := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, kind := range cfg.RateLimit.ExcludeUpdates {
			exclude[kind] = struct{}{}
		}
		chain = append(chain, Middleware{Name: "rate_limit", Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond,
			Exclude:   exclude,
			Store:     store,
			OnLimited: onLimited,
		})})
	}

	return append(chain,
		Middleware{Name: "logger", Use: middleware.LoggerMiddleware},
		Middleware{Name: "metrics", Use: middleware.UpdateMetricsMiddleware},
	)
}
