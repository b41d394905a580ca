// Package app wires configuration, storage and the warns module into a
// runnable Telegram bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	tele "gopkg.in/telebot.v4"

	"github.com/DevTeady/EmiliaHikari/core/bootstrap"
	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
	"github.com/DevTeady/EmiliaHikari/core/logger"
	"github.com/DevTeady/EmiliaHikari/core/metrics"
	coretelegram "github.com/DevTeady/EmiliaHikari/core/telegram"
	"github.com/DevTeady/EmiliaHikari/core/telegram/commands"
	"github.com/DevTeady/EmiliaHikari/core/telegram/middleware"
	"github.com/DevTeady/EmiliaHikari/core/telegram/router"
	"github.com/DevTeady/EmiliaHikari/internal/storage"
	"github.com/DevTeady/EmiliaHikari/internal/warns"
	"github.com/DevTeady/EmiliaHikari/internal/warns/handlers"
	"github.com/DevTeady/EmiliaHikari/migrations"
)

const (
	denyGroupOnly   = "This command is meant to be used in groups"
	denyUserAdmin   = "Who dis non-admin telling me what to do?"
	denyBotAdmin    = "I'm not admin!"
	denyCanRestrict = "I can't restrict people here! Make sure I'm admin and can restrict other members."
)

// App owns the infrastructure and handlers of a running bot.
type App struct {
	cfg      *Config
	db       *sqlx.DB
	redis    *goredis.Client
	gateway  *Gateway
	handlers *handlers.Handlers
	registry *coretelegram.Registry

	group  *errgroup.Group
	cancel context.CancelFunc
}

// Deps overrides infrastructure for tests.
type Deps struct {
	LoggerInit func(*coreconfig.Config) error
	Redis      *goredis.Client
}

// Bootstrap connects to storage, applies migrations and builds the handlers.
func Bootstrap(ctx context.Context, cfg *Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   cfg.Database,
		Migrations: migrations.FS,
		LoggerInit: deps.LoggerInit,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, db: res.DB, redis: deps.Redis}
	if a.redis == nil && cfg.Redis.Addr != "" {
		a.redis = goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.close()
			return nil, fmt.Errorf("app: redis ping failed: %w", err)
		}
	}

	var cache RoleCache
	if a.redis != nil {
		cache = NewRedisRoleCache(a.redis)
	}
	a.gateway = NewGateway(cache, time.Duration(cfg.Warns.AdminCacheSeconds)*time.Second)

	store := storage.New(a.db)
	ledger := warns.NewLedger(store, store, a.gateway)
	a.handlers = handlers.New(
		ledger,
		warns.NewRegistry(store, ledger),
		warns.NewService(store),
		store,
		a.gateway,
		handlers.Options{
			BanSticker:       cfg.Warns.BanSticker,
			MaxMessageLength: cfg.Warns.MaxMessageLength,
		},
	)

	a.registry = coretelegram.NewRegistry()
	if err := a.register(); err != nil {
		_ = a.close()
		return nil, err
	}

	logger.Info(ctx, "app", "bootstrap.done",
		slog.String("db_driver", cfg.Database.Driver),
		slog.Bool("redis", a.redis != nil),
		slog.Int("commands", len(a.registry.Commands())),
	)
	return a, nil
}

// Registry exposes registered commands and callbacks.
func (a *App) Registry() *coretelegram.Registry {
	return a.registry
}

func (a *App) register() error {
	group := middleware.GroupOnly(denyGroupOnly)
	admin := middleware.ChatAdmin(a.gateway, denyUserAdmin)
	botAdmin := middleware.BotAdmin(a.gateway, denyBotAdmin)
	restrict := middleware.BotCanRestrict(a.gateway, denyCanRestrict)

	h := a.handlers
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/warn", commands.Command{
			Handler:     h.Warn,
			Description: "Warn a user; reply to them or name them",
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin, restrict)},
		}},
		{"/resetwarn", commands.Command{
			Handler:     h.ResetWarn,
			Description: "Reset a user's warnings",
			Aliases:     []string{"resetwarns"},
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin, botAdmin)},
		}},
		{"/warns", commands.Command{
			Handler:     h.Warns,
			Description: "Show a user's warnings",
			Use:         []tele.MiddlewareFunc{middleware.Require(group)},
		}},
		{"/addwarn", commands.Command{
			Handler:     h.AddWarn,
			Description: "Warn automatically on a keyword",
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin)},
		}},
		{"/nowarn", commands.Command{
			Handler:     h.NoWarn,
			Description: "Stop a warning filter",
			Aliases:     []string{"stopwarn"},
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin)},
		}},
		{"/warnlist", commands.Command{
			Handler:     h.WarnList,
			Description: "List warning filters",
			Aliases:     []string{"warnfilters"},
			Use:         []tele.MiddlewareFunc{middleware.Require(group)},
		}},
		{"/warnlimit", commands.Command{
			Handler:     h.WarnLimit,
			Description: "Show or set the warn limit",
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin)},
		}},
		{"/strongwarn", commands.Command{
			Handler:     h.StrongWarn,
			Description: "Ban (on) or kick (off) at the limit",
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin)},
		}},
		{"/warnsettings", commands.Command{
			Handler:     h.WarnSettings,
			Description: "Show warn settings of this chat",
			Use:         []tele.MiddlewareFunc{middleware.Require(group)},
		}},
		{"/exportwarns", commands.Command{
			Handler:     h.ExportWarns,
			Description: "Export warnings as JSON",
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin)},
		}},
		{"/importwarns", commands.Command{
			Handler:     h.ImportWarns,
			Description: "Import a JSON warnings export",
			Use:         []tele.MiddlewareFunc{middleware.Require(group, admin)},
		}},
		{"/warnstats", commands.Command{
			Handler:     h.WarnStats,
			Description: "Global warn statistics",
			AdminOnly:   true,
			Hidden:      true,
		}},
	}
	for _, c := range cmds {
		if err := a.registry.RegisterCommand(c.name, c.cmd); err != nil {
			return fmt.Errorf("app: register command: %w", err)
		}
	}

	rm := middleware.Require(admin.Silent(), restrict)(h.RemoveWarn)
	if err := a.registry.RegisterCallback(handlers.RemoveWarnUnique, rm); err != nil {
		return fmt.Errorf("app: register callback: %w", err)
	}
	return nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	var rateStore middleware.RateStore
	if a.cfg.RateLimit.Backend == coreconfig.RateLimitBackendRedis {
		if a.redis == nil {
			return coretelegram.RunOptions{}, errors.New("app: redis rate limit backend without redis client")
		}
		rateStore = middleware.NewRedisRateStore(a.redis, "ratelimit:")
	}

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{AdminID: a.cfg.Telegram.OwnerID})
	routes = append(routes, router.CallbackRoute(a.registry))
	routes = append(routes, router.MessageRoutes(a.registry, a.handlers.Stages(), router.MessageOptions{})...)
	routes = append(routes, coretelegram.Route{
		Endpoint: tele.OnMigration,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(a.handlers.Migrate)),
	})

	return coretelegram.RunOptions{
		Config:      &a.cfg.Config,
		Registry:    a.registry,
		Middlewares: coretelegram.DefaultMiddlewares(&a.cfg.Config, rateStore, nil),
		Routes:      routes,
		OnStart:     a.start,
		OnStop:      a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, rt coretelegram.Runtime) error {
	if rt.Bot != nil {
		var self int64
		if rt.Bot.Me != nil {
			self = rt.Bot.Me.ID
		}
		a.gateway.Bind(rt.Bot, self)
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	if a.cfg.Metrics.Listen != "" {
		srv := metrics.NewServer(a.cfg.Metrics.Listen)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	a.group = g
	a.cancel = cancel
	return nil
}

func (a *App) stop(ctx context.Context, _ coretelegram.Runtime) error {
	var errs []error
	if a.cancel != nil {
		a.cancel()
		if err := a.group.Wait(); err != nil {
			errs = append(errs, fmt.Errorf("background: %w", err))
		}
	}
	if err := a.close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		logger.Error(ctx, "app", "shutdown.failed", slog.String("err", errors.Join(errs...).Error()))
	}
	return errors.Join(errs...)
}

func (a *App) close() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("db close: %w", err))
		}
		a.db = nil
	}
	return errors.Join(errs...)
}
