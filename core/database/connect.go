package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/DevTeady/EmiliaHikari/core/logger"
)

const (
	connectTimeout = 5 * time.Second
	readyTimeout   = 30 * time.Second
	pingInterval   = 2 * time.Second
)

// Connect opens the pool and verifies connectivity. Postgres is polled until
// it accepts connections so the bot can start alongside its database.
func Connect(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	if cfg.Driver == DriverPostgres {
		if err := WaitFor(ctx, cfg, readyTimeout); err != nil {
			return nil, err
		}
	}

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(connectCtx, cfg.Driver, cfg.DSN())
	attrs := []slog.Attr{
		slog.String("driver", cfg.Driver),
		slog.String("db", cfg.Target()),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.connect_failed", append(attrs, slog.String("err", err.Error()))...)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)
	logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "db.connect", append(attrs, slog.Int("pool_open", cfg.MaxConnections))...)
	return db, nil
}

// WaitFor pings the database every two seconds until it answers, timeout
// passes or ctx is done.
func WaitFor(ctx context.Context, cfg Config, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := ping(ctx, cfg)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			logger.LogEvent(ctx, logger.DB, slog.LevelError, "db.wait_failed",
				slog.String("db", cfg.Target()),
				slog.Int("attempts", attempt),
				slog.String("err", err.Error()),
			)
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-ticker.C:
		}
	}
}

func ping(ctx context.Context, cfg Config) error {
	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	pingCtx, cancel := context.WithTimeout(ctx, pingInterval)
	defer cancel()
	return db.PingContext(pingCtx)
}
