package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/DevTeady/EmiliaHikari/core/logger"
)

const previewFiles = 6

// RunMigrations applies every up migration at the root of fsys. Cancelling ctx
// stops after the migration in flight.
func RunMigrations(ctx context.Context, cfg Config, fsys fs.FS) error {
	if err := cfg.Normalize(); err != nil {
		return err
	}

	files := upFiles(fsys)
	logger.Debug(ctx, "db.migrate", "migrations.resolved",
		append(fileAttrs(files), slog.String("driver", cfg.Driver))...)

	src, err := iofs.New(fsys, ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		logger.Error(ctx, "db.migrate", "migrations.init_failed", slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn(ctx, "db.migrate", "migrations.close_failed",
				slog.String("err", errors.Join(srcErr, dbErr).Error()))
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		select {
		case m.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	from := version(m)
	start := time.Now()
	upErr := m.Up()
	took := logger.RoundMS(time.Since(start))

	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, "db.migrate", "migrations.apply_failed",
			slog.Uint64("from_ver", from),
			slog.Duration("duration", took),
			slog.String("err", upErr.Error()),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	to := version(m)
	applied := selectApplied(files, from, to)
	if len(applied) > 0 {
		logger.Debug(ctx, "db.migrate", "migrations.applied", fileAttrs(applied)...)
	}
	logger.Info(ctx, "db.migrate", "migrations.summary",
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", len(applied)),
		slog.Duration("duration", took),
	)
	return ctx.Err()
}

func version(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

func fileAttrs(files []string) []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(files))}
	preview, truncated := logger.SummarizeStrings(files, previewFiles)
	if preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

func upFiles(fsys fs.FS) []string {
	matches, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil
	}
	slices.Sort(matches)
	return matches
}

func parseVersion(name string) uint64 {
	head, _, _ := strings.Cut(path.Base(name), "_")
	v, _ := strconv.ParseUint(head, 10, 64)
	return v
}

func selectApplied(files []string, from, to uint64) []string {
	if to <= from {
		return nil
	}
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
