package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
	"github.com/DevTeady/EmiliaHikari/core/database"
	coretelegram "github.com/DevTeady/EmiliaHikari/core/telegram"
	"github.com/DevTeady/EmiliaHikari/internal/warns/handlers"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{
		Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "x", OwnerID: 1}},
		Database: database.Config{
			Driver: database.DriverSQLite,
			Path:   filepath.Join(t.TempDir(), "warns.db"),
		},
	}
	require.NoError(t, cfg.Normalize())
	return cfg
}

func noLogger(*coreconfig.Config) error { return nil }

func TestBootstrapRegistersModule(t *testing.T) {
	a, err := Bootstrap(context.Background(), testConfig(t), Deps{LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close() })

	cmds := a.Registry().Commands()
	for _, name := range []string{"/warn", "/resetwarn", "/warns", "/addwarn", "/nowarn", "/warnlist", "/warnlimit", "/strongwarn", "/warnsettings", "/exportwarns", "/importwarns", "/warnstats"} {
		cmd, ok := cmds[name]
		require.True(t, ok, name)
		if name != "/warnstats" {
			assert.NotEmpty(t, cmd.Use, "%s should be guarded", name)
		}
	}
	assert.True(t, cmds["/warnstats"].AdminOnly)
	_, ok := a.Registry().GetCallback(handlers.RemoveWarnUnique)
	assert.True(t, ok)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.NotEmpty(t, opts.Routes)
	assert.NotNil(t, opts.OnStart)

	require.NoError(t, opts.OnStart(context.Background(), coretelegram.Runtime{}))
	require.NoError(t, opts.OnStop(context.Background(), coretelegram.Runtime{}))
}

func TestBootstrapRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.Addr = mr.Addr()
	cfg.RateLimit.Backend = coreconfig.RateLimitBackendRedis
	cfg.RateLimit.IntervalMS = 500

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	a, err := Bootstrap(context.Background(), cfg, Deps{LoggerInit: noLogger, Redis: client})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.close() })

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	names := make([]string, 0, len(opts.Middlewares))
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Contains(t, names, "rate_limit")
}

func TestBootstrapRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.Addr = addr
	_, err := Bootstrap(context.Background(), cfg, Deps{LoggerInit: noLogger})
	require.Error(t, err)
}
