package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
	coretelegram "github.com/DevTeady/EmiliaHikari/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	started, stopped bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started = true; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { a.stopped = true; return nil },
	}, nil
}

func TestRunWiresLifecycle(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	app := &fakeApp{}
	var gotPath string
	err := Run(Options{
		DefaultConfigPath: "configs/test.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			gotPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(ctx context.Context, _ ConfigCarrier) (TelegramApp, error) {
			require.NotNil(t, ctx)
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "configs/test.yaml", gotPath)
	assert.True(t, app.started)
	assert.True(t, app.stopped)
}

func TestRunPrefersEnvPath(t *testing.T) {
	t.Setenv("WARNBOT_CONFIG", "/etc/warnbot.yaml")
	var gotPath string
	err := Run(Options{
		ConfigEnvVar:      "WARNBOT_CONFIG",
		DefaultConfigPath: "configs/config.yaml",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			gotPath = path
			return nil, errors.New("missing")
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) { return nil, nil },
	})
	require.Error(t, err)
	assert.Equal(t, "/etc/warnbot.yaml", gotPath)
}

func TestRunBootstrapFailure(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	err := Run(Options{
		DefaultConfigPath: "x.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return nil, errors.New("db down")
		},
	})
	require.ErrorContains(t, err, "db down")
}
