package bootstrap

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/DevTeady/EmiliaHikari/core/config"
	coredatabase "github.com/DevTeady/EmiliaHikari/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestRunSQLite(t *testing.T) {
	migrations := fstest.MapFS{
		"0001_t.up.sql":   {Data: []byte("CREATE TABLE t (id INTEGER PRIMARY KEY);")},
		"0001_t.down.sql": {Data: []byte("DROP TABLE t;")},
	}
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "b.db")},
		Migrations: migrations,
		LoggerInit: noLogger,
	})
	require.NoError(t, err)
	defer res.DB.Close()

	_, err = res.DB.Exec(`INSERT INTO t (id) VALUES (1)`)
	require.NoError(t, err)
}

func TestRunMigrationFailureClosesDB(t *testing.T) {
	boom := errors.New("bad migration")
	var db *sqlx.DB
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Driver: coredatabase.DriverSQLite, Path: filepath.Join(t.TempDir(), "b.db")},
		Migrations: fstest.MapFS{},
		LoggerInit: noLogger,
		Connect: func(ctx context.Context, cfg coredatabase.Config) (*sqlx.DB, error) {
			var err error
			db, err = coredatabase.Connect(ctx, cfg)
			return db, err
		},
		Migrate: func(context.Context, coredatabase.Config, fs.FS) error { return boom },
	})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, db)
	assert.Error(t, db.Ping())
}
