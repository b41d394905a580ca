package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestNormalize(t *testing.T) {
	cfg := Config{Driver: "SQLite", Path: "bot.db", MaxConnections: 8}
	if err := cfg.Normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Driver != DriverSQLite || cfg.MaxConnections != 1 {
		t.Fatalf("unexpected sqlite config: %+v", cfg)
	}

	pg := Config{Host: "db", Name: "bot"}
	if err := pg.Normalize(); err != nil {
		t.Fatalf("normalize postgres: %v", err)
	}
	if pg.Driver != DriverPostgres || pg.Port != "5432" || pg.SSLMode != "disable" || pg.MaxConnections != 10 {
		t.Fatalf("unexpected postgres defaults: %+v", pg)
	}

	for _, bad := range []Config{{Driver: "mysql"}, {Driver: "sqlite"}, {Driver: "postgres"}} {
		if err := bad.Normalize(); err == nil {
			t.Fatalf("expected error for %+v", bad)
		}
	}
}

func TestParseVersion(t *testing.T) {
	files := []string{"0001_warns.up.sql", "0002_known_users.up.sql", "0003_more.up.sql"}
	if got := parseVersion(files[1]); got != 2 {
		t.Fatalf("parseVersion = %d, want 2", got)
	}
	applied := selectApplied(files, 1, 3)
	if len(applied) != 2 || applied[0] != files[1] {
		t.Fatalf("selectApplied = %v", applied)
	}
	if got := selectApplied(files, 3, 3); got != nil {
		t.Fatalf("expected nothing applied, got %v", got)
	}
}

func TestRunMigrationsSQLite(t *testing.T) {
	fsys := fstest.MapFS{
		"0001_notes.up.sql":   {Data: []byte("CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT NOT NULL);")},
		"0001_notes.down.sql": {Data: []byte("DROP TABLE notes;")},
	}
	cfg := Config{Driver: DriverSQLite, Path: filepath.Join(t.TempDir(), "test.db")}

	if err := RunMigrations(context.Background(), cfg, fsys); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Second run is a no-op.
	if err := RunMigrations(context.Background(), cfg, fsys); err != nil {
		t.Fatalf("migrate again: %v", err)
	}

	db, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(`INSERT INTO notes (body) VALUES ('hello')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var n int
	if err := db.Get(&n, `SELECT COUNT(*) FROM notes`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}
}
