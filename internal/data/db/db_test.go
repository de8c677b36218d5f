package db

import (
	"strings"
	"testing"
)

func TestSQLiteDSN(t *testing.T) {
	got := SQLiteDSN("data/catalog.db")
	want := "file:data/catalog.db?_foreign_keys=1&_journal_mode=WAL&_busy_timeout=5000"
	if got != want {
		t.Fatalf("SQLiteDSN: want=%q got=%q", want, got)
	}
	got = SQLiteDSN("file:x.db?cache=shared")
	if !strings.HasPrefix(got, "file:x.db?cache=shared&_foreign_keys=1") {
		t.Fatalf("SQLiteDSN with query: got=%q", got)
	}
}

func TestPostgresDSNDefaults(t *testing.T) {
	got := PostgresDSN(Config{PostgresPassword: "pw"})
	want := "postgres://postgres:pw@localhost:5432/imagerate?sslmode=disable"
	if got != want {
		t.Fatalf("PostgresDSN: want=%q got=%q", want, got)
	}
}

func TestResetAllRecreatesSchema(t *testing.T) {
	gdb, err := OpenSQLiteForTest(strings.ReplaceAll(t.Name(), "/", "_"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := AutoMigrateAll(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := gdb.Exec(`INSERT INTO assets (remote_id, folder, group_id, ordinal, source_tag, created_at, updated_at)
		VALUES ('f/a_1.png', 'f', 'a', 1, 'f', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := ResetAll(gdb); err != nil {
		t.Fatalf("ResetAll: %v", err)
	}
	var n int64
	if err := gdb.Table("assets").Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("assets after reset: want=0 got=%d", n)
	}
	for _, table := range []string{"assets", "evaluations", "sync_cursors", "sync_runs"} {
		if !gdb.Migrator().HasTable(table) {
			t.Fatalf("table %s missing after reset", table)
		}
	}
}
