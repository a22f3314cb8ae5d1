package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestMigrationFilesOrdered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_more.sql", "001_init.sql", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "nested.sql"), 0o700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	files, err := MigrationFiles(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 || files[0] != "001_init.sql" || files[1] != "002_more.sql" {
		t.Fatalf("unexpected files %v", files)
	}
}

func TestRepoMigrationsPresent(t *testing.T) {
	files, err := MigrationFiles(filepath.Join("..", "..", DefaultMigrationsDir))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("expected at least one migration")
	}
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	if err := RunMigrations(context.Background(), nil, "does-not-matter", zap.NewNop()); err != nil {
		t.Fatalf("expected nil pool to be skipped, got %v", err)
	}
}

func TestSQLiteOpenAndPing(t *testing.T) {
	db, err := NewSQLite(filepath.Join(t.TempDir(), "meals.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	if got := sqlDB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("expected a single connection, got %d", got)
	}
}

func TestNilHandlesReportNotConfigured(t *testing.T) {
	var pg *Postgres
	var rd *Redis
	var sq *SQLite
	ctx := context.Background()
	if pg.Ping(ctx) == nil || rd.Ping(ctx) == nil || sq.Ping(ctx) == nil {
		t.Fatalf("expected errors from nil handles")
	}
	pg.Close()
	rd.Close()
	sq.Close()
}
