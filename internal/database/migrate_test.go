package database

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "nested", "test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	migrations := filepath.Join(dir, "migrations")
	if err := os.MkdirAll(migrations, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"002_second.sql": `INSERT INTO things (name) VALUES ('second');`,
		"001_first.sql":  `CREATE TABLE things (id INTEGER PRIMARY KEY, name TEXT NOT NULL);`,
		"notes.txt":      `ignored`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(migrations, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	for i := 0; i < 2; i++ {
		if err := ApplyMigrations(db, migrations); err != nil {
			t.Fatalf("apply migrations run %d: %v", i+1, err)
		}
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(1) FROM things`).Scan(&count); err != nil {
		t.Fatalf("count things: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected second migration to run once, got %d rows", count)
	}

	if err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 recorded versions, got %d", count)
	}
}

func TestApplyMigrationsRollsBackFailures(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(filepath.Join(dir, "test.sqlite"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte(`CREATE TABLE broken (`), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := ApplyMigrations(db, dir); err == nil {
		t.Fatalf("expected migration error")
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(1) FROM schema_migrations`).Scan(&count); err != nil {
		t.Fatalf("count versions: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected failed migration to stay unrecorded")
	}
}
