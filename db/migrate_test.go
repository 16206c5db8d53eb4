package db

import (
	"strings"
	"testing"
	"testing/fstest"
)

func TestExtractUpMigration(t *testing.T) {
	t.Run("Given up and down sections When extracting Then only up SQL is returned", func(t *testing.T) {
		content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
		got := ExtractUpMigration(content)
		if !strings.Contains(got, "CREATE TABLE a") {
			t.Fatalf("expected create statement, got %q", got)
		}
		if strings.Contains(got, "DROP TABLE") {
			t.Fatalf("down section leaked into up SQL: %q", got)
		}
	})

	t.Run("Given no markers When extracting Then whole content is returned", func(t *testing.T) {
		content := "CREATE TABLE b (id INT);"
		if got := ExtractUpMigration(content); got != content {
			t.Fatalf("expected %q, got %q", content, got)
		}
	})
}

func TestMigrationFilesSorted(t *testing.T) {
	fsys := fstest.MapFS{
		"m/0002_more.sql": {Data: []byte("SELECT 2;")},
		"m/0001_init.sql": {Data: []byte("SELECT 1;")},
		"m/README.md":     {Data: []byte("docs")},
	}
	files, err := migrationFiles(fsys, "m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 || files[0] != "0001_init.sql" || files[1] != "0002_more.sql" {
		t.Fatalf("unexpected order: %v", files)
	}
}

func TestEmbeddedSchemaPresent(t *testing.T) {
	files, err := migrationFiles(migrationFS, "migrations")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("expected embedded migrations")
	}
	content, err := migrationFS.ReadFile("migrations/" + files[0])
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	up := ExtractUpMigration(string(content))
	for _, table := range []string{"accounts", "matches", "match_slots", "ledger_entries"} {
		if !strings.Contains(up, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("schema is missing table %s", table)
		}
	}
	if !strings.Contains(up, "accounts_balance_non_negative") {
		t.Error("schema is missing the non-negative balance constraint")
	}
}
