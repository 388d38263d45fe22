package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
)

func queryPragma(t *testing.T, db *sql.DB, name string) string {
	t.Helper()
	var v string
	if err := db.QueryRowContext(context.Background(), "PRAGMA "+name).Scan(&v); err != nil {
		t.Fatalf("reading %s: %v", name, err)
	}
	return v
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if got := queryPragma(t, db, "journal_mode"); !strings.EqualFold(got, "wal") {
		t.Errorf("journal_mode = %q, want wal", got)
	}
	if got := queryPragma(t, db, "foreign_keys"); got != "1" {
		t.Errorf("foreign_keys = %q, want 1", got)
	}
}

func TestOpenMemory(t *testing.T) {
	db, err := Open(context.Background(), Memory)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 1 {
		t.Errorf("max open connections = %d, want 1", got)
	}
	if _, err := db.ExecContext(context.Background(), "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	var n int
	if err := db.QueryRowContext(context.Background(), "SELECT count(*) FROM t").Scan(&n); err != nil {
		t.Fatalf("table not visible on the pinned connection: %v", err)
	}
}
