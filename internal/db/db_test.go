package db

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "taskintake.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer d.Close()

	for _, table := range []string{"intake_logs", "ai_usage", "api_tokens"} {
		var name string
		err := d.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskintake.db")

	d, err := Open(path)
	if err != nil {
		t.Fatalf("first Open returned error: %v", err)
	}
	d.Close()

	d, err = Open(path)
	if err != nil {
		t.Fatalf("second Open returned error: %v", err)
	}
	d.Close()
}

func TestOpenMemory(t *testing.T) {
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory returned error: %v", err)
	}
	defer d.Close()

	if _, err := d.Exec(
		"INSERT INTO intake_logs (id, user_id, status) VALUES ('x', 'u1', 'completed')",
	); err != nil {
		t.Errorf("inserting into intake_logs: %v", err)
	}
}
