package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "outbreak.toml")

	cfg, err := loadConfig(missing, false)
	if err != nil {
		t.Fatalf("implicit path: unexpected error %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("implicit path: got addr %q, want the default", cfg.Server.Addr)
	}

	if _, err := loadConfig(missing, true); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("explicit path: expected fs.ErrNotExist, got %v", err)
	}
}

func TestOpenHistoryCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "data", "history.db")

	db, err := openHistory(path)
	if err != nil {
		t.Fatalf("openHistory returned error: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("history directory not created: %v", err)
	}
}

func TestOpenHistoryReportsDirectoryError(t *testing.T) {
	// A regular file where a directory is needed.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	if _, err := openHistory(filepath.Join(blocker, "data", "history.db")); err == nil {
		t.Fatalf("expected an error when the directory cannot be created")
	}
}
