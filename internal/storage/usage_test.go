package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type stubSizer struct {
	bytes int64
	err   error
}

func (s *stubSizer) ScanStoreBytes(context.Context) (int64, error) { return s.bytes, s.err }

func TestUsageReporter_Snapshot(t *testing.T) {
	dir := t.TempDir()

	// Options store: a single file of 100 bytes.
	optPath := filepath.Join(dir, "options.db")
	if err := os.WriteFile(optPath, make([]byte, 100), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Task logs: a directory with nested files totaling 30 bytes.
	logDir := filepath.Join(dir, "task_logs")
	if err := os.MkdirAll(filepath.Join(logDir, "2025-06"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "run.log"), make([]byte, 10), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(logDir, "2025-06", "scan.log"), make([]byte, 20), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	u := NewUsageReporter(&stubSizer{bytes: 1000}, optPath, logDir)
	got, err := u.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.ScanStoreBytes != 1000 || got.OptionsStoreBytes != 100 || got.TaskLogBytes != 30 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if got.TotalBytes != 1130 {
		t.Fatalf("total = %d, want 1130", got.TotalBytes)
	}
}

func TestUsageReporter_MissingPathsCountZero(t *testing.T) {
	u := NewUsageReporter(&stubSizer{bytes: 42}, "/nonexistent/options.db", "")
	got, err := u.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if got.OptionsStoreBytes != 0 || got.TaskLogBytes != 0 || got.TotalBytes != 42 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
}

func TestUsageReporter_StoreFailure(t *testing.T) {
	u := NewUsageReporter(&stubSizer{err: errors.New("down")}, "", "")
	if _, err := u.Snapshot(context.Background()); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}
