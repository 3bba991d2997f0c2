package runlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audiotool/internal/cachestore"
)

func TestCommitPublishesBothLogs(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)
	w, err := Create(dir, now)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.Record(cachestore.StatusPassed, "/music/a.flac", ""); err != nil {
		t.Fatal(err)
	}
	if err := w.Record(cachestore.StatusFailed, "/music/b.flac", "FFmpeg timed out"); err != nil {
		t.Fatal(err)
	}

	successPath, failedPath, err := w.Commit(Summary{Total: 2, Passed: 1, Failed: 1})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if filepath.Base(successPath) != "Success-2024-05-01_12-30-00.txt" || filepath.Base(failedPath) != "Failed-2024-05-01_12-30-00.txt" {
		t.Fatalf("unexpected log names: %s %s", successPath, failedPath)
	}

	success, err := os.ReadFile(successPath)
	if err != nil {
		t.Fatal(err)
	}
	wantSuccess := "PASSED /music/a.flac\n\nSummary:\nTotal files: 2\nPassed: 1\nFailed: 1\n"
	if string(success) != wantSuccess {
		t.Fatalf("unexpected success log:\n%q\nwant\n%q", success, wantSuccess)
	}
	failed, err := os.ReadFile(failedPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(failed), "FAILED /music/b.flac: FFmpeg timed out\n") {
		t.Fatalf("unexpected failed log: %q", failed)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Fatalf("expected only the two published logs, found %d entries", len(entries))
	}
}

func TestAbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	w, err := Create(dir, time.Now())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_ = w.Record(cachestore.StatusPassed, "/music/a.flac", "")
	w.Abort()
	w.Abort()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected empty log dir after abort, found %d entries", len(entries))
	}
	if err := w.Record(cachestore.StatusPassed, "/music/b.flac", ""); err == nil {
		t.Fatal("expected Record after Abort to fail")
	}
}

func TestCommitPublishesNeitherLogWhenOneRenameFails(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)
	w, err := Create(dir, now)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := w.Record(cachestore.StatusPassed, "/music/a.flac", ""); err != nil {
		t.Fatal(err)
	}

	// A non-empty directory in the Failed log's place makes its rename fail
	// after the Success log has already been published.
	blocker := filepath.Join(dir, "Failed-"+now.Format(TimestampLayout)+".txt")
	if err := os.MkdirAll(filepath.Join(blocker, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, _, err := w.Commit(Summary{Total: 1, Passed: 1}); err == nil {
		t.Fatal("expected Commit to fail")
	}
	successPath := filepath.Join(dir, "Success-"+now.Format(TimestampLayout)+".txt")
	if _, err := os.Stat(successPath); !os.IsNotExist(err) {
		t.Fatalf("expected Success log withdrawn, stat err=%v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || entries[0].Name() != filepath.Base(blocker) {
		t.Fatalf("expected only the blocking directory left, found %v", entries)
	}
}
