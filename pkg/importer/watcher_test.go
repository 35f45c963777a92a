package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func startWatcher(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	})
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestWatcher_ImportsDroppedFile(t *testing.T) {
	im, r := tempImporter(t)
	dir := t.TempDir()
	w := NewWatcher(dir, im, nil, WithSettle(50*time.Millisecond))
	startWatcher(t, w)

	// Let the watch register before dropping.
	waitFor(t, "watch", func() bool { return exists(dir) })
	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "booth12.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "import", func() bool { return r.Count() == 2 })
	waitFor(t, "move", func() bool {
		return exists(filepath.Join(dir, ImportedDir, "booth12.csv"))
	})
	if exists(filepath.Join(dir, "booth12.csv")) {
		t.Error("source file left in drop directory")
	}
}

func TestWatcher_ImportsExistingFilesOnStart(t *testing.T) {
	im, r := tempImporter(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "early.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt.bak"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(dir, im, nil, WithSettle(20*time.Millisecond))
	startWatcher(t, w)

	waitFor(t, "import", func() bool { return r.Count() == 2 })
	waitFor(t, "move", func() bool { return exists(filepath.Join(dir, ImportedDir, "early.csv")) })
	if !exists(filepath.Join(dir, "notes.txt.bak")) {
		t.Error("unsupported file was touched")
	}
}

func TestWatcher_BadFileMovesToFailed(t *testing.T) {
	im, r := tempImporter(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "empty.csv"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(dir, im, nil, WithSettle(20*time.Millisecond))
	startWatcher(t, w)

	waitFor(t, "failed move", func() bool { return exists(filepath.Join(dir, FailedDir, "empty.csv")) })
	if r.Count() != 0 {
		t.Errorf("count = %d, want 0", r.Count())
	}
}

func TestWatcher_StopDropsScheduled(t *testing.T) {
	im, r := tempImporter(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "late.csv"), []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(dir, im, nil, WithSettle(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, "schedule", func() bool { return w.Scheduled() == 1 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if w.Scheduled() != 0 || r.Count() != 0 {
		t.Errorf("scheduled %d, count %d after stop", w.Scheduled(), r.Count())
	}
	if !exists(filepath.Join(dir, "late.csv")) {
		t.Error("file moved without import")
	}
}

func TestWatcher_CancelledImportLeavesFileInPlace(t *testing.T) {
	im, r := tempImporter(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "late.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(dir, im, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.ctx = ctx
	w.process(path)

	if !exists(path) {
		t.Error("file moved after a cancelled import")
	}
	if exists(filepath.Join(dir, FailedDir, "late.csv")) {
		t.Error("cancelled import treated as a failure")
	}
	if r.Count() != 0 {
		t.Errorf("count = %d, want 0", r.Count())
	}
}
