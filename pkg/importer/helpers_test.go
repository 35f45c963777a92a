package importer

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fastRetries(t *testing.T) {
	t.Helper()
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })
}

func TestDownloadFile(t *testing.T) {
	content := "Name,Voter ID\nRavi,AB1\n"
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(content))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "roll.csv")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != content {
		t.Errorf("content = %q, want %q", string(data), content)
	}
}

func TestDownloadFile_Retry(t *testing.T) {
	fastRetries(t)
	attempts := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "retry.csv")
	if err := downloadFile(context.Background(), ts.URL, dest); err != nil {
		t.Fatalf("downloadFile with retries: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDownloadFile_AllFail(t *testing.T) {
	fastRetries(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "fail.csv")
	if err := downloadFile(context.Background(), ts.URL, dest); err == nil {
		t.Error("expected error after all retries exhausted")
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(body))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func TestUnzipFile_OnlySpreadsheets(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "batch.zip")
	writeZip(t, src, map[string]string{
		"ward-1/booth12.csv": "Name\nA\n",
		"README.md":          "notes",
		"../escape.csv":      "Name\nB\n",
	})

	out := filepath.Join(dir, "out")
	if err := ensureDir(out); err != nil {
		t.Fatal(err)
	}
	paths, err := unzipFile(src, out)
	if err != nil {
		t.Fatalf("unzipFile: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v, want 2 spreadsheets", paths)
	}
	for _, p := range paths {
		if filepath.Dir(p) != out {
			t.Errorf("%s extracted outside %s", p, out)
		}
	}
}

func TestMoveInto_Collision(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, ImportedDir)
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		src := filepath.Join(dir, "roll.csv")
		if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := moveInto(src, dest, now); err != nil {
			t.Fatalf("moveInto #%d: %v", i, err)
		}
	}
	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if got := entries[0].Name(); got != "20260301T093000.000-roll.csv" {
		t.Errorf("renamed = %q", got)
	}
}
