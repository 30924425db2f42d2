package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	errs "threadsdl/pkg/errors"
)

type stringSource string

func (s stringSource) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, string(s))
	return int64(n), err
}

type failingSource struct{}

func (failingSource) WriteTo(w io.Writer) (int64, error) {
	io.WriteString(w, "partial")
	return 7, errors.New("disk full")
}

func TestManagerWriteArchive(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "out")

	manager, err := NewManager(outputDir, true)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	if manager.Exists("alice.zip") {
		t.Error("Expected archive not to exist yet")
	}

	path, err := manager.WriteArchive("alice.zip", stringSource("zip-bytes"))
	if err != nil {
		t.Fatalf("WriteArchive failed: %v", err)
	}
	if path != filepath.Join(outputDir, "alice.zip") {
		t.Errorf("Unexpected path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read archive: %v", err)
	}
	if string(data) != "zip-bytes" {
		t.Errorf("Unexpected content %q", data)
	}

	leftovers, _ := filepath.Glob(filepath.Join(outputDir, ".alice.zip.*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("Temporary files left behind: %v", leftovers)
	}
}

func TestManagerOverwrite(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "bob.zip")
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	keep, _ := NewManager(dir, false)
	_, err := keep.WriteArchive("bob.zip", stringSource("new"))
	if !errs.Is(err, errs.ErrorTypeStorage) {
		t.Fatalf("Expected storage error, got %v", err)
	}
	if data, _ := os.ReadFile(existing); string(data) != "old" {
		t.Errorf("Existing archive was modified: %q", data)
	}

	replace, _ := NewManager(dir, true)
	if _, err := replace.WriteArchive("bob.zip", stringSource("new")); err != nil {
		t.Fatalf("WriteArchive failed: %v", err)
	}
	if data, _ := os.ReadFile(existing); string(data) != "new" {
		t.Errorf("Expected archive to be replaced, got %q", data)
	}
}

func TestManagerFailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	manager, _ := NewManager(dir, true)

	if _, err := manager.WriteArchive("carol.zip", failingSource{}); err == nil {
		t.Fatal("Expected error from failing source")
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		t.Errorf("Unexpected leftover file %s", e.Name())
	}
}

func TestManagerRejectsPathNames(t *testing.T) {
	manager, _ := NewManager(t.TempDir(), true)
	for _, name := range []string{"", "../escape.zip", "nested/a.zip"} {
		if _, err := manager.WriteArchive(name, stringSource("x")); err == nil || !strings.Contains(err.Error(), "invalid archive name") {
			t.Errorf("Expected invalid name error for %q, got %v", name, err)
		}
	}
}
