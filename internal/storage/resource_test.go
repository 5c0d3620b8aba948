package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type failingReader struct {
	data []byte
	err  error
	sent bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func assertOnlyFiles(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("os.ReadDir(%q) error = %v", dir, err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("files in %s = %v; want %v", dir, got, want)
	}
}

func TestWriteResource(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "app.css")

	n, err := WriteResource(dest, strings.NewReader("body{}"))
	if err != nil {
		t.Fatalf("WriteResource() error = %v", err)
	}
	if n != int64(len("body{}")) {
		t.Fatalf("WriteResource() n = %d; want %d", n, len("body{}"))
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	if string(got) != "body{}" {
		t.Fatalf("file content = %q; want %q", got, "body{}")
	}
	info, err := os.Stat(dest)
	if err != nil {
		t.Fatalf("os.Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o644 {
		t.Fatalf("mode = %v; want 0644", perm)
	}
	assertOnlyFiles(t, dir, "app.css")
}

func TestWriteResourceSourceErrorLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "app.js")

	src := &failingReader{data: []byte("partial"), err: io.ErrUnexpectedEOF}
	_, err := WriteResource(dest, src)
	if err == nil {
		t.Fatal("WriteResource() = nil; want error")
	}
	if !errors.Is(err, ErrSource) {
		t.Fatalf("WriteResource() error = %v; want ErrSource", err)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("WriteResource() error = %v; want wrapped io.ErrUnexpectedEOF", err)
	}
	assertOnlyFiles(t, dir)
}

func TestWriteResourceFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "app.css")
	if _, err := WriteResource(dest, strings.NewReader("good body")); err != nil {
		t.Fatalf("WriteResource() error = %v", err)
	}

	if _, err := WriteResource(dest, &failingReader{data: []byte("bad"), err: io.ErrUnexpectedEOF}); err == nil {
		t.Fatal("WriteResource() = nil; want error")
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("completed file removed by failed write: %v", err)
	}
	if string(got) != "good body" {
		t.Fatalf("file content = %q; want %q", got, "good body")
	}
	assertOnlyFiles(t, dir, "app.css")
}

func TestWriteResourceMissingDirectory(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "absent", "app.css")
	_, err := WriteResource(dest, strings.NewReader("x"))
	if err == nil {
		t.Fatal("WriteResource() = nil; want error for missing directory")
	}
	if errors.Is(err, ErrSource) {
		t.Fatalf("WriteResource() error = %v; want a local filesystem error", err)
	}
}
