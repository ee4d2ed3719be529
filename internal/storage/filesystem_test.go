package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStoreUpload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static/")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	url, err := store.Upload(context.Background(), "outputs/job-1/output.png", []byte("png bytes"), "image/png")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "http://localhost:8080/static/outputs/job-1/output.png" {
		t.Fatalf("url = %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "outputs", "job-1", "output.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "png bytes" {
		t.Fatalf("content = %q", data)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	for _, key := range []string{"", ".", "../../etc/passwd", "..\\..\\secret"} {
		if _, err := store.Upload(context.Background(), key, []byte("x"), "text/plain"); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"outputs/a/b.png", "outputs/a/b.png", false},
		{"/leading/slash.png", "leading/slash.png", false},
		{"./relative.png", "relative.png", false},
		{"a//b.png", "a/b.png", false},
		{"../escape.png", "", true},
		{"  ", "", true},
	}
	for _, tc := range tests {
		got, err := sanitizeKey(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("sanitizeKey(%q) accepted", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("sanitizeKey(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
