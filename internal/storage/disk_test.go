package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "studio.db")
	ws := filepath.Join(dir, "workspaces", "alpha")
	if err := os.MkdirAll(filepath.Join(ws, "index"), 0755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		db:                                       "hello",
		filepath.Join(ws, "a.pdf"):               "ab",
		filepath.Join(ws, "index", "faiss.meta"): "c",
	}
	for p, content := range files {
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"single file", []string{db}, 5},
		{"directory tree", []string{ws}, 3},
		{"file and dir", []string{db, ws}, 8},
		{"missing skipped", []string{db, filepath.Join(dir, "nonexistent"), ws}, 8},
		{"empty skipped", []string{"", db}, 5},
		{"none", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %d bytes, want %d", got, tt.want)
			}
		})
	}
}
