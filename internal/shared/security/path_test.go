package security

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveWithin(t *testing.T) {
	base := t.TempDir()

	tests := []struct {
		name    string
		elems   []string
		wantErr bool
	}{
		{"scan file", []string{"scans", "3f1c.json"}, false},
		{"no elements", nil, false},
		{"dot dot in middle", []string{"scans", "..", "session.json"}, false},
		{"escape", []string{"..", "etc", "passwd"}, true},
		{"crafted id", []string{"scans", "../../outside.json"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithin(base, tt.elems...)
			if tt.wantErr {
				if !errors.Is(err, ErrPathEscape) {
					t.Fatalf("expected ErrPathEscape, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveWithin returned error: %v", err)
			}
			if !strings.HasPrefix(got, base) {
				t.Errorf("expected %s to stay within %s", got, base)
			}
		})
	}
}

func TestResolveWithinEmptyBase(t *testing.T) {
	if _, err := ResolveWithin("", "x"); err == nil {
		t.Fatal("expected error for empty base directory")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "session.json")

	if err := WriteFileAtomic(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}
	if err := WriteFileAtomic(path, []byte(`{"a":2}`), 0o600); err != nil {
		t.Fatalf("second WriteFileAtomic returned error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"a":2}` {
		t.Errorf("unexpected content %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("expected perm 0600, got %o", info.Mode().Perm())
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}
