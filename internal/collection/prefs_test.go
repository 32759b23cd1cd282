package collection

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPrefs_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "prefs.yaml")
	p := NewPrefs(path)

	got, err := p.LastCollection()
	if err != nil {
		t.Fatalf("LastCollection before save: %v", err)
	}
	if got != "" {
		t.Errorf("initial value = %q, want empty", got)
	}

	if err := p.SaveLastCollection("/data/collections/work"); err != nil {
		t.Fatalf("SaveLastCollection: %v", err)
	}
	got, err = p.LastCollection()
	if err != nil {
		t.Fatalf("LastCollection: %v", err)
	}
	if got != "/data/collections/work" {
		t.Errorf("value = %q", got)
	}
}

func TestPrefs_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	if err := os.WriteFile(path, []byte(":\tnot yaml {{{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewPrefs(path).LastCollection(); err == nil {
		t.Errorf("corrupt prefs file should report an error")
	}
}
