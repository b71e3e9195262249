package tokenstore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFile_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	f := NewFile(path)

	if f.Authenticated() {
		t.Fatal("Authenticated() = true before save")
	}
	tok, err := f.Token()
	if err != nil || tok != "" {
		t.Fatalf("Token() = %q, %v; want empty, nil", tok, err)
	}

	if err := f.Save("  abc.def.ghi \n"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	tok, err = f.Token()
	if err != nil || tok != "abc.def.ghi" {
		t.Errorf("Token() = %q, %v", tok, err)
	}
	if !f.Authenticated() {
		t.Error("Authenticated() = false after save")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}

	if err := f.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := f.Clear(); err != nil {
		t.Errorf("second Clear() error = %v", err)
	}
	if f.Authenticated() {
		t.Error("Authenticated() = true after clear")
	}
}

func TestFile_SaveRejectsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "token"))
	if err := f.Save("   "); err == nil {
		t.Error("Save(blank) should fail")
	}
}
