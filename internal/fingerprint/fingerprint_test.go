package fingerprint

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSum_KnownDigest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := Sum(path)
	if err != nil {
		t.Fatalf("Sum() failed: %v", err)
	}

	const want = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if got != want {
		t.Errorf("Sum() = %s, want %s", got, want)
	}
}

func TestSum_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := Sum(path)
	if err != nil {
		t.Fatalf("Sum() failed: %v", err)
	}

	const want = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got != want {
		t.Errorf("Sum() = %s, want %s", got, want)
	}
}

func TestSum_SameContentSameDigest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.jpg")
	b := filepath.Join(dir, "renamed-copy.jpg")

	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("identical content"), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	da, err := Sum(a)
	if err != nil {
		t.Fatalf("Sum(a) failed: %v", err)
	}
	db, err := Sum(b)
	if err != nil {
		t.Fatalf("Sum(b) failed: %v", err)
	}

	if da != db {
		t.Errorf("digests differ for identical content: %s vs %s", da, db)
	}
}

func TestSum_MissingFile(t *testing.T) {
	if _, err := Sum(filepath.Join(t.TempDir(), "gone")); err == nil {
		t.Error("Sum() succeeded for a missing file, want error")
	}
}
