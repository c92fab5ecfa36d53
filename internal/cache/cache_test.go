package cache

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestReadMissing(t *testing.T) {
	s := NewFileStore(t.TempDir())
	got, ok, err := s.Read("abc.html")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ok || got != "" {
		t.Fatalf("expected absent entry, got ok=%v content=%q", ok, got)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "does", "not", "exist"))
	content := "line one\r\n  héllo wörld  \n\n\tlast"
	if err := s.Write("k.html", content); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, ok, err := s.Read("k.html")
	if err != nil || !ok {
		t.Fatalf("read: ok=%v err=%v", ok, err)
	}
	if got != content {
		t.Fatalf("round trip mismatch: %q != %q", got, content)
	}
}

func TestWriteOverwrites(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if err := s.Write("k", "a much longer first snapshot"); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("k", "short"); err != nil {
		t.Fatal(err)
	}
	got, _, _ := s.Read("k")
	if got != "short" {
		t.Fatalf("expected full overwrite, got %q", got)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s := NewFileStore(t.TempDir())
	for _, key := range []string{"", "..", "../x", "a/b", `a\b`} {
		err := s.Write(key, "x")
		var ce *CacheError
		if !errors.As(err, &ce) {
			t.Fatalf("key %q: expected CacheError, got %v", key, err)
		}
	}
}

func TestRemove(t *testing.T) {
	s := NewFileStore(t.TempDir())
	if err := s.Remove("missing"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	_ = s.Write("k", "v")
	if err := s.Remove("k"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok, _ := s.Read("k"); ok {
		t.Fatalf("entry should be gone")
	}
}
