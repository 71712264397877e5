package kv

import (
	"bytes"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)

	if err := s.Put(Words, "1000001", []byte(`{"id":"1000001"}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, ok, err := s.Get(Words, "1000001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to exist")
	}
	if !bytes.Equal(v, []byte(`{"id":"1000001"}`)) {
		t.Fatalf("unexpected payload: %q", v)
	}

	// Overwrite replaces.
	if err := s.Put(Words, "1000001", []byte("v2")); err != nil {
		t.Fatalf("put again: %v", err)
	}
	v, _, _ = s.Get(Words, "1000001")
	if string(v) != "v2" {
		t.Fatalf("expected replaced payload, got %q", v)
	}
}

func TestGetMissingIsNotAnError(t *testing.T) {
	s := openTestStore(t)
	v, ok, err := s.Get(Kanji, "犬")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok || v != nil {
		t.Fatalf("expected absent key, got ok=%v v=%q", ok, v)
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	s := openTestStore(t)
	if err := s.Put(Words, "犬", []byte("word")); err != nil {
		t.Fatalf("put: %v", err)
	}
	_, ok, err := s.Get(Kanji, "犬")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("key leaked across namespaces")
	}
}

func TestBatchCommitIsAtomic(t *testing.T) {
	s := openTestStore(t)

	b := s.NewBatch(Words)
	for _, id := range []string{"a", "b", "c"} {
		b.Put(id, []byte(id))
	}
	if err := s.Commit(b); err != nil {
		t.Fatalf("commit: %v", err)
	}

	n, err := s.Count(Words)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}

	// Empty batch commits are a no-op.
	if err := s.Commit(s.NewBatch(Words)); err != nil {
		t.Fatalf("empty commit: %v", err)
	}
}

func TestMarker(t *testing.T) {
	s := openTestStore(t)

	tok, err := s.Marker(Words)
	if err != nil {
		t.Fatalf("marker: %v", err)
	}
	if tok != "" {
		t.Fatalf("expected empty marker, got %q", tok)
	}

	if err := s.SetMarker(Words, "https://example.com/words-v1.txt"); err != nil {
		t.Fatalf("set marker: %v", err)
	}
	tok, err = s.Marker(Words)
	if err != nil {
		t.Fatalf("marker: %v", err)
	}
	if tok != "https://example.com/words-v1.txt" {
		t.Fatalf("unexpected marker: %q", tok)
	}
}

func TestOpenOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tanoko.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put(Srs, "main", []byte("{}")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopen and confirm the value survived.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	v, ok, err := s.Get(Srs, "main")
	if err != nil || !ok {
		t.Fatalf("get after reopen: ok=%v err=%v", ok, err)
	}
	if string(v) != "{}" {
		t.Fatalf("unexpected payload: %q", v)
	}
}
