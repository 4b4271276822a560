package session

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func openTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "session.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteGetSetDelete(t *testing.T) {
	s := openTestStorage(t)

	if _, ok, err := s.Get("missing"); err != nil || ok {
		t.Errorf("Get(missing) = ok=%v err=%v, want absent", ok, err)
	}

	if err := s.Set("templateFile", "tpl-1.pdf"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, ok, err := s.Get("templateFile")
	if err != nil || !ok || v != "tpl-1.pdf" {
		t.Errorf("Get = %q ok=%v err=%v, want tpl-1.pdf", v, ok, err)
	}

	// Overwrite
	if err := s.Set("templateFile", "tpl-2.pdf"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, _, _ = s.Get("templateFile")
	if v != "tpl-2.pdf" {
		t.Errorf("Get after overwrite = %q, want tpl-2.pdf", v)
	}

	if err := s.Delete("templateFile"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.Get("templateFile"); ok {
		t.Error("key survives Delete")
	}

	// Deleting again is fine
	if err := s.Delete("templateFile"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestSQLiteKeys(t *testing.T) {
	s := openTestStorage(t)
	_ = s.Set("b", "2")
	_ = s.Set("a", "1")
	_ = s.Set("c", "3")

	keys, err := s.Keys()
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, keys); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := s.Set("csvFile", "data-1.csv"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	_ = s.Close()

	s2, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	v, ok, err := s2.Get("csvFile")
	if err != nil || !ok || v != "data-1.csv" {
		t.Errorf("Get after reopen = %q ok=%v err=%v", v, ok, err)
	}
}
