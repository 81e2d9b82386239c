package docstore

import (
	"errors"
	"path/filepath"
	"testing"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "test.db"), "docs")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := Save(s, "docs", "a", doc{Name: "alpha", Count: 2}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Get[doc](s, "docs", "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "alpha" || got.Count != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)

	if _, err := Get[doc](s, "docs", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing key: err = %v, want ErrNotFound", err)
	}
	if _, err := Get[doc](s, "other", "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing bucket: err = %v, want ErrNotFound", err)
	}
}

func TestListKeysDeleteClear(t *testing.T) {
	s := openTestStore(t)

	for _, k := range []string{"b", "a", "c"} {
		if err := Save(s, "docs", k, doc{Name: k}); err != nil {
			t.Fatalf("Save %s: %v", k, err)
		}
	}

	all, err := List[doc](s, "docs")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 || all[0].Name != "a" || all[2].Name != "c" {
		t.Errorf("List = %+v, want key order a,b,c", all)
	}

	if err := s.Delete("docs", "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete("docs", "b"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	keys, err := s.Keys("docs")
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys = %v, want 2 entries", keys)
	}

	if err := s.Clear("docs"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	all, err = List[doc](s, "docs")
	if err != nil {
		t.Fatalf("List after Clear: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("List after Clear = %+v, want empty", all)
	}
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	if err := s.Ping(); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
