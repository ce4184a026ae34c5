package statedb

import (
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPutGet(t *testing.T) {
	store := openTestStore(t)

	if err := store.Put("k1", []byte("v1")); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	value, found, err := store.Get("k1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !found {
		t.Fatal("Get: key not found")
	}
	if string(value) != "v1" {
		t.Errorf("value = %q, want %q", value, "v1")
	}

	_, found, err = store.Get("missing")
	if err != nil {
		t.Fatalf("Get missing error: %v", err)
	}
	if found {
		t.Error("Get: missing key reported found")
	}
}

func TestPutOverwrites(t *testing.T) {
	store := openTestStore(t)

	store.Put("k", []byte("old"))
	store.Put("k", []byte("new"))

	value, _, _ := store.Get("k")
	if string(value) != "new" {
		t.Errorf("value = %q, want %q", value, "new")
	}
}

func TestScanPrefixOrderAndIsolation(t *testing.T) {
	store := openTestStore(t)

	// Inserted out of order on purpose.
	store.Put("a\x002", []byte("two"))
	store.Put("a\x001", []byte("one"))
	store.Put("a\x003", []byte("three"))
	store.Put("b\x001", []byte("other"))

	elements, err := store.ScanPrefix("a\x00")
	if err != nil {
		t.Fatalf("ScanPrefix error: %v", err)
	}
	if len(elements) != 3 {
		t.Fatalf("got %d elements, want 3", len(elements))
	}

	want := []string{"one", "two", "three"}
	for i, e := range elements {
		if string(e.Value) != want[i] {
			t.Errorf("element[%d] = %q, want %q", i, e.Value, want[i])
		}
	}
}

func TestScanPrefixEmpty(t *testing.T) {
	store := openTestStore(t)

	elements, err := store.ScanPrefix("none\x00")
	if err != nil {
		t.Fatalf("ScanPrefix error: %v", err)
	}
	if len(elements) != 0 {
		t.Errorf("got %d elements, want 0", len(elements))
	}
}

// The cursor walks [start, limit) in key order and honors an open end.
func TestNewIteratorRange(t *testing.T) {
	store := openTestStore(t)

	for _, key := range []string{"a", "b", "c", "d"} {
		store.Put(key, []byte(key))
	}

	iter := store.NewIterator([]byte("b"), []byte("d"))
	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		t.Fatalf("iterator error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "c" {
		t.Errorf("keys = %v, want [b c]", keys)
	}

	iter = store.NewIterator([]byte("c"), nil)
	keys = keys[:0]
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	iter.Release()
	if len(keys) != 2 || keys[0] != "c" || keys[1] != "d" {
		t.Errorf("open-ended keys = %v, want [c d]", keys)
	}
}

func TestBatchIsAtomic(t *testing.T) {
	store := openTestStore(t)

	batch := store.NewBatch()
	batch.Put([]byte("x"), []byte("1"))
	batch.Put([]byte("y"), []byte("2"))

	// Nothing visible before commit.
	if _, found, _ := store.Get("x"); found {
		t.Fatal("staged write visible before commit")
	}

	if err := store.Write(batch); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	for _, key := range []string{"x", "y"} {
		if _, found, _ := store.Get(key); !found {
			t.Errorf("key %q missing after batch commit", key)
		}
	}
}
