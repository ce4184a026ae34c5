// Package statedb is the durable ordered key-value substrate backing the
// ledger state. It wraps an embedded LevelDB instance: byte-ordered
// iteration gives the ascending-key guarantee the composite key space
// relies on, and write batches give all-or-nothing transaction commits.
package statedb

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/iterator"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"
)

// Store is a handle to an open database.
type Store struct {
	db *leveldb.DB
}

// Element is a single key/value pair returned by a scan.
type Element struct {
	Key   string
	Value []byte
}

// Open opens (creating if necessary) the database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{})
	if err != nil {
		return nil, fmt.Errorf("statedb: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get reads the value stored under key. The second result is false when
// the key is absent.
func (s *Store) Get(key string) ([]byte, bool, error) {
	value, err := s.db.Get([]byte(key), nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("statedb: get: %w", err)
	}
	return value, true, nil
}

// Put stores value under key, overwriting any previous value.
func (s *Store) Put(key string, value []byte) error {
	if err := s.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("statedb: put: %w", err)
	}
	return nil
}

// NewBatch returns an empty write batch.
func (s *Store) NewBatch() *leveldb.Batch {
	return new(leveldb.Batch)
}

// Write commits a batch atomically.
func (s *Store) Write(batch *leveldb.Batch) error {
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("statedb: write batch: %w", err)
	}
	return nil
}

// NewIterator returns a lazy cursor over keys in [start, limit), in
// ascending byte order. A nil limit scans to the end of the key space.
// Callers must Release the iterator when done.
func (s *Store) NewIterator(start, limit []byte) iterator.Iterator {
	return s.db.NewIterator(&ldbutil.Range{Start: start, Limit: limit}, nil)
}

// ScanPrefix returns every element whose key starts with prefix, in
// ascending byte order of the full key.
func (s *Store) ScanPrefix(prefix string) ([]Element, error) {
	r := ldbutil.BytesPrefix([]byte(prefix))
	return drain(s.NewIterator(r.Start, r.Limit))
}

// drain copies the iterator contents; the slices handed out by the
// iterator are only valid until the next call to Next.
func drain(iter iterator.Iterator) ([]Element, error) {
	var results []Element
	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())

		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())

		results = append(results, Element{Key: string(key), Value: value})
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("statedb: scan: %w", err)
	}
	return results, nil
}
