package storage

import (
	"bytes"
	"slices"
	"sync"
)

// MemoryStore is an in-memory implementation of a Store, mainly
// used for testing. Do not use MemoryStore in production.
type MemoryStore struct {
	mut sync.RWMutex
	mem map[string][]byte
}

// NewMemoryStore creates a new MemoryStore object.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mem: make(map[string][]byte),
	}
}

// Get implements the Store interface.
func (s *MemoryStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	defer s.mut.RUnlock()
	if val, ok := s.mem[string(key)]; ok && val != nil {
		return val, nil
	}
	return nil, ErrKeyNotFound
}

// PutChangeSet implements the Store interface. Never returns an error.
func (s *MemoryStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		if v != nil {
			s.mem[k] = v
		} else {
			delete(s.mem, k)
		}
	}
	s.mut.Unlock()
	return nil
}

// Seek implements the Store interface.
func (s *MemoryStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	for _, kv := range s.collect(rng, false) {
		if !f(kv.Key, kv.Value) {
			break
		}
	}
	s.mut.RUnlock()
}

// collect returns all the sorted pairs from the range, it's supposed to be
// called with mutex locked. Deleted (nil-valued) items are only returned if
// withDeleted is set.
func (s *MemoryStore) collect(rng SeekRange, withDeleted bool) []KeyValue {
	var memList []KeyValue
	for k, v := range s.mem {
		if (v != nil || withDeleted) && isKeyInRange(rng, []byte(k)) {
			memList = append(memList, KeyValue{
				Key:   []byte(k),
				Value: v,
			})
		}
	}
	cmp := getCmpFunc(rng.Backwards)
	slices.SortFunc(memList, func(a, b KeyValue) int {
		return cmp(a.Key, b.Key)
	})
	return memList
}

func getCmpFunc(backwards bool) func(a, b []byte) int {
	if !backwards {
		return bytes.Compare
	}
	return func(a, b []byte) int {
		return -bytes.Compare(a, b)
	}
}

// Close implements Store interface and clears up memory. Never returns an
// error.
func (s *MemoryStore) Close() error {
	s.mut.Lock()
	s.mem = nil
	s.mut.Unlock()
	return nil
}
