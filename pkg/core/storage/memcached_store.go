package storage

import (
	"maps"
)

// MemCachedStore is a wrapper around persistent store that caches all changes
// being made for them to be later flushed in one batch.
type MemCachedStore struct {
	MemoryStore

	// Persistent Store.
	ps Store
}

// NewMemCachedStore creates a new MemCachedStore object.
func NewMemCachedStore(lower Store) *MemCachedStore {
	return &MemCachedStore{
		MemoryStore: *NewMemoryStore(),
		ps:          lower,
	}
}

// Get implements the Store interface.
func (s *MemCachedStore) Get(key []byte) ([]byte, error) {
	s.mut.RLock()
	val, ok := s.mem[string(key)]
	s.mut.RUnlock()
	if ok {
		if val == nil {
			return nil, ErrKeyNotFound
		}
		return val, nil
	}
	return s.ps.Get(key)
}

// Put puts a new KV pair into the cache. Neither key nor value are copied,
// so they must not be modified afterwards.
func (s *MemCachedStore) Put(key, value []byte) {
	s.mut.Lock()
	s.mem[string(key)] = value
	s.mut.Unlock()
}

// Delete marks the key as deleted in the cache.
func (s *MemCachedStore) Delete(key []byte) {
	s.mut.Lock()
	s.mem[string(key)] = nil
	s.mut.Unlock()
}

// PutChangeSet implements the Store interface, changes are accumulated in
// the cache (deletions included) until Persist is called.
func (s *MemCachedStore) PutChangeSet(puts map[string][]byte) error {
	s.mut.Lock()
	for k, v := range puts {
		s.mem[k] = v
	}
	s.mut.Unlock()
	return nil
}

// Len returns the number of cached changes.
func (s *MemCachedStore) Len() int {
	s.mut.RLock()
	defer s.mut.RUnlock()
	return len(s.mem)
}

// Seek implements the Store interface. Cached items take precedence over
// the ones from the persistent store, deleted items are skipped.
func (s *MemCachedStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
	s.mut.RLock()
	cached := s.collect(rng, true)
	s.mut.RUnlock()

	var (
		cmp  = getCmpFunc(rng.Backwards)
		i    int
		done bool
		emit = func(kv KeyValue) bool {
			if kv.Value == nil {
				return true
			}
			return f(kv.Key, kv.Value)
		}
	)
	s.ps.Seek(rng, func(k, v []byte) bool {
		for ; i < len(cached); i++ {
			c := cmp(cached[i].Key, k)
			if c > 0 {
				break
			}
			if !emit(cached[i]) {
				done = true
				return false
			}
			if c == 0 {
				i++
				return true
			}
		}
		if !f(k, v) {
			done = true
			return false
		}
		return true
	})
	if done {
		return
	}
	for ; i < len(cached); i++ {
		if !emit(cached[i]) {
			return
		}
	}
}

// Persist flushes all the cached changes into the lower store in a single
// change set. The cache is only cleared if the lower store accepts it.
func (s *MemCachedStore) Persist() (int, error) {
	s.mut.Lock()
	defer s.mut.Unlock()

	keys := len(s.mem)
	if keys == 0 {
		return 0, nil
	}
	err := s.ps.PutChangeSet(maps.Clone(s.mem))
	if err != nil {
		return 0, err
	}
	s.mem = make(map[string][]byte)
	return keys, nil
}

// Close implements Store interface, clears up memory and closes the lower layer
// Store.
func (s *MemCachedStore) Close() error {
	// It's always successful.
	_ = s.MemoryStore.Close()
	return s.ps.Close()
}
