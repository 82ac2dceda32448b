package storage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemCachedStorePersist(t *testing.T) {
	// persistent Store
	ps := NewMemoryStore()
	// cached Store
	ts := NewMemCachedStore(ps)
	// persisting nothing should do nothing
	c, err := ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 0, c)
	// persisting one key should result in one key in ps and nothing in ts
	ts.Put([]byte("key"), []byte("value"))
	c, err = ts.Persist()
	assert.Equal(t, nil, err)
	assert.Equal(t, 1, c)
	v, err := ps.Get([]byte("key"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []byte("value"), v)
	assert.Equal(t, 0, ts.Len())
	// deleting a key should remove it from ps after persisting
	ts.Delete([]byte("key"))
	ts.Put([]byte("key2"), []byte("value2"))
	_, err = ts.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	v, err = ps.Get([]byte("key"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("value"), v)
	c, err = ts.Persist()
	assert.NoError(t, err)
	assert.Equal(t, 2, c)
	_, err = ps.Get([]byte("key"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
	v, err = ps.Get([]byte("key2"))
	assert.NoError(t, err)
	assert.Equal(t, []byte("value2"), v)
}

func TestCachedGetFromPersistent(t *testing.T) {
	key := []byte("key")
	value := []byte("value")
	ps := NewMemoryStore()
	ts := NewMemCachedStore(ps)

	assert.NoError(t, ps.PutChangeSet(map[string][]byte{string(key): value}))
	val, err := ts.Get(key)
	assert.Nil(t, err)
	assert.Equal(t, value, val)
	ts.Delete(key)
	val, err = ts.Get(key)
	assert.Equal(t, err, ErrKeyNotFound)
	assert.Nil(t, val)
}

func TestCachedSeek(t *testing.T) {
	var (
		// Given this prefix...
		goodPrefix = []byte{'f'}
		// these pairs should be found...
		lowerKVs = []KeyValue{
			{[]byte("foo"), []byte("bar")},
			{[]byte("faa"), []byte("bra")},
		}
		// and these should be not.
		deletedKVs = []KeyValue{
			{[]byte("fee"), []byte("pow")},
			{[]byte("fii"), []byte("qaz")},
		}
		// and these should be not.
		updatedKVs = []KeyValue{
			{[]byte("fuu"), []byte("wop")},
			{[]byte("fyy"), []byte("zaq")},
		}
		ps = NewMemoryStore()
		ts = NewMemCachedStore(ps)
	)
	for _, v := range lowerKVs {
		require.NoError(t, ps.PutChangeSet(map[string][]byte{string(v.Key): v.Value}))
	}
	for _, v := range deletedKVs {
		require.NoError(t, ps.PutChangeSet(map[string][]byte{string(v.Key): v.Value}))
		ts.Delete(v.Key)
	}
	for _, v := range updatedKVs {
		require.NoError(t, ps.PutChangeSet(map[string][]byte{string(v.Key): []byte("stub")}))
		ts.Put(v.Key, v.Value)
	}
	foundKVs := make(map[string][]byte)
	var keys [][]byte
	ts.Seek(SeekRange{Prefix: goodPrefix}, func(k, v []byte) bool {
		foundKVs[string(k)] = v
		keys = append(keys, bytes.Clone(k))
		return true
	})
	assert.Equal(t, len(foundKVs), len(lowerKVs)+len(updatedKVs))
	for _, kv := range lowerKVs {
		assert.Equal(t, kv.Value, foundKVs[string(kv.Key)])
	}
	for _, kv := range deletedKVs {
		_, ok := foundKVs[string(kv.Key)]
		assert.Equal(t, false, ok)
	}
	for _, kv := range updatedKVs {
		assert.Equal(t, kv.Value, foundKVs[string(kv.Key)])
	}
	assert.Equal(t, [][]byte{[]byte("faa"), []byte("foo"), []byte("fuu"), []byte("fyy")}, keys)

	t.Run("backwards, early stop", func(t *testing.T) {
		var res []string
		ts.Seek(SeekRange{Prefix: goodPrefix, Backwards: true}, func(k, v []byte) bool {
			res = append(res, string(k))
			return len(res) < 3
		})
		assert.Equal(t, []string{"fyy", "fuu", "foo"}, res)
	})
}

func TestMemCachedPersistFailing(t *testing.T) {
	var (
		bs = &BadStore{}
		t1 = []byte("t1")
		t2 = []byte("t2")
		b1 = []byte("b1")
	)
	ts := NewMemCachedStore(bs)
	ts.Put(t1, t1)
	ts.Put(t2, t2)
	ts.Delete(b1)
	_, err := ts.Persist()
	require.Error(t, err)
	// PutChangeSet() on BadStore should not clear anything, so the cached
	// changes are kept.
	require.Equal(t, 3, ts.Len())
	res, err := ts.Get(t1)
	require.NoError(t, err)
	require.Equal(t, t1, res)
}

// BadStore is a Store that fails on every write.
type BadStore struct{}

func (b *BadStore) Get([]byte) ([]byte, error) {
	return nil, ErrKeyNotFound
}
func (b *BadStore) PutChangeSet(_ map[string][]byte) error {
	return ErrKeyNotFound
}
func (b *BadStore) Seek(rng SeekRange, f func(k, v []byte) bool) {
}
func (b *BadStore) Close() error {
	return nil
}
