package paging

import (
	"encoding/binary"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/stretchr/testify/require"
)

var testPrefix = []byte{0x42}

func be(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

func newTestStore(t *testing.T, n uint64) storage.Store {
	s := storage.NewMemoryStore()
	puts := make(map[string][]byte)
	for i := uint64(1); i <= n; i++ {
		puts[string(append(append([]byte{}, testPrefix...), be(i)...))] = []byte{byte(i)}
	}
	// Neighbouring prefixes must not leak into the results.
	puts[string([]byte{0x41, 0xff})] = []byte{0xff}
	puts[string([]byte{0x43, 0x00})] = []byte{0xff}
	require.NoError(t, s.PutChangeSet(puts))
	return s
}

func collect(s storage.Store, r Range) []uint64 {
	var res []uint64
	r.Seek(s, testPrefix, func(k, v []byte) bool {
		res = append(res, binary.BigEndian.Uint64(k))
		return true
	})
	return res
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-5))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit))
	require.Equal(t, MaxLimit, NormalizeLimit(1000))
}

func TestNewRange(t *testing.T) {
	r := NewRange(Params{})
	require.Equal(t, Range{Limit: DefaultLimit}, r)

	r = NewRange(Params{Offset: be(3), Limit: 2, Order: Descending})
	require.True(t, r.Backwards)
	require.Nil(t, r.Min)
	require.Equal(t, &Bound{Key: be(3)}, r.Max)

	r = NewRange(Params{Offset: be(3), Order: Order(7)})
	require.False(t, r.Backwards)
	require.Equal(t, &Bound{Key: be(3)}, r.Min)
	require.Equal(t, "ascending", Order(7).String())
	require.Equal(t, "descending", Descending.String())
}

func TestSeekPages(t *testing.T) {
	s := newTestStore(t, 60)

	t.Run("default", func(t *testing.T) {
		res := collect(s, NewRange(Params{}))
		require.Len(t, res, DefaultLimit)
		require.Equal(t, uint64(1), res[0])
		require.Equal(t, uint64(20), res[19])
	})
	t.Run("clamped", func(t *testing.T) {
		res := collect(s, NewRange(Params{Limit: 100}))
		require.Len(t, res, MaxLimit)
	})
	t.Run("ascending pages", func(t *testing.T) {
		res := collect(s, NewRange(Params{Limit: 3}))
		require.Equal(t, []uint64{1, 2, 3}, res)
		res = collect(s, NewRange(Params{Offset: be(3), Limit: 3}))
		require.Equal(t, []uint64{4, 5, 6}, res)
	})
	t.Run("descending pages", func(t *testing.T) {
		res := collect(s, NewRange(Params{Limit: 3, Order: Descending}))
		require.Equal(t, []uint64{60, 59, 58}, res)
		res = collect(s, NewRange(Params{Offset: be(58), Limit: 3, Order: Descending}))
		require.Equal(t, []uint64{57, 56, 55}, res)
	})
	t.Run("offset past the end", func(t *testing.T) {
		require.Empty(t, collect(s, NewRange(Params{Offset: be(60)})))
		require.Empty(t, collect(s, NewRange(Params{Offset: be(1), Order: Descending})))
	})
	t.Run("offset not present", func(t *testing.T) {
		res := collect(s, NewRange(Params{Offset: be(100), Limit: 2, Order: Descending}))
		require.Equal(t, []uint64{60, 59}, res)
	})
	t.Run("early stop", func(t *testing.T) {
		var res []uint64
		NewRange(Params{}).Seek(s, testPrefix, func(k, v []byte) bool {
			res = append(res, binary.BigEndian.Uint64(k))
			return len(res) < 2
		})
		require.Equal(t, []uint64{1, 2}, res)
	})
	t.Run("empty store", func(t *testing.T) {
		require.Empty(t, collect(storage.NewMemoryStore(), NewRange(Params{})))
	})
}

func TestBounded(t *testing.T) {
	s := newTestStore(t, 10)

	require.Equal(t, []uint64{3, 4, 5, 6}, collect(s, Bounded(be(3), be(7), Ascending, 0)))
	require.Equal(t, []uint64{7, 6, 5, 4}, collect(s, Bounded(be(7), be(3), Descending, 0)))
	require.Equal(t, []uint64{3, 4}, collect(s, Bounded(be(3), nil, Ascending, 2)))
	require.Equal(t, []uint64{10, 9}, collect(s, Bounded(nil, be(8), Descending, 0)))
	require.Equal(t, []uint64{1, 2}, collect(s, Bounded(nil, be(3), Ascending, 0)))
	require.Empty(t, collect(s, Bounded(be(5), be(5), Ascending, 0)))
	require.Empty(t, collect(s, Bounded(be(7), be(3), Ascending, 0)))
}

func TestContains(t *testing.T) {
	r := Bounded([]byte{2}, []byte{5}, Ascending, 0)
	require.False(t, r.Contains([]byte{1}))
	require.True(t, r.Contains([]byte{2}))
	require.True(t, r.Contains([]byte{4, 0xff}))
	require.False(t, r.Contains([]byte{5}))
}

func TestParseOrder(t *testing.T) {
	for in, expected := range map[string]Order{
		"":           Ascending,
		"asc":        Ascending,
		"Ascending":  Ascending,
		"1":          Ascending,
		"desc":       Descending,
		"DESCENDING": Descending,
		"2":          Descending,
	} {
		o, err := ParseOrder(in)
		require.NoError(t, err, in)
		require.Equal(t, expected, o, in)
	}
	_, err := ParseOrder("random")
	require.Error(t, err)
}
