package storage

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/core/storage/dbconfig"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// KeyPrefix constants.
const (
	// DataExecutable marks hashes of committed transactions.
	DataExecutable KeyPrefix = 0x01
	// STConfig holds the oracle configuration singleton.
	STConfig KeyPrefix = 0x10
	// STExecutor maps an executor public key to its record.
	STExecutor KeyPrefix = 0x11
	// IXExecutorIndex maps a big-endian insertion index to an executor key.
	IXExecutorIndex KeyPrefix = 0x12
	// IXExecutorActive contains one entry per active executor.
	IXExecutorActive KeyPrefix = 0x13
	// STRequest maps a big-endian stage to a request record.
	STRequest KeyPrefix = 0x20
	// IXRequestService, IXRequestMerkleRoot and IXRequestRequester are
	// secondary request indexes, each key is a length-prefixed field
	// value followed by a big-endian stage.
	IXRequestService    KeyPrefix = 0x21
	IXRequestMerkleRoot KeyPrefix = 0x22
	IXRequestRequester  KeyPrefix = 0x23
	SYSCurrentHeight    KeyPrefix = 0xc0
	SYSLatestStage      KeyPrefix = 0xc1
	SYSExecutorCounter  KeyPrefix = 0xc2
	SYSVersion          KeyPrefix = 0xf0
)

// SeekRange represents options for Store.Seek operation.
type SeekRange struct {
	// Prefix denotes the Seek's lookup key.
	// Empty Prefix means seeking through all keys in the DB starting
	// the search from Start if it's set.
	Prefix []byte
	// Start denotes value appended to the Prefix to start Seek from.
	// Seeking starting from some key includes this key to the result;
	// if no matching key was found then next suitable key is picked up.
	// Start may be empty. Empty Start means seeking through all keys in
	// the DB with matching Prefix.
	Start []byte
	// Backwards denotes whether Seek direction should be reversed, i.e.
	// whether seeking should be performed in a descending way. For
	// backwards seeking Start is the greatest suffix included.
	Backwards bool
}

// ErrKeyNotFound is an error returned by Store implementations
// when a certain key is not found.
var ErrKeyNotFound = errors.New("key not found")

type (
	// Store is the underlying KV backend for the oracle data, it's
	// not intended to be used directly, you wrap it with some memory cache
	// layer most of the time.
	Store interface {
		Get([]byte) ([]byte, error)
		// PutChangeSet allows to push prepared changeset to the Store.
		// Nil values denote deletions. The changeset is applied atomically.
		PutChangeSet(puts map[string][]byte) error
		// Seek can guarantee that provided key (k) and value (v) are the only valid until the next call to f.
		// Seek continues iteration until false is returned from f.
		// Key and value slices should not be modified.
		// Seek guarantees that key-value items are sorted by key in ascending
		// (descending for backwards seeking) way.
		Seek(rng SeekRange, f func(k, v []byte) bool)
		Close() error
	}

	// KeyPrefix is a constant byte added as a prefix for each key
	// stored.
	KeyPrefix uint8

	// KeyValue represents key-value pair.
	KeyValue struct {
		Key   []byte
		Value []byte
	}
)

// Bytes returns the bytes representation of KeyPrefix.
func (k KeyPrefix) Bytes() []byte {
	return []byte{byte(k)}
}

// seekRangeToPrefixes converts SeekRange to the LevelDB-compatible range,
// both Start and Limit bound the iteration the same way for either direction.
func seekRangeToPrefixes(sr SeekRange) *util.Range {
	var (
		rang  *util.Range
		start = make([]byte, len(sr.Prefix)+len(sr.Start))
	)
	copy(start, sr.Prefix)
	copy(start[len(sr.Prefix):], sr.Start)

	rang = util.BytesPrefix(sr.Prefix)
	if len(sr.Start) == 0 {
		return rang
	}
	if !sr.Backwards {
		rang.Start = start
	} else {
		// The key equal to start is included, longer ones are not.
		rang.Limit = append(start, 0)
	}
	return rang
}

// isKeyInRange checks whether the key is within the SeekRange boundaries.
func isKeyInRange(rng SeekRange, key []byte) bool {
	if len(key) < len(rng.Prefix) || string(key[:len(rng.Prefix)]) != string(rng.Prefix) {
		return false
	}
	if len(rng.Start) == 0 {
		return true
	}
	suffix := string(key[len(rng.Prefix):])
	if rng.Backwards {
		return suffix <= string(rng.Start)
	}
	return suffix >= string(rng.Start)
}

// NewStore creates storage with preselected in configuration database type.
func NewStore(cfg dbconfig.DBConfiguration) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case dbconfig.LevelDB:
		store, err = NewLevelDBStore(cfg.LevelDBOptions)
	case dbconfig.InMemoryDB:
		store = NewMemoryStore()
	case dbconfig.BoltDB:
		store, err = NewBoltDBStore(cfg.BoltDBOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
	return store, err
}
