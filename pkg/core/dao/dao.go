/*
Package dao implements the data access layer of the oracle: typed getters
and setters for all the entities and indexes on top of a caching store.
*/
package dao

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// Version is the DB schema version, it's checked on node startup.
const Version = "0.2.0"

// ErrNotInitialized is returned for a DB that has no oracle state yet.
var ErrNotInitialized = errors.New("oracle state is not initialized")

// indexValue is stored for index entries that carry no payload, nil and
// empty values are not distinguishable in all backends.
var indexValue = []byte{1}

// Simple is memCached wrapper around DB, simple DAO implementation.
type Simple struct {
	Store *storage.MemCachedStore
}

// NewSimple creates new simple dao using provided backend store.
func NewSimple(backend storage.Store) *Simple {
	return &Simple{Store: storage.NewMemCachedStore(backend)}
}

// GetWrapped returns new DAO instance with another layer of wrapped
// MemCachedStore around the current DAO Store.
func (dao *Simple) GetWrapped() *Simple {
	return NewSimple(dao.Store)
}

// Persist flushes all the changes made into the (supposedly) persistent
// underlying store.
func (dao *Simple) Persist() (int, error) {
	return dao.Store.Persist()
}

// GetAndDecode performs get operation and decoding with serializable structures.
func (dao *Simple) GetAndDecode(entity io.Serializable, key []byte) error {
	entityBytes, err := dao.Store.Get(key)
	if err != nil {
		return err
	}
	reader := io.NewBinReaderFromBuf(entityBytes)
	entity.DecodeBinary(reader)
	return reader.Err
}

// Put performs put operation with serializable structures.
func (dao *Simple) Put(entity io.Serializable, key []byte) error {
	buf := io.NewBufBinWriter()
	entity.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	dao.Store.Put(key, buf.Bytes())
	return nil
}

func (dao *Simple) getU64(key []byte) (uint64, error) {
	b, err := dao.Store.Get(key)
	if err != nil {
		return 0, err
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid counter length %d", len(b))
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (dao *Simple) putU64(key []byte, v uint64) {
	dao.Store.Put(key, binary.LittleEndian.AppendUint64(nil, v))
}

// -- start version and height.

// GetVersion returns the DB schema version.
func (dao *Simple) GetVersion() (string, error) {
	version, err := dao.Store.Get(storage.SYSVersion.Bytes())
	if errors.Is(err, storage.ErrKeyNotFound) {
		return "", ErrNotInitialized
	}
	return string(version), err
}

// PutVersion stores the DB schema version.
func (dao *Simple) PutVersion(v string) {
	dao.Store.Put(storage.SYSVersion.Bytes(), []byte(v))
}

// GetCurrentHeight returns the number of committed transactions.
func (dao *Simple) GetCurrentHeight() (uint64, error) {
	h, err := dao.getU64(storage.SYSCurrentHeight.Bytes())
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, nil
	}
	return h, err
}

// PutCurrentHeight stores the current height.
func (dao *Simple) PutCurrentHeight(h uint64) {
	dao.putU64(storage.SYSCurrentHeight.Bytes(), h)
}

// -- end version and height.

// -- start transactions.

func makeExecutableKey(hash util.Uint256) []byte {
	return append(storage.DataExecutable.Bytes(), hash.BytesBE()...)
}

// HasTransaction checks whether a transaction with the given hash was
// already committed.
func (dao *Simple) HasTransaction(hash util.Uint256) bool {
	_, err := dao.Store.Get(makeExecutableKey(hash))
	return err == nil
}

// GetAppExecResult returns the execution result of the committed transaction.
func (dao *Simple) GetAppExecResult(hash util.Uint256) (*state.AppExecResult, error) {
	aer := new(state.AppExecResult)
	if err := dao.GetAndDecode(aer, makeExecutableKey(hash)); err != nil {
		return nil, err
	}
	return aer, nil
}

// StoreAsTransaction stores the execution result of the transaction, it also
// marks the transaction hash as committed.
func (dao *Simple) StoreAsTransaction(aer *state.AppExecResult) error {
	return dao.Put(aer, makeExecutableKey(aer.Container))
}

// -- end transactions.

// -- start config.

// GetConfig returns the oracle configuration.
func (dao *Simple) GetConfig() (*state.Config, error) {
	cfg := new(state.Config)
	err := dao.GetAndDecode(cfg, storage.STConfig.Bytes())
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, ErrNotInitialized
	}
	return cfg, err
}

// PutConfig stores the oracle configuration.
func (dao *Simple) PutConfig(cfg *state.Config) error {
	return dao.Put(cfg, storage.STConfig.Bytes())
}

// -- end config.

// -- start executors.

func makeExecutorKey(prefix storage.KeyPrefix, pub []byte) []byte {
	return append(prefix.Bytes(), pub...)
}

func makeExecutorIndexKey(index uint64) []byte {
	return binary.BigEndian.AppendUint64(storage.IXExecutorIndex.Bytes(), index)
}

// GetExecutor returns the executor record by its public key.
func (dao *Simple) GetExecutor(pub *keys.PublicKey) (*state.Executor, error) {
	e := new(state.Executor)
	err := dao.GetAndDecode(e, makeExecutorKey(storage.STExecutor, pub.Bytes()))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// PutExecutor stores the executor record along with its insertion index
// entry and updates the active set membership.
func (dao *Simple) PutExecutor(e *state.Executor) error {
	pub := e.PublicKey.Bytes()
	if err := dao.Put(e, makeExecutorKey(storage.STExecutor, pub)); err != nil {
		return err
	}
	dao.Store.Put(makeExecutorIndexKey(e.Index), pub)
	activeKey := makeExecutorKey(storage.IXExecutorActive, pub)
	if e.IsActive {
		dao.Store.Put(activeKey, indexValue)
	} else {
		dao.Store.Delete(activeKey)
	}
	return nil
}

// GetNextExecutorIndex returns the insertion index for a new executor and
// increments the counter.
func (dao *Simple) GetNextExecutorIndex() (uint64, error) {
	key := storage.SYSExecutorCounter.Bytes()
	idx, err := dao.getU64(key)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return 0, err
	}
	dao.putU64(key, idx+1)
	return idx, nil
}

// CountActiveExecutors returns the number of active executors.
func (dao *Simple) CountActiveExecutors() uint64 {
	var n uint64
	dao.Store.Seek(storage.SeekRange{Prefix: storage.IXExecutorActive.Bytes()}, func(k, v []byte) bool {
		n++
		return true
	})
	return n
}

func decodeExecutor(v []byte) (*state.Executor, error) {
	e := new(state.Executor)
	r := io.NewBinReaderFromBuf(v)
	e.DecodeBinary(r)
	return e, r.Err
}

// SeekExecutors lists executor records ordered by public key within the
// range.
func (dao *Simple) SeekExecutors(rng paging.Range) ([]*state.Executor, error) {
	var (
		res []*state.Executor
		err error
	)
	rng.Seek(dao.Store, storage.STExecutor.Bytes(), func(k, v []byte) bool {
		var e *state.Executor
		e, err = decodeExecutor(v)
		if err != nil {
			return false
		}
		res = append(res, e)
		return true
	})
	return res, err
}

// SeekExecutorsByIndex lists executor records ordered by insertion index
// within the range, bounds are big-endian encoded indexes.
func (dao *Simple) SeekExecutorsByIndex(rng paging.Range) ([]*state.Executor, error) {
	var pubs [][]byte
	rng.Seek(dao.Store, storage.IXExecutorIndex.Bytes(), func(k, v []byte) bool {
		pubs = append(pubs, append([]byte{}, v...))
		return true
	})
	res := make([]*state.Executor, 0, len(pubs))
	for _, pub := range pubs {
		e := new(state.Executor)
		if err := dao.GetAndDecode(e, makeExecutorKey(storage.STExecutor, pub)); err != nil {
			return nil, fmt.Errorf("executor index is broken: %w", err)
		}
		res = append(res, e)
	}
	return res, nil
}

// -- end executors.

// -- start requests.

// StageKey returns the big-endian stage encoding used in request keys.
func StageKey(stage uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, stage)
}

func makeRequestKey(stage uint64) []byte {
	return binary.BigEndian.AppendUint64(storage.STRequest.Bytes(), stage)
}

// MakeIndexPrefix returns the secondary index key prefix for the given
// field value, the value is length-prefixed so that no value is a prefix of
// another one.
func MakeIndexPrefix(ix storage.KeyPrefix, value []byte) []byte {
	w := io.NewBufBinWriter()
	w.WriteB(byte(ix))
	w.WriteVarBytes(value)
	return w.Bytes()
}

func makeIndexKey(ix storage.KeyPrefix, value []byte, stage uint64) []byte {
	return binary.BigEndian.AppendUint64(MakeIndexPrefix(ix, value), stage)
}

// GetLatestStage returns the latest assigned request stage, 0 if there were
// no requests.
func (dao *Simple) GetLatestStage() (uint64, error) {
	s, err := dao.getU64(storage.SYSLatestStage.Bytes())
	if errors.Is(err, storage.ErrKeyNotFound) {
		return 0, ErrNotInitialized
	}
	return s, err
}

// PutLatestStage stores the latest assigned request stage.
func (dao *Simple) PutLatestStage(stage uint64) {
	dao.putU64(storage.SYSLatestStage.Bytes(), stage)
}

// GetRequest returns the request with the given stage.
func (dao *Simple) GetRequest(stage uint64) (*state.Request, error) {
	req := new(state.Request)
	err := dao.GetAndDecode(req, makeRequestKey(stage))
	if err != nil {
		return nil, err
	}
	return req, nil
}

// PutRequest stores the request and keeps all of its secondary index
// entries consistent with the previous version of the record (if any).
func (dao *Simple) PutRequest(req *state.Request) error {
	old, err := dao.GetRequest(req.Stage)
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return err
	}
	if err := dao.Put(req, makeRequestKey(req.Stage)); err != nil {
		return err
	}
	stageVal := StageKey(req.Stage)
	for _, ix := range []struct {
		prefix storage.KeyPrefix
		value  func(*state.Request) []byte
	}{
		{storage.IXRequestService, func(r *state.Request) []byte { return []byte(r.Service) }},
		{storage.IXRequestMerkleRoot, func(r *state.Request) []byte { return []byte(r.MerkleRoot) }},
		{storage.IXRequestRequester, func(r *state.Request) []byte { return r.Requester.BytesBE() }},
	} {
		newKey := makeIndexKey(ix.prefix, ix.value(req), req.Stage)
		if old != nil {
			oldKey := makeIndexKey(ix.prefix, ix.value(old), old.Stage)
			if string(oldKey) == string(newKey) {
				continue
			}
			dao.Store.Delete(oldKey)
		}
		dao.Store.Put(newKey, stageVal)
	}
	return nil
}

// SeekRequests lists requests ordered by stage within the range, bounds
// are big-endian encoded stages.
func (dao *Simple) SeekRequests(rng paging.Range) ([]*state.Request, error) {
	var (
		res []*state.Request
		err error
	)
	rng.Seek(dao.Store, storage.STRequest.Bytes(), func(k, v []byte) bool {
		req := new(state.Request)
		r := io.NewBinReaderFromBuf(v)
		req.DecodeBinary(r)
		if r.Err != nil {
			err = r.Err
			return false
		}
		res = append(res, req)
		return true
	})
	return res, err
}

// SeekRequestsByIndex lists requests having the given value of the indexed
// field ordered by stage within the range.
func (dao *Simple) SeekRequestsByIndex(ix storage.KeyPrefix, value []byte, rng paging.Range) ([]*state.Request, error) {
	var stages []uint64
	rng.Seek(dao.Store, MakeIndexPrefix(ix, value), func(k, v []byte) bool {
		stages = append(stages, binary.BigEndian.Uint64(k))
		return true
	})
	res := make([]*state.Request, 0, len(stages))
	for _, stage := range stages {
		req, err := dao.GetRequest(stage)
		if err != nil {
			return nil, fmt.Errorf("request index is broken at stage %d: %w", stage, err)
		}
		res = append(res, req)
	}
	return res, nil
}

// -- end requests.
