package oracle

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/core/dao"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
)

// ParseIdentities parses hex-encoded executor public keys, any malformed
// key fails the whole list.
func ParseIdentities(ss []string) (keys.PublicKeys, error) {
	pubs := make(keys.PublicKeys, 0, len(ss))
	for i := range ss {
		pub, err := keys.NewPublicKeyFromString(ss[i])
		if err != nil {
			return nil, fmt.Errorf("%w: #%d %q: %w", ErrInvalidIdentity, i, ss[i], err)
		}
		pubs = append(pubs, pub)
	}
	return pubs, nil
}

// registerExecutors activates the given executors. Known executors keep
// their insertion index, new ones get the next one.
func registerExecutors(d *dao.Simple, pubs keys.PublicKeys) error {
	for _, pub := range pubs {
		e, err := d.GetExecutor(pub)
		if err != nil {
			if !errors.Is(err, storage.ErrKeyNotFound) {
				return err
			}
			idx, err := d.GetNextExecutorIndex()
			if err != nil {
				return err
			}
			e = &state.Executor{PublicKey: pub, Index: idx}
		}
		e.IsActive = true
		e.LeftBlock = nil
		if err := d.PutExecutor(e); err != nil {
			return err
		}
	}
	return nil
}

// deregisterExecutors deactivates the given executors at the height.
// Unknown and already inactive executors are skipped.
func deregisterExecutors(d *dao.Simple, pubs keys.PublicKeys, height uint64) error {
	for _, pub := range pubs {
		e, err := d.GetExecutor(pub)
		if err != nil {
			if errors.Is(err, storage.ErrKeyNotFound) {
				continue
			}
			return err
		}
		if !e.IsActive {
			continue
		}
		h := height
		e.IsActive = false
		e.LeftBlock = &h
		if err := d.PutExecutor(e); err != nil {
			return err
		}
	}
	return nil
}

// GetExecutor returns the executor record (active or not) by its key.
func GetExecutor(d *dao.Simple, pub *keys.PublicKey) (*state.Executor, error) {
	e, err := d.GetExecutor(pub)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: executor %s", ErrNotFound, pub.StringCompressed())
	}
	return e, err
}

// GetExecutors lists executor records ordered by public key. The window is
// [start, end) for ascending order and (end, start] for descending, nil
// keys leave the corresponding side open.
func GetExecutors(d *dao.Simple, start, end *keys.PublicKey, order paging.Order, limit int) ([]*state.Executor, error) {
	var s, e []byte
	if start != nil {
		s = start.Bytes()
	}
	if end != nil {
		e = end.Bytes()
	}
	return d.SeekExecutors(paging.Bounded(s, e, order, limit))
}

// GetExecutorsByIndex lists executor records ordered by insertion index,
// the offset is an index.
func GetExecutorsByIndex(d *dao.Simple, p Page) ([]*state.Executor, error) {
	return d.SeekExecutorsByIndex(p.rng())
}

// GetExecutorSize returns the number of active executors.
func GetExecutorSize(d *dao.Simple) uint64 {
	return d.CountActiveExecutors()
}

// CheckExecutorInList tells whether the key belongs to an active executor.
func CheckExecutorInList(d *dao.Simple, pub *keys.PublicKey) bool {
	e, err := d.GetExecutor(pub)
	return err == nil && e.IsActive
}
