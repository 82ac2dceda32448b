package state

import (
	"errors"

	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/io"
)

// Executor is a member (current or past) of the oracle quorum.
type Executor struct {
	PublicKey *keys.PublicKey `json:"pubkey"`
	IsActive  bool            `json:"is_active"`
	// Index is assigned once on the first registration and never reused.
	Index uint64 `json:"executor_index"`
	// LeftBlock is the height of the last deactivation, nil for executors
	// that were never deactivated or were re-registered afterwards.
	LeftBlock *uint64 `json:"left_block"`
}

// EncodeBinary implements the io.Serializable interface.
func (e *Executor) EncodeBinary(w *io.BinWriter) {
	if e.PublicKey == nil {
		w.Err = errors.New("executor without a key")
		return
	}
	e.PublicKey.EncodeBinary(w)
	w.WriteBool(e.IsActive)
	w.WriteU64LE(e.Index)
	w.WriteBool(e.LeftBlock != nil)
	if e.LeftBlock != nil {
		w.WriteU64LE(*e.LeftBlock)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (e *Executor) DecodeBinary(r *io.BinReader) {
	e.PublicKey = new(keys.PublicKey)
	e.PublicKey.DecodeBinary(r)
	e.IsActive = r.ReadBool()
	e.Index = r.ReadU64LE()
	e.LeftBlock = nil
	if r.ReadBool() {
		h := r.ReadU64LE()
		e.LeftBlock = &h
	}
}
