package transaction

import (
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/io"
)

const (
	// MaxIdentities is the maximum number of identities in one command.
	MaxIdentities = 1024
	// maxIdentityLen limits the length of a single identity string.
	maxIdentityLen = 256
)

// Command is a mutating oracle call carried by a transaction. The set of
// commands is closed, see the CommandType constants.
type Command interface {
	io.Serializable
	Type() CommandType
}

// UpdateConfig changes the oracle configuration and the executor set. All
// the fields are optional. New executors are registered before the old
// ones are deregistered.
type UpdateConfig struct {
	// NewOwner is the address of the new owner.
	NewOwner *string
	// NewExecutors and OldExecutors are hex-encoded public keys.
	NewExecutors       []string
	OldExecutors       []string
	NewMaxReqThreshold *uint64
}

// RegisterMerkleRoot commits the result of the executors for the stage.
type RegisterMerkleRoot struct {
	Stage      uint64
	MerkleRoot string
	// Executors are hex-encoded public keys of the executors that produced
	// the result, they're validated, but not stored.
	Executors []string
}

// Request creates a new oracle request.
type Request struct {
	Service string
	// Input is optional, nil means no input.
	Input     []byte
	Threshold uint64
}

// NewCommand creates an empty command of the given type.
func NewCommand(t CommandType) (Command, error) {
	switch t {
	case UpdateConfigType:
		return new(UpdateConfig), nil
	case RegisterMerkleRootType:
		return new(RegisterMerkleRoot), nil
	case RequestType:
		return new(Request), nil
	default:
		return nil, fmt.Errorf("unknown command type 0x%02x", byte(t))
	}
}

func writeStrings(w *io.BinWriter, ss []string) {
	w.WriteVarUint(uint64(len(ss)))
	for _, s := range ss {
		w.WriteString(s)
	}
}

func readStrings(r *io.BinReader) []string {
	n := r.ReadVarUint()
	if r.Err != nil {
		return nil
	}
	if n > MaxIdentities {
		r.Err = fmt.Errorf("too many identities: %d", n)
		return nil
	}
	if n == 0 {
		return nil
	}
	ss := make([]string, n)
	for i := range ss {
		ss[i] = r.ReadString(maxIdentityLen)
	}
	return ss
}

// Type implements the Command interface.
func (c *UpdateConfig) Type() CommandType { return UpdateConfigType }

// EncodeBinary implements the io.Serializable interface.
func (c *UpdateConfig) EncodeBinary(w *io.BinWriter) {
	w.WriteBool(c.NewOwner != nil)
	if c.NewOwner != nil {
		w.WriteString(*c.NewOwner)
	}
	writeStrings(w, c.NewExecutors)
	writeStrings(w, c.OldExecutors)
	w.WriteBool(c.NewMaxReqThreshold != nil)
	if c.NewMaxReqThreshold != nil {
		w.WriteU64LE(*c.NewMaxReqThreshold)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (c *UpdateConfig) DecodeBinary(r *io.BinReader) {
	c.NewOwner = nil
	if r.ReadBool() {
		owner := r.ReadString(maxIdentityLen)
		c.NewOwner = &owner
	}
	c.NewExecutors = readStrings(r)
	c.OldExecutors = readStrings(r)
	c.NewMaxReqThreshold = nil
	if r.ReadBool() {
		th := r.ReadU64LE()
		c.NewMaxReqThreshold = &th
	}
}

// Type implements the Command interface.
func (c *RegisterMerkleRoot) Type() CommandType { return RegisterMerkleRootType }

// EncodeBinary implements the io.Serializable interface.
func (c *RegisterMerkleRoot) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(c.Stage)
	w.WriteString(c.MerkleRoot)
	writeStrings(w, c.Executors)
}

// DecodeBinary implements the io.Serializable interface.
func (c *RegisterMerkleRoot) DecodeBinary(r *io.BinReader) {
	c.Stage = r.ReadU64LE()
	c.MerkleRoot = r.ReadString(maxIdentityLen)
	c.Executors = readStrings(r)
}

// Type implements the Command interface.
func (c *Request) Type() CommandType { return RequestType }

// EncodeBinary implements the io.Serializable interface.
func (c *Request) EncodeBinary(w *io.BinWriter) {
	w.WriteString(c.Service)
	w.WriteBool(c.Input != nil)
	if c.Input != nil {
		w.WriteVarBytes(c.Input)
	}
	w.WriteU64LE(c.Threshold)
}

// DecodeBinary implements the io.Serializable interface.
func (c *Request) DecodeBinary(r *io.BinReader) {
	c.Service = r.ReadString(state.MaxServiceLen)
	c.Input = nil
	if r.ReadBool() {
		c.Input = r.ReadVarBytes(state.MaxInputLen)
	}
	c.Threshold = r.ReadU64LE()
}
