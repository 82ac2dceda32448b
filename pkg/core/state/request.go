package state

import (
	"encoding/json"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// Limits for the variable-sized request fields.
const (
	MaxServiceLen = 256
	MaxInputLen   = 65535
)

// Request is an oracle request. It's pending until the merkle root of the
// executors' results is registered for it.
type Request struct {
	Stage              uint64
	Requester          util.Uint160
	RequestHeight      uint64
	SubmitMerkleHeight uint64
	// MerkleRoot is a lowercase hex-encoded root, empty for pending requests.
	MerkleRoot string
	Threshold  uint64
	Service    string
	// Input is optional, nil means no input was given.
	Input []byte
}

// requestAux is an auxiliary struct for Request JSON marshalling.
type requestAux struct {
	Stage              uint64 `json:"stage"`
	Requester          string `json:"requester"`
	RequestHeight      uint64 `json:"request_height"`
	SubmitMerkleHeight uint64 `json:"submit_merkle_height"`
	MerkleRoot         string `json:"merkle_root"`
	Threshold          uint64 `json:"threshold"`
	Service            string `json:"service"`
	Input              []byte `json:"input,omitempty"`
}

// IsFinished tells whether the merkle root is registered for the request.
func (r *Request) IsFinished() bool {
	return r.MerkleRoot != ""
}

// EncodeBinary implements the io.Serializable interface.
func (r *Request) EncodeBinary(w *io.BinWriter) {
	w.WriteU64LE(r.Stage)
	r.Requester.EncodeBinary(w)
	w.WriteU64LE(r.RequestHeight)
	w.WriteU64LE(r.SubmitMerkleHeight)
	w.WriteString(r.MerkleRoot)
	w.WriteU64LE(r.Threshold)
	w.WriteString(r.Service)
	w.WriteBool(r.Input != nil)
	if r.Input != nil {
		w.WriteVarBytes(r.Input)
	}
}

// DecodeBinary implements the io.Serializable interface.
func (r *Request) DecodeBinary(br *io.BinReader) {
	r.Stage = br.ReadU64LE()
	r.Requester.DecodeBinary(br)
	r.RequestHeight = br.ReadU64LE()
	r.SubmitMerkleHeight = br.ReadU64LE()
	r.MerkleRoot = br.ReadString(2 * util.Uint256Size)
	r.Threshold = br.ReadU64LE()
	r.Service = br.ReadString(MaxServiceLen)
	r.Input = nil
	if br.ReadBool() {
		r.Input = br.ReadVarBytes(MaxInputLen)
	}
}

// MarshalJSON implements the json.Marshaler interface.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestAux{
		Stage:              r.Stage,
		Requester:          address.Uint160ToString(r.Requester),
		RequestHeight:      r.RequestHeight,
		SubmitMerkleHeight: r.SubmitMerkleHeight,
		MerkleRoot:         r.MerkleRoot,
		Threshold:          r.Threshold,
		Service:            r.Service,
		Input:              r.Input,
	})
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (r *Request) UnmarshalJSON(data []byte) error {
	aux := new(requestAux)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	requester, err := address.StringToUint160(aux.Requester)
	if err != nil {
		return fmt.Errorf("invalid requester: %w", err)
	}
	*r = Request{
		Stage:              aux.Stage,
		Requester:          requester,
		RequestHeight:      aux.RequestHeight,
		SubmitMerkleHeight: aux.SubmitMerkleHeight,
		MerkleRoot:         aux.MerkleRoot,
		Threshold:          aux.Threshold,
		Service:            aux.Service,
		Input:              aux.Input,
	}
	return nil
}
