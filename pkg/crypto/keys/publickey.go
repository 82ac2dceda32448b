package keys

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	lru "github.com/hashicorp/golang-lru"
	"github.com/nspcc-dev/aioracle/pkg/crypto/hash"
	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

// coordLen is the number of bytes in serialized X or Y coordinate.
const coordLen = 32

// PublicKeyLen is the length of the compressed public key.
const PublicKeyLen = 1 + coordLen

// maxKeyCacheSize is the maximum number of parsed keys kept in the cache.
const maxKeyCacheSize = 1024

// keyCache caches parsed keys by their serialized form, parsing (and
// decompression) is expensive.
var keyCache *lru.Cache

func init() {
	keyCache, _ = lru.New(maxKeyCacheSize) // Never errors for positive size.
}

// PublicKeys is a list of public keys.
type PublicKeys []*PublicKey

// Contains checks whether the passed param is contained in PublicKeys.
func (keys PublicKeys) Contains(pKey *PublicKey) bool {
	for _, key := range keys {
		if key.Equal(pKey) {
			return true
		}
	}
	return false
}

// PublicKey represents a secp256k1 public key and provides a high level
// API around it.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// NewPublicKeyFromString returns a public key created from the
// given hex string public key representation in compressed form.
func NewPublicKeyFromString(s string) (*PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return NewPublicKeyFromBytes(b)
}

// NewPublicKeyFromBytes returns a public key created from b. Both compressed
// and uncompressed forms are accepted.
func NewPublicKeyFromBytes(b []byte) (*PublicKey, error) {
	if pk, ok := keyCache.Get(string(b)); ok {
		return pk.(*PublicKey), nil
	}
	k, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("invalid public key: %w", err)
	}
	pk := &PublicKey{key: k}
	keyCache.Add(string(b), pk)
	return pk, nil
}

// Bytes returns the compressed byte representation of the public key.
func (p *PublicKey) Bytes() []byte {
	return p.key.SerializeCompressed()
}

// UncompressedBytes returns the uncompressed byte representation of the
// public key.
func (p *PublicKey) UncompressedBytes() []byte {
	return p.key.SerializeUncompressed()
}

// StringCompressed returns the hex-encoded compressed public key.
func (p *PublicKey) StringCompressed() string {
	return hex.EncodeToString(p.Bytes())
}

// String implements the Stringer interface.
func (p *PublicKey) String() string {
	return p.StringCompressed()
}

// Equal returns true in case public keys are equal.
func (p *PublicKey) Equal(key *PublicKey) bool {
	return p.key.IsEqual(key.key)
}

// Cmp compares two keys by their compressed representation.
func (p *PublicKey) Cmp(key *PublicKey) int {
	return bytes.Compare(p.Bytes(), key.Bytes())
}

// GetScriptHash returns the account hash of the public key, that is
// RIPEMD-160 over SHA-256 of its compressed form.
func (p *PublicKey) GetScriptHash() util.Uint160 {
	return hash.Hash160(p.Bytes())
}

// Address returns the account address derived from the public key.
func (p *PublicKey) Address() string {
	return address.Uint160ToString(p.GetScriptHash())
}

// Verify returns true if the DER-encoded signature is valid for the given
// hash and the public key.
func (p *PublicKey) Verify(signature []byte, h []byte) bool {
	sig, err := ecdsa.ParseDERSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(h, p.key)
}

// EncodeBinary encodes the compressed public key to the given BinWriter.
func (p *PublicKey) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(p.Bytes())
}

// DecodeBinary decodes a compressed public key from the given BinReader.
func (p *PublicKey) DecodeBinary(r *io.BinReader) {
	var b [PublicKeyLen]byte
	r.ReadBytes(b[:])
	if r.Err != nil {
		return
	}
	pk, err := NewPublicKeyFromBytes(b[:])
	if err != nil {
		r.Err = err
		return
	}
	*p = *pk
}

// MarshalJSON implements the json.Marshaler interface.
func (p PublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.StringCompressed())
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (p *PublicKey) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) != 2*PublicKeyLen {
		return errors.New("invalid compressed public key length")
	}
	pk, err := NewPublicKeyFromString(s)
	if err != nil {
		return err
	}
	*p = *pk
	return nil
}
