/*
Package merkle implements binary Merkle trees with sorted sibling pairs and
verification of inclusion proofs against a hex-encoded root.

Every leaf is hashed with SHA-256 and every inner node is SHA-256 over the
concatenation of its two children ordered as unsigned byte strings, so a
proof is a plain list of sibling hashes without left/right markers.
*/
package merkle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/crypto/hash"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

var (
	// ErrDecode is returned for malformed hex inputs.
	ErrDecode = errors.New("error decoding")
	// ErrWrongLength is returned for hashes that are not 32 bytes long.
	ErrWrongLength = errors.New("wrong length")
	// ErrEmpty is returned on an attempt to build a tree without leaves.
	ErrEmpty = errors.New("no leaves")
)

// Tree is a Merkle tree built over a list of leaves.
type Tree struct {
	// levels[0] contains leaf hashes, the last level contains the root.
	levels [][]util.Uint256
}

// DecodeHash decodes a hex-encoded 32-byte hash.
func DecodeHash(s string) (util.Uint256, error) {
	var h util.Uint256
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if len(b) != util.Uint256Size {
		return h, fmt.Errorf("%w: expected %d bytes, got %d", ErrWrongLength, util.Uint256Size, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashPair returns the parent hash of two sibling nodes.
func HashPair(a, b util.Uint256) util.Uint256 {
	var buf [2 * util.Uint256Size]byte
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	copy(buf[:], a[:])
	copy(buf[util.Uint256Size:], b[:])
	return hash.Sha256(buf[:])
}

// Verify checks that leaf belongs to the tree with the given root using the
// proof. Both root and proof elements are hex-encoded 32-byte hashes, any
// of them failing to decode makes the whole call fail. An empty proof
// means the leaf is the only element of the tree.
func Verify(root string, leaf []byte, proof []string) (bool, error) {
	hashes := make([]util.Uint256, 0, len(proof))
	for i := range proof {
		p, err := DecodeHash(proof[i])
		if err != nil {
			return false, fmt.Errorf("proof element %d: %w", i, err)
		}
		hashes = append(hashes, p)
	}
	r, err := DecodeHash(root)
	if err != nil {
		return false, fmt.Errorf("root: %w", err)
	}
	return VerifyHashes(r, leaf, hashes), nil
}

// VerifyHashes is the same as Verify, but accepts decoded hashes.
func VerifyHashes(root util.Uint256, leaf []byte, proof []util.Uint256) bool {
	h := hash.Sha256(leaf)
	for _, p := range proof {
		h = HashPair(h, p)
	}
	return h == root
}

// NewTree builds a tree over the given leaves. A node without a sibling is
// promoted to the next level unchanged.
func NewTree(leaves [][]byte) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmpty
	}
	level := make([]util.Uint256, len(leaves))
	for i := range leaves {
		level[i] = hash.Sha256(leaves[i])
	}
	t := &Tree{levels: [][]util.Uint256{level}}
	for len(level) > 1 {
		next := make([]util.Uint256, (len(level)+1)/2)
		for i := range next {
			if 2*i+1 == len(level) {
				next[i] = level[2*i]
			} else {
				next[i] = HashPair(level[2*i], level[2*i+1])
			}
		}
		t.levels = append(t.levels, next)
		level = next
	}
	return t, nil
}

// Root returns the root hash of the tree.
func (t *Tree) Root() util.Uint256 {
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the inclusion proof for the leaf with the given index.
func (t *Tree) Proof(index int) ([]util.Uint256, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, fmt.Errorf("leaf index %d is out of range", index)
	}
	var proof []util.Uint256
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling < len(level) {
			proof = append(proof, level[sibling])
		}
		index /= 2
	}
	return proof, nil
}

// EncodeProof converts proof hashes to their hex form accepted by Verify.
func EncodeProof(proof []util.Uint256) []string {
	res := make([]string, len(proof))
	for i := range proof {
		res[i] = proof[i].String()
	}
	return res
}
