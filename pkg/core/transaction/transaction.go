package transaction

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/nspcc-dev/aioracle/pkg/crypto/hash"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/nspcc-dev/aioracle/pkg/util"
)

const (
	// MaxTransactionSize is the upper limit size in bytes that a
	// transaction can reach.
	MaxTransactionSize = 102400
	// maxSignatureLen is the maximum length of a DER-encoded signature.
	maxSignatureLen = 72
)

// ErrInvalidSignature is returned for transactions with a signature that
// doesn't match the sender key.
var ErrInvalidSignature = errors.New("invalid transaction signature")

// Transaction is a signed oracle command.
type Transaction struct {
	// Nonce makes otherwise equal transactions distinguishable.
	Nonce   uint32
	Command Command
	// Sender is the public key of the account sending the transaction.
	Sender *keys.PublicKey
	// Signature is a DER-encoded signature of the transaction hash.
	Signature []byte

	// Hash of the transaction (SHA256 of the unsigned part).
	hash util.Uint256
	// Whether hash is correct.
	hashed bool
}

// New returns a new unsigned transaction carrying the command.
func New(cmd Command, nonce uint32) *Transaction {
	return &Transaction{
		Nonce:   nonce,
		Command: cmd,
	}
}

// Hash returns the hash of the transaction.
func (t *Transaction) Hash() util.Uint256 {
	if !t.hashed {
		if t.createHash() != nil {
			panic("failed to compute hash!")
		}
	}
	return t.hash
}

// SenderHash returns the account hash of the sender.
func (t *Transaction) SenderHash() util.Uint160 {
	return t.Sender.GetScriptHash()
}

// Sign sets the sender and signs the transaction with the key.
func (t *Transaction) Sign(priv *keys.PrivateKey) {
	t.Sender = priv.PublicKey()
	t.hashed = false
	t.Signature = priv.SignHash(t.Hash())
}

// Verify checks the signature of the transaction.
func (t *Transaction) Verify() error {
	if t.Sender == nil || len(t.Signature) == 0 {
		return fmt.Errorf("%w: missing sender or signature", ErrInvalidSignature)
	}
	h := t.Hash()
	if !t.Sender.Verify(t.Signature, h[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// encodeHashableFields encodes the fields covered by the signature.
func (t *Transaction) encodeHashableFields(bw *io.BinWriter) {
	if t.Command == nil {
		bw.Err = errors.New("transaction has no command")
		return
	}
	bw.WriteU32LE(t.Nonce)
	bw.WriteB(byte(t.Command.Type()))
	t.Command.EncodeBinary(bw)
	if t.Sender == nil {
		bw.Err = errors.New("transaction has no sender")
		return
	}
	t.Sender.EncodeBinary(bw)
}

func (t *Transaction) createHash() error {
	buf := io.NewBufBinWriter()
	t.encodeHashableFields(buf.BinWriter)
	if buf.Err != nil {
		return buf.Err
	}
	t.hash = hash.Sha256(buf.Bytes())
	t.hashed = true
	return nil
}

// EncodeBinary implements the io.Serializable interface.
func (t *Transaction) EncodeBinary(bw *io.BinWriter) {
	t.encodeHashableFields(bw)
	bw.WriteVarBytes(t.Signature)
}

// DecodeBinary implements the io.Serializable interface.
func (t *Transaction) DecodeBinary(br *io.BinReader) {
	t.Nonce = br.ReadU32LE()
	typ := CommandType(br.ReadB())
	if br.Err != nil {
		return
	}
	cmd, err := NewCommand(typ)
	if err != nil {
		br.Err = err
		return
	}
	cmd.DecodeBinary(br)
	t.Command = cmd
	t.Sender = new(keys.PublicKey)
	t.Sender.DecodeBinary(br)
	t.Signature = br.ReadVarBytes(maxSignatureLen)
	if br.Err == nil {
		br.Err = t.createHash()
	}
}

// Bytes returns the serialized transaction.
func (t *Transaction) Bytes() ([]byte, error) {
	buf := io.NewBufBinWriter()
	t.EncodeBinary(buf.BinWriter)
	if buf.Err != nil {
		return nil, buf.Err
	}
	return buf.Bytes(), nil
}

// NewTransactionFromBytes decodes a transaction from the byte slice.
func NewTransactionFromBytes(b []byte) (*Transaction, error) {
	if len(b) > MaxTransactionSize {
		return nil, fmt.Errorf("transaction is too big: %d bytes", len(b))
	}
	tx := new(Transaction)
	r := io.NewBinReaderFromBuf(b)
	tx.DecodeBinary(r)
	if r.Err != nil {
		return nil, r.Err
	}
	if r.Len() != 0 {
		return nil, errors.New("additional data after the transaction")
	}
	return tx, nil
}

// EncodeBase64 returns the base64 form of the transaction used by the RPC.
func (t *Transaction) EncodeBase64() (string, error) {
	b, err := t.Bytes()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
