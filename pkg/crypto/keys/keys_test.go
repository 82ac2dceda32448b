package keys

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/crypto/hash"
	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testPrivHex = "2bfe58ab6d9fd575bdc3a624e4825dd2b375d64ac033fbc46ea79dbab4f69a3e"
	// Public key of the private key 1 (generator point).
	genPubHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
)

func TestPrivateKeyFromHex(t *testing.T) {
	priv, err := NewPrivateKeyFromHex(testPrivHex)
	require.NoError(t, err)
	assert.Equal(t, testPrivHex, priv.String())

	_, err = NewPrivateKeyFromHex("zz")
	require.Error(t, err)
	_, err = NewPrivateKeyFromHex("0102")
	require.Error(t, err)
	_, err = NewPrivateKeyFromBytes(make([]byte, 32))
	require.Error(t, err)
}

func TestPublicKeyFromPrivate(t *testing.T) {
	one := make([]byte, 32)
	one[31] = 1
	priv, err := NewPrivateKeyFromBytes(one)
	require.NoError(t, err)
	assert.Equal(t, genPubHex, priv.PublicKey().StringCompressed())

	pub, err := NewPublicKeyFromString(genPubHex)
	require.NoError(t, err)
	require.True(t, pub.Equal(priv.PublicKey()))
	require.Equal(t, 0, pub.Cmp(priv.PublicKey()))
	require.Equal(t, address.Uint160ToString(hash.Hash160(pub.Bytes())), priv.Address())
	require.Equal(t, pub.GetScriptHash(), priv.GetScriptHash())
}

func TestPublicKeyUncompressed(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)
	pub := priv.PublicKey()

	unc, err := NewPublicKeyFromBytes(pub.UncompressedBytes())
	require.NoError(t, err)
	require.True(t, pub.Equal(unc))
	require.Equal(t, pub.Bytes(), unc.Bytes())
}

func TestNewPublicKeyFromStringFailures(t *testing.T) {
	_, err := NewPublicKeyFromString("not a hex")
	require.Error(t, err)
	_, err = NewPublicKeyFromString("0102")
	require.Error(t, err)
	// X coordinate exceeds the field prime.
	_, err = NewPublicKeyFromString("02" + strings.Repeat("ff", 32))
	require.Error(t, err)
}

func TestSignVerify(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)
	defer priv.Destroy()

	data := []byte("oracle data")
	sig := priv.Sign(data)
	h := hash.Sha256(data)
	require.True(t, priv.PublicKey().Verify(sig, h.BytesBE()))

	// Deterministic signatures.
	require.Equal(t, sig, priv.Sign(data))

	other, err := NewPrivateKey()
	require.NoError(t, err)
	require.False(t, other.PublicKey().Verify(sig, h.BytesBE()))

	h[0] ^= 0xff
	require.False(t, priv.PublicKey().Verify(sig, h.BytesBE()))
	require.False(t, priv.PublicKey().Verify([]byte{1, 2, 3}, h.BytesBE()))
}

func TestPublicKeyEncoding(t *testing.T) {
	pub, err := NewPublicKeyFromString(genPubHex)
	require.NoError(t, err)

	w := io.NewBufBinWriter()
	pub.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)
	buf := w.Bytes()
	require.Equal(t, PublicKeyLen, len(buf))

	actual := new(PublicKey)
	r := io.NewBinReaderFromBuf(buf)
	actual.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.True(t, pub.Equal(actual))

	data, err := json.Marshal(pub)
	require.NoError(t, err)
	require.Equal(t, `"`+genPubHex+`"`, string(data))
	actual = new(PublicKey)
	require.NoError(t, json.Unmarshal(data, actual))
	require.True(t, pub.Equal(actual))

	require.Error(t, json.Unmarshal([]byte(`"0102"`), actual))
}

func TestPublicKeysContains(t *testing.T) {
	p1, err := NewPrivateKey()
	require.NoError(t, err)
	p2, err := NewPrivateKey()
	require.NoError(t, err)
	keys := PublicKeys{p1.PublicKey()}
	require.True(t, keys.Contains(p1.PublicKey()))
	require.False(t, keys.Contains(p2.PublicKey()))
}

func TestKeyCache(t *testing.T) {
	b, err := hex.DecodeString(genPubHex)
	require.NoError(t, err)
	k1, err := NewPublicKeyFromBytes(b)
	require.NoError(t, err)
	k2, err := NewPublicKeyFromBytes(b)
	require.NoError(t, err)
	require.Same(t, k1, k2)
}
