package util_test

import (
	"encoding/hex"
	"testing"

	"github.com/nspcc-dev/aioracle/internal/testcli"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/crypto/merkle"
	"github.com/stretchr/testify/require"
)

func TestKeygen(t *testing.T) {
	e := testcli.NewExecutor(t, false)

	e.Run(t, "aioracle", "util", "keygen")
	line := e.GetNextLine(t)
	require.Regexp(t, "^Private key: [0-9a-f]{64}$", line)
	priv, err := keys.NewPrivateKeyFromHex(line[len("Private key: "):])
	require.NoError(t, err)
	e.CheckNextLine(t, "^Public key: "+priv.PublicKey().StringCompressed()+"$")
	e.CheckNextLine(t, "^Address: "+priv.Address()+"$")
	e.CheckEOF(t)

	e.RunWithError(t, "aioracle", "util", "keygen", "extra")
}

func TestMerkle(t *testing.T) {
	e := testcli.NewExecutor(t, false)
	leaves := [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d"), []byte("e")}
	tree, err := merkle.NewTree(leaves)
	require.NoError(t, err)
	root := tree.Root().String()

	t.Run("root", func(t *testing.T) {
		e.Run(t, "aioracle", "util", "merkle-root", "a", "b", "c", "d", "e")
		e.CheckNextLine(t, "^"+root+"$")
		e.CheckEOF(t)

		e.Run(t, "aioracle", "util", "merkle-root", "--hex", "61", "62", "63", "64", "0x65")
		e.CheckNextLine(t, "^"+root+"$")
		e.CheckEOF(t)

		e.RunWithError(t, "aioracle", "util", "merkle-root")
		e.RunWithError(t, "aioracle", "util", "merkle-root", "--hex", "zz")
	})
	t.Run("proof", func(t *testing.T) {
		proof, err := tree.Proof(4)
		require.NoError(t, err)
		e.Run(t, "aioracle", "util", "merkle-proof", "--index", "4", "a", "b", "c", "d", "e")
		for _, p := range merkle.EncodeProof(proof) {
			e.CheckNextLine(t, "^"+p+"$")
		}
		e.CheckEOF(t)

		e.RunWithError(t, "aioracle", "util", "merkle-proof", "--index", "5", "a", "b", "c", "d", "e")
		e.RunWithError(t, "aioracle", "util", "merkle-proof", "--index", "0")
	})
	t.Run("single leaf", func(t *testing.T) {
		single, err := merkle.NewTree([][]byte{[]byte("x")})
		require.NoError(t, err)
		e.Run(t, "aioracle", "util", "merkle-proof", "x")
		e.CheckEOF(t)
		e.Run(t, "aioracle", "util", "verify-proof", single.Root().String(), "x")
		e.CheckNextLine(t, "^true$")
	})
	t.Run("verify", func(t *testing.T) {
		proof, err := tree.Proof(2)
		require.NoError(t, err)
		encoded := merkle.EncodeProof(proof)

		e.Run(t, append([]string{"aioracle", "util", "verify-proof", root, "c"}, encoded...)...)
		e.CheckNextLine(t, "^true$")
		e.CheckEOF(t)

		e.Run(t, append([]string{"aioracle", "util", "verify-proof", "--hex", "0x" + root, hex.EncodeToString([]byte("c"))}, encoded...)...)
		e.CheckNextLine(t, "^true$")

		e.Run(t, append([]string{"aioracle", "util", "verify-proof", root, "d"}, encoded...)...)
		e.CheckNextLine(t, "^false$")

		e.RunWithError(t, "aioracle", "util", "verify-proof", root)
		e.RunWithError(t, "aioracle", "util", "verify-proof", "xyz", "c")
		e.RunWithError(t, "aioracle", "util", "verify-proof", root, "c", "00")
	})
}
