package flags

import (
	"flag"
	"io"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

func TestParseAddress(t *testing.T) {
	expected := util.Uint160{1, 2, 3, 4}

	t.Run("simple", func(t *testing.T) {
		u, err := ParseAddress(address.Uint160ToString(expected))
		require.NoError(t, err)
		require.Equal(t, expected, u)
	})
	t.Run("hex", func(t *testing.T) {
		u, err := ParseAddress(expected.String())
		require.NoError(t, err)
		require.Equal(t, expected, u)
	})
	t.Run("hex with prefix", func(t *testing.T) {
		u, err := ParseAddress("0x" + expected.String())
		require.NoError(t, err)
		require.Equal(t, expected, u)
	})
	t.Run("bad", func(t *testing.T) {
		_, err := ParseAddress("not-an-address")
		require.Error(t, err)
	})
}

func TestAddressFlag(t *testing.T) {
	expected := util.Uint160{5, 6, 7}
	f := AddressFlag{Name: "owner, o", Usage: "owner address"}
	require.Equal(t, "owner, o", f.GetName())
	require.Equal(t, "--owner value, -o value\towner address", f.String())

	set := flag.NewFlagSet("flagSet", flag.ContinueOnError)
	set.SetOutput(io.Discard)
	f.Apply(set)
	require.NoError(t, set.Parse([]string{"--owner", address.Uint160ToString(expected)}))

	a := set.Lookup("owner").Value.(*Address)
	require.True(t, a.IsSet)
	require.Equal(t, expected, a.Uint160())
	require.Equal(t, address.Uint160ToString(expected), a.String())

	require.Error(t, set.Parse([]string{"-o", "bad"}))
	require.Panics(t, func() { (&Address{}).Uint160() })
}

func TestMarkRequired(t *testing.T) {
	flags := []cli.Flag{
		cli.StringFlag{Name: "a"},
		cli.Uint64Flag{Name: "b"},
		cli.BoolFlag{Name: "c"},
	}
	res := MarkRequired(flags, "a", "b")
	require.True(t, res[0].(cli.StringFlag).Required)
	require.True(t, res[1].(cli.Uint64Flag).Required)
	require.False(t, res[2].(cli.BoolFlag).Required)
	require.False(t, flags[0].(cli.StringFlag).Required)
}
