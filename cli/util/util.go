/*
Package util implements offline helper commands: key generation and merkle
tree operations over executor results.
*/
package util

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/crypto/merkle"
	"github.com/urfave/cli"
)

// NewCommands returns util commands for the CLI.
func NewCommands() []cli.Command {
	hexFlag := cli.BoolFlag{
		Name:  "hex",
		Usage: "leaves are hex-encoded",
	}
	return []cli.Command{{
		Name:  "util",
		Usage: "various helper commands",
		Subcommands: []cli.Command{
			{
				Name:   "keygen",
				Usage:  "generate a new key pair and print the key, public key and address",
				Action: keygen,
			},
			{
				Name:      "merkle-root",
				Usage:     "print the merkle root of the tree built over the leaves",
				UsageText: "aioracle util merkle-root [--hex] <leaf> [leaf...]",
				Action:    merkleRoot,
				Flags:     []cli.Flag{hexFlag},
			},
			{
				Name:      "merkle-proof",
				Usage:     "print the proof for the leaf with the given index, one hash per line",
				UsageText: "aioracle util merkle-proof [--hex] --index n <leaf> [leaf...]",
				Action:    merkleProof,
				Flags: []cli.Flag{hexFlag, cli.IntFlag{
					Name:  "index",
					Usage: "index of the leaf to build the proof for",
				}},
			},
			{
				Name:      "verify-proof",
				Usage:     "check the proof of the leaf against the merkle root",
				UsageText: "aioracle util verify-proof [--hex] <root> <leaf> [proof...]",
				Action:    verifyProof,
				Flags:     []cli.Flag{hexFlag},
			},
		},
	}}
}

func keygen(ctx *cli.Context) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	priv, err := keys.NewPrivateKey()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer priv.Destroy()
	fmt.Fprintf(ctx.App.Writer, "Private key: %s\n", priv.String())
	fmt.Fprintf(ctx.App.Writer, "Public key: %s\n", priv.PublicKey().StringCompressed())
	fmt.Fprintf(ctx.App.Writer, "Address: %s\n", priv.Address())
	return nil
}

func parseLeaves(ctx *cli.Context, args []string) ([][]byte, error) {
	leaves := make([][]byte, len(args))
	for i, a := range args {
		if !ctx.Bool("hex") {
			leaves[i] = []byte(a)
			continue
		}
		b, err := hex.DecodeString(strings.TrimPrefix(a, "0x"))
		if err != nil {
			return nil, fmt.Errorf("leaf %d: %w", i, err)
		}
		leaves[i] = b
	}
	return leaves, nil
}

func buildTree(ctx *cli.Context) (*merkle.Tree, error) {
	leaves, err := parseLeaves(ctx, ctx.Args())
	if err != nil {
		return nil, err
	}
	return merkle.NewTree(leaves)
}

func merkleRoot(ctx *cli.Context) error {
	tree, err := buildTree(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, tree.Root().String())
	return nil
}

func merkleProof(ctx *cli.Context) error {
	tree, err := buildTree(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	proof, err := tree.Proof(ctx.Int("index"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	for _, p := range merkle.EncodeProof(proof) {
		fmt.Fprintln(ctx.App.Writer, p)
	}
	return nil
}

func verifyProof(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) < 2 {
		return cli.NewExitError("root and leaf are required", 1)
	}
	leaves, err := parseLeaves(ctx, args[1:2])
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	proof := make([]string, 0, len(args)-2)
	for _, p := range args[2:] {
		proof = append(proof, strings.TrimPrefix(p, "0x"))
	}
	ok, err := merkle.Verify(strings.TrimPrefix(args[0], "0x"), leaves[0], proof)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, ok)
	return nil
}
