/*
Package oracle implements CLI commands sending signed oracle transactions.
*/
package oracle

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"text/tabwriter"

	"github.com/nspcc-dev/aioracle/cli/flags"
	"github.com/nspcc-dev/aioracle/cli/input"
	"github.com/nspcc-dev/aioracle/cli/options"
	"github.com/nspcc-dev/aioracle/cli/query"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/transaction"
	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/urfave/cli"
)

var errNoChanges = errors.New("nothing to update, specify at least one option")

// NewCommands returns 'oracle' command.
func NewCommands() []cli.Command {
	txFlags := append(options.Key, options.RPC...)
	requestFlags := append([]cli.Flag{
		cli.StringFlag{
			Name:  "service",
			Usage: "name of the service to request",
		},
		cli.StringFlag{
			Name:  "input, i",
			Usage: "request input as a string",
		},
		cli.StringFlag{
			Name:  "input-hex",
			Usage: "hex-encoded request input (can't be used with --input)",
		},
		cli.Uint64Flag{
			Name:  "threshold, t",
			Usage: "number of executors that have to agree on the result",
		},
	}, txFlags...)
	registerFlags := append([]cli.Flag{
		cli.Uint64Flag{
			Name:  "stage",
			Usage: "stage of the request",
		},
		cli.StringFlag{
			Name:  "root",
			Usage: "hex-encoded merkle root of the results",
		},
		cli.StringSliceFlag{
			Name:  "executor, e",
			Usage: "public key of the executor that produced the result (can be repeated)",
		},
	}, txFlags...)
	updateFlags := append([]cli.Flag{
		flags.AddressFlag{
			Name:  "owner",
			Usage: "address of the new owner",
		},
		cli.StringSliceFlag{
			Name:  "add",
			Usage: "public key of the executor to register (can be repeated)",
		},
		cli.StringSliceFlag{
			Name:  "remove",
			Usage: "public key of the executor to deregister (can be repeated)",
		},
		cli.Uint64Flag{
			Name:  "max-threshold",
			Usage: "new maximum request threshold percentage (0-100)",
		},
	}, txFlags...)
	return []cli.Command{{
		Name:  "oracle",
		Usage: "send oracle transactions",
		Subcommands: []cli.Command{
			{
				Name:      "request",
				Usage:     "create a new oracle request",
				UsageText: "aioracle oracle request -r endpoint --service name --threshold n [--input data | --input-hex hex] [-k key] [--force]",
				Action:    sendRequest,
				Flags:     flags.MarkRequired(requestFlags, "service", "threshold, t"),
			},
			{
				Name:      "register-root",
				Usage:     "register the merkle root of the request results (owner only)",
				UsageText: "aioracle oracle register-root -r endpoint --stage n --root hex -e pubkey [-e pubkey...] [-k key] [--force]",
				Action:    registerRoot,
				Flags:     flags.MarkRequired(registerFlags, "stage", "root"),
			},
			{
				Name:      "update-config",
				Usage:     "update the oracle configuration (owner only)",
				UsageText: "aioracle oracle update-config -r endpoint [--owner address] [--add pubkey...] [--remove pubkey...] [--max-threshold pct] [-k key] [--force]",
				Action:    updateConfig,
				Flags:     updateFlags,
			},
		},
	}}
}

func sendRequest(ctx *cli.Context) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	cmd := &transaction.Request{
		Service:   ctx.String("service"),
		Threshold: ctx.Uint64("threshold"),
	}
	switch {
	case ctx.IsSet("input") && ctx.IsSet("input-hex"):
		return cli.NewExitError("--input and --input-hex can't be used together", 1)
	case ctx.IsSet("input"):
		cmd.Input = []byte(ctx.String("input"))
	case ctx.IsSet("input-hex"):
		b, err := hex.DecodeString(strings.TrimPrefix(ctx.String("input-hex"), "0x"))
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid input: %w", err), 1)
		}
		cmd.Input = b
	}
	return signAndSend(ctx, cmd)
}

func registerRoot(ctx *cli.Context) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	return signAndSend(ctx, &transaction.RegisterMerkleRoot{
		Stage:      ctx.Uint64("stage"),
		MerkleRoot: strings.TrimPrefix(ctx.String("root"), "0x"),
		Executors:  ctx.StringSlice("executor"),
	})
}

func updateConfig(ctx *cli.Context) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	cmd := &transaction.UpdateConfig{
		NewExecutors: ctx.StringSlice("add"),
		OldExecutors: ctx.StringSlice("remove"),
	}
	if owner, ok := ctx.Generic("owner").(*flags.Address); ok && owner.IsSet {
		addr := address.Uint160ToString(owner.Uint160())
		cmd.NewOwner = &addr
	}
	if ctx.IsSet("max-threshold") {
		pct := ctx.Uint64("max-threshold")
		cmd.NewMaxReqThreshold = &pct
	}
	if cmd.NewOwner == nil && cmd.NewMaxReqThreshold == nil &&
		len(cmd.NewExecutors) == 0 && len(cmd.OldExecutors) == 0 {
		return cli.NewExitError(errNoChanges, 1)
	}
	return signAndSend(ctx, cmd)
}

// signAndSend signs the command with the user key, asks for a confirmation
// unless --force is given and relays the transaction.
func signAndSend(ctx *cli.Context, cmd transaction.Command) error {
	priv, err := options.GetPrivateKey(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer priv.Destroy()

	tx := transaction.New(cmd, rand.Uint32())
	tx.Sign(priv)
	if _, err := tx.Bytes(); err != nil {
		return cli.NewExitError(fmt.Errorf("invalid transaction: %w", err), 1)
	}

	if !ctx.Bool("force") {
		if err := input.ConfirmTx(ctx.App.Writer, summary(tx)); err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()
	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()

	res, err := c.SendRawTransaction(tx)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("failed to send transaction: %w", err), 1)
	}
	query.DumpApplicationLog(ctx, &state.AppExecResult{
		Container: res.Hash,
		Height:    res.Height,
		Events:    res.Events,
	})
	return nil
}

func summary(tx *transaction.Transaction) string {
	buf := bytes.NewBuffer(nil)
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("Command:\t" + tx.Command.Type().String() + "\n"))
	_, _ = tw.Write([]byte("Sender:\t" + tx.Sender.Address() + "\n"))
	_, _ = tw.Write([]byte("Hash:\t" + tx.Hash().String() + "\n"))
	_ = tw.Flush()
	return buf.String()
}
