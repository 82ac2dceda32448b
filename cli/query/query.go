/*
Package query implements read-only CLI commands working via the node RPC.
*/
package query

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/nspcc-dev/aioracle/cli/flags"
	"github.com/nspcc-dev/aioracle/cli/options"
	"github.com/nspcc-dev/aioracle/pkg/core/oracle"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/rpcclient"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"github.com/urfave/cli"
)

var (
	pageFlags = []cli.Flag{
		cli.Uint64Flag{
			Name:  "offset",
			Usage: "exclusive stage (or executor index) to start listing after",
		},
		cli.IntFlag{
			Name:  "limit, l",
			Usage: fmt.Sprintf("maximum number of items to return (default %d, at most %d)", paging.DefaultLimit, paging.MaxLimit),
		},
		cli.BoolFlag{
			Name:  "desc",
			Usage: "list in descending order",
		},
	}
	executorRangeFlags = []cli.Flag{
		cli.StringFlag{
			Name:  "start",
			Usage: "inclusive public key to start listing with",
		},
		cli.StringFlag{
			Name:  "end",
			Usage: "exclusive public key to stop listing at",
		},
		cli.IntFlag{
			Name:  "limit, l",
			Usage: fmt.Sprintf("maximum number of executors to return (default %d, at most %d)", paging.DefaultLimit, paging.MaxLimit),
		},
		cli.BoolFlag{
			Name:  "desc",
			Usage: "list in descending order",
		},
	}
)

// NewCommands returns 'query' command.
func NewCommands() []cli.Command {
	withPage := func(fs ...cli.Flag) []cli.Flag {
		return append(append(fs, pageFlags...), options.RPC...)
	}
	return []cli.Command{{
		Name:  "query",
		Usage: "query oracle state",
		Subcommands: []cli.Command{
			{
				Name:   "version",
				Usage:  "print the node version and limits",
				Action: queryVersion,
				Flags:  options.RPC,
			},
			{
				Name:   "height",
				Usage:  "print the number of committed transactions",
				Action: queryHeight,
				Flags:  options.RPC,
			},
			{
				Name:   "config",
				Usage:  "print the oracle configuration",
				Action: queryConfig,
				Flags:  options.RPC,
			},
			{
				Name:   "latest-stage",
				Usage:  "print the stage of the latest request (0 if there are none)",
				Action: queryLatestStage,
				Flags:  options.RPC,
			},
			{
				Name:   "executor-size",
				Usage:  "print the number of active executors",
				Action: queryExecutorSize,
				Flags:  options.RPC,
			},
			{
				Name:      "executor",
				Usage:     "print the executor with the given public key",
				UsageText: "aioracle query executor -r endpoint <pubkey>",
				Action:    queryExecutor,
				Flags:     options.RPC,
			},
			{
				Name:      "check-executor",
				Usage:     "check whether the public key belongs to an active executor",
				UsageText: "aioracle query check-executor -r endpoint <pubkey>",
				Action:    checkExecutor,
				Flags:     options.RPC,
			},
			{
				Name:      "executors",
				Usage:     "list executors ordered by public key",
				UsageText: "aioracle query executors -r endpoint [--start pubkey] [--end pubkey] [--limit n] [--desc]",
				Action:    queryExecutors,
				Flags:     append(executorRangeFlags, options.RPC...),
			},
			{
				Name:      "executors-by-index",
				Usage:     "list executors ordered by their index",
				UsageText: "aioracle query executors-by-index -r endpoint [--offset index] [--limit n] [--desc]",
				Action:    queryExecutorsByIndex,
				Flags:     withPage(),
			},
			{
				Name:      "request",
				Usage:     "print the request with the given stage",
				UsageText: "aioracle query request -r endpoint <stage>",
				Action:    queryRequest,
				Flags:     options.RPC,
			},
			{
				Name:      "requests",
				Usage:     "list requests ordered by stage",
				UsageText: "aioracle query requests -r endpoint [--offset stage] [--limit n] [--desc]",
				Action:    queryRequests,
				Flags:     withPage(),
			},
			{
				Name:      "requests-by-service",
				Usage:     "list requests of the service",
				UsageText: "aioracle query requests-by-service -r endpoint <service> [--offset stage] [--limit n] [--desc]",
				Action:    queryRequestsByService,
				Flags:     withPage(),
			},
			{
				Name:      "requests-by-root",
				Usage:     "list requests with the merkle root, pending ones if no root is given",
				UsageText: "aioracle query requests-by-root -r endpoint [root] [--offset stage] [--limit n] [--desc]",
				Action:    queryRequestsByRoot,
				Flags:     withPage(),
			},
			{
				Name:      "requests-by-requester",
				Usage:     "list requests made by the account",
				UsageText: "aioracle query requests-by-requester -r endpoint <address> [--offset stage] [--limit n] [--desc]",
				Action:    queryRequestsByRequester,
				Flags:     withPage(),
			},
			{
				Name:      "verify",
				Usage:     "verify the data against the merkle root registered for the stage",
				UsageText: "aioracle query verify -r endpoint [--hex] <stage> <data> [proof...]",
				Action:    verifyData,
				Flags: append([]cli.Flag{
					cli.BoolFlag{
						Name:  "hex",
						Usage: "data is hex-encoded",
					},
				}, options.RPC...),
			},
			{
				Name:      "tx",
				Usage:     "print the execution result of the transaction",
				UsageText: "aioracle query tx -r endpoint <hash>",
				Action:    queryTx,
				Flags:     options.RPC,
			},
		},
	}}
}

// withClient runs f with the client created for the context flags.
func withClient(ctx *cli.Context, f func(*rpcclient.Client) error) error {
	gctx, cancel := options.GetTimeoutContext(ctx)
	defer cancel()

	c, exitErr := options.GetRPCClient(gctx, ctx)
	if exitErr != nil {
		return exitErr
	}
	defer c.Close()
	if err := f(c); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func checkArgs(ctx *cli.Context, minArgs, maxArgs int) error {
	n := len(ctx.Args())
	switch {
	case n < minArgs:
		return cli.NewExitError(fmt.Errorf("not enough arguments, %d expected", minArgs), 1)
	case maxArgs >= 0 && n > maxArgs:
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()[maxArgs:]), 1)
	}
	return nil
}

func printJSON(ctx *cli.Context, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, string(b))
	return nil
}

func getPage(ctx *cli.Context) oracle.Page {
	p := oracle.Page{Limit: ctx.Int("limit"), Order: paging.Ascending}
	if ctx.IsSet("offset") {
		offset := ctx.Uint64("offset")
		p.Offset = &offset
	}
	if ctx.Bool("desc") {
		p.Order = paging.Descending
	}
	return p
}

func parsePublicKey(s string) (*keys.PublicKey, error) {
	pub, err := keys.NewPublicKeyFromString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid public key %q: %w", s, err)
	}
	return pub, nil
}

func parseStage(s string) (uint64, error) {
	stage, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stage %q: %w", s, err)
	}
	return stage, nil
}

func queryVersion(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		v, err := c.GetVersion()
		if err != nil {
			return err
		}
		return printJSON(ctx, v)
	})
}

func queryHeight(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		h, err := c.GetBlockCount()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, h)
		return nil
	})
}

func queryConfig(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		cfg, err := c.GetConfig()
		if err != nil {
			return err
		}
		return printJSON(ctx, cfg)
	})
}

func queryLatestStage(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		s, err := c.GetLatestStage()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, s)
		return nil
	})
}

func queryExecutorSize(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		n, err := c.GetExecutorSize()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, n)
		return nil
	})
}

func queryExecutor(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1, 1); err != nil {
		return err
	}
	pub, err := parsePublicKey(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		e, err := c.GetExecutor(pub)
		if err != nil {
			return err
		}
		return printJSON(ctx, e)
	})
}

func checkExecutor(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1, 1); err != nil {
		return err
	}
	pub, err := parsePublicKey(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		ok, err := c.CheckExecutorInList(pub)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, ok)
		return nil
	})
}

func queryExecutors(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	var (
		start, end *keys.PublicKey
		order      = paging.Ascending
		err        error
	)
	if s := ctx.String("start"); s != "" {
		if start, err = parsePublicKey(s); err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	if s := ctx.String("end"); s != "" {
		if end, err = parsePublicKey(s); err != nil {
			return cli.NewExitError(err, 1)
		}
	}
	if ctx.Bool("desc") {
		order = paging.Descending
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		es, err := c.GetExecutors(start, end, order, ctx.Int("limit"))
		if err != nil {
			return err
		}
		return printJSON(ctx, es)
	})
}

func queryExecutorsByIndex(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		es, err := c.GetExecutorsByIndex(getPage(ctx))
		if err != nil {
			return err
		}
		return printJSON(ctx, es)
	})
}

func queryRequest(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1, 1); err != nil {
		return err
	}
	stage, err := parseStage(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		r, err := c.GetRequest(stage)
		if err != nil {
			return err
		}
		return printJSON(ctx, r)
	})
}

func queryRequests(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 0); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		return printRequests(ctx)(c.GetRequests(getPage(ctx)))
	})
}

func queryRequestsByService(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1, 1); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		return printRequests(ctx)(c.GetRequestsByService(ctx.Args().First(), getPage(ctx)))
	})
}

func queryRequestsByRoot(ctx *cli.Context) error {
	if err := checkArgs(ctx, 0, 1); err != nil {
		return err
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		return printRequests(ctx)(c.GetRequestsByMerkleRoot(ctx.Args().First(), getPage(ctx)))
	})
}

func queryRequestsByRequester(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1, 1); err != nil {
		return err
	}
	requester, err := flags.ParseAddress(ctx.Args().First())
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid requester: %w", err), 1)
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		return printRequests(ctx)(c.GetRequestsByRequester(requester, getPage(ctx)))
	})
}

func printRequests(ctx *cli.Context) func([]*state.Request, error) error {
	return func(reqs []*state.Request, err error) error {
		if err != nil {
			return err
		}
		return printJSON(ctx, reqs)
	}
}

func verifyData(ctx *cli.Context) error {
	if err := checkArgs(ctx, 2, -1); err != nil {
		return err
	}
	args := ctx.Args()
	stage, err := parseStage(args[0])
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	data := []byte(args[1])
	if ctx.Bool("hex") {
		data, err = hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
		if err != nil {
			return cli.NewExitError(fmt.Errorf("invalid data: %w", err), 1)
		}
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		ok, err := c.VerifyData(stage, data, args[2:])
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.App.Writer, ok)
		return nil
	})
}

func queryTx(ctx *cli.Context) error {
	if err := checkArgs(ctx, 1, 1); err != nil {
		return err
	}
	txHash, err := util.Uint256DecodeStringBE(strings.TrimPrefix(ctx.Args().First(), "0x"))
	if err != nil {
		return cli.NewExitError(fmt.Errorf("invalid tx hash: %s", ctx.Args().First()), 1)
	}
	return withClient(ctx, func(c *rpcclient.Client) error {
		res, err := c.GetApplicationLog(txHash)
		if err != nil {
			return err
		}
		DumpApplicationLog(ctx, res)
		return nil
	})
}

// DumpApplicationLog prints the execution result in a human-readable form.
func DumpApplicationLog(ctx *cli.Context, res *state.AppExecResult) {
	buf := bytes.NewBuffer(nil)

	// Ignore the errors below because `Write` to buffer doesn't return error.
	tw := tabwriter.NewWriter(buf, 0, 4, 4, '\t', 0)
	_, _ = tw.Write([]byte("Hash:\t" + res.Container.String() + "\n"))
	_, _ = tw.Write([]byte("Height:\t" + strconv.FormatUint(res.Height, 10) + "\n"))
	if res.State == state.Fault {
		_, _ = tw.Write([]byte("State:\t" + res.State.String() + "\n"))
		_, _ = tw.Write([]byte("Exception:\t" + res.FaultException + "\n"))
	}
	for _, e := range res.Events {
		_, _ = tw.Write([]byte("Event:\t" + e.Name + "\n"))
		for _, a := range e.Attributes {
			_, _ = tw.Write([]byte(fmt.Sprintf("\t%s:\t%s\n", a.Key, a.Value)))
		}
	}
	_ = tw.Flush()
	fmt.Fprint(ctx.App.Writer, buf.String())
}
