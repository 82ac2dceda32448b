package server

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nspcc-dev/aioracle/cli/options"
	"github.com/nspcc-dev/aioracle/pkg/core"
	"github.com/nspcc-dev/aioracle/pkg/core/oracle"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

// dump is a list of requests in stage order.
type dump []*state.Request

func dumpDB(ctx *cli.Context) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}
	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, _, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	count := ctx.Uint64("count")
	start := ctx.Uint64("start")
	if start == 0 {
		start = 1
	}

	var outStream io.Writer = ctx.App.Writer
	if out := ctx.String("out"); out != "" {
		outFile, err := os.Create(out)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer outFile.Close()
		outStream = outFile
	}

	chain, err := initBlockChain(cfg, log)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer chain.Close()

	reqs, err := collectRequests(chain, start, count)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log.Info("dumping requests", zap.Uint64("start", start), zap.Int("count", len(reqs)))
	enc := json.NewEncoder(outStream)
	enc.SetIndent("", "  ")
	if err := enc.Encode(reqs); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

// collectRequests reads count requests starting from the given stage, zero
// count means all the remaining ones.
func collectRequests(chain *core.Blockchain, start, count uint64) (dump, error) {
	latest, err := chain.GetLatestStage()
	if err != nil {
		return nil, err
	}
	if start > latest {
		return nil, fmt.Errorf("start stage %d is above the latest one (%d)", start, latest)
	}
	if count == 0 || start+count-1 > latest {
		if count != 0 {
			return nil, fmt.Errorf("chain is not long enough: latest stage is %d", latest)
		}
		count = latest - start + 1
	}

	var (
		res    = make(dump, 0, count)
		offset = start - 1
	)
	for uint64(len(res)) < count {
		limit := paging.MaxLimit
		if rest := count - uint64(len(res)); rest < uint64(limit) {
			limit = int(rest)
		}
		page, err := chain.GetRequests(oracle.Page{Offset: &offset, Limit: limit, Order: paging.Ascending})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		res = append(res, page...)
		offset = page[len(page)-1].Stage
	}
	return res, nil
}
