package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nspcc-dev/aioracle/cli/options"
	"github.com/nspcc-dev/aioracle/pkg/config"
	"github.com/nspcc-dev/aioracle/pkg/core"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/services/metrics"
	"github.com/nspcc-dev/aioracle/pkg/services/rpcsrv"
	"github.com/urfave/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewCommands returns 'node' and 'db' commands.
func NewCommands() []cli.Command {
	var cfgFlags = []cli.Flag{options.Config, options.ConfigFile, options.Debug}
	var cfgWithCountFlags = make([]cli.Flag, len(cfgFlags))
	copy(cfgWithCountFlags, cfgFlags)
	cfgWithCountFlags = append(cfgWithCountFlags,
		cli.Uint64Flag{
			Name:  "count, c",
			Usage: "number of requests to be processed (default or 0: all requests)",
		},
		cli.Uint64Flag{
			Name:  "start, s",
			Value: 1,
			Usage: "stage of the first request to process",
		},
	)
	var cfgCountOutFlags = make([]cli.Flag, len(cfgWithCountFlags))
	copy(cfgCountOutFlags, cfgWithCountFlags)
	cfgCountOutFlags = append(cfgCountOutFlags, cli.StringFlag{
		Name:  "out, o",
		Usage: "output file (stdout if not given)",
	})
	return []cli.Command{
		{
			Name:      "node",
			Usage:     "start an oracle node",
			UsageText: "aioracle node [--config-path path] [-d] [--config-file file]",
			Action:    startServer,
			Flags:     cfgFlags,
		},
		{
			Name:  "db",
			Usage: "database manipulations",
			Subcommands: []cli.Command{
				{
					Name:      "dump",
					Usage:     "dump requests (starting with stage 1) to the file",
					UsageText: "aioracle db dump [-o file] [-s start] [-c count] [--config-path path] [--config-file file]",
					Action:    dumpDB,
					Flags:     cfgCountOutFlags,
				},
			},
		},
	}
}

func newGraceContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()
	return ctx
}

func initBCWithMetrics(cfg config.Config, log *zap.Logger) (*core.Blockchain, *metrics.Service, *metrics.Service, error) {
	chain, err := initBlockChain(cfg, log)
	if err != nil {
		return nil, nil, nil, cli.NewExitError(err, 1)
	}
	prometheus := metrics.NewPrometheusService(cfg.ApplicationConfiguration.Prometheus, log)
	pprof := metrics.NewPprofService(cfg.ApplicationConfiguration.Pprof, log)

	chain.Run()
	if err = prometheus.Start(); err != nil {
		chain.Close()
		return nil, nil, nil, cli.NewExitError(fmt.Errorf("failed to start Prometheus service: %w", err), 1)
	}
	if err = pprof.Start(); err != nil {
		prometheus.ShutDown()
		chain.Close()
		return nil, nil, nil, cli.NewExitError(fmt.Errorf("failed to start Pprof service: %w", err), 1)
	}
	return chain, prometheus, pprof, nil
}

// initBlockChain initializes the chain with the given store config.
func initBlockChain(cfg config.Config, log *zap.Logger) (*core.Blockchain, error) {
	store, err := storage.NewStore(cfg.ApplicationConfiguration.DBConfiguration)
	if err != nil {
		return nil, fmt.Errorf("could not initialize storage: %w", err)
	}

	chain, err := core.NewBlockchain(store, cfg.Oracle, log)
	if err != nil {
		errText := "could not initialize blockchain: %w"
		errArgs := []any{err}
		closeErr := store.Close()
		if closeErr != nil {
			errText += "; failed to close the DB: %w"
			errArgs = append(errArgs, closeErr)
		}
		return nil, fmt.Errorf(errText, errArgs...)
	}
	return chain, nil
}

func startServer(ctx *cli.Context) error {
	if len(ctx.Args()) != 0 {
		return cli.NewExitError(fmt.Errorf("unexpected arguments: %v", ctx.Args()), 1)
	}

	cfg, err := options.GetConfigFromContext(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	log, logLevel, err := options.HandleLoggingParams(ctx.Bool("debug"), cfg.ApplicationConfiguration)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer func() { _ = log.Sync() }()

	grace := newGraceContext()

	chain, prometheus, pprof, err := initBCWithMetrics(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		pprof.ShutDown()
		prometheus.ShutDown()
		chain.Close()
	}()

	errChan := make(chan error)
	rpcServer := rpcsrv.New(chain, cfg.ApplicationConfiguration.RPC, log, errChan)
	rpcServer.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, sighup)

	fmt.Fprintln(ctx.App.Writer, Logo())
	fmt.Fprintln(ctx.App.Writer, config.UserAgent())
	fmt.Fprintln(ctx.App.Writer)

	var shutdownErr error
Main:
	for {
		select {
		case err := <-errChan:
			shutdownErr = fmt.Errorf("server error: %w", err)
			break Main
		case sig := <-sigCh:
			log.Info("signal received", zap.Stringer("name", sig))
			cfgnew, err := options.GetConfigFromContext(ctx)
			if err != nil {
				log.Warn("can't reread the config file, signal ignored", zap.Error(err))
				break
			}
			if !cfgnew.Oracle.Equals(&cfg.Oracle) {
				log.Warn("oracle configuration changed, signal ignored; restart the node to apply it")
				break
			}
			if !cfgnew.ApplicationConfiguration.EqualsButLogLevel(&cfg.ApplicationConfiguration) {
				log.Warn("application configuration changed, only the log level is updated on the fly")
			}
			if lvl, err := zapcore.ParseLevel(cfgnew.ApplicationConfiguration.LogLevel); err == nil && !ctx.Bool("debug") {
				logLevel.SetLevel(lvl)
				log.Info("log level updated", zap.Stringer("level", lvl))
			} else if err != nil {
				log.Warn("wrong LogLevel in ApplicationConfiguration, ignored", zap.Error(err))
			}
			cfg = cfgnew
		case <-grace.Done():
			signal.Stop(sigCh)
			break Main
		}
	}

	rpcServer.Shutdown()

	if shutdownErr != nil {
		return cli.NewExitError(shutdownErr, 1)
	}
	return nil
}

// Logo returns the node logo.
func Logo() string {
	return `
    _    ___    ___                 _
   / \  |_ _|  / _ \ _ __ __ _  ___| | ___
  / _ \  | |  | | | | '__/ _` + "`" + ` |/ __| |/ _ \
 / ___ \ | |  | |_| | | | (_| | (__| |  __/
/_/   \_\___|  \___/|_|  \__,_|\___|_|\___|
`
}
