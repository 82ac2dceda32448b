/*
Package app contains the oracle node CLI application with all its commands.
*/
package app

import (
	"fmt"
	"os"
	"runtime"

	"github.com/nspcc-dev/aioracle/cli/oracle"
	"github.com/nspcc-dev/aioracle/cli/query"
	"github.com/nspcc-dev/aioracle/cli/server"
	"github.com/nspcc-dev/aioracle/cli/util"
	"github.com/nspcc-dev/aioracle/pkg/config"
	"github.com/urfave/cli"
)

func versionPrinter(c *cli.Context) {
	_, _ = fmt.Fprintf(c.App.Writer, "AIOracle\nVersion: %s\nGoVersion: %s\n",
		config.Version,
		runtime.Version(),
	)
}

// New creates an instance of [cli.App] with all commands included.
func New() *cli.App {
	cli.VersionPrinter = versionPrinter
	ctl := cli.NewApp()
	ctl.Name = "aioracle"
	ctl.Version = config.Version
	ctl.Usage = "Decentralized oracle node and client"
	ctl.ErrWriter = os.Stdout

	ctl.Commands = append(ctl.Commands, server.NewCommands()...)
	ctl.Commands = append(ctl.Commands, oracle.NewCommands()...)
	ctl.Commands = append(ctl.Commands, query.NewCommands()...)
	ctl.Commands = append(ctl.Commands, util.NewCommands()...)
	return ctl
}
