package app_test

import (
	"testing"

	"github.com/nspcc-dev/aioracle/internal/testcli"
	"github.com/nspcc-dev/aioracle/pkg/config"
)

func TestCLIVersion(t *testing.T) {
	config.Version = "0.1.0-test"
	t.Cleanup(func() { config.Version = "" })
	e := testcli.NewExecutor(t, false)
	e.CLI.Version = config.Version
	e.Run(t, "aioracle", "--version")
	e.CheckNextLine(t, "^AIOracle")
	e.CheckNextLine(t, "^Version: 0.1.0-test$")
	e.CheckNextLine(t, "^GoVersion: ")
	e.CheckEOF(t)
}

func TestCommands(t *testing.T) {
	e := testcli.NewExecutor(t, false)
	for _, name := range []string{"node", "db", "oracle", "query", "util"} {
		if e.CLI.Command(name) == nil {
			t.Fatalf("no %q command", name)
		}
	}
}
