/*
Package testcli contains a test harness running CLI commands against an
in-memory oracle node.
*/
package testcli

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/nspcc-dev/aioracle/cli/app"
	"github.com/nspcc-dev/aioracle/cli/input"
	"github.com/nspcc-dev/aioracle/pkg/config"
	"github.com/nspcc-dev/aioracle/pkg/core"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/services/rpcsrv"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap/zaptest"
	"golang.org/x/term"
)

// ExecutorCount is the number of executors the test chain is created with.
const ExecutorCount = 3

// Executor represents context for a test instance.
// It can be safely used in multiple tests, but not in parallel.
type Executor struct {
	// CLI is a cli application to test.
	CLI *cli.App
	// Chain is a blockchain instance (can be empty).
	Chain *core.Blockchain
	// RPC is an RPC server to query (can be empty).
	RPC *rpcsrv.Server
	// Owner is the oracle owner key.
	Owner *keys.PrivateKey
	// Executors are the keys of the initial executors in index order.
	Executors []*keys.PrivateKey
	// Out contains command output.
	Out *bytes.Buffer
	// Err contains command errors.
	Err *bytes.Buffer
	// In contains command input.
	In *bytes.Buffer
}

// NewExecutor creates an executor, the chain and the RPC server are only
// created if needChain is set.
func NewExecutor(t *testing.T, needChain bool) *Executor {
	e := &Executor{
		CLI: app.New(),
		Out: bytes.NewBuffer(nil),
		Err: bytes.NewBuffer(nil),
		In:  bytes.NewBuffer(nil),
	}
	e.CLI.Writer = e.Out
	e.CLI.ErrWriter = e.Err
	if needChain {
		e.newTestChain(t)
	}
	t.Cleanup(func() {
		e.Close(t)
	})
	return e
}

func newKey(t *testing.T) *keys.PrivateKey {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return priv
}

func (e *Executor) newTestChain(t *testing.T) {
	e.Owner = newKey(t)
	cfg := config.Default()
	cfg.Oracle.Owner = e.Owner.Address()
	for i := 0; i < ExecutorCount; i++ {
		priv := newKey(t)
		e.Executors = append(e.Executors, priv)
		cfg.Oracle.Executors = append(cfg.Oracle.Executors, priv.PublicKey().StringCompressed())
	}

	logger := zaptest.NewLogger(t)
	chain, err := core.NewBlockchain(storage.NewMemoryStore(), cfg.Oracle, logger)
	require.NoError(t, err, "could not create chain")
	chain.Run()

	rpcCfg := cfg.ApplicationConfiguration.RPC
	rpcCfg.Enabled = true
	rpcCfg.Addresses = []string{"localhost:0"}
	errCh := make(chan error, 2)
	rpcServer := rpcsrv.New(chain, rpcCfg, logger, errCh)
	rpcServer.Start()

	e.Chain = chain
	e.RPC = rpcServer
}

// Close stops the RPC server and the chain.
func (e *Executor) Close(t *testing.T) {
	input.Terminal = nil
	if e.RPC != nil {
		e.RPC.Shutdown()
	}
	if e.Chain != nil {
		e.Chain.Close()
	}
}

// Endpoint returns the RPC server URL.
func (e *Executor) Endpoint() string {
	return "http://" + e.RPC.Addresses()[0]
}

// ExecutorKeys returns hex-encoded public keys of the initial executors.
func (e *Executor) ExecutorKeys() []string {
	res := make([]string, len(e.Executors))
	for i, priv := range e.Executors {
		res[i] = priv.PublicKey().StringCompressed()
	}
	return res
}

// GetNextLine returns the next line of the output.
func (e *Executor) GetNextLine(t *testing.T) string {
	line, err := e.Out.ReadString('\n')
	require.NoError(t, err)
	return strings.TrimSuffix(line, "\n")
}

// CheckNextLine checks the next output line against the regular expression.
func (e *Executor) CheckNextLine(t *testing.T, expected string) {
	line := e.GetNextLine(t)
	require.Regexp(t, expected, line)
}

// CheckEOF checks there is no more output.
func (e *Executor) CheckEOF(t *testing.T) {
	_, err := e.Out.ReadString('\n')
	require.True(t, errors.Is(err, io.EOF))
}

func setExitFunc() <-chan int {
	ch := make(chan int, 1)
	cli.OsExiter = func(code int) {
		ch <- code
	}
	return ch
}

func checkExit(t *testing.T, ch <-chan int, code int) {
	select {
	case c := <-ch:
		require.Equal(t, code, c)
	default:
		if code != 0 {
			require.Fail(t, "no exit was called")
		}
	}
}

// RunWithError runs command and checks that is exits with error.
func (e *Executor) RunWithError(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.Error(t, e.run(args...))
	checkExit(t, ch, 1)
}

// Run runs command and checks that there were no errors.
func (e *Executor) Run(t *testing.T, args ...string) {
	ch := setExitFunc()
	require.NoError(t, e.run(args...))
	checkExit(t, ch, 0)
}

func (e *Executor) run(args ...string) error {
	e.Out.Reset()
	e.Err.Reset()
	input.Terminal = term.NewTerminal(input.ReadWriter{
		Reader: e.In,
		Writer: io.Discard,
	}, "")
	err := e.CLI.Run(args)
	input.Terminal = nil
	e.In.Reset()
	return err
}
