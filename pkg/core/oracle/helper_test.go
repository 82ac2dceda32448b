package oracle

import (
	"bytes"
	"slices"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/core/dao"
	"github.com/nspcc-dev/aioracle/pkg/core/interop"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/core/transaction"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testOracle struct {
	t      *testing.T
	o      *Oracle
	d      *dao.Simple
	owner  *keys.PrivateKey
	height uint64
}

func newPrivateKeys(t *testing.T, n int) []*keys.PrivateKey {
	res := make([]*keys.PrivateKey, n)
	for i := range res {
		priv, err := keys.NewPrivateKey()
		require.NoError(t, err)
		res[i] = priv
	}
	return res
}

func publicKeys(privs []*keys.PrivateKey) keys.PublicKeys {
	res := make(keys.PublicKeys, len(privs))
	for i := range privs {
		res[i] = privs[i].PublicKey()
	}
	return res
}

func hexKeys(pubs keys.PublicKeys) []string {
	res := make([]string, len(pubs))
	for i := range pubs {
		res[i] = pubs[i].StringCompressed()
	}
	return res
}

// sortedKeys returns the keys in the order of their compressed form.
func sortedKeys(pubs keys.PublicKeys) keys.PublicKeys {
	res := slices.Clone(pubs)
	slices.SortFunc(res, func(a, b *keys.PublicKey) int {
		return bytes.Compare(a.Bytes(), b.Bytes())
	})
	return res
}

func newTestOracle(t *testing.T, executors keys.PublicKeys, maxReqThreshold uint64) *testOracle {
	to := &testOracle{
		t:     t,
		o:     New(zaptest.NewLogger(t)),
		d:     dao.NewSimple(storage.NewMemoryStore()),
		owner: newPrivateKeys(t, 1)[0],
	}
	require.NoError(t, to.o.Initialize(to.d, Genesis{
		Owner:           to.owner.GetScriptHash(),
		Executors:       executors,
		MaxReqThreshold: maxReqThreshold,
	}))
	_, err := to.d.Persist()
	require.NoError(t, err)
	return to
}

// exec executes the command in a separate write set and persists it only
// if the command succeeds.
func (to *testOracle) exec(sender util.Uint160, cmd transaction.Command) (*interop.Context, error) {
	to.height++
	ic := interop.NewContext(to.d.GetWrapped(), sender, to.height, zaptest.NewLogger(to.t))
	err := to.o.Execute(ic, cmd)
	if err == nil {
		_, perr := ic.DAO.Persist()
		require.NoError(to.t, perr)
	}
	return ic, err
}

func (to *testOracle) ownerExec(cmd transaction.Command) (*interop.Context, error) {
	return to.exec(to.owner.GetScriptHash(), cmd)
}

func (to *testOracle) request(sender util.Uint160, service string, threshold uint64) uint64 {
	ic, err := to.exec(sender, &transaction.Request{Service: service, Threshold: threshold})
	require.NoError(to.t, err)
	require.Equal(to.t, 1, len(ic.Notifications))
	latest, err := GetLatestStage(to.d)
	require.NoError(to.t, err)
	return latest
}

// stageLister returns a function extracting stages from a listing result.
func stageLister(t *testing.T) func([]*state.Request, error) []uint64 {
	return func(reqs []*state.Request, err error) []uint64 {
		require.NoError(t, err)
		res := make([]uint64, len(reqs))
		for i := range reqs {
			res[i] = reqs[i].Stage
		}
		return res
	}
}
