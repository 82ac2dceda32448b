package oracle

import (
	"strings"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/core/dao"
	"github.com/nspcc-dev/aioracle/pkg/core/paging"
	"github.com/nspcc-dev/aioracle/pkg/core/state"
	"github.com/nspcc-dev/aioracle/pkg/core/storage"
	"github.com/nspcc-dev/aioracle/pkg/core/transaction"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/crypto/merkle"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	execs := publicKeys(newPrivateKeys(t, 3))
	to := newTestOracle(t, execs, DefaultMaxReqThreshold)

	cfg, err := GetConfig(to.d)
	require.NoError(t, err)
	require.Equal(t, to.owner.GetScriptHash(), cfg.Owner)
	require.EqualValues(t, DefaultMaxReqThreshold, cfg.MaxReqThreshold)

	latest, err := GetLatestStage(to.d)
	require.NoError(t, err)
	require.EqualValues(t, 0, latest)
	require.EqualValues(t, 3, GetExecutorSize(to.d))
	for i, pub := range execs {
		e, err := GetExecutor(to.d, pub)
		require.NoError(t, err)
		require.True(t, e.IsActive)
		require.EqualValues(t, i, e.Index)
		require.Nil(t, e.LeftBlock)
	}

	t.Run("twice", func(t *testing.T) {
		require.Error(t, to.o.Initialize(to.d, Genesis{}))
	})
	t.Run("bad threshold", func(t *testing.T) {
		d := dao.NewSimple(storage.NewMemoryStore())
		err := to.o.Initialize(d, Genesis{MaxReqThreshold: 101})
		require.ErrorIs(t, err, ErrInvalidThreshold)
	})
	t.Run("not initialized", func(t *testing.T) {
		d := dao.NewSimple(storage.NewMemoryStore())
		_, err := GetConfig(d)
		require.ErrorIs(t, err, dao.ErrNotInitialized)
		_, err = GetLatestStage(d)
		require.ErrorIs(t, err, dao.ErrNotInitialized)
	})
}

func TestRequest(t *testing.T) {
	to := newTestOracle(t, publicKeys(newPrivateKeys(t, 3)), 67)
	user := newPrivateKeys(t, 1)[0].GetScriptHash()

	t.Run("stages are gapless", func(t *testing.T) {
		for i := uint64(1); i <= 5; i++ {
			require.Equal(t, i, to.request(user, "price", 2))
		}
		_, err := to.exec(user, &transaction.Request{Service: "price", Threshold: 3})
		require.ErrorIs(t, err, ErrInvalidThreshold)
		require.EqualValues(t, 6, to.request(user, "price", 0))
	})
	t.Run("record", func(t *testing.T) {
		height := to.height + 1
		ic, err := to.exec(user, &transaction.Request{Service: "weather", Input: []byte("{}"), Threshold: 1})
		require.NoError(t, err)
		req, err := GetRequest(to.d, 7)
		require.NoError(t, err)
		require.Equal(t, &state.Request{
			Stage:         7,
			Requester:     user,
			RequestHeight: height,
			Threshold:     1,
			Service:       "weather",
			Input:         []byte("{}"),
		}, req)
		require.False(t, req.IsFinished())

		require.Equal(t, 1, len(ic.Notifications))
		ev := ic.Notifications[0]
		require.Equal(t, EventRequestAdded, ev.Name)
		v, ok := ev.Get("stage")
		require.True(t, ok)
		require.Equal(t, "7", v)
		v, _ = ev.Get("service")
		require.Equal(t, "weather", v)
	})
	t.Run("long service", func(t *testing.T) {
		_, err := to.exec(user, &transaction.Request{Service: strings.Repeat("a", state.MaxServiceLen+1)})
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
	t.Run("missing", func(t *testing.T) {
		_, err := GetRequest(to.d, 100)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestRequestNoExecutors(t *testing.T) {
	to := newTestOracle(t, nil, 100)
	user := newPrivateKeys(t, 1)[0].GetScriptHash()
	_, err := to.exec(user, &transaction.Request{Service: "price", Threshold: 1})
	require.ErrorIs(t, err, ErrInvalidThreshold)
	require.EqualValues(t, 1, to.request(user, "price", 0))
}

func TestRegisterMerkleRoot(t *testing.T) {
	execs := publicKeys(newPrivateKeys(t, 3))
	to := newTestOracle(t, execs, 67)
	user := newPrivateKeys(t, 1)[0].GetScriptHash()
	stage := to.request(user, "price", 2)
	other := to.request(user, "price", 2)

	stages := stageLister(t)
	root := strings.Repeat("AB", 32)
	register := func(stage uint64, root string, executors []string) error {
		_, err := to.ownerExec(&transaction.RegisterMerkleRoot{Stage: stage, MerkleRoot: root, Executors: executors})
		return err
	}

	t.Run("unauthorized", func(t *testing.T) {
		_, err := to.exec(user, &transaction.RegisterMerkleRoot{Stage: stage, MerkleRoot: root})
		require.ErrorIs(t, err, ErrUnauthorized)
	})
	t.Run("bad root", func(t *testing.T) {
		require.ErrorIs(t, register(stage, "zz", nil), ErrDecode)
		require.ErrorIs(t, register(stage, "abcd", nil), ErrWrongLength)
		require.ErrorIs(t, register(stage, "", nil), ErrWrongLength)
	})
	t.Run("bad executor", func(t *testing.T) {
		require.ErrorIs(t, register(stage, root, []string{"0102"}), ErrInvalidIdentity)
	})
	t.Run("missing stage", func(t *testing.T) {
		require.ErrorIs(t, register(100, root, nil), ErrNotFound)
	})

	pending, err := GetRequestsByMerkleRoot(to.d, "", Page{})
	require.Equal(t, []uint64{stage, other}, stages(pending, err))

	ic, err := to.ownerExec(&transaction.RegisterMerkleRoot{Stage: stage, MerkleRoot: root, Executors: hexKeys(execs)})
	require.NoError(t, err)
	require.Equal(t, 1, len(ic.Notifications))
	require.Equal(t, EventMerkleRootRegistered, ic.Notifications[0].Name)
	v, _ := ic.Notifications[0].Get("merkle_root")
	require.Equal(t, strings.ToLower(root), v)

	req, err := GetRequest(to.d, stage)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(root), req.MerkleRoot)
	require.Equal(t, to.height, req.SubmitMerkleHeight)
	require.True(t, req.IsFinished())

	t.Run("index moved", func(t *testing.T) {
		pending, err := GetRequestsByMerkleRoot(to.d, "", Page{})
		require.Equal(t, []uint64{other}, stages(pending, err))
		for _, r := range []string{root, strings.ToLower(root)} {
			done, err := GetRequestsByMerkleRoot(to.d, r, Page{})
			require.Equal(t, []uint64{stage}, stages(done, err))
		}
	})
	t.Run("already finished", func(t *testing.T) {
		require.ErrorIs(t, register(stage, root, nil), ErrAlreadyFinished)
		require.ErrorIs(t, register(stage, strings.Repeat("00", 32), nil), ErrAlreadyFinished)
	})
}

func TestUpdateConfig(t *testing.T) {
	privs := newPrivateKeys(t, 4)
	execs := publicKeys(privs)
	to := newTestOracle(t, execs[:2], 67)
	user := newPrivateKeys(t, 1)[0]

	t.Run("unauthorized", func(t *testing.T) {
		_, err := to.exec(user.GetScriptHash(), &transaction.UpdateConfig{})
		require.ErrorIs(t, err, ErrUnauthorized)
	})
	t.Run("bad threshold", func(t *testing.T) {
		th := uint64(101)
		_, err := to.ownerExec(&transaction.UpdateConfig{NewMaxReqThreshold: &th})
		require.ErrorIs(t, err, ErrInvalidThreshold)
	})
	t.Run("bad owner", func(t *testing.T) {
		owner := "not an address"
		_, err := to.ownerExec(&transaction.UpdateConfig{NewOwner: &owner})
		require.ErrorIs(t, err, ErrInvalidArgument)
	})
	t.Run("all or nothing", func(t *testing.T) {
		th := uint64(10)
		_, err := to.ownerExec(&transaction.UpdateConfig{
			NewExecutors:       hexKeys(execs[2:]),
			OldExecutors:       []string{"garbage"},
			NewMaxReqThreshold: &th,
		})
		require.ErrorIs(t, err, ErrInvalidIdentity)
		require.EqualValues(t, 2, GetExecutorSize(to.d))
		cfg, err := GetConfig(to.d)
		require.NoError(t, err)
		require.EqualValues(t, 67, cfg.MaxReqThreshold)
	})
	t.Run("executors", func(t *testing.T) {
		unknown := newPrivateKeys(t, 1)[0].PublicKey()
		ic, err := to.ownerExec(&transaction.UpdateConfig{
			NewExecutors: hexKeys(execs[2:]),
			OldExecutors: hexKeys(keys2(execs[0], unknown)),
		})
		require.NoError(t, err)
		require.Equal(t, EventConfigUpdated, ic.Notifications[0].Name)
		require.EqualValues(t, 3, GetExecutorSize(to.d))

		e, err := GetExecutor(to.d, execs[0])
		require.NoError(t, err)
		require.False(t, e.IsActive)
		require.NotNil(t, e.LeftBlock)
		require.Equal(t, to.height, *e.LeftBlock)
		require.False(t, CheckExecutorInList(to.d, execs[0]))
		require.True(t, CheckExecutorInList(to.d, execs[1]))
		require.False(t, CheckExecutorInList(to.d, unknown))

		_, err = GetExecutor(to.d, unknown)
		require.ErrorIs(t, err, ErrNotFound)

		e, err = GetExecutor(to.d, execs[3])
		require.NoError(t, err)
		require.EqualValues(t, 3, e.Index)
	})
	t.Run("reactivation", func(t *testing.T) {
		_, err := to.ownerExec(&transaction.UpdateConfig{NewExecutors: hexKeys(execs[:2])})
		require.NoError(t, err)
		require.EqualValues(t, 4, GetExecutorSize(to.d))

		e, err := GetExecutor(to.d, execs[0])
		require.NoError(t, err)
		require.True(t, e.IsActive)
		require.EqualValues(t, 0, e.Index)
		require.Nil(t, e.LeftBlock)

		// Repeated registration changes nothing.
		_, err = to.ownerExec(&transaction.UpdateConfig{NewExecutors: hexKeys(keys2(execs[1], execs[1]))})
		require.NoError(t, err)
		require.EqualValues(t, 4, GetExecutorSize(to.d))
	})
	t.Run("owner", func(t *testing.T) {
		owner := user.Address()
		th := uint64(100)
		_, err := to.ownerExec(&transaction.UpdateConfig{NewOwner: &owner, NewMaxReqThreshold: &th})
		require.NoError(t, err)
		cfg, err := GetConfig(to.d)
		require.NoError(t, err)
		require.Equal(t, user.GetScriptHash(), cfg.Owner)
		require.EqualValues(t, 100, cfg.MaxReqThreshold)

		_, err = to.ownerExec(&transaction.UpdateConfig{})
		require.ErrorIs(t, err, ErrUnauthorized)
		_, err = to.exec(user.GetScriptHash(), &transaction.UpdateConfig{})
		require.NoError(t, err)
	})
}

func keys2(a, b *keys.PublicKey) keys.PublicKeys {
	return keys.PublicKeys{a, b}
}

func TestExecutorListing(t *testing.T) {
	execs := publicKeys(newPrivateKeys(t, 5))
	to := newTestOracle(t, execs, 67)
	sorted := sortedKeys(execs)

	list := func(es []*state.Executor, err error) keys.PublicKeys {
		require.NoError(t, err)
		res := make(keys.PublicKeys, len(es))
		for i := range es {
			res[i] = es[i].PublicKey
		}
		return res
	}
	equalKeys := func(expected, actual keys.PublicKeys) {
		require.Equal(t, len(expected), len(actual))
		for i := range expected {
			require.True(t, expected[i].Equal(actual[i]), "key %d", i)
		}
	}

	equalKeys(sorted, list(GetExecutors(to.d, nil, nil, paging.Ascending, 0)))
	equalKeys(sorted[1:3], list(GetExecutors(to.d, sorted[1], sorted[3], paging.Ascending, 0)))
	equalKeys(sorted[:2], list(GetExecutors(to.d, nil, nil, paging.Ascending, 2)))
	equalKeys(keys2(sorted[3], sorted[2]), list(GetExecutors(to.d, sorted[3], sorted[1], paging.Descending, 0)))

	equalKeys(execs, list(GetExecutorsByIndex(to.d, Page{})))
	offset := uint64(1)
	equalKeys(execs[2:4], list(GetExecutorsByIndex(to.d, Page{Offset: &offset, Limit: 2})))
	offset = 3
	equalKeys(keys2(execs[2], execs[1]), list(GetExecutorsByIndex(to.d, Page{Offset: &offset, Limit: 2, Order: paging.Descending})))

	t.Run("empty", func(t *testing.T) {
		empty := newTestOracle(t, nil, 67)
		es, err := GetExecutors(empty.d, nil, nil, paging.Ascending, 0)
		require.NoError(t, err)
		require.Empty(t, es)
		require.EqualValues(t, 0, GetExecutorSize(empty.d))
	})
}

func TestRequestListing(t *testing.T) {
	to := newTestOracle(t, nil, 67)
	alice := newPrivateKeys(t, 1)[0].GetScriptHash()
	bob := newPrivateKeys(t, 1)[0].GetScriptHash()
	for i := 0; i < 8; i++ {
		sender, service := alice, "café"
		if i%2 == 1 {
			sender, service = bob, "café"
		}
		if i >= 6 {
			service = "other"
		}
		to.request(sender, service, 0)
	}
	offset := func(v uint64) *uint64 { return &v }
	stages := stageLister(t)

	require.Equal(t, []uint64{1, 2, 3}, stages(GetRequests(to.d, Page{Limit: 3})))
	require.Equal(t, []uint64{4, 5, 6}, stages(GetRequests(to.d, Page{Offset: offset(3), Limit: 3})))
	require.Equal(t, []uint64{8, 7}, stages(GetRequests(to.d, Page{Limit: 2, Order: paging.Descending})))
	require.Equal(t, []uint64{4, 3}, stages(GetRequests(to.d, Page{Offset: offset(5), Limit: 2, Order: paging.Descending})))
	require.Empty(t, stages(GetRequests(to.d, Page{Offset: offset(8)})))

	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6}, stages(GetRequestsByService(to.d, "café", Page{})))
	require.Equal(t, []uint64{6, 5, 4}, stages(GetRequestsByService(to.d, "café", Page{Limit: 3, Order: paging.Descending})))
	require.Equal(t, []uint64{3, 4}, stages(GetRequestsByService(to.d, "café", Page{Offset: offset(2), Limit: 2})))
	require.Equal(t, []uint64{7, 8}, stages(GetRequestsByService(to.d, "other", Page{})))
	require.Empty(t, stages(GetRequestsByService(to.d, "caf", Page{})))

	require.Equal(t, []uint64{1, 3, 5, 7}, stages(GetRequestsByRequester(to.d, alice, Page{})))
	require.Equal(t, []uint64{6, 4}, stages(GetRequestsByRequester(to.d, bob, Page{Offset: offset(8), Limit: 2, Order: paging.Descending})))
	require.Empty(t, stages(GetRequestsByRequester(to.d, util.Uint160{}, Page{})))

	all, err := GetRequestsByMerkleRoot(to.d, "", Page{Limit: 100})
	require.Equal(t, []uint64{1, 2, 3, 4, 5, 6, 7, 8}, stages(all, err))
}

func TestVerifyData(t *testing.T) {
	to := newTestOracle(t, nil, 67)
	user := newPrivateKeys(t, 1)[0].GetScriptHash()
	stage := to.request(user, "price", 0)
	pending := to.request(user, "price", 0)

	leaves := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma"), []byte("delta"), []byte("epsilon")}
	tree, err := merkle.NewTree(leaves)
	require.NoError(t, err)
	root := tree.Root().String()

	_, err = VerifyData(to.d, pending, leaves[0], nil)
	require.ErrorIs(t, err, ErrNoMerkleRoot)
	_, err = VerifyData(to.d, 100, leaves[0], nil)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = to.ownerExec(&transaction.RegisterMerkleRoot{Stage: stage, MerkleRoot: strings.ToUpper(root)})
	require.NoError(t, err)

	for i := range leaves {
		p, err := tree.Proof(i)
		require.NoError(t, err)
		proof := merkle.EncodeProof(p)

		ok, err := VerifyData(to.d, stage, leaves[i], proof)
		require.NoError(t, err)
		require.True(t, ok, "leaf %d", i)

		flipped := append([]byte{}, leaves[i]...)
		flipped[0] ^= 1
		ok, err = VerifyData(to.d, stage, flipped, proof)
		require.NoError(t, err)
		require.False(t, ok)
	}

	_, err = VerifyData(to.d, stage, leaves[0], []string{"xyz"})
	require.ErrorIs(t, err, ErrDecode)
	_, err = VerifyData(to.d, stage, leaves[0], []string{"abcd"})
	require.ErrorIs(t, err, ErrWrongLength)
}
