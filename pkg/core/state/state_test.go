package state

import (
	"encoding/json"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/nspcc-dev/aioracle/pkg/io"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"github.com/stretchr/testify/require"
)

type serializable interface {
	EncodeBinary(*io.BinWriter)
	DecodeBinary(*io.BinReader)
}

func testSerializable(t *testing.T, expected, actual serializable) {
	w := io.NewBufBinWriter()
	expected.EncodeBinary(w.BinWriter)
	require.NoError(t, w.Err)

	r := io.NewBinReaderFromBuf(w.Bytes())
	actual.DecodeBinary(r)
	require.NoError(t, r.Err)
	require.Equal(t, expected, actual)
}

func TestConfigSerialization(t *testing.T) {
	c := &Config{Owner: util.Uint160{1, 2, 3}, MaxReqThreshold: 67}
	testSerializable(t, c, new(Config))

	data, err := json.Marshal(c)
	require.NoError(t, err)
	actual := new(Config)
	require.NoError(t, json.Unmarshal(data, actual))
	require.Equal(t, c, actual)

	require.Error(t, json.Unmarshal([]byte(`{"owner":"bad"}`), actual))
}

func TestExecutorSerialization(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	check := func(t *testing.T, e *Executor) {
		w := io.NewBufBinWriter()
		e.EncodeBinary(w.BinWriter)
		require.NoError(t, w.Err)

		actual := new(Executor)
		r := io.NewBinReaderFromBuf(w.Bytes())
		actual.DecodeBinary(r)
		require.NoError(t, r.Err)
		require.True(t, e.PublicKey.Equal(actual.PublicKey))
		require.Equal(t, e.IsActive, actual.IsActive)
		require.Equal(t, e.Index, actual.Index)
		require.Equal(t, e.LeftBlock, actual.LeftBlock)
	}

	e := &Executor{PublicKey: priv.PublicKey(), IsActive: true, Index: 5}
	check(t, e)

	h := uint64(42)
	e = &Executor{PublicKey: priv.PublicKey(), Index: 7, LeftBlock: &h}
	check(t, e)

	w := io.NewBufBinWriter()
	(&Executor{}).EncodeBinary(w.BinWriter)
	require.Error(t, w.Err)

	data, err := json.Marshal(e)
	require.NoError(t, err)
	require.JSONEq(t, `{"pubkey":"`+priv.PublicKey().StringCompressed()+`","is_active":false,"executor_index":7,"left_block":42}`, string(data))
}

func TestRequestSerialization(t *testing.T) {
	r := &Request{
		Stage:         1,
		Requester:     util.Uint160{9},
		RequestHeight: 10,
		Threshold:     2,
		Service:       "price",
	}
	testSerializable(t, r, new(Request))
	require.False(t, r.IsFinished())

	r.Input = []byte{}
	testSerializable(t, r, new(Request))

	r.Input = []byte(`{"pair":"ORAI/USDT"}`)
	r.MerkleRoot = "ab2a69bdd6f8f39bd2f3c0b6e00f0c1f2f9d1c9ce4ddfaa65bff6e4b54f8d27d"
	r.SubmitMerkleHeight = 12
	testSerializable(t, r, new(Request))
	require.True(t, r.IsFinished())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	actual := new(Request)
	require.NoError(t, json.Unmarshal(data, actual))
	require.Equal(t, r, actual)
}

func TestAppExecResultSerialization(t *testing.T) {
	aer := &AppExecResult{
		Container: util.Uint256{1, 2, 3},
		Height:    5,
		State:     Halt,
		Events: []NotificationEvent{{
			Name:       "request_added",
			Attributes: []Attribute{Attr("stage", "1"), Attr("service", "price")},
		}},
	}
	testSerializable(t, aer, new(AppExecResult))

	data, err := json.Marshal(aer)
	require.NoError(t, err)
	actual := new(AppExecResult)
	require.NoError(t, json.Unmarshal(data, actual))
	require.Equal(t, aer, actual)

	t.Run("fault", func(t *testing.T) {
		aer := &AppExecResult{
			Container:      util.Uint256{4, 5, 6},
			Height:         5,
			State:          Fault,
			FaultException: "invalid threshold",
			Events:         []NotificationEvent{},
		}
		testSerializable(t, aer, new(AppExecResult))

		data, err := json.Marshal(aer)
		require.NoError(t, err)
		require.Contains(t, string(data), `"state":"FAULT"`)
		require.Contains(t, string(data), `"exception":"invalid threshold"`)
		actual := new(AppExecResult)
		require.NoError(t, json.Unmarshal(data, actual))
		require.Equal(t, aer, actual)
	})
	t.Run("bad state", func(t *testing.T) {
		require.Error(t, json.Unmarshal([]byte(`{"state":"BREAK"}`), new(AppExecResult)))
	})
}

func TestExecStateString(t *testing.T) {
	require.Equal(t, "HALT", Halt.String())
	require.Equal(t, "FAULT", Fault.String())
	require.Equal(t, "UNKNOWN(7)", ExecState(7).String())
	for _, s := range []ExecState{Halt, Fault} {
		actual, err := ExecStateFromString(s.String())
		require.NoError(t, err)
		require.Equal(t, s, actual)
	}
}
