package params

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/encoding/address"
	"github.com/nspcc-dev/aioracle/pkg/util"
	"github.com/stretchr/testify/require"
)

const testPubKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestParam_UnmarshalJSON(t *testing.T) {
	msg := `["123", 123, null, ["str2", "str3"], true, "` + testPubKey + `"]`
	var ps Params
	require.NoError(t, json.Unmarshal([]byte(msg), &ps))
	require.Len(t, ps, 6)

	t.Run("string", func(t *testing.T) {
		p := ps.Value(0)
		s, err := p.GetStringStrict()
		require.NoError(t, err)
		require.Equal(t, "123", s)
		_, err = p.GetUint64Strict()
		require.Error(t, err)
		u, err := p.GetUint64()
		require.NoError(t, err)
		require.EqualValues(t, 123, u)
		i, err := p.GetInt()
		require.NoError(t, err)
		require.Equal(t, 123, i)
		_, err = p.GetArray()
		require.Error(t, err)
	})
	t.Run("number", func(t *testing.T) {
		p := ps.Value(1)
		_, err := p.GetStringStrict()
		require.Error(t, err)
		s, err := p.GetString()
		require.NoError(t, err)
		require.Equal(t, "123", s)
		u, err := p.GetUint64Strict()
		require.NoError(t, err)
		require.EqualValues(t, 123, u)
		_, err = p.GetBooleanStrict()
		require.Error(t, err)
	})
	t.Run("null", func(t *testing.T) {
		p := ps.Value(2)
		require.True(t, p.IsNull())
		_, err := p.GetString()
		require.Error(t, err)
		_, err = p.GetUint64()
		require.Error(t, err)
		arr, err := p.GetStringArray()
		require.NoError(t, err)
		require.Nil(t, arr)
	})
	t.Run("array", func(t *testing.T) {
		p := ps.Value(3)
		arr, err := p.GetArray()
		require.NoError(t, err)
		require.Len(t, arr, 2)
		ss, err := p.GetStringArray()
		require.NoError(t, err)
		require.Equal(t, []string{"str2", "str3"}, ss)
	})
	t.Run("bool", func(t *testing.T) {
		p := ps.Value(4)
		b, err := p.GetBooleanStrict()
		require.NoError(t, err)
		require.True(t, b)
		s, err := p.GetString()
		require.NoError(t, err)
		require.Equal(t, "true", s)
	})
	t.Run("public key", func(t *testing.T) {
		pub, err := ps.Value(5).GetPublicKey()
		require.NoError(t, err)
		require.Equal(t, testPubKey, pub.StringCompressed())
		_, err = ps.Value(0).GetPublicKey()
		require.Error(t, err)
	})
	t.Run("missing", func(t *testing.T) {
		p := ps.Value(6)
		require.Nil(t, p)
		_, err := p.GetString()
		require.ErrorIs(t, err, errMissingParameter)
		_, err = p.GetUint64()
		require.ErrorIs(t, err, errMissingParameter)
		_, err = p.GetInt()
		require.ErrorIs(t, err, errMissingParameter)
	})
}

func TestParamGetUint160(t *testing.T) {
	u := util.Uint160{1, 2, 3, 4, 5}
	addr := address.Uint160ToString(u)
	for _, in := range []string{u.String(), "0x" + u.String(), addr} {
		p := Param{RawMessage: []byte(`"` + in + `"`)}
		actual, err := p.GetUint160FromAddressOrHex()
		require.NoError(t, err)
		require.Equal(t, u, actual)
	}
	p := Param{RawMessage: []byte(`"not an address"`)}
	_, err := p.GetUint160FromAddressOrHex()
	require.Error(t, err)
}

func TestParamGetUint256(t *testing.T) {
	u := util.Uint256{1, 2, 3}
	p := Param{RawMessage: []byte(`"0x` + u.String() + `"`)}
	actual, err := p.GetUint256()
	require.NoError(t, err)
	require.Equal(t, u, actual)

	p = Param{RawMessage: []byte(`"` + strings.Repeat("0", 10) + `"`)}
	_, err = p.GetUint256()
	require.Error(t, err)
}

func TestParamGetBytes(t *testing.T) {
	data := []byte{0xde, 0xad, 0xbe, 0xef}
	p := Param{RawMessage: []byte(`"` + base64.StdEncoding.EncodeToString(data) + `"`)}
	actual, err := p.GetBytesBase64()
	require.NoError(t, err)
	require.Equal(t, data, actual)

	p = Param{RawMessage: []byte(`"deadbeef"`)}
	actual, err = p.GetBytesHex()
	require.NoError(t, err)
	require.Equal(t, data, actual)
}

func TestRequest_UnmarshalJSON(t *testing.T) {
	t.Run("single", func(t *testing.T) {
		r := NewRequest()
		require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"getrequest","params":[1],"id":1}`), r))
		require.NotNil(t, r.In)
		require.Equal(t, "getrequest", r.In.Method)
		require.Len(t, r.In.RawParams, 1)
	})
	t.Run("batch", func(t *testing.T) {
		r := NewRequest()
		require.NoError(t, json.Unmarshal([]byte(`[{"jsonrpc":"2.0","method":"getblockcount","id":1},{"jsonrpc":"2.0","method":"getlateststage","id":2}]`), r))
		require.Nil(t, r.In)
		require.Len(t, r.Batch, 2)
	})
	t.Run("empty batch", func(t *testing.T) {
		r := NewRequest()
		require.Error(t, json.Unmarshal([]byte(`[]`), r))
	})
	t.Run("too big batch", func(t *testing.T) {
		items := make([]string, maxBatchSize+2)
		for i := range items {
			items[i] = `{"jsonrpc":"2.0","method":"getblockcount","id":1}`
		}
		r := NewRequest()
		require.Error(t, json.Unmarshal([]byte("["+strings.Join(items, ",")+"]"), r))
	})
}
