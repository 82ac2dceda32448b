package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/core/storage/dbconfig"
	"github.com/stretchr/testify/require"
)

const testOwner = "AST9CekEhDWuxHPynRmeyjg5biNFSijvb3"

func writeConfig(t *testing.T, data string) string {
	p := filepath.Join(t.TempDir(), "protocol.yml")
	require.NoError(t, os.WriteFile(p, []byte(data), 0o644))
	return p
}

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config"))
	require.NoError(t, err)
	require.Equal(t, dbconfig.LevelDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
	require.True(t, cfg.ApplicationConfiguration.RPC.Enabled)
	require.Equal(t, []string{":20332"}, cfg.ApplicationConfiguration.RPC.GetAddresses())
	require.Equal(t, DefaultMaxRequestBodyBytes, cfg.ApplicationConfiguration.RPC.MaxRequestBodyBytes)
	require.Equal(t, testOwner, cfg.Oracle.Owner)
	require.EqualValues(t, 67, cfg.Oracle.MaxReqThreshold)

	pubs, err := cfg.Oracle.ExecutorKeys()
	require.NoError(t, err)
	require.Equal(t, 3, len(pubs))
}

func TestLoadFile(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
		require.Error(t, err)
	})
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadFile(writeConfig(t, "Oracle:\n  Owner: \""+testOwner+"\"\n"))
		require.NoError(t, err)
		require.EqualValues(t, DefaultMaxReqThreshold, cfg.Oracle.MaxReqThreshold)
		require.Equal(t, dbconfig.InMemoryDB, cfg.ApplicationConfiguration.DBConfiguration.Type)
		require.Empty(t, cfg.Oracle.Executors)
	})
	t.Run("zero threshold", func(t *testing.T) {
		cfg, err := LoadFile(writeConfig(t, "Oracle:\n  Owner: \""+testOwner+"\"\n  MaxReqThreshold: 0\n"))
		require.NoError(t, err)
		require.EqualValues(t, 0, cfg.Oracle.MaxReqThreshold)
	})
	t.Run("unknown field", func(t *testing.T) {
		_, err := LoadFile(writeConfig(t, "Oracle:\n  Owner: \""+testOwner+"\"\n  Unknown: 1\n"))
		require.Error(t, err)
	})
	for name, data := range map[string]string{
		"bad owner":     "Oracle:\n  Owner: \"garbage\"\n",
		"no owner":      "Oracle:\n  MaxReqThreshold: 10\n",
		"bad threshold": "Oracle:\n  Owner: \"" + testOwner + "\"\n  MaxReqThreshold: 101\n",
		"bad executor":  "Oracle:\n  Owner: \"" + testOwner + "\"\n  Executors: [\"0102\"]\n",
		"bad db":        "ApplicationConfiguration:\n  DBConfiguration:\n    Type: \"redis\"\nOracle:\n  Owner: \"" + testOwner + "\"\n",
		"bad log level": "ApplicationConfiguration:\n  LogLevel: \"loud\"\nOracle:\n  Owner: \"" + testOwner + "\"\n",
		"bad rpc":       "ApplicationConfiguration:\n  RPC:\n    MaxRequestBodyBytes: -1\nOracle:\n  Owner: \"" + testOwner + "\"\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, data))
			require.Error(t, err)
		})
	}
}

func TestBasicServiceGetAddresses(t *testing.T) {
	s := BasicService{Addresses: []string{":1", "localhost:2", ":1"}}
	require.Equal(t, []string{":1", "localhost:2"}, s.GetAddresses())
	require.Empty(t, BasicService{}.GetAddresses())
}

func TestConfigEquals(t *testing.T) {
	cfg, err := Load("../../config")
	require.NoError(t, err)
	cp, err := Load("../../config")
	require.NoError(t, err)

	require.True(t, cfg.Oracle.Equals(&cp.Oracle))
	require.True(t, cfg.ApplicationConfiguration.EqualsButLogLevel(&cp.ApplicationConfiguration))

	cp.ApplicationConfiguration.LogLevel = "debug"
	require.True(t, cfg.ApplicationConfiguration.EqualsButLogLevel(&cp.ApplicationConfiguration))
	cp.ApplicationConfiguration.LogPath = "./log"
	require.False(t, cfg.ApplicationConfiguration.EqualsButLogLevel(&cp.ApplicationConfiguration))

	cp.Oracle.Executors = cp.Oracle.Executors[:2]
	require.False(t, cfg.Oracle.Equals(&cp.Oracle))
}

func TestUserAgent(t *testing.T) {
	Version = "0.1.0"
	t.Cleanup(func() { Version = "" })
	require.Equal(t, "/aioracle:0.1.0/", UserAgent())
}
