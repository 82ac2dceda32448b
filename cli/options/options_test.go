package options

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/aioracle/pkg/config"
	"github.com/nspcc-dev/aioracle/pkg/crypto/keys"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

func newContext(t *testing.T, f func(*flag.FlagSet)) *cli.Context {
	set := flag.NewFlagSet("flagSet", flag.ContinueOnError)
	if f != nil {
		f(set)
	}
	return cli.NewContext(cli.NewApp(), set, nil)
}

func TestGetConfigFromContext(t *testing.T) {
	t.Run("config path", func(t *testing.T) {
		ctx := newContext(t, func(set *flag.FlagSet) {
			set.String("config-path", "../../config", "")
		})
		cfg, err := GetConfigFromContext(ctx)
		require.NoError(t, err)
		require.Equal(t, "AST9CekEhDWuxHPynRmeyjg5biNFSijvb3", cfg.Oracle.Owner)
		require.Equal(t, 3, len(cfg.Oracle.Executors))
	})
	t.Run("config file", func(t *testing.T) {
		ctx := newContext(t, func(set *flag.FlagSet) {
			set.String("config-file", "../../config/protocol.yml", "")
		})
		cfg, err := GetConfigFromContext(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 67, cfg.Oracle.MaxReqThreshold)
	})
	t.Run("missing", func(t *testing.T) {
		ctx := newContext(t, func(set *flag.FlagSet) {
			set.String("config-path", t.TempDir(), "")
		})
		_, err := GetConfigFromContext(ctx)
		require.Error(t, err)
	})
}

func TestHandleLoggingParams(t *testing.T) {
	d := t.TempDir()
	testLog := filepath.Join(d, "file.log")

	t.Run("logdir is a file", func(t *testing.T) {
		logfile := filepath.Join(d, "logdir")
		require.NoError(t, os.WriteFile(logfile, []byte{1, 2, 3}, os.ModePerm))
		cfg := config.ApplicationConfiguration{
			LogPath: filepath.Join(logfile, "file.log"),
		}
		_, _, err := HandleLoggingParams(false, cfg)
		require.Error(t, err)
	})
	t.Run("bad level", func(t *testing.T) {
		_, _, err := HandleLoggingParams(false, config.ApplicationConfiguration{LogLevel: "loud"})
		require.Error(t, err)
	})
	t.Run("default", func(t *testing.T) {
		cfg := config.ApplicationConfiguration{
			LogPath: testLog,
		}
		logger, lvl, err := HandleLoggingParams(false, cfg)
		require.NoError(t, err)
		require.True(t, logger.Core().Enabled(zap.InfoLevel))
		require.False(t, logger.Core().Enabled(zap.DebugLevel))

		lvl.SetLevel(zap.DebugLevel)
		require.True(t, logger.Core().Enabled(zap.DebugLevel))
	})
	t.Run("warn", func(t *testing.T) {
		cfg := config.ApplicationConfiguration{
			LogPath:     testLog,
			LogLevel:    "warn",
			LogEncoding: "json",
		}
		logger, _, err := HandleLoggingParams(false, cfg)
		require.NoError(t, err)
		require.False(t, logger.Core().Enabled(zap.InfoLevel))
	})
	t.Run("debug", func(t *testing.T) {
		cfg := config.ApplicationConfiguration{
			LogPath:  testLog,
			LogLevel: "warn",
		}
		logger, _, err := HandleLoggingParams(true, cfg)
		require.NoError(t, err)
		require.True(t, logger.Core().Enabled(zap.DebugLevel))
	})
}

func TestGetRPCClient(t *testing.T) {
	ctx := newContext(t, nil)
	_, err := GetRPCClient(context.Background(), ctx)
	require.Error(t, err)

	ctx = newContext(t, func(set *flag.FlagSet) {
		set.String(RPCEndpointFlag, "http://localhost:20332", "")
		set.Duration("timeout", time.Second, "")
	})
	c, err := GetRPCClient(context.Background(), ctx)
	require.Nil(t, err)
	require.Equal(t, "http://localhost:20332", c.Endpoint())
}

func TestGetPrivateKey(t *testing.T) {
	priv, err := keys.NewPrivateKey()
	require.NoError(t, err)

	ctx := newContext(t, func(set *flag.FlagSet) {
		set.String("key", "0x"+priv.String(), "")
	})
	res, err := GetPrivateKey(ctx)
	require.NoError(t, err)
	require.Equal(t, priv.Bytes(), res.Bytes())

	ctx = newContext(t, func(set *flag.FlagSet) {
		set.String("key", "zz", "")
	})
	_, err = GetPrivateKey(ctx)
	require.Error(t, err)
}
