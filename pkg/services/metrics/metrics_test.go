package metrics_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/nspcc-dev/aioracle/pkg/config"
	_ "github.com/nspcc-dev/aioracle/pkg/core"
	"github.com/nspcc-dev/aioracle/pkg/services/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func get(t *testing.T, url string) string {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestPrometheusService(t *testing.T) {
	cfg := config.BasicService{Enabled: true, Addresses: []string{"localhost:0", "localhost:0"}}
	s := metrics.NewPrometheusService(cfg, zaptest.NewLogger(t))
	require.Equal(t, "Prometheus", s.Name())
	require.NoError(t, s.Start())
	t.Cleanup(s.ShutDown)

	// Duplicated addresses are only served once.
	addrs := s.Addresses()
	require.Equal(t, 1, len(addrs))
	body := get(t, "http://"+addrs[0]+"/metrics")
	require.Contains(t, body, "aioracle_current_height")
	require.Contains(t, body, "aioracle_executor_size")

	// Repeated start is a no-op.
	require.NoError(t, s.Start())
}

func TestPprofService(t *testing.T) {
	cfg := config.BasicService{Enabled: true, Addresses: []string{"localhost:0"}}
	s := metrics.NewPprofService(cfg, zaptest.NewLogger(t))
	require.NoError(t, s.Start())
	t.Cleanup(s.ShutDown)

	body := get(t, "http://"+s.Addresses()[0]+"/debug/pprof/")
	require.Contains(t, body, "goroutine")
}

func TestDisabledService(t *testing.T) {
	require.Nil(t, metrics.NewPrometheusService(config.BasicService{}, nil))

	s := metrics.NewPprofService(config.BasicService{Addresses: []string{"localhost:0"}}, zaptest.NewLogger(t))
	require.NoError(t, s.Start())
	require.Equal(t, []string{"localhost:0"}, s.Addresses())
	s.ShutDown()
}

func TestStartFailure(t *testing.T) {
	cfg := config.BasicService{Enabled: true, Addresses: []string{"localhost:-1"}}
	s := metrics.NewPrometheusService(cfg, zaptest.NewLogger(t))
	require.Error(t, s.Start())
}
