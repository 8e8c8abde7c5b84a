package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestServer_ServesRegistry(t *testing.T) {
	reg := prom.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	rec.SetPages(12)

	srv, err := Listen("127.0.0.1:0", "/metrics", reg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "docsync_pages 12")

	cancel()
	require.NoError(t, <-done)
}

func TestListen_BadAddress(t *testing.T) {
	_, err := Listen("not-an-address", "/metrics", nil)
	require.Error(t, err)
}
