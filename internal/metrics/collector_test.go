package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.RecordTransaction(SideBuy, 300*time.Millisecond, true)
	c.RecordTransaction(SideSell, time.Second, false)
	c.RecordTransaction(SideSell, time.Second, false)
	c.StreamReconnect()
	c.SetStreamConnected(true)
	c.CreateEvent("busy")
	c.ExitTriggered("TP1")
	c.SetMarketCap(42.5)
	c.TradeCompleted("success", 12.5, true)
	c.TradeCompleted("failed_buy", 0, false)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.transactionCounter.WithLabelValues(SideBuy, StatusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.transactionCounter.WithLabelValues(SideSell, StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.streamReconnects))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.websocketConnection))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.createEvents.WithLabelValues("busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exitTriggers.WithLabelValues("TP1")))
	assert.Equal(t, 42.5, testutil.ToFloat64(c.marketCap))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradesCompleted.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tradesCompleted.WithLabelValues("failed_buy")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.tradePnL))

	_, err = NewCollector(reg)
	assert.Error(t, err, "double registration must fail")
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.RecordTransaction(SideBuy, time.Second, true)
		c.ObserveRPC("getAccountInfo", time.Millisecond)
		c.SetStreamConnected(false)
		c.StreamReconnect()
		c.CreateEvent("accepted")
		c.ExitTriggered("STAGNATION")
		c.SetMarketCap(1)
		c.TradeCompleted("open", 0, false)
	})
}

func TestServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.StreamReconnect()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, reg, zap.NewNop()) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		body = string(raw)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "pumpfun_sniper_stream_reconnects_total 1")

	cancel()
	assert.NoError(t, <-done)
}
