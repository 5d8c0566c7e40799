// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pumpfun_sniper"

// Trade sides
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade outcomes
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Collector владеет всеми метриками бота. Методы безопасны для nil-получателя,
// так что компоненты работают и без метрик.
type Collector struct {
	transactionCounter  *prometheus.CounterVec
	transactionDuration *prometheus.HistogramVec
	rpcLatency          *prometheus.HistogramVec
	websocketConnection prometheus.Gauge
	streamReconnects    prometheus.Counter
	createEvents        *prometheus.CounterVec
	exitTriggers        *prometheus.CounterVec
	marketCap           prometheus.Gauge
	tradesCompleted     *prometheus.CounterVec
	tradePnL            prometheus.Histogram
}

// NewCollector создает метрики и регистрирует их в reg.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		transactionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of trades by side and outcome",
			},
			[]string{"side", "status"},
		),
		transactionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_duration_seconds",
				Help:      "Time from bundle build to confirmation",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"side"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method"},
		),
		websocketConnection: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_connected",
			Help:      "1 while the logs subscription is live",
		}),
		streamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Number of stream resubscriptions",
		}),
		createEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "create_events_total",
				Help:      "Creation events by admission result",
			},
			[]string{"result"},
		),
		exitTriggers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exit_triggers_total",
				Help:      "Exit conditions that fired, by reason",
			},
			[]string{"reason"},
		),
		marketCap: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_market_cap_sol",
			Help:      "Current market cap of the open position in SOL",
		}),
		tradesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trades_completed_total",
				Help:      "Completed positions by outcome",
			},
			[]string{"outcome"},
		),
		tradePnL: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_pnl_percent",
			Help:      "PnL of successful trades in percent",
			Buckets:   prometheus.LinearBuckets(-100, 25, 13),
		}),
	}

	for _, m := range []prometheus.Collector{
		c.transactionCounter,
		c.transactionDuration,
		c.rpcLatency,
		c.websocketConnection,
		c.streamReconnects,
		c.createEvents,
		c.exitTriggers,
		c.marketCap,
		c.tradesCompleted,
		c.tradePnL,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordTransaction records a trade outcome and how long it took.
func (c *Collector) RecordTransaction(side string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	status := StatusSuccess
	if !success {
		status = StatusFailure
	}
	c.transactionCounter.WithLabelValues(side, status).Inc()
	c.transactionDuration.WithLabelValues(side).Observe(duration.Seconds())
}

func (c *Collector) ObserveRPC(method string, duration time.Duration) {
	if c == nil {
		return
	}
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

func (c *Collector) SetStreamConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.websocketConnection.Set(1)
	} else {
		c.websocketConnection.Set(0)
	}
}

func (c *Collector) StreamReconnect() {
	if c == nil {
		return
	}
	c.streamReconnects.Inc()
}

func (c *Collector) CreateEvent(result string) {
	if c == nil {
		return
	}
	c.createEvents.WithLabelValues(result).Inc()
}

func (c *Collector) ExitTriggered(reason string) {
	if c == nil {
		return
	}
	c.exitTriggers.WithLabelValues(reason).Inc()
}

func (c *Collector) SetMarketCap(sol float64) {
	if c == nil {
		return
	}
	c.marketCap.Set(sol)
}

// TradeCompleted counts a finished position. pnl is observed only when known.
func (c *Collector) TradeCompleted(outcome string, pnl float64, hasPnL bool) {
	if c == nil {
		return
	}
	c.tradesCompleted.WithLabelValues(outcome).Inc()
	if hasPnL {
		c.tradePnL.Observe(pnl)
	}
}
