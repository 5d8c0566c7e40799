// internal/stats/sink.go
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// Sink receives completed trade records.
type Sink interface {
	Name() string
	Record(ctx context.Context, tr TradeRecord) error
}

// MetricsSink counts outcomes in prometheus.
type MetricsSink struct {
	collector *metrics.Collector
}

func NewMetricsSink(c *metrics.Collector) *MetricsSink {
	return &MetricsSink{collector: c}
}

func (s *MetricsSink) Name() string { return "metrics" }

func (s *MetricsSink) Record(_ context.Context, tr TradeRecord) error {
	pnl, _ := tr.PnLPercent.Decimal.Float64()
	s.collector.TradeCompleted(string(tr.Outcome), pnl, tr.PnLPercent.Valid)
	return nil
}

// Recorder emits one record per position to every sink and keeps BotStats.
// Sink failures are logged and never retried.
type Recorder struct {
	stats       *BotStats
	sinks       []Sink
	summaryPath string
	logger      *zap.Logger
	now         func() time.Time
}

func NewRecorder(stats *BotStats, summaryPath string, logger *zap.Logger, sinks ...Sink) *Recorder {
	return &Recorder{
		stats:       stats,
		sinks:       sinks,
		summaryPath: summaryPath,
		logger:      logger.Named("stats"),
		now:         time.Now,
	}
}

// RecordPosition records p unless it has been recorded before.
func (r *Recorder) RecordPosition(ctx context.Context, p *position.Position) bool {
	if !p.MarkRecorded() {
		return false
	}
	tr := NewTradeRecord(p.Snapshot(), r.now())
	r.Record(ctx, tr)
	return true
}

// Record applies tr to the aggregate and fans it out.
func (r *Recorder) Record(ctx context.Context, tr TradeRecord) {
	r.logger.Info("Recording trade statistics...",
		zap.String("mint", tr.Mint),
		zap.String("outcome", string(tr.Outcome)))

	r.stats.Apply(tr)
	for _, sink := range r.sinks {
		if err := sink.Record(ctx, tr); err != nil {
			r.logger.Error("Failed to record trade",
				zap.String("sink", sink.Name()),
				zap.String("mint", tr.Mint),
				zap.Error(err))
		}
	}

	s := r.stats.Summary(r.now())
	r.logger.Info("Overall Bot Stats Updated",
		zap.Int("total", s.TotalTrades),
		zap.Int("successful", s.SuccessfulTrades),
		zap.Int("failed_buys", s.FailedBuys),
		zap.Int("failed_sells", s.FailedSells),
		zap.String("avg_pnl_percent", s.AvgPnLPercent))
}

// Flush writes the JSON summary.
func (r *Recorder) Flush() error {
	if r.summaryPath == "" {
		return nil
	}
	if err := WriteSummary(r.summaryPath, r.stats.Summary(r.now())); err != nil {
		return fmt.Errorf("failed to save bot summary: %w", err)
	}
	r.logger.Info("Bot summary statistics saved", zap.String("path", r.summaryPath))
	return nil
}

// Close closes every sink that holds resources.
func (r *Recorder) Close() error {
	var errs []error
	for i := len(r.sinks) - 1; i >= 0; i-- {
		if c, ok := r.sinks[i].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.sinks[i].Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}
