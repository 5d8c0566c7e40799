// internal/stats/csv.go
package stats

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
)

// CSVHeader is the trade log column layout.
var CSVHeader = []string{
	"Timestamp", "Mint", "Symbol", "Name",
	"Buy Timestamp", "Sell Timestamp", "Duration (s)",
	"Buy Tx", "Sell Tx", "Buy Amount (SOL)",
	"Initial MC", "Final MC", "Max MC", "PnL (%)",
	"Sell Reason", "Buy Sim Error", "Buy Error", "Sell Error",
}

const csvFlushInterval = 5 * time.Second

// CSVSink appends one row per trade to the trade log.
type CSVSink struct {
	writer *logger.SafeCSVWriter
}

func NewCSVSink(path string, log *zap.Logger) (*CSVSink, error) {
	w, err := logger.NewSafeCSVWriter(path, CSVHeader, csvFlushInterval, log.Named("trades-csv"))
	if err != nil {
		return nil, err
	}
	return &CSVSink{writer: w}, nil
}

func (s *CSVSink) Name() string { return "csv" }

func (s *CSVSink) Record(_ context.Context, tr TradeRecord) error {
	if err := s.writer.WriteRecord(csvRow(tr)); err != nil {
		return err
	}
	return s.writer.Flush()
}

func (s *CSVSink) Close() error {
	return s.writer.Close()
}

func csvRow(tr TradeRecord) []string {
	sellMillis := tr.Timestamp.UnixMilli()
	if !tr.SellTime.IsZero() {
		sellMillis = tr.SellTime.UnixMilli()
	}
	buyTx := tr.BuySignature
	if buyTx == "" {
		buyTx = "N/A"
	}
	pnl := ""
	if tr.PnLPercent.Valid {
		pnl = tr.PnLPercent.Decimal.StringFixed(2)
	}

	return []string{
		tr.Timestamp.UTC().Format(time.RFC3339Nano),
		orNA(tr.Mint),
		orNA(tr.Symbol),
		orNA(tr.Name),
		millis(tr.DetectedAt),
		strconv.FormatInt(sellMillis, 10),
		strconv.FormatInt(int64(tr.Duration.Round(time.Second)/time.Second), 10),
		buyTx,
		tr.SellTx(),
		tr.BuyAmountSOL.String(),
		nullString(tr.InitialMC),
		nullString(tr.FinalMC),
		nullString(tr.MaxMC),
		pnl,
		tr.Reason(),
		tr.BuySimError,
		tr.BuyError,
		tr.SellError,
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func millis(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}
