package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/stats"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage/models"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

const pageSize = 500

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format        ExportFormat
	StartTime     time.Time
	EndTime       time.Time
	MintFilter    string
	OutcomeFilter string // success, failed_buy, failed_sell, open
	OutputDir     string
}

// TradeSource is the read side of the trade store.
type TradeSource interface {
	ListTrades(ctx context.Context, limit, offset int) ([]*models.Trade, error)
	ListTradesByMint(ctx context.Context, mint string) ([]*models.Trade, error)
}

// TradeExporter выгружает сохранённые сделки в CSV или JSON.
type TradeExporter struct {
	source TradeSource
	logger *zap.Logger
	now    func() time.Time
}

func NewTradeExporter(source TradeSource, logger *zap.Logger) *TradeExporter {
	return &TradeExporter{
		source: source,
		logger: logger.Named("export"),
		now:    time.Now,
	}
}

// ExportTrades writes the trades matching options and returns the file path.
func (te *TradeExporter) ExportTrades(ctx context.Context, options ExportOptions) (string, error) {
	trades, err := te.load(ctx, options)
	if err != nil {
		return "", err
	}

	filtered := filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].RecordedAt.Before(filtered[j].RecordedAt)
	})

	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, te.generateFilename(options))

	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = te.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

// load pages through the store; a mint filter uses the indexed lookup.
func (te *TradeExporter) load(ctx context.Context, options ExportOptions) ([]*models.Trade, error) {
	if options.MintFilter != "" {
		trades, err := te.source.ListTradesByMint(ctx, options.MintFilter)
		if err != nil {
			return nil, fmt.Errorf("failed to load trades: %w", err)
		}
		return trades, nil
	}

	var all []*models.Trade
	for offset := 0; ; offset += pageSize {
		page, err := te.source.ListTrades(ctx, pageSize, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to load trades: %w", err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

func filterTrades(trades []*models.Trade, options ExportOptions) []*models.Trade {
	var filtered []*models.Trade
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.RecordedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.RecordedAt.After(options.EndTime) {
			continue
		}
		if options.MintFilter != "" && trade.Mint != options.MintFilter {
			continue
		}
		if options.OutcomeFilter != "" && trade.Outcome != options.OutcomeFilter {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func (te *TradeExporter) generateFilename(options ExportOptions) string {
	prefix := "trades_all"
	if options.OutcomeFilter != "" {
		prefix = "trades_" + options.OutcomeFilter
	}
	if len(options.MintFilter) >= 8 {
		prefix += "_" + options.MintFilter[:8]
	}
	return fmt.Sprintf("%s_%s.%s", prefix, te.now().Format("20060102_150405"), options.Format)
}

var csvHeaders = []string{
	"RecordID", "RecordedAt", "Mint", "Symbol", "Name", "Outcome", "State",
	"BuySignature", "SellSignature", "BuyAmountSOL", "InitialMC", "FinalMC", "MaxMC",
	"PnLPercent", "SellReason", "BuyError", "BuySimError", "SellError", "DurationSec",
}

func exportToCSV(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, t := range trades {
		row := []string{
			t.RecordID,
			t.RecordedAt.UTC().Format(time.RFC3339),
			t.Mint, t.Symbol, t.Name, t.Outcome, t.State,
			t.BuySignature, t.SellSignature,
			t.BuyAmountSOL.String(),
			nullString(t.InitialMC), nullString(t.FinalMC), nullString(t.MaxMC),
			nullString(t.PnLPercent),
			t.SellReason, t.BuyError, t.BuySimError, t.SellError,
			strconv.FormatFloat(t.DurationSec, 'f', 3, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func (te *TradeExporter) exportToJSON(trades []*models.Trade, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime time.Time       `json:"export_time"`
		TradeCount int             `json:"trade_count"`
		Trades     []*models.Trade `json:"trades"`
		Summary    ExportSummary   `json:"summary"`
	}{
		ExportTime: te.now().UTC(),
		TradeCount: len(trades),
		Trades:     trades,
		Summary:    CalculateSummary(trades),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportSummary contains summary statistics for exported trades
type ExportSummary struct {
	TotalTrades      int             `json:"total_trades"`
	SuccessfulTrades int             `json:"successful_trades"`
	FailedBuys       int             `json:"failed_buys"`
	FailedSells      int             `json:"failed_sells"`
	UniqueTokens     int             `json:"unique_tokens"`
	TotalBuyVolume   decimal.Decimal `json:"total_buy_volume_sol"`
	WinCount         int             `json:"win_count"`
	LossCount        int             `json:"loss_count"`
	WinRate          decimal.Decimal `json:"win_rate"`
	AvgPnL           decimal.Decimal `json:"avg_pnl_percent"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
}

// CalculateSummary expects trades sorted by RecordedAt.
func CalculateSummary(trades []*models.Trade) ExportSummary {
	summary := ExportSummary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return summary
	}
	summary.StartDate = trades[0].RecordedAt
	summary.EndDate = trades[len(trades)-1].RecordedAt

	tokens := make(map[string]struct{})
	totalPnL := decimal.Zero
	withPnL := 0
	for _, t := range trades {
		tokens[t.Mint] = struct{}{}
		summary.TotalBuyVolume = summary.TotalBuyVolume.Add(t.BuyAmountSOL)

		switch t.Outcome {
		case string(stats.OutcomeSuccess):
			summary.SuccessfulTrades++
		case string(stats.OutcomeFailedBuy):
			summary.FailedBuys++
		case string(stats.OutcomeFailedSell):
			summary.FailedSells++
		}

		if !t.PnLPercent.Valid {
			continue
		}
		withPnL++
		totalPnL = totalPnL.Add(t.PnLPercent.Decimal)
		switch t.PnLPercent.Decimal.Sign() {
		case 1:
			summary.WinCount++
		case -1:
			summary.LossCount++
		}
	}

	summary.UniqueTokens = len(tokens)
	if withPnL > 0 {
		n := decimal.NewFromInt(int64(withPnL))
		summary.WinRate = decimal.NewFromInt(int64(summary.WinCount)).Div(n).Mul(decimal.NewFromInt(100)).Round(2)
		summary.AvgPnL = totalPnL.Div(n).Round(2)
	}
	return summary
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return "N/A"
	}
	return d.Decimal.String()
}
