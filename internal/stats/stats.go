// internal/stats/stats.go
package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// BotStats aggregates outcomes over the process lifetime.
type BotStats struct {
	mu sync.Mutex

	startTime        time.Time
	totalTrades      int
	successfulTrades int
	failedBuys       int
	failedSells      int
	totalPnLPercent  decimal.Decimal
}

func NewBotStats(start time.Time) *BotStats {
	return &BotStats{startTime: start}
}

// Apply counts tr. PnL accumulates only for successful trades with known caps.
func (s *BotStats) Apply(tr TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalTrades++
	switch tr.Outcome {
	case OutcomeSuccess:
		s.successfulTrades++
		if tr.PnLPercent.Valid {
			s.totalPnLPercent = s.totalPnLPercent.Add(tr.PnLPercent.Decimal)
		}
	case OutcomeFailedBuy:
		s.failedBuys++
	case OutcomeFailedSell:
		s.failedSells++
	}
}

// Summary is the persisted view of BotStats.
type Summary struct {
	LastRunTimestamp time.Time `json:"lastRunTimestamp"`
	StartTimestamp   time.Time `json:"startTimestamp"`
	TotalTrades      int       `json:"totalTrades"`
	SuccessfulTrades int       `json:"successfulTrades"`
	FailedBuys       int       `json:"failedBuys"`
	FailedSells      int       `json:"failedSells"`
	AvgPnLPercent    string    `json:"avgPnlPercent"`
}

func (s *BotStats) Summary(now time.Time) Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	avg := "N/A"
	if s.successfulTrades > 0 {
		avg = s.totalPnLPercent.Div(decimal.NewFromInt(int64(s.successfulTrades))).StringFixed(2) + "%"
	}
	return Summary{
		LastRunTimestamp: now.UTC(),
		StartTimestamp:   s.startTime.UTC(),
		TotalTrades:      s.totalTrades,
		SuccessfulTrades: s.successfulTrades,
		FailedBuys:       s.failedBuys,
		FailedSells:      s.failedSells,
		AvgPnLPercent:    avg,
	}
}

// WriteSummary replaces path with the indented JSON summary.
func WriteSummary(path string, summary Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".summary-*")
	if err != nil {
		return fmt.Errorf("failed to create summary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(summary); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close summary file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
