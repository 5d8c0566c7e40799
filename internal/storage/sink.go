// internal/storage/sink.go
package storage

import (
	"context"
	"fmt"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/stats"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage/models"
)

// TradeSink persists trade records.
type TradeSink struct {
	store Storage
}

func NewTradeSink(store Storage) *TradeSink {
	return &TradeSink{store: store}
}

func (s *TradeSink) Name() string { return "db" }

func (s *TradeSink) Record(ctx context.Context, tr stats.TradeRecord) error {
	if err := s.store.SaveTrade(ctx, TradeFromRecord(tr)); err != nil {
		return fmt.Errorf("failed to save trade %s: %w", tr.Mint, err)
	}
	return nil
}

func (s *TradeSink) Close() error {
	return s.store.Close()
}

// TradeFromRecord maps a trade record onto its table row.
func TradeFromRecord(tr stats.TradeRecord) *models.Trade {
	t := &models.Trade{
		RecordID:      tr.ID,
		Mint:          tr.Mint,
		Symbol:        tr.Symbol,
		Name:          tr.Name,
		Outcome:       string(tr.Outcome),
		State:         tr.State,
		BuySignature:  tr.BuySignature,
		SellSignature: tr.SellSignature,
		BuyAmountSOL:  tr.BuyAmountSOL,
		InitialMC:     tr.InitialMC,
		FinalMC:       tr.FinalMC,
		MaxMC:         tr.MaxMC,
		PnLPercent:    tr.PnLPercent,
		SellReason:    tr.SellReason,
		BuySimError:   tr.BuySimError,
		BuyError:      tr.BuyError,
		SellError:     tr.SellError,
		DetectedAt:    tr.DetectedAt.UTC(),
		DurationSec:   tr.Duration.Seconds(),
		RecordedAt:    tr.Timestamp.UTC(),
	}
	if !tr.SellTime.IsZero() {
		sold := tr.SellTime.UTC()
		t.SellTime = &sold
	}
	return t
}
