// internal/stats/record.go
package stats

import (
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// Outcome classifies a completed position.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeFailedBuy  Outcome = "failed_buy"
	OutcomeFailedSell Outcome = "failed_sell"
	// still held when recorded, e.g. at shutdown
	OutcomeOpen Outcome = "open"
)

const lamportsDecimals = 9

var hundred = decimal.NewFromInt(100)

// TradeRecord: итог по одной позиции, уходит во все стоки ровно один раз.
type TradeRecord struct {
	ID        string
	Timestamp time.Time

	Mint   string
	Symbol string
	Name   string
	State  string

	DetectedAt time.Time
	SellTime   time.Time
	Duration   time.Duration

	BuySignature  string
	SellSignature string
	BuyAmountSOL  decimal.Decimal

	InitialMC  decimal.NullDecimal
	FinalMC    decimal.NullDecimal
	MaxMC      decimal.NullDecimal
	PnLPercent decimal.NullDecimal

	SellReason  string
	BuySimError string
	BuyError    string
	SellError   string

	Outcome Outcome
}

// NewTradeRecord classifies rec and derives PnL from market caps.
func NewTradeRecord(rec position.Record, now time.Time) TradeRecord {
	tr := TradeRecord{
		ID:           uuid.NewString(),
		Timestamp:    now,
		Mint:         rec.Mint.String(),
		Symbol:       rec.Symbol,
		Name:         rec.Name,
		State:        rec.State.String(),
		DetectedAt:   rec.DetectedAt,
		SellTime:     rec.LastSellTime,
		BuyAmountSOL: decimal.NewFromBigInt(new(big.Int).SetUint64(rec.BuyAmountLamports), -lamportsDecimals),
		InitialMC:    rec.InitialMC,
		FinalMC:      rec.CurrentMC,
		MaxMC:        rec.MaxMC,
		SellReason:   rec.SellReason,
		BuySimError:  rec.BuySimError,
		BuyError:     rec.BuyError,
		SellError:    rec.SellError,
	}
	if !rec.DetectedAt.IsZero() {
		tr.Duration = now.Sub(rec.DetectedAt)
	}
	if !rec.BuySignature.IsZero() {
		tr.BuySignature = rec.BuySignature.String()
	}
	if !rec.SellSignature.IsZero() {
		tr.SellSignature = rec.SellSignature.String()
	}

	switch {
	case tr.BuySignature != "" && rec.State == position.StateSold:
		tr.Outcome = OutcomeSuccess
		tr.PnLPercent = pnlPercent(rec.InitialMC, rec.CurrentMC)
	case rec.BuyError != "" || rec.BuySimError != "":
		tr.Outcome = OutcomeFailedBuy
	case rec.SellError != "":
		tr.Outcome = OutcomeFailedSell
	default:
		tr.Outcome = OutcomeOpen
	}
	return tr
}

// pnlPercent = (current/initial - 1) * 100
func pnlPercent(initial, current decimal.NullDecimal) decimal.NullDecimal {
	if !initial.Valid || !current.Valid || !initial.Decimal.IsPositive() {
		return decimal.NullDecimal{}
	}
	pnl := current.Decimal.Div(initial.Decimal).Sub(decimal.NewFromInt(1)).Mul(hundred)
	return decimal.NewNullDecimal(pnl)
}

// SellTx is the sell signature as reported in the trade log.
func (tr TradeRecord) SellTx() string {
	switch {
	case tr.SellSignature != "":
		return tr.SellSignature
	case tr.State == position.StateSold.String():
		// sold without a transaction: nothing was left to sell
		return "N/A (Balance 0?)"
	default:
		return "N/A"
	}
}

// Reason is the sell reason as reported in the trade log.
func (tr TradeRecord) Reason() string {
	switch {
	case tr.SellReason != "":
		return tr.SellReason
	case tr.Outcome == OutcomeSuccess:
		return "Unknown (Sold)"
	default:
		return "N/A"
	}
}
