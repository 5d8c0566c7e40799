// internal/monitor/evaluator.go
package monitor

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// ExitReason identifies which exit rule fired.
type ExitReason string

const (
	ReasonNone             ExitReason = ""
	ReasonCreatorSold      ExitReason = "CREATOR_SOLD"
	ReasonEntryStopLoss    ExitReason = "ENTRY_SL"
	ReasonTrailingStopLoss ExitReason = "MAX_MC_SL"
	ReasonStagnation       ExitReason = "STAGNATION"
	ReasonTakeProfit2      ExitReason = "TP2"
	ReasonTakeProfit1      ExitReason = "TP1"
	ReasonShutdown         ExitReason = "SHUTDOWN"
)

var hundred = decimal.NewFromInt(100)

// ExitRules are the thresholds the evaluator applies. Percentages are 0..100.
type ExitRules struct {
	TP1Mult           decimal.Decimal
	TP1SellPct        decimal.Decimal
	TP2Mult           decimal.Decimal
	TP2SellPct        decimal.Decimal
	EntrySLPct        decimal.Decimal
	MaxMCSLPct        decimal.Decimal
	StagnationTimeout time.Duration
}

// Decision is the evaluator's verdict for one tick.
type Decision struct {
	Reason  ExitReason
	Message string
	// SellPct is ignored when Full is set.
	SellPct decimal.Decimal
	Full    bool
}

func (d Decision) Triggered() bool { return d.Reason != ReasonNone }

// FullExit builds an unconditional sell-all decision, e.g. for shutdown.
func FullExit(reason ExitReason, message string) Decision {
	return Decision{Reason: reason, Message: message, SellPct: hundred, Full: true}
}

// Evaluate applies the exit rules in priority order and returns the first match.
// It needs current and initial market caps; without them nothing fires.
func Evaluate(rec position.Record, rules ExitRules, now time.Time) Decision {
	if !rec.CurrentMC.Valid || !rec.InitialMC.Valid {
		return Decision{}
	}
	current := rec.CurrentMC.Decimal
	initial := rec.InitialMC.Decimal
	maxMC := initial
	if rec.MaxMC.Valid {
		maxMC = rec.MaxMC.Decimal
	}

	// creator-sold detection slot: nothing feeds it yet

	entryFloor := initial.Mul(hundred.Sub(rules.EntrySLPct)).Div(hundred)
	if current.LessThan(entryFloor) {
		return FullExit(ReasonEntryStopLoss, fmt.Sprintf("Entry SL hit (%s%%)", rules.EntrySLPct))
	}

	trailingFloor := maxMC.Mul(hundred.Sub(rules.MaxMCSLPct)).Div(hundred)
	if current.LessThan(trailingFloor) {
		return FullExit(ReasonTrailingStopLoss, fmt.Sprintf("Max MC SL hit (%s%%)", rules.MaxMCSLPct))
	}

	if !rec.LastNewMaxAt.IsZero() && now.Sub(rec.LastNewMaxAt) > rules.StagnationTimeout {
		return FullExit(ReasonStagnation, fmt.Sprintf("Stagnation Timeout hit (%s)", rules.StagnationTimeout))
	}

	if !rec.TP2Fired && current.GreaterThanOrEqual(initial.Mul(rules.TP2Mult)) {
		return FullExit(ReasonTakeProfit2, fmt.Sprintf("TP2 hit (>= %sx)", rules.TP2Mult))
	}

	if !rec.TP1Fired && current.GreaterThanOrEqual(initial.Mul(rules.TP1Mult)) {
		return Decision{
			Reason:  ReasonTakeProfit1,
			Message: fmt.Sprintf("TP1 hit (>= %sx)", rules.TP1Mult),
			SellPct: rules.TP1SellPct,
			Full:    rules.TP1SellPct.GreaterThanOrEqual(hundred),
		}
	}

	return Decision{}
}
