// internal/bot/sell.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

var ErrStaleCache = errors.New("cached curve or balance is stale")

// Sell продаёт позицию p (состояние selling) по закешированным кривой и балансу.
// Пока позиция не продана целиком, любая ошибка возвращает её в tracking.
func (e *Executor) Sell(ctx context.Context, p *position.Position, d monitor.Decision) error {
	rec := p.Snapshot()
	log := logger.WithOperation(e.logger, "sell").With(
		zap.String("mint", rec.Mint.String()),
		zap.String("reason", string(d.Reason)))

	if rec.State != position.StateSelling {
		return fmt.Errorf("%w: state %s", ErrNotSellable, rec.State)
	}

	balance, known := rec.TokensHeld.Get()
	if !known {
		return e.abortSell(p, log, fmt.Errorf("%w: token balance unknown", ErrNotSellable))
	}
	if rec.Curve == nil {
		return e.abortSell(p, log, fmt.Errorf("%w: no cached curve", ErrNotSellable))
	}

	now := e.now()
	if stale := e.staleness(rec, now); stale > 0 {
		log.Warn("⚠️ Selling with stale cache",
			zap.Duration("age", stale),
			zap.Duration("limit", e.cfg.CurveStaleAfter))
		if e.cfg.AbortOnStale {
			return e.abortSell(p, log, fmt.Errorf("%w: %s old", ErrStaleCache, stale))
		}
	}

	if balance == 0 {
		if err := p.UpdateAndTransition(position.StateSold, func(r *position.Record) {
			r.LastSellTime = now
		}); err != nil {
			return err
		}
		log.Info("Balance is zero, nothing to sell")
		e.finish(ctx, p)
		return nil
	}

	amount := sellAmount(balance, d)
	if amount == 0 {
		return e.abortSell(p, log, fmt.Errorf("%w: computed sell amount is zero", ErrNotSellable))
	}

	start := now
	quote, err := pumpfun.SellQuote(rec.Curve.VirtualSolReserves, rec.Curve.VirtualTokenReserves, amount, e.cfg.SlippageBps)
	if err != nil {
		return e.abortSell(p, log, err)
	}
	log.Info("Sell quote",
		zap.Uint64("tokens", amount),
		zap.Uint64("balance", balance),
		zap.Uint64("expected_lamports", quote.Expected),
		zap.Uint64("min_lamports", quote.MinOut))

	instructions, err := e.sellInstructions(rec, amount, quote.MinOut)
	if err != nil {
		return e.abortSell(p, log, err)
	}

	sig, err := e.sendBundle(ctx, log, instructions)
	if err != nil {
		e.metrics.RecordTransaction(metrics.SideSell, e.now().Sub(start), false)
		return e.abortSell(p, log, err)
	}

	done := e.now()
	e.metrics.RecordTransaction(metrics.SideSell, done.Sub(start), true)
	remaining := balance - amount
	if remaining == 0 {
		if err := p.UpdateAndTransition(position.StateSold, func(r *position.Record) {
			r.SellSignature = sig
			r.LastSellTime = done
			r.TokensHeld = position.Known(0)
			r.SellError = ""
		}); err != nil {
			return err
		}
		log.Info("✅ Sold", zap.String("signature", sig.String()))
		e.finish(ctx, p)
		return nil
	}

	if err := p.UpdateAndTransition(position.StateTracking, func(r *position.Record) {
		r.SellSignature = sig
		r.LastSellTime = done
		r.TokensHeld = position.Known(remaining)
		r.BalanceFetchedAt = done
		r.SellError = ""
	}); err != nil {
		return err
	}
	log.Info("✅ Partial sell confirmed",
		zap.String("signature", sig.String()),
		zap.Uint64("remaining", remaining))
	return nil
}

func (e *Executor) sellInstructions(rec position.Record, amount, minOut uint64) ([]solana.Instruction, error) {
	ata, err := e.wallet.GetATA(rec.Mint)
	if err != nil {
		return nil, err
	}
	accounts, err := pumpfun.NewInstructionAccounts(rec.Mint, rec.BondingCurve, e.wallet.PublicKey, ata)
	if err != nil {
		return nil, err
	}
	sell, err := e.program.BuildSellInstruction(accounts, amount, minOut)
	if err != nil {
		return nil, err
	}

	instructions := e.budgetInstructions()
	instructions = append(instructions, sell, e.tipInstruction())
	return instructions, nil
}

// staleness returns how far the oldest cache is past the limit, or 0.
func (e *Executor) staleness(rec position.Record, now time.Time) time.Duration {
	if e.cfg.CurveStaleAfter <= 0 {
		return 0
	}
	oldest := rec.CurveFetchedAt
	if rec.BalanceFetchedAt.Before(oldest) {
		oldest = rec.BalanceFetchedAt
	}
	if age := now.Sub(oldest); age > e.cfg.CurveStaleAfter {
		return age
	}
	return 0
}

// sellAmount = balance * pct / 100, floor; a full exit sells everything.
func sellAmount(balance uint64, d monitor.Decision) uint64 {
	if d.Full {
		return balance
	}
	pct := d.SellPct.Shift(2).Truncate(0).BigInt() // basis points
	if pct.Sign() <= 0 {
		return 0
	}
	amount := new(big.Int).Mul(new(big.Int).SetUint64(balance), pct)
	amount.Quo(amount, big.NewInt(10_000))
	if !amount.IsUint64() || amount.Uint64() > balance {
		return balance
	}
	return amount.Uint64()
}

// abortSell returns p to tracking with the error recorded.
func (e *Executor) abortSell(p *position.Position, log *zap.Logger, cause error) error {
	record := func(r *position.Record) { r.SellError = cause.Error() }
	if err := p.UpdateAndTransition(position.StateTracking, record); err != nil {
		p.Update(record)
	}
	log.Error("❌ Sell failed", zap.Error(cause))
	return fmt.Errorf("sell %s: %w", p.Mint(), cause)
}
