// internal/bot/buy.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// Buy покупает токен позиции p, которая находится в состоянии buying.
// При любой ошибке позиция переходит в failed, записывается статистика и
// слот освобождается. Успешная покупка оставляет позицию в tracking.
func (e *Executor) Buy(ctx context.Context, p *position.Position) error {
	rec := p.Snapshot()
	log := logger.WithOperation(e.logger, "buy").With(
		zap.String("mint", rec.Mint.String()),
		zap.String("symbol", rec.Symbol))
	start := e.now()

	ata, err := e.wallet.GetATA(rec.Mint)
	if err != nil {
		return e.failBuy(ctx, p, log, start, err)
	}

	curve, err := solbc.FetchCurveWithRetry(ctx, e.chain, rec.BondingCurve, rpc.CommitmentProcessed, solbc.CurveRetry)
	if err != nil {
		return e.failBuy(ctx, p, log, start, err)
	}

	quote, err := pumpfun.BuyQuote(curve.VirtualSolReserves, curve.VirtualTokenReserves, rec.BuyAmountLamports, e.cfg.SlippageBps)
	if err != nil {
		return e.failBuy(ctx, p, log, start, err)
	}
	log.Info("Buy quote",
		zap.Uint64("amount_in", quote.AmountIn),
		zap.Uint64("expected_tokens", quote.Expected),
		zap.Uint64("min_tokens", quote.MinOut))

	instructions, err := e.buyInstructions(rec, ata, quote)
	if err != nil {
		return e.failBuy(ctx, p, log, start, err)
	}

	sig, err := e.sendBundle(ctx, log, instructions)
	if err != nil {
		if !sig.IsZero() {
			p.Update(func(r *position.Record) { r.BuySignature = sig })
		}
		return e.failBuy(ctx, p, log, start, err)
	}

	now := e.now()
	if err := p.UpdateAndTransition(position.StateTracking, func(r *position.Record) {
		r.BuySignature = sig
		r.BuyTime = now
		r.Curve = curve
		r.CurveFetchedAt = now
	}); err != nil {
		return e.failBuy(ctx, p, log, start, err)
	}
	e.metrics.RecordTransaction(metrics.SideBuy, now.Sub(start), true)
	log.Info("✅ Buy confirmed", zap.String("signature", sig.String()), zap.Duration("elapsed", now.Sub(start)))

	balance, err := solbc.FetchBalanceWithRetry(ctx, e.chain, ata, rpc.CommitmentConfirmed, solbc.BalanceRetry)
	if err != nil {
		log.Warn("Token balance unknown after buy", zap.Error(err))
		return nil
	}
	p.Update(func(r *position.Record) {
		r.TokensHeld = position.Known(balance)
		r.BalanceFetchedAt = e.now()
	})
	log.Info("Tokens received", zap.Uint64("amount", balance))
	return nil
}

func (e *Executor) buyInstructions(rec position.Record, ata solana.PublicKey, quote pumpfun.Quote) ([]solana.Instruction, error) {
	accounts, err := pumpfun.NewInstructionAccounts(rec.Mint, rec.BondingCurve, e.wallet.PublicKey, ata)
	if err != nil {
		return nil, err
	}
	createATA, err := e.wallet.CreateATAIdempotentInstruction(rec.Mint)
	if err != nil {
		return nil, err
	}
	buy, err := e.program.BuildBuyInstruction(accounts, quote.MinOut, quote.MaxCost)
	if err != nil {
		return nil, err
	}

	instructions := e.budgetInstructions()
	instructions = append(instructions, createATA, buy, e.tipInstruction())
	return instructions, nil
}

// failBuy marks p failed. An on-chain execution error goes to BuySimError,
// everything else to BuyError.
func (e *Executor) failBuy(ctx context.Context, p *position.Position, log *zap.Logger, start time.Time, cause error) error {
	err := p.UpdateAndTransition(position.StateFailed, func(r *position.Record) {
		if errors.Is(cause, solbc.ErrTxFailed) {
			r.BuySimError = cause.Error()
		} else {
			r.BuyError = cause.Error()
		}
	})
	if err != nil {
		log.Error("Failed to mark position failed", zap.Error(err))
	}
	e.metrics.RecordTransaction(metrics.SideBuy, e.now().Sub(start), false)
	log.Error("❌ Buy failed", zap.Error(cause))

	e.finish(ctx, p)
	return fmt.Errorf("buy %s: %w", p.Mint(), cause)
}
