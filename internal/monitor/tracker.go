// internal/monitor/tracker.go
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// DefaultInterval is the pause between the end of one tick and the start of the next.
const DefaultInterval = 100 * time.Millisecond

// one attempt per tick; the next tick is the retry
var tickFetch = solbc.RetryPolicy{MaxTries: 1}

// ExitFunc sells the position after the tracker moved it to selling.
type ExitFunc func(ctx context.Context, p *position.Position, d Decision) error

// ActiveChecker reports whether p still owns the active slot.
type ActiveChecker interface {
	IsActive(p *position.Position) bool
}

// Tracker опрашивает кривую и баланс активной позиции и запускает продажу
// при срабатывании условия выхода. Тики не перекрываются: таймер взводится
// заново только после завершения предыдущего тика. Циклы опроса и продажи
// учитываются раздельно: Stop останавливает опрос, но не начатую продажу.
type Tracker struct {
	accounts pumpfun.AccountFetcher
	balances solbc.BalanceFetcher
	active   ActiveChecker
	rules    ExitRules
	interval time.Duration
	onExit   ExitFunc
	metrics  *metrics.Collector
	logger   *zap.Logger
	now      func() time.Time
	onPanic  func(error)

	mu      sync.Mutex
	stopped bool
	stop    chan struct{}
	loops   sync.WaitGroup
	exits   sync.WaitGroup
}

func NewTracker(
	accounts pumpfun.AccountFetcher,
	balances solbc.BalanceFetcher,
	active ActiveChecker,
	rules ExitRules,
	interval time.Duration,
	onExit ExitFunc,
	m *metrics.Collector,
	logger *zap.Logger,
) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		accounts: accounts,
		balances: balances,
		active:   active,
		rules:    rules,
		interval: interval,
		onExit:   onExit,
		metrics:  m,
		logger:   logger.Named("tracker"),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// OnPanic sets the callback for a panic recovered in a loop or an exit.
// Call it before the first Track.
func (t *Tracker) OnPanic(fn func(error)) {
	t.onPanic = fn
}

// Track starts the polling loop for p in its own goroutine. ata is the
// wallet's token account for p's mint. Exits triggered by the loop run on ctx.
// After Stop it does nothing.
func (t *Tracker) Track(ctx context.Context, p *position.Position, ata solana.PublicKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		t.logger.Info("Tracker stopped, not tracking", zap.String("mint", p.Mint().String()))
		return
	}
	t.loops.Add(1)
	go func() {
		defer t.loops.Done()
		defer logger.RecoverPanic(t.logger, "tracking", t.onPanic)
		t.run(ctx, p, ata)
	}()
}

// Stop ends every polling loop after its current tick. Exits already running
// are left to finish. Safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.stop)
	}
}

// Wait blocks until every loop and in-flight exit has returned.
func (t *Tracker) Wait() {
	t.loops.Wait()
	t.exits.Wait()
}

// Drain is Wait bounded by ctx. Call it after Stop, otherwise a loop may
// start a new exit at any time.
func (t *Tracker) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Tracker) run(ctx context.Context, p *position.Position, ata solana.PublicKey) {
	logger := t.logger.With(zap.String("mint", p.Mint().String()))
	logger.Info("📊 Tracking started", zap.Duration("interval", t.interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Tracking cancelled")
			return
		case <-t.stop:
			logger.Info("Tracking stopped for shutdown")
			return
		case <-timer.C:
		}

		if !t.Tick(ctx, p, ata) {
			logger.Info("Tracking stopped", zap.String("state", p.State().String()))
			return
		}
		timer.Reset(t.interval)
	}
}

// Tick runs one valuation round and reports whether tracking should continue.
// While a sell is in flight the round is skipped but the loop stays alive, so
// a partial or failed sell resumes tracking.
func (t *Tracker) Tick(ctx context.Context, p *position.Position, ata solana.PublicKey) bool {
	if !t.active.IsActive(p) {
		return false
	}
	state := p.State()
	if state.Terminal() {
		return false
	}
	if state != position.StateTracking {
		return true
	}

	rec := p.Snapshot()

	var (
		curve    *pumpfun.BondingCurve
		curveErr error
		balance  uint64
		balErr   error
	)
	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		curve, curveErr = pumpfun.FetchBondingCurve(ctx, t.accounts, rec.BondingCurve, rpc.CommitmentConfirmed)
		t.metrics.ObserveRPC("getAccountInfo", time.Since(start))
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		balance, balErr = solbc.FetchBalanceWithRetry(ctx, t.balances, ata, rpc.CommitmentConfirmed, tickFetch)
		t.metrics.ObserveRPC("getTokenAccountBalance", time.Since(start))
		return nil
	})
	_ = g.Wait()

	now := t.now()
	if curveErr != nil {
		t.logger.Debug("Curve fetch failed, keeping cached snapshot", zap.Error(curveErr))
	}
	if balErr != nil {
		t.logger.Debug("Balance fetch failed, keeping cached balance", zap.Error(balErr))
	}

	var mc decimal.Decimal
	haveMC := false
	if curveErr == nil && curve.HasReserves() {
		if v, err := curve.MarketCap(); err == nil {
			mc, haveMC = v, true
		}
	}

	// a sell may have finished while the fetches ran
	updated := p.Update(func(r *position.Record) {
		if curveErr == nil {
			r.Curve = curve
			r.CurveFetchedAt = now
		}
		if balErr == nil {
			r.TokensHeld = position.Known(balance)
			r.BalanceFetchedAt = now
		}
		if haveMC {
			applyMarketCap(r, mc, now)
		}
	})
	if !updated {
		return false
	}

	if !haveMC {
		return true
	}
	mcFloat, _ := mc.Float64()
	t.metrics.SetMarketCap(mcFloat)

	decision := Evaluate(p.Snapshot(), t.rules, now)
	if decision.Triggered() {
		t.trigger(ctx, p, decision)
	}
	return true
}

func applyMarketCap(r *position.Record, mc decimal.Decimal, now time.Time) {
	r.CurrentMC = decimal.NewNullDecimal(mc)
	r.LastMCUpdate = now
	if !r.InitialMC.Valid {
		r.InitialMC = decimal.NewNullDecimal(mc)
		r.MaxMC = decimal.NewNullDecimal(mc)
		r.LastNewMaxAt = now
		return
	}
	if !r.MaxMC.Valid || mc.GreaterThan(r.MaxMC.Decimal) {
		r.MaxMC = decimal.NewNullDecimal(mc)
		r.LastNewMaxAt = now
	}
}

// trigger records the reason, moves to selling and runs the exit asynchronously.
// TP flags are set here so a take-profit fires once even if its sell fails.
func (t *Tracker) trigger(ctx context.Context, p *position.Position, d Decision) {
	err := p.UpdateAndTransition(position.StateSelling, func(r *position.Record) {
		r.SellReason = d.Message
		switch d.Reason {
		case ReasonTakeProfit1:
			r.TP1Fired = true
		case ReasonTakeProfit2:
			r.TP2Fired = true
		}
	})
	if err != nil {
		// a forced sell got there first
		t.logger.Debug("Exit skipped", zap.Error(err))
		return
	}

	rec := p.Snapshot()
	t.metrics.ExitTriggered(string(d.Reason))
	t.logger.Info("🎯 Sell condition met",
		zap.String("mint", rec.Mint.String()),
		zap.String("reason", d.Message),
		zap.String("current_mc", rec.CurrentMC.Decimal.StringFixed(4)),
		zap.String("initial_mc", rec.InitialMC.Decimal.StringFixed(4)),
		zap.String("max_mc", rec.MaxMC.Decimal.StringFixed(4)),
		zap.Bool("full", d.Full),
		zap.String("sell_pct", d.SellPct.String()))

	t.exits.Add(1)
	go func() {
		defer t.exits.Done()
		defer func() {
			if moved, _ := p.TransitionFrom(position.StateSelling, position.StateTracking); moved {
				t.logger.Warn("Sell left position in selling, returned to tracking",
					zap.String("mint", rec.Mint.String()))
			}
		}()
		defer logger.RecoverPanic(t.logger, "exit", t.onPanic)

		if err := t.onExit(ctx, p, d); err != nil {
			t.logger.Error("Sell failed", zap.String("mint", rec.Mint.String()), zap.Error(err))
		}
	}()
}
