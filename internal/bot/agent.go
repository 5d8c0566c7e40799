// internal/bot/agent.go
package bot

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/stream"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
)

// EventSource delivers decoded creation events until ctx is cancelled.
type EventSource interface {
	Run(ctx context.Context, handler stream.Handler) error
}

// StatsRecorder records positions and persists the aggregate summary.
type StatsRecorder interface {
	PositionRecorder
	Flush() error
}

// Agent связывает поток событий, менеджер позиции, исполнителя сделок и трекер.
type Agent struct {
	manager  *position.Manager
	executor *Executor
	tracker  *monitor.Tracker
	source   EventSource
	wallet   *wallet.Wallet
	recorder StatsRecorder
	metrics  *metrics.Collector
	logger   *zap.Logger

	// trades outlive the stream: a signal stops intake, not an in-flight buy or sell
	tradeCtx     context.Context
	cancelTrades context.CancelFunc
	streamCtx    context.Context
	stopStream   context.CancelFunc

	// intakeMu orders handlers.Add against the shutdown wait
	intakeMu     sync.Mutex
	intakeClosed bool
	handlers     sync.WaitGroup
	shutdownOnce sync.Once

	fatal chan error
}

// AgentDeps groups the collaborators of an Agent.
type AgentDeps struct {
	Manager  *position.Manager
	Executor *Executor
	Tracker  *monitor.Tracker
	Source   EventSource
	Wallet   *wallet.Wallet
	Recorder StatsRecorder
	Metrics  *metrics.Collector
}

func NewAgent(deps AgentDeps, logger *zap.Logger) *Agent {
	a := &Agent{
		manager:  deps.Manager,
		executor: deps.Executor,
		tracker:  deps.Tracker,
		source:   deps.Source,
		wallet:   deps.Wallet,
		recorder: deps.Recorder,
		metrics:  deps.Metrics,
		logger:   logger.Named("agent"),
		fatal:    make(chan error, 1),
	}
	a.tradeCtx, a.cancelTrades = context.WithCancel(context.Background())
	a.streamCtx, a.stopStream = context.WithCancel(context.Background())
	a.tracker.OnPanic(a.fail)
	return a
}

// Fatal delivers the first panic recovered in an admission, tracking loop or
// exit. The caller is expected to shut down and exit non-zero.
func (a *Agent) Fatal() <-chan error {
	return a.fatal
}

func (a *Agent) fail(err error) {
	select {
	case a.fatal <- err:
	default:
	}
}

// Run consumes the event stream until ctx is cancelled or Shutdown stops it.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(a.streamCtx, cancel)
	defer stop()

	a.logger.Info("🚀 Listening for new tokens")
	err := a.source.Run(ctx, a.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent admits ev asynchronously so that concurrent events contend on
// the manager rather than queue behind the stream.
func (a *Agent) HandleEvent(_ context.Context, ev *pumpfun.CreateEvent) {
	a.intakeMu.Lock()
	if a.intakeClosed || a.manager.ShuttingDown() {
		a.intakeMu.Unlock()
		a.metrics.CreateEvent(position.ShuttingDown.String())
		return
	}
	a.handlers.Add(1)
	a.intakeMu.Unlock()

	go func() {
		defer a.handlers.Done()
		defer logger.RecoverPanic(a.logger, "admission", a.fail)
		a.admit(ev)
	}()
}

// closeIntake makes every later HandleEvent a no-op.
func (a *Agent) closeIntake() {
	a.intakeMu.Lock()
	defer a.intakeMu.Unlock()
	a.intakeClosed = true
}

func (a *Agent) admit(ev *pumpfun.CreateEvent) {
	result, err := a.manager.Admit(a.tradeCtx, ev, a.buyAndTrack)
	a.metrics.CreateEvent(result.String())

	switch {
	case err != nil:
		a.logger.Warn("Position closed after failed buy",
			zap.String("mint", ev.Mint.String()),
			zap.Error(err))
	case result == position.Accepted:
		a.logger.Info("🎯 Position opened",
			zap.String("mint", ev.Mint.String()),
			zap.String("symbol", ev.Symbol),
			zap.String("name", ev.Name))
	default:
		a.logger.Debug("Create event skipped",
			zap.String("mint", ev.Mint.String()),
			zap.String("result", result.String()))
	}
}

// buyAndTrack runs under the admission lock.
func (a *Agent) buyAndTrack(ctx context.Context, p *position.Position) error {
	if err := a.executor.Buy(ctx, p); err != nil {
		return err
	}
	ata, err := a.wallet.GetATA(p.Mint())
	if err != nil {
		return err
	}
	a.tracker.Track(ctx, p, ata)
	return nil
}
