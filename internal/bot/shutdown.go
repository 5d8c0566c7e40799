// internal/bot/shutdown.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

// CloseFunc allows using a function as a Closer
type CloseFunc func() error

func (f CloseFunc) Close() error {
	return f()
}

// ShutdownHandler closes registered services in reverse order.
type ShutdownHandler struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
	timeout  time.Duration
}

type namedService struct {
	name   string
	closer io.Closer
}

func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownHandler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Add registers a service for shutdown
func (sh *ShutdownHandler) Add(name string, closer io.Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.services = append(sh.services, namedService{name: name, closer: closer})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a shutdown function
func (sh *ShutdownHandler) AddFunc(name string, fn func() error) {
	sh.Add(name, CloseFunc(fn))
}

// Shutdown closes services LIFO, one at a time, each bounded by the handler
// timeout. It returns the joined close errors.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	services := make([]namedService, len(sh.services))
	copy(services, sh.services)
	sh.services = nil
	sh.mu.Unlock()

	sh.logger.Info("Starting graceful shutdown", zap.Int("services", len(services)))

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		if err := sh.closeOne(ctx, services[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		sh.logger.Error("Shutdown completed with errors", zap.Int("errorCount", len(errs)))
		return errors.Join(errs...)
	}
	sh.logger.Info("Graceful shutdown completed successfully")
	return nil
}

func (sh *ShutdownHandler) closeOne(ctx context.Context, s namedService) error {
	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		sh.logger.Info("Shutting down service", zap.String("service", s.name))
		done <- s.closer.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			sh.logger.Error("Failed to shutdown service", zap.String("service", s.name), zap.Error(err))
			return fmt.Errorf("%s: %w", s.name, err)
		}
		sh.logger.Info("Service shutdown complete", zap.String("service", s.name))
		return nil
	case <-ctx.Done():
		sh.logger.Error("Shutdown timeout for service", zap.String("service", s.name))
		return fmt.Errorf("%s: shutdown timeout", s.name)
	}
}

// Shutdown stops intake and the stream, lets in-flight buys and sells finish,
// force-sells a still-tracked position, records it if it is still open and
// writes the summary. ctx bounds the waits; confirmations are capped while
// shutting down. Safe to call more than once; only the first call acts.
func (a *Agent) Shutdown(ctx context.Context) error {
	var err error
	a.shutdownOnce.Do(func() {
		err = a.shutdown(ctx)
	})
	return err
}

func (a *Agent) shutdown(ctx context.Context) error {
	a.logger.Info("🛑 Shutting down: no new positions will be opened")
	a.manager.Shutdown()
	a.closeIntake()
	a.stopStream()
	a.tracker.Stop()

	a.waitHandlers(ctx)
	if err := a.tracker.Drain(ctx); err != nil {
		a.logger.Warn("Timed out waiting for in-flight sells", zap.Error(err))
	}
	a.forceSell()

	// anything still running past ctx is cut off here
	a.cancelTrades()

	if p := a.manager.Active(); p != nil {
		if a.recorder.RecordPosition(context.Background(), p) {
			a.logger.Warn("Position still open at exit",
				zap.String("mint", p.Mint().String()),
				zap.String("state", p.State().String()))
		}
	}

	if err := a.recorder.Flush(); err != nil {
		a.logger.Error("Failed to flush stats", zap.Error(err))
		return err
	}
	return nil
}

// forceSell sells ALL of a tracked position. A position still mid-buy or
// mid-sell after the waits is left alone.
func (a *Agent) forceSell() {
	p := a.manager.Active()
	if p == nil {
		return
	}
	log := a.logger.With(zap.String("mint", p.Mint().String()))

	decision := monitor.FullExit(monitor.ReasonShutdown, "Shutdown")
	err := p.UpdateAndTransition(position.StateSelling, func(r *position.Record) {
		r.SellReason = decision.Message
	})
	if err != nil {
		log.Warn("Skipping forced sell", zap.String("state", p.State().String()))
		return
	}

	log.Info("Forcing sell of open position")
	if err := a.executor.Sell(a.tradeCtx, p, decision); err != nil {
		log.Error("Forced sell failed", zap.Error(err))
	}
}

func (a *Agent) waitHandlers(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Timed out waiting for in-flight admissions")
	}
}
