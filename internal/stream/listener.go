// internal/stream/listener.go
package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
)

// DefaultReconnectDelay is the pause between a stream ending and resubscribing.
const DefaultReconnectDelay = 5 * time.Second

// ErrStreamClosed is returned by Recv when the server ended the subscription.
var ErrStreamClosed = errors.New("stream closed")

// Subscription delivers transactions that mention the subscribed program.
type Subscription interface {
	Recv(ctx context.Context) (*pumpfun.LogTransaction, error)
	Close()
}

// Subscriber opens subscriptions. WSSubscriber is the production transport.
type Subscriber interface {
	Subscribe(ctx context.Context, program solana.PublicKey) (Subscription, error)
}

// Handler receives every decoded creation event, in stream order.
type Handler func(ctx context.Context, ev *pumpfun.CreateEvent)

// Listener держит подписку на логи программы и переподключается бесконечно.
type Listener struct {
	sub            Subscriber
	program        solana.PublicKey
	reconnectDelay time.Duration
	metrics        *metrics.Collector
	logger         *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewListener(sub Subscriber, program solana.PublicKey, m *metrics.Collector, logger *zap.Logger) *Listener {
	return &Listener{
		sub:            sub,
		program:        program,
		reconnectDelay: DefaultReconnectDelay,
		metrics:        m,
		logger:         logger.Named("stream"),
	}
}

// Run blocks until ctx is cancelled or Stop is called. Every stream
// termination is followed by a fixed wait and a fresh subscription.
func (l *Listener) Run(ctx context.Context, handler Handler) error {
	ctx, cancel := context.WithCancel(ctx)
	l.mu.Lock()
	l.cancel = cancel
	l.mu.Unlock()
	defer cancel()

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			l.metrics.StreamReconnect()
		}
		err := l.runOnce(ctx, handler)
		l.metrics.SetStreamConnected(false)
		if ctx.Err() != nil {
			l.logger.Info("Stream stopped")
			return nil
		}
		l.logger.Warn("Stream ended, resubscribing",
			zap.Error(err),
			zap.Duration("delay", l.reconnectDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.reconnectDelay):
		}
	}
}

func (l *Listener) runOnce(ctx context.Context, handler Handler) error {
	sub, err := l.sub.Subscribe(ctx, l.program)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer sub.Close()

	l.metrics.SetStreamConnected(true)
	l.logger.Info("Subscribed to program logs", zap.String("program", l.program.String()))

	for {
		tx, err := sub.Recv(ctx)
		if err != nil {
			return err
		}
		if tx == nil {
			continue
		}

		ev, ok := pumpfun.DecodeCreateEvent(tx)
		if !ok {
			continue
		}
		l.logger.Debug("Create event",
			zap.String("mint", ev.Mint.String()),
			zap.String("symbol", ev.Symbol),
			zap.Uint64("slot", ev.Slot))
		handler(ctx, ev)
	}
}

// Stop cancels a running Run.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
}
