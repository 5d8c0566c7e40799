// internal/blockchain/solbc/confirm.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	DefaultPollInterval    = 250 * time.Millisecond
	DefaultConfirmTimeout  = 90 * time.Second
	ShutdownConfirmTimeout = 30 * time.Second
)

var (
	ErrConfirmTimeout = errors.New("confirmation timeout")
	ErrTxFailed       = errors.New("transaction failed on-chain")
)

// StatusFetcher is the signature-status slice of the RPC client.
type StatusFetcher interface {
	GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Confirmer опрашивает статус подписи до достижения нужного уровня подтверждения.
type Confirmer struct {
	client       StatusFetcher
	logger       *zap.Logger
	pollInterval time.Duration
	shuttingDown func() bool
}

// NewConfirmer creates a poller. shuttingDown may be nil; when it reports true
// the wait is capped at ShutdownConfirmTimeout.
func NewConfirmer(client StatusFetcher, shuttingDown func() bool, logger *zap.Logger) *Confirmer {
	return &Confirmer{
		client:       client,
		logger:       logger.Named("confirmer"),
		pollInterval: DefaultPollInterval,
		shuttingDown: shuttingDown,
	}
}

func levelRank(level rpc.ConfirmationStatusType) int {
	switch level {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	default:
		return 0
	}
}

// Reached reports whether status is at or above the wanted level.
func Reached(status, wanted rpc.ConfirmationStatusType) bool {
	r := levelRank(status)
	return r > 0 && r >= levelRank(wanted)
}

// Await blocks until sig reaches level, fails on-chain or the timeout elapses.
// It returns true only when the level was reached. Fetch errors are logged and
// polling continues.
func (c *Confirmer) Await(ctx context.Context, sig solana.Signature, level rpc.ConfirmationStatusType, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	if c.shuttingDown != nil && c.shuttingDown() && timeout > ShutdownConfirmTimeout {
		timeout = ShutdownConfirmTimeout
	}

	logger := c.logger.With(zap.String("signature", sig.String()), zap.String("level", string(level)))
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		ok, err := c.check(ctx, sig, level, logger)
		if ok || err != nil {
			return ok, err
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-deadline.C:
			logger.Warn("Confirmation timed out", zap.Duration("timeout", timeout))
			return false, fmt.Errorf("%w after %s", ErrConfirmTimeout, timeout)
		case <-ticker.C:
		}
	}
}

func (c *Confirmer) check(ctx context.Context, sig solana.Signature, level rpc.ConfirmationStatusType, logger *zap.Logger) (bool, error) {
	res, err := c.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		logger.Debug("Error getting signature statuses", zap.Error(err))
		return false, nil
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return false, nil
	}

	status := res.Value[0]
	if status.Err != nil {
		logger.Warn("Transaction failed", zap.Any("err", status.Err))
		return false, fmt.Errorf("%w: %v", ErrTxFailed, status.Err)
	}
	if Reached(status.ConfirmationStatus, level) {
		logger.Debug("Transaction confirmed",
			zap.Uint64("slot", status.Slot),
			zap.String("status", string(status.ConfirmationStatus)))
		return true, nil
	}
	return false, nil
}
