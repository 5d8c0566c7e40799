// internal/blockchain/solbc/chain.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const DefaultBlockhashRefresh = 500 * time.Millisecond

// MaxBlockhashAge is how long a cached blockhash is served without a refetch.
// A blockhash expires roughly 150 slots after it was produced.
const MaxBlockhashAge = 45 * time.Second

var ErrNoBlockhash = errors.New("no blockhash available")

// BlockhashFetcher is the blockhash slice of the RPC client.
type BlockhashFetcher interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
}

// ChainTracker держит в памяти последний blockhash и слот, обновляя их в фоне.
// Executor читает кеш вместо запроса к RPC на каждую сделку.
type ChainTracker struct {
	client   BlockhashFetcher
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.RWMutex
	blockhash solana.Hash
	slot      uint64
	updatedAt time.Time
}

func NewChainTracker(client BlockhashFetcher, interval time.Duration, logger *zap.Logger) *ChainTracker {
	if interval <= 0 {
		interval = DefaultBlockhashRefresh
	}
	return &ChainTracker{
		client:   client,
		interval: interval,
		logger:   logger.Named("chain-tracker"),
		now:      time.Now,
	}
}

// Refresh fetches the latest blockhash at confirmed commitment.
func (t *ChainTracker) Refresh(ctx context.Context) error {
	res, err := t.client.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return ErrNoBlockhash
	}

	t.mu.Lock()
	t.blockhash = res.Value.Blockhash
	if res.Context.Slot > t.slot {
		t.slot = res.Context.Slot
	}
	t.updatedAt = t.now()
	t.mu.Unlock()
	return nil
}

// Run refreshes until ctx is cancelled. Failures keep the previous values.
func (t *ChainTracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if err := t.Refresh(ctx); err != nil && ctx.Err() == nil {
			t.logger.Debug("Blockhash refresh failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Blockhash returns the cached blockhash. An empty cache, or one older than
// MaxBlockhashAge because background refreshes keep failing, is refetched.
func (t *ChainTracker) Blockhash(ctx context.Context) (solana.Hash, error) {
	t.mu.RLock()
	hash := t.blockhash
	t.mu.RUnlock()
	if !hash.IsZero() {
		age := t.now().Sub(t.UpdatedAt())
		if age <= MaxBlockhashAge {
			return hash, nil
		}
		t.logger.Warn("Cached blockhash is too old, refetching", zap.Duration("age", age))
	}

	if err := t.Refresh(ctx); err != nil {
		return solana.Hash{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.blockhash, nil
}

// CurrentSlot returns the last observed slot and whether one is known.
func (t *ChainTracker) CurrentSlot() (uint64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.slot, t.slot > 0
}

// UpdatedAt is when the cache was last refreshed successfully.
func (t *ChainTracker) UpdatedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}
