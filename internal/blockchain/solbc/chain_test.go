package solbc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingBlockhash struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (c *countingBlockhash) GetLatestBlockhash(_ context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	n := c.calls.Add(1)
	if c.fail.Load() {
		return nil, errors.New("unavailable")
	}
	res := &rpc.GetLatestBlockhashResult{Value: &rpc.LatestBlockhashResult{Blockhash: solana.Hash{byte(n)}}}
	res.Context.Slot = 1000 + uint64(n)
	return res, nil
}

func TestChainTracker_LazyFetchAndCache(t *testing.T) {
	stub := &countingBlockhash{}
	tracker := NewChainTracker(stub, time.Hour, zap.NewNop())

	_, known := tracker.CurrentSlot()
	assert.False(t, known)

	hash, err := tracker.Blockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{1}, hash)

	hash, err = tracker.Blockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{1}, hash)
	assert.Equal(t, int32(1), stub.calls.Load())

	slot, known := tracker.CurrentSlot()
	assert.True(t, known)
	assert.Equal(t, uint64(1001), slot)
}

func TestChainTracker_FailureKeepsPrevious(t *testing.T) {
	stub := &countingBlockhash{}
	tracker := NewChainTracker(stub, time.Hour, zap.NewNop())
	require.NoError(t, tracker.Refresh(context.Background()))

	stub.fail.Store(true)
	assert.Error(t, tracker.Refresh(context.Background()))

	hash, err := tracker.Blockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{1}, hash)
}

func TestChainTracker_EmptyCacheFetchError(t *testing.T) {
	stub := &countingBlockhash{}
	stub.fail.Store(true)
	_, err := NewChainTracker(stub, time.Hour, zap.NewNop()).Blockhash(context.Background())
	assert.Error(t, err)
}

func TestChainTracker_RefetchesOldBlockhash(t *testing.T) {
	stub := &countingBlockhash{}
	tracker := NewChainTracker(stub, time.Hour, zap.NewNop())
	now := time.Now()
	tracker.now = func() time.Time { return now }
	require.NoError(t, tracker.Refresh(context.Background()))
	assert.Equal(t, now, tracker.UpdatedAt())

	now = now.Add(MaxBlockhashAge)
	hash, err := tracker.Blockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{1}, hash)
	assert.Equal(t, int32(1), stub.calls.Load())

	now = now.Add(time.Second)
	hash, err = tracker.Blockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, solana.Hash{2}, hash)
	assert.Equal(t, now, tracker.UpdatedAt())

	// an old blockhash is not served when the refetch fails
	now = now.Add(2 * MaxBlockhashAge)
	stub.fail.Store(true)
	_, err = tracker.Blockhash(context.Background())
	assert.Error(t, err)
}

func TestChainTracker_RunRefreshes(t *testing.T) {
	stub := &countingBlockhash{}
	tracker := NewChainTracker(stub, 5*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tracker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return stub.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	slot, _ := tracker.CurrentSlot()
	assert.GreaterOrEqual(t, slot, uint64(1003))
}
