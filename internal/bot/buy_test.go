package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
)

func programIDs(t *testing.T, tx *solana.Transaction) []solana.PublicKey {
	t.Helper()
	var ids []solana.PublicKey
	for _, ix := range tx.Message.Instructions {
		id, err := tx.Message.Program(ix.ProgramIDIndex)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestBuy_Success(t *testing.T) {
	h := newHarness(t, nil)

	res, err := h.manager.Admit(context.Background(), createEvent(), h.executor.Buy)
	require.NoError(t, err)
	assert.Equal(t, position.Accepted, res)

	p := h.manager.Active()
	require.NotNil(t, p)
	rec := p.Snapshot()
	assert.Equal(t, position.StateTracking, rec.State)
	assert.False(t, rec.BuySignature.IsZero())
	assert.NotNil(t, rec.Curve)
	n, ok := rec.TokensHeld.Get()
	assert.True(t, ok)
	assert.Equal(t, uint64(1_000_000), n)

	require.Equal(t, 1, h.submitter.count())
	txs := h.submitter.transactions(t, 0)
	require.Len(t, txs, 1)
	assert.Equal(t, rec.BuySignature, txs[0].Signatures[0])
	assert.Equal(t, []solana.PublicKey{
		computebudget.ProgramID,
		solana.SPLAssociatedTokenAccountProgramID,
		pumpfun.PumpFunProgramID,
		system.ProgramID,
	}, programIDs(t, txs[0]))
}

func TestBuy_PriorityFeeAddsPriceInstruction(t *testing.T) {
	h := newHarness(t, func(cfg *ExecutorConfig) { cfg.PriorityFeeMicroLamports = 10_000 })

	_, err := h.manager.Admit(context.Background(), createEvent(), h.executor.Buy)
	require.NoError(t, err)

	ids := programIDs(t, h.submitter.transactions(t, 0)[0])
	require.Len(t, ids, 5)
	assert.Equal(t, computebudget.ProgramID, ids[0])
	assert.Equal(t, computebudget.ProgramID, ids[1])
}

func TestBuy_CurveRPCErrorAbortsOnFirstAttempt(t *testing.T) {
	h := newHarness(t, nil)
	h.chain.curveErr = errRateLimited

	var bought *position.Position
	res, err := h.manager.Admit(context.Background(), createEvent(), func(ctx context.Context, p *position.Position) error {
		bought = p
		return h.executor.Buy(ctx, p)
	})
	assert.Equal(t, position.Accepted, res)
	require.ErrorIs(t, err, errRateLimited)

	assert.Equal(t, 1, h.chain.curveCalls)
	assert.Equal(t, 0, h.submitter.count())
	assert.Nil(t, h.manager.Active())

	rec := bought.Snapshot()
	assert.Equal(t, position.StateFailed, rec.State)
	assert.Contains(t, rec.BuyError, "429")

	sum := h.stats.Summary(rec.DetectedAt)
	assert.Equal(t, 1, sum.TotalTrades)
	assert.Equal(t, 1, sum.FailedBuys)
}

func TestBuy_CurveNeverVisible(t *testing.T) {
	h := newHarness(t, nil)
	h.chain.curveErr = rpc.ErrNotFound

	_, err := h.manager.Admit(context.Background(), createEvent(), h.executor.Buy)
	require.ErrorIs(t, err, solbc.ErrCurveNotFound)
	assert.Equal(t, int(solbc.CurveRetry.MaxTries), h.chain.curveCalls)
	assert.Equal(t, 0, h.submitter.count())
}

func TestBuy_ZeroReservesFails(t *testing.T) {
	h := newHarness(t, nil)
	h.chain.curve = &pumpfun.BondingCurve{TokenTotalSupply: 1}

	_, err := h.manager.Admit(context.Background(), createEvent(), h.executor.Buy)
	assert.ErrorIs(t, err, pumpfun.ErrZeroReserves)
	assert.Equal(t, 0, h.submitter.count())
	assert.Nil(t, h.manager.Active())
}

func TestBuy_SubmissionAndConfirmationFailures(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(h *harness)
		wantSimErr bool
		wantErr    error
	}{
		{
			name:    "bundle rejected",
			setup:   func(h *harness) { h.submitter.err = errors.New("bundle rejected") },
			wantErr: ErrSubmit,
		},
		{
			name:       "on-chain error",
			setup:      func(h *harness) { h.confirmer.ok, h.confirmer.err = false, solbc.ErrTxFailed },
			wantSimErr: true,
			wantErr:    solbc.ErrTxFailed,
		},
		{
			name:    "confirmation timeout",
			setup:   func(h *harness) { h.confirmer.ok, h.confirmer.err = false, nil },
			wantErr: solbc.ErrConfirmTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			tt.setup(h)

			var bought *position.Position
			_, err := h.manager.Admit(context.Background(), createEvent(), func(ctx context.Context, p *position.Position) error {
				bought = p
				return h.executor.Buy(ctx, p)
			})
			require.ErrorIs(t, err, tt.wantErr)

			rec := bought.Snapshot()
			assert.Equal(t, position.StateFailed, rec.State)
			if tt.wantSimErr {
				assert.NotEmpty(t, rec.BuySimError)
				assert.Empty(t, rec.BuyError)
			} else {
				assert.NotEmpty(t, rec.BuyError)
			}
			assert.Nil(t, h.manager.Active())
			assert.Equal(t, 1, h.stats.Summary(rec.DetectedAt).FailedBuys)
		})
	}
}

func TestBuy_UnknownBalanceKeepsPosition(t *testing.T) {
	h := newHarness(t, nil)
	h.chain.balanceErr = errors.New("could not find account")

	_, err := h.manager.Admit(context.Background(), createEvent(), h.executor.Buy)
	require.NoError(t, err)

	p := h.manager.Active()
	require.NotNil(t, p)
	assert.Equal(t, position.StateTracking, p.State())
	assert.False(t, p.Snapshot().TokensHeld.IsKnown())
	assert.Equal(t, int(solbc.BalanceRetry.MaxTries), h.chain.balanceCalls)
}
