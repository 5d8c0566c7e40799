// internal/bot/executor.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/jito"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
)

var (
	ErrSubmit      = errors.New("bundle submission failed")
	ErrNotSellable = errors.New("position not sellable")
)

// ChainReader is the RPC surface used by trades.
type ChainReader interface {
	pumpfun.AccountFetcher
	solbc.BalanceFetcher
}

type BlockhashSource interface {
	Blockhash(ctx context.Context) (solana.Hash, error)
}

type Confirmation interface {
	Await(ctx context.Context, sig solana.Signature, level rpc.ConfirmationStatusType, timeout time.Duration) (bool, error)
}

// PositionRecorder emits the single stats record of a position.
type PositionRecorder interface {
	RecordPosition(ctx context.Context, p *position.Position) bool
}

// PositionReleaser frees the active slot.
type PositionReleaser interface {
	Release(p *position.Position) bool
}

// ExecutorConfig holds the trade parameters.
type ExecutorConfig struct {
	SlippageBps              uint32
	TipLamports              uint64
	TipAccount               solana.PublicKey
	ComputeUnits             uint32
	PriorityFeeMicroLamports uint64
	ConfirmTimeout           time.Duration
	// cached curve and balance older than this are stale at sell time
	CurveStaleAfter time.Duration
	AbortOnStale    bool
}

// Executor собирает, подписывает и отправляет сделки бандлом и ждёт подтверждения.
type Executor struct {
	cfg       ExecutorConfig
	program   *pumpfun.Config
	wallet    *wallet.Wallet
	chain     ChainReader
	blockhash BlockhashSource
	submitter jito.Submitter
	confirmer Confirmation
	slots     PositionReleaser
	recorder  PositionRecorder
	metrics   *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// Deps groups the collaborators of an Executor.
type Deps struct {
	Program   *pumpfun.Config
	Wallet    *wallet.Wallet
	Chain     ChainReader
	Blockhash BlockhashSource
	Submitter jito.Submitter
	Confirmer Confirmation
	Slots     PositionReleaser
	Recorder  PositionRecorder
	Metrics   *metrics.Collector
}

func NewExecutor(cfg ExecutorConfig, deps Deps, logger *zap.Logger) *Executor {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = solbc.DefaultConfirmTimeout
	}
	return &Executor{
		cfg:       cfg,
		program:   deps.Program,
		wallet:    deps.Wallet,
		chain:     deps.Chain,
		blockhash: deps.Blockhash,
		submitter: deps.Submitter,
		confirmer: deps.Confirmer,
		slots:     deps.Slots,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		logger:    logger.Named("executor"),
		now:       time.Now,
	}
}

// budgetInstructions returns the compute unit limit and, when configured, the price.
func (e *Executor) budgetInstructions() []solana.Instruction {
	instructions := []solana.Instruction{
		computebudget.NewSetComputeUnitLimitInstruction(e.cfg.ComputeUnits).Build(),
	}
	if e.cfg.PriorityFeeMicroLamports > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(e.cfg.PriorityFeeMicroLamports).Build())
	}
	return instructions
}

func (e *Executor) tipInstruction() solana.Instruction {
	return system.NewTransferInstruction(e.cfg.TipLamports, e.wallet.PublicKey, e.cfg.TipAccount).Build()
}

// sendBundle builds, signs and submits a one-transaction bundle, then waits
// for the processed level.
func (e *Executor) sendBundle(ctx context.Context, logger *zap.Logger, instructions []solana.Instruction) (solana.Signature, error) {
	blockhash, err := e.blockhash.Blockhash(ctx)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(e.wallet.PublicKey))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("create transaction: %w", err)
	}
	if err := e.wallet.SignTransaction(tx); err != nil {
		return solana.Signature{}, err
	}
	sig := tx.Signatures[0]

	bundle := jito.NewBundle(jito.MaxBundleSize)
	if err := bundle.Add(tx); err != nil {
		return sig, err
	}

	bundleID, err := e.submitter.SendBundle(ctx, bundle)
	if err != nil {
		return sig, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	logger.Info("📤 Bundle submitted",
		zap.String("bundle_id", bundleID),
		zap.String("signature", sig.String()))

	ok, err := e.confirmer.Await(ctx, sig, rpc.ConfirmationStatusProcessed, e.cfg.ConfirmTimeout)
	if err != nil {
		return sig, err
	}
	if !ok {
		return sig, fmt.Errorf("%w: %s", solbc.ErrConfirmTimeout, sig)
	}
	return sig, nil
}

// finish records a terminal position and frees the slot.
func (e *Executor) finish(ctx context.Context, p *position.Position) {
	e.recorder.RecordPosition(ctx, p)
	e.slots.Release(p)
}
