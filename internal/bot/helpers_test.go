package bot

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/jito"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/stats"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
)

func sampleCurve() *pumpfun.BondingCurve {
	return &pumpfun.BondingCurve{
		VirtualTokenReserves: 1_073_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    793_100_000_000_000,
		TokenTotalSupply:     1_000_000_000_000_000,
	}
}

type fakeChain struct {
	mu           sync.Mutex
	curve        *pumpfun.BondingCurve
	curveErr     error
	curveCalls   int
	balance      string
	balanceErr   error
	balanceCalls int
}

func (f *fakeChain) GetAccountInfoWithOpts(_ context.Context, _ solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.curveCalls++
	if f.curveErr != nil {
		return nil, f.curveErr
	}
	raw, err := pumpfun.EncodeBondingCurve(f.curve)
	if err != nil {
		return nil, err
	}
	return &rpc.GetAccountInfoResult{Value: &rpc.Account{
		Owner: pumpfun.PumpFunProgramID,
		Data:  rpc.DataBytesOrJSONFromBytes(raw),
	}}, nil
}

func (f *fakeChain) GetTokenAccountBalance(_ context.Context, _ solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceCalls++
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return &rpc.GetTokenAccountBalanceResult{Value: &rpc.UiTokenAmount{Amount: f.balance, Decimals: 6}}, nil
}

func (f *fakeChain) setSolReserves(v uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := *f.curve
	c.VirtualSolReserves = v
	f.curve = &c
}

type fixedBlockhash struct{}

func (fixedBlockhash) Blockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{9, 9, 9}, nil
}

type fakeSubmitter struct {
	mu      sync.Mutex
	bundles [][]string
	err     error
	panics  string
}

func (f *fakeSubmitter) SendBundle(_ context.Context, b *jito.Bundle) (string, error) {
	if f.panics != "" {
		panic(f.panics)
	}
	if f.err != nil {
		return "", f.err
	}
	encoded, err := b.Encode()
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bundles = append(f.bundles, encoded)
	return "bundle-id", nil
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bundles)
}

// transactions decodes the i-th submitted bundle.
func (f *fakeSubmitter) transactions(t *testing.T, i int) []*solana.Transaction {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.Greater(t, len(f.bundles), i)

	var txs []*solana.Transaction
	for _, enc := range f.bundles[i] {
		raw, err := base58.Decode(enc)
		require.NoError(t, err)
		tx, err := solana.TransactionFromBytes(raw)
		require.NoError(t, err)
		txs = append(txs, tx)
	}
	return txs
}

type fakeConfirmer struct {
	mu    sync.Mutex
	ok    bool
	err   error
	delay time.Duration
	calls int
}

// Await answers after delay unless ctx ends first.
func (f *fakeConfirmer) Await(ctx context.Context, _ solana.Signature, _ rpc.ConfirmationStatusType, _ time.Duration) (bool, error) {
	f.mu.Lock()
	f.calls++
	ok, err, delay := f.ok, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return ok, err
}

func (f *fakeConfirmer) setDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *fakeConfirmer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type harness struct {
	chain       *fakeChain
	submitter   *fakeSubmitter
	confirmer   *fakeConfirmer
	manager     *position.Manager
	stats       *stats.BotStats
	recorder    *stats.Recorder
	summaryPath string
	wallet      *wallet.Wallet
	executor    *Executor
}

func newHarness(t *testing.T, mutate func(cfg *ExecutorConfig)) *harness {
	t.Helper()
	h := &harness{
		chain:     &fakeChain{curve: sampleCurve(), balance: "1000000"},
		submitter: &fakeSubmitter{},
		confirmer: &fakeConfirmer{ok: true},
		stats:     stats.NewBotStats(time.Now()),
		wallet:    wallet.FromPrivateKey(solana.NewWallet().PrivateKey),
	}
	h.manager = position.NewManager(50_000_000, nil, 0, zap.NewNop())
	h.summaryPath = filepath.Join(t.TempDir(), "bot_summary.json")
	h.recorder = stats.NewRecorder(h.stats, h.summaryPath, zap.NewNop())

	cfg := ExecutorConfig{
		SlippageBps:  500,
		TipLamports:  10_000,
		TipAccount:   solana.NewWallet().PublicKey(),
		ComputeUnits: 400_000,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	h.executor = NewExecutor(cfg, Deps{
		Program:   pumpfun.GetDefaultConfig(),
		Wallet:    h.wallet,
		Chain:     h.chain,
		Blockhash: fixedBlockhash{},
		Submitter: h.submitter,
		Confirmer: h.confirmer,
		Slots:     h.manager,
		Recorder:  h.recorder,
	}, zap.NewNop())
	return h
}

func createEvent() *pumpfun.CreateEvent {
	return &pumpfun.CreateEvent{
		Mint:         solana.NewWallet().PublicKey(),
		BondingCurve: solana.NewWallet().PublicKey(),
		Creator:      solana.NewWallet().PublicKey(),
		Name:         "Test",
		Symbol:       "TST",
	}
}

// openPosition admits a position whose buy only moves it to tracking.
func (h *harness) openPosition(t *testing.T) *position.Position {
	t.Helper()
	var opened *position.Position
	res, err := h.manager.Admit(context.Background(), createEvent(), func(_ context.Context, p *position.Position) error {
		opened = p
		return p.Transition(position.StateTracking)
	})
	require.NoError(t, err)
	require.Equal(t, position.Accepted, res)
	return opened
}

// sellingPosition returns an active position in selling with cached data.
func (h *harness) sellingPosition(t *testing.T, balance position.TokenBalance, fetchedAt time.Time) *position.Position {
	t.Helper()
	p := h.openPosition(t)
	require.NoError(t, p.UpdateAndTransition(position.StateSelling, func(r *position.Record) {
		r.BuySignature = solana.Signature{1}
		r.TokensHeld = balance
		r.BalanceFetchedAt = fetchedAt
		r.Curve = sampleCurve()
		r.CurveFetchedAt = fetchedAt
	}))
	return p
}

var errRateLimited = errors.New("429 Too Many Requests")
