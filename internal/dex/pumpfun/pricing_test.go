package pumpfun

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuyQuote_ReferenceReserves(t *testing.T) {
	const (
		vSol   = uint64(30_000_000_000)
		vToken = uint64(1_000_000_000_000)
		amount = uint64(1_000_000_000)
	)

	q, err := BuyQuote(vSol, vToken, amount, 500)
	require.NoError(t, err)

	// 1e12 * 1e9 / 31e9
	assert.Equal(t, uint64(32_258_064_516), q.Expected)
	assert.Equal(t, uint64(32_258_064_516)*9500/10000, q.MinOut)
	assert.Equal(t, amount, q.MaxCost)
	assert.Equal(t, amount, q.AmountIn)
}

func TestSellQuote(t *testing.T) {
	q, err := SellQuote(30_000_000_000, 1_000_000_000_000, 32_258_064_516, 100)
	require.NoError(t, err)

	// 30e9 * 32258064516 / (1e12 + 32258064516), floor
	assert.Equal(t, uint64(937_499_999), q.Expected)
	assert.Equal(t, uint64(937_499_999)*9900/10000, q.MinOut)
	assert.Zero(t, q.MaxCost)
}

func TestQuotes_ZeroReserves(t *testing.T) {
	tests := []struct {
		name   string
		vSol   uint64
		vToken uint64
	}{
		{"zero sol", 0, 1_000},
		{"zero token", 1_000, 0},
		{"both zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuyQuote(tt.vSol, tt.vToken, 10, 100)
			assert.ErrorIs(t, err, ErrZeroReserves)

			_, err = SellQuote(tt.vSol, tt.vToken, 10, 100)
			assert.ErrorIs(t, err, ErrZeroReserves)

			_, err = MarketCap(1_000, tt.vSol, tt.vToken)
			assert.ErrorIs(t, err, ErrZeroReserves)
		})
	}
}

func TestQuotes_InvalidSlippage(t *testing.T) {
	_, err := BuyQuote(1_000, 1_000, 10, MaxSlippageBps+1)
	assert.ErrorIs(t, err, ErrInvalidSlippage)

	_, err = SellQuote(1_000, 1_000, 10, MaxSlippageBps+1)
	assert.ErrorIs(t, err, ErrInvalidSlippage)

	q, err := BuyQuote(1_000, 1_000, 10, MaxSlippageBps)
	require.NoError(t, err)
	assert.Zero(t, q.MinOut)
}

func TestQuotes_Monotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		vSol := uint64(rng.Int63n(1<<40)) + 1
		vToken := uint64(rng.Int63n(1<<50)) + 1
		a1 := uint64(rng.Int63n(1 << 36))
		a2 := a1 + uint64(rng.Int63n(1<<36))
		bps1 := uint32(rng.Intn(MaxSlippageBps + 1))
		bps2 := bps1 + uint32(rng.Intn(MaxSlippageBps-int(bps1)+1))

		b1, err := BuyQuote(vSol, vToken, a1, bps1)
		require.NoError(t, err)
		b2, err := BuyQuote(vSol, vToken, a2, bps1)
		require.NoError(t, err)
		assert.LessOrEqual(t, b1.Expected, b2.Expected, "buy expected must not decrease with input")
		assert.LessOrEqual(t, b1.MinOut, b2.MinOut, "buy min out must not decrease with input")

		b3, err := BuyQuote(vSol, vToken, a1, bps2)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b1.MinOut, b3.MinOut, "buy min out must not increase with slippage")

		s1, err := SellQuote(vSol, vToken, a1, bps1)
		require.NoError(t, err)
		s2, err := SellQuote(vSol, vToken, a2, bps1)
		require.NoError(t, err)
		assert.LessOrEqual(t, s1.Expected, s2.Expected, "sell expected must not decrease with input")
		assert.LessOrEqual(t, s1.MinOut, s2.MinOut, "sell min out must not decrease with input")

		s3, err := SellQuote(vSol, vToken, a1, bps2)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s1.MinOut, s3.MinOut, "sell min out must not increase with slippage")
	}
}

func TestMarketCap(t *testing.T) {
	// supply 1e15, vSol 30 SOL, vToken 1.073e15 -> 27.958993476 SOL (floor in lamports)
	mc, err := MarketCap(1_000_000_000_000_000, 30_000_000_000, 1_073_000_000_000_000)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("27.958993476").Equal(mc), "got %s", mc)

	// products above 2^64 stay exact
	lamports, err := MarketCapLamports(^uint64(0), ^uint64(0), 1)
	require.NoError(t, err)
	assert.Equal(t, "340282366920938463426481119284349108225", lamports.String())
}

func TestLamportsFromSOL(t *testing.T) {
	l, err := LamportsFromSOL(decimal.RequireFromString("0.0015"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), l)

	l, err = LamportsFromSOL(decimal.RequireFromString("0.0000000019"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), l)

	_, err = LamportsFromSOL(decimal.RequireFromString("-1"))
	assert.Error(t, err)
}
