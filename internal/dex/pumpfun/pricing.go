// ==============================================
// File: internal/dex/pumpfun/pricing.go
// ==============================================
package pumpfun

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	// MaxSlippageBps is the basis point denominator.
	MaxSlippageBps = 10_000

	solDecimals = 9
)

var (
	ErrZeroReserves    = errors.New("bonding curve reserves are zero")
	ErrInvalidSlippage = errors.New("slippage bps out of range")
	ErrAmountOverflow  = errors.New("amount does not fit into u64")
)

// Quote is the result of a buy or sell computation.
//
// For a buy AmountIn is lamports and Expected/MinOut are token base units,
// MaxCost equals AmountIn (exact-in). For a sell the roles swap and MaxCost is zero.
type Quote struct {
	AmountIn uint64
	Expected uint64
	MinOut   uint64
	MaxCost  uint64
}

// BuyQuote computes tokens out for amountIn lamports:
//
//	expected = vToken * A / (vSol + A)
//	minOut   = expected * (10000 - bps) / 10000
//
// The division order matches the program and must not be rearranged.
func BuyQuote(virtualSol, virtualToken, amountIn uint64, slippageBps uint32) (Quote, error) {
	if virtualSol == 0 || virtualToken == 0 {
		return Quote{}, ErrZeroReserves
	}
	if slippageBps > MaxSlippageBps {
		return Quote{}, fmt.Errorf("%w: %d", ErrInvalidSlippage, slippageBps)
	}

	a := new(big.Int).SetUint64(amountIn)
	num := new(big.Int).Mul(new(big.Int).SetUint64(virtualToken), a)
	den := new(big.Int).Add(new(big.Int).SetUint64(virtualSol), a)
	expected := num.Quo(num, den)

	minOut := applySlippage(expected, slippageBps)

	exp, err := toUint64(expected)
	if err != nil {
		return Quote{}, err
	}
	minU, err := toUint64(minOut)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		AmountIn: amountIn,
		Expected: exp,
		MinOut:   minU,
		MaxCost:  amountIn,
	}, nil
}

// SellQuote computes lamports out for tokensIn:
//
//	expected = vSol * At / (vToken + At)
//	minOut   = expected * (10000 - bps) / 10000
func SellQuote(virtualSol, virtualToken, tokensIn uint64, slippageBps uint32) (Quote, error) {
	if virtualSol == 0 || virtualToken == 0 {
		return Quote{}, ErrZeroReserves
	}
	if slippageBps > MaxSlippageBps {
		return Quote{}, fmt.Errorf("%w: %d", ErrInvalidSlippage, slippageBps)
	}

	at := new(big.Int).SetUint64(tokensIn)
	num := new(big.Int).Mul(new(big.Int).SetUint64(virtualSol), at)
	den := new(big.Int).Add(new(big.Int).SetUint64(virtualToken), at)
	expected := num.Quo(num, den)

	minOut := applySlippage(expected, slippageBps)

	exp, err := toUint64(expected)
	if err != nil {
		return Quote{}, err
	}
	minU, err := toUint64(minOut)
	if err != nil {
		return Quote{}, err
	}

	return Quote{
		AmountIn: tokensIn,
		Expected: exp,
		MinOut:   minU,
	}, nil
}

// MarketCapLamports returns supply * vSol / vToken (floor).
func MarketCapLamports(totalSupply, virtualSol, virtualToken uint64) (*big.Int, error) {
	if virtualSol == 0 || virtualToken == 0 {
		return nil, ErrZeroReserves
	}
	mc := new(big.Int).Mul(new(big.Int).SetUint64(totalSupply), new(big.Int).SetUint64(virtualSol))
	return mc.Quo(mc, new(big.Int).SetUint64(virtualToken)), nil
}

// MarketCap returns the market cap in SOL. Lamports are kept exact as 9 decimal places.
func MarketCap(totalSupply, virtualSol, virtualToken uint64) (decimal.Decimal, error) {
	lamports, err := MarketCapLamports(totalSupply, virtualSol, virtualToken)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromBigInt(lamports, -solDecimals), nil
}

// LamportsFromSOL converts a SOL amount into lamports, truncating sub-lamport dust.
func LamportsFromSOL(sol decimal.Decimal) (uint64, error) {
	if sol.IsNegative() {
		return 0, fmt.Errorf("negative SOL amount: %s", sol)
	}
	lamports := sol.Shift(solDecimals).Truncate(0).BigInt()
	return toUint64(lamports)
}

// applySlippage: expected * (10000 - bps) / 10000
func applySlippage(expected *big.Int, slippageBps uint32) *big.Int {
	out := new(big.Int).Mul(expected, big.NewInt(int64(MaxSlippageBps-slippageBps)))
	return out.Quo(out, big.NewInt(MaxSlippageBps))
}

func toUint64(v *big.Int) (uint64, error) {
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrAmountOverflow, v.String())
	}
	return v.Uint64(), nil
}
