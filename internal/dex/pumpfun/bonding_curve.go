// ==============================================
// File: internal/dex/pumpfun/bonding_curve.go
// ==============================================
package pumpfun

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
)

// bondingCurveMinLen: discriminator + 5 u64 + bool
const bondingCurveMinLen = 8 + 5*8 + 1

var ErrInvalidCurveData = errors.New("invalid bonding curve data")

// BondingCurve is a point-in-time read of the bonding curve account.
// Snapshots are replaced wholesale and never modified after decoding.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// HasReserves reports whether both virtual reserves are nonzero.
func (bc *BondingCurve) HasReserves() bool {
	return bc != nil && bc.VirtualSolReserves > 0 && bc.VirtualTokenReserves > 0
}

// MarketCap returns the curve market cap in SOL.
func (bc *BondingCurve) MarketCap() (decimal.Decimal, error) {
	if !bc.HasReserves() {
		return decimal.Zero, ErrZeroReserves
	}
	return MarketCap(bc.TokenTotalSupply, bc.VirtualSolReserves, bc.VirtualTokenReserves)
}

// DecodeBondingCurve парсит данные аккаунта bonding curve (borsh).
// Trailing fields added by newer program versions are ignored.
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	if len(data) < bondingCurveMinLen {
		return nil, fmt.Errorf("%w: insufficient length %d", ErrInvalidCurveData, len(data))
	}
	if !bytes.Equal(data[:8], BondingCurveDiscriminator) {
		return nil, fmt.Errorf("%w: unexpected discriminator %x", ErrInvalidCurveData, data[:8])
	}

	var curve BondingCurve
	dec := bin.NewBorshDecoder(data[8:])
	if err := dec.Decode(&curve); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCurveData, err)
	}
	return &curve, nil
}

// EncodeBondingCurve serializes a curve in the account layout.
func EncodeBondingCurve(curve *BondingCurve) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(BondingCurveDiscriminator)
	if err := bin.NewBorshEncoder(buf).Encode(curve); err != nil {
		return nil, fmt.Errorf("failed to encode bonding curve: %w", err)
	}
	return buf.Bytes(), nil
}

// AccountFetcher is the RPC capability needed to read the curve account.
type AccountFetcher interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

// FetchBondingCurve получает и декодирует аккаунт bonding curve с заданным commitment.
// A missing account surfaces as rpc.ErrNotFound ("not found").
func FetchBondingCurve(ctx context.Context, client AccountFetcher, bondingCurve solana.PublicKey, commitment rpc.CommitmentType) (*BondingCurve, error) {
	info, err := client.GetAccountInfoWithOpts(ctx, bondingCurve, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: commitment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get bonding curve account %s: %w", bondingCurve, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("bonding curve account %s: %w", bondingCurve, rpc.ErrNotFound)
	}
	return DecodeBondingCurve(info.Value.Data.GetBinary())
}
