// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Known Pump.fun protocol addresses
var (
	// Program ID for Pump.fun protocol
	PumpFunProgramID = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")

	// Global state account of the protocol
	GlobalAccount = solana.MustPublicKeyFromBase58("4wTV1YmiEkRvAtNtsSGPtUrqRYQMe5SKy2uB4Jjaxnjf")

	// Fee recipient used by buy/sell
	FeeRecipient = solana.MustPublicKeyFromBase58("62qc2CNXwrYqQScmEdiZFFAnJR262PxWEuNQtxfafNgV")

	// Event authority PDA ("__event_authority") of the program
	PumpFunEventAuth = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")

	SysvarRentPubkey         = solana.SysVarRentPubkey
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
)

// Instruction and account discriminators (anchor sighash, first 8 bytes)
var (
	BuyDiscriminator          = []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	SellDiscriminator         = []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
	CreateEventDiscriminator  = []byte{0x1b, 0x72, 0xa9, 0x4d, 0xde, 0xeb, 0x63, 0x76}
	BondingCurveDiscriminator = []byte{0x17, 0xb7, 0xf8, 0x37, 0x60, 0xd8, 0xac, 0x60}
)

// Config holds the program addresses used to build trade instructions.
type Config struct {
	ContractAddress solana.PublicKey
	Global          solana.PublicKey
	FeeRecipient    solana.PublicKey
	EventAuthority  solana.PublicKey
}

// GetDefaultConfig creates a configuration with the mainnet Pump.fun addresses.
func GetDefaultConfig() *Config {
	return &Config{
		ContractAddress: PumpFunProgramID,
		Global:          GlobalAccount,
		FeeRecipient:    FeeRecipient,
		EventAuthority:  PumpFunEventAuth,
	}
}

// NewConfig builds a configuration for a custom program id. The event authority
// is re-derived because it is a PDA of the program.
func NewConfig(programID solana.PublicKey) (*Config, error) {
	cfg := GetDefaultConfig()
	if programID.IsZero() || programID.Equals(PumpFunProgramID) {
		return cfg, nil
	}

	eventAuth, err := DeriveEventAuthority(programID)
	if err != nil {
		return nil, err
	}
	cfg.ContractAddress = programID
	cfg.EventAuthority = eventAuth
	return cfg, nil
}

// DeriveEventAuthority вычисляет PDA "__event_authority" для программы.
func DeriveEventAuthority(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte("__event_authority")}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive event authority: %w", err)
	}
	return addr, nil
}

// DeriveAssociatedBondingCurve returns the bonding curve's token account for the mint.
func DeriveAssociatedBondingCurve(bondingCurve, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	return addr, nil
}
