// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// InstructionAccounts holds the per-token accounts of a trade.
type InstructionAccounts struct {
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	AssociatedUser         solana.PublicKey
	User                   solana.PublicKey
}

// NewInstructionAccounts derives the bonding curve ATA and fills the struct.
func NewInstructionAccounts(mint, bondingCurve, user, userATA solana.PublicKey) (InstructionAccounts, error) {
	assocCurve, err := DeriveAssociatedBondingCurve(bondingCurve, mint)
	if err != nil {
		return InstructionAccounts{}, err
	}
	return InstructionAccounts{
		Mint:                   mint,
		BondingCurve:           bondingCurve,
		AssociatedBondingCurve: assocCurve,
		AssociatedUser:         userATA,
		User:                   user,
	}, nil
}

// BuildBuyInstruction builds a buy instruction: discriminator, token amount, max SOL cost.
func (cfg *Config) BuildBuyInstruction(accounts InstructionAccounts, amount, maxSolCost uint64) (solana.Instruction, error) {
	if err := accounts.validate(); err != nil {
		return nil, err
	}

	data := encodeArgs(BuyDiscriminator, amount, maxSolCost)

	// Account list must be in the exact order expected by the program
	insAccounts := []*solana.AccountMeta{
		{PublicKey: cfg.Global, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: SysvarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.ContractAddress, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(cfg.ContractAddress, insAccounts, data), nil
}

// BuildSellInstruction builds a sell instruction: discriminator, token amount, min SOL output.
func (cfg *Config) BuildSellInstruction(accounts InstructionAccounts, amount, minSolOutput uint64) (solana.Instruction, error) {
	if err := accounts.validate(); err != nil {
		return nil, err
	}

	data := encodeArgs(SellDiscriminator, amount, minSolOutput)

	insAccounts := []*solana.AccountMeta{
		{PublicKey: cfg.Global, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.FeeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: accounts.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.AssociatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: accounts.User, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: AssociatedTokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: cfg.ContractAddress, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(cfg.ContractAddress, insAccounts, data), nil
}

func (a InstructionAccounts) validate() error {
	switch {
	case a.Mint.IsZero():
		return fmt.Errorf("instruction accounts: mint is required")
	case a.BondingCurve.IsZero():
		return fmt.Errorf("instruction accounts: bonding curve is required")
	case a.User.IsZero():
		return fmt.Errorf("instruction accounts: user is required")
	case a.AssociatedUser.IsZero():
		return fmt.Errorf("instruction accounts: user token account is required")
	}
	return nil
}

// encodeArgs: discriminator | u64 LE | u64 LE
func encodeArgs(discriminator []byte, a, b uint64) []byte {
	data := make([]byte, len(discriminator)+16)
	copy(data, discriminator)
	binary.LittleEndian.PutUint64(data[len(discriminator):], a)
	binary.LittleEndian.PutUint64(data[len(discriminator)+8:], b)
	return data
}
