package pumpfun

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAccounts(t *testing.T) InstructionAccounts {
	t.Helper()
	user := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	ata, _, err := solana.FindAssociatedTokenAddress(user, mint)
	require.NoError(t, err)

	accounts, err := NewInstructionAccounts(mint, solana.NewWallet().PublicKey(), user, ata)
	require.NoError(t, err)
	return accounts
}

func TestBuildBuyInstruction(t *testing.T) {
	cfg := GetDefaultConfig()
	accounts := testAccounts(t)

	ix, err := cfg.BuildBuyInstruction(accounts, 32_000, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, PumpFunProgramID, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 24)
	assert.Equal(t, BuyDiscriminator, data[:8])
	assert.Equal(t, uint64(32_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[16:24]))

	metas := ix.Accounts()
	require.Len(t, metas, 12)
	assert.Equal(t, GlobalAccount, metas[0].PublicKey)
	assert.Equal(t, FeeRecipient, metas[1].PublicKey)
	assert.True(t, metas[1].IsWritable)
	assert.Equal(t, accounts.Mint, metas[2].PublicKey)
	assert.Equal(t, accounts.AssociatedUser, metas[5].PublicKey)
	assert.True(t, metas[6].IsSigner)
	assert.Equal(t, SysvarRentPubkey, metas[9].PublicKey)
	assert.Equal(t, PumpFunEventAuth, metas[10].PublicKey)
	assert.Equal(t, PumpFunProgramID, metas[11].PublicKey)
}

func TestBuildSellInstruction(t *testing.T) {
	cfg := GetDefaultConfig()
	accounts := testAccounts(t)

	ix, err := cfg.BuildSellInstruction(accounts, 500, 42)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, SellDiscriminator, data[:8])
	assert.Equal(t, uint64(500), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(data[16:24]))

	metas := ix.Accounts()
	require.Len(t, metas, 12)
	assert.Equal(t, AssociatedTokenProgramID, metas[8].PublicKey)
	assert.Equal(t, solana.TokenProgramID, metas[9].PublicKey)
}

func TestBuildInstruction_MissingAccounts(t *testing.T) {
	cfg := GetDefaultConfig()
	_, err := cfg.BuildBuyInstruction(InstructionAccounts{}, 1, 1)
	assert.Error(t, err)

	accounts := testAccounts(t)
	accounts.AssociatedUser = solana.PublicKey{}
	_, err = cfg.BuildSellInstruction(accounts, 1, 1)
	assert.Error(t, err)
}

func TestEventAuthorityDerivation(t *testing.T) {
	derived, err := DeriveEventAuthority(PumpFunProgramID)
	require.NoError(t, err)
	assert.Equal(t, PumpFunEventAuth, derived)

	cfg, err := NewConfig(PumpFunProgramID)
	require.NoError(t, err)
	assert.Equal(t, PumpFunEventAuth, cfg.EventAuthority)
}
