package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTipAccount = "96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SNIPER_RPC_URL", "https://rpc.example.com")
	t.Setenv("SNIPER_WS_URL", "wss://rpc.example.com")
	t.Setenv("SNIPER_JITO_BLOCK_ENGINE_URL", "https://mainnet.block-engine.jito.wtf/api/v1/bundles")
	t.Setenv("SNIPER_PRIVATE_KEY", "secret")
	t.Setenv("SNIPER_BUY_AMOUNT_SOL", "0.01")
	t.Setenv("SNIPER_SLIPPAGE_BPS", "500")
	t.Setenv("SNIPER_JITO_TIP_ACCOUNT", testTipAccount)
	t.Setenv("SNIPER_JITO_FIXED_TIP_LAMPORTS", "100000")
}

func TestLoadConfig_EnvAndDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, uint64(10_000_000), cfg.BuyAmountLamports)
	assert.Equal(t, 500, cfg.SlippageBps)
	assert.Equal(t, uint64(100_000), cfg.JitoFixedTipLamports)
	assert.Equal(t, testTipAccount, cfg.TipAccount.String())
	assert.Equal(t, DefaultPumpProgramID, cfg.ProgramID.String())

	assert.Equal(t, uint32(DefaultComputeUnits), cfg.ComputeUnits)
	assert.Equal(t, 1.5, cfg.TP1MCMult)
	assert.Equal(t, 40.0, cfg.TP1SellPct)
	assert.Equal(t, 2.0, cfg.TP2MCMult)
	assert.Equal(t, 5.0, cfg.EntrySLPct)
	assert.Equal(t, 10.0, cfg.MaxMCSLPct)
	assert.Equal(t, 12*time.Second, cfg.StagnationTimeout())
	assert.Equal(t, 100*time.Millisecond, cfg.MCCheckInterval())
	assert.Equal(t, 250*time.Millisecond, cfg.CurveStaleAfter())
	assert.False(t, cfg.AbortOnStaleCurve)
	assert.Equal(t, uint64(10), cfg.MaxSlotAge)
	assert.Equal(t, "logs/bot_summary.json", cfg.SummaryJSON)
}

func TestLoadConfig_FileWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SNIPER_TP1_SELL_PCT", "25")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tp1_sell_pct: 30
mc_check_interval_ms: 200
abort_on_stale_curve: true
db_driver: sqlite
db_dsn: trades.db
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 25.0, cfg.TP1SellPct)
	assert.Equal(t, 200*time.Millisecond, cfg.MCCheckInterval())
	assert.True(t, cfg.AbortOnStaleCurve)
	assert.Equal(t, "sqlite", cfg.DBDriver)
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"missing rpc", "SNIPER_RPC_URL", ""},
		{"ws scheme", "SNIPER_WS_URL", "https://rpc.example.com"},
		{"slippage above max", "SNIPER_SLIPPAGE_BPS", "10001"},
		{"negative slippage", "SNIPER_SLIPPAGE_BPS", "-1"},
		{"zero buy", "SNIPER_BUY_AMOUNT_SOL", "0"},
		{"garbage buy", "SNIPER_BUY_AMOUNT_SOL", "lots"},
		{"bad tip account", "SNIPER_JITO_TIP_ACCOUNT", "not-a-key"},
		{"unknown driver", "SNIPER_DB_DRIVER", "mysql"},
		{"telegram without chat", "SNIPER_TELEGRAM_TOKEN", "123:abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := LoadConfig("")
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	setRequiredEnv(t)
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
