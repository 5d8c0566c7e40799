// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SNIPER_RPC_URL.
const EnvPrefix = "SNIPER"

type Config struct {
	RPCURL             string `mapstructure:"rpc_url"`
	WSURL              string `mapstructure:"ws_url"`
	JitoBlockEngineURL string `mapstructure:"jito_block_engine_url"`
	JitoUUID           string `mapstructure:"jito_uuid"`
	PrivateKey         string `mapstructure:"private_key"`
	PumpProgramID      string `mapstructure:"pump_program_id"`

	BuyAmountSOL             string `mapstructure:"buy_amount_sol"`
	SlippageBps              int    `mapstructure:"slippage_bps"`
	JitoTipAccount           string `mapstructure:"jito_tip_account"`
	JitoFixedTipLamports     uint64 `mapstructure:"jito_fixed_tip_lamports"`
	ComputeUnits             uint32 `mapstructure:"compute_units"`
	PriorityFeeMicroLamports uint64 `mapstructure:"priority_fee_micro_lamports"`

	TP1MCMult            float64 `mapstructure:"tp1_mc_mult"`
	TP1SellPct           float64 `mapstructure:"tp1_sell_pct"`
	TP2MCMult            float64 `mapstructure:"tp2_mc_mult"`
	TP2SellPct           float64 `mapstructure:"tp2_sell_pct"`
	EntrySLPct           float64 `mapstructure:"entry_sl_pct"`
	MaxMCSLPct           float64 `mapstructure:"max_mc_sl_pct"`
	StagnationTimeoutSec int     `mapstructure:"stagnation_timeout_sec"`
	MCCheckIntervalMs    int     `mapstructure:"mc_check_interval_ms"`
	CurveStaleMultiplier float64 `mapstructure:"curve_stale_multiplier"`
	AbortOnStaleCurve    bool    `mapstructure:"abort_on_stale_curve"`
	MaxSlotAge           uint64  `mapstructure:"max_slot_age"`
	BlockhashRefreshMs   int     `mapstructure:"blockhash_refresh_ms"`

	LogLevel    string `mapstructure:"log_level"`
	LogToFile   bool   `mapstructure:"log_to_file"`
	LogFile     string `mapstructure:"log_file"`
	TradesCSV   string `mapstructure:"trades_csv"`
	SummaryJSON string `mapstructure:"summary_json"`

	DBDriver       string `mapstructure:"db_driver"`
	DBDSN          string `mapstructure:"db_dsn"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	TelegramToken  string `mapstructure:"telegram_token"`
	TelegramChatID int64  `mapstructure:"telegram_chat_id"`

	// derived in Load
	BuyAmountLamports uint64           `mapstructure:"-"`
	ProgramID         solana.PublicKey `mapstructure:"-"`
	TipAccount        solana.PublicKey `mapstructure:"-"`
}

const (
	DefaultPumpProgramID        = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	DefaultComputeUnits         = 400_000
	DefaultTP1MCMult            = 1.5
	DefaultTP1SellPct           = 40.0
	DefaultTP2MCMult            = 2.0
	DefaultTP2SellPct           = 60.0
	DefaultEntrySLPct           = 5.0
	DefaultMaxMCSLPct           = 10.0
	DefaultStagnationTimeoutSec = 12
	DefaultMCCheckIntervalMs    = 100
	DefaultCurveStaleMultiplier = 2.5
	DefaultMaxSlotAge           = 10
	DefaultBlockhashRefreshMs   = 500
)

// keys without defaults still need an env binding for Unmarshal to see them
var requiredKeys = []string{
	"rpc_url", "ws_url", "jito_block_engine_url", "private_key",
	"buy_amount_sol", "slippage_bps", "jito_tip_account", "jito_fixed_tip_lamports",
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"pump_program_id":             DefaultPumpProgramID,
		"jito_uuid":                   "",
		"compute_units":               DefaultComputeUnits,
		"priority_fee_micro_lamports": 0,
		"tp1_mc_mult":                 DefaultTP1MCMult,
		"tp1_sell_pct":                DefaultTP1SellPct,
		"tp2_mc_mult":                 DefaultTP2MCMult,
		"tp2_sell_pct":                DefaultTP2SellPct,
		"entry_sl_pct":                DefaultEntrySLPct,
		"max_mc_sl_pct":               DefaultMaxMCSLPct,
		"stagnation_timeout_sec":      DefaultStagnationTimeoutSec,
		"mc_check_interval_ms":        DefaultMCCheckIntervalMs,
		"curve_stale_multiplier":      DefaultCurveStaleMultiplier,
		"abort_on_stale_curve":        false,
		"max_slot_age":                DefaultMaxSlotAge,
		"blockhash_refresh_ms":        DefaultBlockhashRefreshMs,
		"log_level":                   "info",
		"log_to_file":                 true,
		"log_file":                    "logs/bot.log",
		"trades_csv":                  "trades/trades.csv",
		"summary_json":                "logs/bot_summary.json",
		"db_driver":                   "",
		"db_dsn":                      "",
		"metrics_addr":                "",
		"telegram_token":              "",
		"telegram_chat_id":            0,
	}
}

// LoadConfig читает .env (если есть), необязательный файл конфигурации и
// переменные окружения SNIPER_*. Переменные окружения имеют приоритет.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpc_url is required")
	}
	if err := validateURL(cfg.RPCURL, "http"); err != nil {
		return fmt.Errorf("invalid rpc_url: %w", err)
	}
	if cfg.WSURL == "" {
		return errors.New("ws_url is required")
	}
	if err := validateURL(cfg.WSURL, "ws"); err != nil {
		return fmt.Errorf("invalid ws_url: %w", err)
	}
	if cfg.JitoBlockEngineURL == "" {
		return errors.New("jito_block_engine_url is required")
	}
	if err := validateURL(cfg.JitoBlockEngineURL, "http"); err != nil {
		return fmt.Errorf("invalid jito_block_engine_url: %w", err)
	}
	if cfg.PrivateKey == "" {
		return errors.New("private_key is required")
	}

	programID, err := solana.PublicKeyFromBase58(cfg.PumpProgramID)
	if err != nil {
		return fmt.Errorf("invalid pump_program_id: %w", err)
	}
	cfg.ProgramID = programID

	if cfg.JitoTipAccount == "" {
		return errors.New("jito_tip_account is required")
	}
	tip, err := solana.PublicKeyFromBase58(cfg.JitoTipAccount)
	if err != nil {
		return fmt.Errorf("invalid jito_tip_account: %w", err)
	}
	cfg.TipAccount = tip

	if cfg.BuyAmountSOL == "" {
		return errors.New("buy_amount_sol is required")
	}
	amount, err := decimal.NewFromString(cfg.BuyAmountSOL)
	if err != nil {
		return fmt.Errorf("invalid buy_amount_sol: %w", err)
	}
	lamports := amount.Shift(9).Floor()
	if !lamports.IsPositive() || !lamports.BigInt().IsUint64() {
		return errors.New("buy_amount_sol must be positive")
	}
	cfg.BuyAmountLamports = lamports.BigInt().Uint64()

	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.SlippageBps < 0 || cfg.SlippageBps > 10_000 {
		return errors.New("slippage_bps must be within [0, 10000]")
	}
	if cfg.ComputeUnits == 0 {
		return errors.New("invalid compute_units")
	}
	if cfg.TP1MCMult <= 1 || cfg.TP2MCMult <= 1 {
		return errors.New("take-profit multipliers must be greater than 1")
	}
	if cfg.TP1SellPct <= 0 || cfg.TP1SellPct > 100 {
		return errors.New("tp1_sell_pct must be within (0, 100]")
	}
	if cfg.TP2SellPct <= 0 || cfg.TP2SellPct > 100 {
		return errors.New("tp2_sell_pct must be within (0, 100]")
	}
	if cfg.EntrySLPct <= 0 || cfg.EntrySLPct >= 100 {
		return errors.New("entry_sl_pct must be within (0, 100)")
	}
	if cfg.MaxMCSLPct <= 0 || cfg.MaxMCSLPct >= 100 {
		return errors.New("max_mc_sl_pct must be within (0, 100)")
	}
	if cfg.StagnationTimeoutSec <= 0 {
		return errors.New("invalid stagnation_timeout_sec")
	}
	if cfg.MCCheckIntervalMs <= 0 {
		return errors.New("invalid mc_check_interval_ms")
	}
	if cfg.CurveStaleMultiplier <= 0 {
		return errors.New("invalid curve_stale_multiplier")
	}
	if cfg.BlockhashRefreshMs <= 0 {
		return errors.New("invalid blockhash_refresh_ms")
	}
	switch cfg.DBDriver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported db_driver %q", cfg.DBDriver)
	}
	if cfg.DBDriver != "" && cfg.DBDSN == "" {
		return errors.New("db_dsn is required when db_driver is set")
	}
	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return errors.New("telegram_chat_id is required when telegram_token is set")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return fmt.Errorf("expected %s scheme, got %q", protocol, parsed.Scheme)
	}
	return nil
}

func (c *Config) MCCheckInterval() time.Duration {
	return time.Duration(c.MCCheckIntervalMs) * time.Millisecond
}

func (c *Config) StagnationTimeout() time.Duration {
	return time.Duration(c.StagnationTimeoutSec) * time.Second
}

func (c *Config) BlockhashRefresh() time.Duration {
	return time.Duration(c.BlockhashRefreshMs) * time.Millisecond
}

// CurveStaleAfter is the age past which cached curve data counts as stale at sell time.
func (c *Config) CurveStaleAfter() time.Duration {
	return time.Duration(float64(c.MCCheckInterval()) * c.CurveStaleMultiplier)
}
