// ====================================
// File: cmd/bot/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/bot"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/jito"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/metrics"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/monitor"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/notify"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/position"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/stats"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage/sqlstore"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/stream"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/wallet"
)

const (
	// a buy awaiting confirmation at the signal, then the capped forced sell
	shutdownTimeout = solbc.DefaultConfirmTimeout + 2*solbc.ShutdownConfirmTimeout
	closeTimeout    = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "optional config file (yaml, json, toml); SNIPER_* env vars override it")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.ToFile = cfg.LogToFile
	logCfg.LogFile = cfg.LogFile
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	code := run(cfg, log.Logger)
	_ = log.Close()
	os.Exit(code)
}

// run wires the bot and blocks until a signal, a fatal stream error or a
// recovered panic.
// The return value is the process exit code.
func run(cfg *config.Config, log *zap.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting pump.fun sniper",
		zap.String("program", cfg.ProgramID.String()),
		zap.String("buy_amount_sol", cfg.BuyAmountSOL),
		zap.Int("slippage_bps", cfg.SlippageBps))

	closers := bot.NewShutdownHandler(log, closeTimeout)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := closers.Shutdown(closeCtx); err != nil {
			log.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	w, err := wallet.NewWallet(cfg.PrivateKey)
	if err != nil {
		log.Error("Failed to load wallet", zap.Error(err))
		return 1
	}

	registry := prometheus.NewRegistry()
	collector, err := metrics.NewCollector(registry)
	if err != nil {
		log.Error("Failed to register metrics", zap.Error(err))
		return 1
	}

	client := solbc.NewClient(cfg.RPCURL, log)
	closers.AddFunc("rpc", client.Close)

	if err := startupChecks(ctx, cfg, client, w, log); err != nil {
		log.Error("Startup checks failed", zap.Error(err))
		return 1
	}

	// фоновые задачи живут до конца процесса, а не до сигнала
	bg, stopBackground := context.WithCancel(context.Background())
	closers.AddFunc("background", func() error {
		stopBackground()
		return nil
	})

	chain := solbc.NewChainTracker(client, cfg.BlockhashRefresh(), log)
	if err := chain.Refresh(ctx); err != nil {
		log.Warn("Initial blockhash fetch failed", zap.Error(err))
	}
	go chain.Run(bg)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(bg, cfg.MetricsAddr, registry, log); err != nil {
				log.Error("Metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	recorder, err := newRecorder(cfg, collector, log)
	if err != nil {
		log.Error("Failed to set up stats", zap.Error(err))
		return 1
	}
	closers.AddFunc("stats", recorder.Close)

	program, err := pumpfun.NewConfig(cfg.ProgramID)
	if err != nil {
		log.Error("Invalid program configuration", zap.Error(err))
		return 1
	}

	manager := position.NewManager(cfg.BuyAmountLamports, chain, cfg.MaxSlotAge, log)
	confirmer := solbc.NewConfirmer(client, manager.ShuttingDown, log)
	submitter := jito.NewClient(cfg.JitoBlockEngineURL, cfg.JitoUUID, log)

	executor := bot.NewExecutor(bot.ExecutorConfig{
		SlippageBps:              uint32(cfg.SlippageBps),
		TipLamports:              cfg.JitoFixedTipLamports,
		TipAccount:               cfg.TipAccount,
		ComputeUnits:             cfg.ComputeUnits,
		PriorityFeeMicroLamports: cfg.PriorityFeeMicroLamports,
		ConfirmTimeout:           solbc.DefaultConfirmTimeout,
		CurveStaleAfter:          cfg.CurveStaleAfter(),
		AbortOnStale:             cfg.AbortOnStaleCurve,
	}, bot.Deps{
		Program:   program,
		Wallet:    w,
		Chain:     client,
		Blockhash: chain,
		Submitter: submitter,
		Confirmer: confirmer,
		Slots:     manager,
		Recorder:  recorder,
		Metrics:   collector,
	}, log)

	tracker := monitor.NewTracker(client, client, manager, exitRules(cfg), cfg.MCCheckInterval(), executor.Sell, collector, log)
	listener := stream.NewListener(stream.NewWSSubscriber(cfg.WSURL), cfg.ProgramID, collector, log)
	closers.AddFunc("stream", func() error {
		listener.Stop()
		return nil
	})

	agent := bot.NewAgent(bot.AgentDeps{
		Manager:  manager,
		Executor: executor,
		Tracker:  tracker,
		Source:   listener,
		Wallet:   w,
		Recorder: recorder,
		Metrics:  collector,
	}, log)

	runErr := make(chan error, 1)
	go func() { runErr <- agent.Run(ctx) }()

	code := 0
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-runErr:
		if err != nil {
			log.Error("Event stream failed", zap.Error(err))
			code = 1
		}
	case err := <-agent.Fatal():
		log.Error("Worker panicked, shutting down", zap.Error(err))
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := agent.Shutdown(shutdownCtx); err != nil {
		log.Error("Agent shutdown failed", zap.Error(err))
	}
	return code
}

// startupChecks logs the wallet balance and probes the block engine.
func startupChecks(ctx context.Context, cfg *config.Config, client *solbc.Client, w *wallet.Wallet, log *zap.Logger) error {
	lamports, err := client.GetSOLBalance(ctx, w.PublicKey)
	if err != nil {
		return fmt.Errorf("wallet balance: %w", err)
	}
	balance := decimal.NewFromInt(int64(lamports)).Shift(-9)
	log.Info("💰 Wallet ready",
		zap.String("address", w.PublicKey.String()),
		zap.String("balance_sol", balance.String()))
	if lamports < cfg.BuyAmountLamports {
		log.Warn("Wallet balance is below the configured buy amount")
	}

	probe := jito.NewClient(cfg.JitoBlockEngineURL, cfg.JitoUUID, log)
	tips, err := probe.GetTipAccounts(ctx)
	if err != nil {
		return fmt.Errorf("block engine probe: %w", err)
	}
	if len(tips) == 0 {
		return errors.New("block engine returned no tip accounts")
	}
	log.Info("Block engine reachable", zap.Int("tip_accounts", len(tips)))
	return nil
}

// newRecorder builds the stats recorder with its sinks: CSV and metrics always,
// the database and Telegram when configured.
func newRecorder(cfg *config.Config, collector *metrics.Collector, log *zap.Logger) (*stats.Recorder, error) {
	csvSink, err := stats.NewCSVSink(cfg.TradesCSV, log)
	if err != nil {
		return nil, err
	}
	sinks := []stats.Sink{csvSink, stats.NewMetricsSink(collector)}

	if cfg.DBDriver != "" {
		store, err := sqlstore.NewStorage(cfg.DBDriver, cfg.DBDSN, log)
		if err != nil {
			_ = csvSink.Close()
			return nil, fmt.Errorf("storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			_ = store.Close()
			_ = csvSink.Close()
			return nil, fmt.Errorf("storage migrations: %w", err)
		}
		sinks = append(sinks, storage.NewTradeSink(store))
	}

	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, log)
		if err != nil {
			log.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			sinks = append(sinks, tg)
		}
	}

	return stats.NewRecorder(stats.NewBotStats(time.Now()), cfg.SummaryJSON, log, sinks...), nil
}

func exitRules(cfg *config.Config) monitor.ExitRules {
	return monitor.ExitRules{
		TP1Mult:           decimal.NewFromFloat(cfg.TP1MCMult),
		TP1SellPct:        decimal.NewFromFloat(cfg.TP1SellPct),
		TP2Mult:           decimal.NewFromFloat(cfg.TP2MCMult),
		TP2SellPct:        decimal.NewFromFloat(cfg.TP2SellPct),
		EntrySLPct:        decimal.NewFromFloat(cfg.EntrySLPct),
		MaxMCSLPct:        decimal.NewFromFloat(cfg.MaxMCSLPct),
		StagnationTimeout: cfg.StagnationTimeout(),
	}
}
