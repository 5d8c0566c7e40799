// ====================================
// File: cmd/export/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpfun-sniper/internal/config"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/export"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/logger"
	"github.com/rovshanmuradov/pumpfun-sniper/internal/storage/sqlstore"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional config file")
		format     = flag.String("format", "csv", "csv or json")
		outDir     = flag.String("out", "exports", "output directory")
		mint       = flag.String("mint", "", "only this mint")
		outcome    = flag.String("outcome", "", "success, failed_buy, failed_sell or open")
		since      = flag.Duration("since", 0, "only trades recorded within this window, e.g. 24h")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DBDriver == "" {
		fmt.Fprintln(os.Stderr, "db_driver is not configured, nothing to export")
		os.Exit(1)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.LogLevel
	logCfg.ToFile = false
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	store, err := sqlstore.NewStorage(cfg.DBDriver, cfg.DBDSN, log.Logger)
	if err != nil {
		log.Fatal("Failed to open storage", zap.Error(err))
	}
	defer store.Close()

	options := export.ExportOptions{
		Format:        export.ExportFormat(*format),
		MintFilter:    *mint,
		OutcomeFilter: *outcome,
		OutputDir:     *outDir,
	}
	if *since > 0 {
		options.StartTime = time.Now().Add(-*since)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	path, err := export.NewTradeExporter(store, log.Logger).ExportTrades(ctx, options)
	if err != nil {
		log.Error("Export failed", zap.Error(err))
		os.Exit(1)
	}
	fmt.Println(path)
}
