package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/invoice-adjust-backend/internal/application/service"
	"github.com/ledgerline/invoice-adjust-backend/internal/cli"
	"github.com/ledgerline/invoice-adjust-backend/internal/domain/tax"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/config"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/logging"
	"github.com/ledgerline/invoice-adjust-backend/internal/infrastructure/storage"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config", "config.yaml", "Configuration file path")

	flags := cli.ParseAdjustFlags()

	if flags.InvoiceID == "" {
		fmt.Fprintln(os.Stderr, "error: -invoice is required")
		flag.Usage()
		os.Exit(2)
	}
	if flags.Target <= 0 {
		fmt.Fprintln(os.Stderr, "error: -target must be a positive amount")
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadOrEnvWithPath(configFile)

	loggingCfg := cfg.Observability.Logging
	if flags.Verbose {
		loggingCfg.Level = "debug"
	}
	logger := logging.NewLoggerWithSystem(loggingCfg, "adjust")

	// Fall back to configured defaults for rate and mode
	rateStr := flags.Rate
	if rateStr == "" {
		rateStr = cfg.Defaults.TaxRate
	}
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid tax rate %q\n", rateStr)
		os.Exit(2)
	}

	modeStr := flags.Mode
	if modeStr == "" {
		modeStr = cfg.Defaults.RoundMode
	}
	mode, err := tax.ParseRoundMode(modeStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	registry, err := cli.BuildRegistry(cfg, logger)
	if err != nil {
		logger.Error("failed to build provider registry", "error", err)
		os.Exit(1)
	}

	adjustService := service.NewAdjustmentService(registry, store, logger, cfg.Billing.DefaultProvider)

	providerName := flags.Provider
	if providerName == "" {
		providerName = cfg.Billing.DefaultProvider
	}
	cli.PrintHeader(providerName, flags.DryRun)
	cli.PrintRequest(flags.InvoiceID, flags.Target, rateStr, string(mode))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := adjustService.Apply(ctx, service.ApplyRequest{
		Provider:    flags.Provider,
		InvoiceID:   flags.InvoiceID,
		TargetTotal: flags.Target,
		TaxRate:     rate,
		RoundMode:   mode,
		DryRun:      flags.DryRun,
	})
	if err != nil {
		if errors.Is(err, service.ErrTargetUnreachable) {
			fmt.Fprintf(os.Stderr, "\n%v\n", err)
			os.Exit(1)
		}
		logger.Error("adjustment failed", "invoice_id", flags.InvoiceID, "error", err)
		os.Exit(1)
	}

	cli.PrintApplySummary(result)
}
