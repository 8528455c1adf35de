package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"carbi-scraper/config"
	"carbi-scraper/scraper/dealer"
	"carbi-scraper/services"
	"carbi-scraper/storage"
	"carbi-scraper/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ================== Bootstrap ====================
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	logger.Info("Dealer Inventory Scraper")

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		return 1
	}
	logger.Info("Headless: %v | Nav timeout: %v | Retries: %d | Dealer delay: %v",
		cfg.Headless, cfg.NavTimeout, cfg.NavRetries, cfg.DealerDelay)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	// =================== PostgreSQL Setup ========================================
	pg, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("Cannot connect to PostgreSQL: %v", err)
		return 1
	}
	defer pg.Close()

	if cfg.EnsureSchema {
		if err := pg.EnsureSchema(ctx); err != nil {
			logger.Error("Failed to create DB tables: %v", err)
			return 1
		}
	}

	var store storage.Store = pg
	if cfg.DryRun {
		logger.Warn("DRY_RUN enabled: inventory and review writes are logged, not applied")
		store = storage.NewDryRunStore(pg, logger)
	}

	// =============== Scraping ===================================
	runner := services.NewRunner(
		store,
		dealer.NewBrowserFetcher(cfg, logger),
		dealer.NewExtractor(logger),
		utils.NewRateLimiter(cfg.DealerDelay),
		logger,
	)
	report, err := runner.Run(ctx)
	if err != nil {
		logger.Error("Failed to load configuration from the database: %v", err)
		return 1
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		logger.Warn("Run timeout of %v reached, remaining dealers skipped", cfg.RunTimeout)
	}

	// ========= CSV: store raw data ===========================
	if cfg.RawCSVPath != "" {
		csvWriter := storage.NewCSVWriter(cfg.RawCSVPath, logger)
		if err := csvWriter.WriteRawListings(report.Raw); err != nil {
			// Non-fatal: inventory is already reconciled
			logger.Error("Failed to write CSV: %v", err)
		}
	}

	// ==== Insights ============================
	sum := services.NewInsightService(logger).Summarize(report)
	services.PrintRunReport(os.Stdout, report, sum)

	if cfg.RawCSVPath != "" {
		fmt.Println(" Done! Raw listings →", cfg.RawCSVPath)
	}
	return 0
}
