package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tally/internal/amqp"
	"tally/internal/backend"
	"tally/internal/cache"
	"tally/internal/config"
	"tally/internal/export"
	"tally/internal/log"
	"tally/internal/services"
	"tally/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting tally-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err)
			}
		}()
	}

	// Sheets export is optional: without a spreadsheet the worker still
	// recomputes summaries, it just has nowhere to write them.
	var exporter worker.ReportExporter
	if cfg.GoogleSpreadsheetID != "" {
		sheetsExporter, err := export.NewSheetsExporter(context.Background(), cfg.GoogleSpreadsheetID, cfg.ReportSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Sheets exporter", log.FieldError, err)
			os.Exit(1)
		}
		exporter = sheetsExporter
		logger.Info("Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Sheets export disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	summaryCache := cache.NewLRUCache[services.MonthSummaries](cfg.SummaryCacheSize, cfg.SummaryCacheTTL)
	summaries := services.NewSummaryService(result.Backend, summaryCache, logger)
	reportWorker := worker.NewReportWorker(summaries, exporter, cfg.ExportInterval, logger)

	go func() {
		err := amqpClient.ConsumeLedgerChanges(ctx, func(msg *amqp.LedgerChangeMessage) error {
			return reportWorker.HandleChangeMessage(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			cancel()
		}
	}()

	go func() {
		if err := reportWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Report worker stopped", log.FieldError, err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	// Give in-flight handlers a moment to finish.
	time.Sleep(2 * time.Second)
	logger.Info("Worker shutdown complete")
}
