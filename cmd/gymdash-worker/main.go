package main

import (
	"context"
	"errors"
	"os"
	"time"

	"gymdash/internal/amqp"
	"gymdash/internal/cli"
	"gymdash/internal/ledger/google"
	applog "gymdash/internal/log"
	"gymdash/internal/services"
	"gymdash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting gymdash-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	// The worker shares the dashboard's SQLite database.
	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		exporter  worker.Exporter
		processor *services.LedgerProcessor
	)
	if cfg.LedgerEnabled() {
		sheets, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.LedgerSpreadsheetID,
			SheetName:       cfg.LedgerSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
			Location:        cfg.Location(),
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets ledger", applog.FieldError, err)
			os.Exit(1)
		}
		processor = services.NewLedgerProcessor(repo, sheets, services.LedgerProcessorConfig{
			PollInterval: cfg.LedgerSyncInterval,
			BatchSize:    cfg.LedgerBatchSize,
		}, logger)

		// Catch up on confirmations that happened while the worker was down
		if n := processor.Backfill(ctx); n > 0 {
			logger.Info("Startup backfill exported payments", applog.FieldCount, n)
		}
		if err := processor.Start(ctx); err != nil {
			logger.Error("Failed to start ledger processor", applog.FieldError, err)
			os.Exit(1)
		}
		exporter = processor
	} else {
		logger.Info("Ledger disabled - no LEDGER_SPREADSHEET_ID provided")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	handler := worker.NewPaymentWorker(exporter, repo, logger)
	go func() {
		if err := client.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
		}
		cancel()
	}()

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		cancel()
		if processor != nil {
			if err := processor.Stop(ctx); err != nil {
				logger.Error("Ledger processor stop error", applog.FieldError, err)
			}
		}
	})

	select {
	case <-shutdownCtx.Done():
		<-done
	case <-ctx.Done():
		logger.Warn("Consumer stopped, exiting")
		if processor != nil {
			stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			_ = processor.Stop(stopCtx)
			stop()
		}
	}
	logger.Info("Worker stopped")
}
