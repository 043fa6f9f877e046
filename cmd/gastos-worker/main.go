package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"gastos/internal/amqp"
	"gastos/internal/cli"
	"gastos/internal/config"
	applog "gastos/internal/log"
	"gastos/internal/services"
	gsheet "gastos/internal/sheets/google"
	"gastos/internal/storage"
	"gastos/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("gastos-worker exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, logger, err := cli.Bootstrap(applog.ComponentWorker, (*config.Config).ValidateWorker)
	if err != nil {
		return err
	}
	logger.Info("Starting gastos-worker")

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return fmt.Errorf("open sqlite repository %s: %w", cfg.SQLiteDBPath, err)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.GoogleSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleCredentialsFile(),
	})
	if err != nil {
		return fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, cfg.SyncBatchSize)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Polling below retries whatever is left.
		logger.Error("Startup sync check failed", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("initialize AMQP client: %w", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeMonthSync(gctx, syncWorker.HandleMonthSync)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP_URL not set, relying on periodic sync only")
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
	})
	g.Go(func() error {
		return processor.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
