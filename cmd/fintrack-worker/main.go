package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/storage"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting fintrack-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	// Snapshots are read from the same SQLite file the server writes.
	repo, err := storage.NewSQLiteRepository(cfg.DatabasePath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer repo.Close()

	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(repo, sheetsClient, nil, log.Default(log.ComponentWorker))

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on anything saved while the worker was down.
	if n, err := mirror.MirrorAll(ctx); err != nil {
		logger.Error("Startup mirror incomplete", log.FieldError, err, "written", n)
	} else {
		logger.Info("Startup mirror complete", "written", n)
	}

	go func() {
		if err := amqpClient.ConsumeWithRetry(ctx, mirror.HandleCollectionSaved); err != nil && ctx.Err() == nil {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.MirrorInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := mirror.MirrorAll(ctx); err != nil {
					logger.Error("Periodic mirror failed", log.FieldError, err, "written", n)
				} else if n > 0 {
					logger.Info("Periodic mirror complete", "written", n)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
