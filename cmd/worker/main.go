package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"product-importer/internal/config"
	"product-importer/internal/database"
	"product-importer/internal/event"
	"product-importer/internal/importer"
	"product-importer/internal/logger"
	"product-importer/internal/queue"
	"product-importer/internal/repository"
	"product-importer/internal/webhook"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting product importer worker",
		zap.String("env", cfg.Server.Env),
		zap.Int("import_workers", cfg.Worker.ImportWorkers),
		zap.Int("delivery_workers", cfg.Webhook.DeliveryWorkers),
	)

	// Initialize database
	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	// The API runs migrations; the worker only verifies connectivity.
	health := dbService.Health(context.Background())
	log.Info("Database health check", zap.Any("health", health))

	// Connect to Redis for task consumption
	q := queue.New(cfg.Redis)
	if err := q.Ping(context.Background()); err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer q.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(dbService.DB())
	importJobRepo := repository.NewImportJobRepository(dbService.DB())
	webhookRepo := repository.NewWebhookRepository(dbService.DB())

	// Import runs publish product and lifecycle events back through the
	// same delivery queue the API uses.
	publisher := event.NewPublisher(webhookRepo, q, log)

	imp := importer.New(
		importJobRepo, productRepo, publisher, log,
		cfg.Import.BatchSize, cfg.Import.MaxFileSizeBytes,
	)
	importWorker := importer.NewWorker(q, imp, cfg.Worker.ImportWorkers, log)

	deliverer := webhook.NewDeliverer(
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
		cfg.Webhook.MaxAttempts,
		time.Duration(cfg.Webhook.BackoffBaseMS)*time.Millisecond,
		log,
	)
	deliveryWorker := webhook.NewWorker(q, deliverer, cfg.Webhook.DeliveryWorkers, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		importWorker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		deliveryWorker.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("Shutting down gracefully, waiting for in-flight work")

	wg.Wait()
	log.Info("Worker exiting")
}
