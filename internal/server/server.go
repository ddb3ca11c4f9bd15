package server

import (
	"fmt"
	"net/http"
	"time"

	"product-importer/internal/config"
	"product-importer/internal/database"
	"product-importer/internal/event"
	custommiddleware "product-importer/internal/middleware"
	"product-importer/internal/queue"
	"product-importer/internal/repository"
	"product-importer/internal/service"
	"product-importer/internal/transport"
	"product-importer/internal/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     *database.Service
	queue  *queue.Queue
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *database.Service, q *queue.Queue) *Server {
	// Create router
	router := chi.NewRouter()

	// Add basic middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.RateLimitMiddleware(q.Client(), custommiddleware.RateLimitConfig{
		RequestsPerWindow: 300,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health(r.Context())
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		if err := q.Ping(r.Context()); err != nil {
			health["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			health["redis"] = "up"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"status":%q,"database":%q,"redis":%q}`,
			health["status"], health["message"], health["redis"])
	})

	// Initialize repositories
	productRepo := repository.NewProductRepository(db.DB())
	importJobRepo := repository.NewImportJobRepository(db.DB())
	webhookRepo := repository.NewWebhookRepository(db.DB())

	// Event publisher fans out to subscriptions via the delivery queue
	publisher := event.NewPublisher(webhookRepo, q, logger)

	deliverer := webhook.NewDeliverer(
		time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second,
		cfg.Webhook.MaxAttempts,
		time.Duration(cfg.Webhook.BackoffBaseMS)*time.Millisecond,
		logger,
	)

	// Initialize services
	productService := service.NewProductService(productRepo, publisher)
	importService := service.NewImportService(
		importJobRepo, q, publisher, logger,
		cfg.Import.UploadDir, cfg.Import.MaxFileSizeBytes,
	)
	webhookService := service.NewWebhookService(webhookRepo, deliverer)

	// Initialize handlers
	productHandler := transport.NewProductHandler(productService, logger)
	importHandler := transport.NewImportHandler(importService, cfg.Import.MaxFileSizeBytes, logger)
	webhookHandler := transport.NewWebhookHandler(webhookService, logger)

	// Register routes
	productHandler.RegisterRoutes(router)
	importHandler.RegisterRoutes(router)
	webhookHandler.RegisterRoutes(router)

	server := &Server{
		Server: &http.Server{
			Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
			Handler: router,
			// Large CSV uploads rule out tight request timeouts
			IdleTimeout:       time.Minute,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      10 * time.Minute,
		},
		config: cfg,
		logger: logger,
		db:     db,
		queue:  q,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}
	if s.queue != nil {
		if err := s.queue.Close(); err != nil {
			s.logger.Error("Failed to close Redis connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
