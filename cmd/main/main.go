package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"stock-monitor-service/internal/config"
	"stock-monitor-service/internal/engine"
	"stock-monitor-service/internal/events"
	"stock-monitor-service/internal/generator"
	"stock-monitor-service/internal/handlers"
	"stock-monitor-service/internal/jobs"
	"stock-monitor-service/internal/middleware"
	"stock-monitor-service/internal/processor"
	"stock-monitor-service/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logrus logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Stores: one instance each, owned here and injected everywhere
	ledger := store.NewLedger(logger)
	history := store.NewHistory()
	registry := store.NewAlertRegistry()

	// Outbound notification port
	notifier := events.NewNotifier(logger)

	// Optional NATS bridge (graceful degradation if NATS unavailable)
	if cfg.NATSURL != "" {
		publisher, err := events.NewStockEventPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("Warning: Failed to initialize NATS event publisher: %v", err)
			log.Println("Continuing without event publishing...")
		} else {
			log.Println("✓ Connected to NATS JetStream for event publishing")
			publisher.Attach(notifier)
			defer publisher.Close()
		}
	} else {
		log.Println("NATS_URL not configured, event publishing disabled")
	}

	// Engines
	recs := engine.NewRecommendationEngine(ledger, history, registry, cfg.RecommendationTTL, engine.SystemClock{}, logger)
	alertEngine := engine.NewAlertEngine(history, registry, recs, logger)
	forecaster := engine.NewForecaster(cfg.ForecastWindowDays)

	// Event pipeline
	proc := processor.New(ledger, history, alertEngine, notifier, logger)
	dispatcher := processor.NewDispatcher(proc, cfg.WorkerCount, cfg.QueueHighWatermark, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx)

	// Background recommendation refresh
	refreshJob := jobs.NewRefreshJob(recs, cfg.RefreshInterval, logger)
	go refreshJob.Start(ctx)

	// Optional synthetic traffic
	var gen *generator.Generator
	if cfg.GeneratorEnabled {
		gen = generator.New(ledger, dispatcher, cfg.GeneratorInterval, logger)
		go gen.Start(ctx)
	}

	// Initialize handlers
	stockHandler := handlers.NewStockHandler(cfg, ledger, history, registry, forecaster, recs, dispatcher, notifier)
	importHandler := handlers.NewImportHandler(ledger)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS())

	// Health check endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", stockHandler.ExtendedHealthCheck)

	api := router.Group("/api/v1")

	// Event ingestion
	eventsGroup := api.Group("/events")
	{
		eventsGroup.POST("", stockHandler.IngestEvent)
		eventsGroup.POST("/batch", stockHandler.IngestEventBatch)
	}

	// Product routes
	products := api.Group("/products")
	{
		products.POST("", stockHandler.CreateProduct)
		products.GET("", stockHandler.ListProducts)
		products.GET("/low-stock", stockHandler.ListLowStock)
		products.GET("/critical", stockHandler.ListCriticalStock)
		products.GET("/import/template", importHandler.GetProductImportTemplate)
		products.POST("/import", importHandler.ImportProducts)
		products.GET("/:id", stockHandler.GetProduct)
		products.GET("/:id/history", stockHandler.GetProductHistory)
	}

	// Alert routes
	alerts := api.Group("/alerts")
	{
		alerts.GET("", stockHandler.ListAlerts)
		alerts.GET("/summary", stockHandler.GetAlertSummary)
		alerts.GET("/:id", stockHandler.GetAlert)
		alerts.POST("/:id/resolve", stockHandler.ResolveAlert)
	}

	// Forecast & recommendation routes
	api.GET("/forecasts", stockHandler.GetForecasts)
	api.GET("/recommendations", stockHandler.GetRecommendations)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Stock monitor service starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	log.Println("Shutting down stock-monitor-service...")

	// Stop accepting events, then drain in-flight work
	dispatcher.CloseIntake()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	if dispatcher.Drain(drainCtx) {
		log.Println("✓ Event pipeline drained")
	} else {
		log.Println("Warning: shutdown timeout reached before pipeline drained")
	}
	drainCancel()

	refreshJob.Stop()
	if gen != nil {
		gen.Stop()
	}
	cancel()
	dispatcher.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	log.Println("Stock monitor service stopped")
}
