package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	database "github.com/Quekzhengseng/ggdotcom/app/db"
	appLogger "github.com/Quekzhengseng/ggdotcom/app/logger"
	"github.com/Quekzhengseng/ggdotcom/app/observability/metrics"
	"github.com/Quekzhengseng/ggdotcom/app/tracer"
	"github.com/Quekzhengseng/ggdotcom/config"
	generativeAI "github.com/Quekzhengseng/ggdotcom/internal/api/generative_ai"
	"github.com/Quekzhengseng/ggdotcom/internal/api/places"
	"github.com/Quekzhengseng/ggdotcom/internal/api/rag"
	"github.com/Quekzhengseng/ggdotcom/internal/api/tour"
	"github.com/Quekzhengseng/ggdotcom/internal/router"
)

func main() {
	// --- Initial Loading ---
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	// --- Logger Setup ---
	logger := setupLogger()
	slog.SetDefault(logger)

	// --- Application Context & Shutdown ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Tracing & Metrics Setup ---
	traceProvider := tracer.InitTracing()

	promExporter, err := prometheus.New()
	if err != nil {
		logger.Error("Failed to create Prometheus exporter", slog.Any("error", err))
		os.Exit(1)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter))
	otel.SetMeterProvider(meterProvider)
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations *before* initializing the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Dependency Injection ---
	aiClient, err := generativeAI.NewAIClient(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Gemini.Model, logger)
	if err != nil {
		logger.Error("Failed to create AI client", slog.Any("error", err))
		os.Exit(1)
	}
	embedder, err := generativeAI.NewEmbeddingService(ctx, os.Getenv("GEMINI_API_KEY"), cfg.Gemini.EmbeddingModel, logger)
	if err != nil {
		logger.Error("Failed to create embedding service", slog.Any("error", err))
		os.Exit(1)
	}

	placesService, err := places.NewServiceImpl(
		os.Getenv("GOOGLE_MAPS_API_KEY"),
		cfg.GoogleMaps.BaseURL,
		cfg.GoogleMaps.PlaceTypes,
		nil,
		logger,
	)
	if err != nil {
		logger.Error("Failed to create places service", slog.Any("error", err))
		os.Exit(1)
	}

	var collectionClients []rag.CollectionClient
	for _, collection := range cfg.Retrieval.PGCollections {
		collectionClients = append(collectionClients,
			rag.NewPGVectorClient(pool, embedder, collection, collection, logger))
	}
	if cfg.Retrieval.RemoteRAGURL != "" {
		collectionClients = append(collectionClients,
			rag.NewRemoteClient(cfg.Retrieval.RemoteRAGURL, "remote", nil, logger))
	}
	retriever := rag.NewRetriever(collectionClients, cfg.Retrieval.PerCollectionLimit, cfg.Retrieval.QueryTimeout, logger)

	historyRepo := tour.NewRepositoryImpl(pool, logger)
	tourService := tour.NewServiceImpl(placesService, retriever, aiClient, historyRepo, logger)
	tourHandler := tour.NewHandler(tourService, logger)

	// --- Router Setup ---
	mainRouter := router.SetupRouter(&router.Config{
		TourHandler: tourHandler,
	})

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(appLogger.StructuredLogger(logger))
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.StripSlashes)
	mux.Use(middleware.Timeout(cfg.Server.Timeout))
	mux.Use(middleware.Compress(5, "application/json"))
	mux.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := cfg.Server.HTTPPort
	if serverAddress == "" {
		serverAddress = ":8000"
	}
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	// --- Start Server Goroutine ---
	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()

	// --- Graceful Shutdown ---
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Meter provider shutdown failed", slog.Any("error", err))
	}
	if err := tracer.Shutdown(shutdownCtx, traceProvider); err != nil {
		logger.Warn("Tracer provider shutdown failed", slog.Any("error", err))
	}

	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" { // Default to development if not set
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
