package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/plateflow/plateflow-backend/internal/recognition/cache"
	"github.com/plateflow/plateflow-backend/internal/recognition/events"
	"github.com/plateflow/plateflow-backend/internal/recognition/handler"
	"github.com/plateflow/plateflow-backend/internal/recognition/pipeline"
	"github.com/plateflow/plateflow-backend/internal/recognition/quality"
	"github.com/plateflow/plateflow-backend/internal/recognition/ratelimit"
	"github.com/plateflow/plateflow-backend/internal/recognition/recognizer"
	"github.com/plateflow/plateflow-backend/internal/recognition/repository"
	"github.com/plateflow/plateflow-backend/internal/recognition/retry"
	"github.com/plateflow/plateflow-backend/internal/recognition/suppress"
	"github.com/plateflow/plateflow-backend/pkg/config"
	"github.com/plateflow/plateflow-backend/pkg/database"
	"github.com/plateflow/plateflow-backend/pkg/httputil"
	"github.com/plateflow/plateflow-backend/pkg/logger"
	"github.com/plateflow/plateflow-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("recognition-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("recognition-service", cfg.Server.Environment)
	log.Info().Msg("starting Recognition Service")

	// Connect to the audit database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewRecognitionEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Shared pipeline state: both request modes use the same cache,
	// limiter and suppressor instances.
	gate := quality.NewGate(quality.ThresholdsFromConfig(&cfg.Quality))
	resultCache := cache.New(cfg.Cache.TTL, cfg.Cache.MaxEntries)
	limiter := ratelimit.New(cfg.RateLimit.MaxConcurrent, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
	suppressor := suppress.New(cfg.Suppression.Duration, cfg.Suppression.MaxKeys)
	auditRepo := repository.NewAuditRepository(db, log)
	client := recognizer.NewClient(cfg.Recognizer.URL)

	retryCfg := retry.Config{
		MaxRetries:        cfg.Retry.MaxRetries,
		InitialDelay:      cfg.Retry.InitialDelay,
		MaxDelay:          cfg.Retry.MaxDelay,
		BackoffMultiplier: cfg.Retry.BackoffMultiplier,
	}

	deps := pipeline.Deps{
		Gate:       gate,
		Cache:      resultCache,
		Limiter:    limiter,
		Suppressor: suppressor,
		Recognizer: client,
		Logger:     log,
		Events:     publisher,
		Audit:      auditRepo,
	}

	singleShot := pipeline.New(pipeline.Config{
		Mode:             pipeline.ModeSingleShot,
		RecognizeTimeout: cfg.Recognizer.Timeout,
		Retry:            retryCfg,
	}, deps)
	realtime := pipeline.New(pipeline.Config{
		Mode:             pipeline.ModeRealtime,
		RecognizeTimeout: cfg.Recognizer.Timeout,
		Retry:            retryCfg,
	}, deps)

	recognitionHandler := handler.NewHandler(singleShot, realtime, log)

	// Create router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "recognition-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		recognitionHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
