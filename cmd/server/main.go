package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/qbank-console/internal/config"
	"github.com/stemsi/qbank-console/internal/database"
	"github.com/stemsi/qbank-console/internal/handler"
	"github.com/stemsi/qbank-console/internal/logger"
	"github.com/stemsi/qbank-console/internal/middleware"
	"github.com/stemsi/qbank-console/internal/remote"
	"github.com/stemsi/qbank-console/internal/repository"
	"github.com/stemsi/qbank-console/internal/router"
	"github.com/stemsi/qbank-console/internal/service"
	"github.com/stemsi/qbank-console/internal/validator"
	"github.com/stemsi/qbank-console/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("api_base_url", cfg.APIBaseURL).
		Msg("Starting question bank console")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Remote Question Service ───────────────────────────────────────
	// The caller's token travels in each request context.
	client := remote.NewClient(cfg.APIBaseURL)

	// ─── Initialize Repositories ───────────────────────────────────────
	journalRepo := repository.NewJournalRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(client, log)
	taxonomyService := service.NewTaxonomyService(client, rdb, cfg.TaxonomyCacheTTL, log)
	journalService := service.NewJournalService(rdb, journalRepo, log)
	questionService := service.NewQuestionService(client, cfg.VerifyPayloads, journalService, log)
	compositionService := service.NewCompositionService(rdb, client, cfg.VerifyPayloads, taxonomyService, journalService, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	healthChecks := map[string]handler.Pinger{
		"postgres": handler.PingFunc(pool.Ping),
		"redis":    handler.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}),
	}
	handlers := &router.Handlers{
		Auth:        handler.NewAuthHandler(authService, log),
		Taxonomy:    handler.NewTaxonomyHandler(taxonomyService, log),
		Question:    handler.NewQuestionHandler(questionService, log),
		Syllabus:    handler.NewSyllabusHandler(taxonomyService, log),
		Composition: handler.NewCompositionHandler(compositionService, log),
		Journal:     handler.NewJournalHandler(journalService, log),
		WS:          handler.NewWSHandler(compositionService, log, cfg.AllowedOrigins),
		System:      handler.NewSystemHandler(healthChecks, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	journalWorker := worker.NewJournalWorker(journalRepo, rdb, log)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		journalWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRatePerMinute, time.Minute)
	r := router.SetupRouter(authService, loginLimiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. In-flight batches keep running
	// until they finish or the timeout hits.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the journal worker once its queue is drained.
	workerCancel()
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("Journal worker did not drain in time")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
