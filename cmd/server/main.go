package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/celts/celts-backend/internal/config"
	"github.com/celts/celts-backend/internal/database"
	"github.com/celts/celts-backend/internal/handler"
	"github.com/celts/celts-backend/internal/logger"
	"github.com/celts/celts-backend/internal/repository"
	"github.com/celts/celts-backend/internal/router"
	"github.com/celts/celts-backend/internal/service"
	"github.com/celts/celts-backend/internal/validator"
	"github.com/celts/celts-backend/internal/worker"
	"github.com/rs/zerolog"
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
		Msg("Starting CELTS Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	studentRepo := repository.NewStudentRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	testRepo := repository.NewTestRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewTestAttemptRepository(pool)
	sessionRepo := repository.NewDeviceSessionRepository(pool)
	securityRepo := repository.NewExamSecurityRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	statsRepo := repository.NewStudentStatsRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	studentService := service.NewStudentService(studentRepo, authService)
	staffService := service.NewStaffService(staffRepo, authService)
	testService := service.NewTestService(testRepo, questionRepo, rdb, log)
	sessionService := service.NewDeviceSessionService(cfg, sessionRepo, attemptRepo, securityRepo)
	timerService := service.NewTimerService(attemptRepo, rdb, log)
	attemptService := service.NewAttemptService(
		attemptRepo, securityRepo, submissionRepo, testRepo,
		sessionService, timerService, rdb, log,
	)
	securityService := service.NewSecurityService(securityRepo, attemptService, rdb, log)
	gradingService := service.NewGradingService(submissionRepo, testService, rdb, log)
	statsService := service.NewStatsService(statsRepo, log)
	monitorService := service.NewMonitorService(monitorRepo)
	mediaService := service.NewMediaService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:          handler.NewAuthHandler(authService, studentService, staffService),
		StudentPortal: handler.NewStudentPortalHandler(testService, attemptService, statsService),
		Security:      handler.NewSecurityHandler(sessionService, attemptService, securityService),
		Test:          handler.NewTestHandler(testService),
		Grading:       handler.NewGradingHandler(gradingService),
		Monitor:       handler.NewMonitorHandler(rdb, testService, monitorService, log),
		Media:         handler.NewMediaHandler(mediaService),
		Admin:         handler.NewAdminHandler(studentService, staffService, authService, sessionService, attemptService),
		WS:            handler.NewWSHandler(attemptService, securityService, sessionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	violationWorker := worker.NewViolationLogWorker(pool, rdb, log)
	gradingWorker := worker.NewGradingWorker(gradingService, rdb, log)
	statsWorker := worker.NewStatsWorker(statsService, rdb, log)
	draftWorker := worker.NewDraftWorker(submissionRepo, rdb, log)

	go violationWorker.Start(workerCtx)
	go gradingWorker.Start(workerCtx)
	go statsWorker.Start(workerCtx)
	go draftWorker.Start(workerCtx)

	// ─── Recover In-Flight Attempts ───────────────────────────────────
	// Re-arm countdown timers for attempts that were running when the
	// process last stopped; attempts whose deadline passed while the
	// server was down are finished immediately.
	if err := timerService.Recover(ctx); err != nil {
		log.Warn().Err(err).Msg("Timer recovery failed")
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load all published tests into Redis BEFORE accepting traffic.
	// This avoids race conditions from lazy loading under thundering herd.
	if err := testService.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
