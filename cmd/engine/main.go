// Package main is the entry point for the learning engine service.
//
// The engine tracks per-concept mastery, grades free-form quiz answers
// through an AI judge, runs the stump-the-model challenge game with
// similarity-based anti-cheat, and manages rotating-code attendance
// sessions.
//
// The architecture follows Clean Architecture and DDD:
//   - Domain: pure business logic without external dependencies
//   - Application: use case orchestration (Commands/Queries)
//   - Infrastructure: repositories, AI capability clients, rotation
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/chibi-hub/chibi-engine/config"
	"github.com/chibi-hub/chibi-engine/internal/application"
	"github.com/chibi-hub/chibi-engine/internal/application/command"
	"github.com/chibi-hub/chibi-engine/internal/application/query"
	"github.com/chibi-hub/chibi-engine/internal/domain/mastery"
	"github.com/chibi-hub/chibi-engine/internal/infrastructure/ai"
	"github.com/chibi-hub/chibi-engine/internal/infrastructure/persistence/postgres"
	"github.com/chibi-hub/chibi-engine/internal/infrastructure/persistence/redis"
	"github.com/chibi-hub/chibi-engine/internal/infrastructure/rotation"
	"github.com/chibi-hub/chibi-engine/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	slogger := setupSlog(cfg)
	log := setupLogger(cfg)
	slogger.Info("starting learning engine",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	slogger.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		slogger.Info("closing database connection...")
		dbConn.Close()
	}()

	slogger.Info("running database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slogger.Info("migrations completed")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	studentRepo := postgres.NewStudentRepository(dbConn)
	masteryRepo := mastery.Repository(postgres.NewMasteryRepository(dbConn))
	quizRepo := postgres.NewQuizRepository(dbConn)
	challengeRepo := postgres.NewChallengeRepository(dbConn)
	vectorIndex := postgres.NewVectorIndex(dbConn)
	attendanceRepo := postgres.NewAttendanceRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 5. AI CAPABILITIES
	// ─────────────────────────────────────────────────────────────────────────
	aiConfig := ai.DefaultClientConfig()
	aiConfig.BaseURL = cfg.AI.BaseURL
	aiConfig.APIKey = cfg.AI.APIKey
	aiConfig.JudgeModel = cfg.AI.JudgeModel
	aiConfig.QuizModel = cfg.AI.QuizModel
	aiConfig.EmbeddingModel = cfg.AI.EmbeddingModel
	aiConfig.Timeout = cfg.AI.RequestTimeout
	aiConfig.MaxTokens = cfg.AI.MaxTokens
	aiConfig.JudgeTemperature = cfg.AI.JudgeTemperature
	aiConfig.QuizTemperature = cfg.AI.QuizTemperature

	aiClient, err := ai.NewClient(aiConfig, slogger)
	if err != nil {
		return fmt.Errorf("failed to create AI client: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REDIS (optional)
	// ─────────────────────────────────────────────────────────────────────────
	var embedder ai.Embedder = aiClient
	if !cfg.Redis.Disabled {
		slogger.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			slogger.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer cache.Close()
			masteryRepo = redis.NewMasteryCache(masteryRepo, cache, slogger)
			embedder = redis.NewCachedEmbedder(aiClient, cache, slogger)
			slogger.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	tracker := mastery.NewTracker(masteryRepo, mastery.Config{
		MinAttemptsForMastery: cfg.Mastery.MinAttemptsForMastery,
		QualityThreshold:      cfg.Mastery.QualityThreshold,
		CorrectRatioThreshold: cfg.Mastery.CorrectRatioThreshold,
	})

	evaluateHandler := command.NewEvaluateQuizAnswerHandler(
		studentRepo, quizRepo, tracker, aiClient, ai.NopRetriever{}, log,
	)

	challengeHandler := command.NewSubmitChallengeHandler(
		studentRepo, challengeRepo, vectorIndex,
		aiClient, aiClient, embedder, ai.NopRetriever{},
		command.ChallengeConfig{
			SimilarityThreshold: cfg.Challenge.SimilarityThreshold,
			WinTarget:           cfg.Challenge.WinTarget,
			RetrievalK:          cfg.Challenge.RetrievalK,
		},
		log,
	)

	rotatorFactory := func(interval time.Duration, tick func()) (command.CodeRotator, error) {
		return rotation.New(interval, tick, slogger)
	}
	sessionManager := command.NewSessionManager(
		studentRepo, attendanceRepo, rotatorFactory,
		command.SessionConfig{
			RotationInterval: cfg.Attendance.RotationInterval,
			CodeLength:       cfg.Attendance.CodeLength,
			OnTimeWindow:     cfg.Attendance.OnTimeWindow,
		},
		log,
	)

	overrideHandler := command.NewAttendanceOverrideHandler(studentRepo, attendanceRepo, log)
	masteryQuery := query.NewGetMasteryStatusHandler(studentRepo, tracker)
	progressQuery := query.NewGetChallengeProgressHandler(studentRepo, challengeRepo, cfg.Challenge.WinTarget)
	exportQuery := query.NewExportAttendanceHandler(attendanceRepo)
	exportProgressQuery := query.NewExportProgressHandler(studentRepo, challengeRepo)

	// The transport that drives the engine (bot, HTTP) is deployed
	// separately and imports this module.
	engine := application.New(
		evaluateHandler, challengeHandler, sessionManager, overrideHandler,
		masteryQuery, progressQuery, exportQuery, exportProgressQuery,
	)

	slogger.Info("learning engine ready")

	// ─────────────────────────────────────────────────────────────────────────
	// 8. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slogger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		slogger.Info("context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	// An open session holds submissions only in memory; flush it before exit.
	if engine.HasOpenSession() {
		slogger.Info("closing open attendance session...")
		if result, err := engine.CloseAttendanceSession(shutdownCtx); err != nil {
			slogger.Error("failed to close attendance session", "error", err)
		} else {
			slogger.Info("attendance session flushed", "records", len(result.Records))
		}
	}

	slogger.Info("learning engine stopped")
	return nil
}

// setupSlog builds the structured logger used by infrastructure components.
func setupSlog(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}

// setupLogger builds the application-layer logger.
func setupLogger(cfg *config.Config) *logger.Logger {
	opts := logger.DefaultOptions()
	opts.Level = logger.ParseLevel(cfg.Observability.LogLevel)
	return logger.New(opts)
}
