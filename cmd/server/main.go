package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"alphabettutor/internal/audio"
	"alphabettutor/internal/config"
	"alphabettutor/internal/curriculum"
	"alphabettutor/internal/database"
	"alphabettutor/internal/handlers"
	"alphabettutor/internal/logging"
	"alphabettutor/internal/metrics"
	"alphabettutor/internal/repository"
	"alphabettutor/internal/security"
	"alphabettutor/internal/service"
	"alphabettutor/internal/store"
	"alphabettutor/internal/tutor"
	"alphabettutor/migrations"
)

const reapInterval = time.Minute

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	status := handlers.NewStartupStatus(
		handlers.StepDatabase,
		handlers.StepMigrations,
		handlers.StepSafety,
		handlers.StepSessions,
		handlers.StepServices,
	)

	// Serve /healthz while the rest starts up; API routes are added once ready
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", status.Healthz)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handlers.Logging(logger, mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown failed", zap.Error(err))
		}
	}()

	// Initialize database with config (supports sqlite, postgres, mysql)
	status.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))
	status.CompleteStep(handlers.StepDatabase)

	status.SetCurrentStep(handlers.StepMigrations)
	if err := runMigrations(ctx, db, cfg.MigrationsPath, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("migrations completed")
	status.CompleteStep(handlers.StepMigrations)

	status.SetCurrentStep(handlers.StepSafety)
	safety, err := loadSafetyFilter(ctx, db, cfg.BlocklistURL, logger)
	if err != nil {
		return err
	}
	status.CompleteStep(handlers.StepSafety)

	status.SetCurrentStep(handlers.StepSessions)
	sessions, closeStore, err := newSessionStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	status.CompleteStep(handlers.StepSessions)

	status.SetCurrentStep(handlers.StepServices)
	lessons, err := curriculum.Load()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var tutorMetrics *metrics.TutorMetrics
	if cfg.MetricsEnabled {
		tutorMetrics = metrics.NewTutorMetrics(registry)
	}

	responder, err := newResponder(ctx, cfg, lessons, logger)
	if err != nil {
		return err
	}

	reports, err := service.NewReportService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize report service: %w", err)
	}

	tokens, err := security.NewTokenIssuer(tokenSecret(cfg, logger), cfg.SessionTTL)
	if err != nil {
		return err
	}

	// Initialize services
	tutorService := service.NewTutorService(service.Options{
		Responder:   responder,
		Safety:      safety,
		Store:       sessions,
		Profiles:    repository.NewProfileRepository(db),
		Progress:    repository.NewProgressRepository(db),
		Reports:     reports,
		Metrics:     tutorMetrics,
		Logger:      logger,
		MaxTurns:    cfg.MaxTurns,
		IdleTimeout: cfg.SessionIdleTimeout,
	})

	limiter := security.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	// Setup routes
	middleware := handlers.NewMiddleware(tokens, limiter, logger)
	handlers.NewTutorHandler(tutorService, tokens, logger).Register(mux, middleware)
	handlers.NewCurriculumHandler(lessons, audio.NewTTSService(cfg.AudioDir), logger).Register(mux, middleware)
	if cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	status.CompleteStep(handlers.StepServices)

	// Start background idle session eviction
	go tutorService.ReapIdle(ctx, reapInterval)

	status.MarkReady()
	logger.Info("server ready")

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("server shutting down")
		return nil
	}
}

// runMigrations applies the embedded schema unless a directory override is configured
func runMigrations(ctx context.Context, db *database.DB, dir string, logger *zap.Logger) error {
	if dir != "" {
		return db.RunMigrationsFromDir(ctx, dir, logger)
	}
	return db.RunMigrations(ctx, migrations.FS, logger)
}

func loadSafetyFilter(ctx context.Context, db *database.DB, blocklistURL string, logger *zap.Logger) (*tutor.SafetyFilter, error) {
	// Seed blocked words filter
	if err := db.SeedBlockedWords(ctx, blocklistURL, &http.Client{Timeout: 30 * time.Second}, logger); err != nil {
		logger.Warn("failed to seed blocked words", zap.Error(err))
	}
	words, err := db.LoadBlockedWords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked words: %w", err)
	}
	filter := tutor.NewSafetyFilter(words)
	logger.Info("safety filter loaded", zap.Int("words", filter.WordCount()))
	return filter, nil
}

// newSessionStore uses Redis when configured and an in-process store otherwise
func newSessionStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.SessionStore, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory session store")
		return store.NewMemorySessionStore(cfg.SessionTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	return store.NewRedisSessionStore(client, cfg.SessionTTL), func() { _ = client.Close() }, nil
}

// newResponder prefers Gemini with the rule-based tutor as fallback
func newResponder(ctx context.Context, cfg *config.Config, lessons *curriculum.Curriculum, logger *zap.Logger) (tutor.Responder, error) {
	rules := tutor.NewRuleResponder(lessons)
	if cfg.GeminiAPIKey == "" {
		logger.Info("using rule-based responder")
		return rules, nil
	}
	gemini, err := tutor.NewGeminiResponder(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, lessons)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gemini: %w", err)
	}
	logger.Info("using gemini responder", zap.String("model", cfg.GeminiModel))
	return tutor.NewFallbackResponder(gemini, rules, logger), nil
}

// tokenSecret returns the configured secret, or a random one that invalidates
// every token on restart
func tokenSecret(cfg *config.Config, logger *zap.Logger) string {
	if cfg.TokenSecret != "" {
		return cfg.TokenSecret
	}
	logger.Warn("TOKEN_SECRET not set; session tokens will not survive a restart")
	return security.GenerateSessionID() + security.GenerateSessionID()
}
