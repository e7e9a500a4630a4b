package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/config"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/database"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/handlers"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/llm"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/logging"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/middleware"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/repositories"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/retry"
	"github.com/CoderDiggy/Portnet-L2-Automator-V3/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load("config.yaml", Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.URL())),
		zap.Bool("ai_configured", cfg.AI.IsConfigured()),
		zap.Bool("cache_enabled", cfg.Redis.Host != ""))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*database.DB, error) {
		return database.NewConnection(ctx, &database.Config{
			URL:            cfg.Database.URL(),
			MaxConnections: cfg.Database.MaxConnections,
		})
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database.URL(), cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	// Repositories
	knowledgeRepo := repositories.NewKnowledgeRepository(db)
	trainingRepo := repositories.NewTrainingRepository(db)
	feedbackRepo := repositories.NewFeedbackRepository(db)
	rcaRepo := repositories.NewRCARepository(db)
	syslogRepo := repositories.NewSyslogRepository(db)
	operationalRepo := repositories.NewOperationalRepository(db)

	// Inference: nil client means the deterministic fallback carries
	// every request.
	var aiClient llm.Client
	if cfg.AI.IsConfigured() {
		aiClient, err = llm.NewClient(cfg.AI.Provider, &llm.ClientConfig{
			Endpoint: cfg.AI.Endpoint,
			Model:    cfg.AI.Model,
			APIKey:   cfg.AI.APIKey,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create inference client", zap.Error(err))
		}
	} else {
		logger.Warn("Inference endpoint not configured, using rule-based fallback")
	}
	aiService := llm.NewService(aiClient, time.Duration(cfg.AI.TimeoutSeconds)*time.Second, logger)

	fingerprinter := services.NewFingerprinter()
	if cfg.FingerprintRulesPath != "" {
		fingerprinter, err = services.NewFingerprinterFromFile(cfg.FingerprintRulesPath)
		if err != nil {
			logger.Fatal("Failed to load fingerprint rules",
				zap.String("path", cfg.FingerprintRulesPath),
				zap.Error(err))
		}
	}

	// Services
	knowledgeService := services.NewKnowledgeService(knowledgeRepo, cfg.Scoring, logger)
	trainingService := services.NewTrainingService(trainingRepo, cfg.Scoring, logger)
	feedbackService := services.NewFeedbackService(feedbackRepo, knowledgeRepo, trainingRepo, logger)
	solutionService := services.NewSolutionService(fingerprinter, knowledgeService, trainingService, feedbackRepo, cfg.Scoring, logger)
	operationalService := services.NewOperationalService(operationalRepo, cfg.Triage, cfg.Scoring, logger)
	logService := services.NewLogService(syslogRepo, logger)
	escalationService := services.NewEscalationService(logger)
	solutionCache := services.NewSolutionCache(redisClient, time.Duration(cfg.Triage.CacheTTLMinutes)*time.Minute, logger)
	incidentService := services.NewIncidentService(aiService, fingerprinter, knowledgeService, trainingService,
		solutionService, feedbackService, escalationService, solutionCache, cfg.Triage, logger)
	rcaService := services.NewRCAService(rcaRepo, trainingService, solutionService, operationalService,
		logService, cfg.Triage, cfg.Scoring, logger)

	// Handlers
	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, db, logger).RegisterRoutes(mux)
	handlers.NewIncidentHandler(incidentService, escalationService, logger).RegisterRoutes(mux)
	handlers.NewKnowledgeHandler(knowledgeService, logger).RegisterRoutes(mux)
	handlers.NewTrainingHandler(trainingService, logger).RegisterRoutes(mux)
	handlers.NewFeedbackHandler(feedbackService, logger).RegisterRoutes(mux)
	handlers.NewRCAHandler(rcaService, logService, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting portnet-l2-automator",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
