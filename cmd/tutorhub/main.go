package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tutorhub/tutorhub/internal/agents"
	"github.com/tutorhub/tutorhub/internal/app"
	"github.com/tutorhub/tutorhub/internal/authz"
	"github.com/tutorhub/tutorhub/internal/courses"
	"github.com/tutorhub/tutorhub/internal/modules"
	"github.com/tutorhub/tutorhub/internal/observability"
	"github.com/tutorhub/tutorhub/internal/platform/cache"
	"github.com/tutorhub/tutorhub/internal/platform/db"
	"github.com/tutorhub/tutorhub/internal/principal"
	"github.com/tutorhub/tutorhub/internal/shared"
	"github.com/tutorhub/tutorhub/internal/tokens"
	"github.com/tutorhub/tutorhub/internal/universities"
	"github.com/tutorhub/tutorhub/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditRecorder := shared.NewAuditRecorder(dbpool)

	assignmentRepo := authz.NewAssignmentRepository(dbpool)
	assignmentCache := authz.NewCachedAssignments(redisClient, assignmentRepo, cfg.AssignmentTTL, logger)
	ownership := authz.NewPGOwnership(dbpool)
	scoper := authz.NewScoper(assignmentCache, ownership, logger)

	universitiesRepo := universities.NewRepository(dbpool)
	universitiesService := universities.NewService(universitiesRepo, scoper)
	universitiesHandler := universities.NewHandler(logger, universitiesService)

	coursesRepo := courses.NewRepository(dbpool)
	coursesService := courses.NewService(coursesRepo, scoper, assignmentCache, auditRecorder, logger)
	coursesHandler := courses.NewHandler(logger, coursesService)

	modulesRepo := modules.NewRepository(dbpool)
	modulesService := modules.NewService(modulesRepo, scoper)
	modulesHandler := modules.NewHandler(logger, modulesService)

	agentsRepo := agents.NewRepository(dbpool)
	agentsService := agents.NewService(agentsRepo, scoper)
	agentsHandler := agents.NewHandler(logger, agentsService)

	tokensRepo := tokens.NewRepository(dbpool)
	tokensService := tokens.NewService(tokensRepo, scoper, auditRecorder, metrics, logger)
	tokensHandler := tokens.NewHandler(logger, tokensService, shared.NewIdempotencyStore(dbpool))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	authMiddleware := principal.NewMiddleware(cfg.AuthJWTSecret, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:              logger,
		Config:              cfg,
		Auth:                authMiddleware,
		UniversitiesHandler: universitiesHandler,
		CoursesHandler:      coursesHandler,
		ModulesHandler:      modulesHandler,
		AgentsHandler:       agentsHandler,
		TokensHandler:       tokensHandler,
		JobHandler:          jobHandler,
		Metrics:             metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
