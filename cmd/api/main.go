package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-distribution/internal/api/http"
	"github.com/spec-kit/task-distribution/internal/api/http/handlers"
	"github.com/spec-kit/task-distribution/internal/auth"
	"github.com/spec-kit/task-distribution/internal/config"
	"github.com/spec-kit/task-distribution/internal/events"
	"github.com/spec-kit/task-distribution/internal/importer"
	"github.com/spec-kit/task-distribution/internal/observability"
	"github.com/spec-kit/task-distribution/internal/persistence"
	"github.com/spec-kit/task-distribution/internal/repository"
	"github.com/spec-kit/task-distribution/internal/service"
	"github.com/spec-kit/task-distribution/internal/worker"
	"github.com/spec-kit/task-distribution/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.JWTSecret == config.DefaultJWTSecret && cfg.App.Env != "development" {
		logger.Warn("AUTH_JWT_SECRET is using the built-in default; set it outside development")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		principalRepo repository.PrincipalRepository
		taskRepo      repository.TaskRepository
	)
	dependencies := map[string]handlers.Pinger{}
	if pg.Enabled() {
		principalRepo = repository.NewPrincipalRepository(pg.Pool)
		taskRepo = repository.NewTaskRepository(pg.Pool)
		dependencies["postgres"] = pg
	} else {
		principalRepo = repository.NewMemoryPrincipalRepository()
		taskRepo = repository.NewMemoryTaskRepository()
	}

	var locker service.Locker
	if cfg.Distribution.LockEnabled {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		locker = redis.Locker()
		dependencies["redis"] = redis
	}

	stager, err := importer.NewStager(cfg.Upload.Dir)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification), logger)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		PrincipalRepo: principalRepo,
		TokenManager:  tokens,
	})
	principalService := service.NewPrincipalService(*cfg, principalRepo)
	distributionService := service.NewDistributionService(*cfg, service.DistributionDependencies{
		PrincipalRepo: principalRepo,
		TaskRepo:      taskRepo,
		Dispatcher:    dispatcher,
		Locker:        locker,
		Logger:        logger,
	})
	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:      taskRepo,
		PrincipalRepo: principalRepo,
		Dispatcher:    dispatcher,
	})

	app := httptransport.NewApp(httptransport.ServerOptions{
		AppName:        cfg.App.Name,
		Logger:         logger,
		Metrics:        metrics,
		RequestTimeout: cfg.App.RequestTimeout(),
		BodyLimit:      cfg.Upload.MaxBytes,
	}, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies, metrics),
		Auth:     handlers.NewAuthHandler(authService),
		Accounts: handlers.NewAccountsHandler(principalService),
		Tasks:    handlers.NewTasksHandler(distributionService, taskService, stager, logger),
		Guard:    auth.NewGuard(tokens),
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
