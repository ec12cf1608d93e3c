package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/opsdesk/sla-service/internal/api/http"
	"github.com/opsdesk/sla-service/internal/api/http/handlers"
	"github.com/opsdesk/sla-service/internal/auth"
	"github.com/opsdesk/sla-service/internal/config"
	"github.com/opsdesk/sla-service/internal/events"
	"github.com/opsdesk/sla-service/internal/lock"
	"github.com/opsdesk/sla-service/internal/observability"
	"github.com/opsdesk/sla-service/internal/persistence"
	"github.com/opsdesk/sla-service/internal/repository"
	"github.com/opsdesk/sla-service/internal/service"
	"github.com/opsdesk/sla-service/internal/sla"
	"github.com/opsdesk/sla-service/internal/worker"
	"github.com/opsdesk/sla-service/migrations"
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

	policy, err := config.LoadPolicy(cfg.Engine.PolicyFile)
	if err != nil {
		logger.Fatal("failed to load sla policy", zap.String("file", cfg.Engine.PolicyFile), zap.Error(err))
	}
	engine, err := sla.NewEngine(policy)
	if err != nil {
		logger.Fatal("invalid sla policy", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var (
		instanceRepo repository.SLAInstanceRepository
		historyRepo  repository.SLAHistoryRepository
		storage      = "postgres"
		checks       []handlers.HealthCheck
	)
	if pool := pg.PoolHandle(); pool != nil {
		instanceRepo = repository.NewSLAInstanceRepository(pool)
		historyRepo = repository.NewSLAHistoryRepository(pool)
		checks = append(checks, handlers.HealthCheck{Name: "postgres", Ping: pg.Ping})
	} else {
		logger.Warn("no database configured; sla instances are kept in memory")
		instanceRepo = repository.NewMemorySLAInstanceRepository()
		historyRepo = repository.NewMemorySLAHistoryRepository()
		storage = "memory"
	}

	var locker lock.Locker
	switch cfg.Engine.LockBackend {
	case "redis":
		rdb, err := persistence.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb.Client, cfg.Engine.LockTTL(), logger)
		checks = append(checks, handlers.HealthCheck{Name: "redis", Ping: rdb.Ping})
	default:
		locker = lock.NewKeyedMutex()
	}

	metrics := observability.NewMetrics()
	metrics.WatchPool(pg.PoolHandle())
	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(logger, cfg.Notification)
	notifyDone := worker.StartNotificationWorker(ctx, dispatcher, notificationService, cfg.Notification.QueueSize, logger)

	deps := service.SLADependencies{
		Engine:       engine,
		InstanceRepo: instanceRepo,
		HistoryRepo:  historyRepo,
		Dispatcher:   dispatcher,
		Locker:       locker,
		Metrics:      metrics,
		Logger:       logger,
	}
	slaService := service.NewSLAService(deps)
	escalationService := service.NewEscalationService(deps)

	authService, err := service.NewAuthService(*cfg)
	if err != nil {
		logger.Fatal("invalid AUTH_CLIENTS", zap.Error(err))
	}
	if authService.ClientCount() == 0 {
		logger.Warn("AUTH_CLIENTS is empty; no client can obtain a token")
	}
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager())

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, storage, checks...),
		Auth:           handlers.NewAuthHandler(authService),
		SLA:            handlers.NewSLAHandler(slaService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
	})

	workerDone := worker.StartEscalationWorker(ctx, escalationService, cfg.Engine.PollInterval(), logger)

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	// Stop taking requests before the workers, so events from in-flight
	// requests still reach the notification queue.
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-workerDone
	<-notifyDone
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
