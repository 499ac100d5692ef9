package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-notify/internal/api/http"
	"github.com/spec-kit/ticket-notify/internal/api/http/handlers"
	"github.com/spec-kit/ticket-notify/internal/auth"
	"github.com/spec-kit/ticket-notify/internal/config"
	"github.com/spec-kit/ticket-notify/internal/dispatch"
	"github.com/spec-kit/ticket-notify/internal/events"
	"github.com/spec-kit/ticket-notify/internal/observability"
	"github.com/spec-kit/ticket-notify/internal/persistence"
	"github.com/spec-kit/ticket-notify/internal/repository"
	"github.com/spec-kit/ticket-notify/internal/service"
	"github.com/spec-kit/ticket-notify/internal/transport"
	"github.com/spec-kit/ticket-notify/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	staffDirRepo := repository.NewStaffDirectoryRepository(pool)
	subscriptionRepo := repository.NewSubscriptionRepository(pool)
	updateRepo := repository.NewUpdateRepository(pool)
	outcomeRepo := repository.NewDispatchOutcomeRepository(pool)

	eventBus := events.NewInMemoryDispatcher(logger)

	registry := service.NewSubscriptionService(service.SubscriptionDependencies{
		SubscriptionRepo: subscriptionRepo,
		Dispatcher:       eventBus,
		Logger:           logger,
	})
	ledger := service.NewLedgerService(service.LedgerDependencies{
		UpdateRepo: updateRepo,
		Registry:   registry,
		Dispatcher: eventBus,
		Logger:     logger,
	}, cfg.Notification.ContentTruncationLength)
	resolver := service.NewEligibilityResolver(subscriptionRepo, staffDirRepo, logger)

	mailTransport := transport.NewSMTPTransport(cfg.SMTP)
	if err := mailTransport.TestConfiguration(ctx); err != nil {
		logger.Warn("mail transport verification failed; dispatch will retry sends", zap.Error(err))
	}

	engine := dispatch.NewDispatcher(dispatch.Dependencies{
		Outcomes:  outcomeRepo,
		Claims:    redis,
		Transport: mailTransport,
		Logger:    logger,
		Metrics:   metrics,
	}, cfg.Notification)

	notificationService := service.NewNotificationService(eventBus, resolver, ticketRepo, engine, logger)
	worker.StartNotificationWorker(ctx, notificationService, engine)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, mailTransport, metrics),
		Subscriptions:  handlers.NewSubscriptionsHandler(registry),
		Updates:        handlers.NewUpdatesHandler(ledger),
		Sync:           handlers.NewSyncHandler(ticketRepo, staffDirRepo),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	engine.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
