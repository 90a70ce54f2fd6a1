package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/yhoroy12/lujo-crm-v2-sub000/internal/api/http"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/api/http/handlers"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/auth"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/config"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/dispatch"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/domain"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/events"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/notify"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/observability"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/persistence"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/priority"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/repository"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/service"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/statemachine"
	"github.com/yhoroy12/lujo-crm-v2-sub000/internal/worker"
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

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	timelineRepo := repository.NewTimelineRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	demandRepo := repository.NewDemandRepository(pool)

	bus := notify.NewRedisBus(redis.Client, logger)
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()

	states := statemachine.New()
	classifier := priority.NewClassifier(priority.LoadRules(ctx, pool, logger))

	intakeService := service.NewIntakeService(service.IntakeDependencies{
		Classifier:   classifier,
		TicketRepo:   ticketRepo,
		TimelineRepo: timelineRepo,
		Bus:          bus,
		Dispatcher:   dispatcher,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		States:     states,
		Classifier: classifier,
		TicketRepo: ticketRepo,
		DemandRepo: demandRepo,
		Bus:        bus,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	queueService := service.NewQueueService(service.QueueDependencies{
		TicketRepo: ticketRepo,
		DemandRepo: demandRepo,
		Bus:        bus,
		Dispatcher: dispatcher,
		Logger:     logger,
		WindowSize: cfg.Dispatch.QueueWindowSize,
	})
	reconcileService := service.NewReconcileService(service.ReconcileDependencies{
		States:     states,
		TicketRepo: ticketRepo,
		Cache:      persistence.NewRedisSessionCache(redis.Client),
		Logger:     logger,
	})
	registry := dispatch.NewRegistry(cfg.Dispatch.SettleDelay(), assignmentService, dispatcher, metrics, logger)

	worker.RegisterEventLoggers(dispatcher, logger)
	subs, err := worker.StartDispatchWorker(ctx, queueService, registry,
		[]domain.Channel{domain.ChannelChat, domain.ChannelMail}, logger)
	if err != nil {
		logger.Fatal("failed to start dispatch worker", zap.Error(err))
	}
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:        handlers.NewTicketsHandler(intakeService, assignmentService, auditRepo),
		Queues:         handlers.NewQueueHandler(queueService, assignmentService),
		Sessions:       handlers.NewSessionHandler(reconcileService, assignmentService, registry),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
