package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	httptransport "github.com/clearbridge/support-sync/internal/api/http"
	"github.com/clearbridge/support-sync/internal/api/http/handlers"
	"github.com/clearbridge/support-sync/internal/auth"
	"github.com/clearbridge/support-sync/internal/config"
	"github.com/clearbridge/support-sync/internal/events"
	"github.com/clearbridge/support-sync/internal/feed"
	"github.com/clearbridge/support-sync/internal/observability"
	"github.com/clearbridge/support-sync/internal/persistence"
	"github.com/clearbridge/support-sync/internal/service"
	"github.com/clearbridge/support-sync/internal/store"
	"github.com/clearbridge/support-sync/internal/subscription"
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

	var tickets store.TicketStore
	if pool := pg.PoolHandle(); pool != nil {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		tickets = store.NewPostgresStore(pool)
	} else {
		tickets = store.NewMemoryStore()
	}

	metrics := observability.NewMetrics()
	changeFeed := events.NewInMemoryFeed()

	router := subscription.NewRouter(subscription.Config{
		Logger:   logger,
		Metrics:  metrics,
		Snapshot: tickets.Get,
		List:     tickets.List,
		Buffer:   cfg.Sync.SubscriberBuffer,
	})
	changeFeed.SubscribeAll(router.OnChange)
	defer router.Close()

	ticketService := service.NewTicketService(tickets, changeFeed)
	claimService := service.NewClaimService(tickets, changeFeed, metrics)
	lifecycleService := service.NewLifecycleService(tickets, changeFeed)
	conversationService := service.NewConversationService(tickets, changeFeed, metrics, cfg.Sync.AppendMaxAttempts)

	if cfg.Responder.Enabled {
		responder := service.NewResponderService(conversationService, logger, cfg.Responder.Label)
		responder.RegisterHandlers(changeFeed)
	}

	redisConn := persistence.NewRedis(cfg.Redis, logger)
	defer redisConn.Close()
	if redisConn != nil {
		relay := feed.NewRelay(redisConn.Client, cfg.Redis.Channel, uuid.NewString(), router.OnChange, logger)
		relay.RegisterHandlers(changeFeed)
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				logger.Error("change feed relay stopped", zap.Error(err))
			}
		}()
	}

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewMiddleware(verifier)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(pg, redisConn),
		Tickets: handlers.NewTicketsHandler(handlers.TicketsDependencies{
			Tickets:      ticketService,
			Claims:       claimService,
			Lifecycle:    lifecycleService,
			Conversation: conversationService,
		}),
		Streams:        handlers.NewStreamHandler(router, ticketService),
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
