package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openhema/bloodlink-backend/api/routes"
	"github.com/openhema/bloodlink-backend/internal/chat"
	"github.com/openhema/bloodlink-backend/internal/commitments"
	"github.com/openhema/bloodlink-backend/internal/donations"
	"github.com/openhema/bloodlink-backend/internal/identity"
	"github.com/openhema/bloodlink-backend/internal/matching"
	"github.com/openhema/bloodlink-backend/internal/notifications"
	"github.com/openhema/bloodlink-backend/internal/requests"
	"github.com/openhema/bloodlink-backend/internal/verification"
	"github.com/openhema/bloodlink-backend/pkg/config"
	"github.com/openhema/bloodlink-backend/pkg/db"
	"github.com/openhema/bloodlink-backend/pkg/logger"
	"github.com/openhema/bloodlink-backend/pkg/metrics"
	"github.com/openhema/bloodlink-backend/pkg/migrate"
	"github.com/openhema/bloodlink-backend/pkg/pubsub"
	"github.com/openhema/bloodlink-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	requestsRepo := requests.NewRepository(dbClient.DB())
	commitmentsRepo := commitments.NewRepository(dbClient.DB())
	donationsRepo := donations.NewRepository(dbClient.DB())
	identityRepo := identity.NewRepository(dbClient.DB())

	dispatcherParams := notifications.DispatcherParams{
		Repo:        notificationsRepo,
		Logger:      logg,
		Fanout:      metrics.NewFanoutMetrics(prometheus.DefaultRegisterer),
		Concurrency: cfg.Fanout.Concurrency,
	}
	if cfg.PubSub.PushEnabled(cfg.GCP) {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		dispatcherParams.Push = pubsubClient
	}

	dispatcher, err := notifications.NewDispatcher(dispatcherParams)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification dispatcher", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	matchingService, err := matching.NewService(identityRepo, dispatcher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create matching service", err)
		os.Exit(1)
	}

	requestsService, err := requests.NewService(requestsRepo, matchingService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(redisClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	commitmentsService, err := commitments.NewService(commitments.ServiceParams{
		Repo:     commitmentsRepo,
		Requests: requestsRepo,
		Tx:       dbClient,
		Chat:     chatService,
		Notifier: dispatcher,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create commitments service", err)
		os.Exit(1)
	}

	verificationService, err := verification.NewService(verification.ServiceParams{
		Commitments: commitmentsRepo,
		Requests:    requestsRepo,
		Identity:    identityRepo,
		Ledger:      donationsRepo,
		Tx:          dbClient,
		Notifier:    dispatcher,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create verification service", err)
		os.Exit(1)
	}

	donationsService, err := donations.NewService(donationsRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create donations service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			requestsService,
			commitmentsService,
			verificationService,
			donationsService,
			notificationsService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
