package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/sayyara-app/sayyara-backend/api/routes"
	"github.com/sayyara-app/sayyara-backend/internal/bids"
	"github.com/sayyara-app/sayyara-backend/internal/catalog"
	"github.com/sayyara-app/sayyara-backend/internal/fees"
	"github.com/sayyara-app/sayyara-backend/internal/inventory"
	"github.com/sayyara-app/sayyara-backend/internal/reporting"
	"github.com/sayyara-app/sayyara-backend/internal/settlement"
	"github.com/sayyara-app/sayyara-backend/pkg/config"
	"github.com/sayyara-app/sayyara-backend/pkg/db"
	"github.com/sayyara-app/sayyara-backend/pkg/logger"
	"github.com/sayyara-app/sayyara-backend/pkg/migrate"
	"github.com/sayyara-app/sayyara-backend/pkg/moyasar"
	"github.com/sayyara-app/sayyara-backend/pkg/outbox"
	"github.com/sayyara-app/sayyara-backend/pkg/redis"
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

	// The gateway is optional in local development; the verify endpoint
	// degrades to an internal error when it is not configured.
	var paymentVerifier moyasar.Verifier
	if cfg.Moyasar.SecretKey != "" {
		moyasarClient, err := moyasar.NewClient(context.Background(), cfg.Moyasar, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create moyasar client", err)
			os.Exit(1)
		}
		paymentVerifier = moyasarClient
	} else {
		logg.Warn(context.Background(), "moyasar secret key not set; payment verification disabled")
	}

	gdb := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gdb), logg)

	catalogRepo := catalog.NewRepository(gdb)
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	inventoryRepo := inventory.NewRepository(gdb)
	inventoryService, err := inventory.NewService(inventoryRepo, catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	bidsService, err := bids.NewService(bids.NewRepository(gdb), catalogRepo, dbClient, outboxService, cfg.Bidding)
	if err != nil {
		logg.Error(context.Background(), "failed to create bids service", err)
		os.Exit(1)
	}

	feesRepo := fees.NewRepository(gdb)
	feesService, err := fees.NewService(feesRepo, dbClient, outboxService, redisClient, cfg.Bidding, cfg.Moyasar)
	if err != nil {
		logg.Error(context.Background(), "failed to create fees service", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.NewRepository(gdb), inventoryRepo, feesRepo, dbClient, outboxService, cfg.Bidding)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	reportingService, err := reporting.NewService(reporting.NewRepository(gdb), cfg.Bidding)
	if err != nil {
		logg.Error(context.Background(), "failed to create reporting service", err)
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
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, paymentVerifier,
			catalogService, inventoryService, bidsService, feesService, settlementService, reportingService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
