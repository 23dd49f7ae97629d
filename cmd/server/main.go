package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/client"

	"github.com/cx-tal-miterani/tour-booking/internal/auth"
	"github.com/cx-tal-miterani/tour-booking/internal/clients"
	"github.com/cx-tal-miterani/tour-booking/internal/config"
	"github.com/cx-tal-miterani/tour-booking/internal/database"
	"github.com/cx-tal-miterani/tour-booking/internal/handlers"
	"github.com/cx-tal-miterani/tour-booking/internal/logging"
	"github.com/cx-tal-miterani/tour-booking/internal/router"
	"github.com/cx-tal-miterani/tour-booking/internal/service"
	"github.com/cx-tal-miterani/tour-booking/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	repo := database.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Connected to database")

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTAlgorithm)
	if err != nil {
		logger.Fatalf("Failed to configure token verification: %v", err)
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	catalog := clients.NewCatalogClient(cfg.ToursServiceURL, cfg.LookupTimeout)
	opts := []service.Option{
		service.WithTourLookup(catalog),
		service.WithNotifier(hub),
		service.WithParallelLookups(cfg.ParallelLookups()),
	}

	// Temporal is optional: without it the cascade only runs synchronously
	if cfg.TemporalEnabled() {
		temporalClient, err := client.Dial(client.Options{
			HostPort:  cfg.TemporalHost,
			Namespace: cfg.TemporalNamespace,
			Logger:    logging.NewTemporalLogger(logger),
		})
		if err != nil {
			logger.Fatalf("Failed to create Temporal client: %v", err)
		}
		defer temporalClient.Close()
		opts = append(opts, service.WithCascadeScheduler(service.NewTemporalCascadeScheduler(temporalClient, cfg.TaskQueue)))
		logger.WithField("host", cfg.TemporalHost).Info("Connected to Temporal")
	} else {
		logger.Warn("TEMPORAL_HOST not set, asynchronous cascade disabled")
	}

	bookingService := service.NewBookingService(
		repo,
		clients.NewIdentityClient(cfg.AuthServiceURL, cfg.LookupTimeout),
		catalog,
		logger,
		opts...,
	)

	h := handlers.NewHandler(bookingService, auth.NewRolePolicy(cfg.PrivilegedUsers, cfg.PrivilegedRoles), repo, logger)
	r := router.SetupRouter(h, hub.ServeTour, auth.Middleware(verifier, logger), logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":   cfg.Port,
			"fanout": cfg.LookupFanout,
		}).Info("API server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
