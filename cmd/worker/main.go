package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/cx-tal-miterani/tour-booking/internal/activities"
	"github.com/cx-tal-miterani/tour-booking/internal/config"
	"github.com/cx-tal-miterani/tour-booking/internal/database"
	"github.com/cx-tal-miterani/tour-booking/internal/logging"
	"github.com/cx-tal-miterani/tour-booking/internal/workflows"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}

	if !cfg.TemporalEnabled() {
		logger.Fatal("TEMPORAL_HOST is required for the worker")
	}

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := database.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	logger.Info("Connected to database")

	repo := database.NewRepository(pool)

	// Connect to Temporal
	logger.WithField("host", cfg.TemporalHost).Info("Connecting to Temporal...")
	c, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalHost,
		Namespace: cfg.TemporalNamespace,
		Logger:    logging.NewTemporalLogger(logger),
	})
	if err != nil {
		logger.Fatalf("Failed to connect to Temporal: %v", err)
	}
	defer c.Close()
	logger.Info("Connected to Temporal")

	// Create worker
	w := worker.New(c, cfg.TaskQueue, worker.Options{})

	// Register workflows
	w.RegisterWorkflowWithOptions(workflows.TourCascadeWorkflow, workflow.RegisterOptions{
		Name: workflows.TourCascadeWorkflowName,
	})

	// Create and register activities
	acts := activities.NewActivities(repo)
	w.RegisterActivityWithOptions(acts.DeleteBookingsByTour, activity.RegisterOptions{
		Name: activities.DeleteBookingsByTourName,
	})

	// Start worker
	logger.WithField("task_queue", cfg.TaskQueue).Info("Starting Temporal worker...")
	if err := w.Run(worker.InterruptCh()); err != nil {
		logger.Fatalf("Worker failed: %v", err)
	}
}
