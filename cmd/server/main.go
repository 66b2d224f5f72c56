package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/api"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/config"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/document"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/events"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/extract"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/intake"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/jobs"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/logger"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/pipeline"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/review"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/store"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/websocket"
	"github.com/aws-samples/sample-timecards-processing-with-amazon-bedrock/internal/worker"
)

func main() {
	logger.Init("timecard-processor")

	cfg := config.Default()
	// Connection details only come from the environment, so overlay it
	// before touching the database.
	if err := cfg.ApplyEnv(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid environment configuration")
	}

	database, err := store.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	if err := store.RunMigrations(database, cfg.DatabaseDriver); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	st := store.NewSQLStore(database, cfg.DatabaseDriver)

	if err := cfg.SeedSettings(st); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Failed to seed settings")
	}
	if err := cfg.ApplySettings(st); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid persisted settings")
	}
	// The environment wins over persisted settings, so it overlays once
	// more after the database read.
	if err := cfg.ApplyEnv(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid environment configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.Logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	hub := websocket.NewHub()
	go hub.Run()

	var natsClient *events.Client
	if cfg.NATSURL != "" {
		natsClient, err = events.NewClient(cfg.NATSURL)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer natsClient.Close()
	}

	notify := func(job *jobs.Job) {
		websocket.BroadcastJobUpdate(hub, job)
		if natsClient != nil {
			natsClient.PublishJobUpdate(job)
		}
	}

	extractor := extract.NewOracleClient(cfg.OracleEndpoint, cfg.OracleModelID)
	source := document.NewFileSource(cfg.UploadDir)

	pipe := pipeline.New(st, source, extractor, pipeline.Config{
		Rules:              cfg.Rules,
		ExtractTimeout:     cfg.ExtractTimeout,
		MaxExtractAttempts: cfg.MaxExtractAttempts,
		RetryBackoffBase:   cfg.RetryBackoffBase,
	})
	pipe.SetNotifier(notify)

	pool := worker.NewPool(st, pipe, worker.Config{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		PollInterval:      cfg.PollInterval,
		StaleAfter:        cfg.StaleAfter,
		Retention:         cfg.CleanupAfter,
		AutoCleanup:       cfg.AutoCleanup,
	})
	pool.Start()

	in := intake.New(st, pool)
	in.SetNotifier(notify)

	var consumer *events.Consumer
	if cfg.NATSURL != "" {
		consumer, err = events.NewConsumer(cfg.NATSURL, in)
		if err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to connect NATS consumer")
		}
		if err := consumer.Subscribe(); err != nil {
			logger.Logger.Fatal().Err(err).Msg("Failed to subscribe to submissions")
		}
		defer consumer.Close()
	}

	gateway := review.NewGateway(st)
	gateway.SetNotifier(notify)

	server := api.NewServer(st, in, pool, gateway, hub, cfg.UploadDir, cfg.Port)
	api.SetDBConnection(database)

	go func() {
		if err := server.Start(); err != nil {
			logger.Logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Logger.Info().Msg("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error().Err(err).Msg("HTTP shutdown error")
	}
	pool.Stop()
	logger.Logger.Info().Msg("Server stopped")
}
