package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/placar-dev/placar/internal/config"
	"github.com/placar-dev/placar/internal/logger"
	"github.com/placar-dev/placar/internal/metrics"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/server"
	"github.com/placar-dev/placar/internal/tasks"
	"github.com/placar-dev/placar/internal/workers"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Component(logger.GetLogger(), "worker")

	log.Info().Str("version", version).Msg("Starting Placar Asynq worker")

	db, err := server.OpenDatabase(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	m := metrics.New()

	redisOpt := asynq.RedisClientOpt{Addr: cfg.Redis.Address}

	// Client for the scheduler's enqueues
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	asynqServer := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			tasks.QueueDefault: 3, // user-requested closes
			tasks.QueueLow:     1, // scheduled closes
		},
		Logger: &asynqLogger{log: log},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeCloseMonth, func(ctx context.Context, t *asynq.Task) error {
		return workers.HandleCloseMonth(ctx, t, db, m, log)
	})

	var scheduler interface{ Stop() context.Context }
	if cfg.Jobs.MonthCloseSchedule != "" {
		c, err := workers.StartMonthCloseScheduler(cfg.Jobs.MonthCloseSchedule, asynqClient, db, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start month close scheduler")
		}
		scheduler = c
	}

	metricsSrv := &http.Server{
		Addr:              cfg.Jobs.MetricsAddress,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Msg("Starting Asynq worker server...")
		if err := asynqServer.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("Asynq worker server failed")
		}
	}()

	<-sigChan
	log.Info().Msg("Received shutdown signal, shutting down gracefully...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	asynqServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(ctx)

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info().Msg("Worker shutdown complete")
}

// asynqLogger is a wrapper to make zerolog compatible with Asynq's logger interface
type asynqLogger struct {
	log zerolog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.log.Debug().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.log.Info().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.log.Warn().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.log.Error().Msg(fmt.Sprint(args...))
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Fatal().Msg(fmt.Sprint(args...))
}
