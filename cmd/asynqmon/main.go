package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"

	"github.com/placar-dev/placar/internal/config"
	"github.com/placar-dev/placar/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Component(logger.GetLogger(), "asynqmon")

	h := asynqmon.New(asynqmon.Options{
		RootPath:     "/asynqmon",
		RedisConnOpt: asynq.RedisClientOpt{Addr: cfg.Redis.Address},
	})
	defer h.Close()

	srv := &http.Server{
		Addr:              cfg.Jobs.MonitorAddress,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info().
		Str("address", srv.Addr).
		Str("redis", cfg.Redis.Address).
		Msg("Starting Asynqmon")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Asynqmon stopped")
	}
}
