package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/placar-dev/placar/internal/config"
	"github.com/placar-dev/placar/internal/logger"
	"github.com/placar-dev/placar/internal/server"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Component(logger.GetLogger(), "api")

	log.Info().
		Str("version", version).
		Str("database_driver", cfg.Database.Driver).
		Str("redis", cfg.Redis.Address).
		Dur("token_ttl", cfg.Auth.TokenTTL).
		Strs("cors_origins", cfg.HTTP.CORSOrigins).
		Msg("Starting Placar API")

	srv, err := server.New(cfg, log, version)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
}
