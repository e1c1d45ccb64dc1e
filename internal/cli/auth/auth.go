// Package auth opens the token storage the CLI and local UI share.
package auth

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/placar-dev/placar/internal/cli/config"
	"github.com/placar-dev/placar/internal/session"
)

// Storage is a session store plus whatever must be released with it
type Storage struct {
	session.Storage
	close func() error
}

// Close releases connections held by the backend
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Account scopes keyring and Redis entries to one server and account
func Account(cfg *config.Config) string {
	return fmt.Sprintf("%s@%s", cfg.Account, cfg.ServerURL)
}

// OpenStorage builds the backend named by cfg.Storage
func OpenStorage(cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	switch cfg.Storage {
	case config.StorageFile:
		fs, err := session.NewFileStorage(cfg.TokenDir, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open token directory: %w", err)
		}
		return &Storage{Storage: fs}, nil

	case config.StorageKeyring:
		return &Storage{Storage: session.NewKeyringStorage(Account(cfg), 0)}, nil

	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		return &Storage{
			Storage: session.NewRedisStorage(client, Account(cfg), log),
			close:   client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown token storage %q", cfg.Storage)
	}
}
