package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/placar-dev/placar/internal/cli/config"
)

// NewConfigCmd creates the config command group
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), path, cfg)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set server_url, storage, token_dir, redis_address, account or ui_address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.Path()
			if err != nil {
				return err
			}
			return runConfigSet(cmd.OutOrStdout(), path, args[0], args[1])
		},
	})

	return cmd
}

func printConfig(out io.Writer, path string, cfg *config.Config) {
	fmt.Fprintf(out, "File:          %s\n", path)
	fmt.Fprintf(out, "server_url:    %s\n", cfg.ServerURL)
	fmt.Fprintf(out, "storage:       %s\n", cfg.Storage)
	fmt.Fprintf(out, "token_dir:     %s\n", cfg.TokenDir)
	if cfg.RedisAddress != "" {
		fmt.Fprintf(out, "redis_address: %s\n", cfg.RedisAddress)
	}
	fmt.Fprintf(out, "account:       %s\n", cfg.Account)
	fmt.Fprintf(out, "ui_address:    %s\n", cfg.UIAddress)
}

// runConfigSet changes one key, validates the result and saves it.
// Switching server or storage does not carry the stored token over.
func runConfigSet(out io.Writer, path, key, value string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	value = strings.TrimSpace(value)
	switch key {
	case "server_url":
		cfg.ServerURL = strings.TrimRight(value, "/")
	case "storage":
		cfg.Storage = value
	case "token_dir":
		cfg.TokenDir = value
	case "redis_address":
		cfg.RedisAddress = value
	case "account":
		cfg.Account = value
	case "ui_address":
		cfg.UIAddress = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ %s set to %s\n", key, value)
	if key == "server_url" || key == "storage" {
		fmt.Fprintln(out, "Run 'placar login' to sign in with the new settings")
	}
	return nil
}
