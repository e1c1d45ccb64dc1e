package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/placar-dev/placar/internal/web"
)

// NewUICmd creates the ui command
func NewUICmd(load Loader) *cobra.Command {
	var addr string
	var noBrowser bool

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Open the Placar dashboard in the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			env, err := load()
			if err != nil {
				return err
			}
			defer env.Close()

			return runUI(ctx, env, addr, !noBrowser)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to ui_address from the config)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open the browser")

	return cmd
}

// runUI serves the local UI until ctx is cancelled. The UI shares the
// env's holder, so a login or logout in the terminal reaches open pages.
func runUI(ctx context.Context, env *Env, addr string, browser bool) error {
	if addr == "" {
		addr = env.Config.UIAddress
	}

	srv, err := web.New(env.API, env.Store, env.Holder, env.Log)
	if err != nil {
		return err
	}

	url := "http://" + addr
	fmt.Fprintf(env.Out, "Placar UI running at %s (Ctrl+C to stop)\n", url)
	if browser {
		if err := openBrowser(url); err != nil {
			fmt.Fprintf(env.Out, "Could not open browser automatically: %v\n", err)
		}
	}

	return srv.Run(ctx, addr)
}
