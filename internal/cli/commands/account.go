package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/placar-dev/placar/internal/money"
	"github.com/placar-dev/placar/internal/session"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd(load Loader) *cobra.Command {
	var email, password, salario string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, func(ctx context.Context, env *Env) error {
				if email == "" {
					email = os.Getenv("PLACAR_EMAIL")
				}
				pw, err := readPassword(password, "PLACAR_PASSWORD", "Senha: ")
				if err != nil {
					return err
				}
				return runRegister(ctx, env, email, pw, salario)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PLACAR_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PLACAR_PASSWORD, will prompt if not provided)")
	cmd.Flags().StringVar(&salario, "salario", "0", "Base monthly salary, e.g. 3500,00")

	return cmd
}

func runRegister(ctx context.Context, env *Env, email, password, salarioStr string) error {
	if err := env.requireNoSession(); err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or PLACAR_EMAIL env var)")
	}

	salario, err := money.Parse(salarioStr)
	if err != nil {
		return err
	}

	user, err := env.API.Register(ctx, email, password, salario)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Account created!")
	fmt.Fprintf(env.Out, "  Email:   %s\n", user.Email)
	fmt.Fprintf(env.Out, "  Salário: %s\n", user.Salario.BRL())
	fmt.Fprintln(env.Out, "\nSign in with: placar login")
	return nil
}

// NewLoginCmd creates the login command
func NewLoginCmd(load Loader) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with the Placar API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, func(ctx context.Context, env *Env) error {
				if email == "" {
					email = os.Getenv("PLACAR_EMAIL")
				}
				if err := env.requireNoSession(); err != nil {
					return err
				}
				pw, err := readPassword(password, "PLACAR_PASSWORD", "Senha: ")
				if err != nil {
					return err
				}
				return runLogin(ctx, env, email, pw)
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set PLACAR_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set PLACAR_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(ctx context.Context, env *Env, email, password string) error {
	if err := env.requireNoSession(); err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag or PLACAR_EMAIL env var)")
	}

	fmt.Fprintf(env.Out, "Logging in to %s...\n", env.Config.ServerURL)

	token, err := env.API.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := session.Establish(env.Store, env.Holder, token.AccessToken); err != nil {
		return fmt.Errorf("failed to save authentication token: %w", err)
	}

	fmt.Fprintln(env.Out, "✓ Login successful!")
	return nil
}

// NewLogoutCmd creates the logout command
func NewLogoutCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, runLogout)
		},
	}
}

func runLogout(_ context.Context, env *Env) error {
	wasLoggedIn := env.Holder.Authenticated()
	if err := env.Holder.MarkLoggedOut(); err != nil {
		return err
	}
	if wasLoggedIn {
		fmt.Fprintln(env.Out, "✓ Logged out")
	} else {
		fmt.Fprintln(env.Out, "Not logged in")
	}
	return nil
}

// NewStatusCmd creates the status command
func NewStatusCmd(load Loader) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether this machine is logged in",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, func(ctx context.Context, env *Env) error {
				return runStatus(ctx, env, offline)
			})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Only check for a stored token, do not contact the server")

	return cmd
}

// runStatus reports the stored session. Unless offline, it also asks the
// server; a rejected token logs the holder out through the client.
func runStatus(ctx context.Context, env *Env, offline bool) error {
	fmt.Fprintf(env.Out, "Server:  %s\n", env.Config.ServerURL)
	fmt.Fprintf(env.Out, "Storage: %s\n", env.Config.Storage)

	if !env.Holder.Authenticated() {
		fmt.Fprintln(env.Out, "Status:  logged out")
		return nil
	}
	if offline {
		fmt.Fprintln(env.Out, "Status:  logged in (token stored)")
		return nil
	}

	me, err := env.API.Me(ctx)
	if err != nil {
		if !env.Holder.Authenticated() {
			fmt.Fprintln(env.Out, "Status:  logged out (token rejected by server)")
			return nil
		}
		return err
	}

	fmt.Fprintf(env.Out, "Status:  logged in as %s\n", me.Email)
	return nil
}

// NewMeCmd creates the me command
func NewMeCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, runMe)
		},
	}
}

func runMe(ctx context.Context, env *Env) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	me, err := env.API.Me(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "Email:      %s\n", me.Email)
	fmt.Fprintf(env.Out, "Salário:    %s\n", me.Salario.BRL())
	fmt.Fprintf(env.Out, "Transações: %d\n", len(me.Transacoes))
	fmt.Fprintf(env.Out, "Faturas:    %d\n", len(me.Cartoes))
	return nil
}

// NewSalarioCmd creates the salario command
func NewSalarioCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "salario <valor>",
		Short: "Set the base monthly salary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, func(ctx context.Context, env *Env) error {
				return runSalario(ctx, env, args[0])
			})
		},
	}
}

func runSalario(ctx context.Context, env *Env, value string) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	salario, err := money.Parse(value)
	if err != nil {
		return err
	}
	if salario < 0 {
		return fmt.Errorf("salary cannot be negative")
	}

	user, err := env.API.UpdateSalario(ctx, salario)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Salário atualizado: %s\n", user.Salario.BRL())
	return nil
}
