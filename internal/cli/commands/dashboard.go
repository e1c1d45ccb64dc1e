package commands

import (
	"context"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/placar-dev/placar/internal/client"
	"github.com/placar-dev/placar/internal/ledger"
)

// NewDashCmd creates the dash command
func NewDashCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dash",
		Short: "Show the month's totals and debt score",
	}
	period := periodFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return run(load, func(ctx context.Context, env *Env) error {
			return runDash(ctx, env, p, time.Now())
		})
	}
	return cmd
}

func runDash(ctx context.Context, env *Env, period *ledger.Period, now time.Time) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	summary, err := env.API.Dashboard(ctx, period)
	if err != nil {
		return err
	}

	shown := ledger.CurrentPeriod(now)
	if period != nil {
		shown = *period
	}

	fmt.Fprintf(env.Out, "Placar %02d/%d\n\n", shown.Mes, shown.Ano)

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "Receitas\t%s\t\n", summary.TotalReceitas.BRL())
	fmt.Fprintf(w, "Gastos\t%s\t\n", summary.TotalGastos.BRL())
	fmt.Fprintf(w, "Saldo atual\t%s\t\n", summary.SaldoAtual.BRL())
	fmt.Fprintf(w, "Dívidas abertas\t%s\t\n", summary.TotalDividasAbertas.BRL())
	fmt.Fprintf(w, "Placar de dívidas\t%s\t\n", summary.PlacarDividas.BRL())
	w.Flush()

	return nil
}

// NewHistoryCmd creates the history command
func NewHistoryCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "history",
		Aliases: []string{"fechamentos"},
		Short:   "List closed months",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, runHistory)
		},
	}

	cmd.AddCommand(newHistoryCloseCmd(load))

	return cmd
}

func runHistory(ctx context.Context, env *Env) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	list, err := env.API.Fechamentos(ctx)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No closed months yet.")
		fmt.Fprintln(env.Out, "\nClose last month with: placar history close")
		return nil
	}

	w := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MÊS\tRECEITAS\tGASTOS\tSALDO\tDÍVIDAS\tPLACAR")
	fmt.Fprintln(w, "───\t────────\t──────\t─────\t───────\t──────")
	for _, f := range list {
		fmt.Fprintf(w, "%02d/%d\t%s\t%s\t%s\t%s\t%s\n",
			f.Mes,
			f.Ano,
			f.TotalReceitas.BRL(),
			f.TotalGastos.BRL(),
			f.SaldoAtual.BRL(),
			f.TotalDividasAbertas.BRL(),
			f.PlacarDividas.BRL(),
		)
	}
	w.Flush()

	return nil
}

func newHistoryCloseCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Ask the server to close a finished month (defaults to last month)",
	}
	period := periodFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return run(load, func(ctx context.Context, env *Env) error {
			return runHistoryClose(ctx, env, p)
		})
	}
	return cmd
}

func runHistoryClose(ctx context.Context, env *Env, period *ledger.Period) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	req, err := env.API.RequestFechamento(ctx, period)
	if err != nil {
		if client.IsStatus(err, http.StatusConflict) {
			fmt.Fprintln(env.Out, "Month close already requested, check back shortly.")
			return nil
		}
		return err
	}

	fmt.Fprintf(env.Out, "✓ Fechamento de %02d/%d solicitado (task %s)\n", req.Mes, req.Ano, req.TaskID)
	return nil
}
