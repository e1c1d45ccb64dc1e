package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/placar-dev/placar/internal/client"
	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

// NewCardsCmd creates the cards command group
func NewCardsCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "cards",
		Aliases: []string{"cartoes"},
		Short:   "Manage credit card bills",
	}

	cmd.AddCommand(newCardsListCmd(load))
	cmd.AddCommand(newCardsAddCmd(load))
	cmd.AddCommand(newCardsEditCmd(load))
	cmd.AddCommand(newCardsPayCmd(load))
	cmd.AddCommand(newCardsRemoveCmd(load))

	return cmd
}

func newCardsListCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List card bills, newest month first",
	}
	period := periodFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return run(load, func(ctx context.Context, env *Env) error {
			return runCardsList(ctx, env, p)
		})
	}
	return cmd
}

func runCardsList(ctx context.Context, env *Env, period *ledger.Period) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	list, err := env.API.ListCartoes(ctx, period)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No card bills found.")
		fmt.Fprintln(env.Out, "\nAdd one with: placar cards add --instituicao Nubank --valor 800,00")
		return nil
	}

	printCartoes(env.Out, list)
	return nil
}

func printCartoes(out io.Writer, list []models.CartaoFatura) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMÊS\tINSTITUIÇÃO\tVALOR\tSTATUS")
	fmt.Fprintln(w, "──\t───\t───────────\t─────\t──────")

	for _, c := range list {
		status := "aberta"
		if c.Pago {
			status = "paga"
		}
		fmt.Fprintf(w, "%s\t%02d/%d\t%s\t%s\t%s\n",
			c.ID,
			c.Mes,
			c.Ano,
			c.Instituicao,
			c.Valor.BRL(),
			status,
		)
	}

	w.Flush()
}

type cardFlags struct {
	instituicao string
	valor       string
	mes         int
	ano         int
	pago        bool
}

func (f *cardFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.instituicao, "instituicao", "", "Card issuer")
	cmd.Flags().StringVar(&f.valor, "valor", "", "Bill amount, e.g. 800,00")
	cmd.Flags().IntVar(&f.mes, "mes", 0, "Reference month (defaults to the current month)")
	cmd.Flags().IntVar(&f.ano, "ano", 0, "Reference year (defaults to the current year)")
	cmd.Flags().BoolVar(&f.pago, "pago", false, "Bill is already paid")
}

// applyCardFlags copies the flags that were set onto in
func applyCardFlags(in *client.CartaoInput, flags cardFlags, changed func(string) bool) error {
	if changed("instituicao") {
		in.Instituicao = strings.TrimSpace(flags.instituicao)
	}
	if changed("valor") {
		v, err := money.Parse(flags.valor)
		if err != nil {
			return err
		}
		in.Valor = v
	}
	if changed("mes") {
		in.Mes = flags.mes
	}
	if changed("ano") {
		in.Ano = flags.ano
	}
	if changed("pago") {
		in.Pago = flags.pago
	}

	if in.Instituicao == "" {
		return fmt.Errorf("--instituicao is required")
	}
	if in.Valor < 0 {
		return fmt.Errorf("--valor cannot be negative")
	}
	if !(ledger.Period{Mes: in.Mes, Ano: in.Ano}).Valid() {
		return fmt.Errorf("invalid reference month %02d/%d", in.Mes, in.Ano)
	}
	return nil
}

func newCardsAddCmd(load Loader) *cobra.Command {
	var flags cardFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a card bill",
	}
	flags.register(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(load, func(ctx context.Context, env *Env) error {
			return runCardsAdd(ctx, env, flags, cmd.Flags().Changed, time.Now())
		})
	}
	return cmd
}

func runCardsAdd(ctx context.Context, env *Env, flags cardFlags, changed func(string) bool, now time.Time) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	current := ledger.CurrentPeriod(now)
	in := client.CartaoInput{Mes: current.Mes, Ano: current.Ano}
	if err := applyCardFlags(&in, flags, changed); err != nil {
		return err
	}

	f, err := env.API.CreateCartao(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Fatura %s criada: %s %s (%02d/%d)\n", f.ID, f.Instituicao, f.Valor.BRL(), f.Mes, f.Ano)
	return nil
}

func findCartao(ctx context.Context, env *Env, id string) (*models.CartaoFatura, error) {
	list, err := env.API.ListCartoes(ctx, nil)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("card bill '%s' not found", id)
}

func cartaoInput(f *models.CartaoFatura) client.CartaoInput {
	return client.CartaoInput{
		Instituicao: f.Instituicao,
		Valor:       f.Valor,
		Mes:         f.Mes,
		Ano:         f.Ano,
		Pago:        f.Pago,
	}
}

func newCardsEditCmd(load Loader) *cobra.Command {
	var flags cardFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a card bill",
		Args:  cobra.ExactArgs(1),
	}
	flags.register(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(load, func(ctx context.Context, env *Env) error {
			return runCardsEdit(ctx, env, args[0], flags, cmd.Flags().Changed)
		})
	}
	return cmd
}

func runCardsEdit(ctx context.Context, env *Env, id string, flags cardFlags, changed func(string) bool) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	current, err := findCartao(ctx, env, id)
	if err != nil {
		return err
	}

	in := cartaoInput(current)
	if err := applyCardFlags(&in, flags, changed); err != nil {
		return err
	}

	f, err := env.API.UpdateCartao(ctx, id, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Fatura %s atualizada\n", f.ID)
	return nil
}

func newCardsPayCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "pay <id>",
		Short: "Mark a card bill as paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(load, func(ctx context.Context, env *Env) error {
				return runCardsPay(ctx, env, args[0])
			})
		},
	}
}

func runCardsPay(ctx context.Context, env *Env, id string) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	current, err := findCartao(ctx, env, id)
	if err != nil {
		return err
	}
	if current.Pago {
		fmt.Fprintf(env.Out, "Fatura %s já está paga\n", id)
		return nil
	}

	in := cartaoInput(current)
	in.Pago = true
	if _, err := env.API.UpdateCartao(ctx, id, in); err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Fatura %s (%s %s) marcada como paga\n", id, current.Instituicao, current.Valor.BRL())
	return nil
}

func newCardsRemoveCmd(load Loader) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a card bill",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm("Delete card bill " + args[0])
				if err != nil || !ok {
					return err
				}
			}
			return run(load, func(ctx context.Context, env *Env) error {
				if err := env.requireSession(); err != nil {
					return err
				}
				if err := env.API.DeleteCartao(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(env.Out, "✓ Fatura %s removida\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}
