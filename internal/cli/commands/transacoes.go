package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/placar-dev/placar/internal/client"
	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

// NewTxCmd creates the tx command group
func NewTxCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transacoes"},
		Short:   "Manage income and expense entries",
	}

	cmd.AddCommand(newTxListCmd(load))
	cmd.AddCommand(newTxAddCmd(load))
	cmd.AddCommand(newTxEditCmd(load))
	cmd.AddCommand(newTxRemoveCmd(load))

	return cmd
}

func newTxListCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List transactions, newest first",
	}
	period := periodFlags(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		p, err := period()
		if err != nil {
			return err
		}
		return run(load, func(ctx context.Context, env *Env) error {
			return runTxList(ctx, env, p)
		})
	}
	return cmd
}

func runTxList(ctx context.Context, env *Env, period *ledger.Period) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	list, err := env.API.ListTransacoes(ctx, period)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(env.Out, "No transactions found.")
		fmt.Fprintln(env.Out, "\nAdd one with: placar tx add --tipo gasto --valor 10,00")
		return nil
	}

	printTransacoes(env.Out, list)
	return nil
}

func printTransacoes(out io.Writer, list []models.Transacao) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDATA\tTIPO\tVALOR\tCATEGORIA\tDESCRIÇÃO")
	fmt.Fprintln(w, "──\t────\t────\t─────\t─────────\t─────────")

	for _, t := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Data.String(),
			t.Tipo,
			t.Valor.BRL(),
			deref(t.Categoria),
			deref(t.Descricao),
		)
	}

	w.Flush()
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

// txFlags holds the shared add/edit flags
type txFlags struct {
	tipo      string
	valor     string
	data      string
	categoria string
	descricao string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tipo, "tipo", "", "receita or gasto (prompts when omitted)")
	cmd.Flags().StringVar(&f.valor, "valor", "", "Amount, e.g. 1.234,56 or 1234.56")
	cmd.Flags().StringVar(&f.data, "data", "", "Date YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&f.categoria, "categoria", "", "Category")
	cmd.Flags().StringVar(&f.descricao, "descricao", "", "Description")
}

func newTxAddCmd(load Loader) *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.tipo == "" {
				tipo, err := promptTipo()
				if err != nil {
					return err
				}
				flags.tipo = tipo
			}
			return run(load, func(ctx context.Context, env *Env) error {
				return runTxAdd(ctx, env, flags, time.Now())
			})
		},
	}
	flags.register(cmd)

	return cmd
}

func runTxAdd(ctx context.Context, env *Env, flags txFlags, now time.Time) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	in := client.TransacaoInput{Tipo: flags.tipo, Data: models.DateOf(now)}
	if err := applyTxFlags(&in, flags, nil); err != nil {
		return err
	}
	if in.Tipo == "" {
		return fmt.Errorf("--tipo is required (receita or gasto)")
	}
	if in.Valor <= 0 {
		return fmt.Errorf("--valor is required and must be positive")
	}

	t, err := env.API.CreateTransacao(ctx, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Transação %s criada: %s %s em %s\n", t.ID, t.Tipo, t.Valor.BRL(), t.Data)
	return nil
}

// applyTxFlags copies the flags that were set onto in. changed is nil for
// add, where every non-empty flag counts.
func applyTxFlags(in *client.TransacaoInput, flags txFlags, changed func(string) bool) error {
	set := func(name, value string) bool {
		if changed != nil {
			return changed(name)
		}
		return value != ""
	}

	if set("tipo", flags.tipo) {
		if flags.tipo != models.TipoReceita && flags.tipo != models.TipoGasto {
			return fmt.Errorf("--tipo must be receita or gasto, got %q", flags.tipo)
		}
		in.Tipo = flags.tipo
	}
	if set("valor", flags.valor) {
		v, err := money.Parse(flags.valor)
		if err != nil {
			return err
		}
		in.Valor = v
	}
	if set("data", flags.data) {
		d, err := models.ParseDate(flags.data)
		if err != nil {
			return err
		}
		in.Data = d
	}
	if set("categoria", flags.categoria) {
		in.Categoria = optional(flags.categoria)
	}
	if set("descricao", flags.descricao) {
		in.Descricao = optional(flags.descricao)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func newTxEditCmd(load Loader) *cobra.Command {
	var flags txFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a transaction",
		Args:  cobra.ExactArgs(1),
	}
	flags.register(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return run(load, func(ctx context.Context, env *Env) error {
			return runTxEdit(ctx, env, args[0], flags, cmd.Flags().Changed)
		})
	}
	return cmd
}

// runTxEdit fetches the current record first because the API replaces all
// fields on update
func runTxEdit(ctx context.Context, env *Env, id string, flags txFlags, changed func(string) bool) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	list, err := env.API.ListTransacoes(ctx, nil)
	if err != nil {
		return err
	}

	var current *models.Transacao
	for i := range list {
		if list[i].ID == id {
			current = &list[i]
			break
		}
	}
	if current == nil {
		return fmt.Errorf("transaction '%s' not found", id)
	}

	in := client.TransacaoInput{
		Tipo:      current.Tipo,
		Valor:     current.Valor,
		Categoria: current.Categoria,
		Descricao: current.Descricao,
		Data:      current.Data,
	}
	if err := applyTxFlags(&in, flags, changed); err != nil {
		return err
	}

	t, err := env.API.UpdateTransacao(ctx, id, in)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Transação %s atualizada: %s %s em %s\n", t.ID, t.Tipo, t.Valor.BRL(), t.Data)
	return nil
}

func newTxRemoveCmd(load Loader) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm("Delete transaction " + args[0])
				if err != nil || !ok {
					return err
				}
			}
			return run(load, func(ctx context.Context, env *Env) error {
				return runTxRemove(ctx, env, args[0])
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runTxRemove(ctx context.Context, env *Env, id string) error {
	if err := env.requireSession(); err != nil {
		return err
	}

	if err := env.API.DeleteTransacao(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Transação %s removida\n", id)
	return nil
}
