package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/placar-dev/placar/internal/cli/commands"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "placar",
	Short: "Placar - personal finance scoreboard",
	Long: `Placar CLI - Track income, expenses and credit card bills.

The dashboard shows the month's balance and the debt score: what is left
after paying every open card bill.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("placar version %s\n", version)
		},
	})

	load := commands.DefaultLoader(version)

	rootCmd.AddCommand(commands.NewRegisterCmd(load))
	rootCmd.AddCommand(commands.NewLoginCmd(load))
	rootCmd.AddCommand(commands.NewLogoutCmd(load))
	rootCmd.AddCommand(commands.NewStatusCmd(load))
	rootCmd.AddCommand(commands.NewMeCmd(load))
	rootCmd.AddCommand(commands.NewSalarioCmd(load))
	rootCmd.AddCommand(commands.NewTxCmd(load))
	rootCmd.AddCommand(commands.NewCardsCmd(load))
	rootCmd.AddCommand(commands.NewDashCmd(load))
	rootCmd.AddCommand(commands.NewHistoryCmd(load))
	rootCmd.AddCommand(commands.NewUICmd(load))
	rootCmd.AddCommand(commands.NewConfigCmd())
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
