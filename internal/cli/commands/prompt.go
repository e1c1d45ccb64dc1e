package commands

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
)

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readPassword resolves the password from the flag, then the env var, then
// a hidden terminal prompt
func readPassword(flagValue, envVar, label string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envVar); v != "" {
		return v, nil
	}

	if !isInteractive() {
		return "", fmt.Errorf("password is required in non-interactive mode (use --password flag or %s env var)", envVar)
	}

	fmt.Print(label)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // New line after password input
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

type tipoOption struct {
	Label string
	Tipo  string
}

// promptTipo asks for the transaction kind
func promptTipo() (string, error) {
	if !isInteractive() {
		return "", fmt.Errorf("--tipo is required in non-interactive mode (receita or gasto)")
	}

	options := []tipoOption{
		{Label: "Gasto", Tipo: models.TipoGasto},
		{Label: "Receita", Tipo: models.TipoReceita},
	}

	prompt := promptui.Select{
		Label: "Tipo da transação",
		Items: options,
		Templates: &promptui.SelectTemplates{
			Label:    "{{ . }}",
			Active:   "> {{ .Label | cyan }}",
			Inactive: "  {{ .Label }}",
			Selected: "{{ .Label | green }}",
		},
	}

	index, _, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selection cancelled: %w", err)
	}
	return options[index].Tipo, nil
}

// confirm asks a yes/no question; non-interactive sessions must pass --yes
func confirm(label string) (bool, error) {
	if !isInteractive() {
		return false, fmt.Errorf("refusing to continue without confirmation (use --yes)")
	}
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	if _, err := prompt.Run(); err != nil {
		if err == promptui.ErrAbort {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// periodFlags adds --mes/--ano and returns a reader that yields nil when
// neither was given
func periodFlags(cmd *cobra.Command) func() (*ledger.Period, error) {
	var mes, ano int
	cmd.Flags().IntVar(&mes, "mes", 0, "Month (1-12), defaults to the current month")
	cmd.Flags().IntVar(&ano, "ano", 0, "Year, defaults to the current year")

	return func() (*ledger.Period, error) {
		if !cmd.Flags().Changed("mes") && !cmd.Flags().Changed("ano") {
			return nil, nil
		}
		p := ledger.CurrentPeriod(time.Now())
		if cmd.Flags().Changed("mes") {
			p.Mes = mes
		}
		if cmd.Flags().Changed("ano") {
			p.Ano = ano
		}
		if !p.Valid() {
			return nil, fmt.Errorf("invalid period %02d/%d", p.Mes, p.Ano)
		}
		return &p, nil
	}
}

// openBrowser opens the URL in the default browser
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
