// Package ledger computes the monthly dashboard figures. It is shared by the
// API, the month-close worker and the clients that filter lists locally.
package ledger

import (
	"time"

	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

// Period is a reference month
type Period struct {
	Mes int `json:"mes"`
	Ano int `json:"ano"`
}

// CurrentPeriod returns the month containing now
func CurrentPeriod(now time.Time) Period {
	return Period{Mes: int(now.Month()), Ano: now.Year()}
}

// Previous returns the month before p
func (p Period) Previous() Period {
	if p.Mes == 1 {
		return Period{Mes: 12, Ano: p.Ano - 1}
	}
	return Period{Mes: p.Mes - 1, Ano: p.Ano}
}

// Valid reports whether the month is 1..12 and the year is positive
func (p Period) Valid() bool {
	return p.Mes >= 1 && p.Mes <= 12 && p.Ano > 0
}

// Summary holds the dashboard figures for one month
type Summary struct {
	TotalReceitas       money.Cents `json:"total_receitas"`
	TotalGastos         money.Cents `json:"total_gastos"`
	TotalDividasAbertas money.Cents `json:"total_dividas_abertas"`
	SaldoAtual          money.Cents `json:"saldo_atual"`
	PlacarDividas       money.Cents `json:"placar_dividas"`
}

// Summarize computes the figures for period. Salario counts as income in
// every month; only unpaid bills of that exact month count as debt.
func Summarize(salario money.Cents, transacoes []models.Transacao, cartoes []models.CartaoFatura, period Period) Summary {
	var receitas, gastos, dividas money.Cents

	for _, t := range FilterTransacoes(transacoes, period) {
		switch t.Tipo {
		case models.TipoReceita:
			receitas += t.Valor
		case models.TipoGasto:
			gastos += t.Valor
		}
	}

	for _, c := range FilterCartoes(cartoes, period) {
		if !c.Pago {
			dividas += c.Valor
		}
	}

	totalReceitas := salario + receitas
	saldo := totalReceitas - gastos

	return Summary{
		TotalReceitas:       totalReceitas,
		TotalGastos:         gastos,
		TotalDividasAbertas: dividas,
		SaldoAtual:          saldo,
		PlacarDividas:       saldo - dividas,
	}
}

// FilterTransacoes keeps the transactions dated inside period
func FilterTransacoes(transacoes []models.Transacao, period Period) []models.Transacao {
	out := make([]models.Transacao, 0, len(transacoes))
	for _, t := range transacoes {
		if t.Data.InMonth(period.Mes, period.Ano) {
			out = append(out, t)
		}
	}
	return out
}

// FilterCartoes keeps the bills whose reference month is period
func FilterCartoes(cartoes []models.CartaoFatura, period Period) []models.CartaoFatura {
	out := make([]models.CartaoFatura, 0, len(cartoes))
	for _, c := range cartoes {
		if c.Mes == period.Mes && c.Ano == period.Ano {
			out = append(out, c)
		}
	}
	return out
}

// Fechamento freezes a summary into a month-close record
func (s Summary) Fechamento(userID string, period Period) models.Fechamento {
	return models.Fechamento{
		UserID:              userID,
		Mes:                 period.Mes,
		Ano:                 period.Ano,
		TotalReceitas:       s.TotalReceitas,
		TotalGastos:         s.TotalGastos,
		TotalDividasAbertas: s.TotalDividasAbertas,
		SaldoAtual:          s.SaldoAtual,
		PlacarDividas:       s.PlacarDividas,
	}
}
