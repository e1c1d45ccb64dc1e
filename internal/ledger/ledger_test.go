package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

func tx(tipo string, valor string, day models.Date) models.Transacao {
	return models.Transacao{Tipo: tipo, Valor: money.MustParse(valor), Data: day}
}

func TestSummarize(t *testing.T) {
	transacoes := []models.Transacao{
		tx(models.TipoReceita, "500", models.NewDate(2024, 5, 3)),
		tx(models.TipoGasto, "120.50", models.NewDate(2024, 5, 10)),
		tx(models.TipoGasto, "79.50", models.NewDate(2024, 5, 31)),
		tx(models.TipoGasto, "1000", models.NewDate(2024, 6, 1)),
		tx(models.TipoReceita, "9999", models.NewDate(2023, 5, 3)),
	}
	cartoes := []models.CartaoFatura{
		{Instituicao: "Nubank", Valor: money.MustParse("300"), Mes: 5, Ano: 2024},
		{Instituicao: "Itaú", Valor: money.MustParse("150"), Mes: 5, Ano: 2024, Pago: true},
		{Instituicao: "Inter", Valor: money.MustParse("80"), Mes: 6, Ano: 2024},
	}

	got := Summarize(money.MustParse("3000"), transacoes, cartoes, Period{Mes: 5, Ano: 2024})

	assert.Equal(t, money.MustParse("3500"), got.TotalReceitas)
	assert.Equal(t, money.MustParse("200"), got.TotalGastos)
	assert.Equal(t, money.MustParse("300"), got.TotalDividasAbertas)
	assert.Equal(t, money.MustParse("3300"), got.SaldoAtual)
	assert.Equal(t, money.MustParse("3000"), got.PlacarDividas)
}

func TestSummarize_EmptyMonthStillCountsSalary(t *testing.T) {
	got := Summarize(money.MustParse("1200"), nil, nil, Period{Mes: 1, Ano: 2025})

	assert.Equal(t, Summary{
		TotalReceitas: money.MustParse("1200"),
		SaldoAtual:    money.MustParse("1200"),
		PlacarDividas: money.MustParse("1200"),
	}, got)
}

func TestSummarize_NegativeScore(t *testing.T) {
	got := Summarize(0,
		[]models.Transacao{tx(models.TipoGasto, "50", models.NewDate(2024, 2, 29))},
		[]models.CartaoFatura{{Valor: money.MustParse("25"), Mes: 2, Ano: 2024}},
		Period{Mes: 2, Ano: 2024},
	)

	assert.Equal(t, money.MustParse("-50"), got.SaldoAtual)
	assert.Equal(t, money.MustParse("-75"), got.PlacarDividas)
}

func TestPeriod(t *testing.T) {
	assert.Equal(t, Period{Mes: 12, Ano: 2023}, Period{Mes: 1, Ano: 2024}.Previous())
	assert.Equal(t, Period{Mes: 6, Ano: 2024}, Period{Mes: 7, Ano: 2024}.Previous())
	assert.Equal(t, Period{Mes: 3, Ano: 2025}, CurrentPeriod(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC)))

	assert.True(t, Period{Mes: 12, Ano: 2024}.Valid())
	assert.False(t, Period{Mes: 13, Ano: 2024}.Valid())
	assert.False(t, Period{Mes: 0, Ano: 2024}.Valid())
}

func TestSummaryFechamento(t *testing.T) {
	s := Summary{TotalReceitas: 10, TotalGastos: 4, SaldoAtual: 6, PlacarDividas: 6}
	f := s.Fechamento("user-1", Period{Mes: 4, Ano: 2024})

	assert.Equal(t, "user-1", f.UserID)
	assert.Equal(t, 4, f.Mes)
	assert.Equal(t, 2024, f.Ano)
	assert.Equal(t, money.Cents(6), f.PlacarDividas)
}
