package ledger

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/placar-dev/placar/internal/models"
)

// Before reports whether p is strictly earlier than other
func (p Period) Before(other Period) bool {
	if p.Ano != other.Ano {
		return p.Ano < other.Ano
	}
	return p.Mes < other.Mes
}

// SummarizeUser loads one user's records for period and summarizes them
func SummarizeUser(ctx context.Context, db *gorm.DB, userID string, period Period) (Summary, error) {
	db = db.WithContext(ctx)

	var user models.User
	if err := models.FindByID(db.Select("id", "salario"), userID, &user); err != nil {
		return Summary{}, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	start, end := models.MonthRange(period.Mes, period.Ano)
	var transacoes []models.Transacao
	if err := db.Where("user_id = ? AND data >= ? AND data < ?", userID, start, end).
		Find(&transacoes).Error; err != nil {
		return Summary{}, fmt.Errorf("failed to load transacoes: %w", err)
	}

	var cartoes []models.CartaoFatura
	if err := db.Where("user_id = ? AND mes = ? AND ano = ?", userID, period.Mes, period.Ano).
		Find(&cartoes).Error; err != nil {
		return Summary{}, fmt.Errorf("failed to load cartoes: %w", err)
	}

	return Summarize(user.Salario, transacoes, cartoes, period), nil
}
