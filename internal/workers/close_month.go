package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/metrics"
	"github.com/placar-dev/placar/internal/tasks"
)

// HandleCloseMonth freezes one user's dashboard for a past month into a
// Fechamento row. Running it again for the same month overwrites the totals.
func HandleCloseMonth(ctx context.Context, t *asynq.Task, db *gorm.DB, m *metrics.Metrics, logger zerolog.Logger) error {
	payload, err := tasks.ParseCloseMonthPayload(t)
	if err != nil {
		m.MonthCloses.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	log := logger.With().
		Str("user_id", payload.UserID).
		Int("mes", payload.Mes).
		Int("ano", payload.Ano).
		Logger()

	period := ledger.Period{Mes: payload.Mes, Ano: payload.Ano}
	summary, err := ledger.SummarizeUser(ctx, db, payload.UserID, period)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// User deleted since the task was enqueued
			log.Warn().Msg("User not found, dropping month close")
			m.MonthCloses.WithLabelValues("skipped").Inc()
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		m.MonthCloses.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to summarize month: %w", err)
	}

	fechamento := summary.Fechamento(payload.UserID, period)
	err = db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "mes"}, {Name: "ano"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_receitas",
			"total_gastos",
			"total_dividas_abertas",
			"saldo_atual",
			"placar_dividas",
			"updated_at",
		}),
	}).Create(&fechamento).Error
	if err != nil {
		m.MonthCloses.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to save fechamento: %w", err)
	}

	m.MonthCloses.WithLabelValues("success").Inc()
	log.Info().
		Str("placar_dividas", summary.PlacarDividas.String()).
		Msg("Month closed")

	return nil
}
