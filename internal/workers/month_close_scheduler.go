package workers

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/tasks"
)

const userBatchSize = 200

// Enqueuer is the part of the asynq client the scheduler needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// StartMonthCloseScheduler runs EnqueueMonthCloses for the previous month on
// the given cron schedule. The caller stops the returned cron on shutdown.
func StartMonthCloseScheduler(schedule string, client Enqueuer, db *gorm.DB, logger zerolog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))

	_, err := c.AddFunc(schedule, func() {
		period := ledger.CurrentPeriod(time.Now()).Previous()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := EnqueueMonthCloses(ctx, client, db, period, logger); err != nil {
			logger.Error().Err(err).Msg("Month close run failed")
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Info().Str("schedule", schedule).Msg("Month close scheduler started")
	return c, nil
}

// EnqueueMonthCloses enqueues one close task per user for period. Tasks that
// are already queued count as done.
func EnqueueMonthCloses(ctx context.Context, client Enqueuer, db *gorm.DB, period ledger.Period, logger zerolog.Logger) (int, error) {
	enqueued := 0
	var users []models.User

	result := db.WithContext(ctx).Select("id").Order("id").FindInBatches(&users, userBatchSize, func(tx *gorm.DB, batch int) error {
		for _, user := range users {
			task, err := tasks.NewCloseMonthTask(user.ID, period.Mes, period.Ano)
			if err != nil {
				return err
			}

			_, err = client.EnqueueContext(ctx, task, asynq.Queue(tasks.QueueLow))
			switch {
			case err == nil:
				enqueued++
			case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
				logger.Debug().Str("user_id", user.ID).Msg("Month close already queued")
			default:
				return err
			}
		}
		return nil
	})
	if result.Error != nil {
		return enqueued, result.Error
	}

	logger.Info().
		Int("mes", period.Mes).
		Int("ano", period.Ano).
		Int("enqueued", enqueued).
		Msg("Month close tasks enqueued")

	return enqueued, nil
}
