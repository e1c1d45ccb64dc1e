package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	// Freeze one user's dashboard summary for a past month
	TypeCloseMonth = "fechamento:close_month"
)

// Queue names
const (
	QueueDefault = "default"
	QueueLow     = "low"
)

// CloseMonthPayload identifies the user and month to close
type CloseMonthPayload struct {
	UserID string `json:"user_id"`
	Mes    int    `json:"mes"`
	Ano    int    `json:"ano"`
}

// NewCloseMonthTask creates a month-close task. The task ID is derived from
// the payload so re-enqueueing the same month is rejected as a duplicate
// while the first one is pending.
func NewCloseMonthTask(userID string, mes, ano int) (*asynq.Task, error) {
	payload, err := json.Marshal(CloseMonthPayload{
		UserID: userID,
		Mes:    mes,
		Ano:    ano,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeCloseMonth, payload,
		asynq.TaskID(CloseMonthTaskID(userID, mes, ano)),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	), nil
}

// CloseMonthTaskID is the deduplication key of a month-close task
func CloseMonthTaskID(userID string, mes, ano int) string {
	return fmt.Sprintf("close:%s:%04d-%02d", userID, ano, mes)
}

// ParseCloseMonthPayload parses task payload from Asynq task
func ParseCloseMonthPayload(task *asynq.Task) (CloseMonthPayload, error) {
	var payload CloseMonthPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.UserID == "" || payload.Mes < 1 || payload.Mes > 12 || payload.Ano <= 0 {
		return payload, fmt.Errorf("invalid close month payload: %+v", payload)
	}
	return payload, nil
}
