package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloseMonthTask(t *testing.T) {
	task, err := NewCloseMonthTask("01HZX0000000000000000000AB", 3, 2024)
	require.NoError(t, err)
	assert.Equal(t, TypeCloseMonth, task.Type())

	payload, err := ParseCloseMonthPayload(task)
	require.NoError(t, err)
	assert.Equal(t, CloseMonthPayload{UserID: "01HZX0000000000000000000AB", Mes: 3, Ano: 2024}, payload)

	assert.Equal(t, "close:01HZX0000000000000000000AB:2024-03", CloseMonthTaskID("01HZX0000000000000000000AB", 3, 2024))
}

func TestParseCloseMonthPayload_Invalid(t *testing.T) {
	for _, raw := range []string{`not json`, `{"user_id":"","mes":1,"ano":2024}`, `{"user_id":"u","mes":13,"ano":2024}`} {
		_, err := ParseCloseMonthPayload(asynq.NewTask(TypeCloseMonth, []byte(raw)))
		assert.Error(t, err, raw)
	}
}
