package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/tasks"
)

// FechamentoRequestResponse acknowledges an enqueued month close
type FechamentoRequestResponse struct {
	TaskID string `json:"task_id"`
	Mes    int    `json:"mes"`
	Ano    int    `json:"ano"`
}

// @Summary Dashboard
// @Description Month totals; defaults to the current month
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param mes query int false "Month 1..12"
// @Param ano query int false "Year"
// @Success 200 {object} ledger.Summary
// @Router /dashboard [get]
func (s *Server) getDashboard(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	period, filtered, err := s.periodFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !filtered {
		period = ledger.CurrentPeriod(s.now())
	}

	summary, err := ledger.SummarizeUser(c.Request.Context(), s.db, sessionData.UserID, period)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to compute dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary List month closings
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Fechamento
// @Router /dashboard/fechamentos [get]
func (s *Server) listFechamentos(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	fechamentos := []models.Fechamento{}
	if err := s.db.Where("user_id = ?", sessionData.UserID).
		Order("ano DESC, mes DESC").
		Find(&fechamentos).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list fechamentos")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, fechamentos)
}

// @Summary Request a month closing
// @Description Enqueues the close of a finished month; defaults to the previous month
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param mes query int false "Month 1..12"
// @Param ano query int false "Year"
// @Success 202 {object} FechamentoRequestResponse
// @Failure 409 {object} map[string]interface{}
// @Router /dashboard/fechamentos [post]
func (s *Server) requestFechamento(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	current := ledger.CurrentPeriod(s.now())
	period, filtered, err := s.periodFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !filtered {
		period = current.Previous()
	}
	if !period.Before(current) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Só é possível fechar meses encerrados"})
		return
	}

	task, err := tasks.NewCloseMonthTask(sessionData.UserID, period.Mes, period.Ano)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create close month task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	info, err := s.tasks.EnqueueContext(c.Request.Context(), task, asynq.Queue(tasks.QueueDefault))
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			c.JSON(http.StatusConflict, gin.H{"error": "Fechamento já solicitado"})
			return
		}
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to enqueue close month task")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Fila indisponível"})
		return
	}

	s.logger.Info().
		Str("task_id", info.ID).
		Str("user_id", sessionData.UserID).
		Int("mes", period.Mes).
		Int("ano", period.Ano).
		Msg("Month close enqueued")

	c.JSON(http.StatusAccepted, FechamentoRequestResponse{TaskID: info.ID, Mes: period.Mes, Ano: period.Ano})
}
