package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

// TransacaoRequest is the body of create and update. Update replaces every
// field.
type TransacaoRequest struct {
	Tipo      string      `json:"tipo" validate:"required,tipo"`
	Valor     money.Cents `json:"valor" validate:"gt=0"`
	Categoria *string     `json:"categoria" validate:"omitempty,max=100"`
	Descricao *string     `json:"descricao" validate:"omitempty,max=255"`
	Data      models.Date `json:"data"`
}

func (r *TransacaoRequest) apply(t *models.Transacao) {
	t.Tipo = r.Tipo
	t.Valor = r.Valor
	t.Categoria = r.Categoria
	t.Descricao = r.Descricao
	t.Data = r.Data
}

func (s *Server) bindTransacao(c *gin.Context) (*TransacaoRequest, bool) {
	var req TransacaoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return nil, false
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": describeValidation(err)})
		return nil, false
	}
	if req.Data.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": "data: required"})
		return nil, false
	}
	return &req, true
}

// loadOwnedTransacao fetches the transaction and checks it belongs to the
// caller, writing the error response itself when it does not
func (s *Server) loadOwnedTransacao(c *gin.Context, action string) (*models.Transacao, bool) {
	sessionData, _ := GetSessionData(c)

	var t models.Transacao
	if err := models.FindByID(s.db, c.Param("id"), &t); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transação não encontrada"})
			return nil, false
		}
		s.logger.Error().Err(err).Str("transacao_id", c.Param("id")).Msg("Failed to find transacao")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}

	if t.UserID != sessionData.UserID {
		s.logger.Warn().
			Str("transacao_id", t.ID).
			Str("user_id", sessionData.UserID).
			Msg("Rejected access to another user's transacao")
		c.JSON(http.StatusForbidden, gin.H{"error": "Não tem permissão para " + action + " esta transação"})
		return nil, false
	}

	return &t, true
}

// @Summary List transactions
// @Description Newest first, optionally limited to one month
// @Tags transacoes
// @Produce json
// @Security BearerAuth
// @Param mes query int false "Month 1..12"
// @Param ano query int false "Year"
// @Success 200 {array} models.Transacao
// @Router /transacoes [get]
func (s *Server) listTransacoes(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	period, filtered, err := s.periodFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := s.db.Where("user_id = ?", sessionData.UserID)
	if filtered {
		start, end := models.MonthRange(period.Mes, period.Ano)
		query = query.Where("data >= ? AND data < ?", start, end)
	}

	transacoes := []models.Transacao{}
	if err := query.Order("data DESC, created_at DESC").Find(&transacoes).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list transacoes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, transacoes)
}

// @Summary Create transaction
// @Tags transacoes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransacaoRequest true "Transaction"
// @Success 201 {object} models.Transacao
// @Router /transacoes [post]
func (s *Server) createTransacao(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	req, ok := s.bindTransacao(c)
	if !ok {
		return
	}

	t := models.Transacao{UserID: sessionData.UserID}
	req.apply(&t)
	if err := s.db.Create(&t).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create transacao")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create transacao"})
		return
	}

	s.logger.Info().
		Str("transacao_id", t.ID).
		Str("user_id", t.UserID).
		Str("tipo", t.Tipo).
		Msg("Transacao created")

	c.JSON(http.StatusCreated, t)
}

// @Summary Update transaction
// @Tags transacoes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Param request body TransacaoRequest true "Transaction"
// @Success 200 {object} models.Transacao
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /transacoes/{id} [put]
func (s *Server) updateTransacao(c *gin.Context) {
	t, ok := s.loadOwnedTransacao(c, "alterar")
	if !ok {
		return
	}

	req, ok := s.bindTransacao(c)
	if !ok {
		return
	}

	req.apply(t)
	if err := s.db.Save(t).Error; err != nil {
		s.logger.Error().Err(err).Str("transacao_id", t.ID).Msg("Failed to update transacao")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update transacao"})
		return
	}

	c.JSON(http.StatusOK, t)
}

// @Summary Delete transaction
// @Tags transacoes
// @Security BearerAuth
// @Param id path string true "Transaction ID"
// @Success 204
// @Router /transacoes/{id} [delete]
func (s *Server) deleteTransacao(c *gin.Context) {
	t, ok := s.loadOwnedTransacao(c, "deletar")
	if !ok {
		return
	}

	if err := s.db.Delete(t).Error; err != nil {
		s.logger.Error().Err(err).Str("transacao_id", t.ID).Msg("Failed to delete transacao")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete transacao"})
		return
	}

	c.Status(http.StatusNoContent)
}
