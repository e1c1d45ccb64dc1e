package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

// CartaoRequest is the body of create and update
type CartaoRequest struct {
	Instituicao string      `json:"instituicao" validate:"required,notblank,max=100"`
	Valor       money.Cents `json:"valor" validate:"gte=0"`
	Mes         int         `json:"mes" validate:"min=1,max=12"`
	Ano         int         `json:"ano" validate:"min=1"`
	Pago        bool        `json:"pago"`
}

func (r *CartaoRequest) apply(f *models.CartaoFatura) {
	f.Instituicao = strings.TrimSpace(r.Instituicao)
	f.Valor = r.Valor
	f.Mes = r.Mes
	f.Ano = r.Ano
	f.Pago = r.Pago
}

func (s *Server) bindCartao(c *gin.Context) (*CartaoRequest, bool) {
	var req CartaoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return nil, false
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": describeValidation(err)})
		return nil, false
	}
	return &req, true
}

func (s *Server) loadOwnedCartao(c *gin.Context, action string) (*models.CartaoFatura, bool) {
	sessionData, _ := GetSessionData(c)

	var f models.CartaoFatura
	if err := models.FindByID(s.db, c.Param("id"), &f); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Fatura não encontrada"})
			return nil, false
		}
		s.logger.Error().Err(err).Str("cartao_id", c.Param("id")).Msg("Failed to find fatura")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}

	if f.UserID != sessionData.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Não tem permissão para " + action + " esta fatura"})
		return nil, false
	}

	return &f, true
}

// @Summary List card bills
// @Tags cartoes
// @Produce json
// @Security BearerAuth
// @Param mes query int false "Month 1..12"
// @Param ano query int false "Year"
// @Success 200 {array} models.CartaoFatura
// @Router /cartoes [get]
func (s *Server) listCartoes(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	period, filtered, err := s.periodFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := s.db.Where("user_id = ?", sessionData.UserID)
	if filtered {
		query = query.Where("mes = ? AND ano = ?", period.Mes, period.Ano)
	}

	cartoes := []models.CartaoFatura{}
	if err := query.Order("ano DESC, mes DESC").Find(&cartoes).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to list cartoes")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, cartoes)
}

// @Summary Add card bill
// @Tags cartoes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CartaoRequest true "Card bill"
// @Success 201 {object} models.CartaoFatura
// @Router /cartoes [post]
func (s *Server) createCartao(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	req, ok := s.bindCartao(c)
	if !ok {
		return
	}

	f := models.CartaoFatura{UserID: sessionData.UserID}
	req.apply(&f)
	if err := s.db.Create(&f).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create fatura")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create fatura"})
		return
	}

	s.logger.Info().
		Str("cartao_id", f.ID).
		Str("user_id", f.UserID).
		Int("mes", f.Mes).
		Int("ano", f.Ano).
		Msg("Fatura created")

	c.JSON(http.StatusCreated, f)
}

// @Summary Update card bill
// @Tags cartoes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Card bill ID"
// @Param request body CartaoRequest true "Card bill"
// @Success 200 {object} models.CartaoFatura
// @Router /cartoes/{id} [put]
func (s *Server) updateCartao(c *gin.Context) {
	f, ok := s.loadOwnedCartao(c, "alterar")
	if !ok {
		return
	}

	req, ok := s.bindCartao(c)
	if !ok {
		return
	}

	req.apply(f)
	// Select("*") so pago=false is written too
	if err := s.db.Model(f).Select("*").Omit("id", "user_id", "created_at").Updates(f).Error; err != nil {
		s.logger.Error().Err(err).Str("cartao_id", f.ID).Msg("Failed to update fatura")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update fatura"})
		return
	}

	c.JSON(http.StatusOK, f)
}

// @Summary Delete card bill
// @Tags cartoes
// @Security BearerAuth
// @Param id path string true "Card bill ID"
// @Success 204
// @Router /cartoes/{id} [delete]
func (s *Server) deleteCartao(c *gin.Context) {
	f, ok := s.loadOwnedCartao(c, "deletar")
	if !ok {
		return
	}

	if err := s.db.Delete(f).Error; err != nil {
		s.logger.Error().Err(err).Str("cartao_id", f.ID).Msg("Failed to delete fatura")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete fatura"})
		return
	}

	c.Status(http.StatusNoContent)
}
