package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/placar-dev/placar/internal/auth"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email   string      `json:"email" validate:"required,email"`
	Senha   string      `json:"senha" validate:"required,min=4,max=72"`
	Salario money.Cents `json:"salario" validate:"gte=0"`
}

// TokenResponse follows the OAuth2 password-flow response shape
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserResponse represents user information returned in responses
type UserResponse struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	Salario money.Cents `json:"salario"`
}

// UserDetail is the user together with all of their records
type UserDetail struct {
	UserResponse
	Transacoes []models.Transacao    `json:"transacoes"`
	Cartoes    []models.CartaoFatura `json:"cartoes"`
}

// UpdateUserRequest is a partial update of the current user
type UpdateUserRequest struct {
	Salario *money.Cents `json:"salario" validate:"omitempty,gte=0"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Salario: u.Salario}
}

// @Summary Register
// @Description Create an account
// @Tags users
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Register request"
// @Success 201 {object} UserResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /users/register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": describeValidation(err)})
		return
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check email")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email já cadastrado"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Senha)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Salario:      req.Salario,
	}
	if err := s.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email já cadastrado"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	s.metrics.UsersRegistered.Inc()
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// @Summary Issue token
// @Description Password grant: form fields username (email) and password
// @Tags users
// @Accept x-www-form-urlencoded
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 401 {object} map[string]interface{}
// @Router /users/token [post]
func (s *Server) issueToken(c *gin.Context) {
	email := strings.ToLower(strings.TrimSpace(c.PostForm("username")))
	password := c.PostForm("password")

	invalid := func() {
		s.metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Credenciais inválidas"})
	}

	if email == "" || password == "" {
		invalid()
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			invalid()
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(password, user.PasswordHash); err != nil {
		invalid()
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.metrics.LoginAttempts.WithLabelValues("success").Inc()
	s.logger.Info().Str("user_id", user.ID).Msg("User logged in")

	c.JSON(http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// @Summary Get current user
// @Description The authenticated user with transactions and card bills
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserDetail
// @Failure 401 {object} map[string]interface{}
// @Router /users/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var user models.User
	err := s.db.
		Preload("Transacoes", func(db *gorm.DB) *gorm.DB { return db.Order("data DESC, created_at DESC") }).
		Preload("Cartoes", func(db *gorm.DB) *gorm.DB { return db.Order("ano DESC, mes DESC") }).
		Where("id = ?", sessionData.UserID).
		First(&user).Error
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	detail := UserDetail{
		UserResponse: toUserResponse(&user),
		Transacoes:   user.Transacoes,
		Cartoes:      user.Cartoes,
	}
	if detail.Transacoes == nil {
		detail.Transacoes = []models.Transacao{}
	}
	if detail.Cartoes == nil {
		detail.Cartoes = []models.CartaoFatura{}
	}

	c.JSON(http.StatusOK, detail)
}

// @Summary Update current user
// @Description Update the base monthly salary
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateUserRequest true "Fields to update"
// @Success 200 {object} UserResponse
// @Router /users/me [put]
func (s *Server) updateCurrentUser(c *gin.Context) {
	sessionData, _ := GetSessionData(c)

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := s.validator.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Validation failed", "details": describeValidation(err)})
		return
	}

	var user models.User
	if err := models.FindByID(s.db, sessionData.UserID, &user); err != nil {
		s.logger.Error().Err(err).Str("user_id", sessionData.UserID).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if req.Salario != nil {
		user.Salario = *req.Salario
		if err := s.db.Model(&user).Update("salario", user.Salario).Error; err != nil {
			s.logger.Error().Err(err).Msg("Failed to update user")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
	}

	c.JSON(http.StatusOK, toUserResponse(&user))
}
