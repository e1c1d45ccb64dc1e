// Package server
//
// @title Placar API
// @version 1.0
// @description Personal finance tracking API
// @host localhost:8000
// @BasePath /
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/placar-dev/placar/internal/auth"
	"github.com/placar-dev/placar/internal/config"
	"github.com/placar-dev/placar/internal/metrics"
	"github.com/placar-dev/placar/internal/models"
)

// TaskEnqueuer is the part of the asynq client the API uses
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	tasks     TaskEnqueuer
	metrics   *metrics.Metrics
	now       func() time.Time
	version   string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := OpenDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Initialize Asynq client for enqueueing month closes
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	return newServer(cfg, db, zlog, version, asynqClient, metrics.New())
}

func newServer(cfg *config.Config, db *gorm.DB, zlog zerolog.Logger, version string, tasks TaskEnqueuer, m *metrics.Metrics) (*Server, error) {
	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	auth.InitializeJWT(cfg.Auth.SecretKey, cfg.Auth.TokenTTL)

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog.With().Str("component", "api").Logger(),
		validator: newValidator(),
		tasks:     tasks,
		metrics:   m,
		now:       time.Now,
		version:   version,
	}

	server.setupRouter()

	return server, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.metricsMiddleware())
	s.router.Use(cors.New(s.corsConfig()))

	// Operational endpoints (no auth required)
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Public auth endpoints
	s.router.POST("/users/register", s.register)
	s.router.POST("/users/token", s.issueToken)

	// Authenticated routes (JWT required)
	api := s.router.Group("")
	api.Use(JWTAuthMiddleware(s.db, s.logger))
	{
		api.GET("/users/me", s.getCurrentUser)
		api.PUT("/users/me", s.updateCurrentUser)

		api.GET("/transacoes", s.listTransacoes)
		api.POST("/transacoes", s.createTransacao)
		api.PUT("/transacoes/:id", s.updateTransacao)
		api.DELETE("/transacoes/:id", s.deleteTransacao)

		api.GET("/cartoes", s.listCartoes)
		api.POST("/cartoes", s.createCartao)
		api.PUT("/cartoes/:id", s.updateCartao)
		api.DELETE("/cartoes/:id", s.deleteCartao)

		api.GET("/dashboard", s.getDashboard)
		api.GET("/dashboard/fechamentos", s.listFechamentos)
		api.POST("/dashboard/fechamentos", s.requestFechamento)
	}
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "WWW-Authenticate"},
		MaxAge:        12 * time.Hour,
	}

	origins := s.config.HTTP.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	status := "online"
	code := http.StatusOK
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": s.now().UTC(),
		"service":   "placar-api",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Run serves HTTP until ctx is cancelled, then drains requests, closes the
// task client and the database
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.HTTP.Address,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		return err
	case <-ctx.Done():
	}
	s.logger.Info().Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	if cerr := s.tasks.Close(); cerr != nil {
		s.logger.Warn().Err(cerr).Msg("Error closing Asynq client")
	}

	// Flushes the sqlite WAL
	if sqlDB, dberr := s.db.DB(); dberr == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			s.logger.Error().Err(cerr).Msg("Error closing database")
		}
	}

	s.logger.Info().Msg("Server shutdown complete")
	return err
}
