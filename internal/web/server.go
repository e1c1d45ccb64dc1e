// Package web serves the local browser UI started by `placar ui`. It owns
// one session holder for the process; every page goes through the route
// guard, and open pages reload when the session changes elsewhere.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/placar-dev/placar/internal/client"
	"github.com/placar-dev/placar/internal/guard"
	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
	"github.com/placar-dev/placar/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// Routes
const (
	RouteRoot       guard.Route = "/"
	RouteLogin      guard.Route = "/login"
	RouteRegister   guard.Route = "/register"
	RouteLogout     guard.Route = "/logout"
	RouteDashboard  guard.Route = "/dashboard"
	RouteTransacoes guard.Route = "/transacoes"
	RouteCartoes    guard.Route = "/cartoes"
	RouteEvents     guard.Route = "/events"
)

// API is the part of the Placar client the UI uses
type API interface {
	Register(ctx context.Context, email, senha string, salario money.Cents) (*client.User, error)
	Login(ctx context.Context, email, password string) (*client.Token, error)
	Dashboard(ctx context.Context, period *ledger.Period) (*ledger.Summary, error)
	ListTransacoes(ctx context.Context, period *ledger.Period) ([]models.Transacao, error)
	CreateTransacao(ctx context.Context, in client.TransacaoInput) (*models.Transacao, error)
	DeleteTransacao(ctx context.Context, id string) error
	ListCartoes(ctx context.Context, period *ledger.Period) ([]models.CartaoFatura, error)
	CreateCartao(ctx context.Context, in client.CartaoInput) (*models.CartaoFatura, error)
	UpdateCartao(ctx context.Context, id string, in client.CartaoInput) (*models.CartaoFatura, error)
	DeleteCartao(ctx context.Context, id string) error
}

// Server is the local UI
type Server struct {
	router *gin.Engine
	api    API
	store  session.Storage
	holder *session.Holder
	policy *guard.Policy
	pages  map[string]*template.Template
	log    zerolog.Logger
	now    func() time.Time

	// closed on shutdown so open event streams return
	done chan struct{}

	keepAlive time.Duration
}

// NewPolicy returns the route classes of the UI
func NewPolicy() *guard.Policy {
	return guard.NewPolicy(RouteLogin, RouteDashboard).
		AuthOnly(RouteRegister).
		Protect(
			RouteLogout,
			RouteTransacoes,
			"/transacoes/:id/excluir",
			RouteCartoes,
			"/cartoes/:id/pagar",
			"/cartoes/:id/excluir",
		).
		Public(RouteRoot, RouteEvents)
}

// New creates the UI server. holder must be initialized over store.
func New(api API, store session.Storage, holder *session.Holder, log zerolog.Logger) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	s := &Server{
		api:       api,
		store:     store,
		holder:    holder,
		policy:    NewPolicy(),
		pages:     pages,
		log:       log.With().Str("component", "web").Logger(),
		now:       time.Now,
		done:      make(chan struct{}),
		keepAlive: 25 * time.Second,
	}
	s.setupRouter()
	return s, nil
}

var templateFuncs = template.FuncMap{
	"brl": func(c money.Cents) string { return c.BRL() },
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
	"neg": func(c money.Cents) bool { return c < 0 },
}

// parsePages builds one template set per page so each can define its own
// "content" block
func parsePages() (map[string]*template.Template, error) {
	entries, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template)
	for _, entry := range entries {
		name := entry[len("templates/"):]
		if name == "layout.html" {
			continue
		}
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(s.sameOriginMiddleware())
	s.router.Use(guard.Middleware(s.policy, s.holder, s.log))

	s.router.GET(string(RouteRoot), func(c *gin.Context) {
		c.Redirect(http.StatusSeeOther, string(s.policy.Home()))
	})
	s.router.GET(string(RouteEvents), s.events)

	s.router.GET(string(RouteLogin), s.loginPage)
	s.router.POST(string(RouteLogin), s.login)
	s.router.GET(string(RouteRegister), s.registerPage)
	s.router.POST(string(RouteRegister), s.register)
	s.router.POST(string(RouteLogout), s.logout)

	s.router.GET(string(RouteDashboard), s.dashboard)

	s.router.GET(string(RouteTransacoes), s.transacoesPage)
	s.router.POST(string(RouteTransacoes), s.createTransacao)
	s.router.POST("/transacoes/:id/excluir", s.deleteTransacao)

	s.router.GET(string(RouteCartoes), s.cartoesPage)
	s.router.POST(string(RouteCartoes), s.createCartao)
	s.router.POST("/cartoes/:id/pagar", s.payCartao)
	s.router.POST("/cartoes/:id/excluir", s.deleteCartao)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if c.FullPath() == string(RouteEvents) {
			return
		}
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("UI request")
	}
}

// sameOriginMiddleware refuses state-changing requests sent by pages on
// other origins. The UI has no tokens in its forms, so the browser's own
// Sec-Fetch-Site, Origin and Referer headers decide. Requests carrying none
// of them do not come from a browser and pass.
func (s *Server) sameOriginMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !sameOrigin(c.Request) {
			s.log.Warn().
				Str("method", c.Request.Method).
				Str("path", c.Request.URL.Path).
				Str("origin", c.GetHeader("Origin")).
				Msg("Rejected cross-origin request")
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	}
}

func sameOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "", "same-origin", "none":
	default:
		return false
	}

	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" {
		return true
	}

	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().Str("address", addr).Msg("Starting local UI")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	close(s.done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
