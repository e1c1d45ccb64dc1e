package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/placar-dev/placar/internal/cli/auth"
	"github.com/placar-dev/placar/internal/cli/config"
	"github.com/placar-dev/placar/internal/client"
	"github.com/placar-dev/placar/internal/guard"
	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/logger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
	"github.com/placar-dev/placar/internal/session"
)

// API is the part of the Placar client the commands use
type API interface {
	Register(ctx context.Context, email, senha string, salario money.Cents) (*client.User, error)
	Login(ctx context.Context, email, password string) (*client.Token, error)
	Me(ctx context.Context) (*client.UserDetail, error)
	UpdateSalario(ctx context.Context, salario money.Cents) (*client.User, error)
	ListTransacoes(ctx context.Context, period *ledger.Period) ([]models.Transacao, error)
	CreateTransacao(ctx context.Context, in client.TransacaoInput) (*models.Transacao, error)
	UpdateTransacao(ctx context.Context, id string, in client.TransacaoInput) (*models.Transacao, error)
	DeleteTransacao(ctx context.Context, id string) error
	ListCartoes(ctx context.Context, period *ledger.Period) ([]models.CartaoFatura, error)
	CreateCartao(ctx context.Context, in client.CartaoInput) (*models.CartaoFatura, error)
	UpdateCartao(ctx context.Context, id string, in client.CartaoInput) (*models.CartaoFatura, error)
	DeleteCartao(ctx context.Context, id string) error
	Dashboard(ctx context.Context, period *ledger.Period) (*ledger.Summary, error)
	Fechamentos(ctx context.Context) ([]models.Fechamento, error)
	RequestFechamento(ctx context.Context, period *ledger.Period) (*client.FechamentoRequest, error)
}

// Command routes as seen by the guard. The CLI has no pages, but login and
// register behave like auth-only routes and everything else like protected
// ones.
const (
	routeLogin   guard.Route = "login"
	routeCommand guard.Route = "command"
	routeHome    guard.Route = "dash"
)

var (
	errNotLoggedIn     = errors.New("not logged in, run 'placar login' first")
	errAlreadyLoggedIn = errors.New("already logged in, run 'placar logout' first")
)

// Env is everything a command needs. Tests build one by hand.
type Env struct {
	Config *config.Config
	Store  session.Storage
	Holder *session.Holder
	API    API
	Out    io.Writer
	Log    zerolog.Logger

	closers []func() error
}

// Loader builds an Env for one command invocation
type Loader func() (*Env, error)

// Close stops the session holder and releases the storage
func (e *Env) Close() {
	if e.Holder != nil {
		e.Holder.Close()
	}
	for _, c := range e.closers {
		_ = c()
	}
}

func (e *Env) requireSession() error {
	if guard.RequireSession(e.Holder.Authenticated(), routeCommand, routeLogin) != routeCommand {
		return errNotLoggedIn
	}
	return nil
}

func (e *Env) requireNoSession() error {
	if guard.RequireNoSession(e.Holder.Authenticated(), routeLogin, routeHome) != routeLogin {
		return errAlreadyLoggedIn
	}
	return nil
}

// explain turns a 401 into the login hint; the holder has already logged
// out by then
func explain(err error) error {
	if errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("%w\nRun 'placar login' to sign in again", err)
	}
	return err
}

// DefaultLoader reads the user config, opens the configured token storage
// and wires the API client to a session holder over it
func DefaultLoader(version string) Loader {
	return func() (*Env, error) {
		path, err := config.Path()
		if err != nil {
			return nil, err
		}
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}

		level := "warn"
		if os.Getenv("PLACAR_DEBUG") != "" {
			level = "debug"
		}
		log := logger.Component(logger.New(os.Stderr, level, "console"), "cli")

		store, err := auth.OpenStorage(cfg, log)
		if err != nil {
			return nil, err
		}

		holder := session.NewHolder(store, log)
		if err := holder.Initialize(); err != nil {
			// The value is settled; only live updates are lost
			log.Debug().Err(err).Msg("Session change feed unavailable")
		}

		api := client.New(cfg.ServerURL,
			client.WithSession(store, holder),
			client.WithUserAgent("placar-cli/"+version),
		)

		return &Env{
			Config:  cfg,
			Store:   store,
			Holder:  holder,
			API:     api,
			Out:     os.Stdout,
			Log:     log,
			closers: []func() error{store.Close},
		}, nil
	}
}

// run loads the env, runs fn and releases everything
func run(load Loader, fn func(ctx context.Context, env *Env) error) error {
	env, err := load()
	if err != nil {
		return err
	}
	defer env.Close()
	return explain(fn(context.Background(), env))
}
