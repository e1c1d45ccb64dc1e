package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
)

// User is the account as returned by register and PUT /users/me
type User struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	Salario money.Cents `json:"salario"`
}

// UserDetail is GET /users/me
type UserDetail struct {
	User
	Transacoes []models.Transacao    `json:"transacoes"`
	Cartoes    []models.CartaoFatura `json:"cartoes"`
}

// Token is the password-grant response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// TransacaoInput is the body of create and update. Update replaces every
// field, so send the full record.
type TransacaoInput struct {
	Tipo      string      `json:"tipo"`
	Valor     money.Cents `json:"valor"`
	Categoria *string     `json:"categoria,omitempty"`
	Descricao *string     `json:"descricao,omitempty"`
	Data      models.Date `json:"data"`
}

// CartaoInput is the body of create and update
type CartaoInput struct {
	Instituicao string      `json:"instituicao"`
	Valor       money.Cents `json:"valor"`
	Mes         int         `json:"mes"`
	Ano         int         `json:"ano"`
	Pago        bool        `json:"pago"`
}

// FechamentoRequest acknowledges an enqueued month close
type FechamentoRequest struct {
	TaskID string `json:"task_id"`
	Mes    int    `json:"mes"`
	Ano    int    `json:"ano"`
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, email, senha string, salario money.Cents) (*User, error) {
	body, err := jsonBody(map[string]any{"email": email, "senha": senha, "salario": salario})
	if err != nil {
		return nil, err
	}

	var user User
	err = c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/users/register",
		body:        body,
		contentType: "application/json",
		anonymous:   true,
		expect:      http.StatusCreated,
		out:         &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for a token. Persisting it is the caller's
// job (see session.Establish).
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	form := url.Values{"username": {email}, "password": {password}}

	var token Token
	err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/users/token",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
		anonymous:   true,
		out:         &token,
	})
	if IsStatus(err, http.StatusUnauthorized) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, errors.New("server returned an empty token")
	}
	return &token, nil
}

// Me returns the current user with all transactions and card bills
func (c *Client) Me(ctx context.Context) (*UserDetail, error) {
	var me UserDetail
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/me", out: &me}); err != nil {
		return nil, err
	}
	return &me, nil
}

// UpdateSalario sets the base monthly salary
func (c *Client) UpdateSalario(ctx context.Context, salario money.Cents) (*User, error) {
	body, err := jsonBody(map[string]any{"salario": salario})
	if err != nil {
		return nil, err
	}

	var user User
	err = c.do(ctx, request{
		method:      http.MethodPut,
		path:        "/users/me",
		body:        body,
		contentType: "application/json",
		out:         &user,
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTransacoes lists transactions newest first, optionally for one month
func (c *Client) ListTransacoes(ctx context.Context, period *ledger.Period) ([]models.Transacao, error) {
	var out []models.Transacao
	err := c.do(ctx, request{method: http.MethodGet, path: "/transacoes", query: periodQuery(period), out: &out})
	return out, err
}

// CreateTransacao adds a transaction
func (c *Client) CreateTransacao(ctx context.Context, in TransacaoInput) (*models.Transacao, error) {
	return c.sendTransacao(ctx, http.MethodPost, "/transacoes", in, http.StatusCreated)
}

// UpdateTransacao replaces a transaction
func (c *Client) UpdateTransacao(ctx context.Context, id string, in TransacaoInput) (*models.Transacao, error) {
	return c.sendTransacao(ctx, http.MethodPut, "/transacoes/"+url.PathEscape(id), in, http.StatusOK)
}

func (c *Client) sendTransacao(ctx context.Context, method, path string, in TransacaoInput, expect int) (*models.Transacao, error) {
	body, err := jsonBody(in)
	if err != nil {
		return nil, err
	}

	var t models.Transacao
	err = c.do(ctx, request{
		method:      method,
		path:        path,
		body:        body,
		contentType: "application/json",
		expect:      expect,
		out:         &t,
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteTransacao removes a transaction
func (c *Client) DeleteTransacao(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/transacoes/" + url.PathEscape(id),
		expect: http.StatusNoContent,
	})
}

// ListCartoes lists card bills newest month first, optionally for one month
func (c *Client) ListCartoes(ctx context.Context, period *ledger.Period) ([]models.CartaoFatura, error) {
	var out []models.CartaoFatura
	err := c.do(ctx, request{method: http.MethodGet, path: "/cartoes", query: periodQuery(period), out: &out})
	return out, err
}

// CreateCartao adds a card bill
func (c *Client) CreateCartao(ctx context.Context, in CartaoInput) (*models.CartaoFatura, error) {
	return c.sendCartao(ctx, http.MethodPost, "/cartoes", in, http.StatusCreated)
}

// UpdateCartao replaces a card bill
func (c *Client) UpdateCartao(ctx context.Context, id string, in CartaoInput) (*models.CartaoFatura, error) {
	return c.sendCartao(ctx, http.MethodPut, "/cartoes/"+url.PathEscape(id), in, http.StatusOK)
}

func (c *Client) sendCartao(ctx context.Context, method, path string, in CartaoInput, expect int) (*models.CartaoFatura, error) {
	body, err := jsonBody(in)
	if err != nil {
		return nil, err
	}

	var f models.CartaoFatura
	err = c.do(ctx, request{
		method:      method,
		path:        path,
		body:        body,
		contentType: "application/json",
		expect:      expect,
		out:         &f,
	})
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteCartao removes a card bill
func (c *Client) DeleteCartao(ctx context.Context, id string) error {
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/cartoes/" + url.PathEscape(id),
		expect: http.StatusNoContent,
	})
}

// Dashboard returns the month summary; nil period means the server's
// current month
func (c *Client) Dashboard(ctx context.Context, period *ledger.Period) (*ledger.Summary, error) {
	var summary ledger.Summary
	if err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard", query: periodQuery(period), out: &summary}); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Fechamentos lists closed months, newest first
func (c *Client) Fechamentos(ctx context.Context) ([]models.Fechamento, error) {
	var out []models.Fechamento
	err := c.do(ctx, request{method: http.MethodGet, path: "/dashboard/fechamentos", out: &out})
	return out, err
}

// RequestFechamento asks the server to close a finished month; nil period
// means the previous month
func (c *Client) RequestFechamento(ctx context.Context, period *ledger.Period) (*FechamentoRequest, error) {
	var out FechamentoRequest
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/dashboard/fechamentos",
		query:  periodQuery(period),
		expect: http.StatusAccepted,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks the API is reachable
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, path: "/health", anonymous: true})
}
