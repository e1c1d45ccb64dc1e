package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/placar-dev/placar/internal/client"
	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
	"github.com/placar-dev/placar/internal/session"
)

// pageData is what every template receives
type pageData struct {
	Title         string
	Authenticated bool
	Error         string
	Email         string
	Period        ledger.Period
	Today         string
	Summary       *ledger.Summary
	Transacoes    []models.Transacao
	Cartoes       []models.CartaoFatura
}

func (s *Server) render(c *gin.Context, code int, name string, data pageData) {
	data.Authenticated = s.holder.Authenticated()
	if data.Today == "" {
		data.Today = models.DateOf(s.now()).String()
	}
	c.Render(code, render.HTML{Template: s.pages[name], Name: "layout", Data: data})
}

// fail handles an API error. A rejected token has already logged the
// holder out, so the visitor is sent to login.
func (s *Server) fail(c *gin.Context, name string, data pageData, err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		c.Redirect(http.StatusSeeOther, string(s.policy.Login()))
		return
	}

	code := http.StatusBadGateway
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		data.Error = apiErr.Message
		if apiErr.StatusCode < http.StatusInternalServerError {
			code = http.StatusUnprocessableEntity
		}
	} else {
		s.log.Warn().Err(err).Msg("Placar API request failed")
		data.Error = "Não foi possível falar com o servidor"
	}
	s.render(c, code, name, data)
}

// period reads mes/ano from the query, defaulting to the current month
func (s *Server) period(c *gin.Context) ledger.Period {
	p := ledger.CurrentPeriod(s.now())
	if mes, err := strconv.Atoi(c.Query("mes")); err == nil {
		p.Mes = mes
	}
	if ano, err := strconv.Atoi(c.Query("ano")); err == nil {
		p.Ano = ano
	}
	if !p.Valid() {
		return ledger.CurrentPeriod(s.now())
	}
	return p
}

func (s *Server) loginPage(c *gin.Context) {
	s.render(c, http.StatusOK, "login.html", pageData{Title: "Entrar"})
}

func (s *Server) login(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	data := pageData{Title: "Entrar", Email: email}

	token, err := s.api.Login(c.Request.Context(), email, c.PostForm("senha"))
	if err != nil {
		if errors.Is(err, client.ErrInvalidCredentials) {
			data.Error = "Credenciais inválidas"
			s.render(c, http.StatusUnauthorized, "login.html", data)
			return
		}
		s.fail(c, "login.html", data, err)
		return
	}

	if err := session.Establish(s.store, s.holder, token.AccessToken); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist token")
		data.Error = "Não foi possível salvar a sessão"
		s.render(c, http.StatusInternalServerError, "login.html", data)
		return
	}

	c.Redirect(http.StatusSeeOther, string(s.policy.Home()))
}

func (s *Server) registerPage(c *gin.Context) {
	s.render(c, http.StatusOK, "register.html", pageData{Title: "Criar conta"})
}

// register creates the account and signs straight in
func (s *Server) register(c *gin.Context) {
	email := strings.TrimSpace(c.PostForm("email"))
	senha := c.PostForm("senha")
	data := pageData{Title: "Criar conta", Email: email}

	salario := money.Cents(0)
	if raw := strings.TrimSpace(c.PostForm("salario")); raw != "" {
		v, err := money.Parse(raw)
		if err != nil || v < 0 {
			data.Error = "Salário inválido"
			s.render(c, http.StatusUnprocessableEntity, "register.html", data)
			return
		}
		salario = v
	}

	ctx := c.Request.Context()
	if _, err := s.api.Register(ctx, email, senha, salario); err != nil {
		s.fail(c, "register.html", data, err)
		return
	}

	token, err := s.api.Login(ctx, email, senha)
	if err != nil {
		c.Redirect(http.StatusSeeOther, string(s.policy.Login()))
		return
	}
	if err := session.Establish(s.store, s.holder, token.AccessToken); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist token")
		c.Redirect(http.StatusSeeOther, string(s.policy.Login()))
		return
	}

	c.Redirect(http.StatusSeeOther, string(s.policy.Home()))
}

func (s *Server) logout(c *gin.Context) {
	if err := s.holder.MarkLoggedOut(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to remove token")
	}
	c.Redirect(http.StatusSeeOther, string(s.policy.Login()))
}

func (s *Server) dashboard(c *gin.Context) {
	p := s.period(c)
	data := pageData{Title: "Placar", Period: p}

	summary, err := s.api.Dashboard(c.Request.Context(), &p)
	if err != nil {
		s.fail(c, "dashboard.html", data, err)
		return
	}

	data.Summary = summary
	s.render(c, http.StatusOK, "dashboard.html", data)
}

func (s *Server) transacoesPage(c *gin.Context) {
	s.showTransacoes(c, http.StatusOK, "")
}

func (s *Server) showTransacoes(c *gin.Context, code int, formErr string) {
	p := s.period(c)
	data := pageData{Title: "Transações", Period: p}

	list, err := s.api.ListTransacoes(c.Request.Context(), &p)
	if err != nil {
		s.fail(c, "transacoes.html", data, err)
		return
	}

	data.Transacoes = list
	data.Error = formErr
	s.render(c, code, "transacoes.html", data)
}

func (s *Server) createTransacao(c *gin.Context) {
	in, invalid := s.transacaoForm(c)
	if invalid != "" {
		s.showTransacoes(c, http.StatusUnprocessableEntity, invalid)
		return
	}

	if _, err := s.api.CreateTransacao(c.Request.Context(), in); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			s.fail(c, "transacoes.html", pageData{}, err)
			return
		}
		s.showTransacoes(c, http.StatusUnprocessableEntity, apiMessage(err))
		return
	}

	c.Redirect(http.StatusSeeOther, string(RouteTransacoes)+periodQuery(ledger.CurrentPeriod(in.Data.Time)))
}

const msgValorInvalido = "Valor inválido"

// transacaoForm reads the add form. The second result is a message for the
// visitor when the form is invalid.
func (s *Server) transacaoForm(c *gin.Context) (client.TransacaoInput, string) {
	in := client.TransacaoInput{
		Tipo:      c.PostForm("tipo"),
		Categoria: optional(c.PostForm("categoria")),
		Descricao: optional(c.PostForm("descricao")),
		Data:      models.DateOf(s.now()),
	}

	if in.Tipo != models.TipoReceita && in.Tipo != models.TipoGasto {
		return in, "Tipo deve ser receita ou gasto"
	}

	v, err := money.Parse(c.PostForm("valor"))
	if err != nil || v <= 0 {
		return in, msgValorInvalido
	}
	in.Valor = v

	if raw := strings.TrimSpace(c.PostForm("data")); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return in, "Data inválida"
		}
		in.Data = d
	}
	return in, ""
}

func (s *Server) deleteTransacao(c *gin.Context) {
	if err := s.api.DeleteTransacao(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			s.fail(c, "transacoes.html", pageData{}, err)
			return
		}
		s.showTransacoes(c, http.StatusUnprocessableEntity, apiMessage(err))
		return
	}
	c.Redirect(http.StatusSeeOther, string(RouteTransacoes))
}

func (s *Server) cartoesPage(c *gin.Context) {
	s.showCartoes(c, http.StatusOK, "")
}

func (s *Server) showCartoes(c *gin.Context, code int, formErr string) {
	data := pageData{Title: "Faturas", Period: s.period(c)}

	list, err := s.api.ListCartoes(c.Request.Context(), nil)
	if err != nil {
		s.fail(c, "cartoes.html", data, err)
		return
	}

	data.Cartoes = list
	data.Error = formErr
	s.render(c, code, "cartoes.html", data)
}

func (s *Server) createCartao(c *gin.Context) {
	current := ledger.CurrentPeriod(s.now())
	in := client.CartaoInput{
		Instituicao: strings.TrimSpace(c.PostForm("instituicao")),
		Mes:         current.Mes,
		Ano:         current.Ano,
		Pago:        c.PostForm("pago") != "",
	}

	if in.Instituicao == "" {
		s.showCartoes(c, http.StatusUnprocessableEntity, "Instituição é obrigatória")
		return
	}
	v, err := money.Parse(c.PostForm("valor"))
	if err != nil || v < 0 {
		s.showCartoes(c, http.StatusUnprocessableEntity, msgValorInvalido)
		return
	}
	in.Valor = v

	if mes, err := strconv.Atoi(c.PostForm("mes")); err == nil {
		in.Mes = mes
	}
	if ano, err := strconv.Atoi(c.PostForm("ano")); err == nil {
		in.Ano = ano
	}
	if !(ledger.Period{Mes: in.Mes, Ano: in.Ano}).Valid() {
		s.showCartoes(c, http.StatusUnprocessableEntity, "Mês de referência inválido")
		return
	}

	if _, err := s.api.CreateCartao(c.Request.Context(), in); err != nil {
		s.cartaoFailed(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, string(RouteCartoes))
}

func (s *Server) payCartao(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	list, err := s.api.ListCartoes(ctx, nil)
	if err != nil {
		s.cartaoFailed(c, err)
		return
	}

	for _, f := range list {
		if f.ID != id {
			continue
		}
		in := client.CartaoInput{
			Instituicao: f.Instituicao,
			Valor:       f.Valor,
			Mes:         f.Mes,
			Ano:         f.Ano,
			Pago:        true,
		}
		if _, err := s.api.UpdateCartao(ctx, id, in); err != nil {
			s.cartaoFailed(c, err)
			return
		}
		c.Redirect(http.StatusSeeOther, string(RouteCartoes))
		return
	}

	s.showCartoes(c, http.StatusNotFound, "Fatura não encontrada")
}

func (s *Server) deleteCartao(c *gin.Context) {
	if err := s.api.DeleteCartao(c.Request.Context(), c.Param("id")); err != nil {
		s.cartaoFailed(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, string(RouteCartoes))
}

func (s *Server) cartaoFailed(c *gin.Context, err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		s.fail(c, "cartoes.html", pageData{}, err)
		return
	}
	s.showCartoes(c, http.StatusUnprocessableEntity, apiMessage(err))
}

func apiMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Não foi possível falar com o servidor"
}

func periodQuery(p ledger.Period) string {
	return "?mes=" + strconv.Itoa(p.Mes) + "&ano=" + strconv.Itoa(p.Ano)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
