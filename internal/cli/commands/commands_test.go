package commands

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/placar-dev/placar/internal/cli/config"
	"github.com/placar-dev/placar/internal/client"
	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/models"
	"github.com/placar-dev/placar/internal/money"
	"github.com/placar-dev/placar/internal/session"
)

// mockAPI simulates the Placar API. rejectToken makes authenticated calls
// behave like a 401 seen through client.WithSession.
type mockAPI struct {
	holder      *session.Holder
	rejectToken bool

	me         *client.UserDetail
	transacoes []models.Transacao
	cartoes    []models.CartaoFatura
	summary    *ledger.Summary
	fechamento error

	loginEmail    string
	createdTx     *client.TransacaoInput
	updatedTx     *client.TransacaoInput
	updatedCartao *client.CartaoInput
	dashPeriod    *ledger.Period
	calls         int
}

func (m *mockAPI) authorize() error {
	m.calls++
	if m.rejectToken {
		_ = m.holder.MarkLoggedOut()
		return client.ErrUnauthorized
	}
	return nil
}

func (m *mockAPI) Register(_ context.Context, email, _ string, salario money.Cents) (*client.User, error) {
	m.calls++
	return &client.User{ID: "u1", Email: email, Salario: salario}, nil
}

func (m *mockAPI) Login(_ context.Context, email, password string) (*client.Token, error) {
	m.calls++
	m.loginEmail = email
	if password != "secret" {
		return nil, client.ErrInvalidCredentials
	}
	return &client.Token{AccessToken: "issued-token", TokenType: "bearer"}, nil
}

func (m *mockAPI) Me(context.Context) (*client.UserDetail, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	return m.me, nil
}

func (m *mockAPI) UpdateSalario(_ context.Context, salario money.Cents) (*client.User, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	return &client.User{ID: "u1", Email: "ana@example.com", Salario: salario}, nil
}

func (m *mockAPI) ListTransacoes(context.Context, *ledger.Period) ([]models.Transacao, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	return m.transacoes, nil
}

func (m *mockAPI) CreateTransacao(_ context.Context, in client.TransacaoInput) (*models.Transacao, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	m.createdTx = &in
	t := models.Transacao{Tipo: in.Tipo, Valor: in.Valor, Data: in.Data}
	t.ID = "new-tx"
	return &t, nil
}

func (m *mockAPI) UpdateTransacao(_ context.Context, id string, in client.TransacaoInput) (*models.Transacao, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	m.updatedTx = &in
	t := models.Transacao{Tipo: in.Tipo, Valor: in.Valor, Data: in.Data}
	t.ID = id
	return &t, nil
}

func (m *mockAPI) DeleteTransacao(context.Context, string) error {
	return m.authorize()
}

func (m *mockAPI) ListCartoes(context.Context, *ledger.Period) ([]models.CartaoFatura, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	return m.cartoes, nil
}

func (m *mockAPI) CreateCartao(_ context.Context, in client.CartaoInput) (*models.CartaoFatura, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	f := models.CartaoFatura{Instituicao: in.Instituicao, Valor: in.Valor, Mes: in.Mes, Ano: in.Ano, Pago: in.Pago}
	f.ID = "new-card"
	return &f, nil
}

func (m *mockAPI) UpdateCartao(_ context.Context, id string, in client.CartaoInput) (*models.CartaoFatura, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	m.updatedCartao = &in
	f := models.CartaoFatura{Instituicao: in.Instituicao, Valor: in.Valor, Mes: in.Mes, Ano: in.Ano, Pago: in.Pago}
	f.ID = id
	return &f, nil
}

func (m *mockAPI) DeleteCartao(context.Context, string) error {
	return m.authorize()
}

func (m *mockAPI) Dashboard(_ context.Context, period *ledger.Period) (*ledger.Summary, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	m.dashPeriod = period
	return m.summary, nil
}

func (m *mockAPI) Fechamentos(context.Context) ([]models.Fechamento, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *mockAPI) RequestFechamento(_ context.Context, period *ledger.Period) (*client.FechamentoRequest, error) {
	if err := m.authorize(); err != nil {
		return nil, err
	}
	if m.fechamento != nil {
		return nil, m.fechamento
	}
	return &client.FechamentoRequest{TaskID: "close-month:u1:2024-02", Mes: 2, Ano: 2024}, nil
}

// newTestEnv builds an Env over an in-memory store, optionally with a
// stored token
func newTestEnv(t *testing.T, token string) (*Env, *mockAPI, *bytes.Buffer) {
	t.Helper()

	store := session.NewMemory().View()
	if token != "" {
		if err := store.Set(session.TokenKey, token); err != nil {
			t.Fatalf("failed to seed token: %v", err)
		}
	}

	holder := session.NewHolder(store, zerolog.Nop())
	if err := holder.Initialize(); err != nil {
		t.Fatalf("failed to initialize holder: %v", err)
	}

	api := &mockAPI{holder: holder}
	var out bytes.Buffer

	env := &Env{
		Config: config.DefaultConfig(),
		Store:  store,
		Holder: holder,
		API:    api,
		Out:    &out,
		Log:    zerolog.Nop(),
	}
	t.Cleanup(env.Close)

	return env, api, &out
}

func strPtr(s string) *string { return &s }

var march2024 = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

// TestLogin_EstablishesSession tests that a successful login persists the
// token and flips the holder
func TestLogin_EstablishesSession(t *testing.T) {
	env, api, out := newTestEnv(t, "")

	err := runLogin(context.Background(), env, "  ana@example.com ", "secret")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	if !env.Holder.Authenticated() {
		t.Error("expected holder to be authenticated after login")
	}
	if token, ok := session.ReadToken(env.Store); !ok || token != "issued-token" {
		t.Errorf("expected stored token 'issued-token', got %q (present=%v)", token, ok)
	}
	if api.loginEmail != "ana@example.com" {
		t.Errorf("expected trimmed email, got %q", api.loginEmail)
	}
	if !strings.Contains(out.String(), "Login successful") {
		t.Errorf("expected success message, got: %s", out.String())
	}
}

// TestLogin_BadCredentials tests that a rejected password stores nothing
func TestLogin_BadCredentials(t *testing.T) {
	env, _, _ := newTestEnv(t, "")

	err := runLogin(context.Background(), env, "ana@example.com", "wrong")
	if !errors.Is(err, client.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if env.Holder.Authenticated() {
		t.Error("holder must stay logged out")
	}
	if _, ok := session.ReadToken(env.Store); ok {
		t.Error("no token should be stored")
	}
}

// TestLogin_AlreadyLoggedIn tests the auth-only guard on login and register
func TestLogin_AlreadyLoggedIn(t *testing.T) {
	env, api, _ := newTestEnv(t, "existing")

	if err := runLogin(context.Background(), env, "ana@example.com", "secret"); !errors.Is(err, errAlreadyLoggedIn) {
		t.Errorf("expected errAlreadyLoggedIn from login, got %v", err)
	}
	if err := runRegister(context.Background(), env, "ana@example.com", "secret", "0"); !errors.Is(err, errAlreadyLoggedIn) {
		t.Errorf("expected errAlreadyLoggedIn from register, got %v", err)
	}
	if api.calls != 0 {
		t.Errorf("expected no API calls, got %d", api.calls)
	}
}

// TestRegister tests account creation output and salary parsing
func TestRegister(t *testing.T) {
	env, _, out := newTestEnv(t, "")

	if err := runRegister(context.Background(), env, "ana@example.com", "secret", "3.500,00"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !strings.Contains(out.String(), "R$ 3.500,00") {
		t.Errorf("expected salary in output, got: %s", out.String())
	}
	if env.Holder.Authenticated() {
		t.Error("register must not log in by itself")
	}

	if err := runRegister(context.Background(), env, "", "secret", "0"); err == nil {
		t.Error("expected error for missing email")
	}
}

// TestProtectedCommands_RequireSession tests that protected commands fail
// without a token and never reach the API
func TestProtectedCommands_RequireSession(t *testing.T) {
	env, api, _ := newTestEnv(t, "")
	ctx := context.Background()

	commands := map[string]func() error{
		"me":      func() error { return runMe(ctx, env) },
		"salario": func() error { return runSalario(ctx, env, "100") },
		"tx ls":   func() error { return runTxList(ctx, env, nil) },
		"tx rm":   func() error { return runTxRemove(ctx, env, "x") },
		"cards":   func() error { return runCardsList(ctx, env, nil) },
		"pay":     func() error { return runCardsPay(ctx, env, "x") },
		"dash":    func() error { return runDash(ctx, env, nil, march2024) },
		"history": func() error { return runHistory(ctx, env) },
	}

	for name, fn := range commands {
		if err := fn(); !errors.Is(err, errNotLoggedIn) {
			t.Errorf("%s: expected errNotLoggedIn, got %v", name, err)
		}
	}
	if api.calls != 0 {
		t.Errorf("expected no API calls, got %d", api.calls)
	}
}

// TestLogout tests that logout removes the token
func TestLogout(t *testing.T) {
	env, _, out := newTestEnv(t, "existing")

	if err := runLogout(context.Background(), env); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if env.Holder.Authenticated() {
		t.Error("expected holder to be logged out")
	}
	if _, ok := session.ReadToken(env.Store); ok {
		t.Error("expected token to be removed")
	}
	if !strings.Contains(out.String(), "Logged out") {
		t.Errorf("expected logout message, got: %s", out.String())
	}

	out.Reset()
	if err := runLogout(context.Background(), env); err != nil {
		t.Fatalf("second logout failed: %v", err)
	}
	if !strings.Contains(out.String(), "Not logged in") {
		t.Errorf("expected 'Not logged in', got: %s", out.String())
	}
}

// TestStatus_RejectedToken tests that a 401 during status reads as logged out
func TestStatus_RejectedToken(t *testing.T) {
	env, api, out := newTestEnv(t, "stale")
	api.rejectToken = true

	if err := runStatus(context.Background(), env, false); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !strings.Contains(out.String(), "token rejected") {
		t.Errorf("expected rejected-token message, got: %s", out.String())
	}
	if _, ok := session.ReadToken(env.Store); ok {
		t.Error("expected rejected token to be removed")
	}
}

// TestStatus_Offline tests that offline status does not call the API
func TestStatus_Offline(t *testing.T) {
	env, api, out := newTestEnv(t, "stored")

	if err := runStatus(context.Background(), env, true); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if api.calls != 0 {
		t.Errorf("expected no API calls, got %d", api.calls)
	}
	if !strings.Contains(out.String(), "token stored") {
		t.Errorf("expected offline status, got: %s", out.String())
	}
}

// TestExplain_Unauthorized tests the login hint on a 401
func TestExplain_Unauthorized(t *testing.T) {
	err := explain(client.ErrUnauthorized)
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Errorf("expected wrapped ErrUnauthorized, got %v", err)
	}
	if !strings.Contains(err.Error(), "placar login") {
		t.Errorf("expected login hint, got: %v", err)
	}

	other := errors.New("boom")
	if explain(other) != other {
		t.Error("other errors must pass through unchanged")
	}
}

// TestTxList tests the transaction table
func TestTxList(t *testing.T) {
	env, api, out := newTestEnv(t, "token")

	if err := runTxList(context.Background(), env, nil); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !strings.Contains(out.String(), "No transactions found") {
		t.Errorf("expected empty message, got: %s", out.String())
	}

	tx := models.Transacao{Tipo: models.TipoGasto, Valor: 4590, Data: models.NewDate(2024, time.March, 10), Categoria: strPtr("mercado")}
	tx.ID = "tx1"
	api.transacoes = []models.Transacao{tx}

	out.Reset()
	if err := runTxList(context.Background(), env, nil); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	for _, want := range []string{"tx1", "2024-03-10", "gasto", "R$ 45,90", "mercado"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output, got: %s", want, out.String())
		}
	}
}

// TestTxAdd tests defaults and validation of tx add
func TestTxAdd(t *testing.T) {
	env, api, _ := newTestEnv(t, "token")

	err := runTxAdd(context.Background(), env, txFlags{tipo: "receita", valor: "1.234,56", descricao: "freela"}, march2024)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if api.createdTx == nil {
		t.Fatal("expected CreateTransacao to be called")
	}
	if api.createdTx.Valor != 123456 {
		t.Errorf("expected 123456 cents, got %d", api.createdTx.Valor)
	}
	if api.createdTx.Data.String() != "2024-03-15" {
		t.Errorf("expected date to default to today, got %s", api.createdTx.Data)
	}
	if api.createdTx.Categoria != nil {
		t.Errorf("expected no categoria, got %q", *api.createdTx.Categoria)
	}

	invalid := []txFlags{
		{tipo: "doacao", valor: "10"},
		{tipo: "gasto"},
		{tipo: "gasto", valor: "-5"},
		{tipo: "gasto", valor: "10", data: "15/03/2024"},
	}
	for _, flags := range invalid {
		api.createdTx = nil
		if err := runTxAdd(context.Background(), env, flags, march2024); err == nil {
			t.Errorf("expected error for %+v", flags)
		}
		if api.createdTx != nil {
			t.Errorf("API must not be called for %+v", flags)
		}
	}
}

// TestTxEdit_PreservesUnchangedFields tests that edit sends the full record
func TestTxEdit_PreservesUnchangedFields(t *testing.T) {
	env, api, _ := newTestEnv(t, "token")

	tx := models.Transacao{
		Tipo:      models.TipoGasto,
		Valor:     4590,
		Data:      models.NewDate(2024, time.March, 10),
		Categoria: strPtr("mercado"),
		Descricao: strPtr("feira"),
	}
	tx.ID = "tx1"
	api.transacoes = []models.Transacao{tx}

	changed := func(name string) bool { return name == "valor" }
	if err := runTxEdit(context.Background(), env, "tx1", txFlags{valor: "50"}, changed); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	got := api.updatedTx
	if got == nil {
		t.Fatal("expected UpdateTransacao to be called")
	}
	if got.Valor != 5000 {
		t.Errorf("expected new valor 5000, got %d", got.Valor)
	}
	if got.Tipo != models.TipoGasto || got.Data.String() != "2024-03-10" {
		t.Errorf("expected tipo and data preserved, got %s %s", got.Tipo, got.Data)
	}
	if got.Categoria == nil || *got.Categoria != "mercado" || got.Descricao == nil || *got.Descricao != "feira" {
		t.Errorf("expected categoria and descricao preserved, got %+v", got)
	}

	// An explicitly emptied flag clears the field
	changed = func(name string) bool { return name == "descricao" }
	if err := runTxEdit(context.Background(), env, "tx1", txFlags{}, changed); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if api.updatedTx.Descricao != nil {
		t.Errorf("expected descricao cleared, got %q", *api.updatedTx.Descricao)
	}

	if err := runTxEdit(context.Background(), env, "missing", txFlags{}, changed); err == nil {
		t.Error("expected error for unknown id")
	}
}

// TestCardsAdd tests defaults of cards add
func TestCardsAdd(t *testing.T) {
	env, _, out := newTestEnv(t, "token")

	changed := func(name string) bool { return name == "instituicao" || name == "valor" }
	err := runCardsAdd(context.Background(), env, cardFlags{instituicao: " Nubank ", valor: "800"}, changed, march2024)
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !strings.Contains(out.String(), "Nubank R$ 800,00 (03/2024)") {
		t.Errorf("expected bill summary, got: %s", out.String())
	}

	changed = func(name string) bool { return name == "valor" }
	if err := runCardsAdd(context.Background(), env, cardFlags{valor: "800"}, changed, march2024); err == nil {
		t.Error("expected error for missing instituicao")
	}

	changed = func(name string) bool { return name != "pago" }
	if err := runCardsAdd(context.Background(), env, cardFlags{instituicao: "Inter", valor: "1", mes: 13, ano: 2024}, changed, march2024); err == nil {
		t.Error("expected error for month 13")
	}
}

// TestCardsPay tests that pay sends the full bill with pago set
func TestCardsPay(t *testing.T) {
	env, api, out := newTestEnv(t, "token")

	bill := models.CartaoFatura{Instituicao: "Nubank", Valor: 80000, Mes: 3, Ano: 2024}
	bill.ID = "c1"
	paid := models.CartaoFatura{Instituicao: "Inter", Valor: 100, Mes: 2, Ano: 2024, Pago: true}
	paid.ID = "c2"
	api.cartoes = []models.CartaoFatura{bill, paid}

	if err := runCardsPay(context.Background(), env, "c1"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	want := client.CartaoInput{Instituicao: "Nubank", Valor: 80000, Mes: 3, Ano: 2024, Pago: true}
	if api.updatedCartao == nil || *api.updatedCartao != want {
		t.Errorf("expected update %+v, got %+v", want, api.updatedCartao)
	}

	api.updatedCartao = nil
	out.Reset()
	if err := runCardsPay(context.Background(), env, "c2"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if api.updatedCartao != nil {
		t.Error("already paid bill must not be updated")
	}
	if !strings.Contains(out.String(), "já está paga") {
		t.Errorf("expected already-paid message, got: %s", out.String())
	}
}

// TestCardsEdit tests that edit only changes the given fields
func TestCardsEdit(t *testing.T) {
	env, api, _ := newTestEnv(t, "token")

	bill := models.CartaoFatura{Instituicao: "Nubank", Valor: 80000, Mes: 3, Ano: 2024, Pago: true}
	bill.ID = "c1"
	api.cartoes = []models.CartaoFatura{bill}

	changed := func(name string) bool { return name == "valor" }
	if err := runCardsEdit(context.Background(), env, "c1", cardFlags{valor: "900,50"}, changed); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	want := client.CartaoInput{Instituicao: "Nubank", Valor: 90050, Mes: 3, Ano: 2024, Pago: true}
	if api.updatedCartao == nil || *api.updatedCartao != want {
		t.Errorf("expected update %+v, got %+v", want, api.updatedCartao)
	}
}

// TestDash tests the dashboard output
func TestDash(t *testing.T) {
	env, api, out := newTestEnv(t, "token")
	api.summary = &ledger.Summary{
		TotalReceitas:       350000,
		TotalGastos:         120040,
		TotalDividasAbertas: 70000,
		SaldoAtual:          229960,
		PlacarDividas:       159960,
	}

	if err := runDash(context.Background(), env, nil, march2024); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if api.dashPeriod != nil {
		t.Errorf("expected no period to be sent, got %+v", api.dashPeriod)
	}

	output := out.String()
	for _, want := range []string{"Placar 03/2024", "R$ 3.500,00", "R$ 1.200,40", "R$ 700,00", "R$ 2.299,60", "R$ 1.599,60"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}

	out.Reset()
	period := &ledger.Period{Mes: 1, Ano: 2023}
	if err := runDash(context.Background(), env, period, march2024); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !strings.Contains(out.String(), "Placar 01/2023") {
		t.Errorf("expected requested period in header, got: %s", out.String())
	}
}

// TestDash_RejectedToken tests that a 401 logs out and surfaces the error
func TestDash_RejectedToken(t *testing.T) {
	env, api, _ := newTestEnv(t, "stale")
	api.rejectToken = true

	err := runDash(context.Background(), env, nil, march2024)
	if !errors.Is(err, client.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if env.Holder.Authenticated() {
		t.Error("expected holder to be logged out")
	}

	// The next protected command fails before reaching the API
	calls := api.calls
	if err := runDash(context.Background(), env, nil, march2024); !errors.Is(err, errNotLoggedIn) {
		t.Errorf("expected errNotLoggedIn, got %v", err)
	}
	if api.calls != calls {
		t.Error("expected no further API calls")
	}
}

// TestHistoryClose tests the conflict message
func TestHistoryClose(t *testing.T) {
	env, api, out := newTestEnv(t, "token")

	if err := runHistoryClose(context.Background(), env, nil); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !strings.Contains(out.String(), "02/2024") {
		t.Errorf("expected period in output, got: %s", out.String())
	}

	out.Reset()
	api.fechamento = &client.APIError{StatusCode: http.StatusConflict, Message: "Fechamento já solicitado"}
	if err := runHistoryClose(context.Background(), env, nil); err != nil {
		t.Fatalf("conflict should not be an error, got: %v", err)
	}
	if !strings.Contains(out.String(), "already requested") {
		t.Errorf("expected already-requested message, got: %s", out.String())
	}

	api.fechamento = &client.APIError{StatusCode: http.StatusServiceUnavailable, Message: "Fila indisponível"}
	if err := runHistoryClose(context.Background(), env, nil); err == nil {
		t.Error("expected error when the queue is down")
	}
}

// TestConfigSet tests changing and validating config keys
func TestConfigSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer

	if err := runConfigSet(&out, path, "server_url", "https://placar.example.com/"); err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if cfg.ServerURL != "https://placar.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.ServerURL)
	}

	if err := runConfigSet(&out, path, "storage", "floppy"); err == nil {
		t.Error("expected error for unknown storage")
	}
	if err := runConfigSet(&out, path, "colour", "blue"); err == nil {
		t.Error("expected error for unknown key")
	}

	// Invalid values are never written
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read config: %v", err)
	}
	if strings.Contains(string(data), "floppy") {
		t.Errorf("invalid storage was saved: %s", data)
	}
}
