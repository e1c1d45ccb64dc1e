// Package client is the HTTP client for the Placar API used by the CLI and
// the local web UI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/placar-dev/placar/internal/ledger"
	"github.com/placar-dev/placar/internal/session"
)

// ErrUnauthorized is returned for any 401 on an authenticated request. By
// the time it is returned the unauthorized hook has already run.
var ErrUnauthorized = errors.New("sessão expirada ou inválida, faça login novamente")

// ErrInvalidCredentials is returned by Login for a rejected email/password
var ErrInvalidCredentials = errors.New("credenciais inválidas")

// APIError is a non-2xx response carrying the server's {"error"} envelope
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Details != "" {
		return fmt.Sprintf("%s (status %d): %s", msg, e.StatusCode, e.Details)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
}

// IsStatus reports whether err is an APIError with the given status code
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client represents an HTTP client for the Placar API
type Client struct {
	baseURL        string
	httpClient     *http.Client
	token          func() (string, bool)
	onUnauthorized func(token string)
	userAgent      string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenFunc sets where the bearer token is read from. It is called once
// per request.
func WithTokenFunc(fn func() (string, bool)) Option {
	return func(c *Client) {
		c.token = fn
	}
}

// WithUnauthorizedHook sets the callback run when an authenticated request
// gets a 401. It receives the token the request was sent with, empty when
// there was none.
func WithUnauthorizedHook(fn func(token string)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// WithSession reads the token from store and expires it in the holder on
// 401. A 401 for a token that has since been replaced does not log out.
func WithSession(store session.Storage, holder *session.Holder) Option {
	return func(c *Client) {
		c.token = func() (string, bool) { return session.ReadToken(store) }
		c.onUnauthorized = func(token string) { _ = holder.Expire(token) }
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a new API client
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		token:      func() (string, bool) { return "", false },
		userAgent:  "placar-client",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	anonymous   bool
	expect      int
	out         any
}

func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

func periodQuery(p *ledger.Period) url.Values {
	if p == nil {
		return nil
	}
	return url.Values{
		"mes": {strconv.Itoa(p.Mes)},
		"ano": {strconv.Itoa(p.Ano)},
	}
}

// do is the only place requests are sent. Authenticated requests carry the
// current token, and any 401 they get runs the unauthorized hook.
func (c *Client) do(ctx context.Context, r request) error {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	var sent string
	if !r.anonymous {
		token, ok := c.token()
		if !ok {
			c.unauthorized("")
			return ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
		sent = token
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !r.anonymous {
		c.unauthorized(sent)
		return ErrUnauthorized
	}

	expect := r.expect
	if expect == 0 {
		expect = http.StatusOK
	}
	if resp.StatusCode != expect {
		return decodeError(resp)
	}

	if r.out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) unauthorized(token string) {
	if c.onUnauthorized != nil {
		c.onUnauthorized(token)
	}
}

func decodeError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		apiErr.Message = envelope.Error
		apiErr.Details = envelope.Details
	} else {
		apiErr.Details = strings.TrimSpace(string(body))
	}
	return apiErr
}
