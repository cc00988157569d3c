// Package remote provides the client for the Feed Watchdog REST API.
// It translates between the API's snake_case wire format and the admin's
// resource types, and keeps the session alive by refreshing access tokens.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/feedwatchdog/admin/adapters/auth"
	"github.com/feedwatchdog/admin/adapters/metrics"
	"github.com/feedwatchdog/admin/ports"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	loginPath   = "/user/login/"
	refreshPath = "/user/refresh_token/"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 4 << 20
)

// anonymousPaths never carry the access token.
var anonymousPaths = []string{"/user/login", "/user/refresh_token"}

// Client provides HTTP communication with the Feed Watchdog API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
	tokens     ports.TokenStore
	ids        ports.IDGenerator
	clock      ports.Clock
	metrics    *metrics.Collector
	logger     zerolog.Logger
	onLogout   func()
	refreshes  *singleflight.Group
}

// ClientConfig configures the API client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string

	// Tokens is the default token store. A store attached to the request
	// context with WithTokens takes precedence.
	Tokens ports.TokenStore

	IDs     ports.IDGenerator
	Clock   ports.Clock
	Metrics *metrics.Collector
	Logger  zerolog.Logger

	// OnLogout runs after a failed refresh has cleared the tokens.
	OnLogout func()

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// NewClient creates a new API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout, Transport: cfg.Transport},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		headers:    cfg.Headers,
		tokens:     cfg.Tokens,
		ids:        cfg.IDs,
		clock:      cfg.Clock,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		onLogout:   cfg.OnLogout,
		refreshes:  &singleflight.Group{},
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

type tokensKey struct{}

// WithTokens returns a context whose requests use store for the session
// tokens. The web admin uses this to bind each request to its cookies.
func WithTokens(ctx context.Context, store ports.TokenStore) context.Context {
	return context.WithValue(ctx, tokensKey{}, store)
}

func (c *Client) tokenStore(ctx context.Context) ports.TokenStore {
	if store, ok := ctx.Value(tokensKey{}).(ports.TokenStore); ok && store != nil {
		return store
	}
	if c.tokens != nil {
		return c.tokens
	}
	return noTokens{}
}

// call describes one API request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	form   url.Values
}

// Request sends a JSON request to the API and decodes the response into
// result when it is not nil. A 401 triggers one token refresh and one replay.
func (c *Client) Request(ctx context.Context, method, path string, query url.Values, body, result any) error {
	return c.do(ctx, call{method: method, path: path, query: query, body: body}, result)
}

func (c *Client) do(ctx context.Context, cl call, result any) error {
	tokens := c.tokenStore(ctx)
	authed := !isAnonymous(cl.path)

	var bearer string
	if authed {
		access, err := tokens.Get(ctx, ports.AccessTokenKey)
		if err != nil {
			return fmt.Errorf("read access token: %w", err)
		}
		if c.clock != nil && auth.NeedsRefresh(access, c.clock.Now(), 0) {
			if access, err = c.refresh(ctx, tokens, access); err != nil {
				return err
			}
		}
		bearer = access
	}

	status, data, err := c.send(ctx, cl, bearer)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && authed {
		access, err := c.refresh(ctx, tokens, bearer)
		if err != nil {
			return err
		}
		status, data, err = c.send(ctx, cl, access)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			return c.expire(ctx, tokens, parseAPIError(status, data))
		}
	}

	if status >= 400 {
		return parseAPIError(status, data)
	}

	if result != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// send performs one HTTP exchange and returns the status and body.
func (c *Client) send(ctx context.Context, cl call, bearer string) (int, []byte, error) {
	var bodyReader io.Reader
	contentType := "application/json"

	switch {
	case cl.form != nil:
		bodyReader = strings.NewReader(cl.form.Encode())
		contentType = "application/x-www-form-urlencoded"
	case cl.body != nil:
		data, err := json.Marshal(cl.body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, target, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.ids != nil {
		req.Header.Set("X-Request-ID", c.ids.New())
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	label := resourceLabel(cl.path)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRemote(label, cl.method, 0, time.Since(start))
		c.logger.Warn().Err(err).Str("method", cl.method).Str("path", cl.path).Msg("api request failed")
		return 0, nil, &TransportError{Method: cl.method, Path: cl.path, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	c.metrics.ObserveRemote(label, cl.method, resp.StatusCode, time.Since(start))
	if err != nil {
		return 0, nil, &TransportError{Method: cl.method, Path: cl.path, Err: err}
	}

	c.logger.Debug().
		Str("method", cl.method).
		Str("path", cl.path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("api request")

	return resp.StatusCode, data, nil
}

// refresh exchanges the refresh token for a new access token. stale is the
// access token that was rejected; if another request already replaced it,
// the stored one is reused. Concurrent callers holding the same refresh token
// share one request.
func (c *Client) refresh(ctx context.Context, tokens ports.TokenStore, stale string) (string, error) {
	refreshToken, err := tokens.Get(ctx, ports.RefreshTokenKey)
	if err != nil {
		return "", fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		return "", c.expire(ctx, tokens, nil)
	}

	if current, err := tokens.Get(ctx, ports.AccessTokenKey); err == nil && current != "" && current != stale {
		return current, nil
	}

	v, err, shared := c.refreshes.Do(refreshToken, func() (any, error) {
		pair, err := c.exchange(ctx, refreshToken)
		if err == nil {
			err = pair.store(ctx, tokens)
		}
		c.metrics.ObserveRefresh(err == nil)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().Msg("access token refreshed")
		return pair, nil
	})

	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return "", err
		}
		return "", c.expire(ctx, tokens, err)
	}

	pair := v.(TokenPair)
	if shared {
		if err := pair.store(ctx, tokens); err != nil {
			return "", err
		}
	}
	return pair.AccessToken, nil
}

// exchange posts the refresh token and decodes the new token pair.
func (c *Client) exchange(ctx context.Context, refreshToken string) (TokenPair, error) {
	status, data, err := c.send(ctx, call{method: http.MethodPost, path: refreshPath}, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if status >= 400 {
		return TokenPair{}, parseAPIError(status, data)
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return TokenPair{}, &APIError{StatusCode: status, Message: "refresh response has no access token"}
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

// expire clears the session and reports ErrSessionExpired, wrapping cause
// when there is one.
func (c *Client) expire(ctx context.Context, tokens ports.TokenStore, cause error) error {
	if err := clearTokens(ctx, tokens); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear session tokens")
	}
	if c.onLogout != nil {
		c.onLogout()
	}
	c.logger.Info().Msg("session expired, tokens cleared")
	if cause != nil {
		return fmt.Errorf("%w: %w", ErrSessionExpired, cause)
	}
	return ErrSessionExpired
}

func clearTokens(ctx context.Context, tokens ports.TokenStore) error {
	if err := tokens.Delete(ctx, ports.AccessTokenKey); err != nil {
		return err
	}
	return tokens.Delete(ctx, ports.RefreshTokenKey)
}

func isAnonymous(path string) bool {
	for _, p := range anonymousPaths {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// resourceLabel returns the first path segment, used as the metrics label.
func resourceLabel(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "root"
	}
	return path
}

// noTokens is the store used when none is configured.
type noTokens struct{}

func (noTokens) Get(context.Context, string) (string, error) { return "", nil }
func (noTokens) Set(context.Context, string, string) error    { return nil }
func (noTokens) Delete(context.Context, string) error         { return nil }
