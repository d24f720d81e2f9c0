package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"
	"golang.org/x/time/rate"
	"pkt.systems/pslog"

	"pkt.systems/buildd/internal/clock"
	"pkt.systems/buildd/internal/loggingutil"
)

const (
	// DefaultHTTPTimeout bounds individual SDK-issued HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	defaultUserAgent    = "buildd-go-sdk"
	headerCorrelationID = "X-Correlation-ID"
)

// Client talks to a buildd controller over HTTP. It is safe for concurrent
// use; resource pools created from it are not (see LockableResources).
type Client struct {
	baseURL     string
	httpClient  *http.Client
	httpTimeout time.Duration
	username    string
	apiToken    string
	userAgent   string
	limiter     *rate.Limiter
	logger      pslog.Base
	clk         clock.Clock
}

// Option customises client construction.
type Option func(*Client)

// WithHTTPClient supplies a custom HTTP client/transport stack. Use this for
// custom TLS roots, proxies, or connection pooling behavior.
func WithHTTPClient(cli *http.Client) Option {
	return func(c *Client) {
		if cli != nil {
			c.httpClient = cli
		}
	}
}

// WithLogger supplies a logger for client diagnostics.
// Passing nil falls back to a disabled logger.
func WithLogger(logger pslog.Base) Option {
	return func(c *Client) {
		if logger == nil {
			c.logger = loggingutil.NoopBase()
			return
		}
		c.logger = loggingutil.WithSubsystem(logger, "client.sdk")
	}
}

// WithHTTPTimeout overrides the per-request timeout for SDK-issued HTTP calls.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpTimeout = d
		}
	}
}

// WithBasicAuth attaches username/API-token authentication to every request.
func WithBasicAuth(username, apiToken string) Option {
	return func(c *Client) {
		c.username = username
		c.apiToken = apiToken
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit throttles outgoing requests to rps requests per second with
// the given burst. Zero or negative rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithClock overrides the time source used by reservation wait loops.
// Intended for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// New creates a client targeting baseURL (e.g. http://buildd.example.com:8080).
func New(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("buildd: baseURL required")
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		return nil, fmt.Errorf("buildd: unsupported base URL %q", baseURL)
	}
	c := &Client{
		baseURL:     trimmed,
		httpClient:  &http.Client{},
		httpTimeout: DefaultHTTPTimeout,
		userAgent:   defaultUserAgent,
		logger:      loggingutil.NoopBase(),
		clk:         clock.Real{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized controller base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError describes a non-2xx response from the controller.
type APIError struct {
	// Status is the HTTP status code returned by the server.
	Status int
	// Body contains the raw response body bytes for diagnostics.
	Body []byte
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if body != "" && len(body) <= 200 {
		return fmt.Sprintf("buildd: status %d: %s", e.Status, body)
	}
	return fmt.Sprintf("buildd: status %d", e.Status)
}

func (c *Client) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if c.httpTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.httpTimeout)
}

// do issues one prepared request with auth, correlation, throttling, and
// logging applied. The caller owns the response body.
func (c *Client) do(ctx context.Context, method, path string, contentType string, body io.Reader) (*http.Response, context.CancelFunc, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}
	}
	reqCtx, cancel := c.requestContext(ctx)
	req, err := http.NewRequestWithContext(reqCtx, method, c.baseURL+path, body)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", c.userAgent)
	cid := xid.New().String()
	req.Header.Set(headerCorrelationID, cid)
	if c.username != "" || c.apiToken != "" {
		req.SetBasicAuth(c.username, c.apiToken)
	}
	c.logTrace("client.http.request", "method", method, "path", path, "cid", cid)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		c.logError("client.http.transport_error", "method", method, "path", path, "cid", cid, "error", err)
		return nil, nil, fmt.Errorf("buildd: %s %s: %w", method, path, err)
	}
	return resp, cancel, nil
}

// getJSON fetches path and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	resp, cancel, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.logWarn("client.http.get.error", "path", path, "status", resp.StatusCode)
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("buildd: decode %s: %w", path, err)
	}
	c.logTrace("client.http.get.success", "path", path, "status", resp.StatusCode)
	return nil
}

// postForm posts form to path. Statuses listed in valid are returned to the
// caller without error; an empty valid list accepts any 2xx. Anything else
// becomes an *APIError.
func (c *Client) postForm(ctx context.Context, path string, form url.Values, valid ...int) (int, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	resp, cancel, err := c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", body)
	if err != nil {
		return 0, err
	}
	defer cancel()
	defer resp.Body.Close()
	status := resp.StatusCode
	if slices.Contains(valid, status) || (len(valid) == 0 && status < 300) {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logTrace("client.http.post.success", "path", path, "status", status)
		return status, nil
	}
	c.logWarn("client.http.post.error", "path", path, "status", status)
	return status, decodeError(resp)
}

// postFormLocation behaves like postForm but also returns the Location header
// of a successful response (used by build triggers that point at queue items).
func (c *Client) postFormLocation(ctx context.Context, path string, form url.Values) (string, error) {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	resp, cancel, err := c.do(ctx, http.MethodPost, path, "application/x-www-form-urlencoded", body)
	if err != nil {
		return "", err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.logWarn("client.http.post.error", "path", path, "status", resp.StatusCode)
		return "", decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Header.Get("Location"), nil
}

// postBody posts a raw payload (XML job config, plugin install manifests).
func (c *Client) postBody(ctx context.Context, path, contentType string, payload []byte) error {
	resp, cancel, err := c.do(ctx, http.MethodPost, path, contentType, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.logWarn("client.http.post.error", "path", path, "status", resp.StatusCode)
		return decodeError(resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// getRaw fetches path and returns the raw body bytes (job config XML).
func (c *Client) getRaw(ctx context.Context, path string) ([]byte, error) {
	resp, cancel, err := c.do(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

func decodeError(resp *http.Response) error {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("buildd: status %d (unreadable body: %w)", resp.StatusCode, err)
	}
	return &APIError{Status: resp.StatusCode, Body: data}
}

func (c *Client) logTrace(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Trace(msg, keyvals...)
	}
}

func (c *Client) logDebug(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}

func (c *Client) logInfo(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keyvals...)
	}
}

func (c *Client) logWarn(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keyvals...)
	}
}

func (c *Client) logError(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Error(msg, keyvals...)
	}
}
