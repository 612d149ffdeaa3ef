package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/kasbhub/kasb-go/internal/infra/buildinfo"
	"github.com/kasbhub/kasb-go/internal/telemetry/logger"
	"github.com/kasbhub/kasb-go/internal/telemetry/metric"
)

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent unauthenticated.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// UnauthorizedFunc is called when an authenticated request is answered
// with 401.
type UnauthorizedFunc func(ctx context.Context)

// Request describes one logical call; it may be sent several times.
type Request struct {
	Method string
	Path   string
	Params url.Values
	Body   any

	// SkipUnauthorizedHook keeps a 401 from tearing down the session, for
	// calls such as login where 401 means wrong credentials.
	SkipUnauthorizedHook bool
}

// Response is a successful (status < 400) answer.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode parses the JSON body into target. An empty body leaves target
// untouched.
func (r *Response) Decode(target any) error {
	if target == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// Client sends requests to the backend, retrying transient failures.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         TokenSource
	policy         RetryPolicy
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	log            logger.Logger
	metrics        *metric.Registry
	onUnauthorized UnauthorizedFunc
	userAgent      string
	sleep          Sleeper
}

// Option configures a Client.
type Option func(*Client)

// WithTokenSource sets where the bearer token is read from on each attempt.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRetryPolicy overrides the retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithAttemptTimeout bounds each individual attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.attemptTimeout = d
		}
	}
}

// WithRateLimit limits outgoing attempts to rps per second. Zero disables
// the limiter.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records attempts on the registry.
func WithMetrics(r *metric.Registry) Option {
	return func(c *Client) { c.metrics = r }
}

// WithUnauthorizedHandler sets the 401 hook.
func WithUnauthorizedHandler(fn UnauthorizedFunc) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTLSConfig sets the TLS settings of the transport. A nil config
// keeps the current http.Client.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *Client) {
		if cfg == nil {
			return
		}
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = cfg
		c.httpClient = &http.Client{Transport: tr}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func withSleeper(s Sleeper) Option {
	return func(c *Client) { c.sleep = s }
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	// Ensure baseURL has http:// prefix
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		httpClient:     &http.Client{},
		policy:         DefaultRetryPolicy(),
		attemptTimeout: DefaultAttemptTimeout,
		log:            logger.Default(),
		userAgent:      buildinfo.UserAgent(),
		sleep:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Component("client")
	return c
}

// BaseURL returns the base URL of the client.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send performs req, retrying network failures, timeouts and 5xx answers
// according to the retry policy. On failure the returned error is the
// *RequestError of the last attempt.
func (c *Client) Send(ctx context.Context, req *Request) (*Response, error) {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	base, err := c.newRequest(ctx, req, payload)
	if err != nil {
		return nil, err
	}

	reqID := ulid.Make().String()
	base.Header.Set("X-Request-ID", reqID)
	ctx = logger.WithRequestID(ctx, reqID)
	log := c.log.WithContext(ctx).With("method", req.Method, "path", req.Path)

	var lastErr *RequestError
	attempts := c.policy.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := c.policy.Delay(attempt - 1)
			log.Debug("retrying request", "attempt", attempt, "delay", delay, "error", lastErr.Message)
			c.metrics.IncRetry()
			if err := c.sleep(ctx, delay); err != nil {
				break
			}
		}

		resp, reqErr := c.attempt(ctx, base, req, payload)
		if reqErr == nil {
			log.Debug("request completed", "attempt", attempt, "status", resp.Status)
			return resp, nil
		}

		reqErr.Attempts = attempt
		lastErr = reqErr
		if !reqErr.Retryable() || ctx.Err() != nil {
			break
		}
	}

	if lastErr.Retryable() {
		log.Warn("request failed", "attempts", lastErr.Attempts, "kind", lastErr.Kind.String(), "error", lastErr.Message)
	}
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, req *Request, payload []byte) (*http.Request, error) {
	target := c.baseURL + req.Path
	if len(req.Params) > 0 {
		target += "?" + req.Params.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// attempt sends one copy of base. The token is read fresh every time so a
// session saved or torn down between attempts is honoured.
func (c *Client) attempt(ctx context.Context, base *http.Request, req *Request, payload []byte) (*Response, *RequestError) {
	fail := func(kind Kind, status int, body []byte, msg string, cause error) *RequestError {
		return &RequestError{
			Kind:    kind,
			Method:  base.Method,
			Path:    req.Path,
			Status:  status,
			Body:    body,
			Message: msg,
			Cause:   cause,
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fail(KindNetwork, 0, nil, err.Error(), err)
		}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	httpReq := base.Clone(attemptCtx)
	if payload != nil {
		httpReq.Body = io.NopCloser(bytes.NewReader(payload))
		httpReq.ContentLength = int64(len(payload))
	}

	token := ""
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		kind, outcome := transportKind(ctx, attemptCtx)
		c.metrics.ObserveAttempt(base.Method, outcome, time.Since(start))
		return nil, fail(kind, 0, nil, err.Error(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		kind, outcome := transportKind(ctx, attemptCtx)
		c.metrics.ObserveAttempt(base.Method, outcome, time.Since(start))
		return nil, fail(kind, 0, nil, err.Error(), err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		c.metrics.ObserveAttempt(base.Method, metric.OutcomeServer, time.Since(start))
		return nil, fail(KindServer, resp.StatusCode, body, statusMessage(resp.StatusCode, body), nil)

	case resp.StatusCode >= http.StatusBadRequest:
		c.metrics.ObserveAttempt(base.Method, metric.OutcomeRejected, time.Since(start))
		if resp.StatusCode == http.StatusUnauthorized && token != "" && !req.SkipUnauthorizedHook && c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return nil, fail(KindRejected, resp.StatusCode, body, statusMessage(resp.StatusCode, body), nil)
	}

	c.metrics.ObserveAttempt(base.Method, metric.OutcomeOK, time.Since(start))
	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func transportKind(parent, attemptCtx context.Context) (Kind, string) {
	if parent.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return KindTimeout, metric.OutcomeTimeout
	}
	return KindNetwork, metric.OutcomeNetwork
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return data, nil
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (*Response, error) {
	return c.Send(ctx, &Request{Method: http.MethodGet, Path: path, Params: params})
}

// Post performs a POST request with JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Send(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// PostJSON posts body and decodes the answer into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}
