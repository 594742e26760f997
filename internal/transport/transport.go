// Package transport sends JSON requests to the authorization server and maps
// failures onto autherror kinds. Transient failures are retried with
// exponential backoff.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultInitialRetryDelay = 200 * time.Millisecond
	defaultMaxRetryDelay     = 5 * time.Second
	defaultTimeout           = 30 * time.Second

	// RequestIDHeader carries a per-request identifier for server side correlation.
	RequestIDHeader = "X-Request-ID"
)

// Client talks to one authorization server.
type Client struct {
	baseURL           string
	httpClient        *http.Client
	maxRetries        int
	initialRetryDelay time.Duration
	maxRetryDelay     time.Duration
	logger            zerolog.Logger
	metrics           metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries bounds how often a transient failure is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelays sets the first and the largest delay between retries.
func WithRetryDelays(initial, maxDelay time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.initialRetryDelay = initial
		}
		if maxDelay > 0 {
			c.maxRetryDelay = maxDelay
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a Client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:           strings.TrimRight(baseURL, "/"),
		httpClient:        &http.Client{Timeout: defaultTimeout},
		initialRetryDelay: defaultInitialRetryDelay,
		maxRetryDelay:     defaultMaxRetryDelay,
		logger:            log.Logger,
		metrics:           metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// HTTPClient returns the underlying http.Client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// Logger returns the client's logger.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// Metrics returns the client's metrics recorder.
func (c *Client) Metrics() metrics.Recorder {
	return c.metrics
}

// Request describes one call. Path is resolved against the base URL unless it
// is absolute.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	JSON   any
	Form   url.Values
	Bearer string
}

// Do sends req and decodes a 2xx JSON body into out. A nil out discards the body.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return autherror.Configuration("invalid request url %q: %v", req.Path, err)
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return autherror.Wrap(autherror.KindInvalidRequest, err, "encoding request body")
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	requestID := uuid.NewString()
	endpoint := endpointLabel(req.Path)

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			c.metrics.RecordRetry(endpoint)
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return backoff.Permanent(autherror.Configuration("building request: %v", err))
		}
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set(RequestIDHeader, requestID)
		if contentType != "" {
			httpReq.Header.Set("Content-Type", contentType)
		}
		if req.Bearer != "" {
			httpReq.Header.Set("Authorization", "Bearer "+req.Bearer)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			c.metrics.RecordRequest(endpoint, 0, time.Since(start))
			c.logger.Debug().Err(err).Str("request_id", requestID).Str("method", method).
				Str("path", endpoint).Int("attempt", attempt).Msg("request failed")
			if ctx.Err() != nil {
				return backoff.Permanent(contextError(ctx.Err()))
			}
			return autherror.Wrap(autherror.KindNetwork, err, "request to "+endpoint+" failed")
		}
		defer resp.Body.Close()

		c.metrics.RecordRequest(endpoint, resp.StatusCode, time.Since(start))
		c.logger.Debug().Str("request_id", requestID).Str("method", method).Str("path", endpoint).
			Int("status", resp.StatusCode).Int("attempt", attempt).Msg("request completed")

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := decodeError(resp)
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return backoff.Permanent(autherror.Wrap(autherror.KindServer, err, "decoding response from "+endpoint))
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialRetryDelay
	policy.MaxInterval = c.maxRetryDelay
	policy.MaxElapsedTime = 0

	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx))
	if err == nil {
		return nil
	}
	if _, ok := autherror.As(err); ok {
		return err
	}
	if ctx.Err() != nil {
		return contextError(ctx.Err())
	}
	return autherror.Wrap(autherror.KindNetwork, err, "request to "+endpoint+" failed")
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	raw := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = c.baseURL + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func encodeBody(req Request) ([]byte, string, error) {
	switch {
	case req.JSON != nil:
		b, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", errors.Wrap(err, "[transport.encodeBody] marshal json")
		}
		return b, "application/json", nil
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	}
	return nil, "", nil
}

// errorBody covers the error shapes of the authentication and management APIs.
type errorBody struct {
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Code             string          `json:"code"`
	ErrorCode        string          `json:"errorCode"`
	Description      json.RawMessage `json:"description"`
	Message          string          `json:"message"`
	Name             string          `json:"name"`
}

func decodeError(resp *http.Response) *autherror.Error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		text := strings.TrimSpace(string(raw))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return autherror.FromOAuth(resp.StatusCode, "", text)
	}

	code := firstNonEmpty(body.ErrorCode, body.Code, body.Error)
	description := firstNonEmpty(body.ErrorDescription, rawText(body.Description), body.Message, body.Name)
	if description == "" {
		description = http.StatusText(resp.StatusCode)
	}
	return autherror.FromOAuth(resp.StatusCode, code, description)
}

func rawText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func contextError(err error) *autherror.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return autherror.Wrap(autherror.KindTimeout, err, "request deadline exceeded")
	}
	return autherror.Wrap(autherror.KindNetwork, err, "request cancelled")
}

func endpointLabel(path string) string {
	if u, err := url.Parse(path); err == nil && u.Path != "" {
		return u.Path
	}
	return fmt.Sprintf("/%s", strings.TrimLeft(path, "/"))
}
