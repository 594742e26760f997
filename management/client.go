// Package management calls the user endpoints of the management API. Nothing is
// cached locally; every call returns the server's current resource.
package management

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	apiPath   = "/api/v2/"
	usersPath = apiPath + "users/"
)

// TokenProviderOptions controls how client credentials tokens are reused.
type TokenProviderOptions struct {
	// EnableCache reuses a token until it is about to expire.
	// Default: true
	EnableCache bool

	// EarlyExpiry renews a cached token this long before it expires.
	// Default: 10 seconds
	EarlyExpiry time.Duration
}

// Options configures a Client.
type Options struct {
	// Domain is the tenant domain.
	// Required: Yes
	Domain string

	// Token is a management API access token. When set, client credentials are not used.
	// Security: Never log or expose this value
	Token string

	// ClientID and ClientSecret obtain tokens with the client credentials grant
	// when Token is empty.
	ClientID     string
	ClientSecret string

	// Audience of client credentials tokens.
	// Default: <domain>/api/v2/
	Audience string

	// Scope of client credentials tokens.
	// Example: "read:users update:users"
	Scope string

	// TokenProvider tunes client credentials token reuse. Nil enables the cache.
	TokenProvider *TokenProviderOptions

	// TimesToRetryFailedRequests bounds retries of network and 5xx failures.
	TimesToRetryFailedRequests int
}

// Client calls the management API.
type Client struct {
	transport *transport.Client
	tokens    oauth2.TokenSource
}

// Option configures a Client.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
	logger     *zerolog.Logger
	metrics    metrics.Recorder
}

// WithHTTPClient sets the http.Client used for API and token requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = &l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// New creates a Client.
func New(o Options, opts ...Option) (*Client, error) {
	if strings.TrimSpace(o.Domain) == "" {
		return nil, autherror.Configuration("%v", oauthmodel.ErrMissingDomain)
	}
	if o.Token == "" && (o.ClientID == "" || o.ClientSecret == "") {
		return nil, autherror.Configuration("a token or client id and secret are required")
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	baseURL := oauthmodel.AuthOptions{Domain: o.Domain}.BaseURL()
	transportOpts := []transport.Option{
		transport.WithHTTPClient(s.httpClient),
		transport.WithMaxRetries(o.TimesToRetryFailedRequests),
		transport.WithMetrics(s.metrics),
	}
	if s.logger != nil {
		transportOpts = append(transportOpts, transport.WithLogger(*s.logger))
	}
	tr := transport.New(baseURL, transportOpts...)

	return &Client{
		transport: tr,
		tokens:    tokenSource(o, baseURL, tr),
	}, nil
}

func tokenSource(o Options, baseURL string, tr *transport.Client) oauth2.TokenSource {
	if o.Token != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.Token, TokenType: "Bearer"})
	}

	audience := o.Audience
	if audience == "" {
		audience = baseURL + apiPath
	}
	cc := &clientcredentials.Config{
		ClientID:       o.ClientID,
		ClientSecret:   o.ClientSecret,
		TokenURL:       baseURL + "/oauth/token",
		EndpointParams: url.Values{"audience": {audience}},
		AuthStyle:      oauth2.AuthStyleInParams,
	}
	if o.Scope != "" {
		cc.Scopes = strings.Fields(o.Scope)
	}

	provider := TokenProviderOptions{EnableCache: true, EarlyExpiry: 10 * time.Second}
	if o.TokenProvider != nil {
		provider = *o.TokenProvider
	}

	ctx := tr.WithOAuth2Client(context.Background())
	if !provider.EnableCache {
		return uncachedSource{ctx: ctx, config: cc}
	}
	return oauth2.ReuseTokenSourceWithExpiry(nil, cc.TokenSource(ctx), provider.EarlyExpiry)
}

// uncachedSource fetches a new token for every call.
type uncachedSource struct {
	ctx    context.Context
	config *clientcredentials.Config
}

func (u uncachedSource) Token() (*oauth2.Token, error) {
	return u.config.Token(u.ctx)
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	token, err := c.tokens.Token()
	if err != nil {
		return "", transport.MapOAuth2Error(ctx, err)
	}
	return token.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	bearer, err := c.bearer(ctx)
	if err != nil {
		return err
	}
	return c.transport.Do(ctx, transport.Request{Method: method, Path: path, JSON: body, Bearer: bearer}, out)
}

func userPath(userID string, suffix ...string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", autherror.Configuration("user id is required")
	}
	return usersPath + url.PathEscape(userID) + strings.Join(suffix, ""), nil
}
