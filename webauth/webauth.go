// Package webauth wires the authorize URL builder, redirect parser, credential
// flows and session renewal of one client into a single entry point.
package webauth

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/authorize"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/fragment"
	"github.com/jrsteele09/go-auth-client/idtoken"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/jrsteele09/go-auth-client/jwks"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/session"
	"github.com/jrsteele09/go-auth-client/transaction"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// WebAuth is the client facade.
type WebAuth struct {
	opts        oauthmodel.AuthOptions
	builder     *authorize.Builder
	validator   *idtoken.Validator
	parser      *fragment.Parser
	credentials *credentials.Client
	renewer     *session.Renewer
	repo        transaction.Repo
}

type settings struct {
	logger       zerolog.Logger
	httpClient   *http.Client
	repo         transaction.Repo
	channel      session.Channel
	metrics      metrics.Recorder
	registerer   prometheus.Registerer
	nowTime      func() time.Time
	pkce         bool
	renewTimeout time.Duration
}

// Option configures a WebAuth.
type Option func(*settings)

// WithLogger sets the logger shared by all components.
func WithLogger(l zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithHTTPClient sets the http.Client used for every server call.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		s.httpClient = hc
	}
}

// WithTransactionRepo replaces the in-memory transaction store.
func WithTransactionRepo(repo transaction.Repo) Option {
	return func(s *settings) {
		if repo != nil {
			s.repo = repo
		}
	}
}

// WithRenewalChannel enables RenewAuth and CheckSession.
func WithRenewalChannel(ch session.Channel) Option {
	return func(s *settings) {
		s.channel = ch
	}
}

// WithRenewalTimeout sets the default session renewal timeout.
func WithRenewalTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.renewTimeout = d
	}
}

// WithPrometheusRegisterer records metrics on reg.
func WithPrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

// WithMetrics sets the metrics recorder directly.
func WithMetrics(m metrics.Recorder) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithPKCE adds a code challenge to code flow authorize requests.
func WithPKCE() Option {
	return func(s *settings) {
		s.pkce = true
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *settings) {
		s.nowTime = nowFunc
	}
}

// New validates opts and wires the components.
func New(opts oauthmodel.AuthOptions, options ...Option) (*WebAuth, error) {
	if err := opts.Validate(); err != nil {
		return nil, autherror.Wrap(autherror.KindConfiguration, errors.Wrap(err, "[webauth.New] invalid options"), err.Error())
	}

	s := settings{logger: log.Logger, nowTime: time.Now}
	for _, opt := range options {
		opt(&s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Init(s.registerer != nil, s.registerer)
	}
	if s.repo == nil {
		s.repo = transaction.NewInMemoryRepo(transaction.WithNowTime(s.nowTime))
	}

	tr := transport.New(opts.BaseURL(),
		transport.WithHTTPClient(s.httpClient),
		transport.WithMaxRetries(opts.TimesToRetryFailedRequests),
		transport.WithLogger(s.logger),
		transport.WithMetrics(s.metrics),
	)

	keys := jwks.NewCache(opts.JWKSEndpoint(), tr,
		jwks.WithLogger(s.logger),
		jwks.WithMetrics(s.metrics),
		jwks.WithNowTime(s.nowTime),
	)
	validator := idtoken.New(opts, keys,
		idtoken.WithNowTime(s.nowTime),
		idtoken.WithLogger(s.logger),
		idtoken.WithMetrics(s.metrics),
	)

	builderOpts := []authorize.Option{authorize.WithNowTime(s.nowTime)}
	if s.pkce {
		builderOpts = append(builderOpts, authorize.WithPKCE())
	}
	builder := authorize.NewBuilder(opts, builderOpts...)

	parser := fragment.NewParser(validator, s.repo,
		fragment.WithNowTime(s.nowTime),
		fragment.WithLogger(s.logger),
		fragment.WithMetrics(s.metrics),
	)

	renewer := session.NewRenewer(builder, parser, s.repo, s.channel,
		session.WithTimeout(s.renewTimeout),
		session.WithNowTime(s.nowTime),
		session.WithLogger(s.logger),
		session.WithMetrics(s.metrics),
	)

	return &WebAuth{
		opts:      opts,
		builder:   builder,
		validator: validator,
		parser:    parser,
		credentials: credentials.New(opts, tr,
			credentials.WithTokenValidator(validator),
			credentials.WithNowTime(s.nowTime),
			credentials.WithLogger(s.logger),
		),
		renewer: renewer,
		repo:    s.repo,
	}, nil
}

// Options returns the client configuration.
func (w *WebAuth) Options() oauthmodel.AuthOptions {
	return w.opts
}

// Client returns the authentication API client.
func (w *WebAuth) Client() *credentials.Client {
	return w.credentials
}

// Authorize stores a transaction for req and returns the URL to send the user to.
func (w *WebAuth) Authorize(ctx context.Context, req oauthmodel.AuthorizeRequest) (string, error) {
	authURL, tx, err := w.builder.Prepare(req)
	if err != nil {
		return "", err
	}
	if err := w.repo.Upsert(ctx, tx.State, tx); err != nil {
		return "", autherror.Wrap(autherror.KindServer, err, "storing transaction")
	}
	return authURL, nil
}

// BuildAuthorizeURL returns an authorize URL without storing a transaction.
// Callers must pass the state and nonce to ParseHash themselves.
func (w *WebAuth) BuildAuthorizeURL(req oauthmodel.AuthorizeRequest) (string, *oauthmodel.Transaction, error) {
	return w.builder.Prepare(req)
}

// ParseHash validates a redirect response against the stored transaction.
func (w *WebAuth) ParseHash(ctx context.Context, o fragment.ParseHashOptions) (*oauthmodel.AuthResult, error) {
	return w.parser.ParseHash(ctx, o)
}

// ExchangeCode completes a code flow redirect: the response is validated
// against its transaction and the code redeemed with the stored PKCE verifier.
func (w *WebAuth) ExchangeCode(ctx context.Context, query string) (*oauthmodel.AuthResult, error) {
	params, err := fragment.Decode(query)
	if err != nil {
		return nil, autherror.Wrap(autherror.KindValidation, err, "malformed redirect response")
	}
	state := params.Get("state")
	var tx *oauthmodel.Transaction
	if state != "" {
		tx, err = w.repo.Get(ctx, state)
		if err != nil && !errors.Is(err, transaction.ErrNotFound) {
			return nil, autherror.Wrap(autherror.KindServer, err, "loading transaction")
		}
	}

	result, err := w.parser.ParseHash(ctx, fragment.ParseHashOptions{Hash: query})
	if err != nil {
		return nil, err
	}
	if result == nil || result.Code == "" {
		return nil, autherror.Validation("redirect response carried no authorization code")
	}

	o := credentials.ExchangeOptions{Code: result.Code}
	if tx != nil {
		o.CodeVerifier = tx.CodeVerifier
		o.RedirectURI = tx.RedirectURI
		o.Nonce = tx.Nonce
	}
	exchanged, err := w.credentials.ExchangeCode(ctx, o)
	if err != nil {
		return nil, err
	}
	exchanged.State = result.State
	exchanged.AppState = result.AppState
	return exchanged, nil
}

// ValidateToken validates an identity token and its nonce.
func (w *WebAuth) ValidateToken(ctx context.Context, idToken, nonce string) (*oauthmodel.DecodedIdentity, error) {
	return w.validator.Validate(ctx, idToken, nonce)
}

// RenewAuth obtains new tokens from the existing session without interaction.
func (w *WebAuth) RenewAuth(ctx context.Context, o session.RenewOptions) (*oauthmodel.AuthResult, error) {
	return w.renewer.Renew(ctx, o)
}

// StartRenewAuth begins a renewal and returns its attempt for callers that poll
// or relay messages while it is pending.
func (w *WebAuth) StartRenewAuth(ctx context.Context, o session.RenewOptions) (*session.Attempt, error) {
	return w.renewer.Start(ctx, o)
}

// CheckSession renews using the web_message response mode.
func (w *WebAuth) CheckSession(ctx context.Context, o session.RenewOptions) (*oauthmodel.AuthResult, error) {
	return w.renewer.CheckSession(ctx, o)
}

// Login authenticates with username and password against a realm.
func (w *WebAuth) Login(ctx context.Context, o credentials.LoginOptions) (*oauthmodel.AuthResult, error) {
	return w.credentials.Login(ctx, o)
}

// LoginWithDefaultDirectory authenticates against the tenant's default directory.
func (w *WebAuth) LoginWithDefaultDirectory(ctx context.Context, o credentials.LoginOptions) (*oauthmodel.AuthResult, error) {
	return w.credentials.LoginWithDefaultDirectory(ctx, o)
}

// RefreshToken redeems a refresh token.
func (w *WebAuth) RefreshToken(ctx context.Context, o credentials.RefreshOptions) (*oauthmodel.AuthResult, error) {
	return w.credentials.RefreshToken(ctx, o)
}

// UserInfo fetches the profile for an access token.
func (w *WebAuth) UserInfo(ctx context.Context, accessToken string) (*oauthmodel.UserProfile, error) {
	return w.credentials.UserInfo(ctx, accessToken)
}

// PasswordlessStart sends a passwordless link or code.
func (w *WebAuth) PasswordlessStart(ctx context.Context, o credentials.PasswordlessStartOptions) error {
	return w.credentials.PasswordlessStart(ctx, o)
}

// PasswordlessLogin redeems a passwordless code.
func (w *WebAuth) PasswordlessLogin(ctx context.Context, o credentials.PasswordlessLoginOptions) (*oauthmodel.AuthResult, error) {
	return w.credentials.PasswordlessLogin(ctx, o)
}

// PasswordlessVerifyURL returns the verify redirect for a passwordless code and
// stores its transaction.
func (w *WebAuth) PasswordlessVerifyURL(ctx context.Context, o authorize.PasswordlessVerifyOptions) (string, error) {
	verifyURL, tx, err := w.builder.BuildPasswordlessVerifyURL(o)
	if err != nil {
		return "", err
	}
	if err := w.repo.Upsert(ctx, tx.State, tx); err != nil {
		return "", autherror.Wrap(autherror.KindServer, err, "storing transaction")
	}
	return verifyURL, nil
}

// Signup creates a database user.
func (w *WebAuth) Signup(ctx context.Context, o credentials.SignupOptions) (*credentials.SignupResult, error) {
	return w.credentials.Signup(ctx, o)
}

// SignupAndLogin creates a database user and logs them in.
func (w *WebAuth) SignupAndLogin(ctx context.Context, o credentials.SignupOptions) (*oauthmodel.AuthResult, error) {
	return w.credentials.SignupAndLogin(ctx, o)
}

// ChangePassword sends a password reset email.
func (w *WebAuth) ChangePassword(ctx context.Context, o credentials.ChangePasswordOptions) error {
	return w.credentials.ChangePassword(ctx, o)
}

// LogoutURL returns the URL that ends the server session.
func (w *WebAuth) LogoutURL(o authorize.LogoutOptions) (string, error) {
	return w.builder.BuildLogoutURL(o)
}
