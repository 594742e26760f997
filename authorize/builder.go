// Package authorize builds authorization, logout and passwordless verification
// URLs. Building a URL performs no I/O; the returned transaction carries the
// generated state, nonce and PKCE verifier for the caller to persist.
package authorize

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/random"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"golang.org/x/oauth2"
)

const (
	authorizePath          = "/authorize"
	logoutPath             = "/v2/logout"
	passwordlessVerifyPath = "/passwordless/verify_redirect"
)

// Builder creates authorize URLs for one client.
type Builder struct {
	opts   oauthmodel.AuthOptions
	random random.Source
	pkce   bool
	now    func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithPKCE attaches an S256 code challenge to code flow requests that do not
// carry one already.
func WithPKCE() Option {
	return func(b *Builder) {
		b.pkce = true
	}
}

// WithRandomSource replaces the source of state and nonce values.
func WithRandomSource(src random.Source) Option {
	return func(b *Builder) {
		if src != nil {
			b.random = src
		}
	}
}

// WithNowTime overrides the clock used to stamp transactions.
func WithNowTime(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBuilder creates a Builder from the client options.
func NewBuilder(opts oauthmodel.AuthOptions, options ...Option) *Builder {
	b := &Builder{
		opts:   opts,
		random: random.NewSource(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// BuildAuthorizeURL returns the authorize URL for req merged with the client defaults.
func (b *Builder) BuildAuthorizeURL(req oauthmodel.AuthorizeRequest) (string, error) {
	authURL, _, err := b.Prepare(req)
	return authURL, err
}

// Prepare returns the authorize URL together with the transaction that must be
// presented when the response is parsed.
func (b *Builder) Prepare(req oauthmodel.AuthorizeRequest) (string, *oauthmodel.Transaction, error) {
	params, tx, err := b.authorizeParams(req)
	if err != nil {
		return "", nil, err
	}
	return b.opts.BaseURL() + authorizePath + "?" + encode(params), tx, nil
}

// LogoutOptions configures the logout URL.
type LogoutOptions struct {
	// ClientID overrides AuthOptions.ClientID. Required by the server when ReturnTo is set.
	ClientID string

	// ReturnTo is where the browser lands after logout.
	// Security: Must be in the tenant or client allow list
	ReturnTo string

	// Federated also logs the user out of the upstream identity provider.
	Federated bool
}

// BuildLogoutURL returns the session logout URL.
func (b *Builder) BuildLogoutURL(o LogoutOptions) (string, error) {
	if strings.TrimSpace(b.opts.Domain) == "" {
		return "", autherror.Configuration("%v", oauthmodel.ErrMissingDomain)
	}
	params := url.Values{}
	clientID := o.ClientID
	if clientID == "" {
		clientID = b.opts.ClientID
	}
	if clientID != "" {
		params.Set("client_id", clientID)
	}
	if o.ReturnTo != "" {
		params.Set("returnTo", o.ReturnTo)
	}

	logoutURL := b.opts.BaseURL() + logoutPath
	if encoded := encode(params); encoded != "" {
		logoutURL += "?" + encoded
	}
	if o.Federated {
		if len(params) == 0 {
			return logoutURL + "?federated", nil
		}
		logoutURL += "&federated"
	}
	return logoutURL, nil
}

// PasswordlessVerifyOptions describes a magic link / code verification redirect.
type PasswordlessVerifyOptions struct {
	// Connection is "email" or "sms".
	Connection string

	// VerificationCode is the one-time code received by the user.
	VerificationCode string

	// Email identifies the user for the email connection.
	Email string

	// PhoneNumber identifies the user for the sms connection.
	PhoneNumber string

	// Authorize carries the authorize parameters of the redirect that follows verification.
	Authorize oauthmodel.AuthorizeRequest
}

// BuildPasswordlessVerifyURL returns the URL that verifies a passwordless code and
// then continues like an authorize request.
func (b *Builder) BuildPasswordlessVerifyURL(o PasswordlessVerifyOptions) (string, *oauthmodel.Transaction, error) {
	if o.Connection == "" {
		return "", nil, autherror.Configuration("connection is required")
	}
	if o.VerificationCode == "" {
		return "", nil, autherror.Configuration("verification code is required")
	}
	if (o.Email == "") == (o.PhoneNumber == "") {
		return "", nil, autherror.Configuration("exactly one of email or phone number is required")
	}

	params, tx, err := b.authorizeParams(o.Authorize)
	if err != nil {
		return "", nil, err
	}
	params.Set("connection", o.Connection)
	params.Set("verification_code", o.VerificationCode)
	if o.Email != "" {
		params.Set("email", o.Email)
	} else {
		params.Set("phone_number", o.PhoneNumber)
	}
	return b.opts.BaseURL() + passwordlessVerifyPath + "?" + encode(params), tx, nil
}

func (b *Builder) authorizeParams(req oauthmodel.AuthorizeRequest) (url.Values, *oauthmodel.Transaction, error) {
	if strings.TrimSpace(b.opts.Domain) == "" {
		return nil, nil, autherror.Configuration("%v", oauthmodel.ErrMissingDomain)
	}

	merged := req.Merge(b.opts)
	if err := merged.Validate(); err != nil {
		e := autherror.Configuration("%v", err)
		e.Err = err
		return nil, nil, e
	}

	var err error
	if merged.State == "" {
		if merged.State, err = b.random.String(random.DefaultLength); err != nil {
			return nil, nil, autherror.Wrap(autherror.KindConfiguration, err, "generating state")
		}
	}
	if merged.Nonce == "" {
		if merged.Nonce, err = b.random.String(random.DefaultLength); err != nil {
			return nil, nil, autherror.Wrap(autherror.KindConfiguration, err, "generating nonce")
		}
	}

	var verifier string
	if b.pkce && merged.CodeChallenge == "" && merged.ResponseType.Has(oauthmodel.CodeResponseType) {
		verifier = oauth2.GenerateVerifier()
		merged.CodeChallenge = oauth2.S256ChallengeFromVerifier(verifier)
		merged.CodeChallengeMethod = oauthmodel.CodeMethodTypeS256
	}

	params := url.Values{}
	for k, v := range merged.Extra {
		if _, typed := typedParams[k]; !typed && v != "" {
			params.Set(k, v)
		}
	}
	setIfPresent(params, "client_id", merged.ClientID)
	setIfPresent(params, "response_type", string(merged.ResponseType))
	setIfPresent(params, "response_mode", string(merged.ResponseMode))
	setIfPresent(params, "redirect_uri", merged.RedirectURI)
	setIfPresent(params, "scope", merged.Scope)
	setIfPresent(params, "audience", merged.Audience)
	setIfPresent(params, "state", merged.State)
	setIfPresent(params, "nonce", merged.Nonce)
	setIfPresent(params, "prompt", merged.Prompt)
	setIfPresent(params, "connection", merged.Connection)
	setIfPresent(params, "login_hint", merged.LoginHint)
	setIfPresent(params, "screen_hint", merged.ScreenHint)
	setIfPresent(params, "code_challenge", merged.CodeChallenge)
	setIfPresent(params, "code_challenge_method", string(merged.CodeChallengeMethod))
	if merged.MaxAge > 0 {
		params.Set("max_age", strconv.FormatInt(int64(merged.MaxAge/time.Second), 10))
	}

	tx := &oauthmodel.Transaction{
		State:        merged.State,
		Nonce:        merged.Nonce,
		AppState:     merged.AppState,
		CodeVerifier: verifier,
		RedirectURI:  merged.RedirectURI,
		ResponseType: merged.ResponseType,
		ResponseMode: merged.ResponseMode,
		Scope:        merged.Scope,
		Audience:     merged.Audience,
		CreatedAt:    b.now(),
	}
	return params, tx, nil
}

var typedParams = map[string]struct{}{
	"client_id": {}, "response_type": {}, "response_mode": {}, "redirect_uri": {},
	"scope": {}, "audience": {}, "state": {}, "nonce": {}, "prompt": {},
	"connection": {}, "login_hint": {}, "screen_hint": {}, "max_age": {},
	"code_challenge": {}, "code_challenge_method": {},
}

func setIfPresent(params url.Values, key, value string) {
	if value == "" {
		return
	}
	params.Set(key, value)
}

// encode sorts keys and percent-encodes spaces as %20.
func encode(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		for _, v := range params[k] {
			if sb.Len() > 0 {
				sb.WriteByte('&')
			}
			sb.WriteString(url.QueryEscape(k))
			sb.WriteByte('=')
			sb.WriteString(strings.ReplaceAll(url.QueryEscape(v), "+", "%20"))
		}
	}
	return sb.String()
}
