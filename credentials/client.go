// Package credentials exchanges user credentials, one-time codes, refresh tokens
// and authorization codes for tokens, and wraps the other endpoints of the
// authentication API (signup, password change, user info).
package credentials

import (
	"context"
	"net/http"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/rs/zerolog"
)

const (
	tokenPath                 = "/oauth/token"
	userInfoPath              = "/userinfo"
	passwordlessStartPath     = "/passwordless/start"
	signupPath                = "/dbconnections/signup"
	changePasswordPath        = "/dbconnections/change_password"
	delegationPath            = "/delegation"
	userCountryPath           = "/user/geoloc/country"
	defaultDatabaseConnection = "Username-Password-Authentication"
)

// TokenValidator checks identity tokens returned by the token endpoint.
type TokenValidator interface {
	Validate(ctx context.Context, raw, expectedNonce string) (*oauthmodel.DecodedIdentity, error)
}

// Client calls the authentication API.
type Client struct {
	opts      oauthmodel.AuthOptions
	transport *transport.Client
	validator TokenValidator
	now       func() time.Time
	logger    zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTokenValidator validates identity tokens in token responses. Without one,
// a response that carries an identity token is rejected.
func WithTokenValidator(v TokenValidator) Option {
	return func(c *Client) {
		c.validator = v
	}
}

// WithNowTime overrides the clock used to stamp results.
func WithNowTime(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New creates a Client that sends requests through tr.
func New(opts oauthmodel.AuthOptions, tr *transport.Client, options ...Option) *Client {
	c := &Client{
		opts:      opts,
		transport: tr,
		now:       time.Now,
		logger:    tr.Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// tokenRequest is the JSON body of a token endpoint call.
type tokenRequest struct {
	GrantType    oauthmodel.GrantType `json:"grant_type"`
	ClientID     string               `json:"client_id"`
	ClientSecret string               `json:"client_secret,omitempty"`
	Username     string               `json:"username,omitempty"`
	Password     string               `json:"password,omitempty"`
	OTP          string               `json:"otp,omitempty"`
	Realm        string               `json:"realm,omitempty"`
	RefreshToken string               `json:"refresh_token,omitempty"`
	Scope        string               `json:"scope,omitempty"`
	Audience     string               `json:"audience,omitempty"`
}

func (c *Client) requestToken(ctx context.Context, req tokenRequest, nonce string) (*oauthmodel.AuthResult, error) {
	req.ClientID = c.opts.ClientID
	req.ClientSecret = c.opts.ClientSecret
	if req.Scope == "" {
		req.Scope = c.opts.Scope
	}
	if req.Audience == "" {
		req.Audience = c.opts.Audience
	}

	var resp oauthmodel.TokenResponse
	if err := c.transport.Do(ctx, transport.Request{Method: http.MethodPost, Path: tokenPath, JSON: req}, &resp); err != nil {
		c.logger.Debug().Err(err).Str("grant_type", string(req.GrantType)).Msg("token request failed")
		return nil, err
	}
	return c.toResult(ctx, resp, nonce)
}

func (c *Client) toResult(ctx context.Context, resp oauthmodel.TokenResponse, nonce string) (*oauthmodel.AuthResult, error) {
	result := resp.ToAuthResult(c.now())
	if resp.IDToken == "" {
		return result, nil
	}
	if c.validator == nil {
		return nil, autherror.Configuration("identity token received but no validator configured")
	}
	identity, err := c.validator.Validate(ctx, resp.IDToken, nonce)
	if err != nil {
		return nil, err
	}
	result.IDTokenPayload = identity
	return result, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.transport.Do(ctx, transport.Request{Method: http.MethodPost, Path: path, JSON: body}, out)
}

func required(name, value string) error {
	if value == "" {
		return autherror.Configuration("%s is required", name)
	}
	return nil
}
