package credentials

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// ExchangeOptions holds an authorization code returned to the redirect URI.
type ExchangeOptions struct {
	// Code is the authorization code.
	// Required: Yes
	Code string

	// CodeVerifier is the PKCE verifier stored with the transaction.
	CodeVerifier string

	// RedirectURI must equal the one used in the authorize request.
	// Default: AuthOptions.RedirectURI
	RedirectURI string

	// Nonce is checked against the identity token when one is returned.
	Nonce string
}

// ExchangeCode redeems an authorization code at the token endpoint. The form is
// sent through the transport so server errors are retried and measured like
// every other token request.
func (c *Client) ExchangeCode(ctx context.Context, o ExchangeOptions) (*oauthmodel.AuthResult, error) {
	if err := required("code", o.Code); err != nil {
		return nil, err
	}
	redirectURI := o.RedirectURI
	if redirectURI == "" {
		redirectURI = c.opts.RedirectURI
	}

	form := url.Values{
		"grant_type": {string(oauthmodel.AuthorizationCodeGrant)},
		"code":       {o.Code},
		"client_id":  {c.opts.ClientID},
	}
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	if c.opts.ClientSecret != "" {
		form.Set("client_secret", c.opts.ClientSecret)
	}
	if o.CodeVerifier != "" {
		form.Set("code_verifier", o.CodeVerifier)
	}

	var resp oauthmodel.TokenResponse
	if err := c.transport.Do(ctx, transport.Request{Method: http.MethodPost, Path: tokenPath, Form: form}, &resp); err != nil {
		c.logger.Debug().Err(err).Str("grant_type", string(oauthmodel.AuthorizationCodeGrant)).Msg("code exchange failed")
		return nil, err
	}
	return c.toResult(ctx, resp, o.Nonce)
}
