package oauthmodel

import (
	"strings"
	"time"
)

const (
	jwksPath = "/.well-known/jwks.json"

	// DefaultLeeway is the clock skew tolerated when checking token expiry.
	DefaultLeeway = 60 * time.Second
)

// AuthOptions is the client configuration shared read-only by every component.
// It is fixed when the client is constructed.
type AuthOptions struct {
	// Domain is the tenant domain of the authorization server.
	// Required: Yes
	// Example: "example.auth0.com" or "https://example.auth0.com"
	// A missing scheme defaults to https.
	Domain string

	// ClientID identifies this application to the authorization server.
	// Required: Yes
	// Example: "abc123"
	ClientID string

	// ClientSecret authenticates confidential clients at the token endpoint.
	// Required: No (public clients leave it empty)
	// Security: Never log or expose this value
	ClientSecret string

	// ResponseType is the default response type for authorize requests.
	// Required: No (may be supplied per call)
	// Example: "code", "token id_token"
	ResponseType ResponseType

	// ResponseMode is the default response mode for authorize requests.
	// Required: No
	// Example: "fragment"
	ResponseMode ResponseModeType

	// RedirectURI is where the authorization server sends the user back.
	// Required: No (may be supplied per call)
	// Example: "https://app.example.com/callback"
	RedirectURI string

	// Scope is the default space separated scope list.
	// Example: "openid profile email"
	Scope string

	// Audience identifies the resource server the access token is issued for.
	// Example: "https://api.example.com"
	Audience string

	// MaxAge is the maximum elapsed time since the user last authenticated.
	// Zero means not sent.
	MaxAge time.Duration

	// Leeway is the clock skew tolerated when validating token expiry.
	// Zero falls back to DefaultLeeway.
	Leeway time.Duration

	// JWKSURI overrides the location of the signing key set.
	// Default: <domain>/.well-known/jwks.json
	JWKSURI string

	// Issuer overrides the expected "iss" claim of identity tokens.
	// Default: <domain>/
	Issuer string

	// TimesToRetryFailedRequests bounds retries of requests that failed at the
	// transport level or with a 5xx response. Zero disables retries.
	TimesToRetryFailedRequests int
}

// Validate checks that the options contain the fields every component relies on.
func (o AuthOptions) Validate() error {
	if strings.TrimSpace(o.Domain) == "" {
		return ErrMissingDomain
	}
	if strings.TrimSpace(o.ClientID) == "" {
		return ErrMissingClientID
	}
	if !o.ResponseMode.Valid() {
		return ErrInvalidResponseMode
	}
	if o.ResponseType != "" && !o.ResponseType.Valid() {
		return ErrInvalidResponseType
	}
	return nil
}

// BaseURL returns the tenant root URL without a trailing slash.
func (o AuthOptions) BaseURL() string {
	domain := strings.TrimRight(strings.TrimSpace(o.Domain), "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}

// IssuerURL returns the expected identity token issuer.
func (o AuthOptions) IssuerURL() string {
	if o.Issuer != "" {
		return o.Issuer
	}
	return o.BaseURL() + "/"
}

// JWKSEndpoint returns the URL of the signing key set.
func (o AuthOptions) JWKSEndpoint() string {
	if o.JWKSURI != "" {
		return o.JWKSURI
	}
	return o.BaseURL() + jwksPath
}

// LeewayOrDefault returns the configured leeway or DefaultLeeway.
func (o AuthOptions) LeewayOrDefault() time.Duration {
	if o.Leeway <= 0 {
		return DefaultLeeway
	}
	return o.Leeway
}
