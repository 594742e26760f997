package oauthmodel

import (
	"net/url"
	"strings"
	"time"
)

// AuthorizeRequest holds the per-call parameters of an authorize request. Empty
// fields fall back to the AuthOptions defaults when merged.
type AuthorizeRequest struct {
	// ClientID overrides AuthOptions.ClientID.
	ClientID string

	// ResponseType specifies what the authorization endpoint should return.
	// Required: Yes (after merge)
	// Standard values: "code", "token", "id_token" and space separated combinations
	ResponseType ResponseType

	// ResponseMode controls how the response is returned (query/fragment/form_post/web_message).
	// Required: No
	ResponseMode ResponseModeType

	// RedirectURI is where the authorization response will be sent.
	// Required: Yes (after merge)
	// Security: Must match a URI registered for the client
	RedirectURI string

	// Scope specifies the permissions being requested.
	// Example: "openid profile email"
	Scope string

	// Audience identifies the resource server who will consume the access token.
	Audience string

	// State is an opaque value echoed back in the redirect.
	// Generated when empty.
	// Security: Mitigates XSRF; validated when the response is parsed
	State string

	// Nonce is bound into the identity token.
	// Generated when empty.
	// Security: Prevents replay; validated against the identity token "nonce" claim
	Nonce string

	// Prompt controls re-authentication and consent screens.
	// Example: "none" for silent authentication, "login" to force a login
	Prompt string

	// Connection names the identity provider to log in with, skipping the provider selection.
	// Example: "google-oauth2"
	Connection string

	// LoginHint pre-fills the username/email on the login page.
	LoginHint string

	// ScreenHint selects the initial screen of the hosted login page.
	// Example: "signup"
	ScreenHint string

	// MaxAge overrides AuthOptions.MaxAge.
	MaxAge time.Duration

	// AppState is arbitrary caller data stored with the transaction and returned
	// with the parsed result. It is never sent to the server.
	AppState any

	// CodeChallenge is the PKCE challenge derived from a code verifier.
	CodeChallenge string

	// CodeChallengeMethod specifies how CodeChallenge was derived.
	CodeChallengeMethod CodeMethodType

	// Extra carries provider specific parameters verbatim. It is the only untyped
	// pass-through; keys that collide with a typed field are ignored.
	Extra map[string]string
}

// Merge fills empty fields from the client defaults.
func (r AuthorizeRequest) Merge(o AuthOptions) AuthorizeRequest {
	merged := r
	if merged.ClientID == "" {
		merged.ClientID = o.ClientID
	}
	if merged.ResponseType == "" {
		merged.ResponseType = o.ResponseType
	}
	if merged.ResponseMode == "" {
		merged.ResponseMode = o.ResponseMode
	}
	if merged.RedirectURI == "" {
		merged.RedirectURI = o.RedirectURI
	}
	if merged.Scope == "" {
		merged.Scope = o.Scope
	}
	if merged.Audience == "" {
		merged.Audience = o.Audience
	}
	if merged.MaxAge == 0 {
		merged.MaxAge = o.MaxAge
	}
	return merged
}

// Validate checks a merged request.
func (r AuthorizeRequest) Validate() error {
	if strings.TrimSpace(r.ClientID) == "" {
		return ErrMissingClientID
	}
	if strings.TrimSpace(r.RedirectURI) == "" {
		return ErrMissingRedirectURI
	}
	if !redirectURIValid(r.RedirectURI) {
		return ErrInvalidRedirectURI
	}
	if strings.TrimSpace(string(r.ResponseType)) == "" {
		return ErrMissingResponseType
	}
	if !r.ResponseType.Valid() {
		return ErrInvalidResponseType
	}
	if !r.ResponseMode.Valid() {
		return ErrInvalidResponseMode
	}
	if r.ResponseMode == QueryResponseMode && r.ResponseType != CodeResponseType {
		return ErrQueryModeRequiresCode
	}
	if !codeChallengeMethodValid(r.CodeChallenge, r.CodeChallengeMethod) {
		return ErrInvalidCodeChallengeMethod
	}
	return nil
}

func redirectURIValid(redirectURI string) bool {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return false
	}
	return u.Scheme != ""
}

func codeChallengeMethodValid(codeChallenge string, challengeMethod CodeMethodType) bool {
	if strings.TrimSpace(codeChallenge) == "" {
		return challengeMethod == ""
	}
	switch challengeMethod {
	case CodeMethodTypeS256, CodeMethodTypePlain:
		return true
	}
	return false
}
