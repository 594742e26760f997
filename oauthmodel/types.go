package oauthmodel

import "strings"

// ResponseType is the space separated list of artefacts requested from the
// authorization endpoint, e.g. "code" or "token id_token".
type ResponseType string

const (
	// CodeResponseType requests an authorization code to be exchanged at the token endpoint.
	CodeResponseType ResponseType = "code"

	// TokenResponseType requests an access token directly in the redirect.
	TokenResponseType ResponseType = "token"

	// IDTokenResponseType requests a signed identity token in the redirect.
	IDTokenResponseType ResponseType = "id_token"
)

// Parts splits a combined response type into its individual values.
func (r ResponseType) Parts() []ResponseType {
	fields := strings.Fields(string(r))
	parts := make([]ResponseType, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, ResponseType(f))
	}
	return parts
}

// Has reports whether the combined response type includes part.
func (r ResponseType) Has(part ResponseType) bool {
	for _, p := range r.Parts() {
		if p == part {
			return true
		}
	}
	return false
}

// Valid reports whether every part is a known response type.
func (r ResponseType) Valid() bool {
	parts := r.Parts()
	if len(parts) == 0 {
		return false
	}
	for _, p := range parts {
		switch p {
		case CodeResponseType, TokenResponseType, IDTokenResponseType:
		default:
			return false
		}
	}
	return true
}

// ResponseModeType denotes how the authorization response parameters are returned to the client.
type ResponseModeType string

const (
	// QueryResponseMode returns parameters in the URL query string.
	// Only valid together with the code response type.
	QueryResponseMode ResponseModeType = "query"

	// FragmentResponseMode returns parameters in the URL fragment (after #).
	// Example: https://client.example.com/callback#access_token=ABC123&state=xyz
	FragmentResponseMode ResponseModeType = "fragment"

	// FormPostResponseMode returns parameters via HTTP POST with an auto-submitting HTML form.
	FormPostResponseMode ResponseModeType = "form_post"

	// WebMessageResponseMode returns parameters through a cross-window message.
	// Used by silent session checks.
	WebMessageResponseMode ResponseModeType = "web_message"
)

// Valid reports whether the mode is empty or one of the known modes.
func (m ResponseModeType) Valid() bool {
	switch m {
	case "", QueryResponseMode, FragmentResponseMode, FormPostResponseMode, WebMessageResponseMode:
		return true
	}
	return false
}

// CodeMethodType represents the PKCE (Proof Key for Code Exchange) challenge method.
type CodeMethodType string

const (
	// CodeMethodTypeS256 indicates SHA-256 hashing is used for the code challenge.
	CodeMethodTypeS256 CodeMethodType = "S256"

	// CodeMethodTypePlain sends the verifier unhashed. Accepted but not generated.
	CodeMethodTypePlain CodeMethodType = "plain"
)

// GrantType is the grant_type sent to the token endpoint.
type GrantType string

const (
	// PasswordGrant authenticates against the tenant's default directory.
	PasswordGrant GrantType = "password"

	// PasswordRealmGrant authenticates against a named realm (database connection).
	PasswordRealmGrant GrantType = "http://auth0.com/oauth/grant-type/password-realm"

	// PasswordlessOTPGrant exchanges a one-time code delivered by email or sms.
	PasswordlessOTPGrant GrantType = "http://auth0.com/oauth/grant-type/passwordless/otp"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	RefreshTokenGrant GrantType = "refresh_token"

	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"
)
