package oauthmodel

import "time"

// AuthResult is the outcome of a successful authentication. It is produced by
// parsing a redirect or by a token endpoint exchange and is never persisted by
// this library.
type AuthResult struct {
	AccessToken    string
	IDToken        string
	RefreshToken   string
	TokenType      string
	ExpiresIn      int // seconds until the access token expires, zero when unknown
	Scope          string
	State          string
	Code           string // authorization code, present for code flows delivered in a fragment
	AppState       any
	IDTokenPayload *DecodedIdentity
	ReceivedAt     time.Time
}

// Expiry returns when the access token expires, or the zero time when unknown.
func (r *AuthResult) Expiry() time.Time {
	if r == nil || r.ExpiresIn <= 0 || r.ReceivedAt.IsZero() {
		return time.Time{}
	}
	return r.ReceivedAt.Add(time.Duration(r.ExpiresIn) * time.Second)
}

// DecodedIdentity holds the claims of a validated identity token.
type DecodedIdentity struct {
	Subject       string
	Issuer        string
	Audience      []string
	ExpiresAt     time.Time
	IssuedAt      time.Time
	Nonce         string
	Email         string
	EmailVerified bool
	Name          string
	Nickname      string
	Picture       string
	Claims        map[string]any
}

// TokenResponse is the token endpoint response body.
type TokenResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// ToAuthResult converts the response into an AuthResult stamped with receivedAt.
func (t TokenResponse) ToAuthResult(receivedAt time.Time) *AuthResult {
	return &AuthResult{
		AccessToken:  t.AccessToken,
		IDToken:      t.IDToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		ExpiresIn:    t.ExpiresIn,
		Scope:        t.Scope,
		ReceivedAt:   receivedAt,
	}
}
