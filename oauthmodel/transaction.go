package oauthmodel

import "time"

// Transaction is the client side record of one authorize request, kept until the
// response comes back so state and nonce can be checked.
type Transaction struct {
	State        string           `json:"state"`
	Nonce        string           `json:"nonce,omitempty"`
	AppState     any              `json:"app_state,omitempty"`
	CodeVerifier string           `json:"code_verifier,omitempty"`
	RedirectURI  string           `json:"redirect_uri,omitempty"`
	ResponseType ResponseType     `json:"response_type,omitempty"`
	ResponseMode ResponseModeType `json:"response_mode,omitempty"`
	Scope        string           `json:"scope,omitempty"`
	Audience     string           `json:"audience,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
