package oauthmodel

import "errors"

var (
	ErrMissingDomain              = errors.New("domain option is required")
	ErrMissingClientID            = errors.New("clientID option is required")
	ErrMissingRedirectURI         = errors.New("redirect uri is required")
	ErrInvalidRedirectURI         = errors.New("invalid redirect uri")
	ErrMissingResponseType        = errors.New("response type is required")
	ErrInvalidResponseType        = errors.New("unsupported response type")
	ErrInvalidResponseMode        = errors.New("invalid response mode")
	ErrQueryModeRequiresCode      = errors.New("response mode query is only supported with response type code")
	ErrInvalidCodeChallengeMethod = errors.New("invalid code challenge method")
)
