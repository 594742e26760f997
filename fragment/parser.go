// Package fragment parses the parameters an authorization server appends to the
// redirect URI and turns them into a validated AuthResult.
package fragment

import (
	"context"
	"crypto/subtle"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/transaction"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TokenValidator checks an identity token and its nonce.
type TokenValidator interface {
	Validate(ctx context.Context, raw, expectedNonce string) (*oauthmodel.DecodedIdentity, error)
}

// Parser decodes redirect responses.
type Parser struct {
	validator TokenValidator
	repo      transaction.Repo
	now       func() time.Time
	logger    zerolog.Logger
	metrics   metrics.Recorder
}

// Option configures a Parser.
type Option func(*Parser)

// WithNowTime overrides the clock used to stamp results.
func WithNowTime(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(p *Parser) {
		if m != nil {
			p.metrics = m
		}
	}
}

// NewParser creates a Parser. repo may be nil when callers always pass the
// expected state and nonce explicitly.
func NewParser(validator TokenValidator, repo transaction.Repo, opts ...Option) *Parser {
	p := &Parser{
		validator: validator,
		repo:      repo,
		now:       time.Now,
		logger:    log.Logger,
		metrics:   metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseHashOptions controls how a redirect response is checked.
type ParseHashOptions struct {
	// Hash is the fragment or query string of the redirect, with or without the leading "#" or "?".
	Hash string

	// State is the expected state. When empty the state is resolved through the transaction store.
	State string

	// Nonce is the expected identity token nonce. Used together with State.
	Nonce string

	// AppState is returned with the result when State is given explicitly.
	AppState any

	// ResponseType is what the authorize request asked for. Used together with
	// State; an identity token is then required when it includes id_token.
	ResponseType oauthmodel.ResponseType

	// EnableIdPInitiatedLogin accepts responses without a known transaction.
	// Security: Disables XSRF protection; only enable for IdP initiated flows
	EnableIdPInitiatedLogin bool
}

var responseKeys = []string{"access_token", "id_token", "refresh_token", "code", "error"}

// ParseHash decodes and validates a redirect response. It returns nil, nil when
// the input carries no authorization response. Any validation failure yields a
// nil result.
func (p *Parser) ParseHash(ctx context.Context, o ParseHashOptions) (*oauthmodel.AuthResult, error) {
	result, err := p.parse(ctx, o)
	switch {
	case err != nil:
		p.metrics.RecordParse(string(autherror.KindOf(err)))
		p.logger.Debug().Err(err).Msg("redirect response rejected")
	case result == nil:
		p.metrics.RecordParse("empty")
	default:
		p.metrics.RecordParse("success")
	}
	return result, err
}

type expectation struct {
	state    string
	nonce    string
	appState any
	respType oauthmodel.ResponseType
}

func (p *Parser) parse(ctx context.Context, o ParseHashOptions) (*oauthmodel.AuthResult, error) {
	params, err := Decode(o.Hash)
	if err != nil {
		e := autherror.Validation("malformed redirect response")
		e.Err = err
		return nil, e
	}
	if !hasResponse(params) {
		return nil, nil
	}

	state := params.Get("state")
	expected, err := p.resolve(ctx, state, o)
	if err != nil {
		return nil, err
	}

	if code := params.Get("error"); code != "" {
		e := autherror.FromOAuth(0, code, params.Get("error_description"))
		e.State = state
		return nil, e
	}

	idToken := params.Get("id_token")
	if idToken == "" && expected.respType.Has(oauthmodel.IDTokenResponseType) {
		return nil, autherror.Validation("identity token missing from response")
	}

	var identity *oauthmodel.DecodedIdentity
	if idToken != "" {
		if p.validator == nil {
			return nil, autherror.Configuration("no identity token validator configured")
		}
		if expected.nonce == "" && !o.EnableIdPInitiatedLogin {
			return nil, autherror.Validation("nonce does not match")
		}
		identity, err = p.validator.Validate(ctx, idToken, expected.nonce)
		if err != nil {
			return nil, err
		}
	}

	expiresIn := 0
	if raw := params.Get("expires_in"); raw != "" {
		if expiresIn, err = strconv.Atoi(raw); err != nil {
			return nil, autherror.Validation("expires_in is not a number")
		}
	}

	return &oauthmodel.AuthResult{
		AccessToken:    params.Get("access_token"),
		IDToken:        idToken,
		RefreshToken:   params.Get("refresh_token"),
		TokenType:      params.Get("token_type"),
		ExpiresIn:      expiresIn,
		Scope:          params.Get("scope"),
		State:          state,
		Code:           params.Get("code"),
		AppState:       expected.appState,
		IDTokenPayload: identity,
		ReceivedAt:     p.now(),
	}, nil
}

// resolve finds what the response must match: the explicit options, or the
// stored transaction for the response state. A stored transaction is taken out
// of the store before anything is validated, so one authorize request yields at
// most one parse attempt.
func (p *Parser) resolve(ctx context.Context, state string, o ParseHashOptions) (expectation, error) {
	if o.State != "" {
		if subtle.ConstantTimeCompare([]byte(state), []byte(o.State)) != 1 {
			return expectation{}, autherror.Validation("state does not match")
		}
		return expectation{state: state, nonce: o.Nonce, appState: o.AppState, respType: o.ResponseType}, nil
	}

	if state != "" && p.repo != nil {
		tx, err := p.repo.Take(ctx, state)
		if err == nil {
			return expectation{
				state:    state,
				nonce:    tx.Nonce,
				appState: tx.AppState,
				respType: tx.ResponseType,
			}, nil
		}
		if !errors.Is(err, transaction.ErrNotFound) {
			return expectation{}, autherror.Wrap(autherror.KindServer, err, "loading transaction")
		}
	}

	if o.EnableIdPInitiatedLogin {
		return expectation{state: state}, nil
	}
	return expectation{}, autherror.Validation("state does not match")
}

// Decode splits a fragment or query string into parameters. Anything up to the
// first "#" (or "?" when there is no fragment) is dropped, as is a leading "/".
func Decode(hash string) (url.Values, error) {
	hash = strings.TrimSpace(hash)
	if i := strings.Index(hash, "#"); i >= 0 {
		hash = hash[i+1:]
	} else if i := strings.Index(hash, "?"); i >= 0 {
		hash = hash[i+1:]
	}
	hash = strings.TrimPrefix(hash, "/")
	if hash == "" {
		return url.Values{}, nil
	}
	values, err := url.ParseQuery(hash)
	if err != nil {
		return nil, errors.Wrap(err, "[fragment.Decode] parsing response")
	}
	return values, nil
}

func hasResponse(params url.Values) bool {
	for _, k := range responseKeys {
		if params.Get(k) != "" {
			return true
		}
	}
	return false
}
