// Package idtoken validates identity tokens: RS256 signature against the
// published key set, issuer, audience, expiry with leeway and nonce.
package idtoken

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Validator checks identity tokens for one client.
type Validator struct {
	verifier *oidc.IDTokenVerifier
	leeway   time.Duration
	now      func() time.Time
	logger   zerolog.Logger
	metrics  metrics.Recorder
}

// Option configures a Validator.
type Option func(*Validator)

// WithNowTime overrides the clock.
func WithNowTime(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(v *Validator) {
		if m != nil {
			v.metrics = m
		}
	}
}

// New creates a Validator. keys supplies signature verification, usually a jwks.Cache.
func New(opts oauthmodel.AuthOptions, keys oidc.KeySet, options ...Option) *Validator {
	v := &Validator{
		leeway:  opts.LeewayOrDefault(),
		now:     time.Now,
		logger:  log.Logger,
		metrics: metrics.NewNoopMetrics(),
	}
	for _, opt := range options {
		opt(v)
	}

	v.verifier = oidc.NewVerifier(opts.IssuerURL(), keys, &oidc.Config{
		ClientID:             opts.ClientID,
		SupportedSigningAlgs: []string{oidc.RS256},
		// Expiry is checked against a clock wound back by the leeway.
		Now: func() time.Time { return v.now().Add(-v.leeway) },
	})
	return v
}

// Validate verifies raw and checks its nonce claim against expectedNonce. An
// empty expectedNonce skips the nonce check. On any failure the returned
// identity is nil and the error has the validation kind, unless the key set
// could not be downloaded.
func (v *Validator) Validate(ctx context.Context, raw, expectedNonce string) (*oauthmodel.DecodedIdentity, error) {
	identity, err := v.validate(ctx, raw, expectedNonce)
	if err != nil {
		v.metrics.RecordTokenValidation(string(autherror.KindOf(err)))
		v.logger.Debug().Err(err).Msg("identity token rejected")
		return nil, err
	}
	v.metrics.RecordTokenValidation("valid")
	return identity, nil
}

func (v *Validator) validate(ctx context.Context, raw, expectedNonce string) (*oauthmodel.DecodedIdentity, error) {
	if raw == "" {
		return nil, autherror.Validation("identity token is empty")
	}

	token, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, classify(err)
	}

	if token.IssuedAt.After(v.now().Add(v.leeway)) {
		return nil, autherror.Validation("identity token issued in the future")
	}
	if expectedNonce != "" && subtle.ConstantTimeCompare([]byte(token.Nonce), []byte(expectedNonce)) != 1 {
		return nil, autherror.Validation("nonce does not match")
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return nil, autherror.Wrap(autherror.KindValidation, err, "decoding identity token claims")
	}
	return toIdentity(token, claims), nil
}

func classify(err error) error {
	var expired *oidc.TokenExpiredError
	if errors.As(err, &expired) {
		return autherror.Wrap(autherror.KindValidation, err, "identity token expired")
	}
	if apiErr, ok := autherror.As(err); ok && apiErr.Kind != autherror.KindValidation {
		return apiErr
	}
	e := autherror.Validation("%v", err)
	e.Err = err
	return e
}

func toIdentity(token *oidc.IDToken, claims map[string]any) *oauthmodel.DecodedIdentity {
	return &oauthmodel.DecodedIdentity{
		Subject:       token.Subject,
		Issuer:        token.Issuer,
		Audience:      token.Audience,
		ExpiresAt:     token.Expiry,
		IssuedAt:      token.IssuedAt,
		Nonce:         token.Nonce,
		Email:         stringClaim(claims, "email"),
		EmailVerified: boolClaim(claims, "email_verified"),
		Name:          stringClaim(claims, "name"),
		Nickname:      stringClaim(claims, "nickname"),
		Picture:       stringClaim(claims, "picture"),
		Claims:        claims,
	}
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

func boolClaim(claims map[string]any, name string) bool {
	b, _ := claims[name].(bool)
	return b
}
