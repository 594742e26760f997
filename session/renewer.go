// Package session renews tokens without user interaction by replaying an
// authorize request with prompt=none against the user's existing session.
package session

import (
	"context"
	"time"

	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/fragment"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/jrsteele09/go-auth-client/transaction"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a renewal when no timeout is given.
const DefaultTimeout = 60 * time.Second

// Preparer builds authorize URLs and their transactions.
type Preparer interface {
	Prepare(req oauthmodel.AuthorizeRequest) (string, *oauthmodel.Transaction, error)
}

// HashParser validates a redirect response.
type HashParser interface {
	ParseHash(ctx context.Context, o fragment.ParseHashOptions) (*oauthmodel.AuthResult, error)
}

// ChannelRequest is what a Channel needs to obtain the authorize response.
type ChannelRequest struct {
	URL          string
	RedirectURI  string
	State        string
	ResponseMode oauthmodel.ResponseModeType
}

// Channel carries a prompt=none authorize request to the server and returns the
// raw response parameters.
type Channel interface {
	Await(ctx context.Context, req ChannelRequest) (string, error)
}

// Renewer runs silent renewals.
type Renewer struct {
	builder Preparer
	parser  HashParser
	repo    transaction.Repo
	channel Channel
	timeout time.Duration
	now     func() time.Time
	logger  zerolog.Logger
	metrics metrics.Recorder
}

// Option configures a Renewer.
type Option func(*Renewer)

// WithTimeout sets the default renewal timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Renewer) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithNowTime overrides the clock.
func WithNowTime(now func() time.Time) Option {
	return func(r *Renewer) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Renewer) {
		r.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(r *Renewer) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRenewer creates a Renewer. The parser must resolve transactions from repo.
func NewRenewer(builder Preparer, parser HashParser, repo transaction.Repo, channel Channel, opts ...Option) *Renewer {
	r := &Renewer{
		builder: builder,
		parser:  parser,
		repo:    repo,
		channel: channel,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  log.Logger,
		metrics: metrics.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenewOptions configures one renewal.
type RenewOptions struct {
	// Authorize carries per-call authorize parameters. Prompt is always "none".
	Authorize oauthmodel.AuthorizeRequest

	// Timeout bounds the pending state.
	// Default: the renewer's timeout (60 seconds unless configured)
	Timeout time.Duration
}

// Renew starts a renewal and waits for it.
func (r *Renewer) Renew(ctx context.Context, o RenewOptions) (*oauthmodel.AuthResult, error) {
	attempt, err := r.Start(ctx, o)
	if err != nil {
		return nil, err
	}
	<-attempt.Done()
	return attempt.Result()
}

// CheckSession renews using the web_message response mode.
func (r *Renewer) CheckSession(ctx context.Context, o RenewOptions) (*oauthmodel.AuthResult, error) {
	o.Authorize.ResponseMode = oauthmodel.WebMessageResponseMode
	return r.Renew(ctx, o)
}

// Start issues the prompt=none request and returns the pending attempt. The
// attempt always reaches a terminal state: completed, failed, or timed out once
// the timeout elapses.
func (r *Renewer) Start(ctx context.Context, o RenewOptions) (*Attempt, error) {
	if r.channel == nil {
		return nil, autherror.Configuration("no renewal channel configured")
	}
	req := o.Authorize
	req.Prompt = "none"

	authURL, tx, err := r.builder.Prepare(req)
	if err != nil {
		return nil, err
	}
	if err := r.repo.Upsert(ctx, tx.State, tx); err != nil {
		return nil, autherror.Wrap(autherror.KindServer, errors.Wrap(err, "[Renewer.Start] storing transaction"), "storing transaction")
	}

	timeout := o.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}

	attempt := newAttempt(r.now())
	attempt.AuthorizeURL = authURL
	attempt.begin()
	r.logger.Debug().Str("attempt_id", attempt.ID).Dur("timeout", timeout).Msg("session renewal started")

	go r.run(ctx, attempt, ChannelRequest{
		URL:          authURL,
		RedirectURI:  tx.RedirectURI,
		State:        tx.State,
		ResponseMode: tx.ResponseMode,
	}, timeout)
	return attempt, nil
}

type outcome struct {
	state  State
	result *oauthmodel.AuthResult
	err    error
}

// run completes the attempt. The timer covers both waiting for the response and
// validating it, so the attempt never stays pending past its timeout.
func (r *Renewer) run(ctx context.Context, attempt *Attempt, req ChannelRequest, timeout time.Duration) {
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan outcome, 1)
	go func() {
		outcomes <- r.complete(waitCtx, req)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		r.discard(req.State)
		r.finish(attempt, StateTimedOut, nil, autherror.Newf(autherror.KindTimeout, "session renewal timed out after %s", timeout))
	case <-ctx.Done():
		r.discard(req.State)
		r.finish(attempt, StateFailed, nil, autherror.Wrap(autherror.KindNetwork, ctx.Err(), "session renewal cancelled"))
	case got := <-outcomes:
		if got.err != nil {
			r.discard(req.State)
		}
		r.finish(attempt, got.state, got.result, got.err)
	}
}

// complete waits for the authorize response and validates it.
func (r *Renewer) complete(ctx context.Context, req ChannelRequest) outcome {
	response, err := r.channel.Await(ctx, req)
	if err != nil {
		return outcome{state: StateFailed, err: autherror.Wrap(autherror.KindNetwork, err, "session renewal request failed")}
	}
	result, err := r.parser.ParseHash(ctx, fragment.ParseHashOptions{Hash: response})
	switch {
	case err != nil:
		return outcome{state: StateFailed, err: err}
	case result == nil:
		return outcome{state: StateFailed, err: autherror.Validation("renewal response carried no authorization result")}
	}
	return outcome{state: StateCompleted, result: result}
}

func (r *Renewer) finish(attempt *Attempt, state State, result *oauthmodel.AuthResult, err error) {
	if !attempt.finish(state, result, err) {
		return
	}
	elapsed := r.now().Sub(attempt.StartedAt)
	r.metrics.RecordRenewal(state.String(), elapsed)
	evt := r.logger.Debug()
	if err != nil {
		evt = r.logger.Info().Err(err)
	}
	evt.Str("attempt_id", attempt.ID).Str("state", state.String()).Dur("elapsed", elapsed).Msg("session renewal finished")
}

func (r *Renewer) discard(state string) {
	if err := r.repo.Delete(context.Background(), state); err != nil {
		r.logger.Warn().Err(err).Msg("failed to delete renewal transaction")
	}
}
