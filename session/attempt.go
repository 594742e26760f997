package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// State is the lifecycle position of a renewal attempt.
type State int32

const (
	StateIdle State = iota
	StatePending
	StateCompleted
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed_out"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateFailed
}

// Attempt is one silent renewal. It completes exactly once.
type Attempt struct {
	ID        string
	StartedAt time.Time

	// AuthorizeURL is the prompt=none request. With a MessageChannel the browser
	// side loads it in a hidden frame.
	AuthorizeURL string

	state  atomic.Int32
	once   sync.Once
	done   chan struct{}
	result *oauthmodel.AuthResult
	err    error
}

func newAttempt(now time.Time) *Attempt {
	return &Attempt{
		ID:        uuid.NewString(),
		StartedAt: now,
		done:      make(chan struct{}),
	}
}

// State returns the current state.
func (a *Attempt) State() State {
	return State(a.state.Load())
}

// Done is closed when the attempt reaches a terminal state.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Result returns the outcome. It is only meaningful after Done is closed.
func (a *Attempt) Result() (*oauthmodel.AuthResult, error) {
	select {
	case <-a.done:
		return a.result, a.err
	default:
		return nil, autherror.Newf(autherror.KindConfiguration, "renewal %s is still %s", a.ID, a.State())
	}
}

// Wait blocks until the attempt completes or ctx ends. Ending ctx does not
// change the attempt's state.
func (a *Attempt) Wait(ctx context.Context) (*oauthmodel.AuthResult, error) {
	select {
	case <-a.done:
		return a.result, a.err
	case <-ctx.Done():
		return nil, autherror.Wrap(autherror.KindTimeout, ctx.Err(), "stopped waiting for session renewal")
	}
}

func (a *Attempt) begin() bool {
	return a.state.CompareAndSwap(int32(StateIdle), int32(StatePending))
}

// finish moves a pending attempt to a terminal state. Later calls are ignored.
func (a *Attempt) finish(state State, result *oauthmodel.AuthResult, err error) bool {
	finished := false
	a.once.Do(func() {
		a.result, a.err = result, err
		a.state.Store(int32(state))
		close(a.done)
		finished = true
	})
	return finished
}
