// Package transaction stores the state, nonce and app state of authorize
// requests until the matching redirect is parsed.
package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// DefaultTTL bounds how long an unanswered authorize request is remembered.
const DefaultTTL = 30 * time.Minute

var (
	ErrNotFound       = errors.New("transaction not found")
	ErrEmptyState     = errors.New("state cannot be empty")
	ErrNilTransaction = errors.New("transaction cannot be nil")
)

// Repo stores transactions keyed by state.
type Repo interface {
	Upsert(ctx context.Context, state string, tx *oauthmodel.Transaction) error
	Get(ctx context.Context, state string) (*oauthmodel.Transaction, error)
	Delete(ctx context.Context, state string) error

	// Take atomically returns and removes a transaction. Of any number of
	// concurrent callers for one state at most one receives it.
	Take(ctx context.Context, state string) (*oauthmodel.Transaction, error)
}
