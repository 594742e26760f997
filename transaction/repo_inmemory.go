package transaction

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu  sync.RWMutex
	txs map[string]*oauthmodel.Transaction
	ttl time.Duration
	now func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// InMemoryOption configures an InMemoryRepo.
type InMemoryOption func(*InMemoryRepo)

// WithTTL sets how long transactions are kept.
func WithTTL(ttl time.Duration) InMemoryOption {
	return func(r *InMemoryRepo) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithNowTime overrides the clock.
func WithNowTime(now func() time.Time) InMemoryOption {
	return func(r *InMemoryRepo) {
		if now != nil {
			r.now = now
		}
	}
}

// NewInMemoryRepo creates a new in-memory transaction repository
func NewInMemoryRepo(opts ...InMemoryOption) *InMemoryRepo {
	r := &InMemoryRepo{
		txs: make(map[string]*oauthmodel.Transaction),
		ttl: DefaultTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upsert stores or updates a transaction
func (r *InMemoryRepo) Upsert(_ context.Context, state string, tx *oauthmodel.Transaction) error {
	if state == "" {
		return ErrEmptyState
	}
	if tx == nil {
		return ErrNilTransaction
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpired()

	// Store a copy to prevent external modifications
	stored := *tx
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now()
	}
	r.txs[state] = &stored
	return nil
}

// Get retrieves a transaction by state
func (r *InMemoryRepo) Get(_ context.Context, state string) (*oauthmodel.Transaction, error) {
	if state == "" {
		return nil, ErrEmptyState
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, exists := r.txs[state]
	if !exists || r.expired(tx) {
		return nil, ErrNotFound
	}

	copied := *tx
	return &copied, nil
}

// Delete removes a transaction
func (r *InMemoryRepo) Delete(_ context.Context, state string) error {
	if state == "" {
		return ErrEmptyState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.txs, state)
	return nil
}

// Take returns and removes a transaction under the write lock
func (r *InMemoryRepo) Take(_ context.Context, state string) (*oauthmodel.Transaction, error) {
	if state == "" {
		return nil, ErrEmptyState
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, exists := r.txs[state]
	delete(r.txs, state)
	if !exists || r.expired(tx) {
		return nil, ErrNotFound
	}
	return tx, nil
}

// Len returns the number of live transactions.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, tx := range r.txs {
		if !r.expired(tx) {
			n++
		}
	}
	return n
}

func (r *InMemoryRepo) expired(tx *oauthmodel.Transaction) bool {
	return r.now().Sub(tx.CreatedAt) > r.ttl
}

// evictExpired must be called with the write lock held.
func (r *InMemoryRepo) evictExpired() {
	for state, tx := range r.txs {
		if r.expired(tx) {
			delete(r.txs, state)
		}
	}
}
