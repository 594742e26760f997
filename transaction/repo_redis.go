package transaction

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jrsteele09/go-auth-client/oauthmodel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "authtx:"

// RedisRepo stores transactions in Redis so several processes can share them.
type RedisRepo struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ Repo = (*RedisRepo)(nil)

// RedisOption configures a RedisRepo.
type RedisOption func(*RedisRepo)

// WithRedisTTL sets the key expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRepo) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedisRepo creates a Redis-backed repository.
func NewRedisRepo(client redis.UniversalClient, opts ...RedisOption) *RedisRepo {
	r := &RedisRepo{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// NewRedisRepoFromURL connects to the server at a redis:// URL.
func NewRedisRepoFromURL(ctx context.Context, rawURL string, opts ...RedisOption) (*RedisRepo, error) {
	redisOpts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "[transaction.NewRedisRepoFromURL] parsing url")
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "[transaction.NewRedisRepoFromURL] ping")
	}
	return NewRedisRepo(client, opts...), nil
}

// Upsert stores a transaction with the configured TTL.
func (r *RedisRepo) Upsert(ctx context.Context, state string, tx *oauthmodel.Transaction) error {
	if state == "" {
		return ErrEmptyState
	}
	if tx == nil {
		return ErrNilTransaction
	}
	stored := *tx
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return errors.Wrap(err, "[RedisRepo.Upsert] marshal")
	}
	if err := r.client.Set(ctx, keyPrefix+state, b, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Upsert] set")
	}
	return nil
}

// Get loads a transaction. Expired keys are reported as ErrNotFound.
func (r *RedisRepo) Get(ctx context.Context, state string) (*oauthmodel.Transaction, error) {
	if state == "" {
		return nil, ErrEmptyState
	}
	b, err := r.client.Get(ctx, keyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[RedisRepo.Get] get")
	}
	var tx oauthmodel.Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return nil, errors.Wrap(err, "[RedisRepo.Get] unmarshal")
	}
	return &tx, nil
}

// Take loads and removes a transaction with a single GETDEL.
func (r *RedisRepo) Take(ctx context.Context, state string) (*oauthmodel.Transaction, error) {
	if state == "" {
		return nil, ErrEmptyState
	}
	b, err := r.client.GetDel(ctx, keyPrefix+state).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[RedisRepo.Take] getdel")
	}
	var tx oauthmodel.Transaction
	if err := json.Unmarshal(b, &tx); err != nil {
		return nil, errors.Wrap(err, "[RedisRepo.Take] unmarshal")
	}
	return &tx, nil
}

// Delete removes a transaction.
func (r *RedisRepo) Delete(ctx context.Context, state string) error {
	if state == "" {
		return ErrEmptyState
	}
	if err := r.client.Del(ctx, keyPrefix+state).Err(); err != nil {
		return errors.Wrap(err, "[RedisRepo.Delete] del")
	}
	return nil
}

// Close releases the Redis connection.
func (r *RedisRepo) Close() error {
	return r.client.Close()
}
