// Package jwks caches the authorization server's token signing keys.
package jwks

import (
	"context"
	"crypto/rsa"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-client/autherror"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var _ oidc.KeySet = (*Cache)(nil)

// Fetcher retrieves a JSON document.
type Fetcher interface {
	Do(ctx context.Context, req transport.Request, out any) error
}

const (
	// DefaultMinRefreshInterval is how long a lookup miss waits after the last
	// download before it may download the key set again.
	DefaultMinRefreshInterval = time.Minute

	fetchTimeout = 30 * time.Second
)

// Cache holds RSA signing keys by key ID. A lookup miss downloads the key set;
// concurrent misses share a single download. Misses are served from the cache
// without a download until the minimum refresh interval has passed.
type Cache struct {
	uri         string
	fetcher     Fetcher
	logger      zerolog.Logger
	metrics     metrics.Recorder
	now         func() time.Time
	minInterval time.Duration

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	lastRefresh time.Time
	group       singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(c *Cache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithMinRefreshInterval sets how often lookup misses may download the key set.
// Zero downloads on every miss.
func WithMinRefreshInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d >= 0 {
			c.minInterval = d
		}
	}
}

// WithNowTime sets the clock.
func WithNowTime(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a cache for the key set published at uri.
func NewCache(uri string, fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		uri:         uri,
		fetcher:     fetcher,
		logger:      log.Logger,
		metrics:     metrics.NewNoopMetrics(),
		now:         time.Now,
		minInterval: DefaultMinRefreshInterval,
		keys:        make(map[string]*rsa.PublicKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the public key for kid, downloading the key set on a miss.
func (c *Cache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := c.lookup(kid); ok {
		return key, nil
	}

	if c.recentlyRefreshed() {
		c.logger.Debug().Str("kid", kid).Msg("unknown kid within refresh interval, skipping download")
		return nil, autherror.Validation("no signing key found for kid %q", kid)
	}

	shared, err := c.download(ctx)
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug().Str("kid", kid).Msg("joined in-flight key set download")
	}

	if key, ok := c.lookup(kid); ok {
		return key, nil
	}
	return nil, autherror.Validation("no signing key found for kid %q", kid)
}

// Refresh downloads the key set, replacing cached keys with the same ID.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.download(ctx)
	return err
}

// download runs one shared key set download. The download is detached from the
// caller's cancellation so one caller giving up does not fail the others; each
// caller stops waiting when its own context ends.
func (c *Cache) download(ctx context.Context) (bool, error) {
	ch := c.group.DoChan(c.uri, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return nil, c.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return false, autherror.Wrap(autherror.KindTimeout, ctx.Err(), "key set download deadline exceeded")
		}
		return false, autherror.Wrap(autherror.KindNetwork, ctx.Err(), "key set download cancelled")
	case res := <-ch:
		return res.Shared, res.Err
	}
}

func (c *Cache) recentlyRefreshed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.lastRefresh.IsZero() && c.now().Sub(c.lastRefresh) < c.minInterval
}

// Len returns the number of cached keys.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// VerifySignature checks an RS256 signature and returns the token payload.
func (c *Cache) VerifySignature(ctx context.Context, raw string) ([]byte, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{RS256}), jwt.WithoutClaimsValidation())

	_, err := parser.Parse(raw, func(token *jwt.Token) (any, error) {
		kid, _ := token.Header["kid"].(string)
		return c.Key(ctx, kid)
	})
	if err != nil {
		if apiErr, ok := autherror.As(err); ok && apiErr.Kind != autherror.KindValidation {
			return nil, apiErr
		}
		return nil, autherror.Wrap(autherror.KindValidation, err, "invalid token signature")
	}

	parts := strings.Split(raw, ".")
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, autherror.Wrap(autherror.KindValidation, err, "malformed token payload")
	}
	return payload, nil
}

func (c *Cache) lookup(kid string) (*rsa.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if kid == "" && len(c.keys) == 1 {
		for _, key := range c.keys {
			return key, true
		}
	}
	key, ok := c.keys[kid]
	return key, ok
}

func (c *Cache) refresh(ctx context.Context) error {
	var set JWKS
	if err := c.fetcher.Do(ctx, transport.Request{Path: c.uri}, &set); err != nil {
		c.metrics.RecordJWKSFetch(false)
		c.logger.Error().Err(err).Str("uri", c.uri).Msg("failed to download signing keys")
		return err
	}
	c.metrics.RecordJWKSFetch(true)

	fetched := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		if k.Alg != "" && k.Alg != RS256 {
			continue
		}
		key, err := k.RSAPublicKey()
		if err != nil {
			c.logger.Warn().Err(err).Str("kid", k.Kid).Msg("skipping unusable signing key")
			continue
		}
		fetched[k.Kid] = key
	}

	c.mu.Lock()
	for kid, key := range fetched {
		c.keys[kid] = key
	}
	c.lastRefresh = c.now()
	c.mu.Unlock()

	c.logger.Debug().Int("keys", len(fetched)).Str("uri", c.uri).Msg("signing keys downloaded")
	return nil
}
