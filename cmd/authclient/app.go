package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/management"
	"github.com/jrsteele09/go-auth-client/transaction"
	"github.com/jrsteele09/go-auth-client/webauth"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"
)

type app struct {
	cfg      config.Config
	auth     *webauth.WebAuth
	registry *prometheus.Registry
	redis    *transaction.RedisRepo
	out      io.Writer
	diag     io.Writer
}

// newApp builds the facade. Transactions live in Redis when REDIS_URL is set so
// that authorize-url and parse-hash can run as separate invocations. Collected
// metrics are written to diag on close when METRICS_ENABLED is set.
func newApp(ctx context.Context, c config.Config, out, diag io.Writer) (*app, error) {
	a := &app{cfg: c, registry: prometheus.NewRegistry(), out: out, diag: diag}

	opts := []webauth.Option{
		webauth.WithLogger(log.Logger),
		webauth.WithMetrics(metrics.Init(c.GetMetricsEnabled(), a.registry)),
		webauth.WithRenewalTimeout(c.GetRenewalTimeout()),
	}
	if c.GetRequirePKCE() {
		opts = append(opts, webauth.WithPKCE())
	}
	if url := c.GetRedisURL(); url != "" {
		repo, err := transaction.NewRedisRepoFromURL(ctx, url)
		if err != nil {
			return nil, errors.Wrap(err, "[newApp] connecting to redis")
		}
		a.redis = repo
		opts = append(opts, webauth.WithTransactionRepo(repo))
	}

	auth, err := webauth.New(c.GetAuthOptions(), opts...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.auth = auth
	return a, nil
}

func (a *app) management() (*management.Client, error) {
	return management.New(a.cfg.GetManagementOptions(), management.WithLogger(log.Logger))
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) close() {
	if a.cfg.GetMetricsEnabled() {
		if err := a.writeMetrics(a.diag); err != nil {
			log.Warn().Err(err).Msg("writing metrics")
		}
	}
	if a.redis == nil {
		return
	}
	if err := a.redis.Close(); err != nil {
		log.Warn().Err(err).Msg("closing redis")
	}
}

// writeMetrics writes the gathered registry in the Prometheus text format.
func (a *app) writeMetrics(w io.Writer) error {
	families, err := a.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "[app.writeMetrics] gathering")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "[app.writeMetrics] encoding")
		}
	}
	return nil
}
