package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives client side measurements.
type Recorder interface {
	RecordRequest(endpoint string, status int, duration time.Duration)
	RecordRetry(endpoint string)
	RecordTokenValidation(result string)
	RecordJWKSFetch(success bool)
	RecordRenewal(outcome string, duration time.Duration)
	RecordParse(outcome string)
}

var _ Recorder = (*Metrics)(nil)

// Metrics holds the Prometheus collectors of the client.
type Metrics struct {
	RequestsTotal        *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
	RetriesTotal         *prometheus.CounterVec
	TokenValidationTotal *prometheus.CounterVec
	JWKSFetchTotal       *prometheus.CounterVec
	RenewalsTotal        *prometheus.CounterVec
	RenewalDuration      prometheus.Histogram
	ParseTotal           *prometheus.CounterVec
}

// New registers the collectors with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_requests_total",
			Help: "Requests sent to the authorization server",
		}, []string{"endpoint", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authclient_request_duration_seconds",
			Help:    "Latency of requests sent to the authorization server",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_request_retries_total",
			Help: "Retried requests",
		}, []string{"endpoint"}),
		TokenValidationTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_id_token_validations_total",
			Help: "Identity token validation outcomes",
		}, []string{"result"}),
		JWKSFetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_jwks_fetches_total",
			Help: "Signing key set downloads",
		}, []string{"result"}),
		RenewalsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_session_renewals_total",
			Help: "Silent session renewal outcomes",
		}, []string{"outcome"}),
		RenewalDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "authclient_session_renewal_duration_seconds",
			Help:    "Time taken by silent session renewals",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ParseTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authclient_redirect_parses_total",
			Help: "Redirect response parse outcomes",
		}, []string{"outcome"}),
	}
}

// Init returns a Prometheus recorder registered on reg when enabled, otherwise a noop.
func Init(enabled bool, reg prometheus.Registerer) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}
	return New(reg)
}

func (m *Metrics) RecordRequest(endpoint string, status int, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(endpoint, statusLabel(status)).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordRetry(endpoint string) {
	m.RetriesTotal.WithLabelValues(endpoint).Inc()
}

func (m *Metrics) RecordTokenValidation(result string) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordJWKSFetch(success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	m.JWKSFetchTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRenewal(outcome string, duration time.Duration) {
	m.RenewalsTotal.WithLabelValues(outcome).Inc()
	m.RenewalDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordParse(outcome string) {
	m.ParseTotal.WithLabelValues(outcome).Inc()
}

func statusLabel(status int) string {
	switch {
	case status == 0:
		return "network_error"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
