package metrics

import "time"

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a recorder that does nothing.
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordRequest(endpoint string, status int, duration time.Duration) {}
func (n *NoopMetrics) RecordRetry(endpoint string)                                       {}
func (n *NoopMetrics) RecordTokenValidation(result string)                               {}
func (n *NoopMetrics) RecordJWKSFetch(success bool)                                      {}
func (n *NoopMetrics) RecordRenewal(outcome string, duration time.Duration)              {}
func (n *NoopMetrics) RecordParse(outcome string)                                        {}
