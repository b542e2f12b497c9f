package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersRegistered prometheus.Counter
	AuthFailures    prometheus.Counter
	TokenRequests   prometheus.Counter
	ChecksCreated   *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
	ProviderLatency *prometheus.HistogramVec
	IPLookups       *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_users_registered_total",
			Help: "Total number of users registered",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		TokenRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_kyc_token_requests_total",
			Help: "Total number of verification access-token requests",
		}),
		ChecksCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_checks_created_total",
			Help: "Total number of verification checks created, labeled by type",
		}, []string{"type"}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_webhook_events_total",
			Help: "Total number of webhook events received, labeled by type and outcome",
		}, []string{"type", "outcome"}),
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_provider_latency_seconds",
			Help:    "Latency of verification-provider calls in seconds, labeled by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		IPLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ip_lookups_total",
			Help: "Total number of IP reputation lookups, labeled by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementUsersRegistered increments the users registered counter by 1.
func (m *Metrics) IncrementUsersRegistered() {
	if m == nil {
		return
	}
	m.UsersRegistered.Inc()
}

func (m *Metrics) IncrementAuthFailures() {
	if m == nil {
		return
	}
	m.AuthFailures.Inc()
}

func (m *Metrics) IncrementTokenRequests() {
	if m == nil {
		return
	}
	m.TokenRequests.Inc()
}

func (m *Metrics) IncrementChecksCreated(checkType string) {
	if m == nil {
		return
	}
	m.ChecksCreated.WithLabelValues(checkType).Inc()
}

func (m *Metrics) IncrementWebhookEvents(eventType, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType, outcome).Inc()
}

// ObserveProviderLatency records the latency of a provider operation.
func (m *Metrics) ObserveProviderLatency(operation string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ProviderLatency.WithLabelValues(operation).Observe(durationSeconds)
}

func (m *Metrics) IncrementIPLookups(outcome string) {
	if m == nil {
		return
	}
	m.IPLookups.WithLabelValues(outcome).Inc()
}
