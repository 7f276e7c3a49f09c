package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

var (
	PromptsBlockedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsentry_prompts_blocked_total",
			Help: "Total number of prompts rejected by the input sanitizer",
		},
		[]string{"category"},
	)

	OutputsBlockedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "leadsentry_outputs_blocked_total",
			Help: "Total number of AI responses replaced by the safe message",
		},
	)

	PIIRedactionsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsentry_pii_redactions_total",
			Help: "Total number of PII matches masked in AI responses",
		},
		[]string{"entity"},
	)

	RateLimitDeniedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "leadsentry_rate_limit_denied_total",
			Help: "Total number of requests denied by the per-user rate limiter",
		},
	)

	SecurityEventsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsentry_security_events_total",
			Help: "Total number of security events emitted",
		},
		[]string{"event_type", "severity"},
	)

	RequestsTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadsentry_requests_total",
			Help: "Total number of API requests processed",
		},
		[]string{"endpoint", "status"},
	)
)

func Registry() *prometheus.Registry {
	return registry
}
