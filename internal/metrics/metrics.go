// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "volunteerhub",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	TokensIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "session_tokens_issued_total",
		Help:      "Session tokens issued at login or registration.",
	})

	TokensRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "session_tokens_revoked_total",
		Help:      "Session tokens invalidated by logout, re-login or ban.",
	})

	TokensCleaned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "session_tokens_cleaned_total",
		Help:      "Dead session tokens deleted by the cleanup job.",
	})

	SessionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "session_cache_lookups_total",
		Help:      "Session validation cache lookups by result.",
	}, []string{"result"})

	ActivityTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "activity_transitions_total",
		Help:      "Activity status transitions by target status.",
	}, []string{"status"})

	ApplicationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "application_decisions_total",
		Help:      "Application status changes by resulting status.",
	}, []string{"status"})

	ParticipationRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "participation_records_upserted_total",
		Help:      "Participation ledger rows written.",
	})

	BansExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "volunteerhub",
		Name:      "bans_expired_total",
		Help:      "Bans deactivated because their expiry passed.",
	})
)
