// Package metrics defines the Prometheus instruments exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnswersTotal counts replies given to callers, by where the answer
	// came from: "knowledge", "model" or "escalated".
	AnswersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_answers_total",
		Help: "Replies returned to callers by answer source.",
	}, []string{"source"})

	// EscalationsTotal counts help requests created, by the reason the
	// policy engine gave up: "incomplete", "model_inadequate",
	// "model_error" or "manual".
	EscalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontdesk_escalations_total",
		Help: "Help requests raised to the supervisor by reason.",
	}, []string{"reason"})

	RequestsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_requests_resolved_total",
		Help: "Help requests resolved by a supervisor.",
	})

	RequestsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_requests_expired_total",
		Help: "Help requests marked unresolved by the timeout sweeper.",
	})

	NotificationsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "frontdesk_notifications_delivered_total",
		Help: "Follow-up notifications delivered back to requesters.",
	})

	PendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "frontdesk_pending_requests",
		Help: "Help requests currently awaiting a supervisor.",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frontdesk_sweep_duration_seconds",
		Help:    "Duration of timeout sweeper passes.",
		Buckets: prometheus.DefBuckets,
	})

	NotifyPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frontdesk_notify_poll_duration_seconds",
		Help:    "Duration of notification delivery passes.",
		Buckets: prometheus.DefBuckets,
	})
)
