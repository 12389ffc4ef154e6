// Package metrics holds the site's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "portfolio"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "HTTP requests by route and status."},
		[]string{"method", "route", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request latency by route.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)

	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// FeedbackSubmissions counts submit outcomes: created, invalid,
	// setup_missing or failed.
	FeedbackSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "feedback_submissions_total", Help: "Feedback submissions by outcome."},
		[]string{"result"},
	)
	FeedbackLiveSessions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: namespace, Name: "feedback_live_sessions", Help: "Open live feedback connections by transport."},
		[]string{"transport"},
	)
	FeedbackEventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "feedback_events_delivered_total", Help: "Live feedback events pushed to clients by transport."},
		[]string{"transport"},
	)

	ContactMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "contact_messages_total", Help: "Contact form messages by sender and outcome."},
		[]string{"sender", "result"},
	)

	VisitorsTracked = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "visitors_tracked_total", Help: "Page views recorded by the visitor tracker."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(FeedbackSubmissions)
	reg.MustRegister(FeedbackLiveSessions)
	reg.MustRegister(FeedbackEventsDelivered)
	reg.MustRegister(ContactMessages)
	reg.MustRegister(VisitorsTracked)
}
