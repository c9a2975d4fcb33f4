// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsCreated counts check-in sessions opened by lecturers.
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_checkin_sessions_created_total",
		Help: "Number of check-in sessions created.",
	})

	// SessionsSuperseded counts prior ACTIVE sessions expired by a newer create.
	SessionsSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_checkin_sessions_superseded_total",
		Help: "Number of check-in sessions expired by a superseding create.",
	})

	// Redemptions counts token redemption attempts by outcome
	// (recorded, already_recorded, expired, not_found).
	Redemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_redemptions_total",
		Help: "Number of token redemption attempts by outcome.",
	}, []string{"outcome"})

	// HTTPRequestDuration observes request latency per route and status class.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)
