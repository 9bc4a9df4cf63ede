// Package metrics exposes the service's Prometheus collectors. Everything is
// registered on the default registry via promauto and served on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts requests by method, route pattern and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_import_http_requests_total",
		Help: "HTTP requests processed, by method, route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menu_import_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// SessionsCreated counts parse results by the status the session landed in.
	SessionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_import_sessions_created_total",
		Help: "Import sessions created, by initial status.",
	}, []string{"status"})

	// ValidationIssues counts validator output by severity.
	ValidationIssues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_import_validation_issues_total",
		Help: "Validation issues produced, by severity.",
	}, []string{"severity"})

	// Commits counts transactional saves by outcome.
	Commits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_import_commits_total",
		Help: "Transactional saves, by outcome (committed, conflict, failed).",
	}, []string{"outcome"})

	// Rollbacks counts compensation runs by outcome.
	Rollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menu_import_rollbacks_total",
		Help: "Rollback runs, by outcome (complete, partial).",
	}, []string{"outcome"})

	// ExpiredSessionsSwept counts sessions removed by the expiry sweeper.
	ExpiredSessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "menu_import_expired_sessions_swept_total",
		Help: "Expired import sessions removed by the background sweeper.",
	})
)
