// metrics.go - Prometheus instrumentation, exposed at /metrics.
package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebox_http_requests_total",
		Help: "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "filebox_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	})

	registrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filebox_registrations_total",
		Help: "Accounts created.",
	})

	loginsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filebox_logins_total",
		Help: "Successful logins.",
	})

	loginFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filebox_login_failures_total",
		Help: "Rejected login attempts.",
	})

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filebox_uploads_total",
		Help: "Files stored successfully.",
	})

	uploadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebox_uploads_rejected_total",
		Help: "Uploads rejected, by reason.",
	}, []string{"reason"})

	downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filebox_downloads_total",
		Help: "Files served as downloads.",
	})

	deletesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filebox_deletes_total",
		Help: "Files deleted.",
	})
)

func observeRequest(method string, status int, d time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	requestDuration.Observe(d.Seconds())
}
