// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fundhub/fundhub/internal/auth"
)

// Metrics holds the fundhub Prometheus collectors. It implements
// auth.Metrics and records HTTP traffic for the web package.
type Metrics struct {
	LoginsTotal             *prometheus.CounterVec
	RegistrationsTotal      *prometheus.CounterVec
	SessionResolutionsTotal *prometheus.CounterVec
	SessionsSweptTotal      prometheus.Counter
	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
}

var _ auth.Metrics = (*Metrics)(nil)

// NewMetrics creates and registers the fundhub metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundhub_logins_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundhub_registrations_total",
				Help: "Registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		SessionResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundhub_session_resolutions_total",
				Help: "Session token resolutions by outcome",
			},
			[]string{"outcome"},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "fundhub_sessions_swept_total",
				Help: "Expired sessions removed by sweeping",
			},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundhub_http_requests_total",
				Help: "HTTP requests by method, route pattern and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fundhub_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route pattern",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.LoginsTotal,
		m.RegistrationsTotal,
		m.SessionResolutionsTotal,
		m.SessionsSweptTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)
	return m
}

// RecordLogin implements auth.Metrics.
func (m *Metrics) RecordLogin(outcome string) {
	m.LoginsTotal.WithLabelValues(outcome).Inc()
}

// RecordRegistration implements auth.Metrics.
func (m *Metrics) RecordRegistration(outcome string) {
	m.RegistrationsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionResolution implements auth.Metrics.
func (m *Metrics) RecordSessionResolution(outcome string) {
	m.SessionResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionsSwept implements auth.Metrics.
func (m *Metrics) RecordSessionsSwept(count int64) {
	if count > 0 {
		m.SessionsSweptTotal.Add(float64(count))
	}
}

// RecordHTTPRequest counts one served request. route is the matched
// pattern, never the raw path, to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
