// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Fundhub Contributors

package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_AuthEvents(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRegistration("success")
	m.RecordRegistration("duplicate")
	m.RecordSessionResolution("invalid")
	m.RecordSessionResolution("invalid")
	m.RecordSessionsSwept(3)
	m.RecordSessionsSwept(0)

	assert.InDelta(t, 1, testutil.ToFloat64(m.RegistrationsTotal.WithLabelValues("duplicate")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.SessionResolutionsTotal.WithLabelValues("invalid")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.SessionsSweptTotal), 0)
}

func TestMetrics_HTTP(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordHTTPRequest("GET", "/projects/{id}", 404, time.Millisecond)
	m.RecordHTTPRequest("GET", "/projects/{id}", 404, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/projects/{id}", "404")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestNewMetrics_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	assert.Panics(t, func() { NewMetrics(reg) })
}
