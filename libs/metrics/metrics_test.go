package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveOperation("create", "ok", 5*time.Millisecond)
	m.ObserveOperation("create", "conflict", time.Millisecond)
	m.ObserveOperation("create", "conflict", time.Millisecond)
	m.ObserveEvent("booking.appointment.created.v1", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("create", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("booking.appointment.created.v1", "delivered")))

	rw := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rw.Code)
	assert.True(t, strings.Contains(rw.Body.String(), "massagebook_booking_operations_total"))
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *BookingMetrics
	m.ObserveOperation("confirm", "ok", time.Millisecond)
	m.ObserveEvent("booking.appointment.confirmed.v1", false)
}
