package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(OutcomeExact)
	m.Observe(OutcomeExact)
	m.Observe(OutcomeMiss)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Lookups.WithLabelValues(OutcomeExact)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(OutcomeMiss)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe(OutcomeError)
	m.Loaded(3, 1)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.Loaded(12, 2)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "diagreplay_routes_loaded 12")
	assert.Contains(t, string(body), "diagreplay_records_dropped_total 2")
}
