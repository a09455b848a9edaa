package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RunLifecycle(t *testing.T) {
	m := New()

	m.RunStarted()
	assert.InDelta(t, 1, testutil.ToFloat64(m.runsInFlight), 0)

	m.RunFinished("FAILED", "Timeout", 2*time.Second, 12)
	m.RunEnded()
	assert.InDelta(t, 0, testutil.ToFloat64(m.runsInFlight), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues("FAILED", "Timeout")), 0)

	m.ActionExecuted("log", "succeeded")
	m.ActionExecuted("log", "succeeded")
	assert.InDelta(t, 2, testutil.ToFloat64(m.actionsTotal.WithLabelValues("log", "succeeded")), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.EventReceived("follow", "instagram")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `autoflow_events_received_total{event_type="follow",source="instagram"} 1`))
}
