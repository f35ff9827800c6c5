package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := New()
	c.Record(http.MethodPost, "/api/v1/leave/requests", 201, 40*time.Millisecond)
	c.Record(http.MethodPost, "/api/v1/leave/requests", 201, 10*time.Millisecond)
	c.Record(http.MethodGet, "", 404, time.Millisecond)
	c.Transition("approve", "ok")
	c.Transition("approve", "insufficient_balance")
	c.JobRun("leave.accrual", "completed", 2*time.Second)
	c.JobRun("leave.accrual", "skipped", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("POST", "/api/v1/leave/requests", "201")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transitions.WithLabelValues("approve", "insufficient_balance")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobRuns.WithLabelValues("leave.accrual", "skipped")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := New()
	c.Transition("apply", "ok")

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `trainerleave_leave_operations_total{operation="apply",outcome="ok"} 1`))
}
