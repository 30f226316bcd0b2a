package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveInventory("vms", 200, 10*time.Millisecond)
	m.ObserveInventory("vms", 200, 20*time.Millisecond)
	m.PlanMutation("create", nil)
	m.PlanMutation("create", errors.New("boom"))
	m.Prefill("done")
	m.Job("plan-create", "completed")
	m.Job("plan-create", "cancelled")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inventoryRequests.WithLabelValues("vms", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planMutations.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planMutations.WithLabelValues("create", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.prefills.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("plan-create", "completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("plan-create", "cancelled")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveInventory("vms", 500, time.Second)
	m.PlanMutation("delete", nil)
	m.Prefill("error")
	m.Job("plan-update", "failed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.PlanMutation("patch", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `console_plan_mutations_total{op="patch",result="success"} 1`))
}
