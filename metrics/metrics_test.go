package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_ObserveWorkflow(t *testing.T) {
	r := NewRecorder("confidential_trials")

	r.ObserveWorkflow("create", OutcomeSuccess, 1500*time.Millisecond)
	r.ObserveWorkflow("create", OutcomeRejected, 500*time.Millisecond)
	r.ObserveWorkflow("create", OutcomeBusy, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.workflowTotal.WithLabelValues("create", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.workflowTotal.WithLabelValues("create", OutcomeBusy)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.workflowDuration))

	r.SetRegistrySize(5, 2)
	assert.Equal(t, 5.0, testutil.ToFloat64(r.trialsLoaded))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.trialsVerified))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder("confidential_trials")
	r.ObserveWorkflow("probe", OutcomeFailure, time.Second)

	srv := httptest.NewServer(New(r, "").srv.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `confidential_trials_workflow_total{outcome="failure",workflow="probe"} 1`)
	assert.Contains(t, string(body), `confidential_trials_workflow_duration_seconds_sum{workflow="probe"} 1`)
}
