package ibmq

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSwapsInsertedMetric ensures the router counts the SWAPs it inserts.
func TestSwapsInsertedMetric(t *testing.T) {
	before := testutil.ToFloat64(swapsInserted)
	r := GreedyRouter{Initial: Placement{0: 0, 1: 1, 2: 2, 3: 3}}
	res, err := r.RouteWithPlacement(NewCircuit(4, 0).CX(0, 3), NewArchitecture(LinearCoupling(4)))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Swaps)
	assert.Equal(t, before+2, testutil.ToFloat64(swapsInserted))
}

// TestMetricsRegistered ensures the collectors are exported under the
// package's namespace.
func TestMetricsRegistered(t *testing.T) {
	jobsSubmitted.WithLabelValues("metrics-test").Inc()
	shotsRequested.WithLabelValues("metrics-test").Add(10)
	assert.Equal(t, 1.0, testutil.ToFloat64(jobsSubmitted.WithLabelValues("metrics-test")))
	assert.Equal(t, 10.0, testutil.ToFloat64(shotsRequested.WithLabelValues("metrics-test")))

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer,
		"ibmq_backend_jobs_submitted_total",
		"ibmq_backend_shots_requested_total",
		"ibmq_routing_swaps_inserted_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 3)
}
