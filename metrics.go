package ibmq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "ibmq"
	subsystem        = "backend"
)

var (
	jobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "jobs_submitted_total",
			Help:      "Total number of jobs submitted to a device",
		},
		[]string{"device"},
	)

	jobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "jobs_failed_total",
			Help:      "Total number of jobs that finished without a result",
		},
		[]string{"device", "status"},
	)

	shotsRequested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "shots_requested_total",
			Help:      "Total number of shots requested across all jobs",
		},
		[]string{"device"},
	)

	swapsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "routing",
			Name:      "swaps_inserted_total",
			Help:      "Total number of SWAP gates inserted by the router",
		},
	)

	jobWaitSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "job_wait_seconds",
			Help:      "Time from job submission until its final status was observed",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		},
		[]string{"device"},
	)
)
