package ibmq_test

import (
	"bytes"
	"context"
	"net/http"
	"testing"

	"github.com/lanl/ibmq"
	"github.com/lanl/ibmq/ibmqtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestJobStatusFinal ensures exactly the terminal statuses are final.
func TestJobStatusFinal(t *testing.T) {
	final := map[ibmq.JobStatus]bool{
		ibmq.StatusInitializing: false,
		ibmq.StatusQueued:       false,
		ibmq.StatusValidating:   false,
		ibmq.StatusRunning:      false,
		ibmq.StatusDone:         true,
		ibmq.StatusError:        true,
		ibmq.StatusCancelled:    true,
	}
	for s, want := range final {
		assert.Equalf(t, want, s.Final(), "%s", s)
	}
}

// TestSubmittedJobLifecycle ensures a job can be submitted, retrieved by ID,
// and its result read.
func TestSubmittedJobLifecycle(t *testing.T) {
	b, srv, _ := newTestBackend(t)
	ctx := context.Background()
	srv.Service.SetQueueSteps(1)

	c := ibmq.NewCircuit(2, 2).X(1).MeasureAll()
	job, err := b.Submit(ctx, c, 20, ibmq.WithSeed(5))
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID())
	assert.Equal(t, "ibmqx4", job.Device().Name)

	q, ok := srv.Service.Qobj(job.ID())
	require.True(t, ok)
	require.NotNil(t, q.Config.Seed)
	assert.Equal(t, int64(5), *q.Config.Seed)

	// The fake service steps through QUEUED and RUNNING.
	info, err := job.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, ibmq.StatusQueued, info.Status)
	assert.Equal(t, 1, info.QueuePosition)
	done, err := job.Done(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	again, err := b.Device().RetrieveJob(ctx, job.ID())
	require.NoError(t, err)
	assert.Equal(t, job.ID(), again.ID())

	res, err := again.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID(), res.JobID)
	assert.Equal(t, q.ID, res.QobjID)
	require.Len(t, res.Results, 1)

	mem, err := res.Memory(0)
	require.NoError(t, err)
	assert.Len(t, mem, 20)
	counts, err := res.Counts(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"10": 20}, counts)

	_, err = res.Memory(1)
	assert.Error(t, err)
	_, err = res.Counts(-1)
	assert.Error(t, err)

	table, err := ibmq.TableFromResult(res, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 1}, table[0])
}

// TestRetrieveUnknownJob ensures a missing job is reported by the service.
func TestRetrieveUnknownJob(t *testing.T) {
	b, _, _ := newTestBackend(t)
	_, err := b.Device().RetrieveJob(context.Background(), "no-such-job")
	var apiErr *ibmq.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, ibmqtest.CodeJobNotFound, apiErr.Code)
}

// TestSubmittedJobCancel ensures a cancelled job yields ErrJobCancelled and
// cannot be cancelled twice.
func TestSubmittedJobCancel(t *testing.T) {
	b, srv, _ := newTestBackend(t)
	ctx := context.Background()
	srv.Service.SetQueueSteps(10)

	job, err := b.Submit(ctx, ibmq.NewCircuit(1, 1).Measure(0, 0), 10)
	require.NoError(t, err)
	require.NoError(t, job.Cancel(ctx))

	var out bytes.Buffer
	info, err := ibmq.MonitorJob(ctx, job, &out, 0)
	require.NoError(t, err)
	assert.Equal(t, ibmq.StatusCancelled, info.Status)
	assert.Contains(t, out.String(), "job has been cancelled")

	_, err = job.Result(ctx)
	assert.ErrorIs(t, err, ibmq.ErrJobCancelled)

	err = job.Cancel(ctx)
	var apiErr *ibmq.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, ibmqtest.CodeJobFinal, apiErr.Code)
}

// TestResultWithoutMemory ensures a result lacking per-shot memory is
// reported and counts are still available.
func TestResultWithoutMemory(t *testing.T) {
	res := &ibmq.Result{
		Results: []ibmq.ExperimentResult{{
			Header: ibmq.ExperimentHeader{Name: "circuit-0", MemorySlots: 2},
			Data:   ibmq.ExperimentData{Counts: map[string]int{"01": 3}},
		}},
	}
	_, err := res.Memory(0)
	assert.ErrorIs(t, err, ibmq.ErrNoMemory)
	_, err = ibmq.TableFromResult(res, 0)
	assert.ErrorIs(t, err, ibmq.ErrNoMemory)

	counts, err := res.Counts(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"01": 3}, counts)
}

// TestResultCountsFromMemory ensures counts are tallied from memory when the
// service omits them.
func TestResultCountsFromMemory(t *testing.T) {
	res := &ibmq.Result{
		Results: []ibmq.ExperimentResult{{
			Header: ibmq.ExperimentHeader{MemorySlots: 3},
			Data:   ibmq.ExperimentData{Memory: []string{"0x1", "0x1", "0x6"}},
		}},
	}
	counts, err := res.Counts(0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"001": 2, "110": 1}, counts)
}
