// This file presents job-related types and functions.  A job is submitted
// asynchronously; the functions here query its status, wait for it, and
// retrieve its result.

package ibmq

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often a job's status is queried while waiting.
const DefaultPollInterval = 2 * time.Second

// A JobStatus represents the status of a job as reported by the server.
type JobStatus string

// These are the values a JobStatus can accept.
const (
	StatusInitializing JobStatus = "INITIALIZING" // Job is being set up
	StatusQueued       JobStatus = "QUEUED"       // Job is waiting in a queue
	StatusValidating   JobStatus = "VALIDATING"   // Job is being checked against the device
	StatusRunning      JobStatus = "RUNNING"      // Job is executing
	StatusDone         JobStatus = "DONE"         // Job completed successfully
	StatusError        JobStatus = "ERROR"        // Job failed
	StatusCancelled    JobStatus = "CANCELLED"    // Job was cancelled by the user
)

// Final says whether a job in this status will never change status again.
func (s JobStatus) Final() bool {
	switch s {
	case StatusDone, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// A JobInfo describes the state of a submitted job.
type JobInfo struct {
	ID            string    `json:"id"`                       // Remote job ID
	Backend       string    `json:"backend"`                  // Device the job was submitted to
	Status        JobStatus `json:"status"`                   // Current status
	QueuePosition int       `json:"queue_position,omitempty"` // Position in the device queue, if queued
	CreationDate  time.Time `json:"creation_date"`            // Time at which the server received the job
	Error         string    `json:"error,omitempty"`          // Error message when Status is StatusError
}

// A Job is anything that can report its status and eventually produce a
// Result.  SubmittedJob is the implementation backed by the execution
// service.
type Job interface {
	ID() string
	Status(ctx context.Context) (*JobInfo, error)
	Result(ctx context.Context) (*Result, error)
	Cancel(ctx context.Context) error
}

// ExperimentData holds the measurement data of one experiment.
type ExperimentData struct {
	Memory []string       `json:"memory,omitempty"` // Per-shot outcomes
	Counts map[string]int `json:"counts,omitempty"` // Histogram of outcomes
}

// An ExperimentResult holds the outcome of one experiment in a job.
type ExperimentResult struct {
	Shots   int              `json:"shots"`
	Success bool             `json:"success"`
	Header  ExperimentHeader `json:"header"`
	Data    ExperimentData   `json:"data"`
	Status  string           `json:"status,omitempty"`
}

// A Result holds the outcome of every experiment in a completed job.
type Result struct {
	JobID       string             `json:"job_id"`
	QobjID      string             `json:"qobj_id"`
	BackendName string             `json:"backend_name"`
	Success     bool               `json:"success"`
	Results     []ExperimentResult `json:"results"`
}

// A MemoryResult is anything that can produce per-shot measurement memory for
// an experiment.  *Result implements it.
type MemoryResult interface {
	Memory(experiment int) ([]string, error)
}

// Memory returns the per-shot bitstrings of the i-th experiment.  Hexadecimal
// entries are expanded to the experiment's memory width.
func (r *Result) Memory(i int) ([]string, error) {
	if i < 0 || i >= len(r.Results) {
		return nil, errors.Errorf("result has no experiment %d", i)
	}
	er := r.Results[i]
	if er.Data.Memory == nil {
		return nil, errors.Wrapf(ErrNoMemory, "experiment %q", er.Header.Name)
	}
	return expandMemory(er.Data.Memory, er.Header.MemorySlots)
}

// Counts returns the histogram of outcomes of the i-th experiment.  When the
// service did not report counts they are tallied from the memory.
func (r *Result) Counts(i int) (map[string]int, error) {
	if i < 0 || i >= len(r.Results) {
		return nil, errors.Errorf("result has no experiment %d", i)
	}
	if c := r.Results[i].Data.Counts; c != nil {
		return c, nil
	}
	mem, err := r.Memory(i)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, m := range mem {
		counts[m]++
	}
	return counts, nil
}

// A SubmittedJob represents a job submitted asynchronously to a device.
type SubmittedJob struct {
	id        string        // Remote job ID
	device    *Device       // Device the job was submitted to
	submitted time.Time     // Time of submission
	poll      time.Duration // Interval between status queries (DefaultPollInterval if zero)
}

// ID returns the remote job ID.
func (j *SubmittedJob) ID() string {
	return j.id
}

// Device returns the device the job was submitted to.
func (j *SubmittedJob) Device() *Device {
	return j.device
}

// SetPollInterval sets how often Result and AwaitCompletion query the job's
// status.
func (j *SubmittedJob) SetPollInterval(d time.Duration) {
	j.poll = d
}

// path returns the API path of the job, with an optional suffix.
func (j *SubmittedJob) path(suffix string) string {
	return "/jobs/" + url.PathEscape(j.id) + suffix
}

// Status returns the current status of the job.
func (j *SubmittedJob) Status(ctx context.Context) (*JobInfo, error) {
	var info JobInfo
	if err := j.device.Conn.do(ctx, http.MethodGet, j.path(""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// Done says whether the job has reached a final status.
func (j *SubmittedJob) Done(ctx context.Context) (bool, error) {
	info, err := j.Status(ctx)
	if err != nil {
		return false, err
	}
	return info.Status.Final(), nil
}

// Cancel cancels the job.
func (j *SubmittedJob) Cancel(ctx context.Context) error {
	return j.device.Conn.do(ctx, http.MethodPost, j.path("/cancel"), nil, nil)
}

// AwaitCompletion waits for the job to reach a final status and returns that
// status.  It gives up only when the context is done.
func (j *SubmittedJob) AwaitCompletion(ctx context.Context) (*JobInfo, error) {
	interval := j.poll
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		info, err := j.Status(ctx)
		if err != nil {
			return nil, err
		}
		if info.Status.Final() {
			return info, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Result waits for the job to complete and returns its result.  A job that
// failed is reported as a *JobError and a cancelled job as ErrJobCancelled.
func (j *SubmittedJob) Result(ctx context.Context) (*Result, error) {
	info, err := j.AwaitCompletion(ctx)
	if err != nil {
		return nil, err
	}
	if !j.submitted.IsZero() {
		jobWaitSeconds.WithLabelValues(j.device.Name).Observe(time.Since(j.submitted).Seconds())
	}
	switch info.Status {
	case StatusCancelled:
		jobsFailed.WithLabelValues(j.device.Name, string(info.Status)).Inc()
		return nil, errors.Wrapf(ErrJobCancelled, "job %s", j.id)
	case StatusError:
		jobsFailed.WithLabelValues(j.device.Name, string(info.Status)).Inc()
		return nil, &JobError{JobID: j.id, Status: info.Status, Message: info.Error}
	}

	var res Result
	if err := j.device.Conn.do(ctx, http.MethodGet, j.path("/result"), nil, &res); err != nil {
		return nil, err
	}
	j.device.Conn.log.Debug("retrieved result",
		zap.String("job", j.id),
		zap.Int("experiments", len(res.Results)))
	return &res, nil
}
