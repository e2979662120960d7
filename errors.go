// This file defines the errors the ibmq package can return.

package ibmq

import (
	"fmt"

	"github.com/pkg/errors"
)

// These are the sentinel errors returned by the ibmq package.  Use errors.Is
// to test for them; they may be wrapped with additional context.
var (
	ErrNoCredentials   = errors.New("no IBMQ credentials found on disk; store some first")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrTooManyQubits   = errors.New("circuit needs more qubits than the architecture provides")
	ErrUnroutable      = errors.New("physical qubits are not connected")
	ErrUnsupportedGate = errors.New("unsupported gate")
	ErrInvalidShots    = errors.New("shot count must be positive")
	ErrNoMemory        = errors.New("result carries no per-shot memory")
	ErrJobCancelled    = errors.New("job was cancelled")

	ErrInvalidNoiseModel = errors.New("noise probabilities must lie in [0, 1]")
)

// An APIError represents an error reported by the remote execution service.
type APIError struct {
	StatusCode int    `json:"-"`       // HTTP status code of the response
	Code       string `json:"code"`    // Machine-readable error code
	Message    string `json:"message"` // Human-readable description
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("ibmq: %s (HTTP %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("ibmq: %s: %s (HTTP %d)", e.Code, e.Message, e.StatusCode)
}

// errorResponse is the body the execution service sends with a failed request.
type errorResponse struct {
	Error *APIError `json:"error"`
}

// A JobError reports that a job ran to completion on the device but failed.
type JobError struct {
	JobID   string    // Remote job ID
	Status  JobStatus // Final status of the job
	Message string    // Error message reported by the service
}

// Error implements the error interface.
func (e *JobError) Error() string {
	return fmt.Sprintf("ibmq: job %s finished with status %s: %s", e.JobID, e.Status, e.Message)
}
