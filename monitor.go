// This file provides a progress display for running jobs.

package ibmq

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// statusMessages maps each job status to the text the monitor displays.
var statusMessages = map[JobStatus]string{
	StatusInitializing: "job is being initialized",
	StatusQueued:       "job is queued",
	StatusValidating:   "job is being validated",
	StatusRunning:      "job is actively running",
	StatusDone:         "job has successfully run",
	StatusError:        "job incurred error",
	StatusCancelled:    "job has been cancelled",
}

// statusColors maps final statuses to the color the monitor renders them in.
var statusColors = map[JobStatus]lipgloss.Color{
	StatusDone:      lipgloss.Color("2"),
	StatusError:     lipgloss.Color("1"),
	StatusCancelled: lipgloss.Color("3"),
}

// describe renders a one-line description of a job's status.
func describe(r *lipgloss.Renderer, info *JobInfo) string {
	msg, ok := statusMessages[info.Status]
	if !ok {
		msg = strings.ToLower(string(info.Status))
	}
	if info.Status == StatusQueued && info.QueuePosition > 0 {
		msg = fmt.Sprintf("%s (%d)", msg, info.QueuePosition)
	}
	style := r.NewStyle()
	if c, ok := statusColors[info.Status]; ok {
		style = style.Foreground(c).Bold(true)
	}
	return r.NewStyle().Bold(true).Render("Job Status: ") + style.Render(msg)
}

// MonitorJob polls a job until it reaches a final status, writing a status
// line to w whenever the status changes.  It returns the final status.  A
// failed or cancelled job is not an error here; the caller learns about it
// from the job's Result.
func MonitorJob(ctx context.Context, job Job, w io.Writer, interval time.Duration) (*JobInfo, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	r := lipgloss.NewRenderer(w)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	last := ""
	for {
		info, err := job.Status(ctx)
		if err != nil {
			return nil, err
		}
		if line := describe(r, info); line != last {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return nil, err
			}
			last = line
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
