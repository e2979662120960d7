// This file presents device-related types and functions.

package ibmq

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// A DeviceConfiguration describes a device as reported by the execution
// service.
type DeviceConfiguration struct {
	Name        string      `json:"backend_name"`           // Device name
	Version     string      `json:"backend_version"`        // Device version
	NumQubits   int         `json:"n_qubits"`               // Number of qubits in the processor
	CouplingMap CouplingMap `json:"coupling_map,omitempty"` // Native CX directions (empty means all-to-all)
	BasisGates  []string    `json:"basis_gates"`            // Gates the device accepts
	MaxShots    int         `json:"max_shots"`              // Largest shot count per job (0 for no limit)
	Simulator   bool        `json:"simulator"`              // Device is a simulator, not hardware
	Memory      bool        `json:"memory"`                 // Device can report per-shot memory
}

// A Device represents a remote device resolved through a Connection.
type Device struct {
	Name   string               // Device name
	Conn   *Connection          // Connection with which this device is associated
	config *DeviceConfiguration // Configuration fetched when the device was resolved
}

// GetDevice resolves a device by name and fetches its configuration.
func (c *Connection) GetDevice(ctx context.Context, name string) (*Device, error) {
	var cfg DeviceConfiguration
	path := "/backends/" + url.PathEscape(name) + "/configuration"
	if err := c.do(ctx, http.MethodGet, path, nil, &cfg); err != nil {
		return nil, err
	}
	c.log.Info("resolved device",
		zap.String("device", name),
		zap.Int("qubits", cfg.NumQubits),
		zap.Int("couplers", len(cfg.CouplingMap)))
	return &Device{
		Name:   name,
		Conn:   c,
		config: &cfg,
	}, nil
}

// Configuration returns the configuration fetched when the device was
// resolved.  It is not refreshed afterward.
func (d *Device) Configuration() DeviceConfiguration {
	return *d.config
}

// CouplingMap returns the device's coupling map.
func (d *Device) CouplingMap() CouplingMap {
	return append(CouplingMap(nil), d.config.CouplingMap...)
}

// Architecture returns the connectivity graph of the device.  A device that
// reports no coupling map is treated as fully connected.
func (d *Device) Architecture() *Architecture {
	cm := d.config.CouplingMap
	if len(cm) == 0 {
		cm = FullCoupling(d.config.NumQubits)
	}
	return NewArchitecture(cm).addNodes(d.config.NumQubits)
}

// A JobRequest is the body of a job submission.
type JobRequest struct {
	Backend string `json:"backend"`
	Qobj    *Qobj  `json:"qobj"`
}

// Submit sends a job to the device but does not wait for it to complete.
func (d *Device) Submit(ctx context.Context, q *Qobj) (*SubmittedJob, error) {
	var info JobInfo
	req := JobRequest{Backend: d.Name, Qobj: q}
	if err := d.Conn.do(ctx, http.MethodPost, "/jobs", req, &info); err != nil {
		return nil, err
	}
	jobsSubmitted.WithLabelValues(d.Name).Inc()
	shotsRequested.WithLabelValues(d.Name).Add(float64(q.Config.Shots))
	d.Conn.log.Info("submitted job",
		zap.String("device", d.Name),
		zap.String("job", info.ID),
		zap.String("qobj", q.ID),
		zap.Int("shots", q.Config.Shots))
	return &SubmittedJob{
		id:        info.ID,
		device:    d,
		submitted: time.Now(),
	}, nil
}

// RetrieveJob returns a handle to a previously submitted job.
func (d *Device) RetrieveJob(ctx context.Context, id string) (*SubmittedJob, error) {
	job := &SubmittedJob{id: id, device: d}
	info, err := job.Status(ctx)
	if err != nil {
		return nil, err
	}
	job.submitted = info.CreationDate
	return job, nil
}
