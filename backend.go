// This file presents the backend adapter, which routes circuits onto a remote
// device, runs them, and decodes the per-shot results.

package ibmq

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// An IBMQBackend runs circuits on one remote device.  The device's topology is
// read once, when the backend is constructed.
type IBMQBackend struct {
	Architecture *Architecture // Connectivity of the device's qubits

	device     *Device            // Resolved device handle
	monitor    bool               // Display job status while waiting
	monitorOut io.Writer          // Destination of the status display
	poll       time.Duration      // Interval between status queries
	router     Router             // Router used by Compile and Run
	log        *zap.Logger        // Logger for submissions
	connOpts   []ConnectionOption // Options passed to every connection
}

// A BackendOption configures an IBMQBackend under construction.
type BackendOption func(*IBMQBackend)

// WithMonitor says whether Run displays the job's status while it waits.  The
// default is true.
func WithMonitor(on bool) BackendOption {
	return func(b *IBMQBackend) {
		b.monitor = on
	}
}

// WithMonitorOutput sets where the status display is written.  The default is
// standard output.
func WithMonitorOutput(w io.Writer) BackendOption {
	return func(b *IBMQBackend) {
		b.monitorOut = w
	}
}

// WithPollInterval sets how often a running job's status is queried.
func WithPollInterval(d time.Duration) BackendOption {
	return func(b *IBMQBackend) {
		b.poll = d
	}
}

// WithRouter replaces DefaultRouter.
func WithRouter(r Router) BackendOption {
	return func(b *IBMQBackend) {
		b.router = r
	}
}

// WithLogger makes the backend and its connections log to l.
func WithLogger(l *zap.Logger) BackendOption {
	return func(b *IBMQBackend) {
		b.log = l
		b.connOpts = append(b.connOpts, WithConnectionLogger(l))
	}
}

// WithConnectionOptions passes options through to every connection the
// backend establishes.
func WithConnectionOptions(opts ...ConnectionOption) BackendOption {
	return func(b *IBMQBackend) {
		b.connOpts = append(b.connOpts, opts...)
	}
}

// NewIBMQBackend logs in with the accounts in store and resolves the named
// device.  It returns ErrNoCredentials, without touching the network, when
// store holds no accounts.  Any error from the device lookup is returned as
// is.
func NewIBMQBackend(ctx context.Context, store CredentialStore, name string, opts ...BackendOption) (*IBMQBackend, error) {
	b := &IBMQBackend{
		monitor:    true,
		monitorOut: os.Stdout,
		poll:       DefaultPollInterval,
		router:     DefaultRouter,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	// Log in.
	accounts, err := store.StoredAccounts()
	if err != nil {
		return nil, errors.Wrap(err, "read stored accounts")
	}
	if len(accounts) == 0 {
		return nil, ErrNoCredentials
	}
	prov, err := Login(accounts, b.connOpts...)
	if err != nil {
		return nil, err
	}

	// Resolve the device and capture its topology.
	dev, err := prov.GetDevice(ctx, name)
	if err != nil {
		return nil, err
	}
	b.device = dev
	b.Architecture = dev.Architecture()
	b.log.Info("backend ready",
		zap.String("device", name),
		zap.Int("qubits", b.Architecture.NumNodes()),
		zap.Bool("monitor", b.monitor))
	return b, nil
}

// Device returns the device the backend runs on.
func (b *IBMQBackend) Device() *Device {
	return b.device
}

// Compile returns the physical circuit Run would submit for c.
func (b *IBMQBackend) Compile(c *Circuit) (*Circuit, error) {
	return RouteCircuit(b.router, c, b.Architecture)
}

// Submit routes and assembles a circuit and submits it without waiting for
// it to complete.
func (b *IBMQBackend) Submit(ctx context.Context, c *Circuit, shots int, opts ...AssembleOption) (*SubmittedJob, error) {
	if shots <= 0 {
		return nil, errors.Wrapf(ErrInvalidShots, "got %d", shots)
	}
	physical, err := b.Compile(c)
	if err != nil {
		return nil, err
	}
	q, err := Assemble([]*Experiment{NewExperiment(physical, "circuit-0")}, shots, true, opts...)
	if err != nil {
		return nil, err
	}
	job, err := b.device.Submit(ctx, q)
	if err != nil {
		return nil, err
	}
	job.SetPollInterval(b.poll)
	return job, nil
}

// Run implements the Backend interface.  It routes c onto the device, runs it
// shots times, and returns one row per shot with classical bit i in column i.
// Nothing is retried.
func (b *IBMQBackend) Run(ctx context.Context, c *Circuit, shots int) (ShotTable, error) {
	job, err := b.Submit(ctx, c, shots)
	if err != nil {
		return nil, err
	}

	// Optionally show the job's progress.
	if b.monitor {
		if _, err := MonitorJob(ctx, job, b.monitorOut, b.poll); err != nil {
			return nil, err
		}
	}

	// Decode the per-shot memory.
	res, err := job.Result(ctx)
	if err != nil {
		return nil, err
	}
	return TableFromResult(res, 0)
}

// TableFromResult decodes the memory of one experiment of a result into a
// ShotTable.
func TableFromResult(res MemoryResult, experiment int) (ShotTable, error) {
	mem, err := res.Memory(experiment)
	if err != nil {
		return nil, err
	}
	return BinStrToTable(mem)
}
