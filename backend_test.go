package ibmq_test

import (
	"bytes"
	"context"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/lanl/ibmq"
	"github.com/lanl/ibmq/ibmqtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// testToken is the API token accepted by the fake service.
const testToken = "secret-token"

// newTestBackend starts a fake service offering ibmqx4 and connects a backend
// to it.  Status output goes to the returned buffer.
func newTestBackend(t *testing.T, opts ...ibmq.BackendOption) (*ibmq.IBMQBackend, *ibmqtest.Server, *bytes.Buffer) {
	t.Helper()
	srv := ibmqtest.NewServer(testToken, ibmqtest.IBMQX4())
	t.Cleanup(srv.Close)

	var out bytes.Buffer
	opts = append([]ibmq.BackendOption{
		ibmq.WithMonitorOutput(&out),
		ibmq.WithPollInterval(time.Millisecond),
	}, opts...)
	b, err := ibmq.NewIBMQBackend(context.Background(), ibmq.StaticCredentials{srv.Account()}, "ibmqx4", opts...)
	require.NoError(t, err)
	return b, srv, &out
}

// TestNewIBMQBackendNoCredentials ensures a backend cannot be built without
// stored accounts and that no request is made in trying.
func TestNewIBMQBackendNoCredentials(t *testing.T) {
	srv := ibmqtest.NewServer(testToken, ibmqtest.IBMQX4())
	defer srv.Close()
	ctx := context.Background()

	_, err := ibmq.NewIBMQBackend(ctx, ibmq.StaticCredentials{}, "ibmqx4")
	assert.ErrorIs(t, err, ibmq.ErrNoCredentials)

	empty := &ibmq.FileCredentialStore{Path: filepath.Join(t.TempDir(), "accounts.yaml")}
	_, err = ibmq.NewIBMQBackend(ctx, empty, "ibmqx4")
	assert.ErrorIs(t, err, ibmq.ErrNoCredentials)

	assert.Zero(t, srv.Service.Requests())
}

// TestNewIBMQBackendUnknownDevice ensures a missing device is reported.
func TestNewIBMQBackendUnknownDevice(t *testing.T) {
	srv := ibmqtest.NewServer(testToken, ibmqtest.IBMQX4())
	defer srv.Close()

	_, err := ibmq.NewIBMQBackend(context.Background(), ibmq.StaticCredentials{srv.Account()}, "ibmqx9")
	assert.ErrorIs(t, err, ibmq.ErrDeviceNotFound)
}

// TestNewIBMQBackendBadToken ensures service errors reach the caller
// unchanged.
func TestNewIBMQBackendBadToken(t *testing.T) {
	srv := ibmqtest.NewServer(testToken, ibmqtest.IBMQX4())
	defer srv.Close()
	acct := srv.Account()
	acct.Token = "wrong"

	_, err := ibmq.NewIBMQBackend(context.Background(), ibmq.StaticCredentials{acct}, "ibmqx4")
	var apiErr *ibmq.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, ibmqtest.CodeUnauthorized, apiErr.Code)
}

// TestNewIBMQBackendSearchesAccounts ensures the device is looked up through
// every account in turn.
func TestNewIBMQBackendSearchesAccounts(t *testing.T) {
	sim := ibmqtest.NewServer("a", ibmqtest.SimulatorDevice(8))
	defer sim.Close()
	hw := ibmqtest.NewServer("b", ibmqtest.IBMQX4())
	defer hw.Close()

	store := ibmq.StaticCredentials{sim.Account(), hw.Account()}
	b, err := ibmq.NewIBMQBackend(context.Background(), store, "ibmqx4", ibmq.WithMonitor(false))
	require.NoError(t, err)
	assert.Equal(t, hw.URL, b.Device().Conn.URL)

	prov, err := ibmq.LoadAccounts(store)
	require.NoError(t, err)
	names, err := prov.Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ibmq_qasm_simulator", "ibmqx4"}, names)
}

// TestIBMQBackendArchitecture ensures the device's coupling map is captured
// at construction.
func TestIBMQBackendArchitecture(t *testing.T) {
	b, _, _ := newTestBackend(t)
	assert.Equal(t, ibmqtest.IBMQX4().CouplingMap, b.Architecture.Couplers())
	assert.Equal(t, "ibmqx4", b.Device().Name)
	assert.Equal(t, 8192, b.Device().Configuration().MaxShots)

	physical, err := b.Compile(ibmq.NewCircuit(3, 0).CX(0, 1).CX(1, 2).CX(2, 0))
	require.NoError(t, err)
	for _, g := range physical.Gates {
		if g.Name == "cx" {
			assert.True(t, b.Architecture.HasEdge(g.Qubits[0], g.Qubits[1]))
		}
	}
}

// TestIBMQBackendRun ensures a run returns one row per shot with the logical
// outcome and shows the job's progress.
func TestIBMQBackendRun(t *testing.T) {
	b, srv, out := newTestBackend(t)
	srv.Service.SetQueueSteps(2)
	c := ibmq.NewCircuit(3, 3).X(0).CX(0, 2).MeasureAll()

	table, err := b.Run(context.Background(), c, 100)
	require.NoError(t, err)
	require.Equal(t, 100, table.Shots())
	for _, row := range table {
		assert.Equal(t, []uint8{1, 0, 1}, row)
	}
	assert.Contains(t, out.String(), "Job Status: job is queued (2)")
	assert.Contains(t, out.String(), "Job Status: job is actively running")
	assert.Contains(t, out.String(), "Job Status: job has successfully run")

	// The submitted job asked for per-shot memory.
	jobs := srv.Service.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, ibmq.StatusDone, jobs[0].Status)
	q, ok := srv.Service.Qobj(jobs[0].ID)
	require.True(t, ok)
	assert.True(t, q.Config.Memory)
	assert.Equal(t, 100, q.Config.Shots)
	assert.Equal(t, ibmq.QobjSchemaVersion, q.SchemaVersion)
	assert.NotEmpty(t, q.ID)
}

// TestIBMQBackendRunBell ensures a superposition is sampled correctly.
func TestIBMQBackendRunBell(t *testing.T) {
	b, _, _ := newTestBackend(t, ibmq.WithMonitor(false))
	c := ibmq.NewCircuit(2, 2).H(0).CX(0, 1).MeasureAll()

	table, err := b.Run(context.Background(), c, 400)
	require.NoError(t, err)
	require.Equal(t, 400, table.Shots())
	for k := range table.Counts() {
		assert.Contains(t, []string{"00", "11"}, k)
	}
}

// TestIBMQBackendRunHexMemory ensures hexadecimal memory decodes the same as
// binary memory.
func TestIBMQBackendRunHexMemory(t *testing.T) {
	b, srv, _ := newTestBackend(t, ibmq.WithMonitor(false))
	srv.Service.SetHexMemory(true)
	c := ibmq.NewCircuit(4, 4).X(1).X(3).MeasureAll()

	table, err := b.Run(context.Background(), c, 8)
	require.NoError(t, err)
	for _, row := range table {
		assert.Equal(t, []uint8{0, 1, 0, 1}, row)
	}
}

// TestIBMQBackendRunWithoutMonitor ensures nothing is displayed when the
// monitor is off.
func TestIBMQBackendRunWithoutMonitor(t *testing.T) {
	b, _, out := newTestBackend(t, ibmq.WithMonitor(false))
	_, err := b.Run(context.Background(), ibmq.NewCircuit(1, 1).Measure(0, 0), 5)
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

// TestIBMQBackendRunInvalidShots ensures bad shot counts are rejected, locally
// when non-positive and by the service when too large.
func TestIBMQBackendRunInvalidShots(t *testing.T) {
	b, srv, _ := newTestBackend(t)
	c := ibmq.NewCircuit(1, 1).Measure(0, 0)

	_, err := b.Run(context.Background(), c, 0)
	assert.ErrorIs(t, err, ibmq.ErrInvalidShots)
	assert.Empty(t, srv.Service.Jobs())

	_, err = b.Run(context.Background(), c, 100000)
	var apiErr *ibmq.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, ibmqtest.CodeInvalidShots, apiErr.Code)
}

// TestIBMQBackendRunRoutingError ensures routing failures propagate.
func TestIBMQBackendRunRoutingError(t *testing.T) {
	b, srv, _ := newTestBackend(t)
	_, err := b.Run(context.Background(), ibmq.NewCircuit(6, 0).H(5), 10)
	assert.ErrorIs(t, err, ibmq.ErrTooManyQubits)
	assert.Empty(t, srv.Service.Jobs())
}

// TestIBMQBackendRunCustomRouter ensures WithRouter replaces the default
// Router.
func TestIBMQBackendRunCustomRouter(t *testing.T) {
	r := new(mockRouter)
	b, _, _ := newTestBackend(t, ibmq.WithRouter(r), ibmq.WithMonitor(false))
	c := ibmq.NewCircuit(1, 1).X(0).Measure(0, 0)
	physical := ibmq.NewCircuit(5, 1).X(3).Measure(3, 0)
	r.On("Route", c, b.Architecture).Return(physical, nil)

	table, err := b.Run(context.Background(), c, 3)
	require.NoError(t, err)
	assert.Equal(t, ibmq.ShotTable{{1}, {1}, {1}}, table)
	r.AssertExpectations(t)
}

// TestIBMQBackendRunFailedJob ensures a job that ends in error is reported
// as a *JobError.
func TestIBMQBackendRunFailedJob(t *testing.T) {
	b, srv, out := newTestBackend(t)
	srv.Service.FailNext("calibration in progress")

	_, err := b.Run(context.Background(), ibmq.NewCircuit(1, 1).Measure(0, 0), 10)
	var jobErr *ibmq.JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Equal(t, ibmq.StatusError, jobErr.Status)
	assert.Equal(t, "calibration in progress", jobErr.Message)
	assert.Contains(t, out.String(), "job incurred error")
}

// TestIBMQBackendRunContext ensures waiting stops when the context ends.
func TestIBMQBackendRunContext(t *testing.T) {
	b, srv, _ := newTestBackend(t, ibmq.WithPollInterval(20*time.Millisecond))
	srv.Service.SetQueueSteps(1000)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := b.Run(ctx, ibmq.NewCircuit(1, 1).Measure(0, 0), 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// TestIBMQBackendLogging ensures submissions are logged through the supplied
// logger.
func TestIBMQBackendLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	b, _, _ := newTestBackend(t, ibmq.WithLogger(zap.New(core)), ibmq.WithMonitor(false))

	_, err := b.Run(context.Background(), ibmq.NewCircuit(1, 1).Measure(0, 0), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("resolved device").Len())
	assert.Equal(t, 1, logs.FilterMessage("backend ready").Len())
	submitted := logs.FilterMessage("submitted job").All()
	require.Len(t, submitted, 1)
	assert.Equal(t, "ibmqx4", submitted[0].ContextMap()["device"])
}

// TestNewBackendFromEnv ensures the environment selects the account and
// device.
func TestNewBackendFromEnv(t *testing.T) {
	srv := ibmqtest.NewServer(testToken, ibmqtest.IBMQX4())
	defer srv.Close()

	t.Setenv("IBMQ_TOKEN", testToken)
	t.Setenv("IBMQ_URL", srv.URL)
	t.Setenv("IBMQ_PROXY", "")
	t.Setenv("IBMQ_BACKEND", "")
	_, err := ibmq.NewBackendFromEnv(context.Background())
	assert.Error(t, err)

	t.Setenv("IBMQ_BACKEND", "ibmqx4")
	b, err := ibmq.NewBackendFromEnv(context.Background(), ibmq.WithMonitor(false))
	require.NoError(t, err)

	table, err := ibmq.RunQASM(context.Background(), b, bellQASM, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, table.Shots())
}
