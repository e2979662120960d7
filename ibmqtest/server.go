// Package ibmqtest provides an in-process fake of the remote execution service
// for use in tests and local experiments.  Jobs are executed by the ibmq
// package's state-vector simulator.
package ibmqtest

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/lanl/ibmq"
	"go.uber.org/zap"
)

// These are the error codes the fake service reports.
const (
	CodeUnauthorized   = "UNAUTHORIZED"
	CodeDeviceNotFound = "DEVICE_NOT_FOUND"
	CodeJobNotFound    = "JOB_NOT_FOUND"
	CodeBadRequest     = "BAD_REQUEST"
	CodeInvalidShots   = "INVALID_SHOTS"
	CodeInvalidCircuit = "INVALID_CIRCUIT"
	CodeJobNotDone     = "JOB_NOT_DONE"
	CodeJobFinal       = "JOB_ALREADY_FINAL"
)

// job is the service's record of one submitted job.
type job struct {
	info   ibmq.JobInfo // Status reported to clients
	qobj   *ibmq.Qobj   // Submitted job description
	polls  int          // Number of status queries so far
	result *ibmq.Result // Result, once computed
	fail   string       // Error message the job will fail with, if any
}

// A Service implements the execution service's REST API.  It is safe for
// concurrent use.  A job advances one step each time its status is queried:
// it stays QUEUED for the configured number of queries, then reports RUNNING
// once, then DONE (or ERROR).
type Service struct {
	router chi.Router
	log    *zap.Logger

	mu         sync.Mutex
	token      string
	devices    map[string]ibmq.DeviceConfiguration
	order      []string
	jobs       map[string]*job
	jobOrder   []string
	queueSteps int
	failNext   string
	hexMemory  bool
	requests   int
}

// NewService returns a Service that accepts the given token and offers the
// given devices.
func NewService(token string, devices ...ibmq.DeviceConfiguration) *Service {
	s := &Service{
		log:     zap.NewNop(),
		token:   token,
		devices: make(map[string]ibmq.DeviceConfiguration, len(devices)),
		jobs:    make(map[string]*job),
	}
	for _, d := range devices {
		s.AddDevice(d)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.count)
	r.Use(s.authenticate)
	r.Get("/backends", s.handleListDevices)
	r.Get("/backends/{name}/configuration", s.handleDeviceConfiguration)
	r.Post("/jobs", s.handleSubmit)
	r.Get("/jobs/{id}", s.handleStatus)
	r.Get("/jobs/{id}/result", s.handleResult)
	r.Post("/jobs/{id}/cancel", s.handleCancel)
	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetLogger makes the service log its activity to l.
func (s *Service) SetLogger(l *zap.Logger) {
	s.log = l
}

// AddDevice offers another device, replacing any with the same name.
func (s *Service) AddDevice(d ibmq.DeviceConfiguration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.Name]; !ok {
		s.order = append(s.order, d.Name)
	}
	s.devices[d.Name] = d
}

// SetQueueSteps sets how many status queries a new job spends queued.
func (s *Service) SetQueueSteps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueSteps = n
}

// FailNext makes the next submitted job finish with status ERROR and the
// given message.
func (s *Service) FailNext(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = msg
}

// SetHexMemory makes results report memory as hexadecimal values rather than
// bitstrings.
func (s *Service) SetHexMemory(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hexMemory = on
}

// Requests returns the number of requests received so far, authenticated or
// not.
func (s *Service) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

// Jobs returns the status of every job in submission order.
func (s *Service) Jobs() []ibmq.JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	infos := make([]ibmq.JobInfo, len(s.jobOrder))
	for i, id := range s.jobOrder {
		infos[i] = s.jobs[id].info
	}
	return infos
}

// Qobj returns the job description submitted as job id.
func (s *Service) Qobj(id string) (*ibmq.Qobj, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return j.qobj, true
}

// count tallies incoming requests.
func (s *Service) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// authenticate rejects requests that lack the service's bearer token.
func (s *Service) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, CodeUnauthorized, "invalid or missing API token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON sends v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError sends an error body in the service's format.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}

func (s *Service) handleListDevices(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	cfgs := make([]ibmq.DeviceConfiguration, len(s.order))
	for i, n := range s.order {
		cfgs[i] = s.devices[n]
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, cfgs)
}

func (s *Service) handleDeviceConfiguration(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	cfg, ok := s.devices[name]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, CodeDeviceNotFound, "no device named "+name)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Service) handleSubmit(w http.ResponseWriter, r *http.Request) {
	// Decode and check the request.
	var req ibmq.JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	if req.Qobj == nil || len(req.Qobj.Experiments) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "request carries no experiments")
		return
	}
	s.mu.Lock()
	cfg, ok := s.devices[req.Backend]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, CodeDeviceNotFound, "no device named "+req.Backend)
		return
	}
	shots := req.Qobj.Config.Shots
	if shots <= 0 || (cfg.MaxShots > 0 && shots > cfg.MaxShots) {
		writeError(w, http.StatusBadRequest, CodeInvalidShots, "shot count out of range")
		return
	}
	if nm := req.Qobj.Config.Noise; nm != nil {
		if err := nm.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
	}
	circuits := make([]*ibmq.Circuit, len(req.Qobj.Experiments))
	for i := range req.Qobj.Experiments {
		c, err := req.Qobj.Experiments[i].Circuit()
		if err == nil {
			err = checkCircuit(cfg, c)
		}
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeInvalidCircuit, err.Error())
			return
		}
		circuits[i] = c
	}

	// Record the job.
	s.mu.Lock()
	j := &job{
		info: ibmq.JobInfo{
			ID:            uuid.NewString(),
			Backend:       req.Backend,
			Status:        ibmq.StatusQueued,
			QueuePosition: s.queueSteps,
			CreationDate:  time.Now().UTC(),
		},
		qobj: req.Qobj,
		fail: s.failNext,
	}
	s.failNext = ""
	hex := s.hexMemory
	s.jobs[j.info.ID] = j
	s.jobOrder = append(s.jobOrder, j.info.ID)
	info := j.info
	s.mu.Unlock()

	// Execute the job now; its status reveals the outcome gradually.
	if j.fail == "" {
		res, err := execute(r, info, req.Qobj, circuits, hex)
		s.mu.Lock()
		if err != nil {
			j.fail = err.Error()
		} else {
			j.result = res
		}
		s.mu.Unlock()
	}
	s.log.Info("accepted job",
		zap.String("job", info.ID),
		zap.String("device", info.Backend),
		zap.Int("shots", shots),
		zap.Int("experiments", len(circuits)))
	writeJSON(w, http.StatusOK, info)
}

// lookup returns the job named in the request path, or writes an error.  The
// caller must hold s.mu.
func (s *Service) lookup(w http.ResponseWriter, r *http.Request) *job {
	id := chi.URLParam(r, "id")
	j, ok := s.jobs[id]
	if !ok {
		writeError(w, http.StatusNotFound, CodeJobNotFound, "no job with ID "+id)
		return nil
	}
	return j
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookup(w, r)
	if j == nil {
		return
	}
	if !j.info.Status.Final() {
		j.polls++
		switch {
		case j.polls <= s.queueSteps:
			j.info.Status = ibmq.StatusQueued
			j.info.QueuePosition = s.queueSteps - j.polls + 1
		case j.polls == s.queueSteps+1:
			j.info.Status = ibmq.StatusRunning
			j.info.QueuePosition = 0
		case j.fail != "":
			j.info.Status = ibmq.StatusError
			j.info.Error = j.fail
		default:
			j.info.Status = ibmq.StatusDone
		}
	}
	writeJSON(w, http.StatusOK, j.info)
}

func (s *Service) handleResult(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookup(w, r)
	if j == nil {
		return
	}
	if j.info.Status != ibmq.StatusDone {
		writeError(w, http.StatusBadRequest, CodeJobNotDone, "job status is "+string(j.info.Status))
		return
	}
	writeJSON(w, http.StatusOK, j.result)
}

func (s *Service) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j := s.lookup(w, r)
	if j == nil {
		return
	}
	if j.info.Status.Final() {
		writeError(w, http.StatusBadRequest, CodeJobFinal, "job status is "+string(j.info.Status))
		return
	}
	j.info.Status = ibmq.StatusCancelled
	j.info.QueuePosition = 0
	s.log.Info("cancelled job", zap.String("job", j.info.ID))
	writeJSON(w, http.StatusOK, j.info)
}

// checkCircuit rejects circuits a hardware device could not execute directly.
// Simulators accept anything the simulator can run.
func checkCircuit(cfg ibmq.DeviceConfiguration, c *ibmq.Circuit) error {
	if c.NumQubits > cfg.NumQubits {
		return &circuitError{"circuit uses more qubits than the device has"}
	}
	if cfg.Simulator || len(cfg.CouplingMap) == 0 {
		return nil
	}
	arc := ibmq.NewArchitecture(cfg.CouplingMap)
	for _, g := range c.Gates {
		switch {
		case g.Name == "barrier" || len(g.Qubits) < 2:
		case len(g.Qubits) > 2:
			return &circuitError{g.Name + " is not a native gate"}
		case g.Name == "cx" && !arc.HasEdge(g.Qubits[0], g.Qubits[1]):
			return &circuitError{"CX direction not supported by the coupling map"}
		case !arc.Connected(g.Qubits[0], g.Qubits[1]):
			return &circuitError{g.Name + " acts on uncoupled qubits"}
		}
	}
	return nil
}

// A circuitError describes why a circuit was rejected.
type circuitError struct {
	msg string
}

func (e *circuitError) Error() string { return e.msg }

// execute simulates every experiment of a job.
func execute(r *http.Request, info ibmq.JobInfo, q *ibmq.Qobj, circuits []*ibmq.Circuit, hex bool) (*ibmq.Result, error) {
	var opts []ibmq.SimulatorOption
	if q.Config.Seed != nil {
		opts = append(opts, ibmq.WithSimulatorSeed(*q.Config.Seed))
	}
	if q.Config.Noise != nil {
		opts = append(opts, ibmq.WithNoise(*q.Config.Noise))
	}
	sim := ibmq.NewSimulator(opts...)
	res := &ibmq.Result{
		JobID:       info.ID,
		QobjID:      q.ID,
		BackendName: info.Backend,
		Success:     true,
		Results:     make([]ibmq.ExperimentResult, len(circuits)),
	}
	for i, c := range circuits {
		mem, err := sim.Memory(r.Context(), c, q.Config.Shots)
		if err != nil {
			return nil, err
		}
		counts := make(map[string]int)
		for _, m := range mem {
			counts[m]++
		}
		data := ibmq.ExperimentData{Counts: counts}
		if q.Config.Memory {
			if hex {
				mem = toHex(mem)
			}
			data.Memory = mem
		}
		res.Results[i] = ibmq.ExperimentResult{
			Shots:   q.Config.Shots,
			Success: true,
			Header:  q.Experiments[i].Header,
			Data:    data,
			Status:  "DONE",
		}
	}
	return res, nil
}

// toHex converts bitstrings to hexadecimal memory values.
func toHex(mem []string) []string {
	out := make([]string, len(mem))
	for i, m := range mem {
		v, ok := new(big.Int).SetString(m, 2)
		if !ok {
			v = new(big.Int)
		}
		out[i] = "0x" + v.Text(16)
	}
	return out
}

// A Server is a Service listening on a local HTTP port.
type Server struct {
	*httptest.Server
	Service *Service
}

// NewServer starts a Server that accepts the given token and offers the given
// devices.  The caller should call Close when finished.
func NewServer(token string, devices ...ibmq.DeviceConfiguration) *Server {
	svc := NewService(token, devices...)
	return &Server{
		Server:  httptest.NewServer(svc),
		Service: svc,
	}
}

// Account returns an account that logs in to the server.
func (s *Server) Account() ibmq.Account {
	return ibmq.Account{
		Name:  "test",
		Token: s.Service.token,
		URL:   s.URL,
	}
}

// IBMQX4 returns the configuration of the five-qubit ibmqx4 device.
func IBMQX4() ibmq.DeviceConfiguration {
	return ibmq.DeviceConfiguration{
		Name:        "ibmqx4",
		Version:     "1.2.0",
		NumQubits:   5,
		CouplingMap: ibmq.CouplingMap{{1, 0}, {2, 0}, {2, 1}, {3, 2}, {3, 4}, {4, 2}},
		BasisGates:  []string{"u1", "u2", "u3", "cx", "id"},
		MaxShots:    8192,
		Memory:      true,
	}
}

// SimulatorDevice returns the configuration of an all-to-all simulator with n
// qubits.
func SimulatorDevice(n int) ibmq.DeviceConfiguration {
	return ibmq.DeviceConfiguration{
		Name:       "ibmq_qasm_simulator",
		Version:    "0.1.547",
		NumQubits:  n,
		BasisGates: []string{"u1", "u2", "u3", "cx", "id"},
		MaxShots:   8192,
		Simulator:  true,
		Memory:     true,
	}
}
