// This file provides local state-vector simulators.  They stand in for a
// remote device when testing and back the fake execution service.

package ibmq

import (
	"context"
	"math"
	"math/cmplx"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// DefaultMaxQubits is the largest circuit a simulator accepts by default.
const DefaultMaxQubits = 24

// A Backend is anything that can run a circuit and report per-shot outcomes.
type Backend interface {
	Run(ctx context.Context, c *Circuit, shots int) (ShotTable, error)
}

// A Simulator samples measurement outcomes from a state-vector simulation of a
// circuit.  It is safe for concurrent use.
type Simulator struct {
	MaxQubits    int           // Largest number of qubits accepted (DefaultMaxQubits if zero)
	Architecture *Architecture // When non-nil, circuits are routed onto it before simulation
	Router       Router        // Router used with Architecture (DefaultRouter if nil)
	Noise        NoiseModel    // Errors injected while sampling (none if zero)

	mu  sync.Mutex // Guards rng
	rng *rand.Rand
}

// A SimulatorOption modifies a Simulator under construction.
type SimulatorOption func(*Simulator)

// WithSimulatorSeed makes a Simulator's samples reproducible.
func WithSimulatorSeed(seed int64) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithMaxQubits limits the size of the circuits a Simulator accepts.
func WithMaxQubits(n int) SimulatorOption {
	return func(s *Simulator) {
		s.MaxQubits = n
	}
}

// FitToConstraints makes a Simulator route every circuit onto an architecture
// first, as a device would require.
func FitToConstraints(arc *Architecture, r Router) SimulatorOption {
	return func(s *Simulator) {
		s.Architecture = arc
		s.Router = r
	}
}

// NewSimulator returns a Simulator seeded from the clock unless
// WithSimulatorSeed is given.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{MaxQubits: DefaultMaxQubits}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// Run implements the Backend interface.  Column i of the returned table holds
// classical bit i.
func (s *Simulator) Run(ctx context.Context, c *Circuit, shots int) (ShotTable, error) {
	return s.sample(ctx, c, shots)
}

// Memory simulates a circuit and returns per-shot bitstrings in the format a
// device reports them, highest classical bit first.
func (s *Simulator) Memory(ctx context.Context, c *Circuit, shots int) ([]string, error) {
	table, err := s.sample(ctx, c, shots)
	if err != nil {
		return nil, err
	}
	mem := make([]string, len(table))
	for i, row := range table {
		mem[i] = formatMemory(row)
	}
	return mem, nil
}

// sample produces one row of classical bits per shot.
func (s *Simulator) sample(ctx context.Context, c *Circuit, shots int) (ShotTable, error) {
	if shots <= 0 {
		return nil, errors.Wrapf(ErrInvalidShots, "got %d", shots)
	}
	if s.Architecture != nil {
		var err error
		c, err = RouteCircuit(s.Router, c, s.Architecture)
		if err != nil {
			return nil, errors.Wrap(err, "fit circuit to architecture")
		}
	}
	if err := checkSimulable(c, s.maxQubits()); err != nil {
		return nil, err
	}
	if err := s.Noise.Validate(); err != nil {
		return nil, err
	}
	noise := s.Noise
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	table := make(ShotTable, shots)
	if terminalMeasurements(c) && !noise.gateNoise() {
		// Evolve once and draw every shot from the final distribution.
		st := newState(c.NumQubits)
		for _, g := range c.Gates {
			if g.isUnitary() {
				st.apply(g)
			}
		}
		cdf := st.cumulative()
		for i := range table {
			if i%1024 == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			idx := drawIndex(cdf, s.rng.Float64())
			row := make([]uint8, c.NumBits)
			for _, g := range c.Gates {
				if g.Name == "measure" {
					row[g.Bits[0]] = noise.readout(uint8(idx>>uint(g.Qubits[0]))&1, s.rng)
				}
			}
			table[i] = row
		}
		return table, nil
	}

	// Replay the circuit for every shot, collapsing on each measurement and
	// injecting gate errors as they occur.
	for i := range table {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		st := newState(c.NumQubits)
		row := make([]uint8, c.NumBits)
		for _, g := range c.Gates {
			switch g.Name {
			case "measure":
				row[g.Bits[0]] = noise.readout(st.measure(g.Qubits[0], s.rng.Float64()), s.rng)
			case "reset":
				if st.measure(g.Qubits[0], s.rng.Float64()) == 1 {
					st.apply1(g.Qubits[0], matX)
				}
			default:
				st.apply(g)
				noise.depolarize(st, g, s.rng)
			}
		}
		table[i] = row
	}
	return table, nil
}

// maxQubits returns the configured qubit limit.
func (s *Simulator) maxQubits() int {
	if s.MaxQubits <= 0 {
		return DefaultMaxQubits
	}
	return s.MaxQubits
}

// checkSimulable validates a circuit and ensures it fits in memory.
func checkSimulable(c *Circuit, maxQubits int) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.NumQubits > maxQubits {
		return errors.Wrapf(ErrTooManyQubits, "%d qubits exceeds the simulator limit of %d", c.NumQubits, maxQubits)
	}
	return nil
}

// terminalMeasurements says whether every measurement follows the last
// operation on its qubit, which lets all shots share one simulation.
func terminalMeasurements(c *Circuit) bool {
	measured := make(map[int]bool, c.NumQubits)
	for _, g := range c.Gates {
		switch g.Name {
		case "reset":
			return false
		case "barrier":
		case "measure":
			measured[g.Qubits[0]] = true
		default:
			for _, q := range g.Qubits {
				if measured[q] {
					return false
				}
			}
		}
	}
	return true
}

// drawIndex returns the first index whose cumulative probability exceeds r.
func drawIndex(cdf []float64, r float64) int {
	r *= cdf[len(cdf)-1]
	lo, hi := 0, len(cdf)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cdf[mid] > r {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// A StateSimulator computes exact final states and expectation values.  It
// accepts only circuits without measurements or resets.
type StateSimulator struct {
	MaxQubits int // Largest number of qubits accepted (DefaultMaxQubits if zero)
}

// State returns the final state vector of a circuit.  Amplitude i belongs to
// the basis state in which qubit q is bit q of i.
func (ss StateSimulator) State(c *Circuit) ([]complex128, error) {
	st, err := ss.evolve(c)
	if err != nil {
		return nil, err
	}
	return st.amp, nil
}

// evolve validates and simulates a measurement-free circuit.
func (ss StateSimulator) evolve(c *Circuit) (*state, error) {
	maxQ := ss.MaxQubits
	if maxQ <= 0 {
		maxQ = DefaultMaxQubits
	}
	if err := checkSimulable(c, maxQ); err != nil {
		return nil, err
	}
	st := newState(c.NumQubits)
	for i, g := range c.Gates {
		switch g.Name {
		case "measure", "reset":
			return nil, errors.Errorf("gate %d (%s) is not allowed in a state simulation", i, g.Name)
		default:
			st.apply(g)
		}
	}
	return st, nil
}

// PauliExpectation returns <psi|P|psi> for the final state psi of a circuit.
// Character i of pauli (one of I, X, Y, or Z) acts on qubit i; qubits beyond
// the end of the string are acted on by I.
func (ss StateSimulator) PauliExpectation(c *Circuit, pauli string) (float64, error) {
	st, err := ss.evolve(c)
	if err != nil {
		return 0, err
	}
	return st.pauliExpectation(pauli)
}

// A PauliTerm is one weighted term of an operator expressed as a sum of Pauli
// strings.
type PauliTerm struct {
	Pauli string  // Pauli string, character i acting on qubit i
	Coeff float64 // Weight of the term
}

// OperatorExpectation returns the expectation of a sum of weighted Pauli
// strings for the final state of a circuit.
func (ss StateSimulator) OperatorExpectation(c *Circuit, op []PauliTerm) (float64, error) {
	st, err := ss.evolve(c)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, term := range op {
		e, err := st.pauliExpectation(term.Pauli)
		if err != nil {
			return 0, err
		}
		total += term.Coeff * e
	}
	return total, nil
}

// A state is a vector of 2^n amplitudes.
type state struct {
	n   int
	amp []complex128
}

// newState returns |0...0> on n qubits.
func newState(n int) *state {
	st := &state{n: n, amp: make([]complex128, 1<<uint(n))}
	st.amp[0] = 1
	return st
}

// A mat2 is a single-qubit operator in row-major order.
type mat2 [2][2]complex128

var (
	matX   = mat2{{0, 1}, {1, 0}}
	matY   = mat2{{0, -1i}, {1i, 0}}
	matZ   = mat2{{1, 0}, {0, -1}}
	matH   = mat2{{math.Sqrt2 / 2, math.Sqrt2 / 2}, {math.Sqrt2 / 2, -math.Sqrt2 / 2}}
	matS   = mat2{{1, 0}, {0, 1i}}
	matSdg = mat2{{1, 0}, {0, -1i}}
	matT   = mat2{{1, 0}, {0, cmplx.Exp(1i * math.Pi / 4)}}
	matTdg = mat2{{1, 0}, {0, cmplx.Exp(-1i * math.Pi / 4)}}
)

// u3 returns the generic single-qubit rotation U3(theta, phi, lambda).
func u3(theta, phi, lambda float64) mat2 {
	c := complex(math.Cos(theta/2), 0)
	s := complex(math.Sin(theta/2), 0)
	return mat2{
		{c, -cmplx.Exp(complex(0, lambda)) * s},
		{cmplx.Exp(complex(0, phi)) * s, cmplx.Exp(complex(0, phi+lambda)) * c},
	}
}

// singleQubitMatrix returns the operator of a one-qubit unitary gate.
func singleQubitMatrix(g Gate) (mat2, bool) {
	switch g.Name {
	case "id":
		return mat2{{1, 0}, {0, 1}}, true
	case "x":
		return matX, true
	case "y":
		return matY, true
	case "z":
		return matZ, true
	case "h":
		return matH, true
	case "s":
		return matS, true
	case "sdg":
		return matSdg, true
	case "t":
		return matT, true
	case "tdg":
		return matTdg, true
	case "rx":
		c, s := math.Cos(g.Params[0]/2), math.Sin(g.Params[0]/2)
		return mat2{{complex(c, 0), complex(0, -s)}, {complex(0, -s), complex(c, 0)}}, true
	case "ry":
		c, s := math.Cos(g.Params[0]/2), math.Sin(g.Params[0]/2)
		return mat2{{complex(c, 0), complex(-s, 0)}, {complex(s, 0), complex(c, 0)}}, true
	case "rz":
		return mat2{
			{cmplx.Exp(complex(0, -g.Params[0]/2)), 0},
			{0, cmplx.Exp(complex(0, g.Params[0]/2))},
		}, true
	case "u1":
		return mat2{{1, 0}, {0, cmplx.Exp(complex(0, g.Params[0]))}}, true
	case "u2":
		return u3(math.Pi/2, g.Params[0], g.Params[1]), true
	case "u3":
		return u3(g.Params[0], g.Params[1], g.Params[2]), true
	default:
		return mat2{}, false
	}
}

// apply applies a unitary gate.  Barriers are ignored.
func (st *state) apply(g Gate) {
	if m, ok := singleQubitMatrix(g); ok {
		st.apply1(g.Qubits[0], m)
		return
	}
	switch g.Name {
	case "cx":
		st.applyControlled([]int{g.Qubits[0]}, g.Qubits[1], matX)
	case "ccx":
		st.applyControlled(g.Qubits[:2], g.Qubits[2], matX)
	case "cz":
		st.applyControlled([]int{g.Qubits[0]}, g.Qubits[1], matZ)
	case "swap":
		a, b := 1<<uint(g.Qubits[0]), 1<<uint(g.Qubits[1])
		for i := range st.amp {
			if i&a != 0 && i&b == 0 {
				j := i ^ a ^ b
				st.amp[i], st.amp[j] = st.amp[j], st.amp[i]
			}
		}
	}
}

// apply1 applies a single-qubit operator to qubit q.
func (st *state) apply1(q int, m mat2) {
	st.applyControlled(nil, q, m)
}

// applyControlled applies m to the target qubit in every basis state in which
// all control qubits are 1.
func (st *state) applyControlled(ctls []int, tgt int, m mat2) {
	mask := 0
	for _, c := range ctls {
		mask |= 1 << uint(c)
	}
	bit := 1 << uint(tgt)
	for i := range st.amp {
		if i&bit != 0 || i&mask != mask {
			continue
		}
		j := i | bit
		a0, a1 := st.amp[i], st.amp[j]
		st.amp[i] = m[0][0]*a0 + m[0][1]*a1
		st.amp[j] = m[1][0]*a0 + m[1][1]*a1
	}
}

// measure collapses qubit q, using r in [0, 1) to pick the outcome, and
// returns the outcome.
func (st *state) measure(q int, r float64) uint8 {
	bit := 1 << uint(q)
	p1 := 0.0
	for i, a := range st.amp {
		if i&bit != 0 {
			p1 += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	var outcome uint8
	norm := 1 - p1
	if r < p1 {
		outcome = 1
		norm = p1
	}
	scale := complex(1/math.Sqrt(norm), 0)
	for i := range st.amp {
		if (i&bit != 0) == (outcome == 1) {
			st.amp[i] *= scale
		} else {
			st.amp[i] = 0
		}
	}
	return outcome
}

// cumulative returns the running sum of basis-state probabilities.
func (st *state) cumulative() []float64 {
	cdf := make([]float64, len(st.amp))
	sum := 0.0
	for i, a := range st.amp {
		sum += real(a)*real(a) + imag(a)*imag(a)
		cdf[i] = sum
	}
	return cdf
}

// pauliExpectation returns the real part of <psi|P|psi>.
func (st *state) pauliExpectation(pauli string) (float64, error) {
	if len(pauli) > st.n {
		return 0, errors.Errorf("Pauli string %q is longer than the %d-qubit state", pauli, st.n)
	}
	phi := &state{n: st.n, amp: append([]complex128(nil), st.amp...)}
	for q, p := range strings.ToUpper(pauli) {
		switch p {
		case 'I':
		case 'X':
			phi.apply1(q, matX)
		case 'Y':
			phi.apply1(q, matY)
		case 'Z':
			phi.apply1(q, matZ)
		default:
			return 0, errors.Errorf("invalid Pauli operator %q in %q", p, pauli)
		}
	}
	var e complex128
	for i, a := range st.amp {
		e += cmplx.Conj(a) * phi.amp[i]
	}
	return real(e), nil
}
