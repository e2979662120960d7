// This file presents the circuit types that get routed and submitted to a
// device.

package ibmq

import (
	"github.com/pkg/errors"
)

// A Gate represents a single operation in a circuit.  Qubits lists the
// operands in order (control before target for controlled gates).  Bits is
// non-empty only for a measurement, where Bits[i] receives the outcome of
// Qubits[i].
type Gate struct {
	Name   string    // Lower-case OpenQASM gate name
	Qubits []int     // Qubit operands
	Bits   []int     // Classical bits written by a measurement
	Params []float64 // Rotation angles, in radians
}

// gateArity records the arity of a gate.  A negative qubit count means the gate
// accepts any number of operands.
type gateArity struct {
	qubits int
	params int
}

// gateArities lists every gate a Circuit may contain.
var gateArities = map[string]gateArity{
	"id":      {1, 0},
	"x":       {1, 0},
	"y":       {1, 0},
	"z":       {1, 0},
	"h":       {1, 0},
	"s":       {1, 0},
	"sdg":     {1, 0},
	"t":       {1, 0},
	"tdg":     {1, 0},
	"rx":      {1, 1},
	"ry":      {1, 1},
	"rz":      {1, 1},
	"u1":      {1, 1},
	"u2":      {1, 2},
	"u3":      {1, 3},
	"cx":      {2, 0},
	"cz":      {2, 0},
	"swap":    {2, 0},
	"ccx":     {3, 0},
	"measure": {1, 0},
	"reset":   {1, 0},
	"barrier": {-1, 0},
}

// copyGate returns a deep copy of a Gate.
func copyGate(g Gate) Gate {
	ng := Gate{Name: g.Name}
	ng.Qubits = append([]int(nil), g.Qubits...)
	if g.Bits != nil {
		ng.Bits = append([]int(nil), g.Bits...)
	}
	if g.Params != nil {
		ng.Params = append([]float64(nil), g.Params...)
	}
	return ng
}

// actsOn says whether a gate touches a given qubit.
func (g Gate) actsOn(q int) bool {
	for _, gq := range g.Qubits {
		if gq == q {
			return true
		}
	}
	return false
}

// isUnitary says whether a gate is a unitary operation (as opposed to a
// measurement, reset, or barrier).
func (g Gate) isUnitary() bool {
	switch g.Name {
	case "measure", "reset", "barrier":
		return false
	default:
		return true
	}
}

// A Circuit is an ordered list of gates acting on NumQubits qubits and writing
// to NumBits classical bits.
type Circuit struct {
	NumQubits int    // Number of qubits
	NumBits   int    // Number of classical bits
	Gates     []Gate // Gates in program order
}

// NewCircuit returns an empty circuit with the given numbers of qubits and
// classical bits.
func NewCircuit(nq, nb int) *Circuit {
	return &Circuit{
		NumQubits: nq,
		NumBits:   nb,
		Gates:     make([]Gate, 0, 8),
	}
}

// Add appends an arbitrary gate to the circuit, growing the qubit count if
// necessary, and returns the circuit for chaining.
func (c *Circuit) Add(name string, qubits []int, params ...float64) *Circuit {
	g := Gate{Name: name, Qubits: append([]int(nil), qubits...)}
	if len(params) > 0 {
		g.Params = append([]float64(nil), params...)
	}
	for _, q := range qubits {
		if q >= c.NumQubits {
			c.NumQubits = q + 1
		}
	}
	c.Gates = append(c.Gates, g)
	return c
}

// ID applies an identity gate.
func (c *Circuit) ID(q int) *Circuit { return c.Add("id", []int{q}) }

// X applies a Pauli X gate.
func (c *Circuit) X(q int) *Circuit { return c.Add("x", []int{q}) }

// Y applies a Pauli Y gate.
func (c *Circuit) Y(q int) *Circuit { return c.Add("y", []int{q}) }

// Z applies a Pauli Z gate.
func (c *Circuit) Z(q int) *Circuit { return c.Add("z", []int{q}) }

// H applies a Hadamard gate.
func (c *Circuit) H(q int) *Circuit { return c.Add("h", []int{q}) }

// S applies a phase gate.
func (c *Circuit) S(q int) *Circuit { return c.Add("s", []int{q}) }

// Sdg applies the adjoint of the phase gate.
func (c *Circuit) Sdg(q int) *Circuit { return c.Add("sdg", []int{q}) }

// T applies a T gate.
func (c *Circuit) T(q int) *Circuit { return c.Add("t", []int{q}) }

// Tdg applies the adjoint of the T gate.
func (c *Circuit) Tdg(q int) *Circuit { return c.Add("tdg", []int{q}) }

// Rx rotates a qubit about the X axis.
func (c *Circuit) Rx(theta float64, q int) *Circuit { return c.Add("rx", []int{q}, theta) }

// Ry rotates a qubit about the Y axis.
func (c *Circuit) Ry(theta float64, q int) *Circuit { return c.Add("ry", []int{q}, theta) }

// Rz rotates a qubit about the Z axis.
func (c *Circuit) Rz(theta float64, q int) *Circuit { return c.Add("rz", []int{q}, theta) }

// U1 applies a phase rotation.
func (c *Circuit) U1(lambda float64, q int) *Circuit { return c.Add("u1", []int{q}, lambda) }

// U2 applies a single-pulse rotation.
func (c *Circuit) U2(phi, lambda float64, q int) *Circuit {
	return c.Add("u2", []int{q}, phi, lambda)
}

// U3 applies a generic single-qubit rotation.
func (c *Circuit) U3(theta, phi, lambda float64, q int) *Circuit {
	return c.Add("u3", []int{q}, theta, phi, lambda)
}

// CX applies a controlled NOT.
func (c *Circuit) CX(ctl, tgt int) *Circuit { return c.Add("cx", []int{ctl, tgt}) }

// CZ applies a controlled Z.
func (c *Circuit) CZ(a, b int) *Circuit { return c.Add("cz", []int{a, b}) }

// SWAP exchanges the states of two qubits.
func (c *Circuit) SWAP(a, b int) *Circuit { return c.Add("swap", []int{a, b}) }

// CCX applies a Toffoli gate.
func (c *Circuit) CCX(c1, c2, tgt int) *Circuit { return c.Add("ccx", []int{c1, c2, tgt}) }

// Reset returns a qubit to |0>.
func (c *Circuit) Reset(q int) *Circuit { return c.Add("reset", []int{q}) }

// Barrier prevents optimizations from moving gates across it.  With no
// arguments it spans every qubit.
func (c *Circuit) Barrier(qubits ...int) *Circuit {
	if len(qubits) == 0 {
		qubits = make([]int, c.NumQubits)
		for i := range qubits {
			qubits[i] = i
		}
	}
	return c.Add("barrier", qubits)
}

// Measure measures qubit q into classical bit b.
func (c *Circuit) Measure(q, b int) *Circuit {
	c.Add("measure", []int{q})
	c.Gates[len(c.Gates)-1].Bits = []int{b}
	if b >= c.NumBits {
		c.NumBits = b + 1
	}
	return c
}

// MeasureAll measures every qubit i into classical bit i.
func (c *Circuit) MeasureAll() *Circuit {
	for q := 0; q < c.NumQubits; q++ {
		c.Measure(q, q)
	}
	return c
}

// Copy returns a deep copy of the circuit.
func (c *Circuit) Copy() *Circuit {
	nc := &Circuit{
		NumQubits: c.NumQubits,
		NumBits:   c.NumBits,
		Gates:     make([]Gate, len(c.Gates)),
	}
	for i, g := range c.Gates {
		nc.Gates[i] = copyGate(g)
	}
	return nc
}

// TwoQubitGateCount returns the number of unitary gates acting on exactly two
// qubits.
func (c *Circuit) TwoQubitGateCount() int {
	n := 0
	for _, g := range c.Gates {
		if g.isUnitary() && len(g.Qubits) == 2 {
			n++
		}
	}
	return n
}

// CountOps returns a tally of the gates in the circuit, keyed by name.
func (c *Circuit) CountOps() map[string]int {
	ops := make(map[string]int, len(c.Gates))
	for _, g := range c.Gates {
		ops[g.Name]++
	}
	return ops
}

// Validate ensures that every gate is known, has the right number of operands
// and parameters, and references only qubits and bits that exist.
func (c *Circuit) Validate() error {
	for i, g := range c.Gates {
		ar, ok := gateArities[g.Name]
		if !ok {
			return errors.Wrapf(ErrUnsupportedGate, "gate %d (%q)", i, g.Name)
		}
		if ar.qubits >= 0 && len(g.Qubits) != ar.qubits {
			return errors.Errorf("gate %d (%s) expects %d qubits but has %d", i, g.Name, ar.qubits, len(g.Qubits))
		}
		if len(g.Params) != ar.params {
			return errors.Errorf("gate %d (%s) expects %d parameters but has %d", i, g.Name, ar.params, len(g.Params))
		}
		seen := make(map[int]struct{}, len(g.Qubits))
		for _, q := range g.Qubits {
			if q < 0 || q >= c.NumQubits {
				return errors.Errorf("gate %d (%s) references qubit %d outside [0, %d)", i, g.Name, q, c.NumQubits)
			}
			if _, dup := seen[q]; dup {
				return errors.Errorf("gate %d (%s) references qubit %d twice", i, g.Name, q)
			}
			seen[q] = struct{}{}
		}
		if g.Name == "measure" && len(g.Bits) != len(g.Qubits) {
			return errors.Errorf("gate %d (measure) needs one classical bit per qubit", i)
		}
		for _, b := range g.Bits {
			if b < 0 || b >= c.NumBits {
				return errors.Errorf("gate %d (%s) references classical bit %d outside [0, %d)", i, g.Name, b, c.NumBits)
			}
		}
	}
	return nil
}
