// This file presents the job format accepted by the execution service and the
// functions that assemble circuits into it.

package ibmq

import (
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

// QobjSchemaVersion is the version of the job format this package produces.
const QobjSchemaVersion = "1.1.0"

// An Instruction is a single gate in an Experiment.
type Instruction struct {
	Name   string    `json:"name"`
	Qubits []int     `json:"qubits,omitempty"`
	Memory []int     `json:"memory,omitempty"`
	Params []float64 `json:"params,omitempty"`
}

// An ExperimentHeader describes the registers of an Experiment.
type ExperimentHeader struct {
	Name        string `json:"name"`
	NumQubits   int    `json:"n_qubits"`
	MemorySlots int    `json:"memory_slots"`
}

// An Experiment is a circuit in the execution service's representation.
type Experiment struct {
	Header       ExperimentHeader `json:"header"`
	Instructions []Instruction    `json:"instructions"`
}

// NewExperiment converts a circuit into an Experiment.
func NewExperiment(c *Circuit, name string) *Experiment {
	exp := &Experiment{
		Header: ExperimentHeader{
			Name:        name,
			NumQubits:   c.NumQubits,
			MemorySlots: c.NumBits,
		},
		Instructions: make([]Instruction, len(c.Gates)),
	}
	for i, g := range c.Gates {
		g = copyGate(g)
		exp.Instructions[i] = Instruction{
			Name:   g.Name,
			Qubits: g.Qubits,
			Memory: g.Bits,
			Params: g.Params,
		}
	}
	return exp
}

// Circuit converts an Experiment back into a circuit and validates it.
func (e *Experiment) Circuit() (*Circuit, error) {
	c := NewCircuit(e.Header.NumQubits, e.Header.MemorySlots)
	for _, in := range e.Instructions {
		g := Gate{
			Name:   in.Name,
			Qubits: append([]int(nil), in.Qubits...),
		}
		if len(in.Memory) > 0 {
			g.Bits = append([]int(nil), in.Memory...)
		}
		if len(in.Params) > 0 {
			g.Params = append([]float64(nil), in.Params...)
		}
		c.Gates = append(c.Gates, g)
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "experiment %q", e.Header.Name)
	}
	return c, nil
}

// A QobjConfig holds the run parameters shared by every experiment in a job.
type QobjConfig struct {
	Shots       int    `json:"shots"`                    // Number of repetitions of each experiment
	Memory      bool   `json:"memory"`                   // Report per-shot measurement memory
	MemorySlots int    `json:"memory_slots"`             // Largest number of classical bits in any experiment
	NumQubits   int    `json:"n_qubits"`                 // Largest number of qubits in any experiment
	Seed        *int64 `json:"seed_simulator,omitempty"` // Seed for simulators (ignored by hardware)

	Noise *NoiseModel `json:"noise_model,omitempty"` // Errors simulators inject (ignored by hardware)
}

// A Qobj is a job description ready to submit to a device.
type Qobj struct {
	ID            string       `json:"qobj_id"`
	Type          string       `json:"type"`
	SchemaVersion string       `json:"schema_version"`
	Config        QobjConfig   `json:"config"`
	Experiments   []Experiment `json:"experiments"`
}

// An AssembleOption modifies the configuration of an assembled Qobj.
type AssembleOption func(*QobjConfig)

// WithSeed asks simulators to seed their random-number generator.
func WithSeed(seed int64) AssembleOption {
	return func(cfg *QobjConfig) {
		cfg.Seed = &seed
	}
}

// WithNoiseModel asks simulators to inject the errors of a noise model.
func WithNoiseModel(nm NoiseModel) AssembleOption {
	return func(cfg *QobjConfig) {
		cfg.Noise = &nm
	}
}

// Assemble packages experiments into a Qobj that runs each of them shots
// times.  If memory is set the result will include per-shot bitstrings.
func Assemble(exps []*Experiment, shots int, memory bool, opts ...AssembleOption) (*Qobj, error) {
	if shots <= 0 {
		return nil, errors.Wrapf(ErrInvalidShots, "got %d", shots)
	}
	if len(exps) == 0 {
		return nil, errors.New("no experiments to assemble")
	}
	q := &Qobj{
		ID:            ulid.Make().String(),
		Type:          "QASM",
		SchemaVersion: QobjSchemaVersion,
		Config: QobjConfig{
			Shots:  shots,
			Memory: memory,
		},
		Experiments: make([]Experiment, len(exps)),
	}
	for i, e := range exps {
		q.Experiments[i] = *e
		q.Config.NumQubits = max(q.Config.NumQubits, e.Header.NumQubits)
		q.Config.MemorySlots = max(q.Config.MemorySlots, e.Header.MemorySlots)
	}
	for _, opt := range opts {
		opt(&q.Config)
	}
	return q, nil
}
