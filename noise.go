// This file describes the errors a Simulator can inject to imitate a noisy
// device.

package ibmq

import (
	"math/rand"

	"github.com/pkg/errors"
)

// A NoiseModel lists the error probabilities a Simulator applies.  The zero
// value is noiseless.
type NoiseModel struct {
	// Depolarizing1Q is the probability that a one-qubit gate is followed
	// by a uniformly chosen X, Y, or Z on its qubit.
	Depolarizing1Q float64 `json:"depolarizing_1q" mapstructure:"depolarizing_1q"`

	// Depolarizing2Q is the probability that a gate on two or more qubits
	// is followed by a uniformly chosen non-identity Pauli string on those
	// qubits.
	Depolarizing2Q float64 `json:"depolarizing_2q" mapstructure:"depolarizing_2q"`

	// Readout is the probability that each measured bit is reported
	// flipped.
	Readout float64 `json:"readout" mapstructure:"readout"`
}

// Validate ensures every probability lies in [0, 1].
func (nm NoiseModel) Validate() error {
	for _, p := range []struct {
		name string
		val  float64
	}{
		{"one-qubit depolarizing", nm.Depolarizing1Q},
		{"two-qubit depolarizing", nm.Depolarizing2Q},
		{"readout", nm.Readout},
	} {
		if !(p.val >= 0 && p.val <= 1) {
			return errors.Wrapf(ErrInvalidNoiseModel, "%s probability %v", p.name, p.val)
		}
	}
	return nil
}

// IsZero says whether the model injects no errors at all.
func (nm NoiseModel) IsZero() bool {
	return nm == NoiseModel{}
}

// gateNoise says whether any gate errors may occur.
func (nm NoiseModel) gateNoise() bool {
	return nm.Depolarizing1Q > 0 || nm.Depolarizing2Q > 0
}

// depolarize follows a unitary gate with a random Pauli error on its qubits.
func (nm NoiseModel) depolarize(st *state, g Gate, rng *rand.Rand) {
	if !g.isUnitary() || len(g.Qubits) == 0 {
		return
	}
	p := nm.Depolarizing2Q
	if len(g.Qubits) == 1 {
		p = nm.Depolarizing1Q
	}
	if p <= 0 || rng.Float64() >= p {
		return
	}

	// Two bits of k select I, X, Y, or Z for each qubit; k is never all
	// identity.
	k := 1 + rng.Intn(1<<uint(2*len(g.Qubits))-1)
	for i, q := range g.Qubits {
		switch (k >> uint(2*i)) & 3 {
		case 1:
			st.apply1(q, matX)
		case 2:
			st.apply1(q, matY)
		case 3:
			st.apply1(q, matZ)
		}
	}
}

// readout returns a measured bit, flipped with the readout error probability.
func (nm NoiseModel) readout(bit uint8, rng *rand.Rand) uint8 {
	if nm.Readout > 0 && rng.Float64() < nm.Readout {
		return bit ^ 1
	}
	return bit
}

// WithNoise makes a Simulator inject the errors described by a noise model.
func WithNoise(nm NoiseModel) SimulatorOption {
	return func(s *Simulator) {
		s.Noise = nm
	}
}
