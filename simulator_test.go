package ibmq_test

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/lanl/ibmq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSimulatorBell ensures a Bell pair is measured as correlated bits.
func TestSimulatorBell(t *testing.T) {
	sim := ibmq.NewSimulator(ibmq.WithSimulatorSeed(1))
	c := ibmq.NewCircuit(2, 2).H(0).CX(0, 1).MeasureAll()

	table, err := sim.Run(context.Background(), c, 1000)
	require.NoError(t, err)
	require.Equal(t, 1000, table.Shots())
	counts := table.Counts()
	assert.Len(t, counts, 2)
	assert.InDelta(t, 500, counts["00"], 100)
	assert.InDelta(t, 500, counts["11"], 100)
}

// TestSimulatorDeterministic ensures basis-state circuits always yield the
// same outcome, with classical bit i in column i.
func TestSimulatorDeterministic(t *testing.T) {
	sim := ibmq.NewSimulator()
	c := ibmq.NewCircuit(3, 3).X(0).CX(0, 2).MeasureAll()

	table, err := sim.Run(context.Background(), c, 10)
	require.NoError(t, err)
	for _, row := range table {
		assert.Equal(t, []uint8{1, 0, 1}, row)
	}

	mem, err := sim.Memory(context.Background(), c, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"101", "101", "101"}, mem)

	// Memory strings list the highest bit first.
	c = ibmq.NewCircuit(3, 3).X(0).MeasureAll()
	mem, err = sim.Memory(context.Background(), c, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"001"}, mem)
}

// TestSimulatorGates ensures each single-qubit gate has the expected effect
// on |0>.
func TestSimulatorGates(t *testing.T) {
	tests := []struct {
		name string
		circ *ibmq.Circuit
		want uint8
	}{
		{"x", ibmq.NewCircuit(1, 1).X(0), 1},
		{"y", ibmq.NewCircuit(1, 1).Y(0), 1},
		{"z", ibmq.NewCircuit(1, 1).Z(0), 0},
		{"hzh", ibmq.NewCircuit(1, 1).H(0).Z(0).H(0), 1},
		{"hsh twice", ibmq.NewCircuit(1, 1).H(0).S(0).S(0).H(0), 1},
		{"t and tdg", ibmq.NewCircuit(1, 1).H(0).T(0).Tdg(0).H(0), 0},
		{"sdg", ibmq.NewCircuit(1, 1).H(0).Sdg(0).Sdg(0).H(0), 1},
		{"rx(pi)", ibmq.NewCircuit(1, 1).Rx(math.Pi, 0), 1},
		{"ry(pi)", ibmq.NewCircuit(1, 1).Ry(math.Pi, 0), 1},
		{"h rz(pi) h", ibmq.NewCircuit(1, 1).H(0).Rz(math.Pi, 0).H(0), 1},
		{"h u1(pi) h", ibmq.NewCircuit(1, 1).H(0).U1(math.Pi, 0).H(0), 1},
		{"u2 twice", ibmq.NewCircuit(1, 1).U2(0, math.Pi, 0).U2(0, math.Pi, 0), 0},
		{"u3(pi)", ibmq.NewCircuit(1, 1).U3(math.Pi, 0, math.Pi, 0), 1},
		{"id", ibmq.NewCircuit(1, 1).ID(0), 0},
	}
	sim := ibmq.NewSimulator(ibmq.WithSimulatorSeed(3))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := sim.Run(context.Background(), tt.circ.Measure(0, 0), 16)
			require.NoError(t, err)
			for _, row := range table {
				require.Equal(t, tt.want, row[0])
			}
		})
	}
}

// TestSimulatorMultiQubitGates ensures the controlled gates and SWAP act on
// the right qubits.
func TestSimulatorMultiQubitGates(t *testing.T) {
	sim := ibmq.NewSimulator()
	ctx := context.Background()

	c := ibmq.NewCircuit(3, 3).X(0).X(1).CCX(0, 1, 2).SWAP(0, 2).MeasureAll()
	table, err := sim.Run(ctx, c, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1, 1}, table[0])

	c = ibmq.NewCircuit(2, 2).X(1).SWAP(0, 1).MeasureAll()
	table, err = sim.Run(ctx, c, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0}, table[0])

	// CZ between |+> and |1> flips the first qubit to |->.
	c = ibmq.NewCircuit(2, 2).H(0).X(1).CZ(0, 1).H(0).MeasureAll()
	table, err = sim.Run(ctx, c, 4)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 1}, table[0])
}

// TestSimulatorMidCircuit ensures mid-circuit measurements collapse the state
// and resets return qubits to |0>.
func TestSimulatorMidCircuit(t *testing.T) {
	sim := ibmq.NewSimulator(ibmq.WithSimulatorSeed(11))
	c := ibmq.NewCircuit(2, 3).
		H(0).Measure(0, 0).CX(0, 1).Measure(1, 1).
		Reset(0).Measure(0, 2)

	table, err := sim.Run(context.Background(), c, 200)
	require.NoError(t, err)
	counts := table.Counts()
	for k := range counts {
		assert.Contains(t, []string{"000", "110"}, k)
	}
	assert.Len(t, counts, 2)
}

// TestSimulatorSeed ensures equal seeds give equal samples.
func TestSimulatorSeed(t *testing.T) {
	c := ibmq.NewCircuit(3, 3).H(0).H(1).H(2).MeasureAll()
	a, err := ibmq.NewSimulator(ibmq.WithSimulatorSeed(42)).Run(context.Background(), c, 64)
	require.NoError(t, err)
	b, err := ibmq.NewSimulator(ibmq.WithSimulatorSeed(42)).Run(context.Background(), c, 64)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestSimulatorConcurrent ensures a Simulator may be shared.
func TestSimulatorConcurrent(t *testing.T) {
	sim := ibmq.NewSimulator()
	c := ibmq.NewCircuit(2, 2).H(0).CX(0, 1).MeasureAll()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			table, err := sim.Run(context.Background(), c, 50)
			assert.NoError(t, err)
			assert.Equal(t, 50, table.Shots())
		}()
	}
	wg.Wait()
}

// TestSimulatorErrors ensures bad requests are rejected.
func TestSimulatorErrors(t *testing.T) {
	ctx := context.Background()
	sim := ibmq.NewSimulator(ibmq.WithMaxQubits(2))

	_, err := sim.Run(ctx, ibmq.NewCircuit(1, 1).Measure(0, 0), 0)
	assert.ErrorIs(t, err, ibmq.ErrInvalidShots)

	_, err = sim.Run(ctx, ibmq.NewCircuit(3, 0).H(2), 1)
	assert.ErrorIs(t, err, ibmq.ErrTooManyQubits)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = sim.Run(cctx, ibmq.NewCircuit(1, 1).Measure(0, 0), 10)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestSimulatorFitToConstraints ensures a constrained simulator routes first
// and still measures the logical outcome.
func TestSimulatorFitToConstraints(t *testing.T) {
	arc := ibmq.NewArchitecture(ibmq.LinearCoupling(3))
	sim := ibmq.NewSimulator(ibmq.FitToConstraints(arc, nil))
	c := ibmq.NewCircuit(3, 3).X(0).CX(0, 2).MeasureAll()

	table, err := sim.Run(context.Background(), c, 5)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 0, 1}, table[0])

	var b ibmq.Backend = sim
	_, err = b.Run(context.Background(), ibmq.NewCircuit(4, 0).H(3), 1)
	assert.ErrorIs(t, err, ibmq.ErrTooManyQubits)
}

// TestStateSimulator ensures final states and expectation values are exact.
func TestStateSimulator(t *testing.T) {
	var ss ibmq.StateSimulator
	bell := ibmq.NewCircuit(2, 0).H(0).CX(0, 1)

	state, err := ss.State(bell)
	require.NoError(t, err)
	require.Len(t, state, 4)
	assert.InDelta(t, math.Sqrt2/2, real(state[0]), 1e-12)
	assert.InDelta(t, 0, real(state[1]), 1e-12)
	assert.InDelta(t, 0, real(state[2]), 1e-12)
	assert.InDelta(t, math.Sqrt2/2, real(state[3]), 1e-12)

	for pauli, want := range map[string]float64{"ZZ": 1, "XX": 1, "YY": -1, "ZI": 0, "IZ": 0, "": 1} {
		got, err := ss.PauliExpectation(bell, pauli)
		require.NoError(t, err)
		assert.InDeltaf(t, want, got, 1e-12, "<%s>", pauli)
	}

	// Character i acts on qubit i.
	c := ibmq.NewCircuit(2, 0).X(0)
	got, err := ss.PauliExpectation(c, "ZI")
	require.NoError(t, err)
	assert.InDelta(t, -1, got, 1e-12)
	got, err = ss.PauliExpectation(c, "IZ")
	require.NoError(t, err)
	assert.InDelta(t, 1, got, 1e-12)

	op := []ibmq.PauliTerm{{Pauli: "ZZ", Coeff: 0.5}, {Pauli: "XX", Coeff: 0.25}, {Pauli: "ZI", Coeff: 3}}
	got, err = ss.OperatorExpectation(bell, op)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, got, 1e-12)
}

// TestStateSimulatorErrors ensures unsupported requests are rejected.
func TestStateSimulatorErrors(t *testing.T) {
	var ss ibmq.StateSimulator
	_, err := ss.State(ibmq.NewCircuit(1, 1).Measure(0, 0))
	assert.Error(t, err)

	c := ibmq.NewCircuit(2, 0).H(0)
	_, err = ss.PauliExpectation(c, "XYZ")
	assert.Error(t, err)
	_, err = ss.PauliExpectation(c, "QZ")
	assert.Error(t, err)
	_, err = ss.OperatorExpectation(c, []ibmq.PauliTerm{{Pauli: "ZZ", Coeff: 1}, {Pauli: "A", Coeff: 1}})
	assert.Error(t, err)
}
