package ibmq_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/lanl/ibmq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bellQASM is a two-qubit Bell-state program spread over two registers.
const bellQASM = `OPENQASM 2.0;
include "qelib1.inc";
// Prepare a Bell pair.
qreg a[1];
qreg b[1];
creg c[2];
h a[0];
CX a[0],b[0];
measure a[0] -> c[0];
measure b[0] -> c[1];
`

// TestParseQASM ensures registers are flattened and gates recorded in order.
func TestParseQASM(t *testing.T) {
	c, err := ibmq.ParseQASM(bellQASM)
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumQubits)
	assert.Equal(t, 2, c.NumBits)
	require.Len(t, c.Gates, 4)
	assert.Equal(t, ibmq.Gate{Name: "h", Qubits: []int{0}}, c.Gates[0])
	assert.Equal(t, ibmq.Gate{Name: "cx", Qubits: []int{0, 1}}, c.Gates[1])
	assert.Equal(t, ibmq.Gate{Name: "measure", Qubits: []int{1}, Bits: []int{1}}, c.Gates[3])
}

// TestParseQASMBroadcast ensures whole-register operands expand to one gate
// per element.
func TestParseQASMBroadcast(t *testing.T) {
	c, err := ibmq.ParseQASM(`OPENQASM 2.0;
qreg q[3];
qreg r[3];
creg m[3];
h q;
cx q,r;
x r[1];
barrier q,r[0];
measure r -> m;
`)
	require.NoError(t, err)
	ops := c.CountOps()
	assert.Equal(t, 3, ops["h"])
	assert.Equal(t, 3, ops["cx"])
	assert.Equal(t, 3, ops["measure"])
	assert.Equal(t, []int{2, 5}, c.Gates[5].Qubits, "cx q[2],r[2]")
	assert.Equal(t, ibmq.Gate{Name: "x", Qubits: []int{4}}, c.Gates[6])
	assert.Equal(t, []int{0, 1, 2, 3}, c.Gates[7].Qubits)
	assert.Equal(t, []int{2}, c.Gates[10].Bits)
}

// TestParseQASMParameters ensures parameter expressions are evaluated.
func TestParseQASMParameters(t *testing.T) {
	c, err := ibmq.ParseQASM(`qreg q[1];
rz(pi/2) q[0];
u3(-pi, 2*pi/4, (1+1)/4) q[0];
u(1.5e-1,0,0) q[0];
`)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi/2, c.Gates[0].Params[0], 1e-12)
	assert.InDeltaSlice(t, []float64{-math.Pi, math.Pi / 2, 0.5}, c.Gates[1].Params, 1e-12)
	assert.Equal(t, "u3", c.Gates[2].Name)
	assert.InDelta(t, 0.15, c.Gates[2].Params[0], 1e-12)
}

// TestParseQASMErrors ensures unsupported or malformed programs are rejected.
func TestParseQASMErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"undeclared register", "qreg q[1]; h r[0];"},
		{"index out of range", "qreg q[1]; h q[1];"},
		{"unknown gate", "qreg q[1]; frob q[0];"},
		{"custom gate", "qreg q[1]; gate g a { h a; }"},
		{"conditional", "qreg q[1]; creg c[1]; if(c==1) x q[0];"},
		{"wrong operand count", "qreg q[2]; cx q[0];"},
		{"wrong parameter count", "qreg q[1]; rz q[0];"},
		{"bad expression", "qreg q[1]; rz(pi/) q[0];"},
		{"mismatched measure", "qreg q[2]; creg c[1]; measure q -> c;"},
		{"unrepresentable register size", "OPENQASM 2.0;\nqreg q[99999999999999999999];\nh q;\n"},
		{"unrepresentable index", "qreg q[2]; h q[99999999999999999999];"},
		{"oversized qreg", "qreg q[2000000000]; h q[0];"},
		{"oversized creg", "creg c[2000000000];"},
		{"qubit total past limit", "qreg a[40000]; qreg b[40000];"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ibmq.ParseQASM(tt.src)
			assert.Error(t, err)
		})
	}
}

// TestParseQASMWidthLimit ensures registers may fill but not exceed
// MaxQASMWidth.
func TestParseQASMWidthLimit(t *testing.T) {
	c, err := ibmq.ParseQASM(fmt.Sprintf("qreg a[%d]; qreg b[1]; creg c[%d];",
		ibmq.MaxQASMWidth-1, ibmq.MaxQASMWidth))
	require.NoError(t, err)
	assert.Equal(t, ibmq.MaxQASMWidth, c.NumQubits)
	assert.Equal(t, ibmq.MaxQASMWidth, c.NumBits)

	_, err = ibmq.ParseQASM(fmt.Sprintf("qreg a[%d]; qreg b[1];", ibmq.MaxQASMWidth))
	assert.Error(t, err)
}

// TestErrorsRecordStack ensures parse and validation errors carry the stack
// of the call that created them.
func TestErrorsRecordStack(t *testing.T) {
	_, err := ibmq.ParseQASM("qreg q[1]; h q[1];")
	require.Error(t, err)
	assert.Contains(t, fmt.Sprintf("%+v", err), "qasm.go")

	err = ibmq.NewCircuit(1, 0).Add("rz", []int{0}).Validate()
	require.Error(t, err)
	assert.Contains(t, fmt.Sprintf("%+v", err), "circuit.go")
}

// TestQASMRoundTrip ensures ToQASM output parses back to the same circuit.
func TestQASMRoundTrip(t *testing.T) {
	c := ibmq.NewCircuit(3, 3).
		H(0).
		Sdg(1).
		Rx(0.125, 2).
		U2(math.Pi/3, -1e-3, 1).
		CX(2, 0).
		CCX(0, 1, 2).
		Reset(1).
		Barrier().
		MeasureAll()

	parsed, err := ibmq.ParseQASM(c.ToQASM())
	require.NoError(t, err)
	assert.Equal(t, c.NumQubits, parsed.NumQubits)
	assert.Equal(t, c.NumBits, parsed.NumBits)
	assert.Equal(t, c.Gates, parsed.Gates)
}
