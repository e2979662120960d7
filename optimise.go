// This file provides the rewrite passes applied to a circuit after routing.

package ibmq

import (
	"math"
)

// angleTolerance is how close to a multiple of 2π an accumulated rotation must
// be to be dropped.
const angleTolerance = 1e-12

// DecomposeSWAPToCX returns a copy of the circuit in which every SWAP is
// replaced by three alternating CX gates.
func DecomposeSWAPToCX(c *Circuit) *Circuit {
	nc := &Circuit{
		NumQubits: c.NumQubits,
		NumBits:   c.NumBits,
		Gates:     make([]Gate, 0, len(c.Gates)),
	}
	for _, g := range c.Gates {
		if g.Name != "swap" {
			nc.Gates = append(nc.Gates, copyGate(g))
			continue
		}
		a, b := g.Qubits[0], g.Qubits[1]
		nc.Gates = append(nc.Gates,
			Gate{Name: "cx", Qubits: []int{a, b}},
			Gate{Name: "cx", Qubits: []int{b, a}},
			Gate{Name: "cx", Qubits: []int{a, b}})
	}
	return nc
}

// RedirectCX returns a copy of the circuit in which each CX whose coupler
// exists only in the opposite direction is conjugated by Hadamards so that it
// runs natively.  CXs on couplers that exist in the given direction, or on
// pairs not in the architecture at all, are left alone.
func RedirectCX(c *Circuit, arc *Architecture) *Circuit {
	nc := &Circuit{
		NumQubits: c.NumQubits,
		NumBits:   c.NumBits,
		Gates:     make([]Gate, 0, len(c.Gates)),
	}
	for _, g := range c.Gates {
		if g.Name != "cx" {
			nc.Gates = append(nc.Gates, copyGate(g))
			continue
		}
		ctl, tgt := g.Qubits[0], g.Qubits[1]
		if arc.HasEdge(ctl, tgt) || !arc.HasEdge(tgt, ctl) {
			nc.Gates = append(nc.Gates, copyGate(g))
			continue
		}
		nc.Gates = append(nc.Gates,
			Gate{Name: "h", Qubits: []int{ctl}},
			Gate{Name: "h", Qubits: []int{tgt}},
			Gate{Name: "cx", Qubits: []int{tgt, ctl}},
			Gate{Name: "h", Qubits: []int{ctl}},
			Gate{Name: "h", Qubits: []int{tgt}})
	}
	return nc
}

// OptimisePostRouting returns a copy of the circuit with redundant gates
// removed.  It repeatedly drops identities and zero rotations, cancels
// adjacent gates that are each other's inverse, and merges adjacent rotations
// about the same axis, until nothing changes.  Measurements, resets, and
// barriers are never moved or removed and block cancellation across them.
func OptimisePostRouting(c *Circuit) *Circuit {
	nc := c.Copy()
	for {
		changed := false
		var ch bool
		nc.Gates, ch = dropIdentities(nc.Gates)
		changed = changed || ch
		nc.Gates, ch = cancelInversePairs(nc.Gates)
		changed = changed || ch
		nc.Gates, ch = mergeRotations(nc.Gates)
		changed = changed || ch
		if !changed {
			return nc
		}
	}
}

// isRotation says whether a gate is a single-parameter rotation that composes
// additively with itself.
func isRotation(g Gate) bool {
	switch g.Name {
	case "rx", "ry", "rz", "u1":
		return true
	default:
		return false
	}
}

// isTrivialAngle says whether an angle is a multiple of 2π.
func isTrivialAngle(theta float64) bool {
	r := math.Mod(math.Abs(theta), 2*math.Pi)
	return r < angleTolerance || 2*math.Pi-r < angleTolerance
}

// dropIdentities removes identity gates and trivial rotations.
func dropIdentities(gates []Gate) ([]Gate, bool) {
	out := gates[:0]
	changed := false
	for _, g := range gates {
		if g.Name == "id" || (isRotation(g) && isTrivialAngle(g.Params[0])) {
			changed = true
			continue
		}
		out = append(out, g)
	}
	return out, changed
}

// nextOnQubits returns the index of the first live gate after i that touches
// any qubit of gates[i], or -1.
func nextOnQubits(gates []Gate, removed []bool, i int) int {
	for j := i + 1; j < len(gates); j++ {
		if removed[j] {
			continue
		}
		for _, q := range gates[i].Qubits {
			if gates[j].actsOn(q) {
				return j
			}
		}
	}
	return -1
}

// sameOperands says whether two gates act on the same qubits, in order if
// ordered is set.
func sameOperands(a, b Gate, ordered bool) bool {
	if len(a.Qubits) != len(b.Qubits) {
		return false
	}
	if ordered || len(a.Qubits) == 1 {
		for i := range a.Qubits {
			if a.Qubits[i] != b.Qubits[i] {
				return false
			}
		}
		return true
	}
	return a.Qubits[0] == b.Qubits[1] && a.Qubits[1] == b.Qubits[0] ||
		a.Qubits[0] == b.Qubits[0] && a.Qubits[1] == b.Qubits[1]
}

// inversePairs maps each gate to its inverse.
var inversePairs = map[string]string{
	"x":    "x",
	"y":    "y",
	"z":    "z",
	"h":    "h",
	"cx":   "cx",
	"cz":   "cz",
	"swap": "swap",
	"s":    "sdg",
	"sdg":  "s",
	"t":    "tdg",
	"tdg":  "t",
}

// areInverses says whether gate b undoes gate a.
func areInverses(a, b Gate) bool {
	inv, ok := inversePairs[a.Name]
	if !ok || inv != b.Name {
		return false
	}
	return sameOperands(a, b, a.Name == "cx")
}

// cancelInversePairs removes adjacent gate pairs that multiply to the
// identity.
func cancelInversePairs(gates []Gate) ([]Gate, bool) {
	removed := make([]bool, len(gates))
	changed := false
	for i := range gates {
		if removed[i] {
			continue
		}
		if _, ok := inversePairs[gates[i].Name]; !ok {
			continue
		}
		j := nextOnQubits(gates, removed, i)
		if j < 0 || !areInverses(gates[i], gates[j]) {
			continue
		}
		removed[i], removed[j] = true, true
		changed = true
	}
	if !changed {
		return gates, false
	}
	out := make([]Gate, 0, len(gates))
	for i, g := range gates {
		if !removed[i] {
			out = append(out, g)
		}
	}
	return out, true
}

// mergeRotations folds each rotation into the next gate on the same qubit
// when that gate is a rotation about the same axis.
func mergeRotations(gates []Gate) ([]Gate, bool) {
	removed := make([]bool, len(gates))
	changed := false
	for i := range gates {
		if removed[i] || !isRotation(gates[i]) {
			continue
		}
		j := nextOnQubits(gates, removed, i)
		if j < 0 || gates[j].Name != gates[i].Name {
			continue
		}
		merged := copyGate(gates[j])
		merged.Params[0] += gates[i].Params[0]
		gates[j] = merged
		removed[i] = true
		changed = true
	}
	if !changed {
		return gates, false
	}
	out := make([]Gate, 0, len(gates))
	for i, g := range gates {
		if !removed[i] {
			out = append(out, g)
		}
	}
	return out, true
}
