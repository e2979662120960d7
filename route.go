// This file provides functions for routing logical circuits onto a physical
// device topology.

package ibmq

import (
	"sort"

	"github.com/pkg/errors"
)

// A Placement maps logical qubits to physical qubits.
type Placement map[int]int

// Copy returns a copy of the placement.
func (p Placement) Copy() Placement {
	np := make(Placement, len(p))
	for l, ph := range p {
		np[l] = ph
	}
	return np
}

// A Router rewrites a logical circuit as a physical circuit in which every
// two-qubit gate acts on a pair of qubits connected in the architecture.
type Router interface {
	Route(c *Circuit, arc *Architecture) (*Circuit, error)
}

// RouterFunc adapts an ordinary function to the Router interface.
type RouterFunc func(c *Circuit, arc *Architecture) (*Circuit, error)

// Route calls f(c, arc).
func (f RouterFunc) Route(c *Circuit, arc *Architecture) (*Circuit, error) {
	return f(c, arc)
}

// A RouteResult represents the outcome of routing a circuit.
type RouteResult struct {
	Circuit *Circuit  // Physical circuit, sized to the architecture
	Initial Placement // Logical-to-physical map before the first gate
	Final   Placement // Logical-to-physical map after the last gate
	Swaps   int       // Number of SWAP gates inserted
}

// GreedyRouter inserts SWAPs along shortest paths whenever a two-qubit gate
// spans disconnected physical qubits.  It is the default Router.  The
// heuristic is entirely greedy: it considers one gate at a time and does not
// look ahead.
type GreedyRouter struct {
	Initial Placement // Initial placement to use instead of the computed one (optional)
}

// DefaultRouter is the Router used when none is specified.
var DefaultRouter Router = GreedyRouter{}

// Route implements the Router interface.
func (r GreedyRouter) Route(c *Circuit, arc *Architecture) (*Circuit, error) {
	res, err := r.RouteWithPlacement(c, arc)
	if err != nil {
		return nil, err
	}
	return res.Circuit, nil
}

// RouteWithPlacement routes a circuit and additionally reports the initial and
// final placements and the number of SWAPs inserted.
func (r GreedyRouter) RouteWithPlacement(c *Circuit, arc *Architecture) (*RouteResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Determine where each logical qubit starts.
	var place Placement
	if r.Initial != nil {
		place = r.Initial.Copy()
		if err := checkPlacement(c, arc, place); err != nil {
			return nil, err
		}
	} else {
		var err error
		place, err = initialPlacement(c, arc)
		if err != nil {
			return nil, err
		}
	}
	initial := place.Copy()
	where := make(map[int]int, len(place)) // Physical to logical
	for l, p := range place {
		where[p] = l
	}

	// Walk the circuit, moving qubits together as needed.
	out := NewCircuit(arc.Width(), c.NumBits)
	swaps := 0
	for _, g := range c.Gates {
		switch {
		case g.Name == "barrier" || len(g.Qubits) < 2:
		case len(g.Qubits) > 2:
			return nil, errors.Wrapf(ErrUnsupportedGate, "cannot route %d-qubit gate %s", len(g.Qubits), g.Name)
		default:
			p, q := place[g.Qubits[0]], place[g.Qubits[1]]
			if arc.Connected(p, q) {
				break
			}
			path := arc.ShortestPath(p, q)
			if path == nil {
				return nil, errors.Wrapf(ErrUnroutable, "no path from physical qubit %d to %d", p, q)
			}
			for i := 0; i+2 < len(path); i++ {
				a, b := path[i], path[i+1]
				out.Gates = append(out.Gates, Gate{Name: "swap", Qubits: []int{a, b}})
				la, okA := where[a]
				lb, okB := where[b]
				delete(where, a)
				delete(where, b)
				if okA {
					place[la] = b
					where[b] = la
				}
				if okB {
					place[lb] = a
					where[a] = lb
				}
				swaps++
			}
		}

		// Emit the gate on its current physical qubits.
		pg := copyGate(g)
		for i, l := range g.Qubits {
			pg.Qubits[i] = place[l]
		}
		out.Gates = append(out.Gates, pg)
	}
	swapsInserted.Add(float64(swaps))
	return &RouteResult{
		Circuit: out,
		Initial: initial,
		Final:   place,
		Swaps:   swaps,
	}, nil
}

// checkPlacement ensures a caller-supplied placement is injective, covers
// every logical qubit, and maps only onto qubits in the architecture.
func checkPlacement(c *Circuit, arc *Architecture, place Placement) error {
	if len(place) < c.NumQubits {
		return errors.Errorf("placement covers %d of %d logical qubits", len(place), c.NumQubits)
	}
	nodes := make(map[int]struct{}, arc.NumNodes())
	for _, n := range arc.Nodes() {
		nodes[n] = struct{}{}
	}
	used := make(map[int]int, len(place))
	for l, p := range place {
		if _, ok := nodes[p]; !ok {
			return errors.Errorf("logical qubit %d placed on unknown physical qubit %d", l, p)
		}
		if other, dup := used[p]; dup {
			return errors.Errorf("logical qubits %d and %d both placed on physical qubit %d", other, l, p)
		}
		used[p] = l
	}
	for l := 0; l < c.NumQubits; l++ {
		if _, ok := place[l]; !ok {
			return errors.Errorf("logical qubit %d is not placed", l)
		}
	}
	return nil
}

// initialPlacement orders logical qubits by their first two-qubit interaction
// and assigns them, in that order, to physical qubits visited breadth first
// from the best-connected node.
func initialPlacement(c *Circuit, arc *Architecture) (Placement, error) {
	if c.NumQubits > arc.NumNodes() {
		return nil, errors.Wrapf(ErrTooManyQubits, "%d logical qubits, %d physical", c.NumQubits, arc.NumNodes())
	}

	// Order logical qubits by when they first interact.
	order := make([]int, 0, c.NumQubits)
	seen := make(map[int]struct{}, c.NumQubits)
	for _, g := range c.Gates {
		if !g.isUnitary() || len(g.Qubits) < 2 {
			continue
		}
		for _, q := range g.Qubits {
			if _, ok := seen[q]; !ok {
				seen[q] = struct{}{}
				order = append(order, q)
			}
		}
	}
	rest := make([]int, 0, c.NumQubits-len(order))
	for q := 0; q < c.NumQubits; q++ {
		if _, ok := seen[q]; !ok {
			rest = append(rest, q)
		}
	}
	sort.Ints(rest)
	order = append(order, rest...)

	// Assign them to physical qubits.
	phys := arc.bfsOrder()
	place := make(Placement, len(order))
	for i, l := range order {
		place[l] = phys[i]
	}
	return place, nil
}

// Route routes a circuit with the default Router.
func Route(c *Circuit, arc *Architecture) (*Circuit, error) {
	return DefaultRouter.Route(c, arc)
}

// RouteCircuit produces a physical circuit compatible with the architecture:
// it routes c with r (DefaultRouter if nil), decomposes SWAPs into CXs,
// redirects CXs to match the direction of the couplers, and applies the
// post-routing optimizations.  Errors from any step are returned unchanged.
func RouteCircuit(r Router, c *Circuit, arc *Architecture) (*Circuit, error) {
	if r == nil {
		r = DefaultRouter
	}
	physical, err := r.Route(c, arc)
	if err != nil {
		return nil, err
	}
	physical = DecomposeSWAPToCX(physical)
	physical = RedirectCX(physical, arc)
	physical = OptimisePostRouting(physical)
	return physical, nil
}

// RoutedIBMQCircuit routes a circuit onto an architecture with the default
// Router and converts the result to the execution service's experiment
// representation.
func RoutedIBMQCircuit(c *Circuit, arc *Architecture) (*Experiment, error) {
	physical, err := RouteCircuit(DefaultRouter, c, arc)
	if err != nil {
		return nil, err
	}
	return NewExperiment(physical, "circuit-0"), nil
}
