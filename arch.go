// This file presents the hardware connectivity graph that circuits are
// routed onto.

package ibmq

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// A CouplingMap lists the directed qubit pairs {control, target} on which a
// device can apply a CX gate natively.
type CouplingMap [][2]int

// Canonicalize returns a copy of the coupling map sorted by control then
// target with duplicate pairs and self-loops removed.
func (cm CouplingMap) Canonicalize() CouplingMap {
	c1 := make(CouplingMap, 0, len(cm))
	for _, e := range cm {
		if e[0] != e[1] {
			c1 = append(c1, e)
		}
	}
	sort.Slice(c1, func(i, j int) bool {
		switch {
		case c1[i][0] < c1[j][0]:
			return true
		case c1[i][0] > c1[j][0]:
			return false
		default:
			return c1[i][1] < c1[j][1]
		}
	})
	c2 := make(CouplingMap, 0, len(c1))
	for i, e := range c1 {
		if i > 0 && e == c1[i-1] {
			continue
		}
		c2 = append(c2, e)
	}
	return c2
}

// Symmetric returns a coupling map that contains both directions of every
// pair in the receiver.
func (cm CouplingMap) Symmetric() CouplingMap {
	sym := make(CouplingMap, 0, 2*len(cm))
	for _, e := range cm {
		sym = append(sym, e, [2]int{e[1], e[0]})
	}
	return sym.Canonicalize()
}

// LinearCoupling returns a coupling map for n qubits in a line, with CX
// allowed in both directions between neighbors.
func LinearCoupling(n int) CouplingMap {
	cm := make(CouplingMap, 0, 2*n)
	for i := 0; i+1 < n; i++ {
		cm = append(cm, [2]int{i, i + 1}, [2]int{i + 1, i})
	}
	return cm
}

// FullCoupling returns a coupling map in which every ordered pair of the n
// qubits is connected.
func FullCoupling(n int) CouplingMap {
	cm := make(CouplingMap, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				cm = append(cm, [2]int{i, j})
			}
		}
	}
	return cm
}

// An Architecture is the connectivity graph of a device.  It remembers the
// direction of each coupler for CX redirection but treats connectivity as
// undirected for routing.
type Architecture struct {
	couplers CouplingMap             // Coupling map the architecture was built from
	directed map[[2]int]struct{}     // Set of directed edges
	g        *simple.UndirectedGraph // Undirected connectivity, one node per physical qubit

	mu   sync.Mutex          // Protects prev
	prev map[int]map[int]int // Memoized BFS predecessor tables, by source
}

// NewArchitecture constructs an Architecture from a coupling map.  Self-loops
// are ignored.
func NewArchitecture(coupling CouplingMap) *Architecture {
	arc := &Architecture{
		couplers: append(CouplingMap(nil), coupling...),
		directed: make(map[[2]int]struct{}, len(coupling)),
		g:        simple.NewUndirectedGraph(),
		prev:     make(map[int]map[int]int),
	}
	for _, e := range coupling {
		arc.addNode(e[0])
		arc.addNode(e[1])
		if e[0] == e[1] {
			continue
		}
		arc.directed[e] = struct{}{}
		arc.g.SetEdge(simple.Edge{F: simple.Node(e[0]), T: simple.Node(e[1])})
	}
	return arc
}

// addNode adds physical qubit q to the graph if it is absent.
func (a *Architecture) addNode(q int) {
	if a.g.Node(int64(q)) == nil {
		a.g.AddNode(simple.Node(q))
	}
}

// addNodes registers physical qubits 0..n-1 that may be absent from the
// coupling map.  Such qubits can host single-qubit gates only.
func (a *Architecture) addNodes(n int) *Architecture {
	for q := 0; q < n; q++ {
		a.addNode(q)
	}
	return a
}

// Couplers returns the coupling map the architecture was constructed from.
func (a *Architecture) Couplers() CouplingMap {
	return append(CouplingMap(nil), a.couplers...)
}

// Nodes returns the physical qubits in ascending order.
func (a *Architecture) Nodes() []int {
	return sortedIDs(a.g.Nodes())
}

// NumNodes returns the number of physical qubits that appear in the coupling
// map.
func (a *Architecture) NumNodes() int {
	return a.g.Nodes().Len()
}

// Width returns one more than the largest physical qubit index, which is the
// number of qubits a physical circuit on this architecture must declare.
func (a *Architecture) Width() int {
	nodes := a.Nodes()
	if len(nodes) == 0 {
		return 0
	}
	return nodes[len(nodes)-1] + 1
}

// Neighbors returns the qubits connected to p in either direction, in
// ascending order.
func (a *Architecture) Neighbors(p int) []int {
	if a.g.Node(int64(p)) == nil {
		return nil
	}
	return sortedIDs(a.g.From(int64(p)))
}

// Degree returns the number of qubits connected to p.
func (a *Architecture) Degree(p int) int {
	if a.g.Node(int64(p)) == nil {
		return 0
	}
	return a.g.From(int64(p)).Len()
}

// Connected says whether a two-qubit gate may act on p and q in some
// direction.
func (a *Architecture) Connected(p, q int) bool {
	return p != q && a.g.HasEdgeBetween(int64(p), int64(q))
}

// HasEdge says whether a CX with control c and target t is native.
func (a *Architecture) HasEdge(c, t int) bool {
	_, ok := a.directed[[2]int{c, t}]
	return ok
}

// ShortestPath returns a shortest undirected path from one physical qubit to
// another, including both endpoints, or nil if none exists.  Ties are broken
// toward lower-numbered qubits.
func (a *Architecture) ShortestPath(from, to int) []int {
	if a.g.Node(int64(from)) == nil || a.g.Node(int64(to)) == nil {
		return nil
	}

	// Run a breadth-first search from the source once and memoize its
	// predecessor table.
	a.mu.Lock()
	prev, ok := a.prev[from]
	if !ok {
		prev = map[int]int{from: from}
		bf := traverse.BreadthFirst{
			Traverse: func(e graph.Edge) bool {
				n := int(e.To().ID())
				if _, seen := prev[n]; !seen {
					prev[n] = int(e.From().ID())
				}
				return true
			},
		}
		bf.Walk(orderedGraph{a}, simple.Node(from), nil)
		a.prev[from] = prev
	}
	a.mu.Unlock()

	// Walk the predecessor chain back from the destination.
	if _, ok := prev[to]; !ok {
		return nil
	}
	path := []int{to}
	for q := to; q != from; {
		q = prev[q]
		path = append(path, q)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Distance returns the number of couplers on a shortest path between two
// physical qubits, or -1 if they are disconnected.
func (a *Architecture) Distance(from, to int) int {
	p := a.ShortestPath(from, to)
	if p == nil {
		return -1
	}
	return len(p) - 1
}

// bfsOrder returns every node, visiting each connected component breadth
// first.  The first component starts at the highest-degree node (lowest index
// on ties), which places the busiest logical qubits in the best-connected
// region of the device.
func (a *Architecture) bfsOrder() []int {
	roots := a.Nodes()
	sort.SliceStable(roots, func(i, j int) bool {
		return a.Degree(roots[i]) > a.Degree(roots[j])
	})
	order := make([]int, 0, len(roots))
	var bf traverse.BreadthFirst
	for _, r := range roots {
		if bf.Visited(simple.Node(r)) {
			continue
		}
		bf.Walk(orderedGraph{a}, simple.Node(r), func(n graph.Node, _ int) bool {
			order = append(order, int(n.ID()))
			return false
		})
	}
	return order
}

// orderedGraph presents an architecture to gonum's traversals with each
// node's neighbors in ascending order, so searches are deterministic.
type orderedGraph struct {
	a *Architecture
}

// From returns the neighbors of a node.
func (og orderedGraph) From(id int64) graph.Nodes {
	ids := og.a.Neighbors(int(id))
	nodes := make([]graph.Node, len(ids))
	for i, n := range ids {
		nodes[i] = simple.Node(n)
	}
	return iterator.NewOrderedNodes(nodes)
}

// Edge returns the edge from u to v, oriented that way, or nil if they are
// not connected.
func (og orderedGraph) Edge(uid, vid int64) graph.Edge {
	if !og.a.g.HasEdgeBetween(uid, vid) {
		return nil
	}
	return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
}

// sortedIDs drains a node iterator into ascending qubit indices.
func sortedIDs(it graph.Nodes) []int {
	var ids []int
	for it.Next() {
		ids = append(ids, int(it.Node().ID()))
	}
	sort.Ints(ids)
	return ids
}
