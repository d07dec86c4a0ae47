// Package graph implements the dependency graph that chain-based processors
// use to defer a resource's apply until every declared upstream resource has
// been satisfied. It generalizes the teacher engine's typed-vertex graph
// from workflow-state routing to resource dependency tracking: vertices
// carry a NodeStatus instead of a Next route, and edges carry their own
// SatisfactionStatus rather than a predicate.
package graph

import "sync"

// NodeStatus is the per-node lifecycle state. Status transitions only
// forward: Pending -> InProgress -> Satisfied. It never regresses.
type NodeStatus int

const (
	Pending NodeStatus = iota
	InProgress
	Satisfied
)

func (s NodeStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case InProgress:
		return "in_progress"
	case Satisfied:
		return "satisfied"
	default:
		return "unknown"
	}
}

// EdgeStatus is the per-edge lifecycle state. An edge becomes Satisfied
// exactly when its upstream node becomes Satisfied.
type EdgeStatus int

const (
	EdgePending EdgeStatus = iota
	EdgeSatisfied
)

func (s EdgeStatus) String() string {
	if s == EdgeSatisfied {
		return "satisfied"
	}
	return "pending"
}

// Node is a vertex in the dependency graph. Payload carries the declared
// resource for payload nodes, or nil for fallback nodes standing in for an
// unresolved reference.
type Node struct {
	Hash    string
	Status  NodeStatus
	Payload any
}

// Edge records that To depends on From: From must be Satisfied before To
// may be flushed.
type Edge struct {
	From, To string
	Status   EdgeStatus
}

// Graph is a directed graph of Nodes guarded by a single mutual-exclusion
// primitive, as required by the single-threaded-cooperative concurrency
// model: hold time must stay short, since callers perform no I/O while
// holding Lock/Unlock.
type Graph struct {
	mu sync.Mutex

	nodes map[string]*Node
	// out[u] holds every edge whose From is u (u's downstreams).
	out map[string][]*Edge
	// in[v] holds every edge whose To is v (v's upstreams).
	in map[string][]*Edge
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string][]*Edge),
		in:    make(map[string][]*Edge),
	}
}

// Lock acquires the graph's exclusive lock. Callers must Unlock promptly and
// must never perform I/O while holding it.
func (g *Graph) Lock() { g.mu.Lock() }

// Unlock releases the graph's exclusive lock.
func (g *Graph) Unlock() { g.mu.Unlock() }

// AddNode upserts a node by hash. Two nodes with equal hashes are the same
// node; adding a duplicate is a no-op that preserves the existing status,
// unless the existing node is a fallback (nil Payload) and payload is
// non-nil, in which case the fallback is promoted to a payload node without
// disturbing its status or edges. Must be called with the lock held.
func (g *Graph) AddNode(hash string, payload any) *Node {
	if n, ok := g.nodes[hash]; ok {
		if n.Payload == nil && payload != nil {
			n.Payload = payload
		}
		return n
	}
	n := &Node{Hash: hash, Status: Pending, Payload: payload}
	g.nodes[hash] = n
	return n
}

// HasNode reports whether hash is present. Must be called with the lock held.
func (g *Graph) HasNode(hash string) bool {
	_, ok := g.nodes[hash]
	return ok
}

// GetNode returns the node for hash, or nil. Must be called with the lock held.
func (g *Graph) GetNode(hash string) *Node {
	return g.nodes[hash]
}

// AddEdge adds an edge meaning "to depends on from", upserting both
// endpoints as fallback nodes if absent. Must be called with the lock held.
func (g *Graph) AddEdge(from, to string) *Edge {
	g.AddNode(from, nil)
	g.AddNode(to, nil)
	e := &Edge{From: from, To: to, Status: EdgePending}
	if g.GetNode(from).Status == Satisfied {
		e.Status = EdgeSatisfied
	}
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
	return e
}

// SetNodeStatus transitions hash's status. Must be called with the lock
// held. When status is Satisfied, every outbound edge from hash also
// becomes Satisfied, per the invariant that an edge is satisfied exactly
// when its upstream node is.
func (g *Graph) SetNodeStatus(hash string, status NodeStatus) {
	n, ok := g.nodes[hash]
	if !ok {
		return
	}
	n.Status = status
	if status == Satisfied {
		for _, e := range g.out[hash] {
			e.Status = EdgeSatisfied
		}
	}
}

// GetNodeStatus returns hash's status, or Pending if absent. Must be called
// with the lock held.
func (g *Graph) GetNodeStatus(hash string) NodeStatus {
	if n, ok := g.nodes[hash]; ok {
		return n.Status
	}
	return Pending
}

// AreUpstreamsSatisfied reports whether every inbound edge to hash is
// satisfied. A node with no inbound edges is vacuously ready. exclude, when
// non-nil, skips edges whose From matches it — used when a node's own
// upstream-trigger handler checks readiness while excluding the edge that
// just became satisfied. Must be called with the lock held.
func (g *Graph) AreUpstreamsSatisfied(hash string, exclude string) bool {
	for _, e := range g.in[hash] {
		if e.From == exclude {
			continue
		}
		if e.Status != EdgeSatisfied {
			return false
		}
	}
	return true
}

// FilterDownstreams returns every direct downstream of hash for which
// predicate holds. Must be called with the lock held.
func (g *Graph) FilterDownstreams(hash string, predicate func(*Node) bool) []*Node {
	var out []*Node
	for _, e := range g.out[hash] {
		n := g.nodes[e.To]
		if n != nil && predicate(n) {
			out = append(out, n)
		}
	}
	return out
}

// GetPendingEdges returns every edge in the graph whose status is still
// Pending, used by the shutdown-time postprocess to report unresolved
// dependencies. Must be called with the lock held.
func (g *Graph) GetPendingEdges() []*Edge {
	var out []*Edge
	for _, edges := range g.out {
		for _, e := range edges {
			if e.Status == EdgePending {
				out = append(out, e)
			}
		}
	}
	return out
}
