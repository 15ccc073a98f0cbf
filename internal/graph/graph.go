// Package graph declares analysis workflows as directed acyclic graphs of
// named workers and executes them with per-node timeouts, running independent
// nodes concurrently and converging results at fan-in nodes.
package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/quantfold/zerodte/internal/domain"
)

// CycleError is returned by Build when the edge set contains a cycle.
type CycleError struct {
	// Nodes are the node names involved in (or downstream of) the cycle.
	Nodes []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("graph: cycle involving nodes [%s]", strings.Join(e.Nodes, ", "))
}

// DuplicateNodeError is returned by Build when two nodes share a name.
type DuplicateNodeError struct {
	Name string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("graph: duplicate node %q", e.Name)
}

// UnknownNodeError is returned by Build when an edge references a node that
// was never added.
type UnknownNodeError struct {
	Name string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("graph: edge references unknown node %q", e.Name)
}

// node is one unit of work: a named worker with its own timeout.
type node struct {
	name    string
	worker  domain.Worker
	timeout time.Duration
}

// edge means "to may not start until from has completed".
type edge struct {
	from, to string
}

// Builder accumulates nodes and edges and validates them into a Graph.
type Builder struct {
	nodes []node
	edges []edge
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddNode registers a named worker. A non-positive timeout means the node
// runs without its own deadline.
func (b *Builder) AddNode(name string, worker domain.Worker, timeout time.Duration) *Builder {
	b.nodes = append(b.nodes, node{name: name, worker: worker, timeout: timeout})
	return b
}

// AddEdge declares that to depends on from.
func (b *Builder) AddEdge(from, to string) *Builder {
	b.edges = append(b.edges, edge{from: from, to: to})
	return b
}

// Build validates the declared topology and returns an executable Graph.
// It fails on duplicate node names, edges referencing unknown nodes, and
// cycles; these are the only hard errors in the package. Node failures at
// execution time are recorded, not raised.
func (b *Builder) Build() (*Graph, error) {
	nodes := make(map[string]node, len(b.nodes))
	for _, n := range b.nodes {
		if _, ok := nodes[n.name]; ok {
			return nil, &DuplicateNodeError{Name: n.name}
		}
		if n.worker == nil {
			return nil, fmt.Errorf("graph: node %q has no worker", n.name)
		}
		nodes[n.name] = n
	}

	indegree := make(map[string]int, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	predecessors := make(map[string][]string, len(nodes))
	outdegree := make(map[string]int, len(nodes))
	for name := range nodes {
		indegree[name] = 0
	}
	for _, e := range b.edges {
		if _, ok := nodes[e.from]; !ok {
			return nil, &UnknownNodeError{Name: e.from}
		}
		if _, ok := nodes[e.to]; !ok {
			return nil, &UnknownNodeError{Name: e.to}
		}
		indegree[e.to]++
		outdegree[e.from]++
		dependents[e.from] = append(dependents[e.from], e.to)
		predecessors[e.to] = append(predecessors[e.to], e.from)
	}

	if err := checkAcyclic(nodes, indegree, dependents); err != nil {
		return nil, err
	}

	// The sink is the unique node with no outgoing edges; its output is the
	// graph's final text. Multi-sink graphs have no distinguished result.
	var sink string
	for name := range nodes {
		if outdegree[name] == 0 {
			if sink != "" {
				sink = ""
				break
			}
			sink = name
		}
	}

	return &Graph{
		nodes:        nodes,
		indegree:     indegree,
		dependents:   dependents,
		predecessors: predecessors,
		sink:         sink,
	}, nil
}

// checkAcyclic runs Kahn's algorithm over a scratch copy of the in-degrees.
// Any node left unprocessed is part of, or downstream of, a cycle.
func checkAcyclic(nodes map[string]node, indegree map[string]int, dependents map[string][]string) error {
	remaining := make(map[string]int, len(indegree))
	for name, d := range indegree {
		remaining[name] = d
	}

	var ready []string
	for name, d := range remaining {
		if d == 0 {
			ready = append(ready, name)
		}
	}

	processed := 0
	for len(ready) > 0 {
		name := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		processed++
		for _, dep := range dependents[name] {
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if processed == len(nodes) {
		return nil
	}

	var stuck []string
	for name, d := range remaining {
		if d > 0 {
			stuck = append(stuck, name)
		}
	}
	sort.Strings(stuck)
	return &CycleError{Nodes: stuck}
}

// Graph is a validated workflow ready for execution. A Graph is immutable and
// safe to execute repeatedly and concurrently.
type Graph struct {
	nodes        map[string]node
	indegree     map[string]int
	dependents   map[string][]string
	predecessors map[string][]string
	sink         string
}

// Sink returns the name of the unique terminal node, or "" when the graph
// has several sinks.
func (g *Graph) Sink() string {
	return g.sink
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return len(g.nodes)
}
