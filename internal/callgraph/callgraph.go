package callgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/notebook-functions/internal/parsers"
	"github.com/mvp-joe/notebook-functions/pkg/notebook"
)

// Query defaults and limits
const (
	DefaultDepth = 1
	MaxDepth     = 10
)

// Node is a notebook function in the call graph. Only the authoritative
// (last) definition of each name takes part.
type Node struct {
	Name string `json:"name"`
	Cell int    `json:"cell"`
	Line int    `json:"line"`
}

// Result is one function reached by a traversal.
type Result struct {
	Node  *Node `json:"node"`
	Depth int   `json:"depth"`
}

// Graph holds calls between the functions of one notebook. Calls to names
// not defined in the notebook (builtins, imported modules) are dropped.
type Graph struct {
	graph graph.Graph[string, *Node]

	callees map[string][]string // function -> [callees]
	callers map[string][]string // function -> [callers]
}

// Build parses the authoritative definition of every function in idx and
// links each one to the notebook functions it calls.
func Build(ctx context.Context, idx *notebook.Index, parser *parsers.PythonParser) (*Graph, error) {
	g := graph.New(func(n *Node) string { return n.Name }, graph.Directed())

	names := idx.ListNames()
	calls := make(map[string][]string, len(names))

	for _, name := range names {
		rec, err := idx.Authoritative(name)
		if err != nil {
			return nil, err
		}

		if err := g.AddVertex(&Node{Name: rec.Name, Cell: rec.Cell, Line: rec.Line}); err != nil {
			return nil, fmt.Errorf("failed to add node %s: %w", name, err)
		}

		info, err := parser.Describe(ctx, rec.Body)
		if errors.Is(err, parsers.ErrNoFunction) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to describe %s: %w", name, err)
		}
		calls[name] = info.Calls
	}

	for _, from := range names {
		for _, to := range calls[from] {
			if !idx.Exists(to) {
				continue
			}
			if err := g.AddEdge(from, to); err != nil && !errors.Is(err, graph.ErrEdgeAlreadyExists) {
				return nil, fmt.Errorf("failed to add edge %s -> %s: %w", from, to, err)
			}
		}
	}

	return fromGraph(g)
}

// fromGraph builds the adjacency indexes from the graph's maps.
func fromGraph(g graph.Graph[string, *Node]) (*Graph, error) {
	adjacency, err := g.AdjacencyMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read adjacency map: %w", err)
	}
	predecessors, err := g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to read predecessor map: %w", err)
	}

	return &Graph{
		graph:   g,
		callees: sortedNeighbours(adjacency),
		callers: sortedNeighbours(predecessors),
	}, nil
}

func sortedNeighbours(m map[string]map[string]graph.Edge[string]) map[string][]string {
	out := make(map[string][]string, len(m))
	for id, edges := range m {
		if len(edges) == 0 {
			continue
		}
		list := make([]string, 0, len(edges))
		for target := range edges {
			list = append(list, target)
		}
		sort.Strings(list)
		out[id] = list
	}
	return out
}

// Callees returns the functions called by name, recursively up to depth.
func (g *Graph) Callees(name string, depth int) ([]Result, error) {
	return g.traverse(name, depth, g.callees)
}

// Callers returns the functions that call name, recursively up to depth.
func (g *Graph) Callers(name string, depth int) ([]Result, error) {
	return g.traverse(name, depth, g.callers)
}

// Functions returns the number of functions and calls in the graph.
func (g *Graph) Functions() (nodes, edges int, err error) {
	if nodes, err = g.graph.Order(); err != nil {
		return 0, 0, err
	}
	if edges, err = g.graph.Size(); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

// traverse walks an adjacency index breadth first. Every function is
// reported once, at the shallowest depth it was reached.
func (g *Graph) traverse(name string, depth int, adjacency map[string][]string) ([]Result, error) {
	if _, err := g.graph.Vertex(name); err != nil {
		return nil, &notebook.NotFoundError{Kind: notebook.KindFunction, Name: name}
	}

	if depth <= 0 {
		depth = DefaultDepth
	}
	if depth > MaxDepth {
		depth = MaxDepth
	}

	results := []Result{}
	visited := map[string]bool{name: true}
	frontier := []string{name}

	for current := 1; current <= depth && len(frontier) > 0; current++ {
		var next []string
		for _, id := range frontier {
			for _, neighbour := range adjacency[id] {
				if visited[neighbour] {
					continue
				}
				visited[neighbour] = true

				node, err := g.graph.Vertex(neighbour)
				if err != nil {
					continue
				}
				results = append(results, Result{Node: node, Depth: current})
				next = append(next, neighbour)
			}
		}
		frontier = next
	}

	return results, nil
}
