package graph

import (
	"time"

	"github.com/flowmesh/flowgraph-go/graph/component"
)

// Graph is the resolved, validated form of a Definition: vertices with
// instantiated components and normalized edges. A Graph belongs to exactly
// one prepared run; Prepare builds a fresh one every call.
type Graph struct {
	vertices map[string]*Vertex
	edges    []Edge
}

// buildGraph resolves a definition against the catalog and validates it.
func buildGraph(def Definition, catalog *component.Catalog, defaultTimeout time.Duration) (*Graph, error) {
	if len(def.Nodes) == 0 {
		return nil, &ValidationError{Message: "definition has no nodes"}
	}

	g := &Graph{vertices: make(map[string]*Vertex, len(def.Nodes))}

	for _, n := range def.Nodes {
		if n.ID == "" {
			return nil, &ValidationError{Message: "node with empty id"}
		}
		if _, exists := g.vertices[n.ID]; exists {
			return nil, &ValidationError{Message: "duplicate node id", VertexID: n.ID}
		}
		if n.Type == "" {
			return nil, &ValidationError{Message: "node with empty type", VertexID: n.ID}
		}

		comp, err := catalog.Create(n.Type, n.Params)
		if err != nil {
			return nil, &ValidationError{Message: err.Error(), VertexID: n.ID}
		}

		v := &Vertex{
			ID:       n.ID,
			Type:     n.Type,
			IsOutput: n.IsOutput,
			params:   cloneParams(n.Params),
			comp:     comp,
			policy:   policyFromData(n, defaultTimeout),
			inputs:   make(map[string][]binding),
			state:    StatePending,
		}
		if la, ok := comp.(component.LoopAware); ok {
			v.loop = la
		}

		v.Outputs = n.Outputs
		if len(v.Outputs) == 0 {
			if v.loop != nil {
				v.Outputs = []string{v.loop.ItemOutput(), v.loop.DoneOutput()}
			} else {
				v.Outputs = []string{DefaultSlot}
			}
		}

		g.vertices[n.ID] = v
	}

	for _, raw := range def.Edges {
		e := raw.normalized()
		if _, ok := g.vertices[e.Source]; !ok {
			return nil, &ValidationError{Message: "edge references unknown source node", VertexID: e.Source}
		}
		tgt, ok := g.vertices[e.Target]
		if !ok {
			return nil, &ValidationError{Message: "edge references unknown target node", VertexID: e.Target}
		}

		kind := EdgeRegular
		if e.LoopBack {
			kind = EdgeLoopBack
			if tgt.loop == nil {
				return nil, &ValidationError{
					Message:  "loop-back edge targets a vertex without a loop component",
					VertexID: e.Target,
				}
			}
		}

		edge := Edge{
			Source:       e.Source,
			Target:       e.Target,
			SourceOutput: e.SourceOutput,
			TargetInput:  e.TargetInput,
			Kind:         kind,
		}
		g.edges = append(g.edges, edge)

		tgt.inputs[edge.TargetInput] = append(tgt.inputs[edge.TargetInput], binding{
			source:   edge.Source,
			output:   edge.SourceOutput,
			loopBack: edge.IsLoopBack(),
		})
	}

	if cycle := g.findCycle(); cycle != nil {
		return nil, &DependencyError{Cycle: cycle}
	}

	for _, e := range g.edges {
		if e.IsLoopBack() && !g.reaches(e.Target, e.Source) {
			return nil, &ValidationError{
				Message:  "loop-back edge source is not downstream of its target",
				VertexID: e.Source,
			}
		}
	}

	return g, nil
}

// Vertex returns the vertex with the given id, or nil.
func (g *Graph) Vertex(id string) *Vertex { return g.vertices[id] }

// Size returns the number of vertices.
func (g *Graph) Size() int { return len(g.vertices) }

// findCycle looks for a cycle in the regular-edge subgraph and returns its
// vertex ids in walk order, or nil. Loop-back edges are exempt: they are the
// sanctioned way to express a cycle.
func (g *Graph) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.vertices))
	out := make(map[string][]string)
	for _, e := range g.edges {
		if !e.IsLoopBack() {
			out[e.Source] = append(out[e.Source], e.Target)
		}
	}

	var path []string
	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)
		for _, next := range out[id] {
			switch color[next] {
			case gray:
				for i, p := range path {
					if p == next {
						return append(append([]string{}, path[i:]...), next)
					}
				}
				return []string{next, next}
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for id := range g.vertices {
		if color[id] == white {
			if cycle := visit(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// reaches reports whether to is regular-edge reachable from from.
func (g *Graph) reaches(from, to string) bool {
	if from == to {
		return true
	}
	out := make(map[string][]string)
	for _, e := range g.edges {
		if !e.IsLoopBack() {
			out[e.Source] = append(out[e.Source], e.Target)
		}
	}

	visited := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range out[id] {
			if next == to {
				return true
			}
			if !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

func cloneParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
