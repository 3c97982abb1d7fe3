// Package routing implements the A* routing engine (C6): construction from
// an owned graph.GraphFile, weighted edge costs, an admissible haversine
// heuristic, and an edge-exclusion variant used by the loop generator.
package routing

import (
	"sync"

	"routecore/pkg/geo"
	gr "routecore/pkg/graph"
	"routecore/pkg/routeerr"
	"routecore/pkg/spatial"
)

// adjEdge is one directed traversal of an undirected EdgeRecord, carrying
// everything the cost function needs so a query never re-derives it.
type adjEdge struct {
	to          int
	lengthKm    float64
	surface     gr.SurfaceType
	meanDensity float64
	waypoints   []geo.Coordinate // ordered from `to`'s predecessor toward `to`
	reversed    bool             // true if this traversal runs opposite the EdgeRecord's stored direction
}

// Engine is an A* routing engine over one immutable graph.GraphFile. It is
// safe for concurrent queries: all mutable per-query state is pooled, never
// shared.
type Engine struct {
	coords  []geo.Coordinate // 0-indexed; coords[i] is node i+1
	density []float64
	adj     [][]adjEdge
	index   *spatial.KDTree

	statePool sync.Pool
}

// NewEngine validates gf (MissingNode/EmptyGraph per SPEC_FULL.md §4.6) and
// builds the adjacency list and spatial index.
func NewEngine(gf *gr.GraphFile) (*Engine, error) {
	if err := gf.Validate(); err != nil {
		return nil, err
	}

	n := len(gf.Nodes)
	e := &Engine{
		coords:  make([]geo.Coordinate, n),
		density: make([]float64, n),
		adj:     make([][]adjEdge, n),
	}
	points := make([]spatial.Point, n)
	for i, node := range gf.Nodes {
		e.coords[i] = node.Coordinate()
		e.density[i] = node.PopulationDensity
		points[i] = spatial.Point{Coord: node.Coordinate(), Index: i}
	}
	e.index = spatial.Build(points)

	for _, edge := range gf.Edges {
		if edge.From < 1 || edge.From > uint64(n) || edge.To < 1 || edge.To > uint64(n) {
			return nil, routeerr.New(routeerr.MissingNode, "edge references out-of-range node")
		}
		fromIdx := int(edge.From - 1)
		toIdx := int(edge.To - 1)
		lengthKm := edge.LengthM / 1000.0
		mean := (e.density[fromIdx] + e.density[toIdx]) / 2

		e.adj[fromIdx] = append(e.adj[fromIdx], adjEdge{
			to: toIdx, lengthKm: lengthKm, surface: edge.Surface, meanDensity: mean,
			waypoints: edge.Waypoints, reversed: false,
		})
		e.adj[toIdx] = append(e.adj[toIdx], adjEdge{
			to: fromIdx, lengthKm: lengthKm, surface: edge.Surface, meanDensity: mean,
			waypoints: reverseCoords(edge.Waypoints), reversed: true,
		})
	}

	e.statePool.New = func() any { return newSearchState(n) }
	return e, nil
}

func reverseCoords(cs []geo.Coordinate) []geo.Coordinate {
	if len(cs) == 0 {
		return nil
	}
	out := make([]geo.Coordinate, len(cs))
	for i, c := range cs {
		out[len(cs)-1-i] = c
	}
	return out
}

// pavedPenalty implements SPEC_FULL.md §4.6's surface penalty table.
func pavedPenalty(s gr.SurfaceType) float64 {
	switch s {
	case gr.Paved:
		return 1.0
	case gr.Trail:
		return 0.2
	case gr.Dirt:
		return 0.0
	default:
		return 1.0
	}
}

// edgeCost implements cost(edge) = length_km * (1 + w_pop*mean_density + w_paved*paved_penalty).
func edgeCost(e adjEdge, wPop, wPaved float64) float64 {
	return e.lengthKm * (1 + wPop*e.meanDensity + wPaved*pavedPenalty(e.surface))
}

// Weights bundles the routing request's cost-tuning parameters.
type Weights struct {
	WPop   float64
	WPaved float64
}

// NodeCount returns the number of nodes in the underlying graph.
func (e *Engine) NodeCount() int { return len(e.coords) }

// Snap returns the index of the nearest node to c, or false if it exceeds
// the 20 km cutoff (C5).
func (e *Engine) Snap(c geo.Coordinate) (int, bool) {
	return e.index.Nearest(c)
}

// Coordinate returns the coordinate of node index i.
func (e *Engine) Coordinate(i int) geo.Coordinate { return e.coords[i] }
