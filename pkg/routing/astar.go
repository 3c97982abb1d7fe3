package routing

import (
	"context"
	"math"

	"routecore/pkg/geo"
	"routecore/pkg/routeerr"
)

// edgePenaltyMultiplier is the factor applied to a traversal that crosses an
// excluded directed pair, per SPEC_FULL.md §4.6 — strongly discouraged, never
// impassable.
const edgePenaltyMultiplier = 10.0

// searchState is per-query A* state, pooled across queries so a hot engine
// never allocates one slice per request — grounded on the teacher's
// sync.Pool'd QueryState, generalized from bidirectional CH fields to a
// single-directional A* frontier.
type searchState struct {
	gScore  []float64
	pred    []int
	visited []bool
	touched []int
	open    minHeap
}

func newSearchState(n int) *searchState {
	s := &searchState{
		gScore:  make([]float64, n),
		pred:    make([]int, n),
		visited: make([]bool, n),
		touched: make([]int, 0, 256),
	}
	for i := range s.gScore {
		s.gScore[i] = math.Inf(1)
		s.pred[i] = -1
	}
	return s
}

func (s *searchState) reset() {
	for _, i := range s.touched {
		s.gScore[i] = math.Inf(1)
		s.pred[i] = -1
		s.visited[i] = false
	}
	s.touched = s.touched[:0]
	s.open.items = s.open.items[:0]
}

func (s *searchState) touch(i int) {
	if math.IsInf(s.gScore[i], 1) && !s.visited[i] {
		s.touched = append(s.touched, i)
	}
}

// EdgeKey identifies a directed node pair for the excluded-edges set.
type EdgeKey struct{ From, To int }

// Path is a materialized route: the full coordinate polyline (including
// every intermediate waypoint) and its total length.
type Path struct {
	Coords     []geo.Coordinate
	DistanceKm float64
	nodeSeq    []int // exported via NodeSeq for the loop generator's edge extraction
}

// NodeSeq returns the sequence of graph node indices the path passed
// through, used by the loop generator to derive an excluded-edge set.
func (p Path) NodeSeq() []int { return p.nodeSeq }

// FindPath runs unrestricted A* from startIdx to goalIdx.
func (e *Engine) FindPath(ctx context.Context, startIdx, goalIdx int, w Weights) (Path, bool) {
	return e.search(ctx, startIdx, goalIdx, w, nil)
}

// FindPathExcluding runs A* with the excluded-edges variant: traversing a
// directed pair in excluded (either orientation) multiplies its cost by 10,
// except when either endpoint is startIdx.
func (e *Engine) FindPathExcluding(ctx context.Context, startIdx, goalIdx int, w Weights, excluded map[EdgeKey]bool) (Path, bool) {
	return e.search(ctx, startIdx, goalIdx, w, excluded)
}

func (e *Engine) search(ctx context.Context, startIdx, goalIdx int, w Weights, excluded map[EdgeKey]bool) (Path, bool) {
	if startIdx == goalIdx {
		return Path{Coords: []geo.Coordinate{e.coords[startIdx]}, nodeSeq: []int{startIdx}}, true
	}

	st := e.statePool.Get().(*searchState)
	defer func() {
		st.reset()
		e.statePool.Put(st)
	}()

	goalCoord := e.coords[goalIdx]
	heuristic := func(n int) float64 {
		if n == goalIdx {
			return 0
		}
		return geo.HaversineKm(e.coords[n], goalCoord)
	}

	st.touch(startIdx)
	st.gScore[startIdx] = 0
	seq := 0
	st.open.Push(startIdx, heuristic(startIdx), seq)
	seq++

	for st.open.Len() > 0 {
		if ctx.Err() != nil {
			return Path{}, false
		}
		item := st.open.Pop()
		u := item.node
		if st.visited[u] {
			continue
		}
		st.visited[u] = true
		if u == goalIdx {
			break
		}

		for _, adjE := range e.adj[u] {
			v := adjE.to
			if st.visited[v] {
				continue
			}
			cost := edgeCost(adjE, w.WPop, w.WPaved)
			if excluded != nil && isExcluded(excluded, u, v) && u != startIdx && v != startIdx {
				cost *= edgePenaltyMultiplier
			}
			newG := st.gScore[u] + cost
			if newG < st.gScore[v] {
				st.touch(v)
				st.gScore[v] = newG
				st.pred[v] = u
				st.open.Push(v, newG+heuristic(v), seq)
				seq++
			}
		}
	}

	if !st.visited[goalIdx] {
		return Path{}, false
	}

	nodeSeq := reconstructNodeSeq(st.pred, startIdx, goalIdx)
	path := e.materialize(nodeSeq)
	return path, true
}

func isExcluded(excluded map[EdgeKey]bool, u, v int) bool {
	return excluded[EdgeKey{u, v}] || excluded[EdgeKey{v, u}]
}

func reconstructNodeSeq(pred []int, start, goal int) []int {
	seq := []int{goal}
	n := goal
	for n != start {
		n = pred[n]
		seq = append(seq, n)
	}
	for i, j := 0, len(seq)-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = seq[j], seq[i]
	}
	return seq
}

// materialize emits coord(u), then the traversed edge's waypoints, then
// coord(v) for each consecutive pair, with the duplicate junction coordinate
// elided — per SPEC_FULL.md §4.6's path materialization rule.
func (e *Engine) materialize(nodeSeq []int) Path {
	if len(nodeSeq) == 0 {
		return Path{}
	}
	if len(nodeSeq) == 1 {
		return Path{Coords: []geo.Coordinate{e.coords[nodeSeq[0]]}, nodeSeq: nodeSeq}
	}

	coords := make([]geo.Coordinate, 0, len(nodeSeq)*2)
	coords = append(coords, e.coords[nodeSeq[0]])
	var distanceKm float64

	for i := 0; i+1 < len(nodeSeq); i++ {
		u, v := nodeSeq[i], nodeSeq[i+1]
		edge := findEdge(e.adj[u], v)
		coords = append(coords, edge.waypoints...)
		coords = append(coords, e.coords[v])
		distanceKm += edge.lengthKm
	}

	return Path{Coords: coords, DistanceKm: distanceKm, nodeSeq: nodeSeq}
}

func findEdge(edges []adjEdge, to int) adjEdge {
	for _, e := range edges {
		if e.to == to {
			return e
		}
	}
	return adjEdge{}
}

// errNoRoute is the sentinel wrapped by NoRoute failures surfaced to
// callers that want a routeerr.Error instead of a bare bool.
var errNoRoute = routeerr.New(routeerr.NoRoute, "no path between the requested nodes")
