package routing

import (
	"context"

	"routecore/pkg/geo"
	"routecore/pkg/routeerr"
)

// RouteRequest is the request shape consumed by Route: two or more waypoints
// to be joined in order, with an optional closing leg back to the first
// waypoint (§6).
type RouteRequest struct {
	Waypoints []geo.Coordinate
	CloseLoop bool
	Weights   Weights
}

// RouteResult is a materialized multi-segment route: the concatenated
// polyline and the accumulated distance across every segment.
type RouteResult struct {
	Path       []geo.Coordinate
	DistanceKm float64
}

// Route snaps each waypoint to the graph, runs A* independently on every
// consecutive pair (and, if CloseLoop, the closing pair back to the first
// waypoint), and concatenates the segment polylines with the duplicate
// junction coordinate elided. Distance accumulates across segments rather
// than being reassigned from the last one (§4.6, §9).
func (e *Engine) Route(ctx context.Context, req RouteRequest) (*RouteResult, error) {
	if len(req.Waypoints) < 2 {
		return nil, routeerr.New(routeerr.BadBoundingBox, "route requires at least two waypoints")
	}

	stops := req.Waypoints
	if req.CloseLoop {
		stops = append(append([]geo.Coordinate{}, stops...), stops[0])
	}

	nodes := make([]int, len(stops))
	for i, c := range stops {
		idx, ok := e.Snap(c)
		if !ok {
			return nil, routeerr.Wrap(routeerr.NoRoute, "waypoint could not be snapped to the graph", errNoRoute)
		}
		nodes[i] = idx
	}

	result := &RouteResult{}
	for i := 0; i+1 < len(nodes); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, ok := e.FindPath(ctx, nodes[i], nodes[i+1], req.Weights)
		if !ok {
			return nil, errNoRoute
		}
		appendSegment(result, path)
	}

	return result, nil
}

// appendSegment concatenates path onto result, eliding the leading
// coordinate of path when it duplicates result's current trailing
// coordinate (true for every segment after the first).
func appendSegment(result *RouteResult, path Path) {
	coords := path.Coords
	if len(result.Path) > 0 && len(coords) > 0 {
		coords = coords[1:]
	}
	result.Path = append(result.Path, coords...)
	result.DistanceKm += path.DistanceKm
}
