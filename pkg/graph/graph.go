// Package graph assembles a routable GraphFile from a pbf.FilteredData (C3)
// and defines the wire/in-memory graph model shared by the cache, routing
// engine, and loop generator.
package graph

import (
	"routecore/pkg/geo"
	"routecore/pkg/routeerr"
)

// SurfaceType classifies an edge's running surface.
type SurfaceType string

const (
	Paved SurfaceType = "paved"
	Trail SurfaceType = "trail"
	Dirt  SurfaceType = "dirt"
)

// NodeRecord is one graph node. ID is 1-based and dense within a single
// GraphFile; it is not the OSM id.
type NodeRecord struct {
	ID                uint64  `json:"id"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	Elevation         *float64 `json:"elevation,omitempty"`
	PopulationDensity float64 `json:"population_density"`
}

// Coordinate returns the node's position as a geo.Coordinate.
func (n NodeRecord) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: n.Lat, Lon: n.Lon}
}

// EdgeRecord connects two nodes. Waypoints is the ordered polyline strictly
// between From and To — the intermediate OSM shape points of the source
// way — and never includes the endpoints. LengthM is the haversine sum of
// the full polyline (From → Waypoints → To). Edges are undirected; the
// routing engine treats (From,To) as traversable in either direction.
type EdgeRecord struct {
	From      uint64           `json:"from"`
	To        uint64           `json:"to"`
	Surface   SurfaceType      `json:"surface"`
	LengthM   float64          `json:"length_m"`
	Waypoints []geo.Coordinate `json:"waypoints,omitempty"`
}

// GraphFile is the complete wire/in-memory representation of a partial
// graph: every node in [1, len(Nodes)], every edge endpoint valid.
type GraphFile struct {
	Nodes []NodeRecord `json:"nodes"`
	Edges []EdgeRecord `json:"edges"`
}

// Validate checks the invariants from SPEC_FULL.md §3: dense 1-based node
// ids and in-range edge endpoints.
func (g *GraphFile) Validate() error {
	if len(g.Nodes) == 0 {
		return routeerr.New(routeerr.EmptyGraph, "graph has no nodes")
	}
	for i, n := range g.Nodes {
		if n.ID != uint64(i+1) {
			return routeerr.New(routeerr.MissingNode, "node id is not dense/1-based")
		}
	}
	n := uint64(len(g.Nodes))
	for _, e := range g.Edges {
		if e.From < 1 || e.From > n || e.To < 1 || e.To > n {
			return routeerr.New(routeerr.MissingNode, "edge endpoint out of range")
		}
	}
	return nil
}
